package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"splice/internal/media"
	"splice/internal/media/ffprobe"
	"splice/internal/splitter"
)

func newProbeCommand(cmdCtx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file and report its container and streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			prober := ffprobe.New(cfg.ProberBinary(),
				ffprobe.WithTimeout(time.Duration(cfg.Toolchain.ProbeTimeoutSeconds)*time.Second),
			)
			info, err := prober.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, info)
			}
			return renderProbe(cmd, info)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw metadata as JSON")
	return cmd
}

func renderProbe(cmd *cobra.Command, info media.Info) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:      %s\n", info.Path)
	fmt.Fprintf(out, "Container: %s\n", info.ContainerFormat)
	fmt.Fprintf(out, "Duration:  %s (%.3fs)\n", splitter.FormatTimestamp(info.DurationSeconds), info.DurationSeconds)
	fmt.Fprintln(out)

	rows := make([]table.Row, 0, len(info.Streams))
	for _, stream := range info.Streams {
		rows = append(rows, table.Row{
			stream.Index,
			string(stream.Kind),
			stream.Codec,
			streamDetail(stream),
		})
	}
	fmt.Fprintln(out, renderTable(table.Row{"#", "Type", "Codec", "Detail"}, rows, 1))
	return nil
}

func streamDetail(stream media.Stream) string {
	switch stream.Kind {
	case media.StreamVideo:
		if stream.Width > 0 && stream.Height > 0 {
			return fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		}
	case media.StreamAudio:
		parts := make([]string, 0, 2)
		if stream.SampleRate > 0 {
			parts = append(parts, fmt.Sprintf("%d Hz", stream.SampleRate))
		}
		if stream.Channels > 0 {
			parts = append(parts, fmt.Sprintf("%d ch", stream.Channels))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
