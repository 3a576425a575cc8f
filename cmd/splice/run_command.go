package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/config"
	"splice/internal/merger"
	"splice/internal/splitter"
	"splice/internal/worker"
)

// jobPayload is the request shape the external serverless handler maps
// invocations into. The run command accepts the same document from a file
// or stdin.
type jobPayload struct {
	ID    string        `json:"id,omitempty"`
	Kind  string        `json:"kind"`
	Split *splitPayload `json:"split,omitempty"`
	Merge *mergePayload `json:"merge,omitempty"`
}

type splitPayload struct {
	SourcePath string           `json:"source_path"`
	Segments   []segmentPayload `json:"segments"`
}

type segmentPayload struct {
	Start float64  `json:"start"`
	End   *float64 `json:"end,omitempty"`
}

type mergePayload struct {
	Segments   []string `json:"segments"`
	OutputName string   `json:"output_name,omitempty"`
}

type jobResponse struct {
	JobID      string            `json:"job_id"`
	Kind       string            `json:"kind"`
	Status     string            `json:"status"`
	Outputs    []outputResponse  `json:"outputs"`
	Failures   []failureResponse `json:"failures,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

type outputResponse struct {
	Path            string  `json:"path"`
	ContainerFormat string  `json:"container_format"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type failureResponse struct {
	Segment int    `json:"segment"`
	Error   string `json:"error"`
}

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run <job.json>",
		Short: "Execute a split or merge job described by a JSON payload",
		Long: "Reads a job payload (use '-' for stdin), runs it through the worker, " +
			"copies outputs into --output-dir, and prints the result as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			payload, err := readJobPayload(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			collected := map[string]string{}
			w, err := worker.New(cfg, logger,
				worker.WithConsumer(func(ctx context.Context, result *worker.OperationResult) error {
					return collectOutputs(result, outputDir, collected)
				}),
			)
			if err != nil {
				return err
			}

			sweepStaleWorkspaces(ctx, w, cfg, logger)

			result, runErr := dispatch(ctx, w, payload)
			if result != nil {
				if err := writeJSON(cmd, buildResponse(result, collected)); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory outputs are copied into before the workspace is released")
	return cmd
}

// sweepStaleWorkspaces reclaims directories left behind by crashed
// invocations before new work begins. The sweep holds a lock file in the
// work root, so concurrent invocations skip it instead of racing.
func sweepStaleWorkspaces(ctx context.Context, w *worker.Worker, cfg *config.Config, logger *slog.Logger) {
	maxAge := time.Duration(cfg.Workspace.StaleAfterMinutes) * time.Minute
	w.Workspaces().CleanStale(ctx, maxAge, logger)
}

func dispatch(ctx context.Context, w *worker.Worker, payload *jobPayload) (*worker.OperationResult, error) {
	switch strings.ToLower(strings.TrimSpace(payload.Kind)) {
	case "split":
		if payload.Split == nil {
			return nil, fmt.Errorf("job payload: split job requires a split section")
		}
		spec := splitter.SplitSpec{SourcePath: payload.Split.SourcePath}
		for _, segment := range payload.Split.Segments {
			spec.Segments = append(spec.Segments, splitter.Segment{Start: segment.Start, End: segment.End})
		}
		return w.HandleSplitJob(ctx, payload.ID, spec)
	case "merge":
		if payload.Merge == nil {
			return nil, fmt.Errorf("job payload: merge job requires a merge section")
		}
		return w.HandleMergeJob(ctx, payload.ID, merger.MergeSpec{
			Segments:   payload.Merge.Segments,
			OutputName: payload.Merge.OutputName,
		})
	default:
		return nil, fmt.Errorf("job payload: kind must be split or merge (got %q)", payload.Kind)
	}
}

func readJobPayload(source string) (*jobPayload, error) {
	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read job payload: %w", err)
	}

	var payload jobPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	return &payload, nil
}

// collectOutputs copies produced files out of the workspace before it is
// torn down, recording where each one landed.
func collectOutputs(result *worker.OperationResult, outputDir string, collected map[string]string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, output := range result.Outputs {
		dest := filepath.Join(outputDir, filepath.Base(output.Path))
		if err := copyFile(output.Path, dest); err != nil {
			return err
		}
		collected[output.Path] = dest
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open output %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dest, err)
	}
	return out.Close()
}

func buildResponse(result *worker.OperationResult, collected map[string]string) jobResponse {
	response := jobResponse{
		JobID:      result.JobID,
		Kind:       string(result.Kind),
		Status:     string(result.Status),
		DurationMS: result.DurationMillis,
		Warnings:   result.Warnings,
	}
	for _, output := range result.Outputs {
		path := output.Path
		if dest, ok := collected[path]; ok {
			path = dest
		}
		response.Outputs = append(response.Outputs, outputResponse{
			Path:            path,
			ContainerFormat: output.Info.ContainerFormat,
			DurationSeconds: output.Info.DurationSeconds,
		})
	}
	for _, failure := range result.Failures {
		response.Failures = append(response.Failures, failureResponse{
			Segment: failure.Index,
			Error:   failure.Err.Error(),
		})
	}
	return response
}
