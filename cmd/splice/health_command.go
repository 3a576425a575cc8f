package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"splice/internal/worker"
)

func newHealthCommand(cmdCtx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check toolchain binaries and the work directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			w, err := worker.New(cfg, logger)
			if err != nil {
				return err
			}
			statuses := w.Health(cmd.Context())

			if asJSON {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				rows := make([]table.Row, 0, len(statuses))
				for _, status := range statuses {
					state := "ok"
					detail := status.Description
					if !status.Available {
						state = "missing"
						if status.Detail != "" {
							detail = status.Detail
						}
					}
					rows = append(rows, table.Row{status.Name, status.Command, state, detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(table.Row{"Dependency", "Command", "State", "Detail"}, rows))
			}

			if !worker.Healthy(statuses) {
				return fmt.Errorf("one or more dependencies are unavailable")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit statuses as JSON")
	return cmd
}
