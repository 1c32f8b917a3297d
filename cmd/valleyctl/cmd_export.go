package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"valleycross/pkg/valleycross"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Copy a run's summary and plot to an export directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, _, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			req := valleycross.ExportRequest{}
			req.Latest, _ = cmd.Flags().GetBool("latest")
			req.OutDir, _ = cmd.Flags().GetString("out-dir")
			if len(args) == 1 {
				req.RunID = args[0]
			}
			exported, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, exported)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	cmd.Flags().Bool("latest", false, "Export the most recent run")
	cmd.Flags().String("out-dir", "", "Export directory (default exports)")
	return cmd
}
