package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"valleycross/pkg/valleycross"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "Plot mutation-class frequencies over generations",
		Long: `Plot a run's trajectory as wild type, single, double and triple mutant
frequencies. Reads stored snapshots (sqlite store) or, with --trajectory,
a trajectory.txt written by "valleyctl run".`,
		Args: cobra.MaximumNArgs(1),
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

			req := valleycross.PlotRequest{}
			req.Latest, _ = cmd.Flags().GetBool("latest")
			req.TrajectoryFile, _ = cmd.Flags().GetString("trajectory")
			req.OutPath, _ = cmd.Flags().GetString("output")
			if len(args) == 1 {
				req.RunID = args[0]
			}
			path, err := client.Plot(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, map[string]string{"plot": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plot written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("latest", false, "Plot the most recent run")
	cmd.Flags().String("trajectory", "", "Plot this trajectory file instead of a stored run")
	cmd.Flags().StringP("output", "o", "", "Output image path (.png, .svg or .pdf)")
	return cmd
}
