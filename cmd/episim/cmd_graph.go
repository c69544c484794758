package main

import (
	"github.com/nvandessel/episim/internal/report"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render a contact network for visualization",
		Long: `Output a generated or stored network in DOT (Graphviz) or JSON format.

Examples:
  episim graph | neato -Tsvg > small.svg
  episim graph --network er10 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			format, _ := cmd.Flags().GetString("format")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			g, _, err := buildNetwork(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			if jsonOut {
				format = string(report.FormatJSON)
			}
			return renderNetwork(cmd.OutOrStdout(), g, report.Format(format), false)
		},
	}

	addNetworkFlags(cmd)
	cmd.Flags().String("format", "dot", "Output format: dot or json")
	return cmd
}
