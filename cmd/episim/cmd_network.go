package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/report"
	"github.com/spf13/cobra"
)

func newNetworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Generate, inspect and manage stored contact networks",
		Long: `Manage the network library (~/.episim/networks.db by default).

Examples:
  episim network generate --topology random --nodes 10 --p 0.6 --save er10
  episim network show er10
  episim network list
  episim network delete er10
  episim network backup
  episim network restore ~/.episim/backups/episim-networks-20260101-120000.epz`,
	}

	cmd.AddCommand(
		newNetworkGenerateCmd(),
		newNetworkShowCmd(),
		newNetworkListCmd(),
		newNetworkDeleteCmd(),
		newNetworkBackupCmd(),
		newNetworkRestoreCmd(),
		newNetworkVerifyCmd(),
	)
	return cmd
}

func newNetworkGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a topology, print it, and optionally store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			saveName, _ := cmd.Flags().GetString("save")
			format, _ := cmd.Flags().GetString("format")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			g, label, err := buildNetwork(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if saveName != "" {
				s, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				rec, err := s.SaveNetwork(cmd.Context(), saveName, g)
				if err != nil {
					return fmt.Errorf("save network: %w", err)
				}
				if jsonOut {
					return writeJSON(out, rec)
				}
				fmt.Fprintf(out, "Stored %s network %q (%d nodes, %d edges)\n", label, rec.Name, rec.Nodes, rec.Edges)
				return nil
			}

			if jsonOut {
				format = string(report.FormatJSON)
			}
			return renderNetwork(out, g, report.Format(format), false)
		},
	}

	addTopologyFlags(cmd)
	cmd.Flags().String("save", "", "Store the network under this name instead of printing it")
	cmd.Flags().String("format", "text", "Output format when printing: text, dot, or json")
	return cmd
}

func newNetworkShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			format, _ := cmd.Flags().GetString("format")
			color, _ := cmd.Flags().GetBool("color")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			g, err := s.LoadNetwork(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				format = string(report.FormatJSON)
			}
			return renderNetwork(cmd.OutOrStdout(), g, report.Format(format), color)
		},
	}
	cmd.Flags().String("format", "text", "Output format: text, dot, or json")
	cmd.Flags().Bool("color", false, "Colour node states in text output")
	return cmd
}

func newNetworkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.ListNetworks(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]interface{}{
					"networks": recs,
					"count":    len(recs),
				})
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No stored networks.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tNODES\tEDGES\tCREATED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", r.Name, r.Nodes, r.Edges, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}

func newNetworkDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteNetwork(cmd.Context(), args[0]); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted network %q\n", args[0])
			return nil
		},
	}
}

// renderNetwork writes g in the requested format.
func renderNetwork(w io.Writer, g *network.Network, format report.Format, color bool) error {
	switch format {
	case report.FormatText, "":
		return report.NewPrinter(w, color).Network(g)
	case report.FormatDOT:
		_, err := io.WriteString(w, report.RenderDOT(g))
		return err
	case report.FormatJSON:
		return writeJSON(w, report.RenderJSON(g))
	default:
		return fmt.Errorf("%w: unsupported format %q (use text, dot, or json)", network.ErrInvalidArgument, format)
	}
}
