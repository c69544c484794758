package main

import (
	"fmt"
	"os"

	"github.com/nvandessel/episim/internal/logging"
	"github.com/nvandessel/episim/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve episim tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing
episim_simulate, episim_ensemble, episim_network, episim_list_networks and
episim_backup. Tool calls are rate limited and recorded in
~/.episim/audit.jsonl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			noAudit, _ := cmd.Flags().GetBool("no-audit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			auditDir := ""
			if noAudit {
				auditDir = "-"
			}

			// stdout carries the protocol; logs go to stderr only.
			server, err := mcp.NewServer(&mcp.Config{
				Name:     "episim",
				Version:  version,
				Defaults: cfg,
				AuditDir: auditDir,
				Logger:   logging.NewLogger(cfg.Logging.Level, os.Stderr),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().Bool("no-audit", false, "Do not write the tool audit log")
	return cmd
}
