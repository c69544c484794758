package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/episim/internal/backup"
	"github.com/nvandessel/episim/internal/pathutil"
	"github.com/spf13/cobra"
)

func newNetworkBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup [name...]",
		Short: "Archive stored networks to a file",
		Long: `Archive the named networks (all when none are named) to a compressed,
checksummed file.

Default location: ~/.episim/backups/episim-networks-YYYYMMDD-HHMMSS.epz
Only the newest --keep archives in that directory are kept.

Examples:
  episim network backup
  episim network backup er10 city --output nets.epz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")

			if outputPath == "" {
				dir, err := backup.DefaultBackupDir()
				if err != nil {
					return fmt.Errorf("failed to get backup directory: %w", err)
				}
				outputPath = backup.GenerateBackupPath(dir)
			} else {
				allowedDirs, err := pathutil.AllowedArchiveDirs()
				if err != nil {
					return fmt.Errorf("failed to determine allowed backup dirs: %w", err)
				}
				if err := pathutil.ValidateArchiveWrite(outputPath, allowedDirs); err != nil {
					return fmt.Errorf("backup path rejected: %w", err)
				}
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			a, err := backup.Backup(cmd.Context(), s, outputPath, args...)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			if keep > 0 {
				if err := backup.RotateBackups(filepath.Dir(outputPath), keep); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to rotate backups: %v\n", err)
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				var sizeBytes int64
				if info, err := os.Stat(outputPath); err == nil {
					sizeBytes = info.Size()
				}
				return writeJSON(out, map[string]interface{}{
					"path":          outputPath,
					"network_count": len(a.Networks),
					"edge_count":    a.EdgeCount(),
					"version":       a.Version,
					"size_bytes":    sizeBytes,
				})
			}
			fmt.Fprintf(out, "Backup created: %d networks, %d edges\n", len(a.Networks), a.EdgeCount())
			fmt.Fprintf(out, "  Path: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().String("output", "", "Output file path (default: auto-generated in ~/.episim/backups/)")
	cmd.Flags().Int("keep", 10, "Archives to keep in the output directory (0 keeps all)")
	return cmd
}

func newNetworkRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore networks from an archive",
		Long: `Restore networks from an archive (either format, auto-detected).
Every archived network is validated before anything is written.

Modes:
  merge   - keep networks that already exist (default)
  replace - overwrite networks with the same name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			modeFlag, _ := cmd.Flags().GetString("mode")
			inputPath := args[0]

			allowedDirs, err := pathutil.AllowedArchiveDirs()
			if err != nil {
				return fmt.Errorf("failed to determine allowed backup dirs: %w", err)
			}
			if err := pathutil.ValidateArchiveRead(inputPath, allowedDirs); err != nil {
				return fmt.Errorf("restore path rejected: %w", err)
			}

			mode, err := backup.ParseRestoreMode(modeFlag)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := backup.Restore(cmd.Context(), s, inputPath, mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "Restored %d networks, skipped %d\n", len(result.Restored), len(result.Skipped))
			for _, name := range result.Skipped {
				fmt.Fprintf(out, "  skipped (exists): %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().String("mode", "merge", "Restore mode: merge or replace")
	return cmd
}

func newNetworkVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify an archive's checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path := args[0]
			out := cmd.OutOrStdout()

			version, err := backup.DetectFormat(path)
			if err != nil {
				return fmt.Errorf("failed to detect format: %w", err)
			}

			if version == backup.FormatV1 {
				if jsonOut {
					return writeJSON(out, map[string]interface{}{
						"file": path, "version": 1, "valid": true,
						"message": "V1 format: no checksum to verify",
					})
				}
				fmt.Fprintln(out, "V1 format: no checksum to verify")
				return nil
			}

			if err := backup.VerifyChecksum(path); err != nil {
				if jsonOut {
					_ = writeJSON(out, map[string]interface{}{
						"file": path, "version": 2, "valid": false, "error": err.Error(),
					})
				}
				return fmt.Errorf("verification failed: %w", err)
			}

			header, err := backup.ReadHeader(path)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(out, map[string]interface{}{
					"file": path, "version": 2, "valid": true,
					"networks": header.NetworkCount, "edges": header.EdgeCount,
				})
			}
			fmt.Fprintf(out, "Archive OK: %d networks, %d edges (created %s)\n", header.NetworkCount, header.EdgeCount, header.CreatedAt)
			return nil
		},
	}
}
