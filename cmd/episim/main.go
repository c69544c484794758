package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nvandessel/episim/internal/config"
	"github.com/nvandessel/episim/internal/logging"
	"github.com/nvandessel/episim/internal/pathutil"
	"github.com/nvandessel/episim/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "episim",
		Short: "Discrete-time SI epidemic simulator",
		Long: `episim simulates susceptible-infected spread on contact networks.

Each time step, every susceptible node draws once per infectious neighbor
and becomes infected with probability beta per draw. Networks can be the
fixed nine-node example, an Erdos-Renyi style random graph, or a network
stored in the local library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.episim/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace (overrides config)")
	rootCmd.PersistentFlags().String("store", "", "Network library database (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newDemoCmd(),
		newEnsembleCmd(),
		newNetworkCmd(),
		newGraphCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// loadConfig loads configuration from --config (or the default location)
// and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.EpisimConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if storePath, _ := cmd.Flags().GetString("store"); storePath != "" {
		cfg.Store.Path = storePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger returns the operational logger. Logs go to stderr so they never
// mix with command output.
func newLogger(cmd *cobra.Command, cfg *config.EpisimConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// newTraceLogger opens trace.jsonl when the level asks for it.
func newTraceLogger(cfg *config.EpisimConfig) *logging.TraceLogger {
	dir := cfg.Logging.TraceDir
	if dir == "" {
		var err error
		if dir, err = pathutil.HomeDir(); err != nil {
			return nil
		}
	}
	return logging.NewTraceLogger(dir, cfg.Logging.Level)
}

// openStore opens the SQLite network library.
func openStore(cfg *config.EpisimConfig) (*store.SQLiteNetworkStore, error) {
	path := cfg.Store.Path
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, err
		}
	}
	s, err := store.NewSQLiteNetworkStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network store: %w", err)
	}
	return s, nil
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		stopSignals(sigChan)
	}()
	return ctx, cancel
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
