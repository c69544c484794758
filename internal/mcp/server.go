// Package mcp provides an MCP (Model Context Protocol) server for episim.
// It exposes SI runs, ensembles and the stored network library as tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/episim/internal/config"
	"github.com/nvandessel/episim/internal/logging"
	"github.com/nvandessel/episim/internal/pathutil"
	"github.com/nvandessel/episim/internal/ratelimit"
	"github.com/nvandessel/episim/internal/simulation"
	"github.com/nvandessel/episim/internal/store"
)

// Server wraps the MCP SDK server with episim's tools.
type Server struct {
	server   *sdk.Server
	store    store.NetworkStore
	defaults *config.EpisimConfig
	runner   *simulation.Runner
	logger   *slog.Logger
	audit    *AuditLogger

	toolLimiters ratelimit.ToolLimiters

	// archiveDirs bounds where episim_backup may read and write.
	archiveDirs []string
	backupDir   string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "episim")
	Version string // Server version

	// Store is the network library. When nil, the SQLite store at
	// Defaults.Store.Path (or the default path) is opened and owned by
	// the server.
	Store store.NetworkStore

	// Defaults supplies run parameters the client omits. Nil uses config.Default().
	Defaults *config.EpisimConfig

	// AuditDir receives audit.jsonl. Empty means the episim home; "-" disables auditing.
	AuditDir string

	// ArchiveDirs overrides the directories episim_backup may use.
	ArchiveDirs []string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with episim tools.
func NewServer(cfg *Config) (*Server, error) {
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	netStore := cfg.Store
	if netStore == nil {
		path := defaults.Store.Path
		if path == "" {
			var err error
			if path, err = store.DefaultPath(); err != nil {
				return nil, err
			}
		}
		sqliteStore, err := store.NewSQLiteNetworkStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open network store: %w", err)
		}
		netStore = sqliteStore
	}

	backupDir, err := pathutil.BackupDir()
	if err != nil {
		netStore.Close()
		return nil, err
	}
	archiveDirs := cfg.ArchiveDirs
	if len(archiveDirs) == 0 {
		if archiveDirs, err = pathutil.AllowedArchiveDirs(); err != nil {
			netStore.Close()
			return nil, err
		}
	} else {
		backupDir = archiveDirs[0]
	}

	var audit *AuditLogger
	if cfg.AuditDir != "-" {
		dir := cfg.AuditDir
		if dir == "" {
			if dir, err = pathutil.HomeDir(); err != nil {
				netStore.Close()
				return nil, err
			}
		}
		audit, err = NewAuditLogger(dir)
		if err != nil {
			// Auditing is best effort; the server still runs.
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        netStore,
		defaults:     defaults,
		runner:       simulation.NewRunner(simulation.WithParallelism(defaults.Ensemble.Parallelism), simulation.WithLogger(logger)),
		logger:       logger,
		audit:        audit,
		toolLimiters: ratelimit.NewToolLimiters(),
		archiveDirs:  archiveDirs,
		backupDir:    backupDir,
	}

	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until the client disconnects, the context is
// cancelled or the process is interrupted.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	defer stopSignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close closes the store and audit log.
func (s *Server) Close() error {
	err := s.store.Close()
	if aerr := s.audit.Close(); aerr != nil && err == nil {
		err = aerr
	}
	return err
}
