// Package backup archives the network library to a file and restores it.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/pathutil"
	"github.com/nvandessel/episim/internal/store"
)

// ErrChecksumMismatch is returned when a V2 payload does not match its header.
var ErrChecksumMismatch = errors.New("backup: checksum mismatch")

// Archive is the payload of an archive file.
type Archive struct {
	Version   int               `json:"version"`
	CreatedAt string            `json:"created_at"`
	Networks  []ArchivedNetwork `json:"networks"`
}

// ArchivedNetwork is one stored network, edges in insertion order.
type ArchivedNetwork struct {
	Name  string         `json:"name"`
	Nodes int            `json:"nodes"`
	Edges []network.Edge `json:"edges"`
}

// EdgeCount returns the total number of edges across all networks.
func (a *Archive) EdgeCount() int {
	total := 0
	for _, n := range a.Networks {
		total += len(n.Edges)
	}
	return total
}

// DefaultBackupDir returns the default archive directory.
func DefaultBackupDir() (string, error) {
	return pathutil.BackupDir()
}

// Snapshot collects the named networks, or every stored network when no
// names are given.
func Snapshot(ctx context.Context, s store.NetworkStore, names ...string) (*Archive, error) {
	if len(names) == 0 {
		recs, err := s.ListNetworks(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list networks: %w", err)
		}
		for _, r := range recs {
			names = append(names, r.Name)
		}
	}

	a := &Archive{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Networks:  make([]ArchivedNetwork, 0, len(names)),
	}
	for _, name := range names {
		g, err := s.LoadNetwork(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load network %s: %w", name, err)
		}
		a.Networks = append(a.Networks, ArchivedNetwork{
			Name:  name,
			Nodes: g.NodeCount(),
			Edges: g.Edges(),
		})
	}
	return a, nil
}

// Backup writes a V2 archive of the store to outputPath.
func Backup(ctx context.Context, s store.NetworkStore, outputPath string, names ...string) (*Archive, error) {
	a, err := Snapshot(ctx, s, names...)
	if err != nil {
		return nil, err
	}
	if err := WriteV2(outputPath, a); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	a.Version = FormatV2
	return a, nil
}

// RestoreMode controls how restore handles existing networks.
type RestoreMode string

const (
	// RestoreMerge skips networks whose name already exists (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace overwrites networks with the same name.
	RestoreReplace RestoreMode = "replace"
)

// ParseRestoreMode parses a mode name; empty means merge.
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch RestoreMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RestoreMerge:
		return RestoreMerge, nil
	case RestoreReplace:
		return RestoreReplace, nil
	default:
		return "", fmt.Errorf("%w: unknown restore mode %q (use merge or replace)", network.ErrInvalidArgument, s)
	}
}

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	Restored []string `json:"restored"`
	Skipped  []string `json:"skipped"`
}

// Restore imports networks from an archive in either format.
// Every archived network is rebuilt and validated before anything is saved.
func Restore(ctx context.Context, s store.NetworkStore, inputPath string, mode RestoreMode) (*RestoreResult, error) {
	a, err := Read(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	nets := make([]*network.Network, len(a.Networks))
	for i, an := range a.Networks {
		if an.Nodes > network.MaxNodes {
			return nil, fmt.Errorf("archived network %s: %w: %d nodes exceeds limit %d", an.Name, network.ErrInvalidArgument, an.Nodes, network.MaxNodes)
		}
		g, err := network.New(an.Nodes)
		if err != nil {
			return nil, fmt.Errorf("archived network %s: %w", an.Name, err)
		}
		for _, e := range an.Edges {
			if err := g.AddEdge(e.A, e.B); err != nil {
				return nil, fmt.Errorf("archived network %s: %w", an.Name, err)
			}
		}
		nets[i] = g
	}

	existing := make(map[string]bool)
	if mode != RestoreReplace {
		recs, err := s.ListNetworks(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list networks: %w", err)
		}
		for _, r := range recs {
			existing[r.Name] = true
		}
	}

	result := &RestoreResult{Restored: []string{}, Skipped: []string{}}
	for i, an := range a.Networks {
		if existing[an.Name] {
			result.Skipped = append(result.Skipped, an.Name)
			continue
		}
		rec, err := s.SaveNetwork(ctx, an.Name, nets[i])
		if err != nil {
			return nil, fmt.Errorf("failed to restore network %s: %w", an.Name, err)
		}
		result.Restored = append(result.Restored, rec.Name)
	}
	return result, nil
}

// GenerateBackupPath creates a timestamped archive filename in the given directory.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("episim-networks-%s.epz", ts))
}

// RotateBackups keeps only the most recent keepN archives in dir.
func RotateBackups(dir string, keepN int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	keepN = max(keepN, 0)

	var archives []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "episim-networks-") && filepath.Ext(e.Name()) == ".epz" {
			archives = append(archives, e.Name())
		}
	}

	// Newest first; the timestamp is in the name.
	sort.Sort(sort.Reverse(sort.StringSlice(archives)))

	if len(archives) <= keepN {
		return nil
	}
	for _, name := range archives[keepN:] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", name, err)
		}
	}
	return nil
}
