package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/sanitize"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteNetworkStore implements NetworkStore using SQLite for persistence.
type SQLiteNetworkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteNetworkStore opens (or creates) the database at dbPath.
func NewSQLiteNetworkStore(dbPath string) (*SQLiteNetworkStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteNetworkStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteNetworkStore) Path() string {
	return s.dbPath
}

// SaveNetwork stores the network topology, replacing any network with the
// same name.
func (s *SQLiteNetworkStore) SaveNetwork(ctx context.Context, name string, net *network.Network) (Record, error) {
	name, err := validateName(name)
	if err != nil {
		return Record{}, err
	}
	if net == nil {
		return Record{}, fmt.Errorf("%w: network is nil", network.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		Nodes:     net.NodeCount(),
		Edges:     net.EdgeCount(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Edges cascade with the old row.
	if _, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE name = ?`, name); err != nil {
		return Record{}, fmt.Errorf("failed to replace network %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO networks (id, name, nodes, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Nodes, rec.CreatedAt.Format(time.RFC3339)); err != nil {
		return Record{}, fmt.Errorf("failed to insert network: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO network_edges (network_id, ordinal, a, b) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Record{}, fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range net.Edges() {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, e.A, e.B); err != nil {
			return Record{}, fmt.Errorf("failed to insert edge %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("failed to commit: %w", err)
	}
	return rec, nil
}

// LoadNetwork rebuilds the named network. Edges are replayed by ordinal so
// adjacency lists match the saved network exactly.
func (s *SQLiteNetworkStore) LoadNetwork(ctx context.Context, name string) (*network.Network, error) {
	name = sanitize.SanitizeName(name)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	var nodes int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nodes FROM networks WHERE name = ?`, name).Scan(&id, &nodes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query network: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a, b FROM network_edges WHERE network_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []network.Edge
	for rows.Next() {
		var e network.Edge
		if err := rows.Scan(&e.A, &e.B); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}

	return rebuild(nodes, edges)
}

// ListNetworks returns all stored networks ordered by name.
func (s *SQLiteNetworkStore) ListNetworks(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.name, n.nodes, n.created_at, COUNT(e.ordinal)
		FROM networks n
		LEFT JOIN network_edges e ON e.network_id = n.id
		GROUP BY n.id
		ORDER BY n.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query networks: %w", err)
	}
	defer rows.Close()

	results := []Record{}
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Nodes, &createdAt, &rec.Edges); err != nil {
			return nil, fmt.Errorf("failed to scan network: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", rec.Name, err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// DeleteNetwork removes the named network and its edges.
func (s *SQLiteNetworkStore) DeleteNetwork(ctx context.Context, name string) error {
	name = sanitize.SanitizeName(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM networks WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete network: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteNetworkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
