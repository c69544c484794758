package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/sanitize"
)

type memoryEntry struct {
	record Record
	edges  []network.Edge
}

// InMemoryNetworkStore implements NetworkStore for testing and MCP sessions.
type InMemoryNetworkStore struct {
	mu       sync.RWMutex
	networks map[string]memoryEntry
}

// NewInMemoryNetworkStore creates a new in-memory store.
func NewInMemoryNetworkStore() *InMemoryNetworkStore {
	return &InMemoryNetworkStore{
		networks: make(map[string]memoryEntry),
	}
}

// SaveNetwork stores a copy of the network's topology.
func (s *InMemoryNetworkStore) SaveNetwork(ctx context.Context, name string, net *network.Network) (Record, error) {
	name, err := validateName(name)
	if err != nil {
		return Record{}, err
	}
	if net == nil {
		return Record{}, fmt.Errorf("%w: network is nil", network.ErrInvalidArgument)
	}

	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		Nodes:     net.NodeCount(),
		Edges:     net.EdgeCount(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.networks[name] = memoryEntry{record: rec, edges: net.Edges()}
	return rec, nil
}

// LoadNetwork rebuilds a stored network.
func (s *InMemoryNetworkStore) LoadNetwork(ctx context.Context, name string) (*network.Network, error) {
	name = sanitize.SanitizeName(name)
	s.mu.RLock()
	entry, ok := s.networks[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
	}
	return rebuild(entry.record.Nodes, entry.edges)
}

// ListNetworks returns all stored networks ordered by name.
func (s *InMemoryNetworkStore) ListNetworks(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Record, 0, len(s.networks))
	for _, entry := range s.networks {
		results = append(results, entry.record)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results, nil
}

// DeleteNetwork removes a stored network.
func (s *InMemoryNetworkStore) DeleteNetwork(ctx context.Context, name string) error {
	name = sanitize.SanitizeName(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.networks[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
	}
	delete(s.networks, name)
	return nil
}

// Close is a no-op for in-memory storage.
func (s *InMemoryNetworkStore) Close() error {
	return nil
}
