// Package store defines the NetworkStore interface for saving and loading
// named contact networks. Only topologies are stored; simulation outcomes
// stay in memory.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/sanitize"
)

// ErrNetworkNotFound is returned when a named network does not exist.
var ErrNetworkNotFound = errors.New("store: network not found")

// Record describes a stored network.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
}

// NetworkStore defines the interface for persisting named networks.
// Node states are not stored: a loaded network starts all Susceptible.
type NetworkStore interface {
	// SaveNetwork stores net under name, replacing any network of that name.
	SaveNetwork(ctx context.Context, name string, net *network.Network) (Record, error)

	// LoadNetwork rebuilds the named network with its original edge order.
	LoadNetwork(ctx context.Context, name string) (*network.Network, error)

	// ListNetworks returns all stored networks ordered by name.
	ListNetworks(ctx context.Context) ([]Record, error)

	// DeleteNetwork removes the named network.
	DeleteNetwork(ctx context.Context, name string) error

	Close() error
}

// validateName sanitizes name and rejects names with nothing usable left.
func validateName(name string) (string, error) {
	clean := sanitize.SanitizeName(name)
	if clean == "" {
		return "", fmt.Errorf("%w: invalid network name %q", network.ErrInvalidArgument, name)
	}
	return clean, nil
}

// rebuild replays edges in order onto a fresh network.
func rebuild(nodes int, edges []network.Edge) (*network.Network, error) {
	net, err := network.New(nodes)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if err := net.AddEdge(e.A, e.B); err != nil {
			return nil, fmt.Errorf("stored edge: %w", err)
		}
	}
	return net, nil
}
