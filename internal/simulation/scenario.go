package simulation

import (
	"context"
	"fmt"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
	"github.com/nvandessel/episim/internal/topology"
)

// Scenario defines a complete ensemble experiment.
type Scenario struct {
	Name string `json:"name"`

	// Network, when non-nil, is used as the template for every replica and
	// Topology is ignored. It is never mutated.
	Network *network.Network `json:"-"`

	// Topology describes the network to generate when Network is nil.
	Topology topology.Spec `json:"topology"`

	// TopologySeed seeds the generator. Zero reuses Seed.
	TopologySeed uint64 `json:"topology_seed,omitempty"`

	Config  spreading.Config `json:"config"`
	Initial []int            `json:"initial"`

	// Seed is the base seed; replica i uses Seed+i.
	Seed     uint64 `json:"seed"`
	Replicas int    `json:"replicas"`
}

// DemoScenario is the classic nine-node run: seeds {2, 8}, beta 0.5,
// ten steps, seed 57.
func DemoScenario(replicas int) Scenario {
	return Scenario{
		Name:     "small-demo",
		Topology: topology.Spec{Kind: topology.KindSmall},
		Config:   spreading.DefaultConfig(),
		Initial:  []int{2, 8},
		Seed:     57,
		Replicas: replicas,
	}
}

// Validate checks the scenario before any replica runs.
func (s Scenario) Validate() error {
	if s.Replicas <= 0 {
		return fmt.Errorf("%w: replicas must be positive, got %d", network.ErrInvalidArgument, s.Replicas)
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}
	if s.Network == nil {
		if err := s.Topology.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BuildNetwork returns the template network shared by all replicas.
func (s Scenario) BuildNetwork(ctx context.Context) (*network.Network, error) {
	if s.Network != nil {
		return s.Network.Clone(), nil
	}
	seed := s.TopologySeed
	if seed == 0 {
		seed = s.Seed
	}
	return topology.BuildContext(ctx, s.Topology, spreading.NewSource(seed))
}

// ReplicaSeed returns the random seed used by replica i.
func (s Scenario) ReplicaSeed(i int) uint64 {
	return s.Seed + uint64(i)
}
