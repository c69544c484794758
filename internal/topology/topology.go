// Package topology builds contact networks: the fixed nine-node example
// graph and a random graph generator. Generators only populate a
// network.Network; they carry no simulation state.
package topology

import (
	"context"
	"fmt"
	"math"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
)

// Kind names a topology generator.
type Kind string

const (
	KindSmall  Kind = "small"
	KindRandom Kind = "random"
)

// SmallNodes is the node count of the fixed example graph.
const SmallNodes = 9

// smallEdges is the fixed example edge list, in insertion order.
var smallEdges = []network.Edge{
	{A: 0, B: 4},
	{A: 5, B: 4},
	{A: 6, B: 4},
	{A: 1, B: 4},
	{A: 1, B: 2},
	{A: 4, B: 3},
	{A: 3, B: 7},
	{A: 8, B: 7},
	{A: 8, B: 3},
}

// Spec selects and parameterises a generator.
type Spec struct {
	Kind  Kind    `json:"kind" yaml:"kind"`
	Nodes int     `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	P     float64 `json:"p,omitempty" yaml:"p,omitempty"`
}

// Validate checks that the spec names a known generator with usable parameters.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindSmall:
		return nil
	case KindRandom:
		if s.Nodes <= 0 {
			return fmt.Errorf("%w: random topology needs a positive node count, got %d", network.ErrInvalidArgument, s.Nodes)
		}
		if s.Nodes > network.MaxNodes {
			return fmt.Errorf("%w: random topology node count must be at most %d, got %d", network.ErrInvalidArgument, network.MaxNodes, s.Nodes)
		}
		return validateProbability(s.P)
	default:
		return fmt.Errorf("%w: unknown topology %q (use small or random)", network.ErrInvalidArgument, s.Kind)
	}
}

// Build creates the network described by spec. src is only consumed by
// random topologies and may be nil otherwise.
func Build(spec Spec, src spreading.Source) (*network.Network, error) {
	return BuildContext(context.Background(), spec, src)
}

// BuildContext is Build with cancellation of long random builds.
func BuildContext(ctx context.Context, spec Spec, src spreading.Source) (*network.Network, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindRandom:
		return RandomContext(ctx, spec.Nodes, spec.P, src)
	default:
		return Small(), nil
	}
}

// Small returns the fixed nine-node example graph.
func Small() *network.Network {
	g, err := network.New(SmallNodes)
	if err != nil {
		panic(err) // unreachable: SmallNodes is positive
	}
	for _, e := range smallEdges {
		if err := g.AddEdge(e.A, e.B); err != nil {
			panic(err) // unreachable: literal edges are in range
		}
	}
	return g
}

// Random builds an n-node graph by drawing one trial for every ordered pair
// (i, j) with i != j and adding edge i-j when the draw is below p.
//
// Both (i, j) and (j, i) are tried, so an unordered pair ends up connected
// with probability 1-(1-p)^2 rather than p, and may receive two parallel
// edges. This differs from the textbook G(n, p) model; see
// ExpectedEdgeProbability.
func Random(n int, p float64, src spreading.Source) (*network.Network, error) {
	return RandomContext(context.Background(), n, p, src)
}

// RandomContext is Random that checks ctx before each row of trials.
func RandomContext(ctx context.Context, n int, p float64, src spreading.Source) (*network.Network, error) {
	if err := validateProbability(p); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: random topology needs a source", network.ErrInvalidArgument)
	}
	g, err := network.New(n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("random topology interrupted at row %d: %w", i, err)
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if src.Float64() < p {
				if err := g.AddEdge(i, j); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

// ExpectedEdgeProbability is the probability that Random connects a given
// unordered pair at least once.
func ExpectedEdgeProbability(p float64) float64 {
	return 1 - (1-p)*(1-p)
}

// Distances returns the hop distance from the nearest source for every node,
// or -1 when unreachable. Out-of-range sources are ignored.
func Distances(g *network.Network, sources []int) []int {
	n := g.NodeCount()
	dist := make([]int, n)
	for i := range dist {
		dist[i] = -1
	}

	queue := make([]int, 0, n)
	for _, s := range sources {
		if s < 0 || s >= n || dist[s] == 0 {
			continue
		}
		dist[s] = 0
		queue = append(queue, s)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		_ = g.VisitNeighbors(cur, func(m int) {
			if dist[m] == -1 {
				dist[m] = dist[cur] + 1
				queue = append(queue, m)
			}
		})
	}
	return dist
}

func validateProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: edge probability must be in [0, 1], got %v", network.ErrInvalidArgument, p)
	}
	return nil
}
