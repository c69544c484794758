// Package network implements the undirected contact network used by the SI
// engine: a fixed set of integer-indexed nodes, an insertion-ordered adjacency
// list and one epidemiological state per node.
//
// A Network is not safe for concurrent use. Parallel experiments must Clone
// the network so every run owns its own copy.
package network

import "fmt"

// Edge is an undirected contact between two nodes, as passed to AddEdge.
type Edge struct {
	A int `json:"a"`
	B int `json:"b"`
}

// MaxNodes bounds the node count of any network. Generators draw one trial
// per ordered pair, so this also caps a random build at about 1e8 draws.
const MaxNodes = 10_000

// Network is an undirected multigraph over nodes [0, N).
type Network struct {
	n      int
	adj    [][]int
	states []State
	edges  []Edge
}

// New allocates a network of n Susceptible nodes with no edges.
func New(n int) (*Network, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: node count must be positive, got %d", ErrInvalidArgument, n)
	}
	if n > MaxNodes {
		return nil, fmt.Errorf("%w: node count must be at most %d, got %d", ErrInvalidArgument, MaxNodes, n)
	}
	return &Network{
		n:      n,
		adj:    make([][]int, n),
		states: make([]State, n),
		edges:  make([]Edge, 0),
	}, nil
}

// NodeCount returns N.
func (g *Network) NodeCount() int {
	return g.n
}

// AddEdge records an undirected edge between a and b. Both endpoints gain
// the other as a neighbor. Adding the same pair twice creates a multi-edge.
func (g *Network) AddEdge(a, b int) error {
	if err := g.check(a); err != nil {
		return fmt.Errorf("add edge %d-%d: %w", a, b, err)
	}
	if err := g.check(b); err != nil {
		return fmt.Errorf("add edge %d-%d: %w", a, b, err)
	}

	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
	g.edges = append(g.edges, Edge{A: a, B: b})
	return nil
}

// State returns the current state of node n.
func (g *Network) State(n int) (State, error) {
	if err := g.check(n); err != nil {
		return 0, err
	}
	return g.states[n], nil
}

// SetState sets the state of node n.
func (g *Network) SetState(n int, s State) error {
	if err := g.check(n); err != nil {
		return err
	}
	if !s.Valid() {
		return fmt.Errorf("%w: %d for node %d", ErrInvalidState, int(s), n)
	}
	g.states[n] = s
	return nil
}

// Neighbors returns a copy of node n's neighbor list in insertion order.
// Multi-edges appear once per AddEdge call.
func (g *Network) Neighbors(n int) ([]int, error) {
	if err := g.check(n); err != nil {
		return nil, err
	}
	out := make([]int, len(g.adj[n]))
	copy(out, g.adj[n])
	return out, nil
}

// Degree returns the length of node n's neighbor list.
func (g *Network) Degree(n int) (int, error) {
	if err := g.check(n); err != nil {
		return 0, err
	}
	return len(g.adj[n]), nil
}

// EdgeCount returns the number of AddEdge calls that succeeded.
func (g *Network) EdgeCount() int {
	return len(g.edges)
}

// Edges returns the recorded edges in insertion order.
func (g *Network) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// States returns a copy of the state vector.
func (g *Network) States() []State {
	out := make([]State, g.n)
	copy(out, g.states)
	return out
}

// InfectedCount returns the number of Infected nodes.
func (g *Network) InfectedCount() int {
	count := 0
	for _, s := range g.states {
		if s == Infected {
			count++
		}
	}
	return count
}

// Reset returns every node to Susceptible. Adjacency is untouched.
func (g *Network) Reset() {
	for i := range g.states {
		g.states[i] = Susceptible
	}
}

// Clone returns a deep copy sharing no mutable state with g.
func (g *Network) Clone() *Network {
	c := &Network{
		n:      g.n,
		adj:    make([][]int, g.n),
		states: g.States(),
		edges:  g.Edges(),
	}
	for i, nbrs := range g.adj {
		c.adj[i] = append([]int(nil), nbrs...)
	}
	return c
}

// VisitNeighbors calls fn for each neighbor of n in insertion order without
// copying the list. fn must not add edges.
func (g *Network) VisitNeighbors(n int, fn func(m int)) error {
	if err := g.check(n); err != nil {
		return err
	}
	for _, m := range g.adj[n] {
		fn(m)
	}
	return nil
}

func (g *Network) check(n int) error {
	if n < 0 || n >= g.n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, n, g.n)
	}
	return nil
}
