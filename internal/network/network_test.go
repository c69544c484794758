package network

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// newNetwork is a test helper that creates a network and fails the test on error.
func newNetwork(t *testing.T, n int) *Network {
	t.Helper()
	g, err := New(n)
	if err != nil {
		t.Fatalf("New(%d): %v", n, err)
	}
	return g
}

// addEdge is a test helper that adds an edge and fails the test on error.
func addEdge(t *testing.T, g *Network, a, b int) {
	t.Helper()
	if err := g.AddEdge(a, b); err != nil {
		t.Fatalf("AddEdge(%d, %d): %v", a, b, err)
	}
}

func TestNew(t *testing.T) {
	g := newNetwork(t, 5)

	if g.NodeCount() != 5 {
		t.Errorf("NodeCount() = %d, want 5", g.NodeCount())
	}
	for i := 0; i < 5; i++ {
		s, err := g.State(i)
		if err != nil {
			t.Fatalf("State(%d): %v", i, err)
		}
		if s != Susceptible {
			t.Errorf("node %d state = %v, want S", i, s)
		}
		nbrs, _ := g.Neighbors(i)
		if len(nbrs) != 0 {
			t.Errorf("node %d has %d neighbors, want 0", i, len(nbrs))
		}
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want 0", g.EdgeCount())
	}
}

func TestNew_InvalidCount(t *testing.T) {
	for _, n := range []int{0, -1, -100, MaxNodes + 1, 1 << 60} {
		g, err := New(n)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("New(%d) error = %v, want ErrInvalidArgument", n, err)
		}
		if g != nil {
			t.Errorf("New(%d) returned non-nil network", n)
		}
	}
}

func TestNew_MaxNodes(t *testing.T) {
	g, err := New(MaxNodes)
	if err != nil {
		t.Fatalf("New(MaxNodes) error = %v", err)
	}
	if g.NodeCount() != MaxNodes {
		t.Errorf("NodeCount() = %d, want %d", g.NodeCount(), MaxNodes)
	}
}

func TestAddEdge_Symmetric(t *testing.T) {
	g := newNetwork(t, 4)
	addEdge(t, g, 0, 1)
	addEdge(t, g, 2, 0)
	addEdge(t, g, 0, 3)

	got, _ := g.Neighbors(0)
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("Neighbors(0) mismatch (-want +got):\n%s", diff)
	}
	for _, n := range []int{1, 2, 3} {
		got, _ := g.Neighbors(n)
		if diff := cmp.Diff([]int{0}, got); diff != "" {
			t.Errorf("Neighbors(%d) mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestAddEdge_MultiEdgeMultiplicity(t *testing.T) {
	g := newNetwork(t, 3)
	addEdge(t, g, 0, 1)
	addEdge(t, g, 1, 0)
	addEdge(t, g, 0, 1)
	addEdge(t, g, 1, 2)

	count := func(list []int, v int) int {
		c := 0
		for _, x := range list {
			if x == v {
				c++
			}
		}
		return c
	}

	n0, _ := g.Neighbors(0)
	n1, _ := g.Neighbors(1)
	if count(n0, 1) != 3 {
		t.Errorf("0 lists 1 %d times, want 3", count(n0, 1))
	}
	if count(n1, 0) != 3 {
		t.Errorf("1 lists 0 %d times, want 3", count(n1, 0))
	}
	if g.EdgeCount() != 4 {
		t.Errorf("EdgeCount() = %d, want 4", g.EdgeCount())
	}
	if d, _ := g.Degree(1); d != 4 {
		t.Errorf("Degree(1) = %d, want 4", d)
	}
}

func TestAddEdge_OutOfRangeLeavesNetworkUntouched(t *testing.T) {
	g := newNetwork(t, 3)

	tests := []struct {
		name string
		a, b int
	}{
		{"first negative", -1, 0},
		{"second too large", 0, 3},
		{"both invalid", 5, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddEdge(tt.a, tt.b)
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("AddEdge(%d, %d) error = %v, want ErrOutOfRange", tt.a, tt.b, err)
			}
		})
	}

	for i := 0; i < 3; i++ {
		if d, _ := g.Degree(i); d != 0 {
			t.Errorf("Degree(%d) = %d after failed adds, want 0", i, d)
		}
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d after failed adds, want 0", g.EdgeCount())
	}
}

func TestStateAccessors(t *testing.T) {
	g := newNetwork(t, 2)

	if err := g.SetState(1, Infected); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if s, _ := g.State(1); s != Infected {
		t.Errorf("State(1) = %v, want I", s)
	}
	if g.InfectedCount() != 1 {
		t.Errorf("InfectedCount() = %d, want 1", g.InfectedCount())
	}

	if _, err := g.State(2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("State(2) error = %v, want ErrOutOfRange", err)
	}
	if err := g.SetState(-1, Infected); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetState(-1) error = %v, want ErrOutOfRange", err)
	}
	if err := g.SetState(0, State(7)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SetState(0, 7) error = %v, want ErrInvalidState", err)
	}
	if s, _ := g.State(0); s != Susceptible {
		t.Errorf("State(0) = %v after rejected SetState, want S", s)
	}
}

func TestNeighbors_ReturnsCopy(t *testing.T) {
	g := newNetwork(t, 2)
	addEdge(t, g, 0, 1)

	nbrs, _ := g.Neighbors(0)
	nbrs[0] = 99

	again, _ := g.Neighbors(0)
	if again[0] != 1 {
		t.Errorf("Neighbors(0)[0] = %d after caller mutation, want 1", again[0])
	}
}

func TestVisitNeighbors(t *testing.T) {
	g := newNetwork(t, 3)
	addEdge(t, g, 1, 2)
	addEdge(t, g, 1, 0)

	var seen []int
	if err := g.VisitNeighbors(1, func(m int) { seen = append(seen, m) }); err != nil {
		t.Fatalf("VisitNeighbors: %v", err)
	}
	if diff := cmp.Diff([]int{2, 0}, seen); diff != "" {
		t.Errorf("visit order mismatch (-want +got):\n%s", diff)
	}
	if err := g.VisitNeighbors(3, func(int) {}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("VisitNeighbors(3) error = %v, want ErrOutOfRange", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := newNetwork(t, 3)
	addEdge(t, g, 0, 1)
	_ = g.SetState(0, Infected)

	c := g.Clone()
	addEdge(t, c, 1, 2)
	_ = c.SetState(2, Infected)

	if g.EdgeCount() != 1 {
		t.Errorf("original EdgeCount() = %d, want 1", g.EdgeCount())
	}
	if s, _ := g.State(2); s != Susceptible {
		t.Errorf("original State(2) = %v, want S", s)
	}
	if s, _ := c.State(0); s != Infected {
		t.Errorf("clone State(0) = %v, want I", s)
	}
	if diff := cmp.Diff([]Edge{{0, 1}, {1, 2}}, c.Edges()); diff != "" {
		t.Errorf("clone edges mismatch (-want +got):\n%s", diff)
	}
}

func TestReset(t *testing.T) {
	g := newNetwork(t, 3)
	addEdge(t, g, 0, 2)
	_ = g.SetState(0, Infected)
	_ = g.SetState(2, Infected)

	g.Reset()

	if g.InfectedCount() != 0 {
		t.Errorf("InfectedCount() = %d after Reset, want 0", g.InfectedCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d after Reset, want 1", g.EdgeCount())
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		input   string
		want    State
		wantErr bool
	}{
		{"S", Susceptible, false},
		{"i", Infected, false},
		{" I ", Infected, false},
		{"R", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseState(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidState) {
					t.Errorf("ParseState(%q) error = %v, want ErrInvalidState", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseState(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseState(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if Susceptible.String() != "S" || Infected.String() != "I" || State(9).String() != "?" {
		t.Errorf("unexpected labels: %s %s %s", Susceptible, Infected, State(9))
	}
}
