package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
)

// buildNetwork is a test helper that creates a network with the given edges.
func buildNetwork(t *testing.T, n int, edges [][2]int) *network.Network {
	t.Helper()
	g, err := network.New(n)
	if err != nil {
		t.Fatalf("network.New(%d): %v", n, err)
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestNodeLine(t *testing.T) {
	g := buildNetwork(t, 3, [][2]int{{0, 1}, {0, 2}})
	_ = g.SetState(2, network.Infected)

	tests := []struct {
		node int
		want string
	}{
		{0, "Node 0: (S, [1,2])"},
		{1, "Node 1: (S, [0])"},
		{2, "Node 2: (I, [0])"},
	}
	for _, tt := range tests {
		got, err := NodeLine(g, tt.node)
		if err != nil {
			t.Fatalf("NodeLine(%d): %v", tt.node, err)
		}
		if got != tt.want {
			t.Errorf("NodeLine(%d) = %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestNodeLine_IsolatedAndOutOfRange(t *testing.T) {
	g := buildNetwork(t, 2, nil)

	got, err := NodeLine(g, 1)
	if err != nil {
		t.Fatalf("NodeLine: %v", err)
	}
	if got != "Node 1: (S, [])" {
		t.Errorf("NodeLine(1) = %q, want empty neighbor list", got)
	}

	if _, err := NodeLine(g, 5); err == nil {
		t.Error("expected error for out-of-range node")
	}
}

func TestWriteNetwork(t *testing.T) {
	g := buildNetwork(t, 3, [][2]int{{0, 1}, {1, 2}})
	_ = g.SetState(1, network.Infected)

	var buf bytes.Buffer
	if err := WriteNetwork(&buf, g); err != nil {
		t.Fatalf("WriteNetwork: %v", err)
	}

	want := "Network info:\n" +
		"Node 0: (S, [1])\n" +
		"Node 1: (I, [0,2])\n" +
		"Node 2: (S, [1])\n"
	if buf.String() != want {
		t.Errorf("WriteNetwork output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestStepPrinter_VerboseRun(t *testing.T) {
	g := buildNetwork(t, 2, [][2]int{{0, 1}})

	var buf bytes.Buffer
	_, err := spreading.SimulateSI(g, 2, []int{0}, 1, spreading.NewSource(1), StepPrinter(&buf))
	if err != nil {
		t.Fatalf("SimulateSI: %v", err)
	}

	want := "t=0\nNetwork info:\nNode 0: (I, [1])\nNode 1: (S, [0])\n" +
		"t=1\nNetwork info:\nNode 0: (I, [1])\nNode 1: (I, [0])\n"
	if buf.String() != want {
		t.Errorf("verbose output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrinter_PlainMatchesWriteNetwork(t *testing.T) {
	g := buildNetwork(t, 3, [][2]int{{2, 0}})

	var plain, viaPrinter bytes.Buffer
	if err := WriteNetwork(&plain, g); err != nil {
		t.Fatalf("WriteNetwork: %v", err)
	}
	if err := NewPrinter(&viaPrinter, false).Network(g); err != nil {
		t.Fatalf("Printer.Network: %v", err)
	}
	if plain.String() != viaPrinter.String() {
		t.Errorf("printer output %q differs from %q", viaPrinter.String(), plain.String())
	}
}

func TestPrinter_Colored(t *testing.T) {
	g := buildNetwork(t, 2, [][2]int{{0, 1}})
	_ = g.SetState(0, network.Infected)

	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	if err := p.Step(3, g); err != nil {
		t.Fatalf("Printer.Step: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"t=3", "Node 0: (", "I", "Node 1: (", "S", ", [0])"} {
		if !strings.Contains(out, want) {
			t.Errorf("colored output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDOT(t *testing.T) {
	g := buildNetwork(t, 3, [][2]int{{0, 1}, {1, 2}, {1, 2}})
	_ = g.SetState(1, network.Infected)

	dot := RenderDOT(g)

	if !strings.HasPrefix(dot, "graph episim {") {
		t.Error("expected undirected graph header")
	}
	if !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Error("expected closing brace")
	}
	if strings.Count(dot, "1 -- 2;") != 2 {
		t.Errorf("expected multi-edge rendered twice:\n%s", dot)
	}
	if !strings.Contains(dot, `1 [label="1\nI", fillcolor="tomato"]`) {
		t.Errorf("expected infected node styling:\n%s", dot)
	}
	if strings.Contains(dot, "->") {
		t.Error("undirected graph must not contain directed edges")
	}
}

func TestRenderJSON(t *testing.T) {
	g := buildNetwork(t, 3, [][2]int{{0, 2}})
	_ = g.SetState(2, network.Infected)

	data, err := json.Marshal(RenderJSON(g))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Nodes []struct {
			ID        int    `json:"id"`
			State     string `json:"state"`
			Neighbors []int  `json:"neighbors"`
		} `json:"nodes"`
		Edges         []network.Edge `json:"edges"`
		NodeCount     int            `json:"node_count"`
		EdgeCount     int            `json:"edge_count"`
		InfectedCount int            `json:"infected_count"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.NodeCount != 3 || decoded.EdgeCount != 1 || decoded.InfectedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/1/1", decoded.NodeCount, decoded.EdgeCount, decoded.InfectedCount)
	}
	if decoded.Nodes[2].State != "I" || len(decoded.Nodes[2].Neighbors) != 1 {
		t.Errorf("node 2 = %+v", decoded.Nodes[2])
	}
	if decoded.Edges[0] != (network.Edge{A: 0, B: 2}) {
		t.Errorf("edge = %+v, want 0-2", decoded.Edges[0])
	}
}

func TestSummary(t *testing.T) {
	g := buildNetwork(t, 4, [][2]int{{0, 1}, {1, 2}})
	eng := spreading.NewEngine(spreading.Config{Steps: 3, Beta: 1}, spreading.NewSource(1))
	res, err := eng.Simulate(context.Background(), g, []int{0}, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	got := Summary(g, res)
	want := "steps=3 infected=3/4 (75.0%) initial=1 new=2 trials=2"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
