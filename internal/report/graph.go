package report

import (
	"fmt"
	"strings"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
)

// stateColors maps states to DOT fill colors.
var stateColors = map[network.State]string{
	network.Susceptible: "lightsteelblue",
	network.Infected:    "tomato",
}

// RenderDOT produces a Graphviz DOT representation of the network. Nodes are
// filled by state; multi-edges are rendered once per AddEdge call.
func RenderDOT(g *network.Network) string {
	var b strings.Builder
	b.WriteString("graph episim {\n")
	b.WriteString("  layout=neato;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n\n")

	for n, s := range g.States() {
		color := stateColors[s]
		if color == "" {
			color = "lightgray"
		}
		b.WriteString(fmt.Sprintf("  %d [label=\"%d\\n%s\", fillcolor=%q];\n", n, n, s, color))
	}
	b.WriteString("\n")

	for _, e := range g.Edges() {
		b.WriteString(fmt.Sprintf("  %d -- %d;\n", e.A, e.B))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-ready representation with nodes and edges arrays.
func RenderJSON(g *network.Network) map[string]interface{} {
	states := g.States()
	nodes := make([]map[string]interface{}, 0, len(states))
	for n, s := range states {
		nbrs, _ := g.Neighbors(n)
		nodes = append(nodes, map[string]interface{}{
			"id":        n,
			"state":     s.String(),
			"neighbors": nbrs,
		})
	}

	return map[string]interface{}{
		"nodes":          nodes,
		"edges":          g.Edges(),
		"node_count":     g.NodeCount(),
		"edge_count":     g.EdgeCount(),
		"infected_count": g.InfectedCount(),
	}
}

// RenderRunJSON combines the final network with the run bookkeeping.
func RenderRunJSON(g *network.Network, res spreading.Result) map[string]interface{} {
	out := RenderJSON(g)
	out["run"] = res
	return out
}
