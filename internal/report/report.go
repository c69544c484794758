// Package report renders networks and run results for humans and agents.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
)

// Format specifies the output format for network rendering.
type Format string

const (
	FormatText Format = "text"
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// Labeler renders a node state. The plain labeler prints S or I; Styled
// wraps them in terminal colours.
type Labeler func(network.State) string

// PlainLabel renders a state as its one-letter label.
func PlainLabel(s network.State) string {
	return s.String()
}

// NodeLine renders one node as "Node n: (S, [a,b,c])".
func NodeLine(g *network.Network, n int) (string, error) {
	return nodeLine(g, n, PlainLabel)
}

func nodeLine(g *network.Network, n int, label Labeler) (string, error) {
	state, err := g.State(n)
	if err != nil {
		return "", err
	}
	if !state.Valid() {
		return "", fmt.Errorf("node %d: %w: %d", n, network.ErrInvalidState, int(state))
	}
	nbrs, err := g.Neighbors(n)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(nbrs))
	for i, m := range nbrs {
		parts[i] = strconv.Itoa(m)
	}
	return fmt.Sprintf("Node %d: (%s, [%s])", n, label(state), strings.Join(parts, ",")), nil
}

// WriteNetwork writes a "Network info:" header followed by one NodeLine per
// node in index order.
func WriteNetwork(w io.Writer, g *network.Network) error {
	return writeNetwork(w, g, PlainLabel)
}

func writeNetwork(w io.Writer, g *network.Network, label Labeler) error {
	if _, err := fmt.Fprintln(w, "Network info:"); err != nil {
		return err
	}
	for n := 0; n < g.NodeCount(); n++ {
		line, err := nodeLine(g, n, label)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteStep writes the "t=<step>" marker followed by the network block.
func WriteStep(w io.Writer, step int, g *network.Network) error {
	return writeStep(w, step, g, PlainLabel)
}

func writeStep(w io.Writer, step int, g *network.Network, label Labeler) error {
	if _, err := fmt.Fprintf(w, "t=%d\n", step); err != nil {
		return err
	}
	return writeNetwork(w, g, label)
}

// StepPrinter adapts WriteStep into a per-step observer for the engine.
func StepPrinter(w io.Writer) spreading.StepFunc {
	return func(step int, g *network.Network) error {
		return WriteStep(w, step, g)
	}
}

// Summary returns a one-line description of a finished run.
func Summary(g *network.Network, res spreading.Result) string {
	n := g.NodeCount()
	pct := 0.0
	if n > 0 {
		pct = 100 * float64(res.FinalInfected) / float64(n)
	}
	return fmt.Sprintf("steps=%d infected=%d/%d (%.1f%%) initial=%d new=%d trials=%d",
		res.Steps, res.FinalInfected, n, pct, res.InitialInfected,
		res.FinalInfected-res.InitialInfected, res.Trials)
}
