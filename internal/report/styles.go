package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
)

var (
	colorSusceptible = lipgloss.Color("#64748B")
	colorInfected    = lipgloss.Color("#FF0055")
	colorHeader      = lipgloss.Color("#874BFD")

	susceptibleStyle = lipgloss.NewStyle().Foreground(colorSusceptible)
	infectedStyle    = lipgloss.NewStyle().Foreground(colorInfected).Bold(true)
	headerStyle      = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
)

// StyledLabel renders a state with terminal colours. Colour is dropped
// automatically when the output is not a terminal.
func StyledLabel(s network.State) string {
	switch s {
	case network.Infected:
		return infectedStyle.Render(s.String())
	default:
		return susceptibleStyle.Render(s.String())
	}
}

// Printer writes network blocks with a chosen labeler.
type Printer struct {
	w     io.Writer
	label Labeler
	color bool
}

// NewPrinter returns a Printer writing to w. With color set, states and the
// step header are styled with lipgloss.
func NewPrinter(w io.Writer, color bool) *Printer {
	p := &Printer{w: w, label: PlainLabel, color: color}
	if color {
		p.label = StyledLabel
	}
	return p
}

// Network writes the network block.
func (p *Printer) Network(g *network.Network) error {
	return writeNetwork(p.w, g, p.label)
}

// Step writes one verbose step block.
func (p *Printer) Step(step int, g *network.Network) error {
	if p.color {
		if _, err := io.WriteString(p.w, headerStyle.Render("step")+" "); err != nil {
			return err
		}
	}
	return writeStep(p.w, step, g, p.label)
}

// Observer adapts the printer into a per-step observer for the engine.
func (p *Printer) Observer() spreading.StepFunc {
	return p.Step
}
