package mcp

import (
	"time"

	"github.com/nvandessel/episim/internal/store"
)

// NetworkSelector chooses the contact network for a run: a stored network
// by name, or a generated topology.
type NetworkSelector struct {
	Network      string  `json:"network,omitempty" jsonschema:"Name of a stored network. Overrides topology when set."`
	Topology     string  `json:"topology,omitempty" jsonschema:"Generator to use when no stored network is named: small (default) or random"`
	Nodes        int     `json:"nodes,omitempty" jsonschema:"Node count for random topologies"`
	P            float64 `json:"p,omitempty" jsonschema:"Ordered-pair edge probability for random topologies"`
	TopologySeed uint64  `json:"topology_seed,omitempty" jsonschema:"Seed for the topology generator. Zero reuses seed."`
}

// RunParams are the SI parameters shared by simulate and ensemble.
type RunParams struct {
	Steps   *int     `json:"steps,omitempty" jsonschema:"Number of time steps (default from config, normally 10)"`
	Beta    *float64 `json:"beta,omitempty" jsonschema:"Transmission probability per contact and step in [0, 1] (default 0.5)"`
	Seed    *uint64  `json:"seed,omitempty" jsonschema:"Random seed (default from config, normally 57)"`
	Initial []int    `json:"initial,omitempty" jsonschema:"Initially infected node indices (default from config, normally [2, 8])"`
}

// SimulateInput defines the input for the episim_simulate tool.
type SimulateInput struct {
	NetworkSelector
	RunParams
	IncludeSteps bool `json:"include_steps,omitempty" jsonschema:"Include per-step node states in the output"`
}

// StepSnapshot is the network state at the start of one step.
type StepSnapshot struct {
	Step   int      `json:"step"`
	States []string `json:"states"`
}

// SimulateOutput defines the output for the episim_simulate tool.
type SimulateOutput struct {
	Network         string         `json:"network" jsonschema:"Stored network name or generated topology"`
	Nodes           int            `json:"nodes" jsonschema:"Number of nodes"`
	Edges           int            `json:"edges" jsonschema:"Number of undirected edges"`
	Seed            uint64         `json:"seed" jsonschema:"Seed used for the run"`
	Steps           int            `json:"steps" jsonschema:"Time steps executed"`
	InitialInfected int            `json:"initial_infected" jsonschema:"Distinct nodes infected before step 0"`
	FinalInfected   int            `json:"final_infected" jsonschema:"Infected nodes at the end of the run"`
	Curve           []int          `json:"curve" jsonschema:"Infected count after each step"`
	NewlyInfected   []int          `json:"newly_infected" jsonschema:"Nodes infected during each step"`
	InfectionTime   []int          `json:"infection_time" jsonschema:"Step at which each node was infected, -1 if never or initially infected"`
	FinalStates     []string       `json:"final_states" jsonschema:"Final state of each node (S or I)"`
	Trials          int            `json:"trials" jsonschema:"Random draws consumed"`
	StepStates      []StepSnapshot `json:"step_states,omitempty" jsonschema:"Node states at the start of each step"`
	Summary         string         `json:"summary" jsonschema:"One-line summary of the run"`
}

// EnsembleInput defines the input for the episim_ensemble tool.
type EnsembleInput struct {
	NetworkSelector
	RunParams
	Replicas int `json:"replicas,omitempty" jsonschema:"Number of independent replicas (default from config, normally 20)"`
}

// EnsembleOutput defines the output for the episim_ensemble tool.
type EnsembleOutput struct {
	Network        string    `json:"network" jsonschema:"Stored network name or generated topology"`
	Nodes          int       `json:"nodes" jsonschema:"Number of nodes"`
	Replicas       int       `json:"replicas" jsonschema:"Replicas executed"`
	BaseSeed       uint64    `json:"base_seed" jsonschema:"Seed of replica 0; replica i uses base_seed+i"`
	MeanFinal      float64   `json:"mean_final" jsonschema:"Mean final infected count"`
	MinFinal       int       `json:"min_final" jsonschema:"Smallest final infected count"`
	MaxFinal       int       `json:"max_final" jsonschema:"Largest final infected count"`
	FinalCounts    []int     `json:"final_counts" jsonschema:"Final infected count per replica"`
	MeanCurve      []float64 `json:"mean_curve" jsonschema:"Mean infected count after each step"`
	NodeAttackRate []float64 `json:"node_attack_rate" jsonschema:"Fraction of replicas in which each node ended infected"`
}

// NetworkInput defines the input for the episim_network tool.
type NetworkInput struct {
	Action string `json:"action" jsonschema:"One of generate, show or delete"`
	Name   string `json:"name,omitempty" jsonschema:"Network name. Required for generate and delete."`
	NetworkSelector
	Seed   uint64 `json:"seed,omitempty" jsonschema:"Seed for generate when topology_seed is zero"`
	Format string `json:"format,omitempty" jsonschema:"Rendering for show: json (default) or dot"`
}

// NetworkOutput defines the output for the episim_network tool.
type NetworkOutput struct {
	Action  string `json:"action"`
	Name    string `json:"name,omitempty"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Format  string `json:"format,omitempty"`
	Graph   any    `json:"graph,omitempty" jsonschema:"DOT text or JSON node and edge lists"`
	Message string `json:"message"`
}

// ListNetworksInput defines the input for the episim_list_networks tool.
type ListNetworksInput struct{}

// NetworkSummary describes one stored network.
type NetworkSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
}

// ListNetworksOutput defines the output for the episim_list_networks tool.
type ListNetworksOutput struct {
	Networks []NetworkSummary `json:"networks"`
	Count    int              `json:"count"`
}

// BackupInput defines the input for the episim_backup tool.
type BackupInput struct {
	Action string   `json:"action" jsonschema:"backup (default) or restore"`
	Path   string   `json:"path,omitempty" jsonschema:"Archive path. Must be inside the backup directory or the working directory. Defaults to a timestamped file in the backup directory for backup."`
	Names  []string `json:"names,omitempty" jsonschema:"Networks to archive. Empty archives all."`
	Mode   string   `json:"mode,omitempty" jsonschema:"Restore mode: merge (default, keeps existing) or replace"`
}

// BackupOutput defines the output for the episim_backup tool.
type BackupOutput struct {
	Action   string   `json:"action"`
	Path     string   `json:"path"`
	Networks int      `json:"networks"`
	Edges    int      `json:"edges,omitempty"`
	Restored []string `json:"restored,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
	Message  string   `json:"message"`
}

func summarize(r store.Record) NetworkSummary {
	return NetworkSummary{
		ID:        r.ID,
		Name:      r.Name,
		Nodes:     r.Nodes,
		Edges:     r.Edges,
		CreatedAt: r.CreatedAt,
	}
}
