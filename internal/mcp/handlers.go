package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/episim/internal/backup"
	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/pathutil"
	"github.com/nvandessel/episim/internal/ratelimit"
	"github.com/nvandessel/episim/internal/report"
	"github.com/nvandessel/episim/internal/simulation"
	"github.com/nvandessel/episim/internal/spreading"
	"github.com/nvandessel/episim/internal/topology"
)

// MaxReplicas bounds a single episim_ensemble call.
const MaxReplicas = 1000

// registerTools registers all episim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "episim_simulate",
		Description: "Run one discrete-time SI epidemic on a stored or generated contact network and return the infection curve and final states",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "episim_ensemble",
		Description: "Run independent SI replicas with consecutive seeds and return mean curve, final-size range and per-node attack rates",
	}, s.handleEnsemble)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "episim_network",
		Description: "Generate and store a contact network, render a stored or generated network as JSON or DOT, or delete a stored network",
	}, s.handleNetwork)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "episim_list_networks",
		Description: "List stored contact networks",
	}, s.handleListNetworks)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "episim_backup",
		Description: "Archive stored networks to a file, or restore them from an archive (merge or replace)",
	}, s.handleBackup)
}

// runSettings resolves run parameters against the server defaults.
func (s *Server) runSettings(p RunParams) (spreading.Config, uint64, []int) {
	cfg := spreading.Config{
		Steps: s.defaults.Simulation.Steps,
		Beta:  s.defaults.Simulation.Beta,
	}
	if p.Steps != nil {
		cfg.Steps = *p.Steps
	}
	if p.Beta != nil {
		cfg.Beta = *p.Beta
	}
	seed := s.defaults.Simulation.Seed
	if p.Seed != nil {
		seed = *p.Seed
	}
	initial := s.defaults.Simulation.Initial
	if p.Initial != nil {
		initial = p.Initial
	}
	return cfg, seed, initial
}

// topologySpec resolves a generator request against the server defaults.
func (s *Server) topologySpec(sel NetworkSelector) topology.Spec {
	spec := topology.Spec{
		Kind:  topology.Kind(sel.Topology),
		Nodes: sel.Nodes,
		P:     sel.P,
	}
	if spec.Kind == "" {
		spec.Kind = topology.KindSmall
	}
	if spec.Kind == topology.KindRandom {
		if spec.Nodes == 0 {
			spec.Nodes = s.defaults.Topology.Nodes
		}
		if spec.P == 0 {
			spec.P = s.defaults.Topology.P
		}
	}
	return spec
}

// resolveNetwork loads the named network or generates one. fallbackSeed
// seeds the generator when the selector carries no topology seed.
func (s *Server) resolveNetwork(ctx context.Context, sel NetworkSelector, fallbackSeed uint64) (*network.Network, string, error) {
	if sel.Network != "" {
		net, err := s.store.LoadNetwork(ctx, sel.Network)
		if err != nil {
			return nil, "", err
		}
		return net, sel.Network, nil
	}

	spec := s.topologySpec(sel)
	seed := sel.TopologySeed
	if seed == 0 {
		seed = fallbackSeed
	}
	net, err := topology.BuildContext(ctx, spec, spreading.NewSource(seed))
	if err != nil {
		return nil, "", err
	}
	return net, string(spec.Kind), nil
}

// handleSimulate implements the episim_simulate tool.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("episim_simulate", start, retErr, sanitizeToolParams(map[string]any{
			"network":   args.Network,
			"topology":  args.Topology,
			"nodes":     args.Nodes,
			"steps":     args.Steps,
			"beta":      args.Beta,
			"initial_n": len(args.Initial),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "episim_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	cfg, seed, initial := s.runSettings(args.RunParams)
	if err := cfg.Validate(); err != nil {
		return nil, SimulateOutput{}, err
	}

	net, label, err := s.resolveNetwork(ctx, args.NetworkSelector, seed)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("resolve network: %w", err)
	}

	var snapshots []StepSnapshot
	var onStep spreading.StepFunc
	if args.IncludeSteps {
		onStep = func(step int, g *network.Network) error {
			snapshots = append(snapshots, StepSnapshot{Step: step, States: stateLabels(g)})
			return nil
		}
	}

	engine := spreading.NewEngine(cfg, spreading.NewSource(seed), spreading.WithLogger(s.logger))
	res, err := engine.Simulate(ctx, net, initial, onStep)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	return nil, SimulateOutput{
		Network:         label,
		Nodes:           net.NodeCount(),
		Edges:           net.EdgeCount(),
		Seed:            seed,
		Steps:           res.Steps,
		InitialInfected: res.InitialInfected,
		FinalInfected:   res.FinalInfected,
		Curve:           res.Curve,
		NewlyInfected:   res.NewlyInfected,
		InfectionTime:   res.InfectionTime,
		FinalStates:     stateLabels(net),
		Trials:          res.Trials,
		StepStates:      snapshots,
		Summary:         report.Summary(net, res),
	}, nil
}

// handleEnsemble implements the episim_ensemble tool.
func (s *Server) handleEnsemble(ctx context.Context, req *sdk.CallToolRequest, args EnsembleInput) (_ *sdk.CallToolResult, _ EnsembleOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("episim_ensemble", start, retErr, sanitizeToolParams(map[string]any{
			"network":   args.Network,
			"topology":  args.Topology,
			"nodes":     args.Nodes,
			"steps":     args.Steps,
			"beta":      args.Beta,
			"replicas":  args.Replicas,
			"initial_n": len(args.Initial),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "episim_ensemble"); err != nil {
		return nil, EnsembleOutput{}, err
	}

	replicas := args.Replicas
	if replicas == 0 {
		replicas = s.defaults.Ensemble.Replicas
	}
	if replicas > MaxReplicas {
		return nil, EnsembleOutput{}, fmt.Errorf("%w: replicas must be at most %d, got %d", network.ErrInvalidArgument, MaxReplicas, replicas)
	}

	cfg, seed, initial := s.runSettings(args.RunParams)
	scenario := simulation.Scenario{
		Name:         args.Network,
		Topology:     s.topologySpec(args.NetworkSelector),
		TopologySeed: args.TopologySeed,
		Config:       cfg,
		Initial:      initial,
		Seed:         seed,
		Replicas:     replicas,
	}
	if args.Network != "" {
		net, err := s.store.LoadNetwork(ctx, args.Network)
		if err != nil {
			return nil, EnsembleOutput{}, fmt.Errorf("resolve network: %w", err)
		}
		scenario.Network = net
	} else {
		scenario.Name = string(scenario.Topology.Kind)
	}

	result, err := s.runner.Run(ctx, scenario)
	if err != nil {
		return nil, EnsembleOutput{}, err
	}

	finals := make([]int, len(result.Runs))
	for i, run := range result.Runs {
		finals[i] = run.Result.FinalInfected
	}

	return nil, EnsembleOutput{
		Network:        result.Scenario,
		Nodes:          result.Nodes,
		Replicas:       len(result.Runs),
		BaseSeed:       seed,
		MeanFinal:      result.MeanFinal,
		MinFinal:       result.MinFinal,
		MaxFinal:       result.MaxFinal,
		FinalCounts:    finals,
		MeanCurve:      result.MeanCurve,
		NodeAttackRate: result.NodeAttackRate,
	}, nil
}

// handleNetwork implements the episim_network tool.
func (s *Server) handleNetwork(ctx context.Context, req *sdk.CallToolRequest, args NetworkInput) (_ *sdk.CallToolResult, _ NetworkOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("episim_network", start, retErr, sanitizeToolParams(map[string]any{
			"action":   args.Action,
			"name":     args.Name,
			"network":  args.Network,
			"topology": args.Topology,
			"nodes":    args.Nodes,
			"p":        args.P,
			"format":   args.Format,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "episim_network"); err != nil {
		return nil, NetworkOutput{}, err
	}

	seed := args.Seed
	if seed == 0 {
		seed = s.defaults.TopologySeed()
	}

	switch strings.ToLower(args.Action) {
	case "generate":
		if args.Name == "" {
			return nil, NetworkOutput{}, fmt.Errorf("%w: name is required to store a network", network.ErrInvalidArgument)
		}
		net, label, err := s.resolveNetwork(ctx, NetworkSelector{
			Topology:     args.Topology,
			Nodes:        args.Nodes,
			P:            args.P,
			TopologySeed: args.TopologySeed,
		}, seed)
		if err != nil {
			return nil, NetworkOutput{}, err
		}
		rec, err := s.store.SaveNetwork(ctx, args.Name, net)
		if err != nil {
			return nil, NetworkOutput{}, fmt.Errorf("save network: %w", err)
		}
		return nil, NetworkOutput{
			Action:  "generate",
			Name:    rec.Name,
			Nodes:   rec.Nodes,
			Edges:   rec.Edges,
			Message: fmt.Sprintf("Stored %s network %q (%d nodes, %d edges)", label, rec.Name, rec.Nodes, rec.Edges),
		}, nil

	case "show", "":
		sel := args.NetworkSelector
		if sel.Network == "" {
			sel.Network = args.Name
		}
		net, label, err := s.resolveNetwork(ctx, sel, seed)
		if err != nil {
			return nil, NetworkOutput{}, err
		}
		format := report.Format(strings.ToLower(args.Format))
		out := NetworkOutput{
			Action:  "show",
			Name:    sel.Network,
			Nodes:   net.NodeCount(),
			Edges:   net.EdgeCount(),
			Message: fmt.Sprintf("Rendered %s", label),
		}
		switch format {
		case report.FormatDOT:
			out.Format, out.Graph = "dot", report.RenderDOT(net)
		case report.FormatJSON, "":
			out.Format, out.Graph = "json", report.RenderJSON(net)
		default:
			return nil, NetworkOutput{}, fmt.Errorf("%w: unsupported format %q (use 'dot' or 'json')", network.ErrInvalidArgument, args.Format)
		}
		return nil, out, nil

	case "delete":
		if args.Name == "" {
			return nil, NetworkOutput{}, fmt.Errorf("%w: name is required to delete a network", network.ErrInvalidArgument)
		}
		if err := s.store.DeleteNetwork(ctx, args.Name); err != nil {
			return nil, NetworkOutput{}, err
		}
		return nil, NetworkOutput{
			Action:  "delete",
			Name:    args.Name,
			Message: fmt.Sprintf("Deleted network %q", args.Name),
		}, nil

	default:
		return nil, NetworkOutput{}, fmt.Errorf("%w: unknown action %q (use generate, show or delete)", network.ErrInvalidArgument, args.Action)
	}
}

// handleListNetworks implements the episim_list_networks tool.
func (s *Server) handleListNetworks(ctx context.Context, req *sdk.CallToolRequest, args ListNetworksInput) (_ *sdk.CallToolResult, _ ListNetworksOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("episim_list_networks", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "episim_list_networks"); err != nil {
		return nil, ListNetworksOutput{}, err
	}

	recs, err := s.store.ListNetworks(ctx)
	if err != nil {
		return nil, ListNetworksOutput{}, fmt.Errorf("list networks: %w", err)
	}

	out := ListNetworksOutput{Networks: make([]NetworkSummary, 0, len(recs)), Count: len(recs)}
	for _, r := range recs {
		out.Networks = append(out.Networks, summarize(r))
	}
	return nil, out, nil
}

// handleBackup implements the episim_backup tool.
func (s *Server) handleBackup(ctx context.Context, req *sdk.CallToolRequest, args BackupInput) (_ *sdk.CallToolResult, _ BackupOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("episim_backup", start, retErr, sanitizeToolParams(map[string]any{
			"action": args.Action,
			"path":   args.Path,
			"mode":   args.Mode,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "episim_backup"); err != nil {
		return nil, BackupOutput{}, err
	}

	switch strings.ToLower(args.Action) {
	case "backup", "":
		path := args.Path
		if path == "" {
			path = backup.GenerateBackupPath(s.backupDir)
		}
		if err := pathutil.ValidateArchiveWrite(path, s.archiveDirs); err != nil {
			return nil, BackupOutput{}, err
		}
		a, err := backup.Backup(ctx, s.store, path, args.Names...)
		if err != nil {
			return nil, BackupOutput{}, err
		}
		return nil, BackupOutput{
			Action:   "backup",
			Path:     path,
			Networks: len(a.Networks),
			Edges:    a.EdgeCount(),
			Message:  fmt.Sprintf("Archived %d networks", len(a.Networks)),
		}, nil

	case "restore":
		if args.Path == "" {
			return nil, BackupOutput{}, fmt.Errorf("%w: path is required to restore", network.ErrInvalidArgument)
		}
		if err := pathutil.ValidateArchiveRead(args.Path, s.archiveDirs); err != nil {
			return nil, BackupOutput{}, err
		}
		mode, err := backup.ParseRestoreMode(args.Mode)
		if err != nil {
			return nil, BackupOutput{}, err
		}
		res, err := backup.Restore(ctx, s.store, args.Path, mode)
		if err != nil {
			return nil, BackupOutput{}, err
		}
		return nil, BackupOutput{
			Action:   "restore",
			Path:     args.Path,
			Networks: len(res.Restored),
			Restored: res.Restored,
			Skipped:  res.Skipped,
			Message:  fmt.Sprintf("Restored %d networks, skipped %d", len(res.Restored), len(res.Skipped)),
		}, nil

	default:
		return nil, BackupOutput{}, fmt.Errorf("%w: unknown action %q (use backup or restore)", network.ErrInvalidArgument, args.Action)
	}
}

func stateLabels(g *network.Network) []string {
	states := g.States()
	out := make([]string, len(states))
	for i, st := range states {
		out[i] = st.String()
	}
	return out
}
