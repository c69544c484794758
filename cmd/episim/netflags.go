package main

import (
	"context"
	"fmt"

	"github.com/nvandessel/episim/internal/config"
	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
	"github.com/nvandessel/episim/internal/topology"
	"github.com/spf13/cobra"
)

// addTopologyFlags registers the generator flags shared by every command
// that builds a network.
func addTopologyFlags(cmd *cobra.Command) {
	cmd.Flags().String("topology", "", "Generator: small or random (default from config)")
	cmd.Flags().Int("nodes", 0, "Node count for random topologies (default from config)")
	cmd.Flags().Float64("p", 0, "Ordered-pair edge probability for random topologies (default from config)")
	cmd.Flags().Uint64("topology-seed", 0, "Generator seed (default: config topology seed, then run seed)")
}

// addNetworkFlags adds --network on top of the generator flags.
func addNetworkFlags(cmd *cobra.Command) {
	addTopologyFlags(cmd)
	cmd.Flags().String("network", "", "Use a network from the library instead of generating one")
}

// topologyFromFlags resolves the generator spec and seed: flags win over
// config values.
func topologyFromFlags(cmd *cobra.Command, cfg *config.EpisimConfig) (topology.Spec, uint64) {
	spec := topology.Spec{
		Kind:  topology.Kind(cfg.Topology.Kind),
		Nodes: cfg.Topology.Nodes,
		P:     cfg.Topology.P,
	}
	if cmd.Flags().Changed("topology") {
		kind, _ := cmd.Flags().GetString("topology")
		spec.Kind = topology.Kind(kind)
	}
	if cmd.Flags().Changed("nodes") {
		spec.Nodes, _ = cmd.Flags().GetInt("nodes")
	}
	if cmd.Flags().Changed("p") {
		spec.P, _ = cmd.Flags().GetFloat64("p")
	}
	seed := cfg.TopologySeed()
	if cmd.Flags().Changed("topology-seed") {
		seed, _ = cmd.Flags().GetUint64("topology-seed")
	}
	return spec, seed
}

// buildNetwork returns the stored network named by --network, or generates
// one from the topology flags. The label names what was used.
func buildNetwork(ctx context.Context, cmd *cobra.Command, cfg *config.EpisimConfig) (*network.Network, string, error) {
	name, _ := cmd.Flags().GetString("network")
	if name != "" {
		s, err := openStore(cfg)
		if err != nil {
			return nil, "", err
		}
		defer s.Close()
		g, err := s.LoadNetwork(ctx, name)
		if err != nil {
			return nil, "", err
		}
		return g, name, nil
	}

	spec, seed := topologyFromFlags(cmd, cfg)
	g, err := topology.BuildContext(ctx, spec, spreading.NewSource(seed))
	if err != nil {
		return nil, "", fmt.Errorf("build topology: %w", err)
	}
	return g, string(spec.Kind), nil
}

// runFromFlags resolves SI parameters: flags win over config values.
func runFromFlags(cmd *cobra.Command, cfg *config.EpisimConfig) (spreading.Config, uint64, []int, error) {
	sc := spreading.Config{Steps: cfg.Simulation.Steps, Beta: cfg.Simulation.Beta}
	if cmd.Flags().Changed("steps") {
		sc.Steps, _ = cmd.Flags().GetInt("steps")
	}
	if cmd.Flags().Changed("beta") {
		sc.Beta, _ = cmd.Flags().GetFloat64("beta")
	}
	seed := cfg.Simulation.Seed
	if cmd.Flags().Changed("seed") {
		seed, _ = cmd.Flags().GetUint64("seed")
	}
	initial := cfg.Simulation.Initial
	if cmd.Flags().Changed("initial") {
		raw, _ := cmd.Flags().GetString("initial")
		nodes, err := config.ParseNodeList(raw)
		if err != nil {
			return spreading.Config{}, 0, nil, fmt.Errorf("%w: --initial: %v", network.ErrInvalidArgument, err)
		}
		initial = nodes
	}
	if err := sc.Validate(); err != nil {
		return spreading.Config{}, 0, nil, err
	}
	return sc, seed, initial, nil
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("steps", 0, "Number of time steps (default from config, normally 10)")
	cmd.Flags().Float64("beta", 0, "Transmission probability per contact and step (default from config, normally 0.5)")
	cmd.Flags().Uint64("seed", 0, "Random seed (default from config, normally 57)")
	cmd.Flags().String("initial", "", "Comma-separated initially infected nodes (default from config, normally 2,8)")
}
