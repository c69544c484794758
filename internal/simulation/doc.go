// Package simulation runs ensembles of independent SI replicas over one
// contact network.
//
// Every replica owns a clone of the scenario's network and a random source
// seeded with Seed+replica, so results are identical whatever the
// parallelism. Replicas run on an errgroup bounded by the runner's
// parallelism; the first failure cancels the rest.
//
// Usage:
//
//	r := simulation.NewRunner(simulation.WithParallelism(4))
//	res, err := r.Run(ctx, simulation.Scenario{
//	    Name:     "small-demo",
//	    Topology: topology.Spec{Kind: topology.KindSmall},
//	    Config:   spreading.Config{Steps: 10, Beta: 0.5},
//	    Initial:  []int{2, 8},
//	    Seed:     57,
//	    Replicas: 100,
//	})
//
// The Assert helpers check run invariants from tests.
package simulation
