package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/nvandessel/episim/internal/logging"
	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
	"golang.org/x/sync/errgroup"
)

// ReplicaResult is the outcome of one replica.
type ReplicaResult struct {
	Replica int              `json:"replica"`
	Seed    uint64           `json:"seed"`
	Result  spreading.Result `json:"result"`
}

// EnsembleResult aggregates all replicas of a scenario.
type EnsembleResult struct {
	Scenario string          `json:"scenario"`
	Nodes    int             `json:"nodes"`
	Runs     []ReplicaResult `json:"runs"`

	MeanFinal float64 `json:"mean_final"`
	MinFinal  int     `json:"min_final"`
	MaxFinal  int     `json:"max_final"`

	// MeanCurve[t] is the mean infected count after step t.
	MeanCurve []float64 `json:"mean_curve"`

	// NodeAttackRate[n] is the fraction of replicas in which n ended infected.
	NodeAttackRate []float64 `json:"node_attack_rate"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithParallelism bounds the number of concurrently running replicas.
// Values below one mean one per CPU.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		r.parallelism = n
	}
}

// WithLogger sets the runner's operational logger. Replica engines log
// through it as well.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner executes ensembles of independent replicas.
type Runner struct {
	parallelism int
	logger      *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	if r.parallelism < 1 {
		r.parallelism = runtime.GOMAXPROCS(0)
	}
	return r
}

// Parallelism returns the effective replica concurrency.
func (r *Runner) Parallelism() int {
	return r.parallelism
}

// Run executes every replica of scenario and aggregates the results.
// Results are indexed by replica, so the outcome does not depend on
// scheduling. The first replica error cancels the others and is returned.
func (r *Runner) Run(ctx context.Context, scenario Scenario) (EnsembleResult, error) {
	if err := scenario.Validate(); err != nil {
		return EnsembleResult{}, err
	}

	template, err := scenario.BuildNetwork(ctx)
	if err != nil {
		return EnsembleResult{}, fmt.Errorf("build network: %w", err)
	}

	r.logger.Debug("ensemble starting",
		"scenario", scenario.Name, "replicas", scenario.Replicas,
		"parallelism", r.parallelism, "nodes", template.NodeCount())

	runs := make([]ReplicaResult, scenario.Replicas)
	infected := make([][]bool, scenario.Replicas)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i := 0; i < scenario.Replicas; i++ {
		g.Go(func() error {
			net := template.Clone()
			seed := scenario.ReplicaSeed(i)
			engine := spreading.NewEngine(scenario.Config, spreading.NewSource(seed),
				spreading.WithLogger(r.logger.With("replica", i)))

			res, err := engine.Simulate(gctx, net, scenario.Initial, nil)
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}

			final := make([]bool, net.NodeCount())
			for n, s := range net.States() {
				final[n] = s == network.Infected
			}

			runs[i] = ReplicaResult{Replica: i, Seed: seed, Result: res}
			infected[i] = final
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return EnsembleResult{}, err
	}

	out := aggregate(scenario.Name, template.NodeCount(), scenario.Config.Steps, runs, infected)

	r.logger.Debug("ensemble finished",
		"scenario", scenario.Name, "mean_final", out.MeanFinal,
		"min_final", out.MinFinal, "max_final", out.MaxFinal)

	return out, nil
}

// aggregate folds per-replica results into ensemble statistics.
func aggregate(name string, nodes, steps int, runs []ReplicaResult, infected [][]bool) EnsembleResult {
	out := EnsembleResult{
		Scenario:       name,
		Nodes:          nodes,
		Runs:           runs,
		MeanCurve:      make([]float64, steps),
		NodeAttackRate: make([]float64, nodes),
	}
	if len(runs) == 0 {
		return out
	}

	out.MinFinal = runs[0].Result.FinalInfected
	out.MaxFinal = runs[0].Result.FinalInfected
	total := 0
	for i, run := range runs {
		f := run.Result.FinalInfected
		total += f
		out.MinFinal = min(out.MinFinal, f)
		out.MaxFinal = max(out.MaxFinal, f)

		for t, c := range run.Result.Curve {
			out.MeanCurve[t] += float64(c)
		}
		for n, inf := range infected[i] {
			if inf {
				out.NodeAttackRate[n]++
			}
		}
	}

	count := float64(len(runs))
	out.MeanFinal = float64(total) / count
	for t := range out.MeanCurve {
		out.MeanCurve[t] /= count
	}
	for n := range out.NodeAttackRate {
		out.NodeAttackRate[n] /= count
	}
	return out
}
