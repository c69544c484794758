// Package spreading implements the discrete-time stochastic SI engine.
// Infection propagates from an initial infected set over the contact network
// one hop per time step: each susceptible node draws one independent trial
// per infectious neighbor and becomes infected when a draw falls below beta.
package spreading

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/nvandessel/episim/internal/logging"
	"github.com/nvandessel/episim/internal/network"
)

// NotInfected marks a node in Result.InfectionTime that was never infected
// during the run. Nodes in the initial infected set also carry this value.
const NotInfected = -1

// Config holds the parameters of an SI run.
type Config struct {
	// Steps is the number of discrete time steps (T). Default: 10.
	Steps int `json:"steps" yaml:"steps"`

	// Beta is the transmission probability per susceptible node, infectious
	// neighbor and time step. Default: 0.5.
	Beta float64 `json:"beta" yaml:"beta"`
}

// DefaultConfig returns the default SI configuration.
func DefaultConfig() Config {
	return Config{
		Steps: 10,
		Beta:  0.5,
	}
}

// Validate checks Steps >= 0 and 0 <= Beta <= 1.
func (c Config) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", network.ErrInvalidArgument, c.Steps)
	}
	if math.IsNaN(c.Beta) || c.Beta < 0 || c.Beta > 1 {
		return fmt.Errorf("%w: beta must be in [0, 1], got %v", network.ErrInvalidArgument, c.Beta)
	}
	return nil
}

// StepFunc observes the network at the start of each time step, before the
// sweep. It must not mutate the network. A non-nil error aborts the run.
type StepFunc func(step int, net *network.Network) error

// Result describes a completed run. The network itself carries the final
// states; Result holds the run-scoped bookkeeping.
type Result struct {
	// Steps is the number of time steps executed.
	Steps int `json:"steps"`

	// InfectionTime[n] is the step at which n became infected, or
	// NotInfected for initial seeds and nodes that stayed susceptible.
	InfectionTime []int `json:"infection_time"`

	// Curve[t] is the number of infected nodes after step t.
	Curve []int `json:"curve"`

	// NewlyInfected[t] is the number of nodes infected during step t.
	NewlyInfected []int `json:"newly_infected"`

	// Trials is the number of random draws consumed.
	Trials int `json:"trials"`

	// InitialInfected is the number of distinct nodes infected before step 0.
	InitialInfected int `json:"initial_infected"`

	// FinalInfected is the number of infected nodes when the run ended.
	FinalInfected int `json:"final_infected"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTrace attaches a JSONL trace logger that receives one event per step.
func WithTrace(tl *logging.TraceLogger) Option {
	return func(e *Engine) {
		e.trace = tl
	}
}

// Engine runs SI simulations. It owns a random source, so an Engine must not
// be shared between goroutines; give every parallel run its own Engine.
type Engine struct {
	config Config
	source Source
	logger *slog.Logger
	trace  *logging.TraceLogger
}

// NewEngine creates an SI engine drawing from src.
func NewEngine(config Config, src Source, opts ...Option) *Engine {
	e := &Engine{
		config: config,
		source: src,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Simulate marks initialInfected as Infected and runs Config.Steps time
// steps of SI spread on net, mutating its states in place.
//
// All arguments are validated before the network is touched: an invalid
// config yields ErrInvalidArgument and an initial index outside [0, N)
// yields ErrOutOfRange. Cancellation is checked between steps.
func (e *Engine) Simulate(ctx context.Context, net *network.Network, initialInfected []int, onStep StepFunc) (Result, error) {
	if err := e.config.Validate(); err != nil {
		return Result{}, err
	}
	if net == nil {
		return Result{}, fmt.Errorf("%w: network is nil", network.ErrInvalidArgument)
	}
	if e.source == nil {
		return Result{}, fmt.Errorf("%w: random source is nil", network.ErrInvalidArgument)
	}
	n := net.NodeCount()
	for _, idx := range initialInfected {
		if idx < 0 || idx >= n {
			return Result{}, fmt.Errorf("initial infected: %w: %d not in [0, %d)", network.ErrOutOfRange, idx, n)
		}
	}

	// Step 1: Allocate run-scoped infection times.
	infectionTime := make([]int, n)
	for i := range infectionTime {
		infectionTime[i] = NotInfected
	}

	// Step 2: Seed the initial infected set. Their infection time stays
	// NotInfected, which also makes them eligible sources at step 0.
	for _, idx := range initialInfected {
		if err := net.SetState(idx, network.Infected); err != nil {
			return Result{}, fmt.Errorf("seed node %d: %w", idx, err)
		}
	}

	res := Result{
		Curve:           make([]int, 0, e.config.Steps),
		NewlyInfected:   make([]int, 0, e.config.Steps),
		InitialInfected: net.InfectedCount(),
	}
	infected := res.InitialInfected

	e.logger.Debug("si run starting",
		"nodes", n, "steps", e.config.Steps, "beta", e.config.Beta, "initial", res.InitialInfected)

	e.trace.LogRun(logging.RunEvent{
		Nodes:   n,
		Steps:   e.config.Steps,
		Beta:    e.config.Beta,
		Initial: initialInfected,
	})

	// Step 3: Time loop.
	for t := 0; t < e.config.Steps; t++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("si run interrupted at step %d: %w", t, err)
		}

		if onStep != nil {
			if err := onStep(t, net); err != nil {
				return Result{}, fmt.Errorf("step observer at step %d: %w", t, err)
			}
		}

		newly, trials, err := e.sweep(ctx, net, infectionTime, t)
		if err != nil {
			return Result{}, err
		}

		infected += newly
		res.Trials += trials
		res.NewlyInfected = append(res.NewlyInfected, newly)
		res.Curve = append(res.Curve, infected)
		res.Steps++

		if e.trace != nil {
			e.trace.LogStep(logging.StepEvent{
				Step:       t,
				Infections: infectedAt(infectionTime, t),
				Infected:   infected,
				Trials:     trials,
			})
		}
	}

	// Step 4: Hand the run-scoped infection times to the caller.
	res.InfectionTime = infectionTime
	res.FinalInfected = infected

	e.logger.Debug("si run finished",
		"steps", res.Steps, "infected", res.FinalInfected, "trials", res.Trials)

	return res, nil
}

// sweep evaluates every node once, in index order, for time step t.
// A susceptible node draws one trial per eligible neighbor and keeps scanning
// after it becomes infected; the extra draws have no further effect but are
// still consumed from the source.
func (e *Engine) sweep(ctx context.Context, net *network.Network, infectionTime []int, t int) (newly, trials int, err error) {
	beta := e.config.Beta
	n := net.NodeCount()

	for node := 0; node < n; node++ {
		state, err := net.State(node)
		if err != nil {
			return 0, 0, err
		}
		switch state {
		case network.Infected:
			continue
		case network.Susceptible:
		default:
			return 0, 0, fmt.Errorf("node %d at step %d: %w: %d", node, t, network.ErrInvalidState, int(state))
		}

		var visitErr error
		err = net.VisitNeighbors(node, func(m int) {
			if visitErr != nil {
				return
			}
			ms, err := net.State(m)
			if err != nil {
				visitErr = err
				return
			}
			// Neighbors infected during this same step are not yet infectious.
			if ms != network.Infected || infectionTime[m] == t {
				return
			}

			trials++
			if e.source.Float64() < beta {
				if infectionTime[node] != t {
					if err := net.SetState(node, network.Infected); err != nil {
						visitErr = err
						return
					}
					infectionTime[node] = t
					newly++
					e.logger.Log(ctx, logging.LevelTrace, "infection", "node", node, "source", m, "step", t)
				}
			}
		})
		if err != nil {
			return 0, 0, err
		}
		if visitErr != nil {
			return 0, 0, visitErr
		}
	}
	return newly, trials, nil
}

// infectedAt lists the nodes whose infection time is t, in index order.
func infectedAt(infectionTime []int, t int) []int {
	nodes := []int{}
	for n, it := range infectionTime {
		if it == t {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// SimulateSI runs T steps of SI spread on net with transmission probability
// beta, drawing from src. It is a convenience wrapper around Engine.Simulate
// with no cancellation.
func SimulateSI(net *network.Network, T int, initialInfected []int, beta float64, src Source, onStep StepFunc) (Result, error) {
	eng := NewEngine(Config{Steps: T, Beta: beta}, src)
	return eng.Simulate(context.Background(), net, initialInfected, onStep)
}
