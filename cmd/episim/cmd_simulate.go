package main

import (
	"context"
	"fmt"
	"io"

	"github.com/nvandessel/episim/internal/config"
	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/report"
	"github.com/nvandessel/episim/internal/spreading"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one SI epidemic",
		Long: `Run one discrete-time SI epidemic and print the final network.

The network is generated from --topology (small by default) or loaded from
the library with --network. Runs are reproducible: the same seed, network
and parameters always give the same result.

Examples:
  episim simulate                                  # small network, seeds 2,8, beta 0.5, 10 steps
  episim simulate --verbose --color                # print every step
  episim simulate --topology random --nodes 50 --p 0.02 --initial 0
  episim simulate --network city --beta 0.2 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")
			color, _ := cmd.Flags().GetBool("color")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sc, seed, initial, err := runFromFlags(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd.Context())
			defer cancel()

			g, label, err := buildNetwork(ctx, cmd, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printer := report.NewPrinter(out, color && !jsonOut)
			var onStep spreading.StepFunc
			if verbose && !jsonOut {
				onStep = printer.Observer()
			}

			res, err := runOnce(ctx, cmd, cfg, g, sc, seed, initial, onStep)
			if err != nil {
				return err
			}

			if jsonOut {
				result := report.RenderRunJSON(g, res)
				result["network"] = label
				result["seed"] = seed
				return writeJSON(out, result)
			}
			return printRun(out, printer, g, res)
		},
	}

	addNetworkFlags(cmd)
	addRunFlags(cmd)
	cmd.Flags().BoolP("verbose", "v", false, "Print the network at the start of every step")
	cmd.Flags().Bool("color", false, "Colour node states")

	return cmd
}

// runOnce runs the engine with the configured loggers.
func runOnce(ctx context.Context, cmd *cobra.Command, cfg *config.EpisimConfig, g *network.Network, sc spreading.Config, seed uint64, initial []int, onStep spreading.StepFunc) (spreading.Result, error) {
	trace := newTraceLogger(cfg)
	defer trace.Close()

	engine := spreading.NewEngine(sc, spreading.NewSource(seed),
		spreading.WithLogger(newLogger(cmd, cfg)),
		spreading.WithTrace(trace))

	res, err := engine.Simulate(ctx, g, initial, onStep)
	if err != nil {
		return spreading.Result{}, fmt.Errorf("simulation failed: %w", err)
	}
	return res, nil
}

func printRun(w io.Writer, printer *report.Printer, g *network.Network, res spreading.Result) error {
	fmt.Fprintln(w, "Final network:")
	if err := printer.Network(g); err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, report.Summary(g, res))
	return nil
}
