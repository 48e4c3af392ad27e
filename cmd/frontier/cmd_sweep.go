package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aristath/frontier/internal/export"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/workers"
	"github.com/spf13/cobra"
)

type sweepFlags struct {
	points  int
	low     float64
	high    float64
	inward  float64
	workers int
	format  string
	percent bool
	output  string
}

func newSweepCmd(global *globalFlags) *cobra.Command {
	flags := &sweepFlags{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Compute the efficient frontier",
		Long: `Sweep evenly spaced target returns, solve the minimum-risk allocation
for each and write the resulting frontier. Targets without a feasible
allocation are dropped.

Example usage:
  frontier sweep                              # Built-in universe, table output
  frontier sweep --universe=universe.yaml     # Custom universe
  frontier sweep --points=50 --format=json    # Finer sweep as JSON
  frontier sweep --inward=0.9 --percent       # Skip the range extremes, percentages
  frontier sweep --format=csv --output=f.csv  # Write CSV to a file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, global, flags)
		},
	}

	cmd.Flags().IntVar(&flags.points, "points", 0, "Number of target returns (default: universe or FRONTIER_POINTS)")
	cmd.Flags().Float64Var(&flags.low, "low", 0, "Lowest target return (default: lowest expected return)")
	cmd.Flags().Float64Var(&flags.high, "high", 0, "Highest target return (default: highest expected return)")
	cmd.Flags().Float64Var(&flags.inward, "inward", 0, "Shrink the target range toward its midpoint by this factor in (0, 1]")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Solver goroutines (default: FRONTIER_WORKERS or CPU count)")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: table, json, csv, msgpack (default: FRONTIER_FORMAT)")
	cmd.Flags().BoolVar(&flags.percent, "percent", false, "Report returns, risks and weights as percentages")
	cmd.Flags().StringVar(&flags.output, "output", "", "Write to this file instead of stdout")

	return cmd
}

func runSweep(cmd *cobra.Command, global *globalFlags, flags *sweepFlags) error {
	env, err := setup(cmd, global)
	if err != nil {
		return err
	}
	changed := cmd.Flags().Changed

	formatName := env.cfg.Format
	if changed("format") {
		formatName = flags.format
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	params := sweepParams(env, flags, changed)

	numWorkers := env.cfg.Workers
	if changed("workers") {
		numWorkers = flags.workers
	}

	optimizer := optimization.NewMVOptimizer(env.model, env.cfg.SolverSettings(), env.log)
	sweep := optimization.NewFrontierSweep(optimizer, workers.NewWorkerPool(numWorkers), env.log)

	dataset, err := sweep.Run(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("frontier sweep failed: %w", err)
	}

	if optimal, ok := dataset.Optimal(); ok {
		env.log.Info().
			Str("run_id", dataset.RunID()).
			Int("index", dataset.OptimalIndex()).
			Float64("return", optimal.Return).
			Float64("risk", optimal.Risk).
			Float64("sharpe", *optimal.Sharpe).
			Msg("Optimal portfolio")
	} else {
		env.log.Warn().
			Str("run_id", dataset.RunID()).
			Msg("No frontier point has a defined Sharpe ratio")
	}

	return writeDataset(cmd, flags.output, func(w io.Writer) error {
		return export.Write(w, dataset, format, export.Options{Percent: flags.percent})
	})
}

// sweepParams merges flags over the universe sweep settings over the
// environment defaults.
func sweepParams(env *environment, flags *sweepFlags, changed func(string) bool) optimization.SweepParams {
	sweepCfg := env.universe.Sweep

	params := optimization.SweepParams{
		Points:       env.cfg.Points,
		Low:          sweepCfg.Low,
		High:         sweepCfg.High,
		InwardScale:  sweepCfg.InwardScale,
		Bounds:       env.universe.Bounds(),
		Initial:      env.universe.CurrentWeights(),
		Current:      env.universe.CurrentWeights(),
		RiskFreeRate: env.riskFreeRate,
	}
	if sweepCfg.Points > 0 {
		params.Points = sweepCfg.Points
	}

	if changed("points") {
		params.Points = flags.points
	}
	if changed("low") {
		low := flags.low
		params.Low = &low
	}
	if changed("high") {
		high := flags.high
		params.High = &high
	}
	if changed("inward") {
		params.InwardScale = flags.inward
	}

	params.Progress = func(current, total int, message string) {
		env.log.Debug().
			Int("current", current).
			Int("total", total).
			Msg(message)
	}

	return params
}

// writeDataset runs write against stdout or, when path is set, a new file.
func writeDataset(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
