package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/pkg/formulas"
	"github.com/spf13/cobra"
)

func newSolveCmd(global *globalFlags) *cobra.Command {
	var target float64
	var percent bool

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Find the minimum-risk allocation for one target return",
		Long: `Solve a single target return under the universe bounds. A target with no
feasible allocation is reported as infeasible; that is a valid answer, not
an error.

Example usage:
  frontier solve --target=0.05
  frontier solve --target=0.06 --percent --universe=universe.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, global, target, percent)
		},
	}

	cmd.Flags().Float64Var(&target, "target", 0, "Target portfolio return as a decimal")
	cmd.Flags().BoolVar(&percent, "percent", false, "Report returns, risk and weights as percentages")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runSolve(cmd *cobra.Command, global *globalFlags, target float64, percent bool) error {
	env, err := setup(cmd, global)
	if err != nil {
		return err
	}

	optimizer := optimization.NewMVOptimizer(env.model, env.cfg.SolverSettings(), env.log)
	solution, err := optimizer.EfficientReturn(env.universe.Bounds(), env.universe.CurrentWeights(), target)

	out := cmd.OutOrStdout()
	if err != nil {
		if optimization.IsNoSolution(err) {
			reason := "no feasible allocation"
			if errors.Is(err, optimization.ErrNotConverged) {
				reason = "solver did not converge"
			}
			fmt.Fprintf(out, "Target %.4f: infeasible (%s)\n", target, reason)
			env.log.Debug().Err(err).Float64("target_return", target).Msg("Target has no solution")
			return nil
		}
		return err
	}

	scale, unit := 1.0, ""
	if percent {
		scale, unit = 100, "%"
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Target:\t%.4f%s\n", target*scale, unit)
	fmt.Fprintf(tw, "Return:\t%.4f%s\n", solution.Return*scale, unit)
	fmt.Fprintf(tw, "Risk:\t%.4f%s\n", solution.Risk*scale, unit)
	if sharpe := formulas.SharpeRatio(solution.Return, solution.Risk, env.riskFreeRate); sharpe != nil {
		fmt.Fprintf(tw, "Sharpe:\t%.4f\n", *sharpe)
	} else {
		fmt.Fprintln(tw, "Sharpe:\tn/a")
	}
	fmt.Fprintf(tw, "Iterations:\t%d\n", solution.Iterations)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Asset\tWeight")
	for i, asset := range env.model.Assets() {
		fmt.Fprintf(tw, "%s\t%.4f%s\n", asset, solution.Weights[i]*scale, unit)
	}
	return tw.Flush()
}
