package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/pkg/formulas"
	"github.com/spf13/cobra"
)

func newValidateCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the universe and report its feasible return range",
		Long: `Build the market model and bounds from the configured universe and report
the achievable return range, asset pairs with |correlation| of 0.80 or more
and the equal-weight portfolio.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, global)
		},
	}
}

func runValidate(cmd *cobra.Command, global *globalFlags) error {
	env, err := setup(cmd, global)
	if err != nil {
		return err
	}

	model := env.model
	bounds := env.universe.Bounds()
	if err := optimization.ValidateBounds(bounds, model.N()); err != nil {
		return err
	}
	summary := optimization.SummarizeBounds(bounds)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Universe:\t%s\n", env.universe.Name)
	fmt.Fprintf(tw, "Assets:\t%d\n", model.N())
	fmt.Fprintf(tw, "Bounded assets:\t%d (%d fixed)\n", summary.BoundedAssets, summary.FixedAssets)
	fmt.Fprintf(tw, "Weight budget:\t[%.4f, %.4f]\n", summary.TotalMinWeight, summary.TotalMaxWeight)

	low, high, err := optimization.FeasibleReturnRange(model.ExpectedReturns(), bounds)
	if err != nil {
		fmt.Fprintf(tw, "Feasible returns:\tnone (%v)\n", err)
	} else {
		fmt.Fprintf(tw, "Feasible returns:\t[%.4f, %.4f]\n", low, high)
	}

	equal := make([]float64, model.N())
	for i := range equal {
		equal[i] = 1 / float64(model.N())
	}
	equalRisk := model.PortfolioRisk(equal)
	fmt.Fprintf(tw, "Equal weight:\treturn %.4f risk %.4f\n", formulas.Mean(model.ExpectedReturns()), equalRisk)

	if current := env.universe.CurrentWeights(); current != nil {
		snapshot := optimization.Snapshot(model, current, env.riskFreeRate)
		fmt.Fprintf(tw, "Current:\treturn %.4f risk %.4f\n", snapshot.Return, snapshot.Risk)
		for _, p := range model.CorrelatedHoldings(current, optimization.HighCorrelationThreshold) {
			fmt.Fprintf(tw, "  holds %s and %s\t%.2f\n", p.AssetA, p.AssetB, p.Correlation)
		}
	}

	pairs := model.HighCorrelations(optimization.HighCorrelationThreshold)
	if len(pairs) == 0 {
		fmt.Fprintf(tw, "High correlations:\tnone at |ρ| ≥ %.2f\n", optimization.HighCorrelationThreshold)
	} else {
		fmt.Fprintf(tw, "High correlations:\t%d at |ρ| ≥ %.2f\n", len(pairs), optimization.HighCorrelationThreshold)
		for _, p := range pairs {
			fmt.Fprintf(tw, "  %s / %s\t%.2f\n", p.AssetA, p.AssetB, p.Correlation)
		}
	}

	return tw.Flush()
}
