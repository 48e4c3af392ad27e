package main

import (
	"fmt"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	universePath string
	logLevel     string
	riskFreeRate float64
	maxIter      int
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "frontier",
		Short: "Mean-variance efficient frontier calculator",
		Long: `frontier sweeps a range of target returns over an asset universe and,
for each target, finds the fully invested allocation with the lowest
volatility under per-asset weight bounds. The portfolio with the highest
Sharpe ratio is reported as optimal.

The universe comes from a YAML file (--universe or FRONTIER_UNIVERSE) or,
when none is configured, from the built-in seven asset-class model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.universePath, "universe", "", "Path to universe YAML file (default: built-in universe)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().Float64Var(&flags.riskFreeRate, "rf", 0, "Risk-free rate as a decimal (default: universe or FRONTIER_RISK_FREE_RATE)")
	root.PersistentFlags().IntVar(&flags.maxIter, "max-iterations", 0, "Active-set iteration cap per target (0 = solver default)")

	root.AddCommand(
		newSweepCmd(flags),
		newSolveCmd(flags),
		newValidateCmd(flags),
	)

	return root
}

// environment is everything a subcommand needs after startup.
type environment struct {
	cfg          *config.Config
	log          zerolog.Logger
	universe     *config.Universe
	model        *optimization.MarketModel
	riskFreeRate float64
}

// setup loads configuration, applies flag overrides, initializes logging and
// builds the market model.
func setup(cmd *cobra.Command, flags *globalFlags) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("universe") {
		cfg.UniversePath = flags.universePath
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("max-iterations") {
		cfg.MaxIterations = flags.maxIter
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: cmd.ErrOrStderr(),
	})
	logger.SetGlobalLogger(log)

	universe, err := loadUniverse(cfg, log)
	if err != nil {
		return nil, err
	}

	model, err := optimization.NewMarketModel(universe.ModelSpec(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to build market model: %w", err)
	}

	riskFreeRate := universe.RiskFree(cfg.RiskFreeRate)
	if changed("rf") {
		riskFreeRate = flags.riskFreeRate
	}

	return &environment{
		cfg:          cfg,
		log:          log,
		universe:     universe,
		model:        model,
		riskFreeRate: riskFreeRate,
	}, nil
}

func loadUniverse(cfg *config.Config, log zerolog.Logger) (*config.Universe, error) {
	if cfg.UniversePath == "" {
		universe := config.DefaultUniverse()
		log.Info().
			Str("universe", universe.Name).
			Int("assets", len(universe.Assets)).
			Msg("Using built-in universe")
		return universe, nil
	}

	universe, err := config.LoadUniverse(cfg.UniversePath)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("universe", universe.Name).
		Str("path", cfg.UniversePath).
		Int("assets", len(universe.Assets)).
		Msg("Loaded universe")
	return universe, nil
}
