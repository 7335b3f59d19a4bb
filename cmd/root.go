package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/PairScope/pairscope/internal/config"
)

var (
	// Global instances
	cfg    *config.Config
	search *config.SearchConfig
	logger *zap.Logger

	// Flag overrides
	flagData   string
	flagOut    string
	flagSearch string
	flagSeed   int64
	flagTopN   int
	flagAt10   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pairscope",
	Short: "Statistical-arbitrage research engine for pairs trading",
	Long: `pairscope discovers and validates pairs-trading strategies from
historical price series. It clusters assets with PCA + k-means, tests
pairs for cointegration (Engle-Granger with an ADF residual test),
estimates static and Kalman-filter hedge ratios, scores a parameter
grid with a spread backtest, and replays the top configurations on a
held-out window.`,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "price CSV file or directory (default $PAIRSCOPE_DATA)")
	rootCmd.PersistentFlags().StringVar(&flagOut, "out", "", "output directory for result tables (default $PAIRSCOPE_OUT)")
	rootCmd.PersistentFlags().StringVar(&flagSearch, "search", "", "YAML search-grid config file")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", -1, "random seed override (-1 keeps the configured seed)")
	rootCmd.PersistentFlags().IntVar(&flagTopN, "top", 0, "number of top configurations to replay (0 keeps the configured value)")
	rootCmd.PersistentFlags().BoolVar(&flagAt10, "at10", false, "accept cointegration candidates at the 10% level instead of 5%")
}

// initConfig configures the logger: default INFO, DEBUG if DEBUG env is truthy
func initConfig() {
	verbose := false
	if v := os.Getenv("DEBUG"); v == "true" || v == "1" || v == "yes" {
		verbose = true
	}

	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var err error
	logger, err = zcfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
}

// initializeApp sets up all dependencies
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override the environment
	if flagData != "" {
		cfg.DataPath = flagData
	}
	if flagOut != "" {
		cfg.OutputDir = flagOut
	}
	if flagSeed >= 0 {
		cfg.Seed = flagSeed
	}
	if flagTopN > 0 {
		cfg.TopN = flagTopN
	}

	search, err = config.LoadSearch(flagSearch)
	if err != nil {
		return fmt.Errorf("failed to load search config: %w", err)
	}

	return nil
}
