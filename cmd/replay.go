package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PairScope/pairscope/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay the top configurations on the held-out window",
	Long: `Runs the full validation, then re-evaluates the top configurations on
the held-out test window with the same hedge estimator and backtester.
Writes the out-of-sample equity table to the output directory.`,
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	result, err := runPipeline(stageReplay)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	fmt.Println("Out-of-sample performance:")
	fmt.Println(formatters.FormatValidationTable(result.oos, len(result.oos)))

	if err := writeTable("oos_equity.csv", func(f *os.File) error {
		return formatters.WriteEquityCSV(f, result.test.Times, result.curves)
	}); err != nil {
		return err
	}
	fmt.Printf("Equity table written to %s\n", cfg.OutputDir)
	return nil
}
