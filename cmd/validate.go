package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PairScope/pairscope/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Score the parameter grid for every candidate pair",
	Long: `Evaluates the full entry/exit/stop, sizing, and hedge-mode grid for
every cointegrated candidate pair on the validation window, ranks all
configurations by Sharpe ratio, and writes the validation table to the
output directory.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	result, err := runPipeline(stageValidate)
	if err != nil {
		return fmt.Errorf("grid validation failed: %w", err)
	}

	fmt.Println(formatters.FormatValidationTable(result.ranked, cfg.TopN))

	if err := writeTable("validation.csv", func(f *os.File) error {
		return formatters.WriteValidationCSV(f, result.ranked)
	}); err != nil {
		return err
	}
	fmt.Printf("Validation table (%d rows) written to %s\n", len(result.ranked), cfg.OutputDir)
	return nil
}
