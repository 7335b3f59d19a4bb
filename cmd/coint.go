package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PairScope/pairscope/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(cointCmd)
}

var cointCmd = &cobra.Command{
	Use:   "coint",
	Short: "Test every within-cluster pair for cointegration",
	Long: `Runs the Engle-Granger procedure on every ordered pair inside each
cluster: OLS hedge regression on training-window log-prices, then an
ADF test with BIC lag selection on the residual. Writes the
cointegration table to the output directory.`,
	RunE: runCoint,
}

func runCoint(cmd *cobra.Command, args []string) error {
	result, err := runPipeline(stageCoint)
	if err != nil {
		return fmt.Errorf("cointegration sweep failed: %w", err)
	}

	fmt.Println(formatters.FormatCointTable(result.coint))
	fmt.Printf("%d of %d directional pairs pass at the chosen level\n",
		len(result.candidates), len(result.coint))

	if err := writeTable("cointegration.csv", func(f *os.File) error {
		return formatters.WriteCointCSV(f, result.coint)
	}); err != nil {
		return err
	}
	fmt.Printf("Cointegration table written to %s\n", cfg.OutputDir)
	return nil
}
