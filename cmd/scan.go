package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PairScope/pairscope/internal/models"
	"github.com/PairScope/pairscope/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the full research pipeline and write every table",
	Long: `Runs alignment, clustering, the cointegration sweep, grid validation,
and out-of-sample replay in one pass, writing all four result tables
plus a run manifest to the output directory.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	result, err := runPipeline(stageReplay)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Println(formatters.FormatClusterTable(result.clusters))
	fmt.Println(formatters.FormatValidationTable(result.ranked, cfg.TopN))
	fmt.Println("Out-of-sample performance:")
	fmt.Println(formatters.FormatValidationTable(result.oos, len(result.oos)))

	tables := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"clusters.csv", func(f *os.File) error {
			return formatters.WriteClusterCSV(f, result.clusters.Labels)
		}},
		{"cointegration.csv", func(f *os.File) error {
			return formatters.WriteCointCSV(f, result.coint)
		}},
		{"validation.csv", func(f *os.File) error {
			return formatters.WriteValidationCSV(f, result.ranked)
		}},
		{"oos_equity.csv", func(f *os.File) error {
			return formatters.WriteEquityCSV(f, result.test.Times, result.curves)
		}},
	}
	for _, t := range tables {
		if err := writeTable(t.name, t.write); err != nil {
			return err
		}
	}

	manifest := &models.RunManifest{
		StartedAt:      result.startedAt,
		FinishedAt:     time.Now(),
		DataPath:       cfg.DataPath,
		Seed:           cfg.Seed,
		SeriesCount:    result.prices.NumSeries(),
		Observations:   result.prices.NumRows(),
		TrainRows:      result.train.NumRows(),
		ValidationRows: result.validation.NumRows(),
		TestRows:       result.test.NumRows(),
		Clusters:       result.clusters.K,
		CandidatePairs: len(result.candidates),
		Evaluations:    len(result.ranked),
		TopN:           cfg.TopN,
	}
	if err := models.WriteRunManifest(cfg.OutputDir, manifest); err != nil {
		return fmt.Errorf("failed to write run manifest: %w", err)
	}

	fmt.Printf("All tables written to %s\n", cfg.OutputDir)
	return nil
}
