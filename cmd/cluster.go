package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PairScope/pairscope/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(clusterCmd)
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group series into clusters of similar return behavior",
	Long: `Standardizes training-window returns, projects them onto the top
principal components, and groups the series with k-means. Writes the
series-to-cluster table to the output directory.`,
	RunE: runCluster,
}

func runCluster(cmd *cobra.Command, args []string) error {
	result, err := runPipeline(stageCluster)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	fmt.Println(formatters.FormatClusterTable(result.clusters))

	if err := writeTable("clusters.csv", func(f *os.File) error {
		return formatters.WriteClusterCSV(f, result.clusters.Labels)
	}); err != nil {
		return err
	}
	fmt.Printf("Cluster table written to %s\n", cfg.OutputDir)
	return nil
}
