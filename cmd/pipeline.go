package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/PairScope/pairscope/internal/align"
	"github.com/PairScope/pairscope/internal/cache"
	"github.com/PairScope/pairscope/internal/cluster"
	"github.com/PairScope/pairscope/internal/coint"
	"github.com/PairScope/pairscope/internal/config"
	"github.com/PairScope/pairscope/internal/loader"
	"github.com/PairScope/pairscope/internal/models"
	"github.com/PairScope/pairscope/internal/validate"
)

// stage marks how far into the research pipeline a command runs.
type stage int

const (
	stageCluster stage = iota
	stageCoint
	stageValidate
	stageReplay
)

// pipelineResult accumulates the outputs of every completed stage.
type pipelineResult struct {
	startedAt time.Time

	prices     *models.AlignedMatrix
	train      *models.AlignedMatrix
	validation *models.AlignedMatrix
	test       *models.AlignedMatrix

	clusters   *cluster.Result
	coint      []models.CointResult
	candidates []models.CointResult
	ranked     []models.ValidationResult
	oos        []models.ValidationResult
	curves     []models.EquityCurve
}

// runPipeline executes the research pipeline through the requested stage.
func runPipeline(until stage) (*pipelineResult, error) {
	result := &pipelineResult{startedAt: time.Now()}

	// Load and align
	series, err := loader.Load(cfg.DataPath, logger)
	if err != nil {
		return nil, err
	}
	result.prices, err = align.LogPrices(series)
	if err != nil {
		return nil, err
	}
	result.train, result.validation, result.test, err = align.Split(result.prices, cfg.MinSplitRows)
	if err != nil {
		return nil, err
	}
	logger.Info("windows prepared",
		zap.Int("series", result.prices.NumSeries()),
		zap.Int("train_rows", result.train.NumRows()),
		zap.Int("validation_rows", result.validation.NumRows()),
		zap.Int("test_rows", result.test.NumRows()))

	// Cluster on training-window returns
	trainReturns := align.LogReturns(result.train)
	result.clusters, err = cluster.Run(trainReturns, clusterOptions(), logger)
	if err != nil {
		return nil, err
	}
	if until == stageCluster {
		return result, nil
	}

	// Cointegration sweep on training-window log-prices
	result.coint = coint.Sweep(result.train, result.clusters.Labels, coint.Config{
		MaxLag:      cfg.MaxADFLag,
		MinObs:      cfg.MinObsCoint,
		MinObsARFit: cfg.MinObsARFit,
	}, logger)
	result.candidates = coint.Passing(result.coint, flagAt10)
	if until == stageCoint {
		return result, nil
	}

	// Grid validation on the validation window
	paths := cache.New(10 * time.Minute)
	opts := validate.Options{
		PeriodsPerYear: cfg.PeriodsPerYear,
		Workers:        cfg.Workers,
		Progress: func(done, total int) {
			fmt.Printf("\rValidating pairs %d/%d", done, total)
			if done == total {
				fmt.Println()
			}
		},
	}
	result.ranked, err = validate.Run(result.candidates, result.train, result.validation, buildGrid(search), opts, paths, logger)
	if err != nil {
		return nil, err
	}
	if until == stageValidate {
		return result, nil
	}

	// Out-of-sample replay of the top configurations
	top := result.ranked
	if len(top) > cfg.TopN {
		top = top[:cfg.TopN]
	}
	result.oos, result.curves, err = validate.Replay(top, result.train, result.test, opts, paths, logger)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// clusterOptions maps the loaded configuration onto cluster.Options.
func clusterOptions() cluster.Options {
	sc := search.Cluster
	return cluster.Options{
		Auto:              !sc.Manual,
		VarianceThreshold: cfg.VarianceThreshold,
		TargetPerCluster:  cfg.TargetPerCluster,
		PCs:               sc.PCs,
		K:                 sc.K,
		KMin:              sc.KMin,
		KMax:              sc.KMax,
		Restarts:          sc.Restarts,
		MinSize:           sc.MinSize,
		MaxSize:           sc.MaxSize,
		Seed:              cfg.Seed,
	}
}

// buildGrid maps the search config onto the validator's grid.
func buildGrid(sc *config.SearchConfig) validate.Grid {
	grid := validate.Grid{
		Entries: sc.Thresholds.Entry,
		Exits:   sc.Thresholds.Exit,
		Stops:   sc.Thresholds.Stop,
		Qs:      sc.Noise.Q,
		Rs:      sc.Noise.R,
	}
	for _, s := range sc.Sizing {
		grid.Sizings = append(grid.Sizings, models.SizingMode(s))
	}
	for _, m := range sc.Modes {
		switch m {
		case "static":
			grid.Static = true
		case "kalman":
			grid.Kalman = true
		}
	}
	return grid
}

// writeTable creates name in the output directory and streams a table into it.
func writeTable(name string, write func(f *os.File) error) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(cfg.OutputDir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()
	if err := write(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
