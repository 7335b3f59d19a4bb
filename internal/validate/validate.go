package validate

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/PairScope/pairscope/internal/backtest"
	"github.com/PairScope/pairscope/internal/cache"
	"github.com/PairScope/pairscope/internal/hedge"
	"github.com/PairScope/pairscope/internal/models"
)

// ErrInvalidParameter is returned for grids or inputs no evaluation can use.
var ErrInvalidParameter = errors.New("invalid validation parameter")

// Grid is the parameter grid evaluated for every candidate pair.
type Grid struct {
	Entries []float64
	Exits   []float64
	Stops   []float64
	Sizings []models.SizingMode

	Static bool
	Kalman bool

	// Explicit noise grids; both empty means the grid is derived adaptively
	// from each pair's half-life and training residual variance.
	Qs []float64
	Rs []float64
}

// Options tunes the search driver, not the results.
type Options struct {
	PeriodsPerYear  float64
	Workers         int                  // 0 = NumCPU
	DivergenceRatio float64              // default 10x training sigma
	Progress        func(done, total int) // optional, nil-safe
}

func (o Options) withDefaults() Options {
	if o.PeriodsPerYear <= 0 {
		o.PeriodsPerYear = 252
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.DivergenceRatio <= 0 {
		o.DivergenceRatio = 10
	}
	return o
}

// pairSeries is the per-candidate immutable input for one evaluation job.
type pairSeries struct {
	candidate models.CointResult
	trainY    []float64
	trainX    []float64
	validY    []float64
	validX    []float64
}

// Run evaluates the full parameter grid for every candidate pair on the
// validation window and returns all results ranked descending by Sharpe
// (stable, so ties keep enumeration order). Per-pair failures are skipped.
func Run(candidates []models.CointResult, train, validation *models.AlignedMatrix, grid Grid, opts Options, paths *cache.PathCache, logger *zap.Logger) ([]models.ValidationResult, error) {
	opts = opts.withDefaults()
	if err := grid.validate(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Materialize each candidate's series up front; jobs then share nothing
	// mutable.
	jobs := make([]pairSeries, 0, len(candidates))
	for _, cand := range candidates {
		trainY, okTY := train.ColByName(cand.Pair.Y)
		trainX, okTX := train.ColByName(cand.Pair.X)
		validY, okVY := validation.ColByName(cand.Pair.Y)
		validX, okVX := validation.ColByName(cand.Pair.X)
		if !okTY || !okTX || !okVY || !okVX {
			logger.Warn("candidate pair missing from aligned window",
				zap.String("y", cand.Pair.Y),
				zap.String("x", cand.Pair.X))
			continue
		}
		jobs = append(jobs, pairSeries{
			candidate: cand,
			trainY:    trainY,
			trainX:    trainX,
			validY:    validY,
			validX:    validX,
		})
	}

	windowKey := windowFingerprint(validation)
	perPair := make([][]models.ValidationResult, len(jobs))

	workers := opts.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	jobCh := make(chan int)
	doneCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				perPair[i] = evaluatePair(jobs[i], grid, opts, windowKey, paths, logger)
				doneCh <- i
			}
		}()
	}
	go func() {
		for i := range jobs {
			jobCh <- i
		}
		close(jobCh)
		wg.Wait()
		close(doneCh)
	}()

	// Progress is reported from the aggregator so the callback can never
	// block a worker.
	done := 0
	for range doneCh {
		done++
		if opts.Progress != nil {
			opts.Progress(done, len(jobs))
		}
	}

	// Flatten in enumeration order so the pre-sort order is deterministic
	// regardless of worker scheduling.
	var results []models.ValidationResult
	for _, rs := range perPair {
		results = append(results, rs...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Report.Sharpe > results[j].Report.Sharpe
	})

	logger.Info("grid validation complete",
		zap.Int("pairs", len(jobs)),
		zap.Int("evaluations", len(results)))
	return results, nil
}

// evaluatePair runs the whole grid for one candidate. Failures inside are
// logged and skipped; the other candidates keep going.
func evaluatePair(job pairSeries, grid Grid, opts Options, windowKey string, paths *cache.PathCache, logger *zap.Logger) []models.ValidationResult {
	cand := job.candidate

	trainRes := hedge.StaticResiduals(cand.Alpha, cand.Beta, job.trainY, job.trainX)
	mu, sigma := meanStd(trainRes)
	if sigma <= 0 || math.IsNaN(sigma) {
		logger.Warn("skipping pair with degenerate training sigma",
			zap.String("y", cand.Pair.Y),
			zap.String("x", cand.Pair.X),
			zap.Float64("sigma", sigma),
			zap.Error(ErrInvalidParameter))
		return nil
	}

	var results []models.ValidationResult

	evaluate := func(residuals []float64, mode models.Mode) {
		for _, entry := range grid.Entries {
			for _, exit := range grid.Exits {
				for _, stop := range grid.Stops {
					for _, sizing := range grid.Sizings {
						report, _ := backtest.Run(residuals, backtest.Params{
							ZEntry:         entry,
							ZExit:          exit,
							ZStop:          stop,
							Sizing:         sizing,
							MuTrain:        mu,
							SigmaTrain:     sigma,
							HalfLife:       cand.HalfLife,
							PeriodsPerYear: opts.PeriodsPerYear,
						})
						results = append(results, models.ValidationResult{
							Pair:     cand.Pair,
							Alpha:    cand.Alpha,
							Beta:     cand.Beta,
							HalfLife: cand.HalfLife,
							Config: models.ValidationConfig{
								ZEntry: entry,
								ZExit:  exit,
								ZStop:  stop,
								Sizing: sizing,
								Mode:   mode,
							},
							Report: report,
						})
					}
				}
			}
		}
	}

	if grid.Static {
		staticRes := hedge.StaticResiduals(cand.Alpha, cand.Beta, job.validY, job.validX)
		evaluate(staticRes, models.Static{})
	}

	if grid.Kalman {
		trainVariance := sigma * sigma
		for _, noise := range noisePairs(grid, cand.HalfLife, trainVariance) {
			key := cache.Key(cand.Pair.Y, cand.Pair.X, windowKey, noise.q, noise.r)
			residuals, err := paths.GetOrCompute(key, func() ([]float64, error) {
				// One filter run per (Q, R); every threshold/sizing combination
				// below shares this path read-only.
				result := hedge.KalmanResiduals(cand.Alpha, cand.Beta, job.validY, job.validX, noise.q, noise.r)
				if hedge.Diverged(result.Residuals, sigma, opts.DivergenceRatio) {
					return nil, fmt.Errorf("%w: q=%g r=%g", hedge.ErrFilterDivergence, noise.q, noise.r)
				}
				return result.Residuals, nil
			})
			if err != nil {
				logger.Debug("skipping noise candidate",
					zap.String("y", cand.Pair.Y),
					zap.String("x", cand.Pair.X),
					zap.Error(err))
				continue
			}
			evaluate(residuals, models.Kalman{Q: noise.q, R: noise.r})
		}
	}

	return results
}

func (g Grid) validate() error {
	if len(g.Entries) == 0 || len(g.Exits) == 0 || len(g.Stops) == 0 || len(g.Sizings) == 0 {
		return fmt.Errorf("%w: empty threshold or sizing grid", ErrInvalidParameter)
	}
	if !g.Static && !g.Kalman {
		return fmt.Errorf("%w: no hedge mode enabled", ErrInvalidParameter)
	}
	for _, z := range g.Entries {
		if z < 0 || math.IsNaN(z) {
			return fmt.Errorf("%w: entry threshold %v", ErrInvalidParameter, z)
		}
	}
	return nil
}

// meanStd computes the mean and sample standard deviation.
func meanStd(values []float64) (mean, sd float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	if len(values) > 1 {
		variance /= float64(len(values) - 1)
	}
	return mean, math.Sqrt(variance)
}

func windowFingerprint(m *models.AlignedMatrix) string {
	n := m.NumRows()
	if n == 0 {
		return "empty"
	}
	return fmt.Sprintf("%d-%d-%d", m.Times[0].Unix(), m.Times[n-1].Unix(), n)
}
