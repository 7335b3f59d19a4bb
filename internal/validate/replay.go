package validate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/PairScope/pairscope/internal/backtest"
	"github.com/PairScope/pairscope/internal/cache"
	"github.com/PairScope/pairscope/internal/hedge"
	"github.com/PairScope/pairscope/internal/models"
)

// Replay re-evaluates selected configurations on the held-out test window
// with the same hedge estimator and backtester used during validation. It
// returns the out-of-sample results in the given order plus one equity curve
// per configuration (cumulative PnL, one value per test timestamp).
func Replay(selected []models.ValidationResult, train, test *models.AlignedMatrix, opts Options, paths *cache.PathCache, logger *zap.Logger) ([]models.ValidationResult, []models.EquityCurve, error) {
	opts = opts.withDefaults()
	windowKey := windowFingerprint(test)

	oos := make([]models.ValidationResult, 0, len(selected))
	curves := make([]models.EquityCurve, 0, len(selected))

	for _, sel := range selected {
		trainY, okTY := train.ColByName(sel.Pair.Y)
		trainX, okTX := train.ColByName(sel.Pair.X)
		testY, okSY := test.ColByName(sel.Pair.Y)
		testX, okSX := test.ColByName(sel.Pair.X)
		if !okTY || !okTX || !okSY || !okSX {
			return nil, nil, fmt.Errorf("selected pair %s/%s missing from aligned windows", sel.Pair.Y, sel.Pair.X)
		}

		trainRes := hedge.StaticResiduals(sel.Alpha, sel.Beta, trainY, trainX)
		mu, sigma := meanStd(trainRes)
		if sigma <= 0 || math.IsNaN(sigma) {
			return nil, nil, fmt.Errorf("%w: non-positive training sigma for %s/%s", ErrInvalidParameter, sel.Pair.Y, sel.Pair.X)
		}

		var residuals []float64
		switch mode := sel.Config.Mode.(type) {
		case models.Static:
			residuals = hedge.StaticResiduals(sel.Alpha, sel.Beta, testY, testX)
		case models.Kalman:
			key := cache.Key(sel.Pair.Y, sel.Pair.X, windowKey, mode.Q, mode.R)
			var err error
			residuals, err = paths.GetOrCompute(key, func() ([]float64, error) {
				result := hedge.KalmanResiduals(sel.Alpha, sel.Beta, testY, testX, mode.Q, mode.R)
				if hedge.Diverged(result.Residuals, sigma, opts.DivergenceRatio) {
					return nil, fmt.Errorf("%w: q=%g r=%g on test window", hedge.ErrFilterDivergence, mode.Q, mode.R)
				}
				return result.Residuals, nil
			})
			if err != nil {
				// A filter that diverges out of sample disqualifies the
				// configuration; keep replaying the rest.
				logger.Warn("selected configuration diverged out of sample",
					zap.String("y", sel.Pair.Y),
					zap.String("x", sel.Pair.X),
					zap.Error(err))
				continue
			}
		default:
			return nil, nil, fmt.Errorf("%w: unknown hedge mode", ErrInvalidParameter)
		}

		report, pnl := backtest.Run(residuals, backtest.Params{
			ZEntry:         sel.Config.ZEntry,
			ZExit:          sel.Config.ZExit,
			ZStop:          sel.Config.ZStop,
			Sizing:         sel.Config.Sizing,
			MuTrain:        mu,
			SigmaTrain:     sigma,
			HalfLife:       sel.HalfLife,
			PeriodsPerYear: opts.PeriodsPerYear,
		})

		result := sel
		result.Report = report
		oos = append(oos, result)

		// Equity starts at zero on the first test timestamp, then accumulates
		// per-step PnL.
		values := make([]float64, test.NumRows())
		cum := 0.0
		for i, step := range pnl {
			cum += step
			values[i+1] = cum
		}
		curves = append(curves, models.EquityCurve{
			Label:  ConfigLabel(sel),
			Values: values,
		})
	}

	logger.Info("out-of-sample replay complete",
		zap.Int("selected", len(selected)),
		zap.Int("replayed", len(oos)))
	return oos, curves, nil
}

// ConfigLabel renders a short human-readable identity for one configuration,
// used as an equity-curve column header.
func ConfigLabel(r models.ValidationResult) string {
	label := fmt.Sprintf("%s/%s %s e%.2f x%.2f s%.2f %s",
		r.Pair.Y, r.Pair.X, r.Config.Mode.ModeName(),
		r.Config.ZEntry, r.Config.ZExit, r.Config.ZStop, r.Config.Sizing)
	if k, ok := r.Config.Mode.(models.Kalman); ok {
		label += fmt.Sprintf(" q%.2g r%.2g", k.Q, k.R)
	}
	return label
}
