package backtest

import (
	"errors"
	"math"

	"github.com/PairScope/pairscope/internal/models"
)

// ErrInvalidParameter is returned for parameters no simulation can use, such
// as a non-positive training sigma at the pipeline level.
var ErrInvalidParameter = errors.New("invalid backtest parameter")

// position is the spread state: flat, long the spread, or short the spread.
type position int

const (
	flat        position = 0
	longSpread  position = 1
	shortSpread position = -1
)

// Params configures one simulation. MuTrain and SigmaTrain always come from
// the training window; using the window under test would introduce
// look-ahead bias.
type Params struct {
	ZEntry float64
	ZExit  float64
	ZStop  float64
	Sizing models.SizingMode

	MuTrain    float64
	SigmaTrain float64
	HalfLife   float64 // NaN allowed; HalfLifeScaled then falls back to 1

	PeriodsPerYear float64
}

// size resolves the position size for the configured sizing mode.
func (p Params) size() float64 {
	switch p.Sizing {
	case models.SizingHalfLifeScaled:
		hl := p.HalfLife
		if math.IsNaN(hl) || hl < 1 {
			hl = 1
		}
		return 1 / math.Sqrt(hl)
	case models.SizingVolScaled:
		return 1 / p.SigmaTrain
	default:
		return 1
	}
}

// Run simulates the spread state machine over a residual path and returns the
// performance report plus the per-step PnL series (length len(residuals)-1).
// Fewer than 3 observations or a non-positive training sigma yields an
// all-zero report.
func Run(residuals []float64, p Params) (models.BacktestReport, []float64) {
	n := len(residuals)
	if n < 3 || p.SigmaTrain <= 0 {
		return models.BacktestReport{}, nil
	}
	if p.PeriodsPerYear <= 0 {
		p.PeriodsPerYear = 252
	}

	size := p.size()
	pos := flat
	tradePnL := 0.0
	inTrade := false

	var (
		wins, losses        int
		grossWin, grossLoss float64
		totalSizeChanges    float64
	)
	pnl := make([]float64, 0, n-1)

	closeTrade := func() {
		if tradePnL > 0 {
			wins++
			grossWin += tradePnL
		} else {
			losses++
			grossLoss += -tradePnL
		}
		tradePnL = 0
		inTrade = false
		pos = flat
	}

	for t := 1; t < n; t++ {
		z := (residuals[t-1] - p.MuTrain) / p.SigmaTrain
		absZ := math.Abs(z)

		// 1. Exits first: stop-loss takes priority over take-profit.
		if pos != flat {
			if absZ >= p.ZStop || absZ <= p.ZExit {
				closeTrade()
				totalSizeChanges += size
			}
		}

		// 2. Entries: bet on reversion toward the mean.
		if pos == flat && absZ >= p.ZEntry && absZ > 0 {
			if z > 0 {
				pos = shortSpread
			} else {
				pos = longSpread
			}
			inTrade = true
			totalSizeChanges += size
		}

		// 3. Realize the step PnL under the position now held.
		step := size * float64(pos) * (residuals[t] - residuals[t-1])
		pnl = append(pnl, step)
		if inTrade {
			tradePnL += step
		}
	}

	// A position still open at the end is tallied as-is.
	if inTrade {
		closeTrade()
	}

	return buildReport(pnl, wins, losses, grossWin, grossLoss, totalSizeChanges, n, p.PeriodsPerYear), pnl
}

func buildReport(pnl []float64, wins, losses int, grossWin, grossLoss, totalSizeChanges float64, n int, periodsPerYear float64) models.BacktestReport {
	report := models.BacktestReport{Trades: wins + losses}

	mean := 0.0
	for _, v := range pnl {
		mean += v
	}
	mean /= float64(len(pnl))

	variance := 0.0
	for _, v := range pnl {
		d := v - mean
		variance += d * d
	}
	if len(pnl) > 1 {
		variance /= float64(len(pnl) - 1)
	}
	if sd := math.Sqrt(variance); sd > 0 {
		report.Sharpe = mean / sd * math.Sqrt(periodsPerYear)
	}

	// Max drawdown over the cumulative PnL curve.
	cum, peak, maxDD := 0.0, 0.0, 0.0
	for _, v := range pnl {
		cum += v
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	report.MaxDrawdown = maxDD
	if maxDD > 0 {
		report.Calmar = mean * periodsPerYear / maxDD
	}

	if wins+losses > 0 {
		report.WinRate = float64(wins) / float64(wins+losses)
	}
	if grossLoss > 0 {
		report.ProfitFactor = grossWin / grossLoss
	} else if grossWin > 0 {
		report.ProfitFactor = math.Inf(1)
	}

	report.Turnover = totalSizeChanges / float64(n) * periodsPerYear
	return report
}
