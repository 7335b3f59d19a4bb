package coint

import (
	"fmt"
	"math"
)

// Asymptotic critical values for a constant-only ADF regression on the
// residual of a two-variable cointegrating regression. More negative means
// stronger rejection of "no cointegration".
const (
	Critical5  = -2.86
	Critical10 = -2.57
	Critical15 = -2.43
)

// adfResult is the outcome of the residual unit-root test.
type adfResult struct {
	stat    float64
	usedLag int
	n       int // effective sample of the selected regression
}

// adfTest runs the augmented Dickey-Fuller regression on u for every lag in
// [0, maxLag], selects the lag minimizing BIC, and reports the t-statistic
// of the level coefficient.
func adfTest(u []float64, maxLag int) (adfResult, error) {
	if maxLag < 0 {
		maxLag = 0
	}
	// Each extra lag consumes observations; keep a usable sample.
	if limit := (len(u) - 10) / 3; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return adfResult{}, fmt.Errorf("%w: %d residuals", ErrInsufficientData, len(u))
	}

	du := make([]float64, len(u)-1)
	for i := 1; i < len(u); i++ {
		du[i-1] = u[i] - u[i-1]
	}

	best := adfResult{}
	bestBIC := math.Inf(1)
	found := false
	var lastErr error

	for lag := 0; lag <= maxLag; lag++ {
		stat, bic, n, err := adfAtLag(u, du, lag)
		if err != nil {
			lastErr = err
			continue
		}
		if bic < bestBIC {
			bestBIC = bic
			best = adfResult{stat: stat, usedLag: lag, n: n}
			found = true
		}
	}
	if !found {
		if lastErr != nil {
			return adfResult{}, lastErr
		}
		return adfResult{}, fmt.Errorf("%w: no ADF regression could be fit", ErrInsufficientData)
	}
	return best, nil
}

// adfAtLag fits du_t = c + rho*u_{t-1} + sum gamma_i*du_{t-i} for one lag
// order and returns t(rho), the BIC, and the effective sample size.
func adfAtLag(u, du []float64, lag int) (stat, bic float64, n int, err error) {
	// du index t covers u transitions t -> t+1; regression rows start where
	// all lagged differences exist.
	rows := len(du) - lag
	k := 2 + lag
	if rows <= k {
		return 0, 0, 0, fmt.Errorf("%w: %d rows for %d coefficients", ErrInsufficientData, rows, k)
	}

	design := make([][]float64, rows)
	target := make([]float64, rows)
	for i := 0; i < rows; i++ {
		t := i + lag
		row := make([]float64, k)
		row[0] = 1
		row[1] = u[t] // level lagged one period relative to du[t]
		for j := 1; j <= lag; j++ {
			row[1+j] = du[t-j]
		}
		design[i] = row
		target[i] = du[t]
	}

	coef, inv, rss, err := solveLeastSquares(design, target)
	if err != nil {
		return 0, 0, 0, err
	}

	dof := rows - k
	sigma2 := rss / float64(dof)
	se := math.Sqrt(sigma2 * inv[1][1])
	if se == 0 || math.IsNaN(se) {
		return 0, 0, 0, fmt.Errorf("%w: zero standard error for level coefficient", ErrSingularRegression)
	}

	stat = coef[1] / se
	bic = float64(rows)*math.Log(rss/float64(rows)) + float64(k)*math.Log(float64(rows))
	return stat, bic, rows, nil
}

// pValueAnchors maps ADF statistics to approximate p-values at known critical
// points; lookups interpolate linearly between them.
var pValueAnchors = []struct {
	stat float64
	p    float64
}{
	{-3.43, 0.01},
	{Critical5, 0.05},
	{Critical10, 0.10},
	{Critical15, 0.15},
	{-1.62, 0.50},
}

// ApproxPValue converts an ADF statistic into an approximate p-value via
// piecewise-linear interpolation, clamped at the anchor extremes.
func ApproxPValue(stat float64) float64 {
	if math.IsNaN(stat) {
		return math.NaN()
	}
	if stat <= pValueAnchors[0].stat {
		return pValueAnchors[0].p
	}
	last := pValueAnchors[len(pValueAnchors)-1]
	if stat >= last.stat {
		return last.p
	}
	for i := 1; i < len(pValueAnchors); i++ {
		lo, hi := pValueAnchors[i-1], pValueAnchors[i]
		if stat <= hi.stat {
			frac := (stat - lo.stat) / (hi.stat - lo.stat)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	return last.p
}
