package hedge

import (
	"errors"
	"math"
)

// ErrFilterDivergence is reported by callers when a Kalman residual path is
// non-finite or runs away relative to the training sigma.
var ErrFilterDivergence = errors.New("kalman filter diverged")

// StaticResiduals applies a fixed alpha/beta from the training window to any
// later window and returns the residual path.
func StaticResiduals(alpha, beta float64, y, x []float64) []float64 {
	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - alpha - beta*x[i]
	}
	return residuals
}

// KalmanResult is the full filtered hedge-ratio path and the residuals it
// produced.
type KalmanResult struct {
	Betas     []float64
	Residuals []float64
}

// Variance floors preventing division blow-ups and a collapsed posterior.
const (
	innovationFloor = 1e-16
	varianceFloor   = 1e-12
)

// KalmanResiduals runs the scalar random-walk filter over one window. Only
// beta is filtered; alpha stays fixed at its training value for numerical
// stability. beta0 seeds the state (the training OLS beta) with prior
// variance 1.
func KalmanResiduals(alpha, beta0 float64, y, x []float64, q, r float64) KalmanResult {
	n := len(y)
	betas := make([]float64, n)
	residuals := make([]float64, n)

	beta := beta0
	p := 1.0
	for t := 0; t < n; t++ {
		pPred := p + q

		predicted := alpha + beta*x[t]
		innovation := y[t] - predicted

		s := x[t]*x[t]*pPred + r
		if s < innovationFloor {
			s = innovationFloor
		}
		gain := pPred * x[t] / s

		beta += gain * innovation
		p = (1 - gain*x[t]) * pPred
		if p < varianceFloor {
			p = varianceFloor
		}

		betas[t] = beta
		residuals[t] = y[t] - alpha - beta*x[t]
	}
	return KalmanResult{Betas: betas, Residuals: residuals}
}

// Diverged reports whether a residual path breaches the divergence guard:
// a non-finite standard deviation, or one larger than maxRatio times the
// training sigma.
func Diverged(residuals []float64, trainSigma, maxRatio float64) bool {
	if len(residuals) == 0 {
		return true
	}
	mean := 0.0
	for _, v := range residuals {
		mean += v
	}
	mean /= float64(len(residuals))

	variance := 0.0
	for _, v := range residuals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(residuals))
	sd := math.Sqrt(variance)

	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return true
	}
	return trainSigma > 0 && sd > maxRatio*trainSigma
}
