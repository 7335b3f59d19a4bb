package validate

import "math"

// Signal-to-noise bounds for a usable (Q, R) combination. Ratios outside this
// range put the filter in a degenerate regime: either frozen or pure noise.
const (
	minNoiseRatio = 1e-7
	maxNoiseRatio = 1e4
)

// noisePair is one Kalman (process, measurement) noise candidate.
type noisePair struct {
	q float64
	r float64
}

// noisePairs returns the noise candidates for one pair: the explicit grid
// cross-product when supplied, otherwise an adaptive grid derived from the
// pair's half-life and training residual variance. Candidates whose Q/R ratio
// falls outside [minNoiseRatio, maxNoiseRatio] are dropped.
func noisePairs(grid Grid, halfLife, trainVariance float64) []noisePair {
	qs, rs := grid.Qs, grid.Rs
	if len(qs) == 0 || len(rs) == 0 {
		qs, rs = adaptiveNoise(halfLife, trainVariance)
	}

	var out []noisePair
	for _, q := range qs {
		for _, r := range rs {
			if r <= 0 || q <= 0 {
				continue
			}
			ratio := q / r
			if ratio < minNoiseRatio || ratio > maxNoiseRatio {
				continue
			}
			out = append(out, noisePair{q: q, r: r})
		}
	}
	return out
}

// adaptiveNoise picks process-noise candidates around 1/halfLife^2 for one of
// four half-life bands, and measurement-noise candidates as multiples of the
// training residual variance. An undefined half-life is treated as the
// slowest band.
func adaptiveNoise(halfLife, trainVariance float64) (qs, rs []float64) {
	hl := halfLife
	if math.IsNaN(hl) || hl <= 0 || hl >= 100 {
		hl = 100
	}

	switch {
	case hl < 5:
		if hl < 1 {
			hl = 1
		}
		base := 1 / (hl * hl)
		qs = []float64{base, 5 * base, 0.5 * base}
	case hl < 20:
		base := 1 / (hl * hl)
		qs = []float64{base, 2 * base, 0.25 * base}
	case hl < 100:
		base := 1 / (hl * hl)
		qs = []float64{base, 4 * base, 0.1 * base}
	default:
		qs = []float64{1e-4, 1e-5, 1e-6}
	}

	rs = []float64{0.5 * trainVariance, trainVariance, 2 * trainVariance}
	return qs, rs
}
