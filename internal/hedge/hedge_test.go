package hedge

import (
	"math"
	"math/rand"
	"testing"
)

func TestStaticResiduals(t *testing.T) {
	y := []float64{3, 5, 7}
	x := []float64{1, 2, 3}

	residuals := StaticResiduals(1, 2, y, x)
	for i, r := range residuals {
		if math.Abs(r) > 1e-12 {
			t.Errorf("residual[%d] should be zero on the exact line, got %v", i, r)
		}
	}

	residuals = StaticResiduals(0, 2, y, x)
	want := []float64{1, 1, 1}
	for i := range want {
		if math.Abs(residuals[i]-want[i]) > 1e-12 {
			t.Errorf("residual[%d]: expected %v, got %v", i, want[i], residuals[i])
		}
	}
}

func TestKalmanZeroProcessNoiseStaysNearPrior(t *testing.T) {
	// With Q ~ 0 and large R the filter barely moves off the seeded beta, so
	// its residuals track the static ones.
	rng := rand.New(rand.NewSource(5))
	n := 300
	y := make([]float64, n)
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		y[i] = 0.5 + 1.2*x[i] + 0.1*rng.NormFloat64()
	}

	result := KalmanResiduals(0.5, 1.2, y, x, 1e-12, 100)
	staticRes := StaticResiduals(0.5, 1.2, y, x)

	for i := n / 2; i < n; i++ {
		if math.Abs(result.Betas[i]-1.2) > 0.05 {
			t.Fatalf("beta[%d] drifted to %v with near-zero process noise", i, result.Betas[i])
		}
		if math.Abs(result.Residuals[i]-staticRes[i]) > 0.1 {
			t.Errorf("residual[%d] %v far from static %v", i, result.Residuals[i], staticRes[i])
		}
	}
}

func TestKalmanTracksBetaShift(t *testing.T) {
	// The true beta jumps halfway through; a responsive filter should follow.
	rng := rand.New(rand.NewSource(9))
	n := 400
	y := make([]float64, n)
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = 1 + rng.NormFloat64()
		beta := 1.0
		if i >= n/2 {
			beta = 2.0
		}
		y[i] = beta*x[i] + 0.05*rng.NormFloat64()
	}

	result := KalmanResiduals(0, 1.0, y, x, 0.01, 0.05)

	if math.Abs(result.Betas[n/2-1]-1.0) > 0.2 {
		t.Errorf("pre-shift beta %v far from 1.0", result.Betas[n/2-1])
	}
	if math.Abs(result.Betas[n-1]-2.0) > 0.2 {
		t.Errorf("post-shift beta %v far from 2.0", result.Betas[n-1])
	}
}

func TestKalmanHigherQMoreVariance(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	n := 500
	y := make([]float64, n)
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		y[i] = 1.5*x[i] + 0.2*rng.NormFloat64()
	}

	calm := KalmanResiduals(0, 1.5, y, x, 1e-6, 1.0)
	jumpy := KalmanResiduals(0, 1.5, y, x, 1e-1, 1.0)

	if betaVariance(jumpy.Betas) <= betaVariance(calm.Betas) {
		t.Errorf("higher process noise should produce a more variable beta path: %v vs %v",
			betaVariance(jumpy.Betas), betaVariance(calm.Betas))
	}
}

func TestKalmanFinitePathOnZeroRegressor(t *testing.T) {
	// x = 0 rows exercise the innovation-variance floor; the path must stay
	// finite.
	y := []float64{1, 2, 3, 4}
	x := []float64{0, 0, 0, 0}

	result := KalmanResiduals(0, 1.0, y, x, 0.01, 0)
	for i, b := range result.Betas {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			t.Fatalf("beta[%d] is not finite: %v", i, b)
		}
	}
}

func TestDiverged(t *testing.T) {
	if Diverged(nil, 1, 10) != true {
		t.Error("empty path must count as diverged")
	}
	if Diverged([]float64{1, math.NaN(), 2}, 1, 10) != true {
		t.Error("non-finite path must count as diverged")
	}
	if Diverged([]float64{-1, 0, 1}, 1, 10) {
		t.Error("well-behaved path flagged as diverged")
	}
	// Population sd ~ 81.6 against training sigma 1 breaches the 10x guard.
	if !Diverged([]float64{-100, 0, 100}, 1, 10) {
		t.Error("runaway path not flagged at 10x training sigma")
	}
	// With no usable training sigma only non-finiteness can trip the guard.
	if Diverged([]float64{-100, 0, 100}, 0, 10) {
		t.Error("guard should be inert for non-positive training sigma")
	}
}

func betaVariance(betas []float64) float64 {
	mean := 0.0
	for _, b := range betas {
		mean += b
	}
	mean /= float64(len(betas))
	v := 0.0
	for _, b := range betas {
		d := b - mean
		v += d * d
	}
	return v / float64(len(betas))
}
