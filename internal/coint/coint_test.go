package coint

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/PairScope/pairscope/internal/models"
)

func TestOLSRecoversExactLine(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2 + 3*v
	}

	alpha, beta, residuals, err := OLS(y, x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(alpha-2) > 1e-9 {
		t.Errorf("expected alpha 2, got %v", alpha)
	}
	if math.Abs(beta-3) > 1e-9 {
		t.Errorf("expected beta 3, got %v", beta)
	}
	for i, r := range residuals {
		if math.Abs(r) > 1e-9 {
			t.Errorf("residual[%d] should be zero, got %v", i, r)
		}
	}
}

func TestOLSResidualsSumToZero(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	x := make([]float64, 200)
	y := make([]float64, 200)
	for i := range x {
		x[i] = rng.NormFloat64()
		y[i] = 1.5 - 0.7*x[i] + 0.3*rng.NormFloat64()
	}

	_, _, residuals, err := OLS(y, x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := 0.0
	for _, r := range residuals {
		sum += r
	}
	if math.Abs(sum) > 1e-8 {
		t.Errorf("residuals of an intercept regression must sum to zero, got %v", sum)
	}
}

func TestOLSSingularRegressor(t *testing.T) {
	x := []float64{3, 3, 3, 3, 3}
	y := []float64{1, 2, 3, 4, 5}

	_, _, _, err := OLS(y, x)
	if !errors.Is(err, ErrSingularRegression) {
		t.Fatalf("expected ErrSingularRegression for constant regressor, got %v", err)
	}
}

func TestOLSTooFewObservations(t *testing.T) {
	_, _, _, err := OLS([]float64{1, 2}, []float64{1, 2})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestApproxPValue(t *testing.T) {
	cases := []struct {
		stat float64
		want float64
	}{
		{-5.0, 0.01},  // clamped below the first anchor
		{-3.43, 0.01}, // exact anchor
		{-2.86, 0.05},
		{-2.57, 0.10},
		{-2.43, 0.15},
		{-1.62, 0.50},
		{0.0, 0.50}, // clamped above the last anchor
	}
	for _, c := range cases {
		if got := ApproxPValue(c.stat); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("ApproxPValue(%v): expected %v, got %v", c.stat, c.want, got)
		}
	}

	// Midpoint between the 5% and 10% anchors interpolates linearly.
	mid := (Critical5 + Critical10) / 2
	if got := ApproxPValue(mid); math.Abs(got-0.075) > 1e-12 {
		t.Errorf("expected interpolated p-value 0.075, got %v", got)
	}

	if !math.IsNaN(ApproxPValue(math.NaN())) {
		t.Error("expected NaN p-value for NaN statistic")
	}
}

func TestHalfLifeAR1(t *testing.T) {
	// phi = 0.9 gives a true half-life of ln2 / ln(1/0.9) ~ 6.58.
	rng := rand.New(rand.NewSource(17))
	residuals := syntheticAR1(rng, 4000, 0.9, 1.0)

	hl := HalfLife(residuals, 20)
	if math.IsNaN(hl) {
		t.Fatal("expected a defined half-life for an AR(1) path")
	}
	if hl < 4.5 || hl > 9.5 {
		t.Errorf("half-life %v far from the true 6.58", hl)
	}
}

func TestHalfLifeUndefined(t *testing.T) {
	if hl := HalfLife([]float64{1, 2, 3}, 20); !math.IsNaN(hl) {
		t.Errorf("expected NaN for too few residuals, got %v", hl)
	}

	// A trending series fits phi >= 1 and has no mean-reversion half-life.
	trend := make([]float64, 100)
	for i := range trend {
		trend[i] = float64(i)
	}
	if hl := HalfLife(trend, 20); !math.IsNaN(hl) {
		t.Errorf("expected NaN for a trending series, got %v", hl)
	}
}

func TestTestPairCointegrated(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	y, x := syntheticCointegrated(rng, 500, 0.5, 1.2, 0.9)

	result, err := TestPair("Y", "X", y, x, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Pass5 {
		t.Errorf("expected rejection at the 5%% level, ADF stat %v", result.ADFStat)
	}
	if result.ADFStat >= Critical5 {
		t.Errorf("expected ADF stat below %v, got %v", Critical5, result.ADFStat)
	}
	if math.Abs(result.Beta-1.2) > 0.12 {
		t.Errorf("expected beta near 1.2, got %v", result.Beta)
	}
	if !result.HasHalfLife() {
		t.Fatal("expected a defined half-life")
	}
	if result.HalfLife < 3.0 || result.HalfLife > 15.0 {
		t.Errorf("half-life %v implausible for phi=0.9", result.HalfLife)
	}
	if result.PValue > 0.05 {
		t.Errorf("expected approximate p-value at or below 0.05, got %v", result.PValue)
	}
}

func TestTestPairIndependentWalks(t *testing.T) {
	// Independent random walks reject the null about 5% of the time by
	// construction, so check the rejection rate over replications rather than
	// a single draw.
	rng := rand.New(rand.NewSource(29))
	passes := 0
	for rep := 0; rep < 20; rep++ {
		y := randomWalk(rng, 500, 0.1)
		x := randomWalk(rng, 500, 0.1)
		result, err := TestPair("Y", "X", y, x, Config{})
		if err != nil {
			t.Fatalf("replication %d: unexpected error: %v", rep, err)
		}
		if result.Pass5 {
			passes++
		}
	}
	if passes > 5 {
		t.Errorf("independent walks rejected the null %d/20 times", passes)
	}
}

func TestTestPairInsufficientData(t *testing.T) {
	y := make([]float64, 30)
	x := make([]float64, 30)
	_, err := TestPair("Y", "X", y, x, Config{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 30 observations, got %v", err)
	}
}

func TestSweepSkipsDegeneratePairs(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	n := 200
	y, x := syntheticCointegrated(rng, n, 0.0, 1.0, 0.8)
	flat := make([]float64, n) // constant series, singular in every regression

	train := &models.AlignedMatrix{
		Times:  makeTimes(n),
		Series: []string{"A", "B", "C"},
		Data:   make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		train.Data[i] = []float64{y[i], x[i], flat[i]}
	}

	labels := map[string]int{"A": 0, "B": 0, "C": 0}
	results := Sweep(train, labels, Config{}, zap.NewNop())

	// A/B in both directions must survive; every pair touching C is skipped.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Pair.Y == "C" || r.Pair.X == "C" {
			t.Errorf("degenerate series C should have been skipped: %+v", r.Pair)
		}
		if r.Cluster != 0 {
			t.Errorf("expected cluster 0, got %d", r.Cluster)
		}
	}
}

func TestSweepRespectsClusterBoundaries(t *testing.T) {
	rng := rand.New(rand.NewSource(37))
	n := 200
	a, b := syntheticCointegrated(rng, n, 0.0, 1.0, 0.8)
	c, d := syntheticCointegrated(rng, n, 0.0, 1.0, 0.8)

	train := &models.AlignedMatrix{
		Times:  makeTimes(n),
		Series: []string{"A", "B", "C", "D"},
		Data:   make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		train.Data[i] = []float64{a[i], b[i], c[i], d[i]}
	}

	labels := map[string]int{"A": 0, "B": 0, "C": 1, "D": 1}
	results := Sweep(train, labels, Config{}, zap.NewNop())

	for _, r := range results {
		cy, cx := labels[r.Pair.Y], labels[r.Pair.X]
		if cy != cx {
			t.Errorf("pair %s/%s crosses clusters %d and %d", r.Pair.Y, r.Pair.X, cy, cx)
		}
	}
	// 2 unordered pairs per cluster, both directions each.
	if len(results) != 4 {
		t.Errorf("expected 4 results, got %d", len(results))
	}
}

func TestPassing(t *testing.T) {
	results := []models.CointResult{
		{Pair: models.Pair{Y: "A", X: "B"}, Pass5: true, Pass10: true},
		{Pair: models.Pair{Y: "B", X: "A"}, Pass5: false, Pass10: true},
		{Pair: models.Pair{Y: "C", X: "D"}, Pass5: false, Pass10: false},
	}

	strict := Passing(results, false)
	if len(strict) != 1 || strict[0].Pair.Y != "A" {
		t.Errorf("strict filter should keep only the 5%% pass, got %+v", strict)
	}

	loose := Passing(results, true)
	if len(loose) != 2 {
		t.Errorf("loose filter should keep 5%% and 10%% passes, got %d", len(loose))
	}
}

// syntheticAR1 generates an AR(1) path with persistence phi and unit-variance
// innovations scaled by sd, after a burn-in.
func syntheticAR1(rng *rand.Rand, n int, phi, sd float64) []float64 {
	out := make([]float64, n)
	v := 0.0
	for i := 0; i < 100; i++ {
		v = phi*v + sd*rng.NormFloat64()
	}
	for i := 0; i < n; i++ {
		v = phi*v + sd*rng.NormFloat64()
		out[i] = v
	}
	return out
}

func randomWalk(rng *rand.Rand, n int, step float64) []float64 {
	out := make([]float64, n)
	v := 0.0
	for i := 0; i < n; i++ {
		v += step * rng.NormFloat64()
		out[i] = v
	}
	return out
}

// syntheticCointegrated builds y = alpha + beta*x + AR(1) noise over a random
// walk x.
func syntheticCointegrated(rng *rand.Rand, n int, alpha, beta, phi float64) (y, x []float64) {
	x = randomWalk(rng, n, 0.1)
	eps := syntheticAR1(rng, n, phi, 0.05)
	y = make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = alpha + beta*x[i] + eps[i]
	}
	return y, x
}

func makeTimes(n int) []time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, n)
	for i := 0; i < n; i++ {
		times[i] = base.Add(time.Duration(i) * 24 * time.Hour)
	}
	return times
}
