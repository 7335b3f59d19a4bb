package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/PairScope/pairscope/internal/models"
)

// ErrInsufficientData is returned when the return matrix is too small to
// standardize and decompose.
var ErrInsufficientData = errors.New("insufficient data for clustering")

// Options controls both clustering modes. When Auto is set, PCs and K are
// derived from the data; otherwise the caller supplies PCs plus either a
// fixed K or a [KMin, KMax] search range with size constraints.
type Options struct {
	Auto              bool
	VarianceThreshold float64 // auto mode, default 0.85
	TargetPerCluster  int     // auto mode, default 10

	PCs      int
	K        int // fixed K; 0 means search [KMin, KMax]
	KMin     int
	KMax     int
	Restarts int
	MinSize  int
	MaxSize  int

	Seed int64
}

// Result is the clustering output: one contiguous label per series, the
// loadings the points were clustered in, and the retained eigenvalues.
type Result struct {
	Labels       map[string]int
	K            int
	PCs          int
	Loadings     [][]float64 // series x PCs
	ExplainedVar []float64   // eigenvalues, clamped at zero, descending
	Inertia      float64
}

// Run standardizes the return matrix, projects the series onto the top
// principal components, and groups them with k-means.
func Run(returns *models.AlignedMatrix, opts Options, logger *zap.Logger) (*Result, error) {
	nSeries := returns.NumSeries()
	nRows := returns.NumRows()
	if nSeries < 2 {
		return nil, fmt.Errorf("%w: need at least 2 series, got %d", ErrInsufficientData, nSeries)
	}
	if nRows < 3 {
		return nil, fmt.Errorf("%w: need at least 3 observations, got %d", ErrInsufficientData, nRows)
	}

	standardized := standardize(returns.Data)
	cov := covariance(standardized)
	eigenvalues, eigenvectors := jacobiEigen(cov)

	// Numerical noise can push small eigenvalues slightly negative.
	total := 0.0
	for i, ev := range eigenvalues {
		if ev < 0 {
			eigenvalues[i] = 0
		}
		total += eigenvalues[i]
	}

	pcs := opts.PCs
	if opts.Auto {
		pcs = choosePCs(eigenvalues, total, opts.VarianceThreshold)
		pcs = clamp(pcs, 2, min(8, nSeries))
	} else {
		pcs = clamp(pcs, 1, min(20, nSeries))
	}

	loadings := buildLoadings(eigenvectors, eigenvalues, pcs)
	rng := rand.New(rand.NewSource(opts.Seed))

	var best kmeansResult
	var k int
	var err error
	if opts.Auto {
		target := opts.TargetPerCluster
		if target <= 0 {
			target = 10
		}
		k = clamp(int(math.Round(float64(nSeries)/float64(target))), 2, min(12, nSeries))
		best = kmeans(loadings, k, rng)
	} else {
		best, k, err = searchK(loadings, opts, rng, logger)
		if err != nil {
			return nil, err
		}
	}

	labels := make(map[string]int, nSeries)
	for j, name := range returns.Series {
		labels[name] = best.labels[j]
	}

	logger.Info("clustering complete",
		zap.Int("series", nSeries),
		zap.Int("pcs", pcs),
		zap.Int("k", k),
		zap.Float64("inertia", best.inertia))

	return &Result{
		Labels:       labels,
		K:            k,
		PCs:          pcs,
		Loadings:     loadings,
		ExplainedVar: eigenvalues,
		Inertia:      best.inertia,
	}, nil
}

// searchK runs the manual-mode K search with restarts, size constraints, and
// the two early-stop heuristics.
func searchK(points [][]float64, opts Options, rng *rand.Rand, logger *zap.Logger) (kmeansResult, int, error) {
	kMin, kMax := opts.KMin, opts.KMax
	if opts.K > 0 {
		kMin, kMax = opts.K, opts.K
	}
	if kMin < 2 {
		kMin = 2
	}
	if kMax < kMin {
		kMax = kMin
	}
	if kMax > len(points) {
		kMax = len(points)
	}
	restarts := opts.Restarts
	if restarts < 1 {
		restarts = 1
	}

	var best kmeansResult
	bestK := 0
	found := false
	prevKBest := math.Inf(1)

	for k := kMin; k <= kMax; k++ {
		kBest := math.Inf(1)
		admissible := 0
		for r := 0; r < restarts; r++ {
			result := kmeans(points, k, rng)
			if !sizesAdmissible(result.labels, k, opts.MinSize, opts.MaxSize) {
				continue
			}
			admissible++
			improvement := (kBest - result.inertia) / kBest
			if result.inertia < kBest {
				kBest = result.inertia
			}
			if !found || result.inertia < best.inertia {
				best = result
				bestK = k
				found = true
			}
			// Within-K stop: enough admissible restarts and the latest
			// improvement is below 0.1%.
			if admissible >= 3 && improvement < 1e-3 {
				break
			}
		}
		logger.Debug("k candidate evaluated",
			zap.Int("k", k),
			zap.Int("admissible_restarts", admissible),
			zap.Float64("best_inertia", kBest))

		// Across-K stop: this K improved less than 1% over the previous K.
		if !math.IsInf(kBest, 1) && !math.IsInf(prevKBest, 1) {
			if (prevKBest-kBest)/prevKBest < 1e-2 {
				break
			}
		}
		if !math.IsInf(kBest, 1) {
			prevKBest = kBest
		}
	}

	if found {
		return best, bestK, nil
	}

	// Nothing admissible anywhere: fall back to K = max(2, kMin) with the
	// size constraints ignored.
	fallbackK := kMin
	if fallbackK < 2 {
		fallbackK = 2
	}
	logger.Warn("no admissible clustering found, falling back",
		zap.Int("k", fallbackK))
	best = kmeans(points, fallbackK, rng)
	for r := 1; r < restarts; r++ {
		if result := kmeans(points, fallbackK, rng); result.inertia < best.inertia {
			best = result
		}
	}
	return best, fallbackK, nil
}

func sizesAdmissible(labels []int, k, minSize, maxSize int) bool {
	if minSize <= 0 && maxSize <= 0 {
		return true
	}
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	for _, c := range counts {
		if minSize > 0 && c < minSize {
			return false
		}
		if maxSize > 0 && c > maxSize {
			return false
		}
	}
	return true
}

// choosePCs picks the smallest component count whose cumulative
// explained-variance ratio meets the threshold.
func choosePCs(eigenvalues []float64, total, threshold float64) int {
	if total <= 0 {
		return 1
	}
	cum := 0.0
	for i, ev := range eigenvalues {
		cum += ev / total
		if cum >= threshold {
			return i + 1
		}
	}
	return len(eigenvalues)
}

// buildLoadings projects each series onto the top pcs components, weighting
// each axis by the square root of its eigenvalue.
func buildLoadings(eigenvectors [][]float64, eigenvalues []float64, pcs int) [][]float64 {
	n := len(eigenvectors)
	loadings := make([][]float64, n)
	for j := 0; j < n; j++ {
		row := make([]float64, pcs)
		for i := 0; i < pcs; i++ {
			row[i] = eigenvectors[j][i] * math.Sqrt(eigenvalues[i])
		}
		loadings[j] = row
	}
	return loadings
}

// standardize scales each column to zero mean and unit variance. Columns with
// zero variance are left at zero rather than divided through.
func standardize(data [][]float64) [][]float64 {
	rows := len(data)
	cols := len(data[0])
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	for j := 0; j < cols; j++ {
		mean := 0.0
		for i := 0; i < rows; i++ {
			mean += data[i][j]
		}
		mean /= float64(rows)

		variance := 0.0
		for i := 0; i < rows; i++ {
			d := data[i][j] - mean
			variance += d * d
		}
		variance /= float64(rows - 1)

		if variance <= 0 {
			continue
		}
		sd := math.Sqrt(variance)
		for i := 0; i < rows; i++ {
			out[i][j] = (data[i][j] - mean) / sd
		}
	}
	return out
}

// covariance computes the sample covariance of already-centered columns.
func covariance(z [][]float64) [][]float64 {
	rows := len(z)
	cols := len(z[0])
	cov := make([][]float64, cols)
	for i := range cov {
		cov[i] = make([]float64, cols)
	}
	for a := 0; a < cols; a++ {
		for b := a; b < cols; b++ {
			sum := 0.0
			for i := 0; i < rows; i++ {
				sum += z[i][a] * z[i][b]
			}
			c := sum / float64(rows-1)
			cov[a][b] = c
			cov[b][a] = c
		}
	}
	return cov
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
