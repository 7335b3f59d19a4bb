package coint

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/PairScope/pairscope/internal/models"
)

// Config bounds the cointegration sweep.
type Config struct {
	MaxLag      int // maximum ADF lag order considered
	MinObs      int // minimum observations per test, default 50
	MinObsARFit int // minimum residuals for the half-life AR(1) fit, default 20
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.MaxLag <= 0 {
		c.MaxLag = 8
	}
	if c.MinObs <= 0 {
		c.MinObs = 50
	}
	if c.MinObsARFit <= 0 {
		c.MinObsARFit = 20
	}
	return c
}

// TestPair runs the Engle-Granger procedure for one direction: OLS of y on x,
// ADF on the residual with BIC lag selection, then the half-life estimate.
func TestPair(yName, xName string, y, x []float64, cfg Config) (*models.CointResult, error) {
	cfg = cfg.withDefaults()
	if len(y) != len(x) {
		return nil, fmt.Errorf("series length mismatch: %d vs %d", len(y), len(x))
	}
	if len(y) < cfg.MinObs {
		return nil, fmt.Errorf("%w: %d observations, need %d", ErrInsufficientData, len(y), cfg.MinObs)
	}

	alpha, beta, residuals, err := OLS(y, x)
	if err != nil {
		return nil, err
	}

	adf, err := adfTest(residuals, cfg.MaxLag)
	if err != nil {
		return nil, err
	}

	return &models.CointResult{
		Pair:     models.Pair{Y: yName, X: xName},
		N:        adf.n,
		Alpha:    alpha,
		Beta:     beta,
		ADFStat:  adf.stat,
		UsedLag:  adf.usedLag,
		HalfLife: HalfLife(residuals, cfg.MinObsARFit),
		Pass5:    adf.stat < Critical5,
		Pass10:   adf.stat < Critical10,
		PValue:   ApproxPValue(adf.stat),
	}, nil
}

// HalfLife fits an AR(1) to the residuals and converts the persistence into a
// mean-reversion half-life. It returns NaN when there are too few residuals
// or the fitted phi is outside (0, 1), meaning the series is not
// mean-reverting by this estimator.
func HalfLife(residuals []float64, minObs int) float64 {
	if minObs <= 0 {
		minObs = 20
	}
	if len(residuals) < minObs {
		return math.NaN()
	}

	var num, den float64
	for i := 1; i < len(residuals); i++ {
		num += residuals[i] * residuals[i-1]
		den += residuals[i-1] * residuals[i-1]
	}
	if den == 0 {
		return math.NaN()
	}
	phi := num / den
	if phi <= 0 || phi >= 1 {
		return math.NaN()
	}
	return -math.Ln2 / math.Log(phi)
}

// Sweep tests every ordered pair within each cluster on the training window.
// Per-pair failures are skipped so one degenerate pair never aborts the
// sweep; the result always reflects every pair that could be tested.
func Sweep(train *models.AlignedMatrix, labels map[string]int, cfg Config, logger *zap.Logger) []models.CointResult {
	// Group series by cluster, keeping deterministic order.
	clusters := make(map[int][]string)
	for _, name := range train.Series {
		id, ok := labels[name]
		if !ok {
			continue
		}
		clusters[id] = append(clusters[id], name)
	}
	ids := make([]int, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var results []models.CointResult
	tested, skipped := 0, 0
	for _, id := range ids {
		members := clusters[id]
		sort.Strings(members)
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				for _, pair := range [][2]string{{members[i], members[j]}, {members[j], members[i]}} {
					y, _ := train.ColByName(pair[0])
					x, _ := train.ColByName(pair[1])
					result, err := TestPair(pair[0], pair[1], y, x, cfg)
					if err != nil {
						skipped++
						logger.Debug("skipping pair",
							zap.String("y", pair[0]),
							zap.String("x", pair[1]),
							zap.Error(err))
						continue
					}
					result.Cluster = id
					results = append(results, *result)
					tested++
				}
			}
		}
	}

	logger.Info("cointegration sweep complete",
		zap.Int("clusters", len(ids)),
		zap.Int("tested", tested),
		zap.Int("skipped", skipped))
	return results
}

// Passing filters sweep results down to the candidates that reject the null
// at the 5% level (or 10% when loose is set).
func Passing(results []models.CointResult, loose bool) []models.CointResult {
	var out []models.CointResult
	for _, r := range results {
		if r.Pass5 || (loose && r.Pass10) {
			out = append(out, r)
		}
	}
	return out
}
