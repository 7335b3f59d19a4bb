package align

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/PairScope/pairscope/internal/models"
)

// ErrInsufficientData is returned when alignment or splitting is left with
// fewer series or observations than the pipeline minimum.
var ErrInsufficientData = errors.New("insufficient data")

// Split fractions are fixed by the windowing contract: 80% training, then the
// remainder divided evenly into validation and held-out test, always
// contiguous and in time order.
const (
	trainFraction      = 0.80
	validationFraction = 0.10
)

// LogPrices intersects the timestamps of all series and returns the aligned
// log-price matrix. Series identifiers become columns in sorted order so the
// result is independent of map iteration.
func LogPrices(series map[string][]models.PricePoint) (*models.AlignedMatrix, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 series, got %d", ErrInsufficientData, len(series))
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	// Count how many series observed each timestamp; keep timestamps seen by all.
	counts := make(map[time.Time]int)
	for _, points := range series {
		for _, p := range points {
			counts[p.Time]++
		}
	}
	var shared []time.Time
	for ts, n := range counts {
		if n == len(series) {
			shared = append(shared, ts)
		}
	}
	if len(shared) < 2 {
		return nil, fmt.Errorf("%w: only %d shared timestamps across %d series",
			ErrInsufficientData, len(shared), len(series))
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	index := make(map[time.Time]int, len(shared))
	for i, ts := range shared {
		index[ts] = i
	}

	matrix := &models.AlignedMatrix{
		Times:  shared,
		Series: names,
		Data:   make([][]float64, len(shared)),
	}
	for i := range matrix.Data {
		matrix.Data[i] = make([]float64, len(names))
	}
	for j, name := range names {
		for _, p := range series[name] {
			if row, ok := index[p.Time]; ok {
				matrix.Data[row][j] = math.Log(p.Price.InexactFloat64())
			}
		}
	}
	return matrix, nil
}

// LogReturns differences an aligned log-price matrix row-wise. The result has
// one fewer row; each row carries the timestamp of the later observation.
func LogReturns(prices *models.AlignedMatrix) *models.AlignedMatrix {
	n := prices.NumRows()
	out := &models.AlignedMatrix{
		Times:  append([]time.Time(nil), prices.Times[1:]...),
		Series: prices.Series,
		Data:   make([][]float64, n-1),
	}
	for i := 1; i < n; i++ {
		row := make([]float64, prices.NumSeries())
		for j := range row {
			row[j] = prices.Data[i][j] - prices.Data[i-1][j]
		}
		out.Data[i-1] = row
	}
	return out
}

// Split cuts an aligned matrix into contiguous training, validation, and test
// windows (80/10/10 of the rows). minRows guards the full pipeline; rows are
// never shuffled.
func Split(m *models.AlignedMatrix, minRows int) (train, validation, test *models.AlignedMatrix, err error) {
	n := m.NumRows()
	if n < minRows {
		return nil, nil, nil, fmt.Errorf("%w: %d rows, need at least %d for train/validation/test split",
			ErrInsufficientData, n, minRows)
	}

	trainEnd := int(float64(n) * trainFraction)
	validationEnd := trainEnd + int(float64(n)*validationFraction)
	if validationEnd >= n {
		validationEnd = n - 1
	}

	return m.Slice(0, trainEnd), m.Slice(trainEnd, validationEnd), m.Slice(validationEnd, n), nil
}
