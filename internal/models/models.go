package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single observation of a series: a timestamp and a
// strictly-positive price as parsed from the input data.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// AlignedMatrix holds time-aligned values for a set of series.
// Rows are strictly-increasing timestamps, columns are unique series
// identifiers, and every cell is defined. Depending on the producer the
// values are either log-prices or log-returns.
type AlignedMatrix struct {
	Times  []time.Time `json:"times"`
	Series []string    `json:"series"`
	Data   [][]float64 `json:"data"` // Data[row][col], row aligned with Times, col with Series
}

// NumRows returns the number of timestamps.
func (m *AlignedMatrix) NumRows() int {
	return len(m.Times)
}

// NumSeries returns the number of series columns.
func (m *AlignedMatrix) NumSeries() int {
	return len(m.Series)
}

// Col extracts a copy of a single series column by index.
func (m *AlignedMatrix) Col(j int) []float64 {
	out := make([]float64, len(m.Data))
	for i := range m.Data {
		out[i] = m.Data[i][j]
	}
	return out
}

// ColByName extracts a copy of a single series column by identifier.
// The second return value is false when the series is unknown.
func (m *AlignedMatrix) ColByName(name string) ([]float64, bool) {
	for j, s := range m.Series {
		if s == name {
			return m.Col(j), true
		}
	}
	return nil, false
}

// Slice returns a copy of rows [lo, hi).
func (m *AlignedMatrix) Slice(lo, hi int) *AlignedMatrix {
	out := &AlignedMatrix{
		Times:  append([]time.Time(nil), m.Times[lo:hi]...),
		Series: m.Series,
		Data:   make([][]float64, hi-lo),
	}
	for i := lo; i < hi; i++ {
		out.Data[i-lo] = append([]float64(nil), m.Data[i]...)
	}
	return out
}

// Pair identifies an ordered pair of series. Direction matters: Y is the
// dependent variable of the regression, so (Y,X) and (X,Y) are distinct tests.
type Pair struct {
	Y string `json:"y"`
	X string `json:"x"`
}

// CointResult is the immutable outcome of one directional cointegration test
// on a training window.
type CointResult struct {
	Cluster  int     `json:"cluster"`
	Pair     Pair    `json:"pair"`
	N        int     `json:"n"`
	Alpha    float64 `json:"alpha"`
	Beta     float64 `json:"beta"`
	ADFStat  float64 `json:"adf_stat"`
	UsedLag  int     `json:"used_lag"`
	HalfLife float64 `json:"half_life"` // NaN when the residual is not mean-reverting
	Pass5    bool    `json:"pass_5"`
	Pass10   bool    `json:"pass_10"`
	PValue   float64 `json:"approx_pvalue"`
}

// HasHalfLife reports whether the half-life estimate is defined.
func (r *CointResult) HasHalfLife() bool {
	return !math.IsNaN(r.HalfLife) && r.HalfLife > 0
}

// SizingMode selects how position size is derived for the backtest.
type SizingMode string

const (
	SizingFixed          SizingMode = "fixed"            // unit size
	SizingHalfLifeScaled SizingMode = "half_life_scaled" // 1/sqrt(max(1, half-life))
	SizingVolScaled      SizingMode = "vol_scaled"       // 1/sigma_train
)

// Mode is the hedge-estimation mode for a validation configuration. It is a
// sealed variant: Static carries no parameters while Kalman carries its noise
// parameters, so a static config can never hold a stray Q or R.
type Mode interface {
	ModeName() string
	sealed()
}

// Static reuses the training-window OLS alpha/beta unchanged.
type Static struct{}

// ModeName implements Mode.
func (Static) ModeName() string { return "static" }

func (Static) sealed() {}

// Kalman estimates a time-varying hedge ratio with the given process noise Q
// and measurement noise R.
type Kalman struct {
	Q float64 `json:"q"`
	R float64 `json:"r"`
}

// ModeName implements Mode.
func (Kalman) ModeName() string { return "kalman" }

func (Kalman) sealed() {}

// ValidationConfig is one coordinate of the parameter grid.
type ValidationConfig struct {
	ZEntry float64    `json:"z_entry"`
	ZExit  float64    `json:"z_exit"`
	ZStop  float64    `json:"z_stop"`
	Sizing SizingMode `json:"sizing"`
	Mode   Mode       `json:"-"`
}

// BacktestReport holds the performance metrics for one residual path and one
// configuration. It is a pure function of its inputs.
type BacktestReport struct {
	Sharpe       float64 `json:"sharpe"`
	Calmar       float64 `json:"calmar"`
	MaxDrawdown  float64 `json:"max_dd"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	Turnover     float64 `json:"turnover"`
	Trades       int     `json:"trades"`
}

// ValidationResult joins a candidate pair, one grid configuration, and the
// backtest metrics it produced on a specific window.
type ValidationResult struct {
	Pair     Pair             `json:"pair"`
	Alpha    float64          `json:"alpha"`
	Beta     float64          `json:"beta"`
	HalfLife float64          `json:"half_life"`
	Config   ValidationConfig `json:"config"`
	Report   BacktestReport   `json:"report"`
}

// EquityCurve is the cumulative PnL of one selected strategy over the
// out-of-sample window, one value per timestamp.
type EquityCurve struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}
