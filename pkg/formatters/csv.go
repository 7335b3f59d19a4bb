package formatters

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/PairScope/pairscope/internal/models"
)

// WriteClusterCSV writes the series-to-cluster table: one row per series.
func WriteClusterCSV(w io.Writer, labels map[string]int) error {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"series", "cluster_id"}); err != nil {
		return err
	}
	for _, name := range names {
		if err := writer.Write([]string{name, strconv.Itoa(labels[name])}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCointCSV writes the cointegration table: one row per directional pair.
func WriteCointCSV(w io.Writer, results []models.CointResult) error {
	writer := csv.NewWriter(w)
	header := []string{
		"cluster", "series_y", "series_x", "n", "adf_stat", "beta", "alpha",
		"used_lag", "half_life", "pass_5", "pass_10", "approx_pvalue"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			strconv.Itoa(r.Cluster),
			r.Pair.Y,
			r.Pair.X,
			strconv.Itoa(r.N),
			formatFloat(r.ADFStat),
			formatFloat(r.Beta),
			formatFloat(r.Alpha),
			strconv.Itoa(r.UsedLag),
			formatOptionalFloat(r.HalfLife),
			strconv.FormatBool(r.Pass5),
			strconv.FormatBool(r.Pass10),
			formatFloat(r.PValue),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteValidationCSV writes the validation table: one row per evaluated
// configuration. The q/r columns are empty for static mode.
func WriteValidationCSV(w io.Writer, results []models.ValidationResult) error {
	writer := csv.NewWriter(w)
	header := []string{
		"pair_y", "pair_x", "mode", "z_entry", "z_exit", "z_stop", "sizing",
		"sharpe", "calmar", "max_dd", "win_rate", "profit_factor", "turnover",
		"alpha", "beta", "half_life", "q", "r"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		q, rNoise := "", ""
		if k, ok := r.Config.Mode.(models.Kalman); ok {
			q = formatFloat(k.Q)
			rNoise = formatFloat(k.R)
		}
		row := []string{
			r.Pair.Y,
			r.Pair.X,
			r.Config.Mode.ModeName(),
			formatFloat(r.Config.ZEntry),
			formatFloat(r.Config.ZExit),
			formatFloat(r.Config.ZStop),
			string(r.Config.Sizing),
			formatFloat(r.Report.Sharpe),
			formatFloat(r.Report.Calmar),
			formatFloat(r.Report.MaxDrawdown),
			formatFloat(r.Report.WinRate),
			formatFloat(r.Report.ProfitFactor),
			formatFloat(r.Report.Turnover),
			formatFloat(r.Alpha),
			formatFloat(r.Beta),
			formatOptionalFloat(r.HalfLife),
			q,
			rNoise,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteEquityCSV writes the out-of-sample equity table: one row per test
// timestamp, one column per selected strategy.
func WriteEquityCSV(w io.Writer, times []time.Time, curves []models.EquityCurve) error {
	writer := csv.NewWriter(w)
	header := make([]string, 0, len(curves)+1)
	header = append(header, "timestamp")
	for _, c := range curves {
		header = append(header, c.Label)
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for i, ts := range times {
		row := make([]string, 0, len(curves)+1)
		row = append(row, ts.UTC().Format(time.RFC3339))
		for _, c := range curves {
			if i < len(c.Values) {
				row = append(row, formatFloat(c.Values[i]))
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.6g", v)
}

// formatOptionalFloat leaves undefined values empty.
func formatOptionalFloat(v float64) string {
	if math.IsNaN(v) || v <= 0 {
		return ""
	}
	return fmt.Sprintf("%.6g", v)
}
