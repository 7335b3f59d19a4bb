package formatters

import (
	"fmt"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/PairScope/pairscope/internal/cluster"
	"github.com/PairScope/pairscope/internal/models"
)

// Colors for different values
var (
	ColorGreen  = text.FgGreen
	ColorRed    = text.FgRed
	ColorYellow = text.FgYellow
	ColorGray   = text.FgHiBlack
)

// FormatStat renders an ADF statistic, green when it rejects at 5%, yellow at
// 10%, plain otherwise.
func FormatStat(stat float64, pass5, pass10 bool) string {
	s := fmt.Sprintf("%.3f", stat)
	if pass5 {
		return ColorGreen.Sprint(s)
	}
	if pass10 {
		return ColorYellow.Sprint(s)
	}
	return s
}

// FormatSharpe renders a Sharpe ratio with color by sign.
func FormatSharpe(sharpe float64) string {
	s := fmt.Sprintf("%.2f", sharpe)
	if sharpe > 0 {
		return ColorGreen.Sprint(s)
	}
	if sharpe < 0 {
		return ColorRed.Sprint(s)
	}
	return s
}

// formatHalfLife prints a half-life or a gray dash when undefined.
func formatHalfLife(halfLife float64) string {
	if math.IsNaN(halfLife) || halfLife <= 0 {
		return ColorGray.Sprint("-")
	}
	return fmt.Sprintf("%.1f", halfLife)
}

// FormatClusterTable creates a per-cluster membership summary table.
func FormatClusterTable(result *cluster.Result) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Cluster", "Size", "Members"})

	byCluster := make(map[int][]string)
	for name, id := range result.Labels {
		byCluster[id] = append(byCluster[id], name)
	}
	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		members := byCluster[id]
		sort.Strings(members)
		t.AppendRow(table.Row{id, len(members), joinLimited(members, 8)})
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"", "", fmt.Sprintf("k=%d pcs=%d inertia=%.4f", result.K, result.PCs, result.Inertia)})
	return t.Render()
}

// FormatCointTable creates a table of cointegration results, strongest first.
func FormatCointTable(results []models.CointResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Cluster", "Y", "X", "N", "ADF", "Beta", "Lag", "Half-Life", "p"})

	sorted := append([]models.CointResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ADFStat < sorted[j].ADFStat })

	for _, r := range sorted {
		t.AppendRow(table.Row{
			r.Cluster,
			r.Pair.Y,
			r.Pair.X,
			r.N,
			FormatStat(r.ADFStat, r.Pass5, r.Pass10),
			fmt.Sprintf("%.4f", r.Beta),
			r.UsedLag,
			formatHalfLife(r.HalfLife),
			fmt.Sprintf("%.3f", r.PValue),
		})
	}
	if len(sorted) == 0 {
		t.AppendRow(table.Row{"No results", "", "", "", "", "", "", "", ""})
	}
	return t.Render()
}

// FormatValidationTable creates a ranked table of the top validation results.
func FormatValidationTable(results []models.ValidationResult, limit int) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		"#", "Pair", "Mode", "Entry", "Exit", "Stop", "Sizing", "Sharpe", "Calmar", "MaxDD", "Win%", "PF", "Trades"})

	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}
	for i := 0; i < limit; i++ {
		r := results[i]
		mode := r.Config.Mode.ModeName()
		if k, ok := r.Config.Mode.(models.Kalman); ok {
			mode = fmt.Sprintf("kalman q=%.2g r=%.2g", k.Q, k.R)
		}
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%s/%s", r.Pair.Y, r.Pair.X),
			mode,
			fmt.Sprintf("%.2f", r.Config.ZEntry),
			fmt.Sprintf("%.2f", r.Config.ZExit),
			fmt.Sprintf("%.2f", r.Config.ZStop),
			string(r.Config.Sizing),
			FormatSharpe(r.Report.Sharpe),
			fmt.Sprintf("%.2f", r.Report.Calmar),
			fmt.Sprintf("%.4f", r.Report.MaxDrawdown),
			fmt.Sprintf("%.0f%%", r.Report.WinRate*100),
			formatProfitFactor(r.Report.ProfitFactor),
			r.Report.Trades,
		})
	}
	if limit == 0 {
		t.AppendRow(table.Row{"No results", "", "", "", "", "", "", "", "", "", "", "", ""})
	}
	return t.Render()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return ColorGreen.Sprint("inf")
	}
	return fmt.Sprintf("%.2f", pf)
}

func joinLimited(items []string, max int) string {
	if len(items) <= max {
		out := ""
		for i, s := range items {
			if i > 0 {
				out += " "
			}
			out += s
		}
		return out
	}
	out := ""
	for i := 0; i < max; i++ {
		if i > 0 {
			out += " "
		}
		out += items[i]
	}
	return fmt.Sprintf("%s +%d more", out, len(items)-max)
}
