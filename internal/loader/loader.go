package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/PairScope/pairscope/internal/models"
)

// Load reads price series from path. A directory is treated as a set of
// per-series CSV files (name taken from the file name); a single file is
// treated as a wide CSV with a timestamp column followed by one column per
// series. Rows with unparseable timestamps or non-positive prices are skipped
// with a warning; series that end up with fewer than two valid points are
// dropped. Each returned series is deduplicated and sorted by time.
func Load(path string, logger *zap.Logger) (map[string][]models.PricePoint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input %s: %w", path, err)
	}

	var series map[string][]models.PricePoint
	if info.IsDir() {
		series, err = loadDir(path, logger)
	} else {
		series, err = loadWide(path, logger)
	}
	if err != nil {
		return nil, err
	}

	for name, points := range series {
		cleaned := normalize(points)
		if len(cleaned) < 2 {
			logger.Warn("dropping series with too few valid points",
				zap.String("series", name),
				zap.Int("points", len(cleaned)))
			delete(series, name)
			continue
		}
		series[name] = cleaned
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("no usable series found in %s", path)
	}
	return series, nil
}

// loadDir reads every *.csv file in dir as one two-column series file.
func loadDir(dir string, logger *zap.Logger) (map[string][]models.PricePoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data dir: %w", err)
	}

	series := make(map[string][]models.PricePoint)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		points, err := loadNarrow(filepath.Join(dir, entry.Name()), logger)
		if err != nil {
			logger.Warn("skipping unreadable series file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		series[name] = points
	}
	return series, nil
}

// loadNarrow reads a timestamp,price file for a single series.
func loadNarrow(path string, logger *zap.Logger) ([]models.PricePoint, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var points []models.PricePoint
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		if i == 0 && looksLikeHeader(row[0]) {
			continue
		}
		ts, err := parseTimestamp(row[0])
		if err != nil {
			logger.Warn("skipping row with bad timestamp",
				zap.String("file", filepath.Base(path)),
				zap.Int("row", i+1),
				zap.String("value", row[0]))
			continue
		}
		price, ok := parsePrice(row[1])
		if !ok {
			logger.Warn("skipping row with bad price",
				zap.String("file", filepath.Base(path)),
				zap.Int("row", i+1),
				zap.String("value", row[1]))
			continue
		}
		points = append(points, models.PricePoint{Time: ts, Price: price})
	}
	return points, nil
}

// loadWide reads a timestamp,series1,series2,... file.
func loadWide(path string, logger *zap.Logger) (map[string][]models.PricePoint, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("wide CSV %s has no data rows", path)
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("wide CSV %s needs a timestamp column plus at least one series", path)
	}

	series := make(map[string][]models.PricePoint, len(header)-1)
	for _, name := range header[1:] {
		series[strings.TrimSpace(name)] = nil
	}

	for i, row := range rows[1:] {
		if len(row) != len(header) {
			logger.Warn("skipping row with wrong column count",
				zap.Int("row", i+2),
				zap.Int("want", len(header)),
				zap.Int("got", len(row)))
			continue
		}
		ts, err := parseTimestamp(row[0])
		if err != nil {
			logger.Warn("skipping row with bad timestamp",
				zap.Int("row", i+2),
				zap.String("value", row[0]))
			continue
		}
		for j, name := range header[1:] {
			price, ok := parsePrice(row[j+1])
			if !ok {
				// A single blank or bad cell drops only that cell; the aligner
				// intersects timestamps so the row survives for other series.
				continue
			}
			key := strings.TrimSpace(name)
			series[key] = append(series[key], models.PricePoint{Time: ts, Price: price})
		}
	}
	return series, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}

func looksLikeHeader(cell string) bool {
	_, err := parseTimestamp(cell)
	return err != nil
}

// parseTimestamp accepts RFC3339, date-only, and unix-second formats.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return ts.UTC(), nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// parsePrice parses a strictly-positive decimal price.
func parsePrice(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(value)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// normalize sorts by time and keeps the last point seen for a duplicate
// timestamp.
func normalize(points []models.PricePoint) []models.PricePoint {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	out := points[:0]
	for _, p := range points {
		if len(out) > 0 && out[len(out)-1].Time.Equal(p.Time) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
