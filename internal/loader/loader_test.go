package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAA.csv", "timestamp,price\n2024-01-01,100\n2024-01-02,101\n2024-01-03,102\n")
	writeFile(t, dir, "BBB.csv", "timestamp,price\n2024-01-01,50\n2024-01-02,51\n")
	writeFile(t, dir, "notes.txt", "ignore me")

	series, err := Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if len(series["AAA"]) != 3 {
		t.Errorf("expected 3 points for AAA, got %d", len(series["AAA"]))
	}
	if series["AAA"][0].Price.String() != "100" {
		t.Errorf("expected first AAA price 100, got %s", series["AAA"][0].Price)
	}
}

func TestLoadWideCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prices.csv",
		"timestamp,AAA,BBB\n"+
			"2024-01-01,100,50\n"+
			"2024-01-02,101,\n"+ // blank BBB cell drops only that cell
			"2024-01-03,102,52\n")

	series, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(series["AAA"]) != 3 {
		t.Errorf("expected 3 AAA points, got %d", len(series["AAA"]))
	}
	if len(series["BBB"]) != 2 {
		t.Errorf("expected 2 BBB points after the blank cell, got %d", len(series["BBB"]))
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAA.csv",
		"timestamp,price\n"+
			"2024-01-01,100\n"+
			"not-a-date,101\n"+
			"2024-01-02,-5\n"+ // non-positive price
			"2024-01-03,zero\n"+ // unparseable price
			"2024-01-04,104\n")
	writeFile(t, dir, "BBB.csv", "timestamp,price\n2024-01-01,50\n2024-01-04,53\n")

	series, err := Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series["AAA"]) != 2 {
		t.Errorf("expected 2 surviving AAA points, got %d", len(series["AAA"]))
	}
}

func TestLoadDropsShortSeries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAA.csv", "timestamp,price\n2024-01-01,100\n2024-01-02,101\n")
	writeFile(t, dir, "ONE.csv", "timestamp,price\n2024-01-01,100\n")

	series, err := Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := series["ONE"]; ok {
		t.Error("series with a single valid point should be dropped")
	}
	if _, ok := series["AAA"]; !ok {
		t.Error("two-point series should survive")
	}
}

func TestLoadDeduplicatesKeepingLast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAA.csv",
		"timestamp,price\n"+
			"2024-01-02,200\n"+
			"2024-01-01,100\n"+
			"2024-01-02,201\n") // duplicate timestamp, later row wins

	series, err := Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	points := series["AAA"]
	if len(points) != 2 {
		t.Fatalf("expected 2 deduplicated points, got %d", len(points))
	}
	if !points[0].Time.Before(points[1].Time) {
		t.Error("points should be sorted by time")
	}
	if points[1].Price.String() != "201" {
		t.Errorf("expected duplicate resolution to keep the last value, got %s", points[1].Price)
	}
}

func TestLoadMissingPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope"), zap.NewNop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestParseTimestampFormats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05T14:30:00Z", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)},
		{"1709649000", time.Unix(1709649000, 0).UTC()},
	}
	for _, c := range cases {
		got, err := parseTimestamp(c.in)
		if err != nil {
			t.Errorf("parseTimestamp(%q): unexpected error %v", c.in, err)
			continue
		}
		if !got.Equal(c.want) {
			t.Errorf("parseTimestamp(%q): expected %v, got %v", c.in, c.want, got)
		}
	}

	if _, err := parseTimestamp("03/05/2024"); err == nil {
		t.Error("expected error for unsupported timestamp format")
	}
}
