package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	testEnv := map[string]string{
		"PAIRSCOPE_DATA":             "/tmp/prices",
		"PAIRSCOPE_SEED":             "7",
		"PAIRSCOPE_PERIODS_PER_YEAR": "365",
		"PAIRSCOPE_MAX_ADF_LAG":      "4",
		"PAIRSCOPE_TOP_N":            "3",
	}
	for key, value := range testEnv {
		os.Setenv(key, value)
	}
	defer func() {
		for key := range testEnv {
			os.Unsetenv(key)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DataPath != "/tmp/prices" {
		t.Errorf("Expected DataPath='/tmp/prices', got '%s'", cfg.DataPath)
	}
	if cfg.Seed != 7 {
		t.Errorf("Expected Seed=7, got %d", cfg.Seed)
	}
	if cfg.PeriodsPerYear != 365 {
		t.Errorf("Expected PeriodsPerYear=365, got %v", cfg.PeriodsPerYear)
	}
	if cfg.MaxADFLag != 4 {
		t.Errorf("Expected MaxADFLag=4, got %d", cfg.MaxADFLag)
	}
	if cfg.TopN != 3 {
		t.Errorf("Expected TopN=3, got %d", cfg.TopN)
	}

	// Untouched fields keep their defaults.
	if cfg.OutputDir != "out" {
		t.Errorf("Expected default OutputDir='out', got '%s'", cfg.OutputDir)
	}
	if cfg.MinSplitRows != 300 {
		t.Errorf("Expected default MinSplitRows=300, got %d", cfg.MinSplitRows)
	}
	if cfg.VarianceThreshold != 0.85 {
		t.Errorf("Expected default VarianceThreshold=0.85, got %v", cfg.VarianceThreshold)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PAIRSCOPE_DATA", "PAIRSCOPE_OUT", "PAIRSCOPE_SEED",
		"PAIRSCOPE_PERIODS_PER_YEAR", "PAIRSCOPE_MIN_SPLIT_ROWS",
		"PAIRSCOPE_MAX_ADF_LAG", "PAIRSCOPE_MIN_OBS_COINT",
		"PAIRSCOPE_VARIANCE_THRESHOLD", "PAIRSCOPE_TARGET_PER_CLUSTER",
		"PAIRSCOPE_WORKERS", "PAIRSCOPE_TOP_N",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Seed != 42 {
		t.Errorf("Expected default Seed=42, got %d", cfg.Seed)
	}
	if cfg.PeriodsPerYear != 252 {
		t.Errorf("Expected default PeriodsPerYear=252, got %v", cfg.PeriodsPerYear)
	}
	if cfg.MinObsCoint != 50 {
		t.Errorf("Expected default MinObsCoint=50, got %d", cfg.MinObsCoint)
	}
	if cfg.Workers != 0 {
		t.Errorf("Expected default Workers=0 (all CPUs), got %d", cfg.Workers)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PAIRSCOPE_PERIODS_PER_YEAR":   "-1",
		"PAIRSCOPE_VARIANCE_THRESHOLD": "1.5",
		"PAIRSCOPE_MIN_OBS_COINT":      "5",
	}
	for key, value := range cases {
		os.Setenv(key, value)
		_, err := Load()
		os.Unsetenv(key)
		if err == nil {
			t.Errorf("Expected error for %s=%s, got nil", key, value)
		}
	}
}

func TestLoadSearchDefaults(t *testing.T) {
	sc, err := LoadSearch("")
	if err != nil {
		t.Fatalf("LoadSearch(\"\") failed: %v", err)
	}

	if len(sc.Thresholds.Entry) != 3 || sc.Thresholds.Entry[1] != 2.0 {
		t.Errorf("unexpected default entry grid: %v", sc.Thresholds.Entry)
	}
	if len(sc.Modes) != 2 {
		t.Errorf("expected both hedge modes by default, got %v", sc.Modes)
	}
	if sc.Cluster.Manual {
		t.Error("expected automatic clustering by default")
	}
	if sc.Cluster.KMin != 2 || sc.Cluster.KMax != 8 {
		t.Errorf("unexpected default K range: [%d, %d]", sc.Cluster.KMin, sc.Cluster.KMax)
	}
	if len(sc.Noise.Q) != 0 || len(sc.Noise.R) != 0 {
		t.Error("expected adaptive noise grid (empty q/r) by default")
	}
}

func TestLoadSearchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	content := `thresholds:
  entry: [2.0]
  exit: [0.5]
  stop: [4.0]
sizing: [fixed]
modes: [kalman]
noise:
  q: [0.01, 0.001]
  r: [0.04]
cluster:
  manual: true
  pcs: 4
  k: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	sc, err := LoadSearch(path)
	if err != nil {
		t.Fatalf("LoadSearch() failed: %v", err)
	}

	if len(sc.Thresholds.Entry) != 1 || sc.Thresholds.Entry[0] != 2.0 {
		t.Errorf("unexpected entry grid: %v", sc.Thresholds.Entry)
	}
	if len(sc.Modes) != 1 || sc.Modes[0] != "kalman" {
		t.Errorf("unexpected modes: %v", sc.Modes)
	}
	if len(sc.Noise.Q) != 2 || sc.Noise.R[0] != 0.04 {
		t.Errorf("unexpected noise grid: q=%v r=%v", sc.Noise.Q, sc.Noise.R)
	}
	if !sc.Cluster.Manual || sc.Cluster.K != 3 || sc.Cluster.PCs != 4 {
		t.Errorf("unexpected cluster search: %+v", sc.Cluster)
	}
	// Fields absent from the file keep their defaults.
	if sc.Cluster.Restarts != 5 {
		t.Errorf("expected default restarts 5, got %d", sc.Cluster.Restarts)
	}
}

func TestLoadSearchMissingFile(t *testing.T) {
	if _, err := LoadSearch(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for an explicit missing path")
	}
}

func TestLoadSearchRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty entry grid": `thresholds:
  entry: []
  exit: [0.5]
  stop: [4.0]
`,
		"negative threshold": `thresholds:
  entry: [-1.0]
  exit: [0.5]
  stop: [4.0]
`,
		"unknown sizing": `sizing: [martingale]
`,
		"unknown mode": `modes: [particle]
`,
		"q without r": `noise:
  q: [0.01]
`,
		"non-positive noise": `noise:
  q: [0.0]
  r: [0.04]
`,
	}
	dir := t.TempDir()
	for name, content := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
		if _, err := LoadSearch(path); err == nil {
			t.Errorf("%s: expected validation error, got nil", name)
		}
	}
}
