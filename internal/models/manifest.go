package models

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// RunManifest records the parameters of a completed research run so a report
// can be reproduced later from the same inputs.
type RunManifest struct {
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	DataPath       string    `json:"data_path"`
	Seed           int64     `json:"seed"`
	SeriesCount    int       `json:"series_count"`
	Observations   int       `json:"observations"`
	TrainRows      int       `json:"train_rows"`
	ValidationRows int       `json:"validation_rows"`
	TestRows       int       `json:"test_rows"`
	Clusters       int       `json:"clusters"`
	CandidatePairs int       `json:"candidate_pairs"`
	Evaluations    int       `json:"evaluations"`
	TopN           int       `json:"top_n"`
}

const manifestFileName = "run_manifest.json"

// WriteRunManifest writes the manifest into the output directory.
func WriteRunManifest(outputDir string, manifest *RunManifest) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	file, err := os.Create(filepath.Join(outputDir, manifestFileName))
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

// ReadRunManifest reads a previously written manifest from the output directory.
func ReadRunManifest(outputDir string) (*RunManifest, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, manifestFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}
	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}
