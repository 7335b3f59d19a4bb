package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Data
	DataPath  string
	OutputDir string

	// Reproducibility
	Seed int64

	// Windowing
	PeriodsPerYear float64
	MinSplitRows   int

	// Cointegration
	MaxADFLag   int
	MinObsCoint int
	MinObsARFit int

	// Clustering defaults (automatic mode)
	VarianceThreshold float64
	TargetPerCluster  int

	// Grid search
	Workers int
	TopN    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		// Data
		DataPath:  getEnv("PAIRSCOPE_DATA", "data"),
		OutputDir: getEnv("PAIRSCOPE_OUT", "out"),

		// Reproducibility
		Seed: getEnvInt64("PAIRSCOPE_SEED", 42),

		// Windowing
		PeriodsPerYear: getEnvFloat("PAIRSCOPE_PERIODS_PER_YEAR", 252.0),
		MinSplitRows:   getEnvInt("PAIRSCOPE_MIN_SPLIT_ROWS", 300),

		// Cointegration
		MaxADFLag:   getEnvInt("PAIRSCOPE_MAX_ADF_LAG", 8),
		MinObsCoint: getEnvInt("PAIRSCOPE_MIN_OBS_COINT", 50),
		MinObsARFit: getEnvInt("PAIRSCOPE_MIN_OBS_AR", 20),

		// Clustering
		VarianceThreshold: getEnvFloat("PAIRSCOPE_VARIANCE_THRESHOLD", 0.85),
		TargetPerCluster:  getEnvInt("PAIRSCOPE_TARGET_PER_CLUSTER", 10),

		// Grid search
		Workers: getEnvInt("PAIRSCOPE_WORKERS", 0), // 0 = use all CPUs
		TopN:    getEnvInt("PAIRSCOPE_TOP_N", 5),
	}

	// Validate fields that would poison every downstream stage
	if cfg.PeriodsPerYear <= 0 {
		return nil, fmt.Errorf("PAIRSCOPE_PERIODS_PER_YEAR must be positive, got %v", cfg.PeriodsPerYear)
	}
	if cfg.VarianceThreshold <= 0 || cfg.VarianceThreshold > 1 {
		return nil, fmt.Errorf("PAIRSCOPE_VARIANCE_THRESHOLD must be in (0, 1], got %v", cfg.VarianceThreshold)
	}
	if cfg.MinObsCoint < 10 {
		return nil, fmt.Errorf("PAIRSCOPE_MIN_OBS_COINT must be at least 10, got %d", cfg.MinObsCoint)
	}

	return cfg, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
