package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// SearchConfig describes the parameter grid and the cluster search, loaded
// from an optional YAML file. Missing fields fall back to defaults.
type SearchConfig struct {
	Thresholds ThresholdGrid `mapstructure:"thresholds"`
	Sizing     []string      `mapstructure:"sizing"`
	Modes      []string      `mapstructure:"modes"`
	Noise      NoiseGrid     `mapstructure:"noise"`
	Cluster    ClusterSearch `mapstructure:"cluster"`
}

// ThresholdGrid holds the z-score threshold candidates.
type ThresholdGrid struct {
	Entry []float64 `mapstructure:"entry"`
	Exit  []float64 `mapstructure:"exit"`
	Stop  []float64 `mapstructure:"stop"`
}

// NoiseGrid holds explicit Kalman noise candidates. Empty slices mean the
// grid is derived adaptively from each pair's half-life and residual variance.
type NoiseGrid struct {
	Q []float64 `mapstructure:"q"`
	R []float64 `mapstructure:"r"`
}

// ClusterSearch holds the manual-mode clustering parameters.
type ClusterSearch struct {
	Manual   bool `mapstructure:"manual"`
	PCs      int  `mapstructure:"pcs"`
	K        int  `mapstructure:"k"` // fixed K; 0 means search [KMin, KMax]
	KMin     int  `mapstructure:"k_min"`
	KMax     int  `mapstructure:"k_max"`
	Restarts int  `mapstructure:"restarts"`
	MinSize  int  `mapstructure:"min_size"`
	MaxSize  int  `mapstructure:"max_size"`
}

// LoadSearch reads the search configuration from a YAML file. An empty path
// returns the defaults; a missing file at an explicit path is an error.
func LoadSearch(path string) (*SearchConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("thresholds.entry", []float64{1.5, 2.0, 2.5})
	v.SetDefault("thresholds.exit", []float64{0.25, 0.5, 0.75})
	v.SetDefault("thresholds.stop", []float64{3.5, 4.5})
	v.SetDefault("sizing", []string{"fixed", "half_life_scaled", "vol_scaled"})
	v.SetDefault("modes", []string{"static", "kalman"})
	v.SetDefault("noise.q", []float64{})
	v.SetDefault("noise.r", []float64{})
	v.SetDefault("cluster.manual", false)
	v.SetDefault("cluster.pcs", 5)
	v.SetDefault("cluster.k", 0)
	v.SetDefault("cluster.k_min", 2)
	v.SetDefault("cluster.k_max", 8)
	v.SetDefault("cluster.restarts", 5)
	v.SetDefault("cluster.min_size", 2)
	v.SetDefault("cluster.max_size", 50)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("search config %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read search config: %w", err)
		}
	}

	var sc SearchConfig
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse search config: %w", err)
	}

	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *SearchConfig) validate() error {
	if len(sc.Thresholds.Entry) == 0 || len(sc.Thresholds.Exit) == 0 || len(sc.Thresholds.Stop) == 0 {
		return fmt.Errorf("threshold grids must not be empty")
	}
	for _, z := range append(append(append([]float64{}, sc.Thresholds.Entry...), sc.Thresholds.Exit...), sc.Thresholds.Stop...) {
		if z < 0 {
			return fmt.Errorf("z thresholds must be non-negative, got %v", z)
		}
	}
	for _, s := range sc.Sizing {
		switch s {
		case "fixed", "half_life_scaled", "vol_scaled":
		default:
			return fmt.Errorf("unknown sizing mode %q", s)
		}
	}
	for _, m := range sc.Modes {
		if m != "static" && m != "kalman" {
			return fmt.Errorf("unknown hedge mode %q", m)
		}
	}
	if (len(sc.Noise.Q) == 0) != (len(sc.Noise.R) == 0) {
		return fmt.Errorf("explicit noise grid requires both q and r candidates")
	}
	for _, q := range sc.Noise.Q {
		if q <= 0 {
			return fmt.Errorf("process noise candidates must be positive, got %v", q)
		}
	}
	for _, r := range sc.Noise.R {
		if r <= 0 {
			return fmt.Errorf("measurement noise candidates must be positive, got %v", r)
		}
	}
	return nil
}
