package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical run defaults file.
// This is the single source of truth for all default run parameters.
const DefaultConfigPath = "config/reduce.defaults.json"

// RunConfig represents the root configuration for a reduction run.
// All fields are pointers so partial JSON files only override what
// they mention; the Get* methods supply the defaults.
type RunConfig struct {
	// Clustering params
	Algorithm    *string            `json:"algorithm,omitempty"` // kmeans | spectral | hac | louvain | newman
	Clusters     *int               `json:"clusters,omitempty"`
	Seed         *int64             `json:"seed,omitempty"`
	Solver       *string            `json:"solver,omitempty"`
	FocusWeights map[string]float64 `json:"focus_weights,omitempty"` // country -> share of total budget
	CustomBusmap *string            `json:"custom_busmap,omitempty"` // CSV path; bypasses allocation

	// KMeans params
	KMeansNInit   *int     `json:"kmeans_n_init,omitempty"`
	KMeansMaxIter *int     `json:"kmeans_max_iter,omitempty"`
	KMeansTol     *float64 `json:"kmeans_tol,omitempty"`

	// HAC feature params
	FeatureCarriers []string `json:"feature_carriers,omitempty"`
	FeatureMode     *string  `json:"feature_mode,omitempty"` // cap | time

	// Aggregation params
	LineLengthFactor *float64 `json:"line_length_factor,omitempty"`
	ExtendedLinkCost *float64 `json:"extended_link_cost,omitempty"`
	PotentialMode    *string  `json:"potential_mode,omitempty"` // simple | conservative

	// Output params
	OutputDir *string `json:"output_dir,omitempty"`
	DBPath    *string `json:"db_path,omitempty"`
	Plots     *bool   `json:"plots,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// LoadRunConfig loads a RunConfig from a JSON file. Fields omitted from
// the JSON retain their default values, so partial configs are safe.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical run defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.Algorithm != nil {
		switch *c.Algorithm {
		case "kmeans", "spectral", "hac", "louvain", "newman":
		default:
			return fmt.Errorf("unknown algorithm %q", *c.Algorithm)
		}
	}

	if c.Clusters != nil && *c.Clusters < 1 {
		return fmt.Errorf("clusters must be positive, got %d", *c.Clusters)
	}

	if c.FeatureMode != nil {
		switch *c.FeatureMode {
		case "cap", "time":
		default:
			return fmt.Errorf("feature_mode must be cap or time, got %q", *c.FeatureMode)
		}
	}

	if c.PotentialMode != nil {
		switch *c.PotentialMode {
		case "simple", "conservative":
		default:
			return fmt.Errorf("potential_mode must be simple or conservative, got %q", *c.PotentialMode)
		}
	}

	if c.LineLengthFactor != nil && *c.LineLengthFactor <= 0 {
		return fmt.Errorf("line_length_factor must be positive, got %f", *c.LineLengthFactor)
	}

	total := 0.0
	for country, w := range c.FocusWeights {
		if w < 0 || w > 1 {
			return fmt.Errorf("focus weight for %s must be in [0,1], got %f", country, w)
		}
		total += w
	}
	if total > 1 {
		return fmt.Errorf("focus weights sum to %f, must not exceed 1", total)
	}

	return nil
}

// GetAlgorithm returns the algorithm or the default.
func (c *RunConfig) GetAlgorithm() string {
	if c.Algorithm == nil {
		return "kmeans"
	}
	return *c.Algorithm
}

// GetClusters returns the requested cluster count or the default.
func (c *RunConfig) GetClusters() int {
	if c.Clusters == nil {
		return 50
	}
	return *c.Clusters
}

// GetSeed returns the RNG seed or the default.
func (c *RunConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetSolver returns the allocation solver name or the default.
func (c *RunConfig) GetSolver() string {
	if c.Solver == nil {
		return "greedy"
	}
	return *c.Solver
}

// GetCustomBusmap returns the custom busmap path, empty when unset.
func (c *RunConfig) GetCustomBusmap() string {
	if c.CustomBusmap == nil {
		return ""
	}
	return *c.CustomBusmap
}

// GetKMeansNInit returns the restart count or the default.
func (c *RunConfig) GetKMeansNInit() int {
	if c.KMeansNInit == nil {
		return 1000
	}
	return *c.KMeansNInit
}

// GetKMeansMaxIter returns the per-restart iteration cap or the default.
func (c *RunConfig) GetKMeansMaxIter() int {
	if c.KMeansMaxIter == nil {
		return 30000
	}
	return *c.KMeansMaxIter
}

// GetKMeansTol returns the convergence tolerance or the default.
func (c *RunConfig) GetKMeansTol() float64 {
	if c.KMeansTol == nil {
		return 1e-6
	}
	return *c.KMeansTol
}

// GetFeatureCarriers returns the carriers used for feature profiles.
func (c *RunConfig) GetFeatureCarriers() []string {
	if len(c.FeatureCarriers) == 0 {
		return []string{"solar", "onwind"}
	}
	return c.FeatureCarriers
}

// GetFeatureMode returns the feature aggregation mode or the default.
func (c *RunConfig) GetFeatureMode() string {
	if c.FeatureMode == nil {
		return "cap"
	}
	return *c.FeatureMode
}

// GetLineLengthFactor returns the length factor or the default.
func (c *RunConfig) GetLineLengthFactor() float64 {
	if c.LineLengthFactor == nil {
		return 1.25
	}
	return *c.LineLengthFactor
}

// GetExtendedLinkCost returns the extended link cost or the default.
func (c *RunConfig) GetExtendedLinkCost() float64 {
	if c.ExtendedLinkCost == nil {
		return 0
	}
	return *c.ExtendedLinkCost
}

// GetPotentialMode returns the potential aggregation mode or the default.
func (c *RunConfig) GetPotentialMode() string {
	if c.PotentialMode == nil {
		return "simple"
	}
	return *c.PotentialMode
}

// GetOutputDir returns the output directory or the default.
func (c *RunConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return "out"
	}
	return *c.OutputDir
}

// GetDBPath returns the run database path, empty when persistence is off.
func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetPlots reports whether plot output is enabled.
func (c *RunConfig) GetPlots() bool {
	if c.Plots == nil {
		return false
	}
	return *c.Plots
}
