package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// All fields are pointers so a partial JSON file overrides only the values
// it names; the Get* methods supply defaults for everything else.
type TuningConfig struct {
	// Stable fit params
	StabilityThreshold *float64 `json:"stability_threshold,omitempty"`
	ShrinkStep         *int     `json:"shrink_step,omitempty"`
	MinObsFactor       *float64 `json:"min_obs_factor,omitempty"`
	HarmonicOrder      *int     `json:"harmonic_order,omitempty"`

	// Outlier screen params
	ControlLimit        *float64 `json:"control_limit,omitempty"`
	ScreenScalingFactor *float64 `json:"screen_scaling_factor,omitempty"`

	// Robust fit params
	RobustMaxIter *int     `json:"robust_max_iter,omitempty"`
	RobustTol     *float64 `json:"robust_tol,omitempty"`
	RobustTune    *float64 `json:"robust_tune,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its default value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		StabilityThreshold:  ptrFloat64(3),
		ShrinkStep:          ptrInt(2),
		MinObsFactor:        ptrFloat64(1.5),
		HarmonicOrder:       ptrInt(1),
		ControlLimit:        ptrFloat64(5),
		ScreenScalingFactor: ptrFloat64(10000),
		RobustMaxIter:       ptrInt(50),
		RobustTol:           ptrFloat64(1e-8),
		RobustTune:          ptrFloat64(4.685),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.StabilityThreshold != nil && *c.StabilityThreshold <= 0 {
		return fmt.Errorf("stability_threshold must be positive, got %f", *c.StabilityThreshold)
	}
	if c.ShrinkStep != nil && *c.ShrinkStep < 1 {
		return fmt.Errorf("shrink_step must be at least 1, got %d", *c.ShrinkStep)
	}
	if c.MinObsFactor != nil && *c.MinObsFactor < 1 {
		return fmt.Errorf("min_obs_factor must be at least 1, got %f", *c.MinObsFactor)
	}
	if c.HarmonicOrder != nil && *c.HarmonicOrder < 0 {
		return fmt.Errorf("harmonic_order must be non-negative, got %d", *c.HarmonicOrder)
	}
	if c.ControlLimit != nil && *c.ControlLimit <= 0 {
		return fmt.Errorf("control_limit must be positive, got %f", *c.ControlLimit)
	}
	if c.ScreenScalingFactor != nil && *c.ScreenScalingFactor <= 0 {
		return fmt.Errorf("screen_scaling_factor must be positive, got %f", *c.ScreenScalingFactor)
	}
	if c.RobustMaxIter != nil && *c.RobustMaxIter < 1 {
		return fmt.Errorf("robust_max_iter must be at least 1, got %d", *c.RobustMaxIter)
	}
	if c.RobustTol != nil && *c.RobustTol <= 0 {
		return fmt.Errorf("robust_tol must be positive, got %f", *c.RobustTol)
	}
	if c.RobustTune != nil && *c.RobustTune <= 0 {
		return fmt.Errorf("robust_tune must be positive, got %f", *c.RobustTune)
	}
	return nil
}

// GetStabilityThreshold returns the stability_threshold value or the default.
func (c *TuningConfig) GetStabilityThreshold() float64 {
	if c.StabilityThreshold == nil {
		return 3 // default
	}
	return *c.StabilityThreshold
}

// GetShrinkStep returns the shrink_step value or the default.
func (c *TuningConfig) GetShrinkStep() int {
	if c.ShrinkStep == nil {
		return 2 // default
	}
	return *c.ShrinkStep
}

// GetMinObsFactor returns the min_obs_factor value or the default.
func (c *TuningConfig) GetMinObsFactor() float64 {
	if c.MinObsFactor == nil {
		return 1.5 // default
	}
	return *c.MinObsFactor
}

// GetHarmonicOrder returns the harmonic_order value or the default.
func (c *TuningConfig) GetHarmonicOrder() int {
	if c.HarmonicOrder == nil {
		return 1 // default
	}
	return *c.HarmonicOrder
}

// GetControlLimit returns the control_limit value or the default.
func (c *TuningConfig) GetControlLimit() float64 {
	if c.ControlLimit == nil {
		return 5 // default
	}
	return *c.ControlLimit
}

// GetScreenScalingFactor returns the screen_scaling_factor value or the default.
func (c *TuningConfig) GetScreenScalingFactor() float64 {
	if c.ScreenScalingFactor == nil {
		return 10000 // default: Landsat collection scaling
	}
	return *c.ScreenScalingFactor
}

// GetRobustMaxIter returns the robust_max_iter value or the default.
func (c *TuningConfig) GetRobustMaxIter() int {
	if c.RobustMaxIter == nil {
		return 50 // default
	}
	return *c.RobustMaxIter
}

// GetRobustTol returns the robust_tol value or the default.
func (c *TuningConfig) GetRobustTol() float64 {
	if c.RobustTol == nil {
		return 1e-8 // default
	}
	return *c.RobustTol
}

// GetRobustTune returns the robust_tune value or the default.
func (c *TuningConfig) GetRobustTune() float64 {
	if c.RobustTune == nil {
		return 4.685 // default: 95% efficiency for the bisquare
	}
	return *c.RobustTune
}
