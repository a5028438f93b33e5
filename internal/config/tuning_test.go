package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	// Test that defaults are set via pointers
	if cfg.StabilityThreshold == nil || *cfg.StabilityThreshold != 3 {
		t.Errorf("Expected StabilityThreshold 3, got %v", cfg.StabilityThreshold)
	}
	if cfg.ShrinkStep == nil || *cfg.ShrinkStep != 2 {
		t.Errorf("Expected ShrinkStep 2, got %v", cfg.ShrinkStep)
	}
	if cfg.MinObsFactor == nil || *cfg.MinObsFactor != 1.5 {
		t.Errorf("Expected MinObsFactor 1.5, got %v", cfg.MinObsFactor)
	}
	if cfg.ControlLimit == nil || *cfg.ControlLimit != 5 {
		t.Errorf("Expected ControlLimit 5, got %v", cfg.ControlLimit)
	}

	// Test getter methods
	if cfg.GetStabilityThreshold() != 3 {
		t.Errorf("GetStabilityThreshold() = %f, want 3", cfg.GetStabilityThreshold())
	}
	if cfg.GetShrinkStep() != 2 {
		t.Errorf("GetShrinkStep() = %d, want 2", cfg.GetShrinkStep())
	}
	if cfg.GetRobustTune() != 4.685 {
		t.Errorf("GetRobustTune() = %f, want 4.685", cfg.GetRobustTune())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "stability_threshold": 2.5,
  "shrink_step": 3,
  "min_obs_factor": 2.0,
  "harmonic_order": 2,
  "control_limit": 4.0
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.StabilityThreshold == nil || *cfg.StabilityThreshold != 2.5 {
		t.Errorf("Expected StabilityThreshold 2.5, got %v", cfg.StabilityThreshold)
	}
	if cfg.ShrinkStep == nil || *cfg.ShrinkStep != 3 {
		t.Errorf("Expected ShrinkStep 3, got %v", cfg.ShrinkStep)
	}
	if cfg.MinObsFactor == nil || *cfg.MinObsFactor != 2.0 {
		t.Errorf("Expected MinObsFactor 2.0, got %v", cfg.MinObsFactor)
	}
	if cfg.HarmonicOrder == nil || *cfg.HarmonicOrder != 2 {
		t.Errorf("Expected HarmonicOrder 2, got %v", cfg.HarmonicOrder)
	}
	if cfg.ControlLimit == nil || *cfg.ControlLimit != 4.0 {
		t.Errorf("Expected ControlLimit 4.0, got %v", cfg.ControlLimit)
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	// Write invalid JSON
	invalidJSON := `{
  "stability_threshold": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     DefaultTuningConfig(),
			wantErr: false,
		},
		{
			name:    "empty config is valid",
			cfg:     &TuningConfig{},
			wantErr: false,
		},
		{
			name: "negative stability threshold",
			cfg: &TuningConfig{
				StabilityThreshold: ptrFloat64(-1),
			},
			wantErr: true,
		},
		{
			name: "zero shrink step",
			cfg: &TuningConfig{
				ShrinkStep: ptrInt(0),
			},
			wantErr: true,
		},
		{
			name: "min obs factor below one",
			cfg: &TuningConfig{
				MinObsFactor: ptrFloat64(0.5),
			},
			wantErr: true,
		},
		{
			name: "negative harmonic order",
			cfg: &TuningConfig{
				HarmonicOrder: ptrInt(-1),
			},
			wantErr: true,
		},
		{
			name: "zero control limit",
			cfg: &TuningConfig{
				ControlLimit: ptrFloat64(0),
			},
			wantErr: true,
		},
		{
			name: "zero scaling factor",
			cfg: &TuningConfig{
				ScreenScalingFactor: ptrFloat64(0),
			},
			wantErr: true,
		},
		{
			name: "zero robust iterations",
			cfg: &TuningConfig{
				RobustMaxIter: ptrInt(0),
			},
			wantErr: true,
		},
		{
			name: "negative robust tolerance",
			cfg: &TuningConfig{
				RobustTol: ptrFloat64(-1e-8),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.GetStabilityThreshold() != 3 {
		t.Errorf("Expected 3, got %f", cfg.GetStabilityThreshold())
	}
	if cfg.GetScreenScalingFactor() != 10000 {
		t.Errorf("Expected 10000, got %f", cfg.GetScreenScalingFactor())
	}
	if cfg.GetRobustTol() != 1e-8 {
		t.Errorf("Expected 1e-8, got %g", cfg.GetRobustTol())
	}
}

func TestLoadExampleConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.example.json")
	if err != nil {
		t.Fatalf("Failed to load example: %v", err)
	}
	if cfg.GetStabilityThreshold() != 4 {
		t.Errorf("Expected 4, got %f", cfg.GetStabilityThreshold())
	}
	if cfg.GetShrinkStep() != 4 {
		t.Errorf("Expected 4, got %d", cfg.GetShrinkStep())
	}
	if cfg.GetScreenScalingFactor() != 1000 {
		t.Errorf("Expected 1000, got %f", cfg.GetScreenScalingFactor())
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	// Partial config: only override the threshold; everything else should
	// keep defaults.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "stability_threshold": 2.0
}`
	if err := os.WriteFile(configPath, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	// Overridden value
	if cfg.GetStabilityThreshold() != 2.0 {
		t.Errorf("Expected overridden StabilityThreshold 2.0, got %f", cfg.GetStabilityThreshold())
	}
	// Default values should be preserved
	if cfg.GetShrinkStep() != 2 {
		t.Errorf("Expected default ShrinkStep 2, got %d", cfg.GetShrinkStep())
	}
	if cfg.GetMinObsFactor() != 1.5 {
		t.Errorf("Expected default MinObsFactor 1.5, got %f", cfg.GetMinObsFactor())
	}
	if cfg.GetControlLimit() != 5 {
		t.Errorf("Expected default ControlLimit 5, got %f", cfg.GetControlLimit())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	// Create a file larger than 1MB
	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestAllTuningParams(t *testing.T) {
	// Test that all tunable parameters can be set via JSON
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "all_params.json")

	allParamsJSON := `{
  "stability_threshold": 2.5,
  "shrink_step": 1,
  "min_obs_factor": 2.0,
  "harmonic_order": 3,
  "control_limit": 4.5,
  "screen_scaling_factor": 1.0,
  "robust_max_iter": 25,
  "robust_tol": 1e-6,
  "robust_tune": 6.0
}`
	if err := os.WriteFile(configPath, []byte(allParamsJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.StabilityThreshold == nil || *cfg.StabilityThreshold != 2.5 {
		t.Errorf("StabilityThreshold = %v, want 2.5", cfg.StabilityThreshold)
	}
	if cfg.ShrinkStep == nil || *cfg.ShrinkStep != 1 {
		t.Errorf("ShrinkStep = %v, want 1", cfg.ShrinkStep)
	}
	if cfg.MinObsFactor == nil || *cfg.MinObsFactor != 2.0 {
		t.Errorf("MinObsFactor = %v, want 2.0", cfg.MinObsFactor)
	}
	if cfg.HarmonicOrder == nil || *cfg.HarmonicOrder != 3 {
		t.Errorf("HarmonicOrder = %v, want 3", cfg.HarmonicOrder)
	}
	if cfg.ControlLimit == nil || *cfg.ControlLimit != 4.5 {
		t.Errorf("ControlLimit = %v, want 4.5", cfg.ControlLimit)
	}
	if cfg.ScreenScalingFactor == nil || *cfg.ScreenScalingFactor != 1.0 {
		t.Errorf("ScreenScalingFactor = %v, want 1.0", cfg.ScreenScalingFactor)
	}
	if cfg.RobustMaxIter == nil || *cfg.RobustMaxIter != 25 {
		t.Errorf("RobustMaxIter = %v, want 25", cfg.RobustMaxIter)
	}
	if cfg.RobustTol == nil || *cfg.RobustTol != 1e-6 {
		t.Errorf("RobustTol = %v, want 1e-6", cfg.RobustTol)
	}
	if cfg.RobustTune == nil || *cfg.RobustTune != 6.0 {
		t.Errorf("RobustTune = %v, want 6.0", cfg.RobustTune)
	}
}

func TestGetterDefaults(t *testing.T) {
	// Test that getter methods return expected defaults when pointers are nil
	cfg := &TuningConfig{} // empty config

	if cfg.GetStabilityThreshold() != 3 {
		t.Errorf("GetStabilityThreshold() = %f, want 3", cfg.GetStabilityThreshold())
	}
	if cfg.GetShrinkStep() != 2 {
		t.Errorf("GetShrinkStep() = %d, want 2", cfg.GetShrinkStep())
	}
	if cfg.GetMinObsFactor() != 1.5 {
		t.Errorf("GetMinObsFactor() = %f, want 1.5", cfg.GetMinObsFactor())
	}
	if cfg.GetHarmonicOrder() != 1 {
		t.Errorf("GetHarmonicOrder() = %d, want 1", cfg.GetHarmonicOrder())
	}
	if cfg.GetControlLimit() != 5 {
		t.Errorf("GetControlLimit() = %f, want 5", cfg.GetControlLimit())
	}
	if cfg.GetScreenScalingFactor() != 10000 {
		t.Errorf("GetScreenScalingFactor() = %f, want 10000", cfg.GetScreenScalingFactor())
	}
	if cfg.GetRobustMaxIter() != 50 {
		t.Errorf("GetRobustMaxIter() = %d, want 50", cfg.GetRobustMaxIter())
	}
	if cfg.GetRobustTol() != 1e-8 {
		t.Errorf("GetRobustTol() = %g, want 1e-8", cfg.GetRobustTol())
	}
	if cfg.GetRobustTune() != 4.685 {
		t.Errorf("GetRobustTune() = %f, want 4.685", cfg.GetRobustTune())
	}
}
