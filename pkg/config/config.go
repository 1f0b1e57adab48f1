// Package config provides configuration loading and management for dwitract.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dwitract/pkg/gradients"
	"dwitract/pkg/signal"
	"dwitract/pkg/tracking"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Acquisition parameters
	Acquisition struct {
		// GyromagneticRatio is the gyromagnetic ratio in MHz/T used for
		// b-value computations
		GyromagneticRatio float64 `yaml:"gyromagneticRatio"`

		// B0Threshold is the b-value in s/mm^2 below which an acquisition
		// counts as a baseline measurement
		B0Threshold float64 `yaml:"b0Threshold"`
	} `yaml:"acquisition"`

	// Tracking parameters
	Tracking struct {
		// StepSizeMm is the streamline propagation step in mm
		StepSizeMm float64 `yaml:"stepSizeMm"`

		// MaxAngleDeg is the maximum turning angle per step in degrees
		MaxAngleDeg float64 `yaml:"maxAngleDeg"`

		// MaxSteps bounds the number of steps per track hemisphere
		MaxSteps int `yaml:"maxSteps"`

		// StoppingThreshold terminates tracks where the scalar stopping
		// field falls below this value
		StoppingThreshold float64 `yaml:"stoppingThreshold"`

		// MinNodes drops tracks with this many nodes or fewer
		MinNodes int `yaml:"minNodes"`
	} `yaml:"tracking"`

	// Seeding parameters
	Seeding struct {
		// Density is the per-axis sub-voxel seed density
		Density [3]int `yaml:"density"`

		// Labels lists the label values whose voxels are seeded
		Labels []int `yaml:"labels"`

		// SmoothSigma optionally dilates the seed region by Gaussian
		// smoothing with this sigma in voxels; 0 disables smoothing
		SmoothSigma float64 `yaml:"smoothSigma"`
	} `yaml:"seeding"`

	// Output parameters
	Output struct {
		// TrackFile is the name of the .trk bundle written per run
		TrackFile string `yaml:"trackFile"`

		// ProjectionAxes lists the projection stills to render
		// (axial, coronal, sagittal)
		ProjectionAxes []string `yaml:"projectionAxes"`

		// DecayChart is the name of the signal-decay chart PNG; empty
		// disables the chart
		DecayChart string `yaml:"decayChart"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Affine optionally overrides the voxel-to-world transform of all
	// loaded volumes with 16 row-major values; empty keeps each file's own
	// geometry
	Affine []float64 `yaml:"affine"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default acquisition parameters
	cfg.Acquisition.GyromagneticRatio = signal.GyromagneticRatio
	cfg.Acquisition.B0Threshold = gradients.DefaultB0Threshold

	// Set default tracking parameters
	cfg.Tracking.StepSizeMm = tracking.DefaultStepSizeMm
	cfg.Tracking.MaxAngleDeg = tracking.DefaultMaxAngleDeg
	cfg.Tracking.MaxSteps = tracking.DefaultMaxSteps
	cfg.Tracking.StoppingThreshold = 0.2
	cfg.Tracking.MinNodes = 10

	// Set default seeding parameters
	cfg.Seeding.Density = [3]int{2, 2, 2}
	cfg.Seeding.Labels = []int{1, 2}
	cfg.Seeding.SmoothSigma = 0

	// Set default output parameters
	cfg.Output.TrackFile = "tracts.trk"
	cfg.Output.ProjectionAxes = []string{"axial"}
	cfg.Output.DecayChart = "signal_decay.png"
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks the parameter ranges a run depends on
func (cfg *Config) Validate() error {
	if cfg.Tracking.StepSizeMm <= 0 {
		return fmt.Errorf("tracking.stepSizeMm must be positive, got %g", cfg.Tracking.StepSizeMm)
	}
	if cfg.Tracking.MaxAngleDeg <= 0 || cfg.Tracking.MaxAngleDeg > 90 {
		return fmt.Errorf("tracking.maxAngleDeg must be in (0, 90], got %g", cfg.Tracking.MaxAngleDeg)
	}
	if cfg.Tracking.MaxSteps < 1 {
		return fmt.Errorf("tracking.maxSteps must be at least 1, got %d", cfg.Tracking.MaxSteps)
	}
	if cfg.Tracking.MinNodes < 0 {
		return fmt.Errorf("tracking.minNodes must be non-negative, got %d", cfg.Tracking.MinNodes)
	}
	for axis, d := range cfg.Seeding.Density {
		if d < 1 {
			return fmt.Errorf("seeding.density[%d] must be at least 1, got %d", axis, d)
		}
	}
	if len(cfg.Seeding.Labels) == 0 {
		return fmt.Errorf("seeding.labels must name at least one label")
	}
	if cfg.Output.TrackFile == "" {
		return fmt.Errorf("output.trackFile must not be empty")
	}
	if n := len(cfg.Affine); n != 0 && n != 16 {
		return fmt.Errorf("affine override needs 16 row-major values, got %d", n)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
