package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultCalibrationPath is the path to the canonical calibration defaults file.
const DefaultCalibrationPath = "config/calibration.defaults.json"

// Calibration is the parameter bundle consumed by the disqualification checks.
// Every field is optional; the Get* accessors fall back to the built-in
// default when a field is not set, so partial override files are valid.
type Calibration struct {
	// Micro-Doppler check
	MicroDopplerCheckEnabled         *bool `json:"micro_doppler_check_enabled,omitempty" yaml:"micro_doppler_check_enabled,omitempty"`
	MinVruMicroDopplerCycles         *int  `json:"min_vru_micro_doppler_cycles,omitempty" yaml:"min_vru_micro_doppler_cycles,omitempty"`
	MicroDopplerCrossingVruApplied   *bool `json:"micro_doppler_crossing_vru_applied,omitempty" yaml:"micro_doppler_crossing_vru_applied,omitempty"`
	MicroDopplerStationaryVruApplied *bool `json:"micro_doppler_stationary_vru_applied,omitempty" yaml:"micro_doppler_stationary_vru_applied,omitempty"`

	// Innovation check region
	InnovationCheckDxThreshold *float64 `json:"innovation_check_dx_threshold,omitempty" yaml:"innovation_check_dx_threshold,omitempty"`
	InnovationCheckDyThreshold *float64 `json:"innovation_check_dy_threshold,omitempty" yaml:"innovation_check_dy_threshold,omitempty"`

	ImplausibleVyThreshLAHypo *float64 `json:"implausible_vy_thresh_la_hypo,omitempty" yaml:"implausible_vy_thresh_la_hypo,omitempty"`
	SplitDetectionCntMaxVal   *int     `json:"split_detection_cnt_max_val,omitempty" yaml:"split_detection_cnt_max_val,omitempty"`

	// Four-plus-wheeler RCS countermeasure
	ImplausibleRcsThresh          *float64 `json:"implausible_rcs_thresh,omitempty" yaml:"implausible_rcs_thresh,omitempty"`
	MaxLongDistRcsCountermeasure  *float64 `json:"max_long_dist_rcs_countermeasure,omitempty" yaml:"max_long_dist_rcs_countermeasure,omitempty"`
	MaxCyclesSinceLastVideoUpdate *int     `json:"max_cycles_since_last_video_update,omitempty" yaml:"max_cycles_since_last_video_update,omitempty"`

	// Elevation check table (dx -> allowed elevation)
	ElevationCheckDxLimits     []float64 `json:"elevation_check_dx_limits,omitempty" yaml:"elevation_check_dx_limits,omitempty"`
	ElevationCheckDzThresholds []float64 `json:"elevation_check_dz_thresholds,omitempty" yaml:"elevation_check_dz_thresholds,omitempty"`

	// Radar generation variant
	MPC3Used *bool `json:"mpc3_used,omitempty" yaml:"mpc3_used,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyCalibration returns a Calibration with all fields unset.
func EmptyCalibration() *Calibration {
	return &Calibration{}
}

// LoadCalibration reads a calibration file. JSON and YAML are accepted,
// selected by extension.
func LoadCalibration(path string) (*Calibration, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

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

	cfg := EmptyCalibration()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultCalibration loads DefaultCalibrationPath, searching the
// current directory and its parents. Panics if the file cannot be loaded,
// intended for test setup.
func MustLoadDefaultCalibration() *Calibration {
	candidates := []string{
		DefaultCalibrationPath,
		"../" + DefaultCalibrationPath,
		"../../" + DefaultCalibrationPath,    // from internal/config/
		"../../../" + DefaultCalibrationPath, // from cmd/dep-eval/ subpackages
	}
	for _, path := range candidates {
		if cfg, err := LoadCalibration(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultCalibrationPath + " - run tests from repository root")
}

// Merge returns a copy of c with every field set in override replacing the
// corresponding field of c.
func (c *Calibration) Merge(override *Calibration) *Calibration {
	out := *c
	if override == nil {
		return &out
	}
	if override.MicroDopplerCheckEnabled != nil {
		out.MicroDopplerCheckEnabled = override.MicroDopplerCheckEnabled
	}
	if override.MinVruMicroDopplerCycles != nil {
		out.MinVruMicroDopplerCycles = override.MinVruMicroDopplerCycles
	}
	if override.MicroDopplerCrossingVruApplied != nil {
		out.MicroDopplerCrossingVruApplied = override.MicroDopplerCrossingVruApplied
	}
	if override.MicroDopplerStationaryVruApplied != nil {
		out.MicroDopplerStationaryVruApplied = override.MicroDopplerStationaryVruApplied
	}
	if override.InnovationCheckDxThreshold != nil {
		out.InnovationCheckDxThreshold = override.InnovationCheckDxThreshold
	}
	if override.InnovationCheckDyThreshold != nil {
		out.InnovationCheckDyThreshold = override.InnovationCheckDyThreshold
	}
	if override.ImplausibleVyThreshLAHypo != nil {
		out.ImplausibleVyThreshLAHypo = override.ImplausibleVyThreshLAHypo
	}
	if override.SplitDetectionCntMaxVal != nil {
		out.SplitDetectionCntMaxVal = override.SplitDetectionCntMaxVal
	}
	if override.ImplausibleRcsThresh != nil {
		out.ImplausibleRcsThresh = override.ImplausibleRcsThresh
	}
	if override.MaxLongDistRcsCountermeasure != nil {
		out.MaxLongDistRcsCountermeasure = override.MaxLongDistRcsCountermeasure
	}
	if override.MaxCyclesSinceLastVideoUpdate != nil {
		out.MaxCyclesSinceLastVideoUpdate = override.MaxCyclesSinceLastVideoUpdate
	}
	if override.ElevationCheckDxLimits != nil {
		out.ElevationCheckDxLimits = override.ElevationCheckDxLimits
	}
	if override.ElevationCheckDzThresholds != nil {
		out.ElevationCheckDzThresholds = override.ElevationCheckDzThresholds
	}
	if override.MPC3Used != nil {
		out.MPC3Used = override.MPC3Used
	}
	return &out
}

// Validate checks that the configuration values are usable.
func (c *Calibration) Validate() error {
	if c.MinVruMicroDopplerCycles != nil && (*c.MinVruMicroDopplerCycles < 0 || *c.MinVruMicroDopplerCycles > 255) {
		return fmt.Errorf("min_vru_micro_doppler_cycles must be between 0 and 255, got %d", *c.MinVruMicroDopplerCycles)
	}
	if c.InnovationCheckDxThreshold != nil && *c.InnovationCheckDxThreshold < 0 {
		return fmt.Errorf("innovation_check_dx_threshold must be non-negative, got %f", *c.InnovationCheckDxThreshold)
	}
	if c.InnovationCheckDyThreshold != nil && *c.InnovationCheckDyThreshold < 0 {
		return fmt.Errorf("innovation_check_dy_threshold must be non-negative, got %f", *c.InnovationCheckDyThreshold)
	}
	if c.ImplausibleVyThreshLAHypo != nil && *c.ImplausibleVyThreshLAHypo < 0 {
		return fmt.Errorf("implausible_vy_thresh_la_hypo must be non-negative, got %f", *c.ImplausibleVyThreshLAHypo)
	}
	if c.SplitDetectionCntMaxVal != nil && *c.SplitDetectionCntMaxVal <= 0 {
		return fmt.Errorf("split_detection_cnt_max_val must be positive, got %d", *c.SplitDetectionCntMaxVal)
	}
	if c.MaxLongDistRcsCountermeasure != nil && *c.MaxLongDistRcsCountermeasure < 0 {
		return fmt.Errorf("max_long_dist_rcs_countermeasure must be non-negative, got %f", *c.MaxLongDistRcsCountermeasure)
	}
	if c.MaxCyclesSinceLastVideoUpdate != nil && (*c.MaxCyclesSinceLastVideoUpdate < 0 || *c.MaxCyclesSinceLastVideoUpdate > 255) {
		return fmt.Errorf("max_cycles_since_last_video_update must be between 0 and 255, got %d", *c.MaxCyclesSinceLastVideoUpdate)
	}

	xs, ys := c.GetElevationCheckDxLimits(), c.GetElevationCheckDzThresholds()
	if len(xs) != len(ys) {
		return fmt.Errorf("elevation_check_dx_limits has %d entries but elevation_check_dz_thresholds has %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return fmt.Errorf("elevation check table needs at least 2 points, got %d", len(xs))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return fmt.Errorf("elevation_check_dx_limits must be strictly increasing, got %v", xs)
		}
	}
	return nil
}

// GetMicroDopplerCheckEnabled returns the micro_doppler_check_enabled value or the default.
func (c *Calibration) GetMicroDopplerCheckEnabled() bool {
	if c.MicroDopplerCheckEnabled == nil {
		return true
	}
	return *c.MicroDopplerCheckEnabled
}

// GetMinVruMicroDopplerCycles returns the min_vru_micro_doppler_cycles value or the default.
func (c *Calibration) GetMinVruMicroDopplerCycles() int {
	if c.MinVruMicroDopplerCycles == nil {
		return 1
	}
	return *c.MinVruMicroDopplerCycles
}

// GetMicroDopplerCrossingVruApplied returns the micro_doppler_crossing_vru_applied value or the default.
func (c *Calibration) GetMicroDopplerCrossingVruApplied() bool {
	if c.MicroDopplerCrossingVruApplied == nil {
		return true
	}
	return *c.MicroDopplerCrossingVruApplied
}

// GetMicroDopplerStationaryVruApplied returns the micro_doppler_stationary_vru_applied value or the default.
func (c *Calibration) GetMicroDopplerStationaryVruApplied() bool {
	if c.MicroDopplerStationaryVruApplied == nil {
		return true
	}
	return *c.MicroDopplerStationaryVruApplied
}

// GetInnovationCheckDxThreshold returns the innovation_check_dx_threshold value or the default.
func (c *Calibration) GetInnovationCheckDxThreshold() float64 {
	if c.InnovationCheckDxThreshold == nil {
		return 50
	}
	return *c.InnovationCheckDxThreshold
}

// GetInnovationCheckDyThreshold returns the innovation_check_dy_threshold value or the default.
func (c *Calibration) GetInnovationCheckDyThreshold() float64 {
	if c.InnovationCheckDyThreshold == nil {
		return 50
	}
	return *c.InnovationCheckDyThreshold
}

// GetImplausibleVyThreshLAHypo returns the implausible_vy_thresh_la_hypo value or the default.
func (c *Calibration) GetImplausibleVyThreshLAHypo() float64 {
	if c.ImplausibleVyThreshLAHypo == nil {
		return 1.0
	}
	return *c.ImplausibleVyThreshLAHypo
}

// GetSplitDetectionCntMaxVal returns the split_detection_cnt_max_val value or the default.
func (c *Calibration) GetSplitDetectionCntMaxVal() int {
	if c.SplitDetectionCntMaxVal == nil {
		return 3
	}
	return *c.SplitDetectionCntMaxVal
}

// GetImplausibleRcsThresh returns the implausible_rcs_thresh value or the default.
func (c *Calibration) GetImplausibleRcsThresh() float64 {
	if c.ImplausibleRcsThresh == nil {
		return -9.5
	}
	return *c.ImplausibleRcsThresh
}

// GetMaxLongDistRcsCountermeasure returns the max_long_dist_rcs_countermeasure value or the default.
func (c *Calibration) GetMaxLongDistRcsCountermeasure() float64 {
	if c.MaxLongDistRcsCountermeasure == nil {
		return 20
	}
	return *c.MaxLongDistRcsCountermeasure
}

// GetMaxCyclesSinceLastVideoUpdate returns the max_cycles_since_last_video_update value or the default.
func (c *Calibration) GetMaxCyclesSinceLastVideoUpdate() int {
	if c.MaxCyclesSinceLastVideoUpdate == nil {
		return 2
	}
	return *c.MaxCyclesSinceLastVideoUpdate
}

// GetElevationCheckDxLimits returns the elevation table breakpoints or the default.
func (c *Calibration) GetElevationCheckDxLimits() []float64 {
	if c.ElevationCheckDxLimits == nil {
		return []float64{0, 100}
	}
	return c.ElevationCheckDxLimits
}

// GetElevationCheckDzThresholds returns the elevation table values or the default.
func (c *Calibration) GetElevationCheckDzThresholds() []float64 {
	if c.ElevationCheckDzThresholds == nil {
		return []float64{2, 3}
	}
	return c.ElevationCheckDzThresholds
}

// GetMPC3Used returns the mpc3_used value or the default.
func (c *Calibration) GetMPC3Used() bool {
	if c.MPC3Used == nil {
		return false
	}
	return *c.MPC3Used
}
