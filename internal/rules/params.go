package rules

import (
	"fmt"

	"github.com/banshee-data/trackguard/internal/config"
	"github.com/banshee-data/trackguard/internal/interp"
)

// Params is the typed, immutable calibration consumed by the checks.
type Params struct {
	MicroDopplerCheckEnabled         bool
	MinVruMicroDopplerCycles         uint8
	MicroDopplerCrossingVruApplied   bool
	MicroDopplerStationaryVruApplied bool

	InnovationCheckDxThreshold float32
	InnovationCheckDyThreshold float32

	ImplausibleVyThreshLAHypo float32
	SplitDetectionCntMaxVal   int32

	ImplausibleRcsThresh          float32
	MaxLongDistRcsCountermeasure  float32
	MaxCyclesSinceLastVideoUpdate uint8

	// ElevationLimits maps dx to the highest plausible elevation.
	ElevationLimits *interp.Table

	MPC3Used bool
}

// ParamsFromCalibration converts a calibration bundle. Unset fields take
// their defaults.
func ParamsFromCalibration(c *config.Calibration) (*Params, error) {
	if c == nil {
		c = config.EmptyCalibration()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	xs := toFloat32(c.GetElevationCheckDxLimits())
	ys := toFloat32(c.GetElevationCheckDzThresholds())
	table, err := interp.NewTable(xs, ys)
	if err != nil {
		return nil, fmt.Errorf("elevation check table: %w", err)
	}
	return &Params{
		MicroDopplerCheckEnabled:         c.GetMicroDopplerCheckEnabled(),
		MinVruMicroDopplerCycles:         clampUint8(c.GetMinVruMicroDopplerCycles()),
		MicroDopplerCrossingVruApplied:   c.GetMicroDopplerCrossingVruApplied(),
		MicroDopplerStationaryVruApplied: c.GetMicroDopplerStationaryVruApplied(),
		InnovationCheckDxThreshold:       float32(c.GetInnovationCheckDxThreshold()),
		InnovationCheckDyThreshold:       float32(c.GetInnovationCheckDyThreshold()),
		ImplausibleVyThreshLAHypo:        float32(c.GetImplausibleVyThreshLAHypo()),
		SplitDetectionCntMaxVal:          int32(c.GetSplitDetectionCntMaxVal()),
		ImplausibleRcsThresh:             float32(c.GetImplausibleRcsThresh()),
		MaxLongDistRcsCountermeasure:     float32(c.GetMaxLongDistRcsCountermeasure()),
		MaxCyclesSinceLastVideoUpdate:    clampUint8(c.GetMaxCyclesSinceLastVideoUpdate()),
		ElevationLimits:                  table,
		MPC3Used:                         c.GetMPC3Used(),
	}, nil
}

// DefaultParams returns the built-in calibration.
func DefaultParams() *Params {
	p, err := ParamsFromCalibration(config.EmptyCalibration())
	if err != nil {
		panic(err)
	}
	return p
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func clampUint8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
