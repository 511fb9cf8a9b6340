package rules

import (
	"github.com/banshee-data/trackguard/internal/track"
)

// DefaultDxInnovationThreshold applies when no candidate matches.
const DefaultDxInnovationThreshold float32 = 1.6

// DefaultThresholdSource names the fallback in DxInnovationThreshold results.
const DefaultThresholdSource = "default"

type thresholdCandidate struct {
	source  string
	applies func(c *Context) bool
	value   float32
}

// dxInnovationThresholds is evaluated in order and the first match wins.
// Entries overlap on purpose; do not reorder.
var dxInnovationThresholds = []thresholdCandidate{
	{
		source: "vru_close_range",
		applies: func(c *Context) bool {
			return abs32(c.Object.State.X) < 20 && c.Derived.IsVru
		},
		value: 1.5,
	},
	{
		source: "low_rcs_vy_unreliable",
		applies: func(c *Context) bool {
			return c.Object.RCS < -5 && c.Object.VyUnreliableAccumulated > 1.9
		},
		value: 1.1,
	},
	{
		source: "very_low_rcs",
		applies: func(c *Context) bool {
			return c.Object.RCS < -15
		},
		value: 1.5,
	},
	{
		source:  "good_fused_slow",
		applies: isGoodFusedSlow,
		value:   6.0,
	},
	{
		source: "vru_low_rcs_slow",
		applies: func(c *Context) bool {
			return abs32(c.Object.State.X) < 35 && c.Derived.IsVru && c.Object.RCS < -5 &&
				c.Derived.VelOverGround.Norm() < 1
		},
		value: 1.4,
	},
}

func isGoodFusedSlow(c *Context) bool {
	o := c.Object
	s := &o.Sensors
	age := o.CyclesExisting
	if age <= 5 || !s.IsGoodQualityFused(track.FrontCenterRadar, track.FrontCenterVideo) {
		return false
	}
	capped := age
	if capped > 255 {
		capped = 255
	}
	nr := 0.8 * float32(capped)
	return float32(s.Total(track.FrontCenterRadar)) >= nr &&
		float32(s.Total(track.FrontCenterVideo)) >= nr &&
		c.Derived.VelOverGround.Norm() < 1 &&
		o.RCS > -10
}

// DxInnovationThreshold returns the average dx innovation an object may show
// before the innovation check fires, and the name of the candidate that
// produced it.
func DxInnovationThreshold(c *Context) (float32, string) {
	for _, cand := range dxInnovationThresholds {
		if cand.applies(c) {
			return cand.value, cand.source
		}
	}
	return DefaultDxInnovationThreshold, DefaultThresholdSource
}
