package rules

import (
	"math"

	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/track"
	"github.com/banshee-data/trackguard/internal/units"
)

const (
	fcr = track.FrontCenterRadar
	flr = track.FrontLeftCornerRadar
	frr = track.FrontRightCornerRadar
	fcv = track.FrontCenterVideo
	tr  = track.TechRadar
	tv  = track.TechVideo
)

// ageRatioGuard is the largest age the measured-ratio checks evaluate; the
// update counters saturate at the uint8 range.
const ageRatioGuard = math.MaxUint8

// measuredRatio is updates/(age+1).
func measuredRatio(updates uint8, age uint16) float32 {
	return float32(updates) / (float32(age) + 1)
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func atanf(v float32) float32 {
	return float32(math.Atan(float64(v)))
}

func atan2f(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}

func when(cond bool, mask relevance.BitField) relevance.BitField {
	if cond {
		return mask
	}
	return 0
}

func measuredByCorner(s *track.SensorFusion) bool {
	return s.Total(flr) > 0 || s.Total(frr) > 0
}

func isTurning(ego track.EgoMotion) bool {
	return abs32(ego.YawRate) > turningYawRate
}

var turningYawRate = units.Deg(10)
