package rules

import (
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/track"
)

// checkMeasuredRatioFastWnj flags fast crossing jerk-model tracks that radar
// rarely confirms and video hardly knows.
func checkMeasuredRatioFastWnj(c *Context) relevance.BitField {
	o := c.Object
	age := o.CyclesExisting
	if o.Filter != track.FilterWNJ || abs32(c.Derived.AbsVelOverGround[1]) <= 4.6 || age >= ageRatioGuard {
		return 0
	}
	if age <= 1 {
		return 0
	}
	ratio := measuredRatio(o.Sensors.Total(tr), age)
	return when(ratio < 0.7 && o.Sensors.Total(fcv) <= 5, relevance.AEB)
}

// checkNonCrossingObject keeps lateral-velocity consumers away from tracks
// that appear to cross while radar sees nothing moving.
func checkNonCrossingObject(c *Context) relevance.BitField {
	o := c.Object
	appearsCrossing := c.Derived.AbsVelOverGround[1] > 0.5
	probMovingLow := o.ProbIsCurrentlyMoving < 0.1 && o.ProbHasBeenObservedMoving < 0.1
	radarSeesStatic := o.Sensors.Total(fcr) > 0 && o.MicroDopplerCycles == 0 && o.TotalCyclesWithOncoming == 0
	return when(appearsCrossing && probMovingLow && radarSeesStatic, relevance.VyDependent)
}

// waterSprayLike is the innovation and motion pattern of spray and sprinkler
// clutter, shared by the check and the probability clamp.
func waterSprayLike(o *track.Object, absVel track.Vec2, vxLimit float32) bool {
	avgDx := abs32(o.AvgDxInnovation)
	return avgDx > 1.2 ||
		(avgDx > 0.78 && o.PNonObstacleRCSOnly > 0.8) ||
		(absVel[0] < vxLimit && absVel[1] < 0.7)
}

func checkWaterSprinkles(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	recentRadarOnly := s.OnlyUpdatedByInLastN(tr, 40)
	littleCamera := s.SinceLast(tv) > 3 && float32(s.Total(fcv)) < 0.05*float32(s.Total(tr))
	// Elevation is used without its validity flag here.
	lowSignature := o.RCS < -7.5 || o.Elevation < 0.3
	return when((recentRadarOnly || littleCamera) && lowSignature && o.Classification.IsObstacleLike() &&
		waterSprayLike(o, c.Derived.AbsVelOverGround, 3.9), relevance.AEB)
}

func checkMeasuredRatioRadarOnlyLongitudinal(c *Context) relevance.BitField {
	o := c.Object
	age := o.CyclesExisting
	if !o.Sensors.IsOnlyUpdatedBy(fcr) || abs32(o.State.Y) >= 3 || age <= 4 || age >= ageRatioGuard ||
		c.Derived.AbsVelOverGround[0] <= 2 {
		return 0
	}
	return when(measuredRatio(o.Sensors.Total(fcr), age) < 0.7, relevance.AEB)
}

func checkRadarOnlyRcsDrInnovation(c *Context) relevance.BitField {
	o := c.Object
	return when(o.Sensors.IsOnlyUpdatedBy(fcr) && abs32(o.AvgDxInnovation) > 1.2 && o.RCS < -15, relevance.AEB)
}

// checkRadarOnlyNLD disqualifies radar-only tracks unless ego drives straight
// and the track sits in the corridor, is old enough and is measured steadily.
func checkRadarOnlyNLD(c *Context) relevance.BitField {
	o := c.Object
	if o.Sensors.Total(tv) != 0 {
		return 0
	}
	ego := c.Ego
	straight := true
	if ego.YawRate != 0 {
		radius := ego.VX / ego.YawRate
		straight = abs32(radius) > 2500 || (abs32(ego.AY) < 0.15 && ego.YawRate < 0.012)
	}
	dx, dy := o.State.X, abs32(o.State.Y)
	inArea := (dy <= 1.25 && dx < 120) || (dy <= 6 && dx < 10)
	age := o.CyclesExisting
	oldEnough := age >= 3
	measured := uint16(o.Sensors.Total(tr)) >= age || age >= 30

	candidate := !straight || !inArea || !oldEnough || !measured
	closeHighVy := abs32(o.State.VY) > 3 && dx < 8 && dy < 4
	return when(candidate || closeHighVy, relevance.AebAndAcc)
}

func checkRadarOnlyStationary(c *Context) relevance.BitField {
	absVel := c.Derived.AbsVelOverGround
	return when(c.Object.Sensors.Total(tv) == 0 && absVel[0] < 0.3 && absVel[1] < 0.3, relevance.AebAndAcc)
}

// checkBridge recognises overhead structures: high, stationary-only
// locations, either with a large video range innovation or seen by the
// center radar alone.
func checkBridge(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	elev := abs32(o.Elevation)
	statLoc := o.StationaryLocationsOnlyCount
	fcrOnly := s.SinceLast(fcr) == 0 && s.SinceLast(fcv) != 0 && s.SinceLast(flr) != 0 && s.SinceLast(frr) != 0
	first := abs32(o.VideoInnovation.Range) > 7.7 && o.ElevationValid && elev > 1.7 && statLoc > 3
	second := o.ElevationValid && elev > 2.2 && statLoc > 5 && fcrOnly
	return when(first || second, relevance.AEB)
}
