package rules

import (
	"math"

	"github.com/banshee-data/trackguard/internal/interp"
	"github.com/banshee-data/trackguard/internal/monitoring"
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/track"
	"github.com/banshee-data/trackguard/internal/units"
)

// checkElevation compares the elevation of slow video-confirmed tracks and
// VRUs against the calibrated dx-dependent limit. The limit is held constant
// beyond the table.
func checkElevation(c *Context) relevance.BitField {
	o := c.Object
	absVel := c.Derived.AbsVelOverGround
	stationaryVideo := absVel[0] < 1 && absVel[1] < 1 && o.Sensors.SinceLast(fcv) < 10
	if o.State.X <= 0 || !o.ElevationValid || !(stationaryVideo || c.Derived.IsVru) {
		return 0
	}
	allowed := c.Params.ElevationLimits.ConstantExtrapolate(o.State.X)
	return when(o.Elevation > allowed, relevance.AEB)
}

func checkNonPlausibleLocation(c *Context) relevance.BitField {
	o := c.Object
	if !o.Classification.Is(track.TypeTruck) || c.Params.MPC3Used {
		return 0
	}
	straight := abs32(units.WrapToHalfPi(o.YawAngle)) < units.Deg(10)
	lowVideoExist := o.WExistVideo < 0.9 && o.Sensors.SinceLast(fcv) < 3
	return when(straight && o.NonPlausibleLocationCount > 4 && o.Filter == track.FilterLA && lowVideoExist,
		relevance.AEB)
}

func cornerIrrelevantForRcs(s *track.SensorFusion, ch track.Channel) bool {
	return s.Total(ch) < 11 || s.SinceLast(ch) > 19
}

// checkFourPlusWheeler groups the vehicle plausibility checks. A slow
// approaching car with a biased range innovation, or a car radar no longer
// confirms, loses AEB and ACC; an implausible RCS or a sideways car without
// micro-Doppler loses AEB only.
func checkFourPlusWheeler(c *Context) relevance.BitField {
	o := c.Object
	if !o.Classification.IsFourPlusWheelerOrSubtype() {
		return 0
	}
	s := &o.Sensors
	p := c.Params
	vxAbs := o.State.VX + c.Ego.VX

	implausibleDx := s.Total(tr) > 20 && s.Total(tv) > 20 &&
		vxAbs >= -2.5 && vxAbs <= -0.5 &&
		o.State.X < 10 && o.AvgDxInnovation > 0.7 &&
		!s.IsGoodQualityFused(tr, tv)
	untrustworthy := s.SinceLast(tv) <= 1 && !s.IsTrustworthy(tr, 15) && o.ProbHasBeenObservedMoving < 0.1
	if implausibleDx || untrustworthy {
		return relevance.AebAndAcc
	}

	lowestThreshold := s.SinceLast(tv) < 2 && o.ElevationValid && abs32(o.Elevation) < 2.5 && o.WExistVideo > 0.4
	rcsThr := p.ImplausibleRcsThresh
	if lowestThreshold {
		rcsThr -= 8.5
	}
	rcsDisq := o.State.X < p.MaxLongDistRcsCountermeasure && o.RCS < rcsThr &&
		s.SinceLast(tv) < p.MaxCyclesSinceLastVideoUpdate &&
		cornerIrrelevantForRcs(s, flr) && cornerIrrelevantForRcs(s, frr)

	facing := abs32(o.FacingAngle)
	sideways := o.ExpectedVrHighCount > 3 && o.StationaryLocationsOnlyCount > 1 &&
		facing > units.Deg(45) && facing < units.Deg(135) &&
		o.MicroDopplerCycles == 0 && s.Total(fcr) > 3
	return when(rcsDisq || sideways, relevance.AEB)
}

// checkSplit disqualifies tracks that the tracker repeatedly tried to split.
func checkSplit(c *Context) relevance.BitField {
	o := c.Object
	limit := c.Params.SplitDetectionCntMaxVal
	split := o.SplitCount >= limit || (o.StoppingSplitCount >= limit && o.SplitCount >= limit-2)
	return when(!c.Derived.IsVru && split, relevance.AebAndAcc)
}

// checkOrientationConsistency compares the yaw angle with the direction of
// travel for vehicle-like tracks. Too slow to trust the direction, it falls
// back to the video orientation plausibility flag.
func checkOrientationConsistency(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	vru := c.Derived.IsVru

	notVruByDims := o.Length > 4 && o.Width > 1.5
	var missingVideo uint8 = 4
	if o.CyclesExisting > 15 {
		missingVideo = 8
	}
	noStrongVru := !vru && notVruByDims && s.SinceLast(tv) > missingVideo &&
		s.Total(flr) < 1 && s.Total(frr) < 1
	motorcycleLA := o.Classification.Is(track.TypeMotorcycle) && o.Filter == track.FilterLA
	if !(o.Classification.IsFourPlusWheelerOrSubtype() || noStrongVru || motorcycleLA) {
		return 0
	}

	absVel := c.Derived.AbsVelOverGround
	if (absVel[0] > 1.7 || absVel[1] > 1.7) && s.Total(fcr) > 0 {
		v := c.Derived.VelOverGround
		delta := units.WrapToPi(o.YawAngle - atan2f(v[1], v[0]))
		return when(abs32(delta) > math.Pi/4, relevance.AEB)
	}
	return when(o.OrientationUnreliableCount > 2 && o.OrientationImplausibleVsVideo, relevance.AEB)
}

// checkInnovation disqualifies nearby tracks whose average range innovation
// exceeds the context-dependent threshold.
func checkInnovation(c *Context) relevance.BitField {
	o := c.Object
	p := c.Params
	if abs32(o.State.X) >= p.InnovationCheckDxThreshold || abs32(o.State.Y) >= p.InnovationCheckDyThreshold {
		return 0
	}
	thr, source := DxInnovationThreshold(c)
	if abs32(o.AvgDxInnovation) <= thr {
		return 0
	}
	if monitoring.TraceEnabled() {
		monitoring.Tracef("object %d: avg dx innovation %.3f above %.2f (%s)", o.ID, o.AvgDxInnovation, thr, source)
	}
	return relevance.AEB
}

// checkSensorBasedInnovation uses the bad-innovation counter maintained by the
// update phase. Crossing cars are exempt: they keep high innovations even
// when real.
func checkSensorBasedInnovation(c *Context) relevance.BitField {
	o := c.Object
	if o.State.X <= 0.1 || o.BadSensorBasedInnoCount < 2 {
		return 0
	}
	var vyThr float32 = 3
	if o.BadSensorBasedInnoCount >= 5 {
		vyThr = 4.4
	}
	absVel := c.Derived.AbsVelOverGround
	crossingCar := o.Classification.IsFourPlusWheelerOrSubtype() && absVel[0] < 0.98 && absVel[1] > vyThr
	return when(c.Derived.IsVru || !crossingCar, relevance.AEB)
}

func checkImplausibleCarCloseRange(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	fcrOnly := s.SinceLast(fcr) == 0 && s.SinceLast(fcv) > 10 && s.SinceLast(flr) > 10 && s.SinceLast(frr) > 10
	return when(o.State.X < 17 && o.Length > 7 && o.Classification.Is(track.TypeCar) && fcrOnly, relevance.AEB)
}

// stationaryVruElevation is the elevation limit for standing VRUs. It keeps
// rising linearly beyond 40 m.
var stationaryVruElevation = interp.MustTable([]float32{0, 40}, []float32{2, 3})

// checkElevatedObject catches signs, gantries and other overhead targets that
// show up as low-confidence elevated tracks.
func checkElevatedObject(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	absVel := c.Derived.AbsVelOverGround
	age := o.CyclesExisting

	slow := absVel[0] < 2.2 && absVel[1] < 0.4
	noVideo := s.SinceLast(fcv) > 5
	elevated := o.ElevationValid && o.Elevation > 2.1

	ratio := videoOnlyRatio(c)
	staticPed := o.Classification.Prob(track.TypePedestrian) > 0.7 && o.StationaryLocationsOnlyCount >= 4
	highVideoInno := s.SinceLast(fcv) == 0 && s.SinceLast(fcr) == 0 && o.VideoInnovation.Range > 2.2 && age < 30

	car := o.Classification.Is(track.TypeCar)
	littleVideo := s.SinceLast(tv) >= 2 && float32(s.Total(fcv)) < 0.2*float32(age)
	lowConfCar := car && o.RadarInnovation.Angle > units.Deg(2) && age >= 30 && littleVideo &&
		s.Total(flr) == 0 && s.Total(frr) == 0 && o.State.X > 27
	elevatedCar := car && o.ElevationValid && o.Elevation > 1.9

	lowConf := o.RCS < -12 ||
		(o.RCS < -3 && (noVideo || (staticPed && ratio >= 0.375))) ||
		(highVideoInno && staticPed) ||
		lowConfCar
	elevatedUnreliable := (slow || noVideo) && (elevated || elevatedCar) && lowConf

	stationaryElevatedVru := c.Derived.IsVru && absVel[0] < 0.4 && absVel[1] < 0.4 && o.RCS < -6 &&
		o.ElevationValid && o.Elevation > stationaryVruElevation.LinearExtrapolate(o.State.X)
	return when(elevatedUnreliable || stationaryElevatedVru, relevance.AEB)
}

// videoOnlyRatio is the share of the last relevant cycles (at most 8, counted
// since the track took over from its predecessor) that were video-only or
// without update.
func videoOnlyRatio(c *Context) float32 {
	o := c.Object
	if o.CyclesExisting < o.TransferredFromSeparationCycle {
		c.invariantViolated("cycles existing %d below transfer cycle %d",
			o.CyclesExisting, o.TransferredFromSeparationCycle)
		return 0
	}
	n := int(o.CyclesExisting-o.TransferredFromSeparationCycle) + 1
	if n > 8 {
		n = 8
	}
	videoOnly := o.Sensors.SingleUpdateByOrNone(fcv, n)
	return float32(videoOnly) / float32(n)
}
