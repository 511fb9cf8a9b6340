package rules

import (
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/track"
	"github.com/banshee-data/trackguard/internal/units"
)

func checkStatLocHighMicroDopplerOutgoingVr(c *Context) relevance.BitField {
	o := c.Object
	absVel := c.Derived.AbsVelOverGround
	return when(c.Derived.IsVru && absVel[0] < 0.2 && absVel[1] > 1 && abs32(o.State.Y) < 0.5 &&
		o.UpdatedWithStatLocHighMDopplerOutgoingVr, relevance.AEB)
}

// checkMicroDoppler disqualifies center-radar VRUs that should show limb
// motion but do not.
func checkMicroDoppler(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	p := c.Params
	if !p.MicroDopplerCheckEnabled || !c.Derived.IsVru || o.ExpectedVrHighCount < 2 ||
		s.Total(fcr) == 0 || s.Total(flr) >= 1 || s.Total(frr) >= 1 ||
		o.MicroDopplerCycles >= p.MinVruMicroDopplerCycles {
		return 0
	}
	old := o.CyclesExisting > 12 && s.Total(fcr) > 8
	var upperVy float32 = 99
	if old {
		upperVy = 3.2
	}
	absVel := c.Derived.AbsVelOverGround
	crossing := absVel[1] > 0.5 && absVel[1] < upperVy && absVel[0] < 4 && p.MicroDopplerCrossingVruApplied
	stationary := absVel[0] < 0.5 && absVel[1] < 0.5 && p.MicroDopplerStationaryVruApplied
	return when(crossing || stationary, relevance.AEB)
}

// checkImplausibleVyVru rejects low-acceleration VRUs with a lateral speed the
// model cannot produce, unless ego turning explains it.
func checkImplausibleVyVru(c *Context) relevance.BitField {
	o := c.Object
	return when(c.Derived.IsVru && c.Derived.AbsVelOverGround[1] > c.Params.ImplausibleVyThreshLAHypo &&
		o.Filter == track.FilterLA && !isTurning(c.Ego), relevance.AebAndAcc)
}

func checkVyInconsistent(c *Context) relevance.BitField {
	o := c.Object
	vru := c.Derived.IsVru
	laInconsistent := o.VyInconsistentCount > 3 && o.Filter == track.FilterLA && vru &&
		abs32(o.State.Y) > 1.2 && abs32(c.Ego.YawRate) < 0.0262
	wnjUnreliable := o.VyUnreliableAccumulated > 2.6 && vru && o.Filter == track.FilterWNJ
	return when(laInconsistent || wnjUnreliable, relevance.AEB)
}

// checkMeasuredRatioStandingLongitudinalVru flags an established VRU that
// was seen moving, now stands, and misses updates in at least half of the
// last cycles.
func checkMeasuredRatioStandingLongitudinalVru(c *Context) relevance.BitField {
	o := c.Object
	const relevantCycles = 8
	nonUpdates := o.Sensors.SingleUpdateByOrNone(track.NoChannel, relevantCycles)
	badlyMeasured := relevantCycles <= 2*int(nonUpdates)
	return when(o.Filter == track.FilterLA && o.ProbHasBeenObservedMoving > 0.95 &&
		o.ProbIsCurrentlyMoving < 0.15 && o.CyclesExisting >= 25 && c.Derived.IsVru && badlyMeasured,
		relevance.AEB)
}

func checkImplausiblyAcceleratingVru(c *Context) relevance.BitField {
	o := c.Object
	v := c.Derived.VelOverGround
	speed := v.Norm()
	if speed < 4.5 {
		return 0
	}
	a := c.Derived.AccOverGround
	fwdAcc := (v[0]*a[0] + v[1]*a[1]) / speed
	return when(o.State.X < 35 && o.CyclesExisting < 10 && c.Derived.IsVru && fwdAcc > 3, relevance.AEB)
}

// checkUndefinedCrossingVruFromCorner targets young, corner-radar-born tracks
// that cross fast while the classifier cannot decide between pedestrian and
// two-wheeler.
func checkUndefinedCrossingVruFromCorner(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	cornerOnly := (s.Total(flr) >= 10 || s.Total(frr) >= 10) && s.Total(fcv) <= 1 && s.Total(fcr) <= 1
	pPed := o.Classification.Prob(track.TypePedestrian)
	p2W := o.Classification.Prob(track.TypeTwoWheeler)
	undecided := pPed > 0.3 && p2W > 0.3 && pPed+p2W > 0.8
	return when(cornerOnly && o.State.X < 10 && o.CyclesExisting <= 15 && o.Filter == track.FilterWNJ &&
		o.ProbHasBeenObservedMoving < 0.3 && c.Derived.AbsVelOverGround[1] > 3 && undecided, relevance.AEB)
}

func checkImplausiblePedestrian(c *Context) relevance.BitField {
	o := c.Object
	if !o.Classification.Is(track.TypePedestrian) {
		return 0
	}
	s := &o.Sensors
	absVel := c.Derived.AbsVelOverGround
	age := o.CyclesExisting
	statLoc := o.StationaryLocationsOnlyCount >= 4

	rcsOdd := (o.RCS > 3.5 || o.RCS < -14) && absVel[0] > 2 && o.MicroDopplerCycles <= 2
	fewRadarUpdates := s.Total(flr) < 10 && s.Total(frr) < 10 && s.Total(fcr) < 3
	cornerGhost := abs32(o.State.Y) >= 0.5 && o.MicroDopplerCycles == 0 && statLoc && fewRadarUpdates &&
		age < 10 && measuredByCorner(s)
	lowWithBadAngles := statLoc && abs32(o.RadarInnovation.Angle) > units.Deg(5) &&
		abs32(o.VideoInnovation.Angle) > units.Deg(2) && o.ElevationValid && o.Elevation < 0.1 && age < 15
	return when(rcsOdd || cornerGhost || lowWithBadAngles, relevance.AEB)
}

// checkImplausiblePedestrianLRR is the long-range-radar counterpart of
// checkImplausiblePedestrian.
func checkImplausiblePedestrianLRR(c *Context) relevance.BitField {
	o := c.Object
	if !o.Classification.Is(track.TypePedestrian) {
		return 0
	}
	s := &o.Sensors
	absVel := c.Derived.AbsVelOverGround
	inLaneFast := abs32(o.State.Y) < 0.5 && absVel[1] < 0.4 && s.SinceLast(fcv) == 0 && absVel[0] > 2 &&
		o.MicroDopplerCycles <= 2
	staticLocs := o.StationaryLocationsOnlyCount > 5 &&
		(abs32(o.VideoInnovation.Range) > 6 || s.CyclesSinceAnyUpdate != 0)
	noMicroDoppler := o.MicroDopplerCycles == 0 && o.ExpectedVrHighCount > 0 && s.Total(fcr) > 0
	strongYoungCorner := noMicroDoppler && o.RCS > 0 && o.CyclesExisting < 10 && measuredByCorner(s)
	return when(inLaneFast || staticLocs || strongYoungCorner, relevance.AEB)
}

// checkCornerRadarStationaryFirstAssociation flags a young standing VRU built
// by a corner radar that the center radar has just picked up for the first
// time during a sharp ego turn.
func checkCornerRadarStationaryFirstAssociation(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	absVel := c.Derived.AbsVelOverGround
	return when(c.Derived.IsVru && o.CyclesExisting < 15 && absVel[0] < 0.8 && absVel[1] < 0.8 &&
		(s.Total(flr) > 11 || s.Total(frr) > 11) && s.Total(fcr) == 1 && s.Total(fcv) == 0 &&
		o.StationaryLocationsOnlyCount >= 2 && abs32(c.Ego.YawRate) > 0.523599, relevance.AEB)
}
