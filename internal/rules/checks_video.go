package rules

import (
	"math"

	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/track"
	"github.com/banshee-data/trackguard/internal/units"
)

func checkSuppressionUntilNextVideoUpdate(c *Context) relevance.BitField {
	return when(c.Object.SuppressedUntilNextVideoUpdate, relevance.AEB)
}

func checkVideoOTCSuppression(c *Context) relevance.BitField {
	return when(c.Object.SuppressedByVideoOTC, relevance.AEB)
}

// checkUnreliableAngularVelocity catches crossing tracks whose lateral
// velocity comes from a video angular-rate estimate that radar never
// confirmed with oncoming locations.
func checkUnreliableAngularVelocity(c *Context) relevance.BitField {
	o := c.Object
	s := &o.Sensors
	absVel := c.Derived.AbsVelOverGround
	vru := c.Derived.IsVru
	age := o.CyclesExisting

	standingCar := o.ProbHasBeenObservedMoving < 0.15 && o.ProbIsCurrentlyMoving < 0.15 &&
		o.Classification.IsFourPlusWheelerOrSubtype()
	turning := isTurning(c.Ego)
	veryRecent := age < 7

	var crossingThr float32
	switch {
	case vru && turning:
		crossingThr = 0.88
	case vru:
		crossingThr = 0.68
	case standingCar:
		crossingThr = 0.35
	case veryRecent:
		crossingThr = 0.5
	default:
		crossingThr = math.MaxFloat32
	}
	if absVel[1] <= crossingThr || measuredByCorner(s) {
		return 0
	}

	var angVelThr uint8
	if vru {
		angVelThr = 1
	}
	innosUnreliable := o.VideoInnovation.Range > 3 && o.VideoInnovation.Angle > units.Deg(4)
	videoSuspicious := o.CyclesSinceVideoUpdateWithAngularVelocity <= angVelThr ||
		o.CreatedByVideoWithHighVy || innosUnreliable
	if !videoSuspicious {
		return 0
	}

	ped := o.Classification.Is(track.TypePedestrian)
	movingFast := absVel[1] > 2
	unreliableMovingVru := ped && movingFast && o.StationaryLocationsOnlyCount >= 4 &&
		o.ProbIsCurrentlyMoving < 0.35 && age < 20 && abs32(o.State.Y) > 2.5 &&
		o.ExpectedVrHighCount >= 5 && o.MicroDopplerCycles <= 2
	// Heading towards the ego lane does not gate association suspicion.
	assocSuspicious := ped && movingFast && absVel[0] > 1 &&
		o.StationaryLocationsOnlyCount >= 2 && o.ProbIsCurrentlyMoving < 0.2 &&
		o.ProbHasBeenObservedMoving < 0.2 && o.BadSensorBasedInnoCount > 0

	var lowerRadar uint8 = 1
	if c.Derived.IsProbableVideoGhost {
		lowerRadar = 0
	}
	var oncomingThr uint8
	if unreliableMovingVru {
		oncomingThr = 1
	}
	radarSuspicious := IsMovingTowardsEgoLane(o.State.Y, o.State.VY, c.Derived.VelOverGround[1]) &&
		s.Total(fcr) > lowerRadar && o.State.X < 50 &&
		(o.TotalCyclesWithOncoming <= oncomingThr ||
			(o.ConsecutiveCyclesWithoutOncoming > 12 && o.TotalCyclesWithOncoming < 5))
	if !radarSuspicious {
		return 0
	}

	if veryRecent || unreliableMovingVru || assocSuspicious {
		return relevance.AEB
	}
	wellTracked := s.Total(fcv) > 10 && s.Total(fcr) > 10
	return when(!wellTracked, relevance.VyDependent)
}

// checkStationaryVruVideoGhost flags a standing VRU whose radar echo is too
// strong for its class while video barely believes in it.
func checkStationaryVruVideoGhost(c *Context) relevance.BitField {
	o := c.Object
	var rcsHigh bool
	switch o.Classification.MostProbable() {
	case track.TypeTwoWheeler, track.TypeBicycle, track.TypeMotorcycle:
		rcsHigh = o.RCS > 6.5
	case track.TypePedestrian:
		rcsHigh = o.RCS > 4
	}
	absVel := c.Derived.AbsVelOverGround
	return when(rcsHigh && o.WExistVideo < 0.4 &&
		o.Sensors.SinceLast(tr) == 0 && o.Sensors.SinceLast(tv) == 0 &&
		absVel[0] < 0.5 && absVel[1] < 0.75, relevance.AEB)
}

// checkImplausibleVideoTTCVru fires when a freshly video-updated VRU carries
// the "no time to collision" sentinel.
func checkImplausibleVideoTTCVru(c *Context) relevance.BitField {
	o := c.Object
	return when(c.Derived.IsVru && o.Sensors.SinceLast(tv) < 1 &&
		abs32(o.VideoInvTTC-math.MaxFloat32) < epsilon32, relevance.AEB)
}

// epsilon32 is the float32 machine epsilon.
const epsilon32 = 1.1920929e-07

// checkVideoHandleShared disqualifies a standing VRU whose video measurement
// was more recently used by a clearly moving neighbour.
func checkVideoHandleShared(c *Context) relevance.BitField {
	o := c.Object
	absVel := c.Derived.AbsVelOverGround
	since := o.Sensors.SinceLast(fcv)
	if !c.Derived.IsVru || absVel[0] >= 0.5 || absVel[1] >= 0.5 ||
		o.ProbHasBeenObservedMoving <= 0.9 || since <= 1 || !o.VideoHandleValid {
		return 0
	}
	if c.Neighbors == nil {
		return 0
	}
	var hit bool
	c.Neighbors.ForEach(func(n NeighborView) bool {
		if n.ID == o.ID || !n.VideoHandleValid || n.VideoHandle != o.VideoHandle {
			return true
		}
		if n.AbsVelOverGround[0] > 2 && n.SinceVideo < since {
			hit = true
			return false
		}
		return true
	})
	return when(hit, relevance.AEB)
}

// checkInconsistentAlpha fires when radar and video pull the angle estimate in
// opposite directions on a distant in-lane track.
func checkInconsistentAlpha(c *Context) relevance.BitField {
	o := c.Object
	ra, va := o.RadarRawAlphaInnovation, o.VideoRawAlphaInnovation
	inconsistent := abs32(ra) > 0.02 && abs32(va) > 0.02 && ra*va < 0
	return when(inconsistent && o.State.X > 25 && abs32(o.State.Y) < 2.5 &&
		o.Sensors.SinceLast(fcv) == 0 && o.Sensors.SinceLast(fcr) == 0, relevance.AEB)
}
