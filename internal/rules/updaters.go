package rules

import (
	"github.com/banshee-data/trackguard/internal/track"
	"github.com/banshee-data/trackguard/internal/units"
)

// orientationYawRate is the ego yaw rate (~5 deg/s) above which a missing
// orientation update counts against the track.
const orientationYawRate float32 = 0.087266

func updateOrientationUnreliableCount(c *Context) {
	if c.Derived.IsVru {
		return
	}
	o := c.Object
	if o.CyclesWithoutOrientationUpdate > 1 && abs32(c.Ego.YawRate) > orientationYawRate {
		o.OrientationUnreliableCount = track.OrientationUnreliableCounter.Increment(o.OrientationUnreliableCount)
	} else {
		o.OrientationUnreliableCount = track.OrientationUnreliableCounter.Decrement(o.OrientationUnreliableCount)
	}
}

// recentContributionCycles is how stale a sensor may be and still count as
// contributing to the innovation score.
const recentContributionCycles = 3

// BadSensorInnovationScore computes the normalised innovation score of o. ok
// is false when the track is too close to the sensors to normalise the angle
// innovations.
func BadSensorInnovationScore(o *track.Object, absVel track.Vec2, mpc3 bool) (score float32, ok bool) {
	d := o.DistanceToCenter() - track.OverCompensatedMounting
	if d <= 0.1 {
		return 0, false
	}
	stationary := absVel[0] < 0.5 && absVel[1] < 0.5

	const normRadarDr = 2.0
	var radarAlphaFactor float32 = 1
	if stationary {
		radarAlphaFactor = 0.5
	}
	normRadarAlpha := radarAlphaFactor * atanf(o.DyExtent()/d)
	if floor := units.Deg(2); normRadarAlpha < floor {
		normRadarAlpha = floor
	}
	normVideoAlpha := atanf(1 / d)
	var videoDrFactor float32 = 1000
	if stationary && d < 20 {
		videoDrFactor = 0.6
	}
	normVideoDr := videoDrFactor * d

	score = abs32(o.RadarInnovation.Range/normRadarDr) +
		abs32(o.RadarInnovation.Angle/normRadarAlpha) +
		abs32(o.VideoInnovation.Angle/normVideoAlpha)
	if !mpc3 {
		score += abs32(o.VideoInnovation.Range / normVideoDr)
	}

	s := &o.Sensors
	if !(s.SinceLast(fcr) <= recentContributionCycles && s.SinceLast(fcv) <= recentContributionCycles) {
		score *= 2
	}
	return score, true
}

func updateBadSensorBasedInnoCount(c *Context) {
	score, ok := BadSensorInnovationScore(c.Object, c.Derived.AbsVelOverGround, c.Params.MPC3Used)
	if !ok {
		return
	}
	c.Object.UpdateBadSensorBasedInnoCount(score, c.Params.MPC3Used)
}

// clampWaterSprinklerProbabilities lowers the movement probabilities of
// radar-only clutter so that ACC does not follow it.
func clampWaterSprinklerProbabilities(c *Context) {
	o := c.Object
	if !o.Sensors.IsOnlyUpdatedBy(tr) || o.RCS >= -8.1 || !o.Classification.IsObstacleLike() {
		return
	}
	if !waterSprayLike(o, c.Derived.AbsVelOverGround, 4.0) {
		return
	}
	o.ProbHasBeenObservedMoving = min(0.5, o.ProbHasBeenObservedMoving)
	o.ProbIsCurrentlyMoving = min(0.01, o.ProbIsCurrentlyMoving)
}
