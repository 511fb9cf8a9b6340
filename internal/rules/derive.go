package rules

import "github.com/banshee-data/trackguard/internal/track"

// Derived holds values computed once per object and shared by the checks.
type Derived struct {
	VelOverGround    track.Vec2
	AbsVelOverGround track.Vec2
	AccOverGround    track.Vec2
	IsVru            bool
	// IsProbableVideoGhost marks a video-driven track whose few radar
	// confirmations look like clutter.
	IsProbableVideoGhost bool
}

// Derive computes the shared values for o.
func Derive(o *track.Object, ego track.EgoMotion) Derived {
	v := track.VelocityOverGround(o, ego)
	return Derived{
		VelOverGround:        v,
		AbsVelOverGround:     v.Abs(),
		AccOverGround:        track.AccelerationOverGround(o, ego),
		IsVru:                o.Classification.IsVru(),
		IsProbableVideoGhost: IsProbableVideoGhost(o),
	}
}

// IsProbableVideoGhost reports whether o is mostly carried by video with a
// handful of weak, non-oncoming radar associations.
func IsProbableVideoGhost(o *track.Object) bool {
	s := &o.Sensors
	fcr := s.Total(track.FrontCenterRadar)
	return fcr > 0 && fcr < 3 &&
		s.SinceLast(track.FrontCenterRadar) == 0 &&
		s.Total(track.FrontCenterVideo) > 3 &&
		s.Total(track.FrontLeftCornerRadar) == 0 &&
		s.Total(track.FrontRightCornerRadar) == 0 &&
		o.MicroDopplerCycles == 0 &&
		o.ExpectedVrHighCount > 0 &&
		o.RCS < -15
}

// IsMovingTowardsEgoLane reports whether either lateral velocity points from
// the track's lateral offset dy towards the ego lane.
func IsMovingTowardsEgoLane(dy, vyRel, vyOverGround float32) bool {
	return dy*vyRel < 0 || dy*vyOverGround < 0
}
