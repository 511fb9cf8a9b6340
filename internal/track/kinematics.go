package track

import "math"

// EgoMotion is the ego vehicle motion of the current cycle.
type EgoMotion struct {
	VX      float32
	YawRate float32
	AY      float32
	AX      float32
}

// OverCompensatedMounting is the longitudinal offset between the sensor
// reference point and the ego origin that distances to the track center are
// corrected by.
const OverCompensatedMounting float32 = 3.8

// Vec2 is an (x, y) pair.
type Vec2 [2]float32

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float32 {
	return float32(math.Hypot(float64(v[0]), float64(v[1])))
}

// Abs returns the component magnitudes of v.
func (v Vec2) Abs() Vec2 {
	return Vec2{abs32(v[0]), abs32(v[1])}
}

// VelocityOverGround returns the track velocity relative to the ground,
// compensating ego translation and rotation.
func VelocityOverGround(o *Object, ego EgoMotion) Vec2 {
	return Vec2{
		o.State.VX + ego.VX - ego.YawRate*o.State.Y,
		o.State.VY + ego.YawRate*o.State.X,
	}
}

// AbsVelocityOverGround returns the component magnitudes of the velocity
// over ground.
func AbsVelocityOverGround(o *Object, ego EgoMotion) Vec2 {
	return VelocityOverGround(o, ego).Abs()
}

// AccelerationOverGround returns the track acceleration relative to the ground.
func AccelerationOverGround(o *Object, ego EgoMotion) Vec2 {
	return Vec2{o.State.AX + ego.AX, o.State.AY + ego.AY}
}

// DistanceToCenter is the radial distance to the track position.
func (o *Object) DistanceToCenter() float32 {
	return float32(math.Hypot(float64(o.State.X), float64(o.State.Y)))
}

// DyExtent is the extent of the track box perpendicular to the line of sight.
func (o *Object) DyExtent() float32 {
	los := math.Atan2(float64(o.State.Y), float64(o.State.X))
	rel := float64(o.YawAngle) - los
	return float32(math.Abs(float64(o.Length)*math.Sin(rel)) + math.Abs(float64(o.Width)*math.Cos(rel)))
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
