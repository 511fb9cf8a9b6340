package units

import "math"

// DegToRad is the float32 degree to radian factor used by all angular thresholds.
const DegToRad float32 = math.Pi / 180

// Deg returns d degrees in radians.
func Deg(d float32) float32 { return d * DegToRad }

// RadToDeg returns r radians in degrees.
func RadToDeg(r float32) float32 { return r / DegToRad }

// WrapToPi wraps a to the interval [-pi, pi).
func WrapToPi(a float32) float32 {
	w := math.Mod(float64(a)+math.Pi, 2*math.Pi)
	if w < 0 {
		w += 2 * math.Pi
	}
	return float32(w - math.Pi)
}

// WrapToHalfPi wraps a to [-pi/2, pi/2), treating headings that differ by pi as
// the same orientation.
func WrapToHalfPi(a float32) float32 {
	w := math.Mod(float64(a)+math.Pi/2, math.Pi)
	if w < 0 {
		w += math.Pi
	}
	return float32(w - math.Pi/2)
}
