package track

// SaturatingCounter describes the bounds of a small hysteresis counter.
type SaturatingCounter struct {
	Min, Max uint8
}

// Increment returns v+1 clamped to the counter bounds.
func (c SaturatingCounter) Increment(v uint8) uint8 {
	switch {
	case v >= c.Max:
		return c.Max
	case v < c.Min:
		return c.Min
	}
	return v + 1
}

// Decrement returns v-1 clamped to the counter bounds.
func (c SaturatingCounter) Decrement(v uint8) uint8 {
	switch {
	case v <= c.Min:
		return c.Min
	case v > c.Max:
		return c.Max
	}
	return v - 1
}

var (
	// OrientationUnreliableCounter bounds Object.OrientationUnreliableCount.
	OrientationUnreliableCounter = SaturatingCounter{Min: 0, Max: 15}
	// BadSensorBasedInnoCounter bounds Object.BadSensorBasedInnoCount.
	BadSensorBasedInnoCounter = SaturatingCounter{Min: 0, Max: 10}
)

const (
	badInnoScoreThreshold     float32 = 3.0
	badInnoScoreThresholdMPC3 float32 = 3.5
)

// UpdateBadSensorBasedInnoCount folds one cycle's normalised innovation score
// into the bad-sensor-based innovation counter. The MPC3 radar generation
// scores without the video range term and uses a higher threshold.
func (o *Object) UpdateBadSensorBasedInnoCount(score float32, mpc3 bool) {
	thr := badInnoScoreThreshold
	if mpc3 {
		thr = badInnoScoreThresholdMPC3
	}
	if score > thr {
		o.BadSensorBasedInnoCount = BadSensorBasedInnoCounter.Increment(o.BadSensorBasedInnoCount)
	} else {
		o.BadSensorBasedInnoCount = BadSensorBasedInnoCounter.Decrement(o.BadSensorBasedInnoCount)
	}
}
