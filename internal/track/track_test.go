package track

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// classification

func TestMostProbable(t *testing.T) {
	t.Parallel()

	var c Classification
	assert.Equal(t, TypeUnknown, c.MostProbable())

	c.Probs[TypeCar] = 0.4
	c.Probs[TypeTruck] = 0.4
	assert.Equal(t, TypeCar, c.MostProbable(), "ties resolve to the earlier type")
	assert.True(t, c.IsFourPlusWheelerOrSubtype())
	assert.False(t, c.IsVru())

	c.Probs[TypePedestrian] = 0.5
	assert.True(t, c.Is(TypePedestrian))
	assert.True(t, c.IsVru())
	assert.False(t, c.IsObstacleLike())
}

func TestOnly(t *testing.T) {
	t.Parallel()

	for ty := TypeUnknown; ty < NumObjectTypes; ty++ {
		c := Only(ty)
		assert.Equal(t, ty, c.MostProbable(), ty.String())
		assert.Equal(t, float32(1), c.Prob(ty))
	}
	car := Only(TypeCar)
	assert.Zero(t, car.Prob(NumObjectTypes))
}

func TestObjectTypeText(t *testing.T) {
	t.Parallel()

	var ty ObjectType
	require.NoError(t, ty.UnmarshalText([]byte("motorcycle")))
	assert.Equal(t, TypeMotorcycle, ty)
	assert.Error(t, ty.UnmarshalText([]byte("tram")))

	b, err := TypeObstacleMobile.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "obstacle_mobile", string(b))
}

func TestFilterType(t *testing.T) {
	t.Parallel()

	f, ok := ParseFilterType("WNJ")
	assert.True(t, ok)
	assert.Equal(t, FilterWNJ, f)
	assert.Equal(t, "LA", FilterLA.String())

	_, ok = ParseFilterType("IMM")
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// kinematics

func TestVelocityOverGround(t *testing.T) {
	t.Parallel()

	o := &Object{State: State{X: 10, Y: 2, VX: -5, VY: 0.5}}
	ego := EgoMotion{VX: 10, YawRate: 0.1}

	v := VelocityOverGround(o, ego)
	assert.InDelta(t, -5+10-0.1*2, v[0], 1e-6)
	assert.InDelta(t, 0.5+0.1*10, v[1], 1e-6)

	o.State.VY = -3
	abs := AbsVelocityOverGround(o, ego)
	assert.InDelta(t, 2, abs[1], 1e-6)

	assert.InDelta(t, 5, Vec2{3, 4}.Norm(), 1e-6)
}

func TestAccelerationOverGround(t *testing.T) {
	t.Parallel()

	o := &Object{State: State{AX: 1, AY: -1}}
	a := AccelerationOverGround(o, EgoMotion{AX: 0.5, AY: 0.25})
	assert.Equal(t, Vec2{1.5, -0.75}, a)
}

func TestExtentAndDistance(t *testing.T) {
	t.Parallel()

	// box straight ahead, aligned with the line of sight
	o := &Object{State: State{X: 20}, Length: 4, Width: 2}
	assert.InDelta(t, 2, o.DyExtent(), 1e-5)
	assert.InDelta(t, 20, o.DistanceToCenter(), 1e-5)

	// crossing box straight ahead
	o.YawAngle = math.Pi / 2
	assert.InDelta(t, 4, o.DyExtent(), 1e-5)

	o.State = State{X: 3, Y: 4}
	assert.InDelta(t, 5, o.DistanceToCenter(), 1e-5)
}

// ---------------------------------------------------------------------------
// counters

func TestSaturatingCounter(t *testing.T) {
	t.Parallel()

	c := SaturatingCounter{Min: 1, Max: 3}
	assert.Equal(t, uint8(2), c.Increment(1))
	assert.Equal(t, uint8(3), c.Increment(3))
	assert.Equal(t, uint8(3), c.Increment(200), "out of range values clamp")
	assert.Equal(t, uint8(1), c.Increment(0))
	assert.Equal(t, uint8(2), c.Decrement(3))
	assert.Equal(t, uint8(1), c.Decrement(1))
	assert.Equal(t, uint8(1), c.Decrement(0))
	assert.Equal(t, uint8(3), c.Decrement(9))

	v := uint8(0)
	for i := 0; i < 40; i++ {
		v = OrientationUnreliableCounter.Increment(v)
	}
	assert.Equal(t, uint8(15), v)
}

func TestUpdateBadSensorBasedInnoCount(t *testing.T) {
	t.Parallel()

	o := &Object{}
	o.UpdateBadSensorBasedInnoCount(3.2, false)
	assert.Equal(t, uint8(1), o.BadSensorBasedInnoCount)

	o.UpdateBadSensorBasedInnoCount(3.2, true)
	assert.Equal(t, uint8(0), o.BadSensorBasedInnoCount, "mpc3 threshold is higher")

	o.UpdateBadSensorBasedInnoCount(0, false)
	assert.Equal(t, uint8(0), o.BadSensorBasedInnoCount)

	for i := 0; i < 30; i++ {
		o.UpdateBadSensorBasedInnoCount(100, false)
	}
	assert.Equal(t, BadSensorBasedInnoCounter.Max, o.BadSensorBasedInnoCount)
}
