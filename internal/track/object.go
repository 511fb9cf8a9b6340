// Package track holds the per-cycle snapshot of a fused track and of the ego
// vehicle, as handed over by the tracker after its update step.
package track

// State is the relative kinematic state in the ego frame (x forward, y left).
type State struct {
	X  float32
	Y  float32
	VX float32
	VY float32
	AX float32
	AY float32
}

// Innovation is a measurement-minus-prediction residual split into range and
// angle components.
type Innovation struct {
	Range float32
	Angle float32 // radians
}

// Object is the snapshot of one fused track.
//
// Most fields are produced upstream and only read here. The bad-sensor-based
// innovation count, the orientation-unreliable count and the two movement
// probabilities are additionally mutated by the engine's update phase.
type Object struct {
	ID uint16 // 10-bit track identity

	State       State
	YawAngle    float32 // radians
	FacingAngle float32 // radians
	Length      float32
	Width       float32

	Sensors SensorFusion

	// Signal quality
	RCS                     float32
	Elevation               float32
	ElevationValid          bool
	AvgDxInnovation         float32
	RadarInnovation         Innovation
	VideoInnovation         Innovation
	RadarRawAlphaInnovation float32
	VideoRawAlphaInnovation float32

	Classification      Classification
	Filter              FilterType
	PNonObstacleRCSOnly float32

	ProbHasBeenObservedMoving float32
	ProbIsCurrentlyMoving     float32

	// Hysteresis counters, owned by the track for its whole lifetime.
	BadSensorBasedInnoCount          uint8
	OrientationUnreliableCount       uint8
	VyInconsistentCount              uint8
	SplitCount                       int32
	StoppingSplitCount               int32
	StationaryLocationsOnlyCount     uint16
	MicroDopplerCycles               uint8
	ExpectedVrHighCount              uint8
	NonPlausibleLocationCount        uint8
	CyclesWithoutOrientationUpdate   uint8
	ConsecutiveCyclesWithoutOncoming uint8
	TotalCyclesWithOncoming          uint8
	VyUnreliableAccumulated          float32
	CyclesExisting                   uint16
	TransferredFromSeparationCycle   uint16

	// Video association
	VideoHandle                               uint16
	VideoHandleValid                          bool
	WExistVideo                               float32
	VideoInvTTC                               float32
	CreatedByVideoWithHighVy                  bool
	CyclesSinceVideoUpdateWithAngularVelocity uint8

	// Flags set by upstream video conflict resolution and orientation checks.
	SuppressedUntilNextVideoUpdate           bool
	SuppressedByVideoOTC                     bool
	UpdatedWithStatLocHighMDopplerOutgoingVr bool
	OrientationImplausibleVsVideo            bool
}

// FilterType is the motion model currently assigned by the estimator.
type FilterType uint8

const (
	FilterUnknown FilterType = iota
	FilterLA                 // low acceleration
	FilterWNJ                // white noise jerk
	FilterCV                 // constant velocity
)

var filterNames = [...]string{"unknown", "LA", "WNJ", "CV"}

func (f FilterType) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return "unknown"
}

// ParseFilterType maps a filter name back to its FilterType. Unrecognised
// names map to FilterUnknown and ok=false.
func ParseFilterType(s string) (f FilterType, ok bool) {
	for i, n := range filterNames {
		if n == s {
			return FilterType(i), true
		}
	}
	return FilterUnknown, false
}
