package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/banshee-data/trackguard/internal/track"
)

// maxTrackID is the size of the 10-bit track identity space.
const maxTrackID = 1 << 10

// Random draws a cycle with n tracks. Every field is drawn from a range the
// tracker can produce, with flags and sentinel values set rarely so that most
// rules stay inactive for most tracks. The same rng state gives the same
// scenario, ID included.
func Random(rng *rand.Rand, n int) *Scenario {
	if n > maxTrackID {
		n = maxTrackID
	}
	ids := rng.Perm(maxTrackID)[:n]
	objects := make([]*track.Object, n)
	for i := range objects {
		objects[i] = randomObject(rng, uint16(ids[i]))
	}
	ego := track.EgoMotion{
		VX:      uniform(rng, 0, 30),
		YawRate: uniform(rng, -0.3, 0.3),
		AX:      uniform(rng, -3, 2),
		AY:      uniform(rng, -2, 2),
	}

	s := FromSnapshot("", objects, ego)
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		// rand.Rand never fails to read.
		panic(err)
	}
	s.ID = id.String()
	s.Name = fmt.Sprintf("random-%d", n)
	return s
}

func uniform(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

func chance(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}

func randomObject(rng *rand.Rand, id uint16) *track.Object {
	age := uint16(1 + rng.Intn(120))
	o := &track.Object{
		ID: id,
		State: track.State{
			X:  uniform(rng, -10, 120),
			Y:  uniform(rng, -15, 15),
			VX: uniform(rng, -20, 20),
			VY: uniform(rng, -5, 5),
			AX: uniform(rng, -4, 4),
			AY: uniform(rng, -4, 4),
		},
		YawAngle:    uniform(rng, -math.Pi, math.Pi),
		FacingAngle: uniform(rng, -math.Pi, math.Pi),
		Length:      uniform(rng, 0.3, 12),
		Width:       uniform(rng, 0.3, 3),

		RCS:             uniform(rng, -25, 15),
		Elevation:       uniform(rng, -1, 5),
		ElevationValid:  chance(rng, 0.5),
		AvgDxInnovation: uniform(rng, -3, 3),
		RadarInnovation: track.Innovation{Range: uniform(rng, -3, 3), Angle: uniform(rng, -0.15, 0.15)},
		VideoInnovation: track.Innovation{Range: uniform(rng, -8, 8), Angle: uniform(rng, -0.1, 0.1)},

		RadarRawAlphaInnovation: uniform(rng, -0.05, 0.05),
		VideoRawAlphaInnovation: uniform(rng, -0.05, 0.05),

		Filter:              track.FilterType(rng.Intn(4)),
		PNonObstacleRCSOnly: rng.Float32(),

		ProbHasBeenObservedMoving: rng.Float32(),
		ProbIsCurrentlyMoving:     rng.Float32(),

		BadSensorBasedInnoCount:          uint8(rng.Intn(int(track.BadSensorBasedInnoCounter.Max) + 1)),
		OrientationUnreliableCount:       uint8(rng.Intn(int(track.OrientationUnreliableCounter.Max) + 1)),
		VyInconsistentCount:              uint8(rng.Intn(8)),
		SplitCount:                       int32(rng.Intn(5)),
		StoppingSplitCount:               int32(rng.Intn(5)),
		StationaryLocationsOnlyCount:     uint16(rng.Intn(10)),
		MicroDopplerCycles:               uint8(rng.Intn(6)),
		ExpectedVrHighCount:              uint8(rng.Intn(8)),
		NonPlausibleLocationCount:        uint8(rng.Intn(8)),
		CyclesWithoutOrientationUpdate:   uint8(rng.Intn(5)),
		ConsecutiveCyclesWithoutOncoming: uint8(rng.Intn(20)),
		TotalCyclesWithOncoming:          uint8(rng.Intn(10)),
		VyUnreliableAccumulated:          uniform(rng, 0, 4),
		CyclesExisting:                   age,
		TransferredFromSeparationCycle:   uint16(rng.Intn(int(age) + 1)),

		VideoHandle:              uint16(rng.Intn(16)),
		VideoHandleValid:         chance(rng, 0.5),
		WExistVideo:              rng.Float32(),
		CreatedByVideoWithHighVy: chance(rng, 0.05),
		CyclesSinceVideoUpdateWithAngularVelocity: uint8(rng.Intn(10)),

		SuppressedUntilNextVideoUpdate:           chance(rng, 0.02),
		SuppressedByVideoOTC:                     chance(rng, 0.02),
		UpdatedWithStatLocHighMDopplerOutgoingVr: chance(rng, 0.05),
		OrientationImplausibleVsVideo:            chance(rng, 0.1),
	}
	if chance(rng, 0.05) {
		o.VideoInvTTC = math.MaxFloat32
	} else {
		o.VideoInvTTC = uniform(rng, -1, 1)
	}

	// One dominant type, the rest of the mass on a runner-up.
	best := track.ObjectType(rng.Intn(int(track.NumObjectTypes)))
	second := track.ObjectType(rng.Intn(int(track.NumObjectTypes)))
	p := uniform(rng, 0.5, 1)
	o.Classification.Probs[best] = p
	if second != best {
		o.Classification.Probs[second] = 1 - p
	}

	randomSensors(rng, &o.Sensors, age)
	return o
}

func randomSensors(rng *rand.Rand, s *track.SensorFusion, age uint16) {
	maxTotal := int(age)
	if maxTotal > math.MaxUint8 {
		maxTotal = math.MaxUint8
	}
	leaf := func() track.ChannelStats {
		total := uint8(rng.Intn(maxTotal + 1))
		if total == 0 {
			return track.ChannelStats{CyclesSinceUpdate: math.MaxUint8}
		}
		return track.ChannelStats{TotalUpdates: total, CyclesSinceUpdate: uint8(rng.Intn(12))}
	}
	for ch := track.FrontCenterRadar; ch <= track.FrontCenterVideo; ch++ {
		s.Channels[ch] = leaf()
	}

	// Technology channels aggregate their leaves.
	tr := track.ChannelStats{CyclesSinceUpdate: math.MaxUint8}
	for _, ch := range []track.Channel{track.FrontCenterRadar, track.FrontLeftCornerRadar, track.FrontRightCornerRadar} {
		cs := s.Channels[ch]
		tr.TotalUpdates = max(tr.TotalUpdates, cs.TotalUpdates)
		tr.CyclesSinceUpdate = min(tr.CyclesSinceUpdate, cs.CyclesSinceUpdate)
	}
	s.Channels[track.TechRadar] = tr
	s.Channels[track.TechVideo] = s.Channels[track.FrontCenterVideo]
	s.CyclesSinceAnyUpdate = min(tr.CyclesSinceUpdate, s.Channels[track.TechVideo].CyclesSinceUpdate)

	n := min(int(age), track.HistoryLength)
	for i := 0; i < n; i++ {
		var m track.ChannelMask
		for ch := track.FrontCenterRadar; ch <= track.FrontCenterVideo; ch++ {
			if s.Channels[ch].TotalUpdates > 0 && chance(rng, 0.6) {
				m |= ch.Mask()
			}
		}
		s.History.Push(m)
	}
}
