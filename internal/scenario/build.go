package scenario

import (
	"github.com/pkg/errors"

	"github.com/banshee-data/trackguard/internal/track"
)

// Build converts the scenario into engine input. Unknown channel, type or
// filter names are errors.
func (s *Scenario) Build() ([]*track.Object, track.EgoMotion, error) {
	ego := track.EgoMotion{VX: s.Ego.VX, YawRate: s.Ego.YawRate, AX: s.Ego.AX, AY: s.Ego.AY}
	objects := make([]*track.Object, 0, len(s.Objects))
	for i := range s.Objects {
		o, err := s.Objects[i].Object()
		if err != nil {
			return nil, ego, errors.Wrapf(err, "object %d (index %d)", s.Objects[i].ID, i)
		}
		objects = append(objects, o)
	}
	return objects, ego, nil
}

// Object converts one spec into a track object.
func (sp *ObjectSpec) Object() (*track.Object, error) {
	o := &track.Object{
		ID: sp.ID,
		State: track.State{
			X: sp.X, Y: sp.Y, VX: sp.VX, VY: sp.VY, AX: sp.AX, AY: sp.AY,
		},
		YawAngle:    sp.YawAngle,
		FacingAngle: sp.FacingAngle,
		Length:      sp.Length,
		Width:       sp.Width,

		RCS:                     sp.RCS,
		Elevation:               sp.Elevation,
		ElevationValid:          sp.ElevationValid,
		AvgDxInnovation:         sp.AvgDxInnovation,
		RadarInnovation:         track.Innovation(sp.RadarInnovation),
		VideoInnovation:         track.Innovation(sp.VideoInnovation),
		RadarRawAlphaInnovation: sp.RadarRawAlphaInnovation,
		VideoRawAlphaInnovation: sp.VideoRawAlphaInnovation,
		PNonObstacleRCSOnly:     sp.PNonObstacleRCSOnly,

		ProbHasBeenObservedMoving: sp.ProbHasBeenObservedMoving,
		ProbIsCurrentlyMoving:     sp.ProbIsCurrentlyMoving,

		BadSensorBasedInnoCount:          sp.BadSensorBasedInnoCount,
		OrientationUnreliableCount:       sp.OrientationUnreliableCount,
		VyInconsistentCount:              sp.VyInconsistentCount,
		SplitCount:                       sp.SplitCount,
		StoppingSplitCount:               sp.StoppingSplitCount,
		StationaryLocationsOnlyCount:     sp.StationaryLocationsOnlyCount,
		MicroDopplerCycles:               sp.MicroDopplerCycles,
		ExpectedVrHighCount:              sp.ExpectedVrHighCount,
		NonPlausibleLocationCount:        sp.NonPlausibleLocationCount,
		CyclesWithoutOrientationUpdate:   sp.CyclesWithoutOrientationUpdate,
		ConsecutiveCyclesWithoutOncoming: sp.ConsecutiveCyclesWithoutOncoming,
		TotalCyclesWithOncoming:          sp.TotalCyclesWithOncoming,
		VyUnreliableAccumulated:          sp.VyUnreliableAccumulated,
		CyclesExisting:                   sp.CyclesExisting,
		TransferredFromSeparationCycle:   sp.TransferredFromSeparationCycle,

		VideoHandle:              sp.VideoHandle,
		VideoHandleValid:         sp.VideoHandleValid,
		WExistVideo:              sp.WExistVideo,
		VideoInvTTC:              sp.VideoInvTTC,
		CreatedByVideoWithHighVy: sp.CreatedByVideoWithHighVy,
		CyclesSinceVideoUpdateWithAngularVelocity: sp.CyclesSinceVideoUpdateWithAngularVelocity,

		SuppressedUntilNextVideoUpdate:           sp.SuppressedUntilNextVideoUpdate,
		SuppressedByVideoOTC:                     sp.SuppressedByVideoOTC,
		UpdatedWithStatLocHighMDopplerOutgoingVr: sp.UpdatedWithStatLocHighMDopplerOutgoingVr,
		OrientationImplausibleVsVideo:            sp.OrientationImplausibleVsVideo,
	}

	if sp.Filter != "" {
		f, ok := track.ParseFilterType(sp.Filter)
		if !ok {
			return nil, errors.Errorf("unknown filter %q", sp.Filter)
		}
		o.Filter = f
	}

	for name, p := range sp.Classification {
		var t track.ObjectType
		if err := t.UnmarshalText([]byte(name)); err != nil {
			return nil, err
		}
		o.Classification.Probs[t] = p
	}

	for name, cs := range sp.Channels {
		var ch track.Channel
		if err := ch.UnmarshalText([]byte(name)); err != nil {
			return nil, err
		}
		o.Sensors.Channels[ch] = track.ChannelStats{TotalUpdates: cs.Total, CyclesSinceUpdate: cs.Since}
	}
	o.Sensors.CyclesSinceAnyUpdate = sp.CyclesSinceAnyUpdate

	if len(sp.History) > track.HistoryLength {
		return nil, errors.Errorf("history has %d entries (max %d)", len(sp.History), track.HistoryLength)
	}
	// Oldest first so that History.At(0) is the first entry of the file.
	for i := len(sp.History) - 1; i >= 0; i-- {
		var m track.ChannelMask
		for _, name := range sp.History[i] {
			var ch track.Channel
			if err := ch.UnmarshalText([]byte(name)); err != nil {
				return nil, errors.Wrapf(err, "history entry %d", i)
			}
			m |= ch.Mask()
		}
		o.Sensors.History.Push(m)
	}
	return o, nil
}

// FromSnapshot captures engine input as a scenario, for recording and for
// turning a random draw into a reproducible file.
func FromSnapshot(name string, objects []*track.Object, ego track.EgoMotion) *Scenario {
	s := &Scenario{
		Name:    name,
		Ego:     Ego{VX: ego.VX, YawRate: ego.YawRate, AX: ego.AX, AY: ego.AY},
		Objects: make([]ObjectSpec, 0, len(objects)),
	}
	for _, o := range objects {
		s.Objects = append(s.Objects, SpecOf(o))
	}
	return s
}

// SpecOf is the inverse of ObjectSpec.Object. Zero probabilities and silent
// channels are left out.
func SpecOf(o *track.Object) ObjectSpec {
	sp := ObjectSpec{
		ID:          o.ID,
		X:           o.State.X,
		Y:           o.State.Y,
		VX:          o.State.VX,
		VY:          o.State.VY,
		AX:          o.State.AX,
		AY:          o.State.AY,
		YawAngle:    o.YawAngle,
		FacingAngle: o.FacingAngle,
		Length:      o.Length,
		Width:       o.Width,

		CyclesSinceAnyUpdate: o.Sensors.CyclesSinceAnyUpdate,

		RCS:                     o.RCS,
		Elevation:               o.Elevation,
		ElevationValid:          o.ElevationValid,
		AvgDxInnovation:         o.AvgDxInnovation,
		RadarInnovation:         InnovationSpec(o.RadarInnovation),
		VideoInnovation:         InnovationSpec(o.VideoInnovation),
		RadarRawAlphaInnovation: o.RadarRawAlphaInnovation,
		VideoRawAlphaInnovation: o.VideoRawAlphaInnovation,
		PNonObstacleRCSOnly:     o.PNonObstacleRCSOnly,

		ProbHasBeenObservedMoving: o.ProbHasBeenObservedMoving,
		ProbIsCurrentlyMoving:     o.ProbIsCurrentlyMoving,

		BadSensorBasedInnoCount:          o.BadSensorBasedInnoCount,
		OrientationUnreliableCount:       o.OrientationUnreliableCount,
		VyInconsistentCount:              o.VyInconsistentCount,
		SplitCount:                       o.SplitCount,
		StoppingSplitCount:               o.StoppingSplitCount,
		StationaryLocationsOnlyCount:     o.StationaryLocationsOnlyCount,
		MicroDopplerCycles:               o.MicroDopplerCycles,
		ExpectedVrHighCount:              o.ExpectedVrHighCount,
		NonPlausibleLocationCount:        o.NonPlausibleLocationCount,
		CyclesWithoutOrientationUpdate:   o.CyclesWithoutOrientationUpdate,
		ConsecutiveCyclesWithoutOncoming: o.ConsecutiveCyclesWithoutOncoming,
		TotalCyclesWithOncoming:          o.TotalCyclesWithOncoming,
		VyUnreliableAccumulated:          o.VyUnreliableAccumulated,
		CyclesExisting:                   o.CyclesExisting,
		TransferredFromSeparationCycle:   o.TransferredFromSeparationCycle,

		VideoHandle:              o.VideoHandle,
		VideoHandleValid:         o.VideoHandleValid,
		WExistVideo:              o.WExistVideo,
		VideoInvTTC:              o.VideoInvTTC,
		CreatedByVideoWithHighVy: o.CreatedByVideoWithHighVy,
		CyclesSinceVideoUpdateWithAngularVelocity: o.CyclesSinceVideoUpdateWithAngularVelocity,

		SuppressedUntilNextVideoUpdate:           o.SuppressedUntilNextVideoUpdate,
		SuppressedByVideoOTC:                     o.SuppressedByVideoOTC,
		UpdatedWithStatLocHighMDopplerOutgoingVr: o.UpdatedWithStatLocHighMDopplerOutgoingVr,
		OrientationImplausibleVsVideo:            o.OrientationImplausibleVsVideo,
	}
	if o.Filter != track.FilterUnknown {
		sp.Filter = o.Filter.String()
	}
	for t := track.TypeUnknown; t < track.NumObjectTypes; t++ {
		if p := o.Classification.Probs[t]; p != 0 {
			if sp.Classification == nil {
				sp.Classification = make(map[string]float32)
			}
			sp.Classification[t.String()] = p
		}
	}
	for ch := track.FrontCenterRadar; ch < track.NumChannels; ch++ {
		if cs := o.Sensors.Channels[ch]; cs != (track.ChannelStats{}) {
			if sp.Channels == nil {
				sp.Channels = make(map[string]ChannelSpec)
			}
			sp.Channels[ch.String()] = ChannelSpec{Total: cs.TotalUpdates, Since: cs.CyclesSinceUpdate}
		}
	}
	if n := o.Sensors.History.Len(); n > 0 {
		sp.History = make([][]string, n)
		for i := 0; i < n; i++ {
			names := []string{}
			for _, ch := range o.Sensors.History.At(i).Channels() {
				names = append(names, ch.String())
			}
			sp.History[i] = names
		}
	}
	return sp
}
