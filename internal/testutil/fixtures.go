// Package testutil provides shared track fixtures for tests.
package testutil

import "github.com/banshee-data/trackguard/internal/track"

// NeutralAge is the age of the neutral fixture.
const NeutralAge = 50

// NeutralObject returns a well-fused, stationary track 20 m ahead that no
// check disqualifies: radar and video both confirmed it in each of the last
// NeutralAge cycles, it carries no classification evidence and every counter
// and flag is at rest.
func NeutralObject(id uint16) *track.Object {
	o := &track.Object{ID: id}
	o.State.X = 20
	o.CyclesExisting = NeutralAge
	for _, ch := range []track.Channel{
		track.FrontCenterRadar, track.FrontCenterVideo, track.TechRadar, track.TechVideo,
	} {
		o.Sensors.Channels[ch] = track.ChannelStats{TotalUpdates: NeutralAge}
	}
	fused := track.MaskOf(track.FrontCenterRadar, track.FrontCenterVideo)
	for i := 0; i < NeutralAge; i++ {
		o.Sensors.History.Push(fused)
	}
	return o
}

// EgoAtRest is a standing ego vehicle.
func EgoAtRest() track.EgoMotion {
	return track.EgoMotion{}
}

// RadarOnly rewrites the channel evidence of o so that only the front-center
// radar ever contributed, updates times.
func RadarOnly(o *track.Object, updates uint8) {
	o.Sensors = track.SensorFusion{}
	o.Sensors.Channels[track.FrontCenterRadar] = track.ChannelStats{TotalUpdates: updates}
	o.Sensors.Channels[track.TechRadar] = track.ChannelStats{TotalUpdates: updates}
	for i := 0; i < int(updates); i++ {
		o.Sensors.History.Push(track.FrontCenterRadar.Mask())
	}
}
