package rules

import "github.com/banshee-data/trackguard/internal/track"

// NeighborView is the part of another track the shared-handle check may read.
type NeighborView struct {
	ID               uint16
	VideoHandle      uint16
	VideoHandleValid bool
	AbsVelOverGround track.Vec2
	SinceVideo       uint8 // cycles since the front-center video update
}

// Neighbors iterates the live tracks of the current cycle. Implementations
// are read-only; fn returns false to stop early.
type Neighbors interface {
	ForEach(fn func(NeighborView) bool)
}

// NeighborSnapshot captures all tracks at the start of a cycle so that the
// scan does not observe changes made while the cycle is evaluated.
type NeighborSnapshot struct {
	views []NeighborView
}

// Capture replaces the snapshot contents, reusing its buffer.
func (s *NeighborSnapshot) Capture(objects []*track.Object, ego track.EgoMotion) {
	s.views = s.views[:0]
	for _, o := range objects {
		s.views = append(s.views, NeighborView{
			ID:               o.ID,
			VideoHandle:      o.VideoHandle,
			VideoHandleValid: o.VideoHandleValid,
			AbsVelOverGround: track.AbsVelocityOverGround(o, ego),
			SinceVideo:       o.Sensors.SinceLast(track.FrontCenterVideo),
		})
	}
}

// Len is the number of captured tracks.
func (s *NeighborSnapshot) Len() int { return len(s.views) }

// ForEach implements Neighbors.
func (s *NeighborSnapshot) ForEach(fn func(NeighborView) bool) {
	for _, v := range s.views {
		if !fn(v) {
			return
		}
	}
}

type noNeighbors struct{}

func (noNeighbors) ForEach(func(NeighborView) bool) {}

// NoNeighbors is an empty collection, used when a single track is evaluated.
var NoNeighbors Neighbors = noNeighbors{}
