package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/testutil"
	"github.com/banshee-data/trackguard/internal/track"
)

// standingVru is a VRU at rest that was seen moving and whose video update is
// stale by `stale` cycles.
func standingVru(id uint16, handle uint16, stale uint8) *track.Object {
	o := testutil.NeutralObject(id)
	o.Classification = track.Only(track.TypePedestrian)
	o.ProbHasBeenObservedMoving = 0.95
	o.Sensors.Channels[track.FrontCenterVideo].CyclesSinceUpdate = stale
	o.VideoHandle = handle
	o.VideoHandleValid = true
	return o
}

func sharedHandleCheck(o *track.Object, all []*track.Object) relevance.BitField {
	ego := testutil.EgoAtRest()
	var snap NeighborSnapshot
	snap.Capture(all, ego)
	return checkVideoHandleShared(NewContext(o, ego, DefaultParams(), &snap))
}

func TestVideoHandleShared(t *testing.T) {
	t.Parallel()

	a := standingVru(1, 42, 5)
	b := testutil.NeutralObject(2)
	b.VideoHandle = 42
	b.VideoHandleValid = true
	b.State.VX = 2.5
	b.Sensors.Channels[track.FrontCenterVideo].CyclesSinceUpdate = 1
	all := []*track.Object{a, b}

	assert.Equal(t, relevance.AEB, sharedHandleCheck(a, all))
	assert.Zero(t, sharedHandleCheck(b, all))
}

func TestVideoHandleSharedNeedsMovingFresherNeighbour(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(other *track.Object)
	}{
		{"other slow", func(o *track.Object) { o.State.VX = 1.5 }},
		{"other staler", func(o *track.Object) { o.Sensors.Channels[track.FrontCenterVideo].CyclesSinceUpdate = 6 }},
		{"other equally stale", func(o *track.Object) { o.Sensors.Channels[track.FrontCenterVideo].CyclesSinceUpdate = 5 }},
		{"different handle", func(o *track.Object) { o.VideoHandle = 43 }},
		{"other handle invalid", func(o *track.Object) { o.VideoHandleValid = false }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := standingVru(1, 42, 5)
			b := testutil.NeutralObject(2)
			b.VideoHandle = 42
			b.VideoHandleValid = true
			b.State.VX = 2.5
			b.Sensors.Channels[track.FrontCenterVideo].CyclesSinceUpdate = 1
			tc.mutate(b)
			assert.Zero(t, sharedHandleCheck(a, []*track.Object{a, b}))
		})
	}
}

func TestVideoHandleSharedSingleObject(t *testing.T) {
	t.Parallel()

	a := standingVru(1, 42, 5)
	assert.Zero(t, sharedHandleCheck(a, []*track.Object{a}))
	assert.Zero(t, checkVideoHandleShared(NewContext(a, testutil.EgoAtRest(), DefaultParams(), NoNeighbors)))
	assert.Zero(t, checkVideoHandleShared(NewContext(a, testutil.EgoAtRest(), DefaultParams(), nil)))
}

func TestVideoHandleSharedSkipsSelfEvenWhenMoving(t *testing.T) {
	t.Parallel()

	// A stale copy of the subject under the same ID must not count as a
	// neighbour, even when that copy looks like a moving, fresher track.
	a := standingVru(1, 42, 5)
	twin := testutil.NeutralObject(1)
	twin.VideoHandle = 42
	twin.VideoHandleValid = true
	twin.State.VX = 3
	assert.Zero(t, sharedHandleCheck(a, []*track.Object{a, twin}))
}

func TestNeighborSnapshotIsolation(t *testing.T) {
	t.Parallel()

	a := testutil.NeutralObject(1)
	a.State.VX = 3
	var snap NeighborSnapshot
	snap.Capture([]*track.Object{a}, testutil.EgoAtRest())
	a.State.VX = 0

	var views []NeighborView
	snap.ForEach(func(v NeighborView) bool {
		views = append(views, v)
		return true
	})
	require.Len(t, views, 1)
	assert.Equal(t, float32(3), views[0].AbsVelOverGround[0])

	// Capture reuses the buffer.
	snap.Capture(nil, testutil.EgoAtRest())
	assert.Equal(t, 0, snap.Len())
}

func TestNeighborSnapshotStopsEarly(t *testing.T) {
	t.Parallel()

	var snap NeighborSnapshot
	snap.Capture([]*track.Object{
		testutil.NeutralObject(1), testutil.NeutralObject(2), testutil.NeutralObject(3),
	}, testutil.EgoAtRest())

	visited := 0
	snap.ForEach(func(NeighborView) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}
