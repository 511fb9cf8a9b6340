package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushAll(s *SensorFusion, masks ...ChannelMask) {
	// oldest first
	for _, m := range masks {
		s.History.Push(m)
	}
}

func TestHistoryRing(t *testing.T) {
	t.Parallel()

	var h History
	assert.Equal(t, 0, h.Len())
	assert.Zero(t, h.At(0))

	for i := 0; i < HistoryLength+5; i++ {
		h.Push(ChannelMask(i % 16))
	}
	require.Equal(t, HistoryLength, h.Len())
	assert.Equal(t, ChannelMask((HistoryLength+4)%16), h.At(0))
	assert.Equal(t, ChannelMask((HistoryLength+3)%16), h.At(1))
	assert.Zero(t, h.At(HistoryLength))
	assert.Zero(t, h.At(-1))
}

func TestChannelMask(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MaskOf(FrontCenterRadar, FrontLeftCornerRadar, FrontRightCornerRadar), TechRadar.Mask())
	assert.Equal(t, FrontCenterVideo.Mask(), TechVideo.Mask())
	assert.Zero(t, NoChannel.Mask())
	assert.Equal(t, []Channel{FrontCenterRadar, FrontCenterVideo}, MaskOf(FrontCenterRadar, TechVideo).Channels())
}

func TestChannelText(t *testing.T) {
	t.Parallel()

	b, err := TechVideo.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "tech_video", string(b))

	var c Channel
	require.NoError(t, c.UnmarshalText([]byte("front_left_corner_radar")))
	assert.Equal(t, FrontLeftCornerRadar, c)
	assert.Error(t, c.UnmarshalText([]byte("lidar")))

	_, err = NoChannel.MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "none", NoChannel.String())
}

func TestIsOnlyUpdatedBy(t *testing.T) {
	t.Parallel()

	var s SensorFusion
	assert.False(t, s.IsOnlyUpdatedBy(FrontCenterRadar), "no updates at all")

	s.Channels[FrontCenterRadar].TotalUpdates = 4
	s.Channels[TechRadar].TotalUpdates = 4
	assert.True(t, s.IsOnlyUpdatedBy(FrontCenterRadar))
	assert.True(t, s.IsOnlyUpdatedBy(TechRadar))

	s.Channels[FrontLeftCornerRadar].TotalUpdates = 1
	s.Channels[TechRadar].TotalUpdates = 5
	assert.False(t, s.IsOnlyUpdatedBy(FrontCenterRadar), "corner radar contributed")
	assert.True(t, s.IsOnlyUpdatedBy(TechRadar), "corner radar is still radar")

	s.Channels[FrontCenterVideo].TotalUpdates = 1
	s.Channels[TechVideo].TotalUpdates = 1
	assert.False(t, s.IsOnlyUpdatedBy(TechRadar))
}

func TestOnlyUpdatedByInLastN(t *testing.T) {
	t.Parallel()

	radar := MaskOf(FrontCenterRadar)
	video := MaskOf(FrontCenterVideo)

	var s SensorFusion
	assert.False(t, s.OnlyUpdatedByInLastN(TechRadar, 40), "empty history")

	pushAll(&s, video, radar, 0, radar)
	assert.True(t, s.OnlyUpdatedByInLastN(TechRadar, 3))
	assert.False(t, s.OnlyUpdatedByInLastN(TechRadar, 4), "video four cycles ago")

	var quiet SensorFusion
	pushAll(&quiet, 0, 0)
	assert.False(t, quiet.OnlyUpdatedByInLastN(TechRadar, 40), "no contribution at all")
	assert.False(t, s.OnlyUpdatedByInLastN(NoChannel, 2))
}

func TestSingleUpdateByOrNone(t *testing.T) {
	t.Parallel()

	radar := MaskOf(FrontCenterRadar)
	video := MaskOf(FrontCenterVideo)
	fused := radar | video

	var s SensorFusion
	pushAll(&s, fused, video, 0, radar, 0, video) // newest last

	assert.Equal(t, uint8(2), s.SingleUpdateByOrNone(NoChannel, 8))
	assert.Equal(t, uint8(4), s.SingleUpdateByOrNone(FrontCenterVideo, 8))
	assert.Equal(t, uint8(2), s.SingleUpdateByOrNone(FrontCenterVideo, 2))
	assert.Equal(t, uint8(3), s.SingleUpdateByOrNone(TechRadar, 8))
}

func TestGoodQualityAndTrustworthy(t *testing.T) {
	t.Parallel()

	var s SensorFusion
	s.Channels[TechRadar] = ChannelStats{TotalUpdates: 10, CyclesSinceUpdate: 0}
	s.Channels[TechVideo] = ChannelStats{TotalUpdates: 10, CyclesSinceUpdate: 2}
	assert.True(t, s.IsGoodQualityFused(TechRadar, TechVideo))

	s.Channels[TechVideo].CyclesSinceUpdate = 3
	assert.False(t, s.IsGoodQualityFused(TechRadar, TechVideo))

	s.Channels[TechVideo] = ChannelStats{TotalUpdates: 4}
	assert.False(t, s.IsGoodQualityFused(TechRadar, TechVideo))

	assert.True(t, s.IsTrustworthy(TechRadar, 15))
	s.Channels[TechRadar].CyclesSinceUpdate = 15
	assert.False(t, s.IsTrustworthy(TechRadar, 15))
	assert.False(t, s.IsTrustworthy(FrontLeftCornerRadar, 15))
}
