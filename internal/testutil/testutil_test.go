package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/trackguard/internal/track"
)

func TestNeutralObject(t *testing.T) {
	t.Parallel()

	o := NeutralObject(7)
	assert.Equal(t, uint16(7), o.ID)
	assert.Equal(t, uint16(NeutralAge), o.CyclesExisting)
	assert.True(t, o.Sensors.IsGoodQualityFused(track.FrontCenterRadar, track.FrontCenterVideo))
	assert.True(t, o.Sensors.IsGoodQualityFused(track.TechRadar, track.TechVideo))
	assert.Equal(t, NeutralAge, o.Sensors.History.Len())
	assert.Equal(t, track.TypeUnknown, o.Classification.MostProbable())
}

func TestRadarOnly(t *testing.T) {
	t.Parallel()

	o := NeutralObject(1)
	RadarOnly(o, 6)
	assert.True(t, o.Sensors.IsOnlyUpdatedBy(track.FrontCenterRadar))
	assert.True(t, o.Sensors.IsOnlyUpdatedBy(track.TechRadar))
	assert.Equal(t, uint8(0), o.Sensors.Total(track.TechVideo))
	assert.Equal(t, 6, o.Sensors.History.Len())
}
