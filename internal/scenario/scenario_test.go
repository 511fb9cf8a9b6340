package scenario

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackguard/internal/config"
	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/rules"
	"github.com/banshee-data/trackguard/internal/testutil"
	"github.com/banshee-data/trackguard/internal/track"
)

const sharedHandleYAML = `
name: shared video handle
ego: {vx: 0, yaw_rate: 0}
objects:
  - id: 1
    x: 20
    cycles_existing: 50
    classification: {pedestrian: 1}
    p_has_been_observed_moving: 0.95
    video_handle: 42
    video_handle_valid: true
    channels:
      front_center_radar: {total: 50, since: 0}
      front_center_video: {total: 50, since: 5}
      tech_radar: {total: 50, since: 0}
      tech_video: {total: 50, since: 5}
  - id: 2
    x: 20
    vx: 2.5
    cycles_existing: 50
    video_handle: 42
    video_handle_valid: true
    channels:
      front_center_radar: {total: 50, since: 0}
      front_center_video: {total: 50, since: 1}
      tech_radar: {total: 50, since: 0}
      tech_video: {total: 50, since: 1}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- Loading ---

func TestLoadYAMLAndEvaluate(t *testing.T) {
	s, err := Load(writeFile(t, "shared.yaml", sharedHandleYAML))
	require.NoError(t, err)
	assert.Equal(t, "shared video handle", s.Name)
	_, err = uuid.Parse(s.ID)
	assert.NoError(t, err, "a missing ID is generated")

	objects, ego, err := s.Build()
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, float32(1), objects[0].Classification.Prob(track.TypePedestrian))
	assert.Equal(t, uint8(5), objects[0].Sensors.SinceLast(track.FrontCenterVideo))

	res := engine.New(nil, engine.DefaultConfig()).RunCycle(objects, ego)
	assert.True(t, res[0].Fired.Has(rules.VideoHandleShared))
	assert.False(t, res[1].Fired.Has(rules.VideoHandleShared))
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"extension", "s.txt", "name: x"},
		{"json syntax", "s.json", "{"},
		{"yaml syntax", "s.yaml", "objects: [\n"},
		{"calibration", "s.json", `{"name":"x","calibration":{"split_detection_cnt_max_val":0}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.file, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadKeepsID(t *testing.T) {
	s, err := Load(writeFile(t, "s.json", `{"id":"fixed","name":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "fixed", s.ID)
}

// --- Building ---

func TestBuildRejectsUnknownNames(t *testing.T) {
	tests := []struct {
		name string
		spec ObjectSpec
	}{
		{"filter", ObjectSpec{Filter: "kalman"}},
		{"type", ObjectSpec{Classification: map[string]float32{"tram": 1}}},
		{"channel", ObjectSpec{Channels: map[string]ChannelSpec{"lidar": {Total: 1}}}},
		{"history channel", ObjectSpec{History: [][]string{{"lidar"}}}},
		{"history length", ObjectSpec{History: make([][]string, track.HistoryLength+1)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &Scenario{Objects: []ObjectSpec{tc.spec}}
			_, _, err := s.Build()
			assert.Error(t, err)
		})
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	sp := ObjectSpec{History: [][]string{
		{"front_center_video"},
		{},
		{"tech_radar"},
	}}
	o, err := sp.Object()
	require.NoError(t, err)

	h := &o.Sensors.History
	require.Equal(t, 3, h.Len())
	assert.Equal(t, track.FrontCenterVideo.Mask(), h.At(0))
	assert.Equal(t, track.ChannelMask(0), h.At(1))
	assert.Equal(t, track.TechRadar.Mask(), h.At(2))
}

func TestSnapshotRoundTrip(t *testing.T) {
	o := testutil.NeutralObject(9)
	o.Filter = track.FilterWNJ
	o.Classification = track.Only(track.TypeBicycle)
	o.RadarInnovation = track.Innovation{Range: 0.5, Angle: -0.01}
	o.SplitCount = 2

	s := FromSnapshot("one", []*track.Object{o}, track.EgoMotion{VX: 12, YawRate: 0.1})
	objects, ego, err := s.Build()
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, o, objects[0])
	assert.Equal(t, track.EgoMotion{VX: 12, YawRate: 0.1}, ego)
}

// --- Files ---

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		t.Run(ext, func(t *testing.T) {
			s := Random(rand.New(rand.NewSource(3)), 12)
			s.Calibration = &config.Calibration{MPC3Used: boolPtr(true)}
			path := filepath.Join(t.TempDir(), "scenario"+ext)
			require.NoError(t, s.Save(path))

			got, err := Load(path)
			require.NoError(t, err)
			if diff := cmp.Diff(s, got); diff != "" {
				t.Errorf("Load(Save()) mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSaveRejectsExtension(t *testing.T) {
	s := &Scenario{Name: "x"}
	assert.Error(t, s.Save(filepath.Join(t.TempDir(), "x.toml")))
}

func TestParamsOverride(t *testing.T) {
	s := &Scenario{Calibration: &config.Calibration{SplitDetectionCntMaxVal: intPtr(7)}}
	p, err := s.Params(nil)
	require.NoError(t, err)
	assert.Equal(t, int32(7), p.SplitDetectionCntMaxVal)

	base := &config.Calibration{SplitDetectionCntMaxVal: intPtr(5), MPC3Used: boolPtr(true)}
	p, err = s.Params(base)
	require.NoError(t, err)
	assert.Equal(t, int32(7), p.SplitDetectionCntMaxVal)
	assert.True(t, p.MPC3Used)
	assert.Equal(t, 5, *base.SplitDetectionCntMaxVal, "base is not modified")

	p, err = (&Scenario{}).Params(nil)
	require.NoError(t, err)
	assert.Equal(t, rules.DefaultParams(), p)
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

// --- Random scenarios ---

func TestRandomDeterministic(t *testing.T) {
	a := Random(rand.New(rand.NewSource(42)), 20)
	b := Random(rand.New(rand.NewSource(42)), 20)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Random() not deterministic (-a +b):\n%s", diff)
	}
	assert.Len(t, a.Objects, 20)

	seen := map[uint16]bool{}
	for _, sp := range a.Objects {
		assert.False(t, seen[sp.ID], "duplicate id %d", sp.ID)
		assert.Less(t, sp.ID, uint16(maxTrackID))
		seen[sp.ID] = true
	}
}

func TestRandomRoundTripsThroughBuild(t *testing.T) {
	s := Random(rand.New(rand.NewSource(5)), 30)
	objects, ego, err := s.Build()
	require.NoError(t, err)

	again := FromSnapshot(s.Name, objects, ego)
	again.ID = s.ID
	if diff := cmp.Diff(s, again); diff != "" {
		t.Errorf("FromSnapshot(Build()) mismatch (-want +got):\n%s", diff)
	}
}

func TestRandomScenariosKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e := engine.New(nil, engine.Config{StrictInvariants: true})
	for i := 0; i < 200; i++ {
		s := Random(rng, 16)
		objects, ego, err := s.Build()
		require.NoError(t, err)
		for _, o := range objects {
			require.LessOrEqual(t, o.TransferredFromSeparationCycle, o.CyclesExisting)
		}
		require.NotPanics(t, func() { e.RunCycle(objects, ego) })
	}
}
