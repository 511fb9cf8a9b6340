package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/rules"
	"github.com/banshee-data/trackguard/internal/testutil"
	"github.com/banshee-data/trackguard/internal/track"
	"github.com/banshee-data/trackguard/internal/units"
)

func splitCycle(t *testing.T) ([]*track.Object, []engine.Result) {
	t.Helper()
	neutral := testutil.NeutralObject(1)
	split := testutil.NeutralObject(2)
	split.SplitCount = 4
	objects := []*track.Object{neutral, split}
	results := engine.New(nil, engine.DefaultConfig()).RunCycle(objects, testutil.EgoAtRest())
	require.Len(t, results, 2)
	return objects, results
}

func TestSummarize(t *testing.T) {
	objects, results := splitCycle(t)
	got := Summarize(objects, testutil.EgoAtRest(), results)
	require.Len(t, got, 2)

	assert.Equal(t, uint16(1), got[0].ObjectID)
	assert.Equal(t, relevance.Qualified, got[0].Relevance)
	assert.Empty(t, got[0].Active)
	assert.Len(t, got[0].Inactive, int(rules.NumRules))
	assert.Equal(t, float32(20), got[0].X)
	assert.Equal(t, track.TypeUnknown, got[0].Type)

	assert.Contains(t, got[1].Active, rules.Split)
	assert.NotContains(t, got[1].Inactive, rules.Split)
	assert.Len(t, got[1].Active, results[1].Fired.Len())
	assert.Equal(t, int(rules.NumRules), len(got[1].Active)+len(got[1].Inactive))
}

func TestSummarizeWithoutObjects(t *testing.T) {
	results := []engine.Result{{ObjectID: 9, Relevance: relevance.Qualified}}
	got := Summarize(nil, testutil.EgoAtRest(), results)
	require.Len(t, got, 1)
	assert.Equal(t, uint16(9), got[0].ObjectID)
	assert.Zero(t, got[0].Speed)
}

func TestWriteSummary(t *testing.T) {
	summaries := []ObjectSummary{{
		ObjectID:  4,
		Type:      track.TypePedestrian,
		X:         12.5,
		Y:         -1,
		Speed:     10,
		Relevance: relevance.Qualified,
		Active:    nil,
		Inactive:  []rules.ID{rules.Split, rules.Bridge},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, summaries, units.KMPH, false))
	want := "object 4 (pedestrian) x=12.5 y=-1.0 speed=36.0 km/h relevance=0xffff qualified\n" +
		"  active (0): -\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("WriteSummary() mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, summaries, units.MPS, true))
	assert.Contains(t, buf.String(), "speed=10.0 m/s")
	assert.Contains(t, buf.String(), "  inactive (2): split, bridge\n")
}

func TestTallyCounts(t *testing.T) {
	var tally Tally
	var split rules.Set
	split.Add(rules.Split)
	var both rules.Set
	both.Add(rules.Split)
	both.Add(rules.Bridge)

	tally.Add([]engine.Result{
		{ObjectID: 1, Relevance: relevance.Qualified},
		{ObjectID: 2, Relevance: relevance.Qualified &^ relevance.AebAndAcc, Fired: split},
	})
	tally.Add([]engine.Result{
		{ObjectID: 2, Relevance: relevance.Qualified &^ relevance.AEB, Fired: both},
	})

	assert.Equal(t, 2, tally.Cycles)
	assert.Equal(t, 3, tally.Objects)
	assert.Equal(t, 2, tally.LostAEB)
	assert.Equal(t, 1, tally.LostACC)
	assert.Equal(t, 0, tally.LostVy)

	active := tally.Active()
	want := []Row{
		{Rule: rules.Split, Count: 2, Share: 2.0 / 3},
		{Rule: rules.Bridge, Count: 1, Share: 1.0 / 3},
	}
	if diff := cmp.Diff(want, active); diff != "" {
		t.Errorf("Active() mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, tally.Rows(), int(rules.NumRules))
}

func TestTallyRowsKeepRegistryOrderOnTies(t *testing.T) {
	var tally Tally
	rows := tally.Rows()
	for i, r := range rows {
		assert.Equal(t, rules.ID(i), r.Rule)
		assert.Zero(t, r.Share)
	}
}

func TestTallyWriteText(t *testing.T) {
	_, results := splitCycle(t)
	var tally Tally
	tally.Add(results)

	var buf bytes.Buffer
	require.NoError(t, tally.WriteText(&buf))
	out := buf.String()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "cycles=1 objects=2 "))
	assert.Contains(t, out, "split")
	assert.Contains(t, lines[len(lines)-1], "rules never fired")
}

func TestWritePNG(t *testing.T) {
	_, results := splitCycle(t)
	var tally Tally
	tally.Add(results)

	path := filepath.Join(t.TempDir(), "hits.png")
	require.NoError(t, tally.WritePNG(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWritePNGEmptyTally(t *testing.T) {
	var tally Tally
	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, tally.WritePNG(path))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestWriteHTML(t *testing.T) {
	_, results := splitCycle(t)
	var tally Tally
	tally.Add(results)

	var buf bytes.Buffer
	require.NoError(t, tally.WriteHTML(&buf))
	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "Rule hits")
	assert.Contains(t, out, "split")
}
