package replay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/rules"
	"github.com/banshee-data/trackguard/internal/scenario"
	"github.com/banshee-data/trackguard/internal/testutil"
	"github.com/banshee-data/trackguard/internal/track"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "recordings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// turningFrame is a single well-fused track that misses its orientation
// update while the ego vehicle turns, so its orientation counter climbs each
// cycle the engine sees it.
func turningFrame(id uint16) *scenario.Scenario {
	o := testutil.NeutralObject(id)
	o.CyclesWithoutOrientationUpdate = 3
	return scenario.FromSnapshot("turn", []*track.Object{o}, track.EgoMotion{YawRate: 0.2})
}

// --- Store ---

func TestOpenMigratesToLatest(t *testing.T) {
	s := openTestStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Re-running is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordings.db")
	s, err := Open(path)
	require.NoError(t, err)
	r, err := s.CreateRecording("kept")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	recs, err := s.Recordings()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, r.ID, recs[0].ID)
}

func TestFramesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateRecording("drive")
	require.NoError(t, err)

	first := turningFrame(1)
	second := turningFrame(1)
	second.Ego.VX = 8
	// Stored out of order on purpose.
	require.NoError(t, s.AppendFrame(r.ID, 2, second))
	require.NoError(t, s.AppendFrame(r.ID, 1, first))

	frames, err := s.Frames(r.ID)
	require.NoError(t, err)
	want := []Frame{{Cycle: 1, Scenario: first}, {Cycle: 2, Scenario: second}}
	if diff := cmp.Diff(want, frames); diff != "" {
		t.Errorf("Frames() mismatch (-want +got):\n%s", diff)
	}

	assert.Error(t, s.AppendFrame(r.ID, 1, first), "cycles are unique per recording")
	assert.Error(t, s.AppendFrame("no-such-recording", 3, first), "foreign key")
}

func TestRecordingsListing(t *testing.T) {
	s := openTestStore(t)
	a, err := s.CreateRecording("a")
	require.NoError(t, err)
	b, err := s.CreateRecording("b")
	require.NoError(t, err)
	require.NoError(t, s.AppendFrame(b.ID, 1, turningFrame(1)))
	require.NoError(t, s.AppendFrame(b.ID, 2, turningFrame(1)))

	recs, err := s.Recordings()
	require.NoError(t, err)
	require.Len(t, recs, 2)

	frames := map[string]int{}
	for _, r := range recs {
		frames[r.ID] = r.Frames
	}
	assert.Equal(t, 0, frames[a.ID])
	assert.Equal(t, 2, frames[b.ID])
}

func TestDeleteRecording(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateRecording("gone")
	require.NoError(t, err)
	require.NoError(t, s.AppendFrame(r.ID, 1, turningFrame(1)))

	require.NoError(t, s.DeleteRecording(r.ID))
	frames, err := s.Frames(r.ID)
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Error(t, s.DeleteRecording(r.ID))
}

// --- Replay ---

func TestReplayCarriesCounters(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateRecording("turn")
	require.NoError(t, err)
	for cycle := uint64(1); cycle <= 4; cycle++ {
		require.NoError(t, s.AppendFrame(r.ID, cycle, turningFrame(5)))
	}

	var counts []uint8
	e := engine.New(nil, engine.DefaultConfig())
	err = Replay(s, r.ID, e, func(cycle uint64, objects []*track.Object, results []engine.Result) error {
		require.Len(t, objects, 1)
		require.Len(t, results, 1)
		counts = append(counts, objects[0].OrientationUnreliableCount)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3, 4}, counts)
	assert.Equal(t, uint64(4), e.Cycles())
}

func TestReplayResetsCountersOfEndedTracks(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateRecording("gap")
	require.NoError(t, err)
	require.NoError(t, s.AppendFrame(r.ID, 1, turningFrame(5)))
	require.NoError(t, s.AppendFrame(r.ID, 2, turningFrame(5)))
	require.NoError(t, s.AppendFrame(r.ID, 3, turningFrame(6)))
	require.NoError(t, s.AppendFrame(r.ID, 4, turningFrame(5)))

	var counts []uint8
	err = Replay(s, r.ID, engine.New(nil, engine.DefaultConfig()),
		func(_ uint64, objects []*track.Object, _ []engine.Result) error {
			counts = append(counts, objects[0].OrientationUnreliableCount)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 1, 1}, counts)
}

func TestReplayStopsOnCallbackError(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateRecording("stop")
	require.NoError(t, err)
	require.NoError(t, s.AppendFrame(r.ID, 1, turningFrame(1)))
	require.NoError(t, s.AppendFrame(r.ID, 2, turningFrame(1)))

	stop := errors.New("stop")
	calls := 0
	err = Replay(s, r.ID, engine.New(nil, engine.DefaultConfig()),
		func(uint64, []*track.Object, []engine.Result) error {
			calls++
			return stop
		})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReplayEmptyRecording(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateRecording("empty")
	require.NoError(t, err)
	assert.Error(t, Replay(s, r.ID, engine.New(nil, engine.DefaultConfig()), nil))
}

func TestReplayReportsFiredRules(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateRecording("split")
	require.NoError(t, err)
	o := testutil.NeutralObject(3)
	o.SplitCount = 4
	require.NoError(t, s.AppendFrame(r.ID, 1,
		scenario.FromSnapshot("split", []*track.Object{o}, testutil.EgoAtRest())))

	var fired rules.Set
	err = Replay(s, r.ID, engine.New(nil, engine.DefaultConfig()),
		func(_ uint64, _ []*track.Object, results []engine.Result) error {
			fired = results[0].Fired
			return nil
		})
	require.NoError(t, err)
	assert.True(t, fired.Has(rules.Split))
}

// --- Busy handling ---

// lockedConn opens a connection to path that fails fast on contention.
func lockedConn(t *testing.T, path string) *sql.Conn {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.ExecContext(context.Background(), "PRAGMA busy_timeout=0")
	require.NoError(t, err)
	return conn
}

func TestIsBusyOnWriteLockContention(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recordings.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	holder := lockedConn(t, path)
	_, err = holder.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)

	_, err = lockedConn(t, path).ExecContext(ctx, "BEGIN IMMEDIATE")
	require.Error(t, err)
	assert.True(t, isBusy(err), "%v", err)
	assert.True(t, isBusy(fmt.Errorf("append frame: %w", err)))

	_, err = holder.ExecContext(ctx, "ROLLBACK")
	require.NoError(t, err)
}

func TestIsBusyIgnoresOtherErrors(t *testing.T) {
	s := openTestStore(t)
	_, err := s.DB().Exec("SELECT * FROM no_such_table")
	require.Error(t, err)
	assert.False(t, isBusy(err))

	// Only the result code counts, not the message text.
	assert.False(t, isBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retryOnBusy(func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

// --- Admin routes ---

func TestAttachAdminRoutes(t *testing.T) {
	s := openTestStore(t)
	mux := http.NewServeMux()
	require.NoError(t, s.AttachAdminRoutes(mux))

	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/debug/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SQL live debugging")
}
