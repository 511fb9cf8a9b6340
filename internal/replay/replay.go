package replay

import (
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/monitoring"
	"github.com/banshee-data/trackguard/internal/track"
)

// carried are the hysteresis counters the engine owns. Recorded frames hold
// the tracker's values of the recording run; during replay the values the
// engine computed in the previous cycle take precedence.
type carried struct {
	badSensorBasedInno    uint8
	orientationUnreliable uint8
}

// CycleFunc receives the outcome of one replayed cycle. results is only valid
// during the call. Returning an error stops the replay.
type CycleFunc func(cycle uint64, objects []*track.Object, results []engine.Result) error

// Replay runs eng over every frame of a recording in cycle order.
func Replay(s *Store, recordingID string, eng *engine.Engine, fn CycleFunc) error {
	frames, err := s.Frames(recordingID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("recording %s has no frames", recordingID)
	}
	monitoring.Diagf("replay: %d frames of %s", len(frames), recordingID)

	prev := map[uint16]carried{}
	for _, f := range frames {
		objects, ego, err := f.Scenario.Build()
		if err != nil {
			return fmt.Errorf("frame %d: %w", f.Cycle, err)
		}
		for _, o := range objects {
			if c, ok := prev[o.ID]; ok {
				o.BadSensorBasedInnoCount = c.badSensorBasedInno
				o.OrientationUnreliableCount = c.orientationUnreliable
			}
		}

		results := eng.RunCycle(objects, ego)

		// Tracks missing from this frame have ended; a later track reusing
		// the ID starts fresh.
		next := make(map[uint16]carried, len(objects))
		for _, o := range objects {
			next[o.ID] = carried{
				badSensorBasedInno:    o.BadSensorBasedInnoCount,
				orientationUnreliable: o.OrientationUnreliableCount,
			}
		}
		prev = next

		if fn != nil {
			if err := fn(f.Cycle, objects, results); err != nil {
				return err
			}
		}
	}
	return nil
}

// AttachAdminRoutes mounts the SQL debug UI for the recording database on
// the tsweb debug page of mux.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+s.path, s.db, &tailsql.DBOptions{
		Label: "Recordings DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	return nil
}
