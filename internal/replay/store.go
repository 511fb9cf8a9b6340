// Package replay stores recorded evaluation cycles in SQLite and drives an
// engine over them again.
//
// A recording is an ordered list of frames; each frame is the scenario of
// one cycle, stored as JSON. The schema is managed with embedded migrations.
package replay

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/banshee-data/trackguard/internal/monitoring"
	"github.com/banshee-data/trackguard/internal/scenario"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a recording database.
type Store struct {
	db   *sql.DB
	path string
}

// Recording describes one stored sequence of cycles.
type Recording struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Frames    int
}

// Frame is one recorded cycle.
type Frame struct {
	Cycle    uint64
	Scenario *scenario.Scenario
}

// Open opens or creates the database at path and migrates it to the latest
// schema version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// The pragmas below are per connection.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	s := &Store{db: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for the SQL debug UI.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// MigrateUp runs all pending migrations. It is a no-op on an up-to-date
// database.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the shared connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version, 0 if none was applied.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// migrateLogger forwards golang-migrate output to the diag stream.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Diagf("[migrate] "+strings.TrimSuffix(format, "\n"), v...)
}

func (migrateLogger) Verbose() bool { return false }

// CreateRecording inserts an empty recording and returns it.
func (s *Store) CreateRecording(name string) (*Recording, error) {
	r := &Recording{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`INSERT INTO recordings (recording_id, name, created_at) VALUES (?, ?, ?)`,
			r.ID, r.Name, r.CreatedAt.UnixNano())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	monitoring.Diagf("replay: created recording %s (%q) in %s", r.ID, name, s.path)
	return r, nil
}

// AppendFrame stores the scenario of one cycle. Cycles must be unique within
// a recording.
func (s *Store) AppendFrame(recordingID string, cycle uint64, sc *scenario.Scenario) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", cycle, err)
	}
	err = retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO frames (recording_id, cycle, n_objects, ego_vx, payload)
			VALUES (?, ?, ?, ?, ?)`,
			recordingID, int64(cycle), len(sc.Objects), sc.Ego.VX, string(payload))
		return err
	})
	if err != nil {
		return fmt.Errorf("insert frame %d of %s: %w", cycle, recordingID, err)
	}
	return nil
}

// Frames returns all frames of a recording in cycle order.
func (s *Store) Frames(recordingID string) ([]Frame, error) {
	rows, err := s.db.Query(`
		SELECT cycle, payload
		FROM frames
		WHERE recording_id = ?
		ORDER BY cycle`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var (
			cycle   int64
			payload string
		)
		if err := rows.Scan(&cycle, &payload); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		sc := &scenario.Scenario{}
		if err := json.Unmarshal([]byte(payload), sc); err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", cycle, err)
		}
		frames = append(frames, Frame{Cycle: uint64(cycle), Scenario: sc})
	}
	return frames, rows.Err()
}

// Recordings lists all recordings, newest first.
func (s *Store) Recordings() ([]Recording, error) {
	rows, err := s.db.Query(`
		SELECT r.recording_id, r.name, r.created_at, COUNT(f.cycle)
		FROM recordings r
		LEFT JOIN frames f ON f.recording_id = r.recording_id
		GROUP BY r.recording_id
		ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var (
			r       Recording
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &created, &r.Frames); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRecording removes a recording and its frames.
func (s *Store) DeleteRecording(recordingID string) error {
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`DELETE FROM recordings WHERE recording_id = ?`, recordingID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("recording %s not found", recordingID)
		}
		return nil
	})
}

const (
	busyRetries = 5
	busyBackoff = 20 * time.Millisecond
)

// retryOnBusy retries fn while SQLite reports a locked database.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(busyBackoff * time.Duration(attempt+1))
	}
	return err
}

// isBusy reports whether err carries a SQLITE_BUSY or SQLITE_LOCKED result
// code, extended codes included.
func isBusy(err error) bool {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
