// Command dep-replay manages recordings of evaluation cycles: it imports
// scenario files as frames, lists recordings, replays one through the engine
// and optionally serves the SQL debug UI over the recording database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/trackguard/internal/config"
	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/monitoring"
	"github.com/banshee-data/trackguard/internal/replay"
	"github.com/banshee-data/trackguard/internal/report"
	"github.com/banshee-data/trackguard/internal/rules"
	"github.com/banshee-data/trackguard/internal/scenario"
	"github.com/banshee-data/trackguard/internal/track"
	"github.com/banshee-data/trackguard/internal/version"
)

type options struct {
	db          string
	importPath  string
	name        string
	recording   string
	list        bool
	config      string
	debugListen string
	strict      bool
	debug       bool
	version     bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("dep-replay", flag.ContinueOnError)
	fs.StringVar(&o.db, "db", "recordings.db", "Recording database path")
	fs.StringVar(&o.importPath, "import", "", "Scenario file, or directory of scenario files, to import as a new recording")
	fs.StringVar(&o.name, "name", "", "Name of the imported recording (defaults to the import path)")
	fs.StringVar(&o.recording, "recording", "", "Recording ID to replay (\"-\" replays the recording created by -import)")
	fs.BoolVar(&o.list, "list", false, "List recordings")
	fs.StringVar(&o.config, "config", "", "Calibration file used for replay (defaults are used when empty)")
	fs.StringVar(&o.debugListen, "debug-listen", "", "Serve the SQL debug UI on this address until interrupted")
	fs.BoolVar(&o.strict, "strict", false, "Panic on violated track invariants")
	fs.BoolVar(&o.debug, "debug", false, "Enable diagnostic logging")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.version {
		return o, nil
	}
	if o.db == "" {
		return o, errors.New("-db is required")
	}
	if o.importPath == "" && o.recording == "" && !o.list && o.debugListen == "" {
		return o, errors.New("nothing to do: pass -import, -recording, -list or -debug-listen")
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("dep-replay: %v", err)
	}
	if o.version {
		fmt.Println(version.String("dep-replay"))
		return
	}

	writers := monitoring.LogWriters{Ops: os.Stderr}
	if o.debug {
		writers.Diag = os.Stderr
	}
	monitoring.SetLogWriters(writers)

	store, err := replay.Open(o.db)
	if err != nil {
		log.Fatalf("Failed to open recording database: %v", err)
	}
	defer store.Close()

	if err := run(os.Stdout, store, o); err != nil {
		log.Fatalf("dep-replay: %v", err)
	}

	if o.debugListen != "" {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := serveDebug(ctx, store, o.debugListen); err != nil {
			log.Fatalf("dep-replay: %v", err)
		}
	}
}

// run performs import, list and replay in that order, so a single call can
// import a recording and replay it right away.
func run(w io.Writer, store *replay.Store, o options) error {
	if o.importPath != "" {
		rec, err := importScenarios(store, o.importPath, o.name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "imported %d frames as recording %s\n", rec.Frames, rec.ID)
		if o.recording == "-" {
			o.recording = rec.ID
		}
	}
	if o.list {
		if err := listRecordings(w, store); err != nil {
			return err
		}
	}
	if o.recording != "" && o.recording != "-" {
		return replayRecording(w, store, o)
	}
	return nil
}

// scenarioFiles expands path into the scenario files to import, sorted by
// name when path is a directory.
func scenarioFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", path)
	}
	sort.Strings(files)
	return files, nil
}

func importScenarios(store *replay.Store, path, name string) (*replay.Recording, error) {
	files, err := scenarioFiles(path)
	if err != nil {
		return nil, err
	}
	// Parse everything before touching the database.
	scenarios := make([]*scenario.Scenario, len(files))
	for i, f := range files {
		if scenarios[i], err = scenario.Load(f); err != nil {
			return nil, err
		}
		if _, _, err := scenarios[i].Build(); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
	}

	if name == "" {
		name = filepath.Base(path)
	}
	rec, err := store.CreateRecording(name)
	if err != nil {
		return nil, err
	}
	for i, sc := range scenarios {
		if err := store.AppendFrame(rec.ID, uint64(i+1), sc); err != nil {
			return nil, err
		}
	}
	rec.Frames = len(scenarios)
	log.Printf("imported %s into %s", path, rec.ID)
	return rec, nil
}

func listRecordings(w io.Writer, store *replay.Store) error {
	recs, err := store.Recordings()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "no recordings")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s  %-24s %6d frames  %s\n", r.ID, r.Name, r.Frames, r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func replayRecording(w io.Writer, store *replay.Store, o options) error {
	base := config.EmptyCalibration()
	if o.config != "" {
		var err error
		if base, err = config.LoadCalibration(o.config); err != nil {
			return err
		}
	}
	params, err := rules.ParamsFromCalibration(base)
	if err != nil {
		return err
	}
	cfg := engine.DefaultConfig()
	cfg.StrictInvariants = o.strict
	eng := engine.New(params, cfg)

	var tally report.Tally
	err = replay.Replay(store, o.recording, eng, func(cycle uint64, objects []*track.Object, results []engine.Result) error {
		tally.Add(results)
		disqualified := 0
		for _, r := range results {
			if r.Fired.Len() > 0 {
				disqualified++
			}
		}
		_, err := fmt.Fprintf(w, "cycle %d: %d objects, %d disqualified\n", cycle, len(objects), disqualified)
		return err
	})
	if err != nil {
		return err
	}
	return tally.WriteText(w)
}

// serveDebug serves the tsweb debug page with the SQL UI until ctx is done.
func serveDebug(ctx context.Context, store *replay.Store, addr string) error {
	mux := http.NewServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving debug UI on http://%s/debug/", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down debug server: %w", err)
	}
	log.Print("debug server stopped")
	return nil
}
