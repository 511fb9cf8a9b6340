// Command dep-eval runs the disqualification engine over a scenario file or a
// batch of random scenarios and prints which rules fired.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/banshee-data/trackguard/internal/config"
	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/monitoring"
	"github.com/banshee-data/trackguard/internal/report"
	"github.com/banshee-data/trackguard/internal/rules"
	"github.com/banshee-data/trackguard/internal/scenario"
	"github.com/banshee-data/trackguard/internal/trace"
	"github.com/banshee-data/trackguard/internal/units"
	"github.com/banshee-data/trackguard/internal/version"
)

// options are the parsed command-line flags.
type options struct {
	scenario string
	config   string
	random   int
	seed     int64
	objects  int
	png      string
	html     string
	units    units.SpeedUnit
	strict   bool
	trace    bool
	verbose  bool
	debug    bool
	version  bool
}

func parseFlags(args []string) (options, error) {
	o := options{units: units.MPS}
	fs := flag.NewFlagSet("dep-eval", flag.ContinueOnError)
	fs.StringVar(&o.scenario, "scenario", "", "Scenario file to evaluate (.json, .yaml, .yml)")
	fs.StringVar(&o.config, "config", "", "Calibration file, .json or .yaml (defaults are used when empty)")
	fs.IntVar(&o.random, "random", 0, "Evaluate this many random scenarios instead of a file")
	fs.Int64Var(&o.seed, "seed", 1, "Seed for -random")
	fs.IntVar(&o.objects, "objects", 8, "Objects per random scenario")
	fs.StringVar(&o.png, "png", "", "Write a rule-hit bar chart to this file (png, svg or pdf)")
	fs.StringVar(&o.html, "html", "", "Write an interactive rule-hit chart to this HTML file")
	fs.Var(&o.units, "units", "Speed units for output ("+units.SpeedUnitNames()+")")
	fs.BoolVar(&o.strict, "strict", false, "Panic on violated track invariants")
	fs.BoolVar(&o.trace, "trace", false, "Print every rule firing")
	fs.BoolVar(&o.verbose, "verbose", false, "Also list the rules that did not fire")
	fs.BoolVar(&o.debug, "debug", false, "Enable diagnostic logging")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.version {
		return o, nil
	}
	switch {
	case o.scenario == "" && o.random <= 0:
		return o, errors.New("one of -scenario or -random is required")
	case o.scenario != "" && o.random > 0:
		return o, errors.New("-scenario and -random are mutually exclusive")
	case o.random > 0 && o.objects <= 0:
		return o, fmt.Errorf("-objects must be positive, got %d", o.objects)
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("dep-eval: %v", err)
	}
	if o.version {
		fmt.Println(version.String("dep-eval"))
		return
	}

	writers := monitoring.LogWriters{Ops: os.Stderr}
	if o.debug {
		writers.Diag = os.Stderr
	}
	// Random batches log firings to the trace stream instead of printing frames.
	if o.trace && o.random > 0 {
		writers.Trace = os.Stderr
	}
	monitoring.SetLogWriters(writers)

	if err := run(os.Stdout, o); err != nil {
		log.Fatalf("dep-eval: %v", err)
	}
}

func run(w io.Writer, o options) error {
	base := config.EmptyCalibration()
	if o.config != "" {
		var err error
		if base, err = config.LoadCalibration(o.config); err != nil {
			return err
		}
	}

	var tally report.Tally
	var err error
	if o.random > 0 {
		err = runRandom(w, o, base, &tally)
	} else {
		err = runScenario(w, o, base, &tally)
	}
	if err != nil {
		return err
	}

	if o.png != "" {
		if err := tally.WritePNG(o.png); err != nil {
			return err
		}
		log.Printf("wrote %s", o.png)
	}
	if o.html != "" {
		f, err := os.Create(o.html)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", o.html, err)
		}
		if err := tally.WriteHTML(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s", o.html)
	}
	return nil
}

func runScenario(w io.Writer, o options, base *config.Calibration, tally *report.Tally) error {
	sc, err := scenario.Load(o.scenario)
	if err != nil {
		return err
	}
	params, err := sc.Params(base)
	if err != nil {
		return err
	}
	objects, ego, err := sc.Build()
	if err != nil {
		return err
	}

	collector := trace.NewCollector()
	collector.SetEnabled(o.trace)
	cfg := engine.DefaultConfig()
	cfg.Observer = collector
	cfg.StrictInvariants = o.strict

	eng := engine.New(params, cfg)
	results := eng.RunCycle(objects, ego)
	tally.Add(results)

	fmt.Fprintf(w, "scenario %s (%s): %d objects\n", sc.Name, sc.ID, len(objects))
	summaries := report.Summarize(objects, ego, results)
	if err := report.WriteSummary(w, summaries, o.units, o.verbose); err != nil {
		return err
	}
	if frame := collector.Emit(); frame != nil {
		return frame.WriteText(w)
	}
	return nil
}

func runRandom(w io.Writer, o options, base *config.Calibration, tally *report.Tally) error {
	params, err := rules.ParamsFromCalibration(base)
	if err != nil {
		return err
	}
	cfg := engine.DefaultConfig()
	cfg.StrictInvariants = o.strict
	eng := engine.New(params, cfg)

	rng := rand.New(rand.NewSource(o.seed))
	for i := 0; i < o.random; i++ {
		sc := scenario.Random(rng, o.objects)
		objects, ego, err := sc.Build()
		if err != nil {
			return fmt.Errorf("random scenario %d: %w", i, err)
		}
		tally.Add(eng.RunCycle(objects, ego))
	}
	return tally.WriteText(w)
}
