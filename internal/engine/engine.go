// Package engine runs the disqualification rules over every tracked object
// of a fusion cycle.
//
// A cycle has three phases: a read-only snapshot of all objects is taken for
// the cross-object checks, the updaters advance the engine-owned counters of
// each object, and finally every rule is evaluated against the updated
// objects. Results are written into buffers owned by the Engine and are only
// valid until the next RunCycle call.
package engine

import (
	"github.com/banshee-data/trackguard/internal/monitoring"
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/rules"
	"github.com/banshee-data/trackguard/internal/track"
)

// Observer is notified about every rule that cleared bits. All calls happen
// on the goroutine running the cycle.
type Observer interface {
	BeginCycle(cycle uint64)
	RuleFired(objectID uint16, rule rules.ID, mask relevance.BitField)
	EndCycle()
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) BeginCycle(uint64)                              {}
func (NopObserver) RuleFired(uint16, rules.ID, relevance.BitField) {}
func (NopObserver) EndCycle()                                      {}

// Config holds the engine set-up. Zero-valued fields take the defaults.
type Config struct {
	// Rules are evaluated in slice order. Nil means rules.Default().
	Rules []rules.Rule

	// Updaters run before any rule. Nil means rules.DefaultUpdaters(); an
	// empty non-nil slice disables the update phase.
	Updaters []rules.Updater

	// Observer receives fired-rule notifications (default: NopObserver).
	Observer Observer

	// StrictInvariants panics on violated data invariants instead of logging.
	StrictInvariants bool
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Rules:    rules.Default(),
		Updaters: rules.DefaultUpdaters(),
		Observer: NopObserver{},
	}
}

// Result is the outcome for one object.
type Result struct {
	ObjectID  uint16
	Relevance relevance.BitField
	Fired     rules.Set
}

// Engine evaluates cycles. It is not safe for concurrent use; run one engine
// per goroutine.
type Engine struct {
	params   *rules.Params
	rules    []rules.Rule
	updaters []rules.Updater
	observer Observer
	strict   bool

	cycle    uint64
	snapshot rules.NeighborSnapshot
	ctx      rules.Context
	results  []Result
}

// New creates an engine. A nil params uses rules.DefaultParams().
func New(params *rules.Params, cfg Config) *Engine {
	if params == nil {
		params = rules.DefaultParams()
	}
	if cfg.Rules == nil {
		cfg.Rules = rules.Default()
	}
	if cfg.Updaters == nil {
		cfg.Updaters = rules.DefaultUpdaters()
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	monitoring.Diagf("engine: %d rules, %d updaters, strict=%t", len(cfg.Rules), len(cfg.Updaters), cfg.StrictInvariants)
	return &Engine{
		params:   params,
		rules:    cfg.Rules,
		updaters: cfg.Updaters,
		observer: cfg.Observer,
		strict:   cfg.StrictInvariants,
	}
}

// Params returns the parameters the engine evaluates with.
func (e *Engine) Params() *rules.Params { return e.params }

// Cycles is the number of cycles run so far.
func (e *Engine) Cycles() uint64 { return e.cycle }

// RunCycle evaluates all objects of one cycle. Objects are modified in place
// by the update phase. The returned slice is reused by the next call.
func (e *Engine) RunCycle(objects []*track.Object, ego track.EgoMotion) []Result {
	e.cycle++
	e.observer.BeginCycle(e.cycle)
	defer e.observer.EndCycle()

	e.snapshot.Capture(objects, ego)
	e.ctx = rules.Context{
		Ego:              ego,
		Params:           e.params,
		Neighbors:        &e.snapshot,
		StrictInvariants: e.strict,
	}

	for _, o := range objects {
		e.ctx.Reset(o)
		for _, u := range e.updaters {
			u.Update(&e.ctx)
		}
	}

	e.results = e.results[:0]
	for _, o := range objects {
		// Updaters may have changed the probabilities the derived flags
		// depend on.
		e.ctx.Reset(o)
		e.results = append(e.results, e.evaluate(o))
	}
	return e.results
}

func (e *Engine) evaluate(o *track.Object) Result {
	res := Result{ObjectID: o.ID, Relevance: relevance.Qualified}
	for _, r := range e.rules {
		mask := r.Check(&e.ctx)
		if mask == 0 {
			continue
		}
		res.Relevance.Clear(mask)
		res.Fired.Add(r.ID())
		e.observer.RuleFired(o.ID, r.ID(), mask)
		if monitoring.TraceEnabled() {
			monitoring.Tracef("cycle %d object %d: %s cleared %#06x", e.cycle, o.ID, r.ID(), uint16(mask))
		}
	}
	return res
}

// Evaluate runs the update and check phases for a single object without
// neighbours. It does not advance the cycle counter.
func Evaluate(o *track.Object, ego track.EgoMotion, params *rules.Params) Result {
	if params == nil {
		params = rules.DefaultParams()
	}
	e := &Engine{
		params:   params,
		rules:    rules.Default(),
		updaters: rules.DefaultUpdaters(),
		observer: NopObserver{},
	}
	e.ctx = rules.Context{Ego: ego, Params: params, Neighbors: rules.NoNeighbors}
	e.ctx.Reset(o)
	for _, u := range e.updaters {
		u.Update(&e.ctx)
	}
	e.ctx.Reset(o)
	return e.evaluate(o)
}
