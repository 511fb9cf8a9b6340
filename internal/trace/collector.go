// Package trace records which rule cleared which relevance bits during a
// cycle. The Collector plugs into the engine as an observer and is used for
// tuning and for the -trace output of the command line tools.
package trace

import (
	"fmt"
	"io"

	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/rules"
)

// defaultObjectCapacity is the typical number of live fusion tracks.
const defaultObjectCapacity = 32

// Collector accumulates fired rules for one cycle.
//
// The collector is stateful: the engine calls BeginCycle and RuleFired while
// evaluating, the caller then takes the cycle with Emit. Reset drops a cycle
// without emitting it.
type Collector struct {
	enabled bool
	current *Frame
}

var _ engine.Observer = (*Collector)(nil)

// Frame holds the firings of one cycle, grouped per object in evaluation
// order. Objects without any firing are omitted.
type Frame struct {
	Cycle   uint64
	Objects []ObjectTrace
}

// ObjectTrace lists the rules that fired for one object.
type ObjectTrace struct {
	ObjectID uint16
	Firings  []Firing
	Rules    rules.Set
	Cleared  relevance.BitField // union of all masks
}

// Firing is one rule returning a non-zero mask.
type Firing struct {
	Rule rules.ID
	Mask relevance.BitField
}

// NewCollector creates a collector that is initially disabled.
func NewCollector() *Collector {
	return &Collector{}
}

// SetEnabled controls whether the collector records anything. When disabled
// all observer calls are no-ops.
func (c *Collector) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// IsEnabled returns true if the collector is recording.
func (c *Collector) IsEnabled() bool {
	return c.enabled
}

// BeginCycle starts a new frame. A frame that was not emitted is discarded.
func (c *Collector) BeginCycle(cycle uint64) {
	if !c.enabled {
		return
	}
	c.current = &Frame{
		Cycle:   cycle,
		Objects: make([]ObjectTrace, 0, defaultObjectCapacity),
	}
}

// RuleFired implements engine.Observer.
func (c *Collector) RuleFired(objectID uint16, rule rules.ID, mask relevance.BitField) {
	if !c.enabled || c.current == nil {
		return
	}
	objs := c.current.Objects
	if n := len(objs); n == 0 || objs[n-1].ObjectID != objectID {
		c.current.Objects = append(objs, ObjectTrace{ObjectID: objectID})
	}
	ot := &c.current.Objects[len(c.current.Objects)-1]
	ot.Firings = append(ot.Firings, Firing{Rule: rule, Mask: mask})
	ot.Rules.Add(rule)
	ot.Cleared |= mask
}

// EndCycle implements engine.Observer. The frame stays pending until Emit.
func (c *Collector) EndCycle() {}

// Emit returns the pending frame and clears it. Returns nil if the collector
// is disabled or no cycle was begun.
func (c *Collector) Emit() *Frame {
	if !c.enabled || c.current == nil {
		return nil
	}
	f := c.current
	c.current = nil
	return f
}

// Reset drops any pending frame.
func (c *Collector) Reset() {
	c.current = nil
}

// Object returns the trace of one object, or nil if no rule fired for it.
func (f *Frame) Object(id uint16) *ObjectTrace {
	for i := range f.Objects {
		if f.Objects[i].ObjectID == id {
			return &f.Objects[i]
		}
	}
	return nil
}

// WriteText prints one line per firing.
func (f *Frame) WriteText(w io.Writer) error {
	for _, ot := range f.Objects {
		for _, fr := range ot.Firings {
			if _, err := fmt.Fprintf(w, "cycle=%d object=%d rule=%s mask=%#06x\n",
				f.Cycle, ot.ObjectID, fr.Rule, uint16(fr.Mask)); err != nil {
				return err
			}
		}
	}
	return nil
}
