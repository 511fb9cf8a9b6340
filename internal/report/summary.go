// Package report turns engine results into human-readable output: a per
// object summary of active and inactive rules, and rule-hit statistics over
// many evaluations rendered as text, PNG or HTML.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/rules"
	"github.com/banshee-data/trackguard/internal/track"
	"github.com/banshee-data/trackguard/internal/units"
)

// ObjectSummary is the outcome of one object in one cycle.
type ObjectSummary struct {
	ObjectID  uint16
	Type      track.ObjectType
	X, Y      float32
	Speed     float32 // over ground, m/s
	Relevance relevance.BitField
	Active    []rules.ID
	Inactive  []rules.ID
}

// Summarize pairs results with the objects they were computed for. objects
// and results must come from the same RunCycle call.
func Summarize(objects []*track.Object, ego track.EgoMotion, results []engine.Result) []ObjectSummary {
	out := make([]ObjectSummary, 0, len(results))
	for i, r := range results {
		s := ObjectSummary{ObjectID: r.ObjectID, Relevance: r.Relevance}
		if i < len(objects) {
			o := objects[i]
			s.Type = o.Classification.MostProbable()
			s.X, s.Y = o.State.X, o.State.Y
			s.Speed = track.VelocityOverGround(o, ego).Norm()
		}
		for id := rules.ID(0); id < rules.NumRules; id++ {
			if r.Fired.Has(id) {
				s.Active = append(s.Active, id)
			} else {
				s.Inactive = append(s.Inactive, id)
			}
		}
		out = append(out, s)
	}
	return out
}

// WriteSummary prints one block per object. Inactive rules are listed only
// when verbose is set.
func WriteSummary(w io.Writer, summaries []ObjectSummary, speed units.SpeedUnit, verbose bool) error {
	for _, s := range summaries {
		_, err := fmt.Fprintf(w, "object %d (%s) x=%.1f y=%.1f speed=%.1f %s relevance=%#06x %s\n",
			s.ObjectID, s.Type, s.X, s.Y, speed.FromMPS(s.Speed), speed.Label(),
			uint16(s.Relevance), s.Relevance)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  active (%d): %s\n", len(s.Active), joinIDs(s.Active)); err != nil {
			return err
		}
		if verbose {
			if _, err := fmt.Fprintf(w, "  inactive (%d): %s\n", len(s.Inactive), joinIDs(s.Inactive)); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinIDs(ids []rules.ID) string {
	if len(ids) == 0 {
		return "-"
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return strings.Join(names, ", ")
}
