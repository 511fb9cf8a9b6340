package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/banshee-data/trackguard/internal/engine"
	"github.com/banshee-data/trackguard/internal/relevance"
	"github.com/banshee-data/trackguard/internal/rules"
)

// Tally accumulates rule hits over many cycles.
type Tally struct {
	Cycles  int
	Objects int

	// Fired counts, per rule, the objects it fired for.
	Fired [rules.NumRules]int

	// Lost counts the objects that ended a cycle without the bit.
	LostAEB int
	LostACC int
	LostVy  int
}

// Row is one line of the hit table.
type Row struct {
	Rule  rules.ID
	Count int
	Share float64 // of all evaluated objects
}

// Add records the results of one cycle.
func (t *Tally) Add(results []engine.Result) {
	t.Cycles++
	t.Objects += len(results)
	for _, r := range results {
		for _, id := range r.Fired.IDs() {
			t.Fired[id]++
		}
		if !r.Relevance.Has(relevance.AEB) {
			t.LostAEB++
		}
		if !r.Relevance.Has(relevance.ACC) {
			t.LostACC++
		}
		if !r.Relevance.Has(relevance.VyDependent) {
			t.LostVy++
		}
	}
}

// Rows lists every rule, most frequent first; ties keep registry order.
func (t *Tally) Rows() []Row {
	rows := make([]Row, 0, rules.NumRules)
	for id := rules.ID(0); id < rules.NumRules; id++ {
		row := Row{Rule: id, Count: t.Fired[id]}
		if t.Objects > 0 {
			row.Share = float64(row.Count) / float64(t.Objects)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	return rows
}

// Active returns the rows of rules that fired at least once.
func (t *Tally) Active() []Row {
	var out []Row
	for _, r := range t.Rows() {
		if r.Count > 0 {
			out = append(out, r)
		}
	}
	return out
}

// WriteText prints the totals and the rules that fired.
func (t *Tally) WriteText(w io.Writer) error {
	share := func(n int) float64 {
		if t.Objects == 0 {
			return 0
		}
		return 100 * float64(n) / float64(t.Objects)
	}
	if _, err := fmt.Fprintf(w, "cycles=%d objects=%d lost_aeb=%d (%.1f%%) lost_acc=%d (%.1f%%) lost_vy=%d (%.1f%%)\n",
		t.Cycles, t.Objects, t.LostAEB, share(t.LostAEB), t.LostACC, share(t.LostACC), t.LostVy, share(t.LostVy)); err != nil {
		return err
	}
	active := t.Active()
	for _, r := range active {
		if _, err := fmt.Fprintf(w, "  %-45s %6d  %5.1f%%\n", r.Rule, r.Count, 100*r.Share); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %d of %d rules never fired\n", int(rules.NumRules)-len(active), int(rules.NumRules))
	return err
}
