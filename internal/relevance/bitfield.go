// Package relevance holds the per-object function relevance bitfield.
//
// A bitfield starts fully qualified at the top of every cycle. Checks may only
// clear bits, so the final value is the AND over all checks and does not
// depend on the order in which they ran.
package relevance

import "strings"

// BitField records which downstream functions may still use an object.
type BitField uint16

// Consumer bits.
const (
	AEB         BitField = 1 << 0
	ACC         BitField = 1 << 1
	VyDependent BitField = 1 << 2

	AebAndAcc BitField = AEB | ACC

	// Qualified is the value every object starts a cycle with.
	Qualified BitField = 0xFFFF
)

// Clear removes mask from b. Clearing an already clear bit is a no-op.
func (b *BitField) Clear(mask BitField) {
	*b &^= mask
}

// Has reports whether every bit of mask is still set.
func (b BitField) Has(mask BitField) bool {
	return b&mask == mask
}

// DisqualifyForAeb clears the AEB bit.
func DisqualifyForAeb(b *BitField) { b.Clear(AEB) }

// DisqualifyForAcc clears the ACC bit.
func DisqualifyForAcc(b *BitField) { b.Clear(ACC) }

// DisqualifyForAebAndAcc clears the AEB and ACC bits together.
func DisqualifyForAebAndAcc(b *BitField) { b.Clear(AebAndAcc) }

// DisqualifyForVyDependentFunctions clears the bit of functions relying on the
// lateral velocity estimate.
func DisqualifyForVyDependentFunctions(b *BitField) { b.Clear(VyDependent) }

var names = []struct {
	bit  BitField
	name string
}{
	{AEB, "aeb"},
	{ACC, "acc"},
	{VyDependent, "vy"},
}

// String lists the named bits that are cleared, e.g. "-aeb,-acc", or
// "qualified" when none are.
func (b BitField) String() string {
	var cleared []string
	for _, n := range names {
		if !b.Has(n.bit) {
			cleared = append(cleared, "-"+n.name)
		}
	}
	if len(cleared) == 0 {
		return "qualified"
	}
	return strings.Join(cleared, ",")
}
