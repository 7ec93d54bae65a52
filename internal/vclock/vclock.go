// Package vclock implements vector clocks: per-process counters used as a
// causal timestamp on tasks and log entries.
package vclock

// Order is the result of comparing two VectorClocks.
type Order int

const (
	Equal Order = iota
	Less
	Greater
	Concurrent
)

func (o Order) String() string {
	switch o {
	case Equal:
		return "Equal"
	case Less:
		return "Less"
	case Greater:
		return "Greater"
	default:
		return "Concurrent"
	}
}

// Clock is a mapping from process id to a non-negative counter, with a
// designated owner process id. A missing entry is treated as 0 on both
// sides of any comparison (the "absent = 0 for both sides" rule picked for
// the open question in spec.md §9).
type Clock struct {
	owner   int32
	entries map[int32]int32
}

// New returns an empty Clock owned by owner.
func New(owner int32) *Clock {
	return &Clock{owner: owner, entries: make(map[int32]int32)}
}

// Owner returns the process id that owns this clock.
func (c *Clock) Owner() int32 { return c.owner }

// Get returns the counter for id, or 0 if absent.
func (c *Clock) Get(id int32) int32 {
	if c == nil {
		return 0
	}
	return c.entries[id]
}

// Increment bumps the owner's own entry by 1.
func (c *Clock) Increment() {
	c.entries[c.owner] = c.entries[c.owner] + 1
}

// Merge takes the pointwise max of c and other across every id present in
// either, writes the result into c, then increments c's own (owner) entry.
// other is left unmodified.
func (c *Clock) Merge(other *Clock) {
	if other == nil {
		c.Increment()
		return
	}
	for id, v := range other.entries {
		if v > c.entries[id] {
			c.entries[id] = v
		}
	}
	c.Increment()
}

// Clone returns a deep copy of c, preserving owner and every entry.
func (c *Clock) Clone() *Clock {
	cp := &Clock{owner: c.owner, entries: make(map[int32]int32, len(c.entries))}
	for id, v := range c.entries {
		cp.entries[id] = v
	}
	return cp
}

// Entries returns a copy of the underlying id->counter map, for wire
// serialization and for snapshot/state-transfer code paths.
func (c *Clock) Entries() map[int32]int32 {
	out := make(map[int32]int32, len(c.entries))
	for id, v := range c.entries {
		out[id] = v
	}
	return out
}

// FromEntries builds a Clock owned by owner from a raw id->counter map, as
// produced by the wire codec when decoding a VectorClock payload.
func FromEntries(owner int32, entries map[int32]int32) *Clock {
	c := New(owner)
	for id, v := range entries {
		c.entries[id] = v
	}
	return c
}

// Compare returns the partial-order relationship of a to b.
//
// a <= b iff for every id present in either, a[id] <= b[id].
// a < b iff a <= b and some entry is strictly less.
// a == b iff every entry of both is identical. Since "absent" is read as 0
// symmetrically, two empty clocks with different owners compare Equal,
// never Less/Greater.
func Compare(a, b *Clock) Order {
	ids := make(map[int32]struct{})
	for id := range a.entries {
		ids[id] = struct{}{}
	}
	for id := range b.entries {
		ids[id] = struct{}{}
	}

	aLess, bLess := false, false
	for id := range ids {
		av, bv := a.Get(id), b.Get(id)
		if av < bv {
			aLess = true
		} else if av > bv {
			bLess = true
		}
	}

	switch {
	case !aLess && !bLess:
		return Equal
	case aLess && !bLess:
		return Less
	case bLess && !aLess:
		return Greater
	default:
		return Concurrent
	}
}
