package vclock

import "testing"

func TestIncrementAndGet(t *testing.T) {
	c := New(1)
	if got := c.Get(1); got != 0 {
		t.Fatalf("Get(1) = %d, want 0", got)
	}
	c.Increment()
	if got := c.Get(1); got != 1 {
		t.Fatalf("Get(1) = %d, want 1", got)
	}
}

func TestMergeBumpsOwner(t *testing.T) {
	a := New(1)
	a.Increment() // a = {1:1}

	b := New(2)
	b.Increment()
	b.Increment() // b = {2:2}

	a.Merge(b) // a = max({1:1},{2:2}) then increment owner 1 -> {1:2, 2:2}
	if got := a.Get(1); got != 2 {
		t.Fatalf("a[1] = %d, want 2", got)
	}
	if got := a.Get(2); got != 2 {
		t.Fatalf("a[2] = %d, want 2", got)
	}
}

func TestCompareLessEqualGreaterConcurrent(t *testing.T) {
	a := New(1)
	b := New(1)
	if got := Compare(a, b); got != Equal {
		t.Fatalf("Compare(empty,empty) = %v, want Equal", got)
	}

	b.Increment() // b = {1:1}
	if got := Compare(a, b); got != Less {
		t.Fatalf("Compare(a,b) = %v, want Less", got)
	}
	if got := Compare(b, a); got != Greater {
		t.Fatalf("Compare(b,a) = %v, want Greater", got)
	}

	a2 := New(10)
	a2.Increment() // {10:1}
	b2 := New(20)
	b2.Increment() // {20:1}
	if got := Compare(a2, b2); got != Concurrent {
		t.Fatalf("Compare(a2,b2) = %v, want Concurrent", got)
	}
}

func TestEmptyClocksDifferentOwnersAreEqualNotLessGreater(t *testing.T) {
	// Boundary behavior from spec.md §8: "absent = 0 for both sides" means
	// two fresh empty clocks with different owners are Equal (no entries at
	// all on either side yet), not asymmetrically Less/Greater.
	a := New(1)
	b := New(2)
	if got := Compare(a, b); got != Equal {
		t.Fatalf("Compare(emptyA,emptyB) = %v, want Equal", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := New(1)
	a.Increment()
	b := a.Clone()
	b.Increment()
	if a.Get(1) == b.Get(1) {
		t.Fatalf("clone shares state with original")
	}
}

func TestFromEntriesRoundTrip(t *testing.T) {
	a := New(5)
	a.Increment()
	a.Merge(New(7))

	entries := a.Entries()
	b := FromEntries(5, entries)
	if Compare(a, b) != Equal {
		t.Fatalf("FromEntries round-trip mismatch: %v vs %v", a.Entries(), b.Entries())
	}
}
