package clientclock

import "testing"

func TestAdvanceCreatesFreshClockOwnedByClient(t *testing.T) {
	m := New()
	c := m.Advance(42)
	if c.Owner() != 42 {
		t.Fatalf("Owner() = %d, want 42", c.Owner())
	}
	if got := c.Get(42); got != 1 {
		t.Fatalf("Get(42) = %d, want 1", got)
	}
}

func TestAdvanceIsMonotonicPerClient(t *testing.T) {
	m := New()
	m.Advance(1)
	m.Advance(1)
	c := m.Advance(1)
	if got := c.Get(1); got != 3 {
		t.Fatalf("Get(1) = %d, want 3", got)
	}
}

func TestDistinctClientsAreIndependent(t *testing.T) {
	m := New()
	m.Advance(1)
	m.Advance(1)
	c2 := m.Advance(2)
	if got := c2.Get(2); got != 1 {
		t.Fatalf("client 2's clock should be independent, got %d", got)
	}
}

func TestResetDiscardsAllClocks(t *testing.T) {
	m := New()
	m.Advance(1)
	m.Advance(2)
	m.Reset()
	if m.Len() != 0 {
		t.Fatalf("expected 0 clients after Reset, got %d", m.Len())
	}
	c := m.Advance(1)
	if got := c.Get(1); got != 1 {
		t.Fatalf("expected fresh clock after reset, got %d", got)
	}
}
