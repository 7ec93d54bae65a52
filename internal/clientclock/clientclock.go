// Package clientclock maintains the per-client causal clock map on a
// serving node: a mapping from client_id to a VectorClock the node advances
// monotonically, stamped onto outgoing log entries for that client's
// operations. Per spec.md §9, the owner is always the originating client's
// client_id, never the serving node's id.
package clientclock

import (
	"sync"

	"github.com/taskboard/replicore/internal/vclock"
)

// Map is the serving node's per-client clock table.
type Map struct {
	mu     sync.Mutex
	clocks map[int32]*vclock.Clock
}

// New returns an empty Map.
func New() *Map {
	return &Map{clocks: make(map[int32]*vclock.Clock)}
}

// Advance increments and returns the clock for clientID, constructing a
// fresh clock owned by clientID (value 0) if this is the first operation
// seen from that client.
func (m *Map) Advance(clientID int32) *vclock.Clock {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clocks[clientID]
	if !ok {
		c = vclock.New(clientID)
		m.clocks[clientID] = c
	}
	c.Increment()
	return c.Clone()
}

// Reset discards every per-client clock. Called on demotion (§9 "Open
// questions": a Promoted Backup demoting back to Backup, or a newly
// installed Primary after a rejoin, starts every client at clock 0 again —
// the design's accepted source of one spurious conflict=true per
// reconnecting client).
func (m *Map) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clocks = make(map[int32]*vclock.Clock)
}

// Len reports how many distinct clients currently have a clock entry.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clocks)
}
