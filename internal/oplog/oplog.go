// Package oplog implements the Operation Log: an append-only, in-memory
// sequence of committed LogEntries. It mirrors the teacher's wal package
// idiom (a locked mutation path, snapshot-by-copy reads) with the on-disk
// file segmenting and CRC chaining dropped — spec.md §1 scopes durable
// persistence out; crash recovery goes through the peer, never through disk.
package oplog

import (
	"sync"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/store"
)

// Log is the append-only Operation Log.
type Log struct {
	mu          sync.Mutex
	entries     []*model.LogEntry
	nextEntryID int32
}

// New returns an empty Log.
func New() *Log {
	return &Log{}
}

// Append adds entry to the tail and advances next_entry_id to entry_id+1.
func (l *Log) Append(entry *model.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	l.nextEntryID = entry.EntryID + 1
}

// NextEntryID returns the id the next local Append should use.
func (l *Log) NextEntryID() int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextEntryID
}

// SetNextEntryID sets the counter directly, for state transfer.
func (l *Log) SetNextEntryID(n int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextEntryID = n
}

// Snapshot returns a copy of the full log.
func (l *Log) Snapshot() []*model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*model.LogEntry, len(l.entries))
	for i, e := range l.entries {
		cp := *e
		if e.Timestamp != nil {
			cp.Timestamp = e.Timestamp.Clone()
		}
		out[i] = &cp
	}
	return out
}

// SuffixAfter returns every entry whose entry_id is strictly greater than
// entryID.
func (l *Log) SuffixAfter(entryID int32) []*model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*model.LogEntry, 0)
	for _, e := range l.entries {
		if e.EntryID > entryID {
			out = append(out, e)
		}
	}
	return out
}

// Replace swaps the entire log for newLog, for state transfer — the
// receiving node adopts the sender's id-space wholesale.
func (l *Log) Replace(newLog []*model.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]*model.LogEntry, len(newLog))
	copy(l.entries, newLog)

	if len(newLog) > 0 {
		l.nextEntryID = newLog[len(newLog)-1].EntryID + 1
	} else {
		l.nextEntryID = 0
	}
}

// Clear empties the log and resets the id counter to 0.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.nextEntryID = 0
}

// Replay applies every entry in entries to st, in order. CREATE uses
// AddDirect with the entry's explicit fields (not Store.Create's id
// allocator, since the replayed id is already fixed); UPDATE and MOVE use
// the clock-aware store mutators; DELETE removes. Replay never reports
// conflict back — it reconstructs state, it does not arbitrate it.
func Replay(st *store.Store, entries []*model.LogEntry) {
	for _, e := range entries {
		replayOne(st, e)
	}
}

func replayOne(st *store.Store, e *model.LogEntry) {
	switch e.OpType {
	case model.CREATE:
		st.AddDirect(&model.Task{
			TaskID:      e.TaskID,
			Title:       e.Title,
			Description: e.Description,
			CreatedBy:   e.CreatedBy,
			Column:      e.Column,
			ClientID:    e.ClientID,
			CreatedAt:   0,
			UpdatedAt:   0,
			Clock:       e.Timestamp.Clone(),
		})
	case model.UPDATE:
		st.Update(e.TaskID, e.Title, e.Description, e.Timestamp, 0)
	case model.MOVE:
		st.Move(e.TaskID, e.Column, e.Timestamp, 0)
	case model.DELETE:
		st.Delete(e.TaskID)
	default:
		// GET_BOARD and every non-data op-code carry no store mutation and
		// are skipped.
	}
}
