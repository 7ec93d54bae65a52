package oplog

import (
	"testing"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/store"
	"github.com/taskboard/replicore/internal/vclock"
)

func entry(id int32, op model.OpType, taskID int32) *model.LogEntry {
	return &model.LogEntry{
		EntryID:   id,
		OpType:    op,
		TaskID:    taskID,
		Title:     "t",
		ClientID:  1,
		Timestamp: vclock.New(1),
	}
}

func TestAppendAdvancesNextEntryID(t *testing.T) {
	l := New()
	l.Append(entry(0, model.CREATE, 0))
	l.Append(entry(1, model.CREATE, 1))
	if got := l.NextEntryID(); got != 2 {
		t.Fatalf("NextEntryID() = %d, want 2", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := New()
	l.Append(entry(0, model.CREATE, 0))
	snap := l.Snapshot()
	snap[0].Title = "mutated"

	snap2 := l.Snapshot()
	if snap2[0].Title == "mutated" {
		t.Fatal("snapshot must be a copy, mutation leaked into the log")
	}
}

func TestSuffixAfter(t *testing.T) {
	l := New()
	for i := int32(0); i < 5; i++ {
		l.Append(entry(i, model.CREATE, i))
	}
	suf := l.SuffixAfter(2)
	if len(suf) != 2 || suf[0].EntryID != 3 || suf[1].EntryID != 4 {
		t.Fatalf("unexpected suffix: %+v", suf)
	}
}

func TestReplaceAdoptsSendersIDSpace(t *testing.T) {
	l := New()
	l.Append(entry(0, model.CREATE, 0))

	incoming := []*model.LogEntry{entry(10, model.CREATE, 1), entry(11, model.UPDATE, 1)}
	l.Replace(incoming)

	if got := l.NextEntryID(); got != 12 {
		t.Fatalf("NextEntryID() = %d, want 12", got)
	}
	if len(l.Snapshot()) != 2 {
		t.Fatalf("expected replaced log to have 2 entries, got %d", len(l.Snapshot()))
	}
}

func TestClearResetsCounter(t *testing.T) {
	l := New()
	l.Append(entry(5, model.CREATE, 1))
	l.Clear()
	if got := l.NextEntryID(); got != 0 {
		t.Fatalf("NextEntryID() after Clear = %d, want 0", got)
	}
	if len(l.Snapshot()) != 0 {
		t.Fatal("expected empty log after Clear")
	}
}

func TestReplayReconstructsStore(t *testing.T) {
	source := store.New()
	id := source.Create("hello", "world", "b1", "alice", model.TODO, 1, 1000)
	c := vclock.New(1)
	c.Increment()
	source.Move(id, model.DONE, c, 2000)

	l := New()
	l.Append(&model.LogEntry{EntryID: 0, OpType: model.CREATE, TaskID: id, Title: "hello", Description: "world", CreatedBy: "alice", Column: model.TODO, ClientID: 1, Timestamp: vclock.New(1)})
	l.Append(&model.LogEntry{EntryID: 1, OpType: model.MOVE, TaskID: id, Column: model.DONE, ClientID: 1, Timestamp: c})

	dest := store.New()
	Replay(dest, l.Snapshot())

	want, _ := source.Get(id)
	got, ok := dest.Get(id)
	if !ok {
		t.Fatal("replay did not reconstruct task")
	}
	if got.Title != want.Title || got.Description != want.Description || got.Column != want.Column {
		t.Fatalf("replay mismatch (modulo updated_at): want %+v got %+v", want, got)
	}
}

func TestReplaySkipsNonDataOps(t *testing.T) {
	dest := store.New()
	Replay(dest, []*model.LogEntry{entry(0, model.GET_BOARD, 1)})
	if dest.Len() != 0 {
		t.Fatal("GET_BOARD must not mutate the store during replay")
	}
}
