// Package store implements the Task Store: the authoritative in-memory set
// of tasks, with conflict-aware mutators built on vector-clock comparison.
package store

import (
	"sync"

	"github.com/google/btree"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/vclock"
)

const btreeDegree = 32

// taskItem adapts *model.Task to btree.Item, ordered by TaskID ascending so
// that an in-order Ascend traversal is exactly list_all()'s required order.
type taskItem struct {
	task *model.Task
}

func (a taskItem) Less(than btree.Item) bool {
	return a.task.TaskID < than.(taskItem).task.TaskID
}

// Store is the Task Store. One mutex guards the tree, the id counter, and
// the clock merge performed by each mutator, so that compare-apply-merge is
// one atomic step, per spec.md §4.2 "Concurrency".
type Store struct {
	mu         sync.Mutex
	tree       *btree.BTree
	nextTaskID int32
}

// New returns an empty Store.
func New() *Store {
	return &Store{tree: btree.New(btreeDegree)}
}

// Create allocates the next task_id, stamps created_at=updated_at=now, and
// always succeeds.
func (s *Store) Create(title, description, boardID, createdBy string, column model.Column, clientID int32, now int64) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextTaskID
	s.nextTaskID++

	t := &model.Task{
		TaskID:      id,
		Title:       title,
		Description: description,
		BoardID:     boardID,
		CreatedBy:   createdBy,
		Column:      column,
		ClientID:    clientID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Clock:       vclock.New(clientID),
	}
	s.tree.ReplaceOrInsert(taskItem{task: t})
	return id
}

func (s *Store) getLocked(taskID int32) *model.Task {
	item := s.tree.Get(taskItem{task: &model.Task{TaskID: taskID}})
	if item == nil {
		return nil
	}
	return item.(taskItem).task
}

// Get returns a copy of the task with the given id, or ok=false if missing.
func (s *Store) Get(taskID int32) (*model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(taskID)
	if t == nil {
		return nil, false
	}
	return t.Clone(), true
}

// Update applies a clock-aware title/description change. See spec.md §4.2.
func (s *Store) Update(taskID int32, title, description string, incoming *vclock.Clock, now int64) *model.OperationResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(taskID)
	if t == nil {
		return &model.OperationResponse{Success: false, UpdatedTaskID: -1}
	}

	order := vclock.Compare(t.Clock, incoming)
	if order == vclock.Greater {
		return &model.OperationResponse{Success: false, Rejected: true, UpdatedTaskID: -1}
	}

	t.Title = title
	t.Description = description
	t.Clock.Merge(incoming)
	t.UpdatedAt = now

	return &model.OperationResponse{
		Success:       true,
		Conflict:      order == vclock.Concurrent,
		UpdatedTaskID: taskID,
	}
}

// Move applies a clock-aware column change, a no-op at the store level if
// the column is already the target column. See spec.md §4.2.
func (s *Store) Move(taskID int32, column model.Column, incoming *vclock.Clock, now int64) *model.OperationResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(taskID)
	if t == nil {
		return &model.OperationResponse{Success: false, UpdatedTaskID: -1}
	}

	if t.Column == column {
		return &model.OperationResponse{Success: true, UpdatedTaskID: taskID}
	}

	order := vclock.Compare(t.Clock, incoming)
	if order == vclock.Greater {
		return &model.OperationResponse{Success: false, Rejected: true, UpdatedTaskID: -1}
	}

	t.Column = column
	t.Clock.Merge(incoming)
	t.UpdatedAt = now

	return &model.OperationResponse{
		Success:       true,
		Conflict:      order == vclock.Concurrent,
		UpdatedTaskID: taskID,
	}
}

// Delete removes a task, returning false if it did not exist.
func (s *Store) Delete(taskID int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.tree.Delete(taskItem{task: &model.Task{TaskID: taskID}})
	return removed != nil
}

// ListAll returns every task, ordered by task_id ascending.
func (s *Store) ListAll() []*model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Task, 0, s.tree.Len())
	s.tree.Ascend(func(item btree.Item) bool {
		out = append(out, item.(taskItem).task.Clone())
		return true
	})
	return out
}

// ClearAll removes every task, for state transfer.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Clear(false)
}

// AddDirect inserts t verbatim (no id allocation, no clock merge), for
// state transfer installation.
func (s *Store) AddDirect(t *model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(taskItem{task: t.Clone()})
}

// SetIDCounter sets the next id to be allocated by Create, for state
// transfer installation.
func (s *Store) SetIDCounter(n int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTaskID = n
}

// GetIDCounter returns the next id Create would allocate.
func (s *Store) GetIDCounter() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextTaskID
}

// Len reports the number of tasks currently stored, for diagnostics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}
