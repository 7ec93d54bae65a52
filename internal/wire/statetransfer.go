package wire

import "github.com/taskboard/replicore/internal/model"

// StateTransfer is the (id_counter, task_snapshot, log_snapshot) blob
// exchanged during catchup and rejoin, per spec.md §6.
type StateTransfer struct {
	IDCounter int32
	Tasks     []*model.Task
	Log       []*model.LogEntry
}

// WriteStateTransfer writes id_counter:i32, then list-of-Task, then
// list-of-LogEntry, in that order, with no outer op-code — callers prefix
// the appropriate op-code (STATE_TRANSFER_RESPONSE) themselves.
func (c *Conn) WriteStateTransfer(st *StateTransfer) error {
	if err := c.WriteInt32(st.IDCounter); err != nil {
		return err
	}
	if err := c.WriteTaskList(st.Tasks); err != nil {
		return err
	}
	return c.WriteLogEntryList(st.Log)
}

// ReadStateTransfer reads the blob written by WriteStateTransfer.
func (c *Conn) ReadStateTransfer() (*StateTransfer, error) {
	idCounter, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	tasks, err := c.ReadTaskList()
	if err != nil {
		return nil, err
	}
	log, err := c.ReadLogEntryList()
	if err != nil {
		return nil, err
	}
	return &StateTransfer{IDCounter: idCounter, Tasks: tasks, Log: log}, nil
}
