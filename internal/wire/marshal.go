package wire

import "github.com/taskboard/replicore/internal/model"

// MarshalTask serializes t in its on-wire Task layout (task_id, title,
// description, board_id, created_by, column, client_id, created_at,
// updated_at, clock), without the outer size prefix used when embedding it
// in a framed envelope.
func MarshalTask(t *model.Task) ([]byte, error) {
	buf := &byteRW{}
	if err := NewConn(buf).writeTaskBody(t); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// UnmarshalTask parses bytes produced by MarshalTask.
func UnmarshalTask(bts []byte) (*model.Task, error) {
	return NewConn(&byteRW{b: bts}).readTaskBody()
}

// MarshalLogEntry serializes e in its on-wire LogEntry layout.
func MarshalLogEntry(e *model.LogEntry) ([]byte, error) {
	buf := &byteRW{}
	if err := NewConn(buf).writeLogEntryBody(e); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// UnmarshalLogEntry parses bytes produced by MarshalLogEntry.
func UnmarshalLogEntry(bts []byte) (*model.LogEntry, error) {
	return NewConn(&byteRW{b: bts}).readLogEntryBody()
}
