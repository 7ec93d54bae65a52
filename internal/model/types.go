// Package model defines the wire-level data types shared by the task store,
// the operation log, and the wire codec.
package model

import "github.com/taskboard/replicore/internal/vclock"

// Column is the lane a Task sits in on its board.
type Column int32

const (
	TODO Column = iota
	IN_PROGRESS
	DONE
)

func (c Column) String() string {
	switch c {
	case TODO:
		return "TODO"
	case IN_PROGRESS:
		return "IN_PROGRESS"
	case DONE:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// OpType names one wire-protocol operation. Values are stable across the
// wire and must never be renumbered.
type OpType int32

const (
	CREATE_TASK OpType = iota
	UPDATE_TASK
	MOVE_TASK
	DELETE_TASK
	GET_BOARD
	HEARTBEAT_PING
	HEARTBEAT_ACK
	MASTER_REJOIN
	STATE_TRANSFER_REQUEST
	STATE_TRANSFER_RESPONSE
	DEMOTE_ACK
	REPLICATION_INIT
)

func (o OpType) String() string {
	switch o {
	case CREATE_TASK:
		return "CREATE_TASK"
	case UPDATE_TASK:
		return "UPDATE_TASK"
	case MOVE_TASK:
		return "MOVE_TASK"
	case DELETE_TASK:
		return "DELETE_TASK"
	case GET_BOARD:
		return "GET_BOARD"
	case HEARTBEAT_PING:
		return "HEARTBEAT_PING"
	case HEARTBEAT_ACK:
		return "HEARTBEAT_ACK"
	case MASTER_REJOIN:
		return "MASTER_REJOIN"
	case STATE_TRANSFER_REQUEST:
		return "STATE_TRANSFER_REQUEST"
	case STATE_TRANSFER_RESPONSE:
		return "STATE_TRANSFER_RESPONSE"
	case DEMOTE_ACK:
		return "DEMOTE_ACK"
	case REPLICATION_INIT:
		return "REPLICATION_INIT"
	default:
		return "UNKNOWN_OP"
	}
}

// Valid reports whether o is one of the stable OpType values.
func (o OpType) Valid() bool {
	return o >= CREATE_TASK && o <= REPLICATION_INIT
}

// Task is the authoritative record for one task-board item.
type Task struct {
	TaskID      int32
	Title       string
	Description string
	BoardID     string
	CreatedBy   string
	Column      Column
	ClientID    int32
	CreatedAt   int64
	UpdatedAt   int64
	Clock       *vclock.Clock
}

// Clone returns a deep copy of t, including its vector clock.
func (t *Task) Clone() *Task {
	cp := *t
	if t.Clock != nil {
		cp.Clock = t.Clock.Clone()
	}
	return &cp
}

// OpType for LogEntry reuses the same stable enum; the four data-mutation
// values get the names below. The alias itself accepts any OpType.
type LogOpType = OpType

const (
	CREATE LogOpType = CREATE_TASK
	UPDATE LogOpType = UPDATE_TASK
	MOVE   LogOpType = MOVE_TASK
	DELETE LogOpType = DELETE_TASK
)

// LogEntry is one immutable, committed mutation record.
type LogEntry struct {
	EntryID     int32
	OpType      LogOpType
	Timestamp   *vclock.Clock
	TaskID      int32
	Title       string
	Description string
	CreatedBy   string
	Column      Column
	ClientID    int32
}

// OperationResponse is the result of a data-mutating client operation.
type OperationResponse struct {
	Success       bool
	Conflict      bool
	Rejected      bool
	UpdatedTaskID int32
}

// Role is the node's position in the primary/backup state machine.
type Role int32

const (
	RoleBackup Role = iota
	RolePromoted
	RolePrimary
	RoleRejoining
)

func (r Role) String() string {
	switch r {
	case RoleBackup:
		return "Backup"
	case RolePromoted:
		return "Promoted"
	case RolePrimary:
		return "Primary"
	case RoleRejoining:
		return "Rejoining"
	default:
		return "Unknown"
	}
}
