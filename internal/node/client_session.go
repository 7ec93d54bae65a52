package node

import (
	"net"
	"time"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/wire"
)

// handleClientSession serves one Client Session: a sequence of
// (request, response) turns on conn until the client closes, per spec.md
// §4.6. firstOp is the op-code already read by handleConn to classify the
// channel; every subsequent turn reads its own op-code off the wire.
func (n *Node) handleClientSession(conn net.Conn, wc *wire.Conn, firstOp model.OpType) {
	op := firstOp
	for {
		if !n.serveClientTurn(wc, op) {
			return
		}
		next, err := wc.ReadOpType()
		if err != nil {
			return // clean EOF or I/O error: client closed or errored out
		}
		op = next
	}
}

// serveClientTurn performs exactly one client request/response turn.
// Returns false if the session should be terminated (role no longer valid,
// or a transport error occurred).
func (n *Node) serveClientTurn(wc *wire.Conn, op model.OpType) bool {
	role := n.Role()
	if role != model.RolePrimary && role != model.RolePromoted {
		return false
	}

	switch op {
	case model.CREATE_TASK:
		return n.serveCreate(wc)
	case model.UPDATE_TASK:
		return n.serveUpdate(wc)
	case model.MOVE_TASK:
		return n.serveMove(wc)
	case model.DELETE_TASK:
		return n.serveDelete(wc)
	case model.GET_BOARD:
		return n.serveGetBoard(wc)
	default:
		return false
	}
}

func now() int64 { return time.Now().UnixMilli() }

func (n *Node) serveCreate(wc *wire.Conn) bool {
	task, err := wc.ReadTask()
	if err != nil {
		return false
	}

	clientID := task.ClientID
	id := n.Store.Create(task.Title, task.Description, task.BoardID, task.CreatedBy, task.Column, clientID, now())

	stamp := n.ClientClocks.Advance(clientID)
	entry := &model.LogEntry{
		EntryID:     n.Log.NextEntryID(),
		OpType:      model.CREATE,
		Timestamp:   stamp,
		TaskID:      id,
		Title:       task.Title,
		Description: task.Description,
		CreatedBy:   task.CreatedBy,
		Column:      task.Column,
		ClientID:    clientID,
	}
	n.Log.Append(entry)
	n.replicate(entry)

	resp := &model.OperationResponse{Success: true, UpdatedTaskID: id}
	return wc.WriteOperationResponse(resp) == nil
}

func (n *Node) serveUpdate(wc *wire.Conn) bool {
	task, err := wc.ReadTask()
	if err != nil {
		return false
	}

	stamp := n.ClientClocks.Advance(task.ClientID)
	resp := n.Store.Update(task.TaskID, task.Title, task.Description, stamp, now())

	if resp.Success && !resp.Rejected {
		entry := &model.LogEntry{
			EntryID:     n.Log.NextEntryID(),
			OpType:      model.UPDATE,
			Timestamp:   stamp,
			TaskID:      task.TaskID,
			Title:       task.Title,
			Description: task.Description,
			CreatedBy:   task.CreatedBy,
			Column:      task.Column,
			ClientID:    task.ClientID,
		}
		n.Log.Append(entry)
		n.replicate(entry)
	}

	return wc.WriteOperationResponse(resp) == nil
}

func (n *Node) serveMove(wc *wire.Conn) bool {
	task, err := wc.ReadTask()
	if err != nil {
		return false
	}

	stamp := n.ClientClocks.Advance(task.ClientID)
	resp := n.Store.Move(task.TaskID, task.Column, stamp, now())

	if resp.Success && !resp.Rejected {
		entry := &model.LogEntry{
			EntryID:   n.Log.NextEntryID(),
			OpType:    model.MOVE,
			Timestamp: stamp,
			TaskID:    task.TaskID,
			Column:    task.Column,
			ClientID:  task.ClientID,
		}
		n.Log.Append(entry)
		n.replicate(entry)
	}

	return wc.WriteOperationResponse(resp) == nil
}

// serveDelete replies with a bare success i32, not an OperationResponse —
// the "historical protocol quirk" preserved for wire compatibility per
// spec.md §9.
func (n *Node) serveDelete(wc *wire.Conn) bool {
	task, err := wc.ReadTask()
	if err != nil {
		return false
	}

	n.ClientClocks.Advance(task.ClientID)
	ok := n.Store.Delete(task.TaskID)

	if ok {
		entry := &model.LogEntry{
			EntryID:  n.Log.NextEntryID(),
			OpType:   model.DELETE,
			TaskID:   task.TaskID,
			ClientID: task.ClientID,
		}
		n.Log.Append(entry)
		n.replicate(entry)
	}

	return wc.WriteBool(ok) == nil
}

func (n *Node) serveGetBoard(wc *wire.Conn) bool {
	// GET_BOARD is a data op like any other: the client still sends a Task
	// envelope (required but unused), which must be read off the wire before
	// replying or the next turn's op-code desyncs.
	if _, err := wc.ReadTask(); err != nil {
		return false
	}
	tasks := n.Store.ListAll()
	return wc.WriteTaskList(tasks) == nil
}

// replicate forwards a committed mutation to the Backup, if this node is
// Primary and a replication session is established. Failure here never
// fails the client's operation — spec.md §7 requires the mutation to stand
// locally regardless of replication outcome; instead the session is torn
// down and the heartbeat loop takes over reconnection.
func (n *Node) replicate(entry *model.LogEntry) {
	n.mu.Lock()
	role := n.role
	repl := n.repl
	n.mu.Unlock()

	if role != model.RolePrimary || repl == nil {
		return
	}

	if err := repl.SendMutation(entry); err != nil {
		n.log.Warningf("replication send failed, dropping session: %v", err)
		n.mu.Lock()
		if n.repl == repl {
			n.repl.Close()
			n.repl = nil
		}
		n.mu.Unlock()
	}
}
