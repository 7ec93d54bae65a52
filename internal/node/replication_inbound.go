package node

import (
	"net"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/oplog"
	"github.com/taskboard/replicore/internal/wire"
)

// handleReplicationInit serves the Primary's REPLICATION_INIT handshake.
// Only valid when this node is Backup; a Promoted node rejects so the
// rejoining Primary falls back to MASTER_REJOIN (spec.md §4.4, scenario S5).
func (n *Node) handleReplicationInit(conn net.Conn, wc *wire.Conn) {
	if n.Role() != model.RoleBackup {
		wc.WriteBool(false)
		return
	}
	if err := wc.WriteBool(true); err != nil {
		return
	}

	n.log.Infof("accepted replication session")
	n.runReplicationReceiveLoop(wc)
}

// runReplicationReceiveLoop is the Backup's side of the steady-state
// protocol in spec.md §4.5: it reads op_type, applies a mutation or acks a
// heartbeat, until any I/O failure — at which point it promotes itself.
func (n *Node) runReplicationReceiveLoop(wc *wire.Conn) {
	for {
		op, err := wc.ReadOpType()
		if err != nil {
			n.promoteSelf()
			return
		}

		if op == model.HEARTBEAT_PING {
			if err := wc.WriteBool(true); err != nil {
				n.promoteSelf()
				return
			}
			continue
		}

		entry, err := wc.ReadLogEntry()
		if err != nil {
			n.promoteSelf()
			return
		}
		n.Log.Append(entry)
		oplog.Replay(n.Store, []*model.LogEntry{entry})

		if err := wc.WriteBool(true); err != nil {
			n.promoteSelf()
			return
		}
	}
}

// promoteSelf latches Backup -> Promoted. Promotion is latched and does not
// revert except via an explicit DEMOTE_ACK during a rejoin handshake.
func (n *Node) promoteSelf() {
	n.mu.Lock()
	if n.role == model.RoleBackup {
		n.role = model.RolePromoted
		n.log.Warningf("PROMOTING TO MASTER")
	}
	n.mu.Unlock()
}

// handleMasterRejoin serves a returning Primary's rejoin handshake, per
// spec.md §4.5. Only valid when this node is Promoted; a plain Backup
// refuses, signaling that it never promoted.
func (n *Node) handleMasterRejoin(wc *wire.Conn) {
	if n.Role() != model.RolePromoted {
		return // reject: close without payload
	}

	st := &wire.StateTransfer{
		IDCounter: n.Store.GetIDCounter(),
		Tasks:     n.Store.ListAll(),
		Log:       n.Log.Snapshot(),
	}
	if err := wc.WriteOpType(model.STATE_TRANSFER_RESPONSE); err != nil {
		return
	}
	if err := wc.WriteStateTransfer(st); err != nil {
		return
	}

	op, err := wc.ReadOpType()
	if err != nil || op != model.DEMOTE_ACK {
		return
	}

	n.mu.Lock()
	n.role = model.RoleBackup
	n.mu.Unlock()
	n.ClientClocks.Reset()
	n.log.Infof("latched Promoted -> Backup")
}

// handleStateTransferRequest serves a Backup's catchup request, per
// spec.md §4.5. Only valid when this node is Primary or Promoted.
func (n *Node) handleStateTransferRequest(wc *wire.Conn) {
	role := n.Role()
	if role != model.RolePrimary && role != model.RolePromoted {
		return // reject: close without payload
	}

	st := &wire.StateTransfer{
		IDCounter: n.Store.GetIDCounter(),
		Tasks:     n.Store.ListAll(),
		Log:       n.Log.Snapshot(),
	}
	if err := wc.WriteOpType(model.STATE_TRANSFER_RESPONSE); err != nil {
		return
	}
	wc.WriteStateTransfer(st)
}
