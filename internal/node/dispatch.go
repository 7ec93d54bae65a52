package node

import (
	"net"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/wire"
)

// handleConn classifies an accepted channel by its first op-code, per
// spec.md §4.4 "Acceptor dispatch", and dispatches it to the matching
// handler. Invalid op-code/role combinations are rejected and the channel
// is closed.
func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()
	wc := wire.NewConn(conn)

	op, err := wc.ReadOpType()
	if err != nil {
		return
	}

	switch op {
	case model.REPLICATION_INIT:
		n.handleReplicationInit(conn, wc)
	case model.MASTER_REJOIN:
		n.handleMasterRejoin(wc)
	case model.STATE_TRANSFER_REQUEST:
		n.handleStateTransferRequest(wc)
	case model.CREATE_TASK, model.UPDATE_TASK, model.MOVE_TASK, model.DELETE_TASK, model.GET_BOARD:
		role := n.Role()
		if role != model.RolePrimary && role != model.RolePromoted {
			return // invalid in Backup/Rejoining: reject and close
		}
		n.handleClientSession(conn, wc, op)
	default:
		// HEARTBEAT_PING/ACK, DEMOTE_ACK and STATE_TRANSFER_RESPONSE never
		// arrive as the first op-code of an independently accepted channel;
		// they only occur inside the Replication Session loops above.
		return
	}
}
