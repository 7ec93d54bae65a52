package node

import (
	"net"
	"time"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/replication"
	"github.com/taskboard/replicore/internal/wire"
)

// doRejoin is the Primary's side of the rejoin handshake (spec.md §4.5),
// run once at startup while the node's role is Rejoining, and again
// whenever the heartbeat loop discovers the Backup has promoted itself. A
// closed connection with no state-transfer payload means the peer refused
// the handshake — it never promoted — and the caller proceeds with its own
// (possibly empty) state, per spec.md §4.4.
func (n *Node) doRejoin(addr string) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		n.log.Infof("rejoin: could not reach %s (%v); proceeding with local state", addr, err)
		return
	}
	defer conn.Close()

	wc := wire.NewConn(conn)
	if err := wc.WriteOpType(model.MASTER_REJOIN); err != nil {
		return
	}

	op, err := wc.ReadOpType()
	if err != nil {
		n.log.Infof("rejoin: %s refused the handshake; it never promoted", addr)
		return
	}
	if op != model.STATE_TRANSFER_RESPONSE {
		return
	}

	st, err := wc.ReadStateTransfer()
	if err != nil {
		n.log.Warningf("rejoin: failed to read state transfer from %s: %v", addr, err)
		return
	}
	n.installStateTransfer(st)

	if err := wc.WriteOpType(model.DEMOTE_ACK); err != nil {
		return
	}
	n.log.Infof("rejoin: adopted state from %s (%d tasks, %d log entries)", addr, len(st.Tasks), len(st.Log))
}

// doCatchup is the Backup's one-shot startup catchup against a live
// Primary (spec.md §4.4 "Initial state"). Any failure falls back silently
// to an empty Backup.
func (n *Node) doCatchup(addr string) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		n.log.Infof("catchup: could not reach %s (%v); starting empty", addr, err)
		return
	}
	defer conn.Close()

	wc := wire.NewConn(conn)
	if err := wc.WriteOpType(model.STATE_TRANSFER_REQUEST); err != nil {
		return
	}

	op, err := wc.ReadOpType()
	if err != nil || op != model.STATE_TRANSFER_RESPONSE {
		n.log.Infof("catchup: %s refused state transfer; starting empty", addr)
		return
	}

	st, err := wc.ReadStateTransfer()
	if err != nil {
		n.log.Warningf("catchup: failed to read state transfer from %s: %v", addr, err)
		return
	}
	n.installStateTransfer(st)
	n.log.Infof("catchup: installed state from %s (%d tasks, %d log entries)", addr, len(st.Tasks), len(st.Log))
}

// installStateTransfer replaces this node's store and log with the
// received snapshot, adopting the sender's id-space, per spec.md §4.3.
func (n *Node) installStateTransfer(st *wire.StateTransfer) {
	n.Store.ClearAll()
	for _, t := range st.Tasks {
		n.Store.AddDirect(t)
	}
	n.Store.SetIDCounter(st.IDCounter)
	n.Log.Replace(st.Log)
}

// heartbeatLoop is the Primary's dedicated timer goroutine (spec.md §4.4).
// It periodically pings the Replication Session; any failure drops the
// session and the next tick attempts reconnection (REPLICATION_INIT, or a
// full rejoin handshake if the Backup has promoted itself in the interim).
func (n *Node) heartbeatLoop() {
	defer n.wg.Done()

	interval := n.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopc:
			return
		case <-ticker.C:
			n.heartbeatTick()
		}
	}
}

func (n *Node) heartbeatTick() {
	n.mu.Lock()
	repl := n.repl
	n.mu.Unlock()

	if repl == nil {
		n.reconnectReplication()
		return
	}

	if err := repl.SendHeartbeat(); err != nil {
		n.log.Warningf("heartbeat failed: %v; dropping replication session", err)
		n.mu.Lock()
		if n.repl == repl {
			n.repl.Close()
			n.repl = nil
		}
		n.mu.Unlock()
	}
}

// reconnectReplication attempts to (re)establish the Replication Session.
// If the Backup rejects REPLICATION_INIT (it is Promoted), this runs the
// full rejoin handshake before retrying — the scenario where the Backup
// promoted itself while the Primary was still otherwise live.
func (n *Node) reconnectReplication() {
	sess, err := replication.Dial(n.PeerAddr)
	if err == replication.ErrRejected {
		n.log.Warningf("backup %s is promoted; running rejoin handshake", n.PeerAddr)
		n.setRole(model.RoleRejoining)
		n.doRejoin(n.PeerAddr)
		n.setRole(model.RolePrimary)
		sess, err = replication.Dial(n.PeerAddr)
	}
	if err != nil {
		return // stays disconnected; next heartbeat tick retries
	}

	n.mu.Lock()
	n.repl = sess
	n.mu.Unlock()
}
