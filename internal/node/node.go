// Package node implements the Role Controller: the state machine that owns
// the listener, dispatches accepted channels to a Client Session or
// Replication Session handler based on their first op-code, and drives the
// Primary's heartbeat loop. It is grounded in the teacher's rafthttp.Transport
// (peer bookkeeping under one lock) and raft-example's CLI/signal wiring,
// adapted from an HTTP multi-peer transport to a single raw-TCP peer.
package node

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/taskboard/replicore/internal/clientclock"
	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/oplog"
	"github.com/taskboard/replicore/internal/replication"
	"github.com/taskboard/replicore/internal/store"
	"github.com/taskboard/replicore/internal/xlog"
)

var logger = xlog.NewLogger("node")

// DefaultHeartbeatInterval is the Primary's default heartbeat period,
// per spec.md §4.4.
const DefaultHeartbeatInterval = 5 * time.Second

// Node owns every component of one replica: Task Store, Operation Log,
// per-client clock map, role state, and (on the Primary) the single
// Replication Session — the "single owned Node value" shape spec.md §9
// calls for in place of the source's process-wide globals.
type Node struct {
	NodeID int32

	Store        *store.Store
	Log          *oplog.Log
	ClientClocks *clientclock.Map

	// PeerAddr is the Backup's address (when this Node is configured as
	// Primary) or the Primary's address (when configured as Backup). Empty
	// disables replication (the two-argument Primary CLI form).
	PeerAddr string

	HeartbeatInterval time.Duration

	log *xlog.Logger // stamped "node=<NodeID>"; see xlog.Logger.With

	mu    sync.Mutex
	role  model.Role
	repl  *replication.Session // Primary-side outbound session; nil if none
	ln    net.Listener
	stopc chan struct{}
	donec chan struct{}
	wg    sync.WaitGroup
}

// NewPrimary returns a Node configured as Primary. peerAddr may be empty to
// disable replication.
func NewPrimary(nodeID int32, peerAddr string) *Node {
	return &Node{
		NodeID:            nodeID,
		Store:             store.New(),
		Log:               oplog.New(),
		ClientClocks:      clientclock.New(),
		PeerAddr:          peerAddr,
		HeartbeatInterval: DefaultHeartbeatInterval,
		role:              model.RoleRejoining,
		log:               logger.With(fmt.Sprintf("node=%d", nodeID)),
	}
}

// NewBackup returns a Node configured as Backup, tracking primaryAddr for
// its one-shot startup catchup.
func NewBackup(nodeID int32, primaryAddr string) *Node {
	return &Node{
		NodeID:            nodeID,
		Store:             store.New(),
		Log:               oplog.New(),
		ClientClocks:      clientclock.New(),
		PeerAddr:          primaryAddr,
		HeartbeatInterval: DefaultHeartbeatInterval,
		role:              model.RoleBackup,
		log:               logger.With(fmt.Sprintf("node=%d", nodeID)),
	}
}

// Role returns the current role under lock.
func (n *Node) Role() model.Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

func (n *Node) setRole(r model.Role) {
	n.mu.Lock()
	n.role = r
	n.mu.Unlock()
}

// Run binds listenAddr, performs the node's startup handshake (rejoin for a
// Primary with a configured peer, catchup for a Backup with a configured
// peer), then serves the accept loop and — if Primary with a peer — the
// heartbeat loop, until Stop is called or the listener fails.
func (n *Node) Run(listenAddr string) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	n.ln = ln
	n.stopc = make(chan struct{})
	n.donec = make(chan struct{})

	n.startup()

	n.wg.Add(1)
	go n.acceptLoop()

	// Heartbeats are Primary-only (spec.md §4.4); a Backup never runs this loop.
	if n.isPrimaryRoleWithPeer() {
		n.wg.Add(1)
		go n.heartbeatLoop()
	}

	n.wg.Wait()
	close(n.donec)
	return nil
}

func (n *Node) isPrimaryRoleWithPeer() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return (n.role == model.RolePrimary) && n.PeerAddr != ""
}

// startup runs the initial-state handshake described in spec.md §4.4:
// a Primary attempts the rejoin handshake against a possibly-Promoted
// Backup; a Backup attempts a one-shot catchup against the Primary.
func (n *Node) startup() {
	switch n.Role() {
	case model.RoleRejoining:
		if n.PeerAddr != "" {
			n.doRejoin(n.PeerAddr)
		}
		n.setRole(model.RolePrimary)
		n.log.Infof("is now Primary")
		if n.PeerAddr != "" {
			n.reconnectReplication()
		}
	case model.RoleBackup:
		if n.PeerAddr != "" {
			n.doCatchup(n.PeerAddr)
		}
	}
}

// Stop closes the listener (unblocking the accept loop), stops the
// heartbeat loop, and closes the replication session, per spec.md §5
// "Cancellation and timeouts".
func (n *Node) Stop() {
	n.mu.Lock()
	if n.repl != nil {
		n.repl.Close()
		n.repl = nil
	}
	n.mu.Unlock()

	if n.stopc != nil {
		select {
		case <-n.stopc:
		default:
			close(n.stopc)
		}
	}
	if n.ln != nil {
		n.ln.Close()
	}
}

func (n *Node) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.ln.Accept()
		if err != nil {
			select {
			case <-n.stopc:
				return
			default:
				n.log.Warningf("accept error: %v", err)
				return
			}
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.handleConn(conn)
		}()
	}
}
