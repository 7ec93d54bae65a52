// Package replication implements the Primary's outbound Replication
// Session to its Backup: the single long-lived duplex channel carrying the
// init handshake, the steady-state op-stream, and interleaved heartbeats.
// It is grounded in the teacher's rafthttp.streamWriter — one goroutine-safe
// writer, strict FIFO per channel, a status latch — adapted from an
// HTTP/multi-peer stream to a single raw TCP duplex connection.
package replication

import (
	"errors"
	"net"
	"sync"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/wire"
	"github.com/taskboard/replicore/internal/xlog"
)

var logger = xlog.NewLogger("replication")

// ErrRejected is returned by Dial when the peer replies to REPLICATION_INIT
// with a rejection — the peer believes itself Promoted and the caller must
// fall back to the rejoin handshake (MASTER_REJOIN) on a fresh connection.
var ErrRejected = errors.New("replication: peer rejected REPLICATION_INIT (peer is promoted)")

// Session is the single outbound Replication Session from Primary to
// Backup. All methods are safe for concurrent use; the internal mutex
// serializes mutation-sends, heartbeats, and the connection's single
// outbound stream so framing is never interleaved (spec.md §5).
type Session struct {
	mu   sync.Mutex
	conn net.Conn
	wc   *wire.Conn
}

// Dial opens a TCP connection to addr and performs the REPLICATION_INIT
// handshake. It returns ErrRejected if the peer is Promoted.
func Dial(addr string) (*Session, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	wc := wire.NewConn(conn)
	if err := wc.WriteOpType(model.REPLICATION_INIT); err != nil {
		conn.Close()
		return nil, err
	}
	accepted, err := wc.ReadBool()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !accepted {
		conn.Close()
		return nil, ErrRejected
	}

	logger.Infof("established replication session to %s", addr)
	return &Session{conn: conn, wc: wc}, nil
}

// SendMutation sends one committed LogEntry down the session and waits for
// the Backup's ack, per the steady-state protocol in spec.md §4.5. Callers
// must not call SendMutation for entry n+1 until this call returns for n —
// the session itself serializes concurrent callers with its own mutex, but
// ordering across entries is still the caller's responsibility.
func (s *Session) SendMutation(entry *model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wc.WriteOpType(entry.OpType); err != nil {
		return err
	}
	if err := s.wc.WriteLogEntry(entry); err != nil {
		return err
	}
	_, err := s.wc.ReadBool()
	return err
}

// SendHeartbeat sends HEARTBEAT_PING and waits for the ack. The Primary's
// heartbeat loop calls this; it must never be called concurrently with a
// SendMutation for the "not in the middle of a mutation" rule in spec.md
// §4.5 — the shared mutex enforces this mechanically.
func (s *Session) SendHeartbeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wc.WriteOpType(model.HEARTBEAT_PING); err != nil {
		return err
	}
	_, err := s.wc.ReadBool()
	return err
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
