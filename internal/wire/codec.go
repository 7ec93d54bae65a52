// Package wire implements the length-framed, big-endian binary protocol used
// for both client traffic and replication traffic. All multi-byte integers
// are network byte order; variable-sized payloads are (size:i32, bytes);
// strings are (length:i32, utf8 bytes); booleans are i32 (0/nonzero).
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/taskboard/replicore/internal/model"
	"github.com/taskboard/replicore/internal/vclock"
)

// ErrKind classifies a codec-level failure. The codec never panics across
// the component boundary; every failure comes back as an *Error.
type ErrKind int

const (
	KindTransport ErrKind = iota
	KindTruncated
	KindInvalidEnum
)

// Error is the structured error the codec returns on EOF, truncation, or an
// out-of-range enum value.
type Error struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("wire: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(kind ErrKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Conn wraps a byte-stream channel (an ordered, reliable, bidirectional
// connection with explicit close, e.g. net.Conn) with full-read/full-write
// framing primitives. A read that hits EOF before the requested count is
// treated as a terminal error for the channel (KindTruncated), per
// spec.md §4.1.
type Conn struct {
	rw io.ReadWriter
}

// NewConn wraps rw for framed reads/writes.
func NewConn(rw io.ReadWriter) *Conn { return &Conn{rw: rw} }

func (c *Conn) readFull(buf []byte) error {
	_, err := io.ReadFull(c.rw, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return wrapErr(KindTruncated, "readFull", err)
		}
		return wrapErr(KindTransport, "readFull", err)
	}
	return nil
}

func (c *Conn) writeFull(buf []byte) error {
	n, err := c.rw.Write(buf)
	if err != nil {
		return wrapErr(KindTransport, "writeFull", err)
	}
	if n != len(buf) {
		return wrapErr(KindTransport, "writeFull", io.ErrShortWrite)
	}
	return nil
}

// --- primitive scalars ---

func (c *Conn) ReadInt32() (int32, error) {
	var buf [4]byte
	if err := c.readFull(buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func (c *Conn) WriteInt32(v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	return c.writeFull(buf[:])
}

func (c *Conn) ReadInt64() (int64, error) {
	var buf [8]byte
	if err := c.readFull(buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func (c *Conn) WriteInt64(v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return c.writeFull(buf[:])
}

func (c *Conn) ReadBool() (bool, error) {
	v, err := c.ReadInt32()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (c *Conn) WriteBool(v bool) error {
	if v {
		return c.WriteInt32(1)
	}
	return c.WriteInt32(0)
}

func (c *Conn) ReadString() (string, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", wrapErr(KindInvalidEnum, "ReadString", fmt.Errorf("negative length %d", n))
	}
	buf := make([]byte, n)
	if n > 0 {
		if err := c.readFull(buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}

func (c *Conn) WriteString(s string) error {
	if err := c.WriteInt32(int32(len(s))); err != nil {
		return err
	}
	return c.writeFull([]byte(s))
}

// --- op code ---

func (c *Conn) ReadOpType() (model.OpType, error) {
	v, err := c.ReadInt32()
	if err != nil {
		return 0, err
	}
	op := model.OpType(v)
	if !op.Valid() {
		return 0, wrapErr(KindInvalidEnum, "ReadOpType", fmt.Errorf("unknown op-code %d", v))
	}
	return op, nil
}

func (c *Conn) WriteOpType(op model.OpType) error {
	return c.WriteInt32(int32(op))
}

// --- vector clock: (count:i32, then count x (pid:i32, value:i32)) ---

func (c *Conn) ReadClock(owner int32) (*vclock.Clock, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, wrapErr(KindInvalidEnum, "ReadClock", fmt.Errorf("negative count %d", n))
	}
	entries := make(map[int32]int32, n)
	for i := int32(0); i < n; i++ {
		pid, err := c.ReadInt32()
		if err != nil {
			return nil, err
		}
		val, err := c.ReadInt32()
		if err != nil {
			return nil, err
		}
		entries[pid] = val
	}
	return vclock.FromEntries(owner, entries), nil
}

func (c *Conn) WriteClock(clock *vclock.Clock) error {
	entries := clock.Entries()
	if err := c.WriteInt32(int32(len(entries))); err != nil {
		return err
	}
	for pid, val := range entries {
		if err := c.WriteInt32(pid); err != nil {
			return err
		}
		if err := c.WriteInt32(val); err != nil {
			return err
		}
	}
	return nil
}

// --- Task: task_id, title, description, board_id, created_by, column,
// client_id, created_at, updated_at, clock ---

func (c *Conn) readTaskBody() (*model.Task, error) {
	t := &model.Task{}
	var err error
	if t.TaskID, err = c.ReadInt32(); err != nil {
		return nil, err
	}
	if t.Title, err = c.ReadString(); err != nil {
		return nil, err
	}
	if t.Description, err = c.ReadString(); err != nil {
		return nil, err
	}
	if t.BoardID, err = c.ReadString(); err != nil {
		return nil, err
	}
	if t.CreatedBy, err = c.ReadString(); err != nil {
		return nil, err
	}
	col, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	t.Column = model.Column(col)
	if t.ClientID, err = c.ReadInt32(); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = c.ReadInt64(); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = c.ReadInt64(); err != nil {
		return nil, err
	}
	t.Clock, err = c.ReadClock(t.ClientID)
	return t, err
}

func (c *Conn) writeTaskBody(t *model.Task) error {
	if err := c.WriteInt32(t.TaskID); err != nil {
		return err
	}
	if err := c.WriteString(t.Title); err != nil {
		return err
	}
	if err := c.WriteString(t.Description); err != nil {
		return err
	}
	if err := c.WriteString(t.BoardID); err != nil {
		return err
	}
	if err := c.WriteString(t.CreatedBy); err != nil {
		return err
	}
	if err := c.WriteInt32(int32(t.Column)); err != nil {
		return err
	}
	if err := c.WriteInt32(t.ClientID); err != nil {
		return err
	}
	if err := c.WriteInt64(t.CreatedAt); err != nil {
		return err
	}
	if err := c.WriteInt64(t.UpdatedAt); err != nil {
		return err
	}
	clock := t.Clock
	if clock == nil {
		clock = vclock.New(t.ClientID)
	}
	return c.WriteClock(clock)
}

// ReadTask reads a size-prefixed Task envelope.
func (c *Conn) ReadTask() (*model.Task, error) {
	bts, err := c.readSizedBytes()
	if err != nil {
		return nil, err
	}
	sub := NewConn(&byteRW{b: bts})
	return sub.readTaskBody()
}

// WriteTask writes a size-prefixed Task envelope.
func (c *Conn) WriteTask(t *model.Task) error {
	bts, err := c.marshalTaskBody(t)
	if err != nil {
		return err
	}
	return c.writeSizedBytes(bts)
}

// --- LogEntry: entry_id, op_type, task_id, title, description, created_by,
// column, client_id, timestamp (timestamp trails, unlike Task) ---

func (c *Conn) readLogEntryBody() (*model.LogEntry, error) {
	e := &model.LogEntry{}
	var err error
	if e.EntryID, err = c.ReadInt32(); err != nil {
		return nil, err
	}
	op, err := c.ReadOpType()
	if err != nil {
		return nil, err
	}
	e.OpType = op
	if e.TaskID, err = c.ReadInt32(); err != nil {
		return nil, err
	}
	if e.Title, err = c.ReadString(); err != nil {
		return nil, err
	}
	if e.Description, err = c.ReadString(); err != nil {
		return nil, err
	}
	if e.CreatedBy, err = c.ReadString(); err != nil {
		return nil, err
	}
	col, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	e.Column = model.Column(col)
	if e.ClientID, err = c.ReadInt32(); err != nil {
		return nil, err
	}
	e.Timestamp, err = c.ReadClock(e.ClientID)
	return e, err
}

func (c *Conn) writeLogEntryBody(e *model.LogEntry) error {
	if err := c.WriteInt32(e.EntryID); err != nil {
		return err
	}
	if err := c.WriteOpType(e.OpType); err != nil {
		return err
	}
	if err := c.WriteInt32(e.TaskID); err != nil {
		return err
	}
	if err := c.WriteString(e.Title); err != nil {
		return err
	}
	if err := c.WriteString(e.Description); err != nil {
		return err
	}
	if err := c.WriteString(e.CreatedBy); err != nil {
		return err
	}
	if err := c.WriteInt32(int32(e.Column)); err != nil {
		return err
	}
	if err := c.WriteInt32(e.ClientID); err != nil {
		return err
	}
	ts := e.Timestamp
	if ts == nil {
		ts = vclock.New(e.ClientID)
	}
	return c.WriteClock(ts)
}

// ReadLogEntry reads a size-prefixed LogEntry envelope.
func (c *Conn) ReadLogEntry() (*model.LogEntry, error) {
	bts, err := c.readSizedBytes()
	if err != nil {
		return nil, err
	}
	sub := NewConn(&byteRW{b: bts})
	return sub.readLogEntryBody()
}

// WriteLogEntry writes a size-prefixed LogEntry envelope.
func (c *Conn) WriteLogEntry(e *model.LogEntry) error {
	bts, err := c.marshalLogEntryBody(e)
	if err != nil {
		return err
	}
	return c.writeSizedBytes(bts)
}

// --- lists ---

// ReadTaskList reads (count:i32, then each Task size-prefixed).
func (c *Conn) ReadTaskList() ([]*model.Task, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, wrapErr(KindInvalidEnum, "ReadTaskList", fmt.Errorf("negative count %d", n))
	}
	out := make([]*model.Task, 0, n)
	for i := int32(0); i < n; i++ {
		t, err := c.ReadTask()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// WriteTaskList writes (count:i32, then each Task size-prefixed).
func (c *Conn) WriteTaskList(tasks []*model.Task) error {
	if err := c.WriteInt32(int32(len(tasks))); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := c.WriteTask(t); err != nil {
			return err
		}
	}
	return nil
}

// ReadLogEntryList reads (count:i32, then each LogEntry size-prefixed).
func (c *Conn) ReadLogEntryList() ([]*model.LogEntry, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, wrapErr(KindInvalidEnum, "ReadLogEntryList", fmt.Errorf("negative count %d", n))
	}
	out := make([]*model.LogEntry, 0, n)
	for i := int32(0); i < n; i++ {
		e, err := c.ReadLogEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// WriteLogEntryList writes (count:i32, then each LogEntry size-prefixed).
func (c *Conn) WriteLogEntryList(entries []*model.LogEntry) error {
	if err := c.WriteInt32(int32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := c.WriteLogEntry(e); err != nil {
			return err
		}
	}
	return nil
}

// --- OperationResponse: four consecutive i32, no outer framing ---

func (c *Conn) ReadOperationResponse() (*model.OperationResponse, error) {
	resp := &model.OperationResponse{}
	success, err := c.ReadBool()
	if err != nil {
		return nil, err
	}
	resp.Success = success
	conflict, err := c.ReadBool()
	if err != nil {
		return nil, err
	}
	resp.Conflict = conflict
	rejected, err := c.ReadBool()
	if err != nil {
		return nil, err
	}
	resp.Rejected = rejected
	id, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	resp.UpdatedTaskID = id
	return resp, nil
}

func (c *Conn) WriteOperationResponse(resp *model.OperationResponse) error {
	if err := c.WriteBool(resp.Success); err != nil {
		return err
	}
	if err := c.WriteBool(resp.Conflict); err != nil {
		return err
	}
	if err := c.WriteBool(resp.Rejected); err != nil {
		return err
	}
	return c.WriteInt32(resp.UpdatedTaskID)
}

// --- size-prefixed byte blobs, used by Task/LogEntry envelopes ---

func (c *Conn) readSizedBytes() ([]byte, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, wrapErr(KindInvalidEnum, "readSizedBytes", fmt.Errorf("negative size %d", n))
	}
	buf := make([]byte, n)
	if n > 0 {
		if err := c.readFull(buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (c *Conn) writeSizedBytes(bts []byte) error {
	if err := c.WriteInt32(int32(len(bts))); err != nil {
		return err
	}
	return c.writeFull(bts)
}

func (c *Conn) marshalTaskBody(t *model.Task) ([]byte, error) {
	buf := &byteRW{}
	sub := NewConn(buf)
	if err := sub.writeTaskBody(t); err != nil {
		return nil, err
	}
	return buf.b, nil
}

func (c *Conn) marshalLogEntryBody(e *model.LogEntry) ([]byte, error) {
	buf := &byteRW{}
	sub := NewConn(buf)
	if err := sub.writeLogEntryBody(e); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// byteRW is a minimal in-memory ReadWriter used to marshal/unmarshal a
// framed sub-payload with the same Conn primitives used on the wire.
type byteRW struct {
	b   []byte
	off int
}

func (r *byteRW) Read(p []byte) (int, error) {
	if r.off >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.off:])
	r.off += n
	return n, nil
}

func (r *byteRW) Write(p []byte) (int, error) {
	r.b = append(r.b, p...)
	return len(p), nil
}
