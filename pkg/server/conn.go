package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/vtree/pkg/protocol"
)

// conn is one renderer connection. Writes are serialized; gorilla/websocket
// allows a single concurrent writer.
type conn struct {
	ws           *websocket.Conn
	id           string
	remote       string
	writeTimeout time.Duration
	logger       *slog.Logger
	metrics      *HostMetrics

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration, logger *slog.Logger, metrics *HostMetrics) *conn {
	remote := ws.RemoteAddr().String()
	id := uuid.NewString()
	return &conn{
		ws:           ws,
		id:           id,
		remote:       remote,
		writeTimeout: writeTimeout,
		logger:       logger.With("conn", id, "remote", remote),
		metrics:      metrics,
		done:         make(chan struct{}),
	}
}

// write sends an encoded frame.
func (c *conn) write(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	if err := c.writeLocked(frame); err != nil {
		return &ConnError{Remote: c.remote, Op: "write", Err: err}
	}
	return nil
}

func (c *conn) writeLocked(frame []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return err
	}
	if len(frame) > 0 {
		c.metrics.frameSent(protocol.FrameType(frame[0]).String(), len(frame))
	}
	return nil
}

// send encodes and writes a frame.
func (c *conn) send(ft protocol.FrameType, flags protocol.FrameFlags, payload []byte) error {
	f := &protocol.Frame{Type: ft, Flags: flags, Payload: payload}
	return c.write(f.Encode())
}

func (c *conn) sendControl(ctrl *protocol.Control) error {
	return c.send(protocol.FrameControl, 0, protocol.EncodeControl(ctrl))
}

func (c *conn) sendError(em *protocol.ErrorMessage) {
	if err := c.send(protocol.FrameError, 0, protocol.EncodeErrorMessage(em)); err != nil {
		c.logger.Debug("error frame not delivered", "code", em.Code, "error", err)
	}
}

// close sends a best-effort Close control and closes the socket. It is
// safe to call more than once.
func (c *conn) close(reason protocol.CloseReason, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)

	ctrl := (&protocol.Frame{
		Type:    protocol.FrameControl,
		Payload: protocol.EncodeControl(protocol.NewClose(reason, message)),
	}).Encode()
	_ = c.writeLocked(ctrl)
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason.String()),
		time.Now().Add(time.Second),
	)
	_ = c.ws.Close()
}

func (c *conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
