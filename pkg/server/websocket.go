package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vtree/pkg/protocol"
)

// ServeHTTP upgrades the request to a WebSocket, performs the handshake,
// attaches the renderer and runs its read loop until the connection ends.
func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, ErrHostClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(h.cfg.MaxMessageSize)

	c := newConn(ws, h.cfg.WriteTimeout, h.logger, h.metrics)
	lastSeq, err := h.handshake(c)
	if err != nil {
		c.logger.Warn("handshake failed", "error", err)
		c.close(protocol.CloseError, "handshake failed")
		return
	}
	if err := h.attach(c, lastSeq); err != nil {
		c.logger.Warn("attach failed", "error", err)
		c.close(protocol.CloseServerShutdown, err.Error())
		return
	}

	h.metrics.connected(1)
	defer h.metrics.connected(-1)
	c.logger.Info("renderer attached", "last_seq", lastSeq)

	if h.cfg.HeartbeatInterval > 0 {
		go h.heartbeat(c)
	}
	h.readLoop(c)
	h.detach(c)
	c.logger.Info("renderer detached")
}

// handshake reads the ClientHello and answers with a ServerHello.
// It returns the last sequence the renderer applied.
func (h *Host) handshake(c *conn) (uint64, error) {
	if err := c.ws.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout)); err != nil {
		return 0, err
	}
	_, msg, err := c.ws.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}

	reject := func(status protocol.HandshakeStatus, cause error) (uint64, error) {
		_ = c.send(protocol.FrameHello, 0, protocol.EncodeServerHello(protocol.NewServerHelloError(status)))
		return 0, fmt.Errorf("%w: %v", ErrInvalidHandshake, cause)
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return reject(protocol.HandshakeInvalidFormat, err)
	}
	if frame.Type != protocol.FrameHello {
		return reject(protocol.HandshakeInvalidFormat, fmt.Errorf("expected %s frame, got %s", protocol.FrameHello, frame.Type))
	}
	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		return reject(protocol.HandshakeInvalidFormat, err)
	}
	if !hello.Version.Compatible() {
		return reject(protocol.HandshakeVersionMismatch,
			fmt.Errorf("version %d.%d", hello.Version.Major, hello.Version.Minor))
	}
	if h.isClosed() {
		return reject(protocol.HandshakeServerBusy, ErrHostClosed)
	}

	sh := &protocol.ServerHello{
		Status:     protocol.HandshakeOK,
		Root:       h.dom.Root(),
		NextSeq:    h.Seq() + 1,
		ServerTime: uint64(time.Now().UnixMilli()),
	}
	if err := c.send(protocol.FrameHello, 0, protocol.EncodeServerHello(sh)); err != nil {
		return 0, err
	}
	return hello.LastSeq, nil
}

// readLoop decodes frames from the renderer until the connection closes.
func (h *Host) readLoop(c *conn) {
	for {
		if err := c.ws.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
			return
		}
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if !c.isClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			c.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			h.handleEvent(c, frame.Payload)
		case protocol.FrameControl:
			if !h.handleControl(c, frame.Payload) {
				return
			}
		case protocol.FrameAck:
			ack, err := protocol.DecodeAck(frame.Payload)
			if err != nil {
				c.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
				continue
			}
			h.history.Trim(ack.LastSeq)
		default:
			c.logger.Debug("unexpected frame", "type", frame.Type)
		}
	}
}

func (h *Host) handleEvent(c *conn, payload []byte) {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		h.metrics.event("malformed")
		c.sendError(protocol.NewError(protocol.ErrMalformedEvent, err.Error()))
		return
	}
	if err := h.enqueue(inbound{ev: ev.VDOM(), from: c}); err != nil {
		c.sendError(protocol.NewError(errorCode(err), err.Error()))
	}
}

// handleControl processes a control frame. It returns false when the
// connection should end.
func (h *Host) handleControl(c *conn, payload []byte) bool {
	ctrl, err := protocol.DecodeControl(payload)
	if err != nil {
		c.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
		return true
	}

	switch ctrl.Type {
	case protocol.ControlPing:
		if err := c.sendControl(protocol.NewPong(ctrl.Timestamp)); err != nil {
			c.logger.Debug("pong not delivered", "error", err)
		}
	case protocol.ControlPong:
	case protocol.ControlResyncRequest:
		if err := h.resync(c, ctrl.Seq); err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				return false
			}
			c.logger.Warn("resync failed", "last_seq", ctrl.Seq, "error", err)
		}
	case protocol.ControlClose:
		c.logger.Debug("renderer closed", "reason", ctrl.Reason, "message", ctrl.Message)
		return false
	default:
		c.logger.Debug("unexpected control", "type", ctrl.Type)
	}
	return true
}

// heartbeat pings the renderer until the connection ends.
func (h *Host) heartbeat(c *conn) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-h.done:
			return
		case t := <-ticker.C:
			if err := c.sendControl(protocol.NewPing(uint64(t.UnixMilli()))); err != nil {
				return
			}
		}
	}
}
