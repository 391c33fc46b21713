package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vtree/pkg/engine"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/render"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Recorder receives every published edit frame.
// Record runs on the driver goroutine.
type Recorder interface {
	Record(ctx context.Context, seq uint64, frame []byte) error
}

// HostOption configures a Host.
type HostOption func(*hostOptions)

type hostOptions struct {
	logger     *slog.Logger
	metrics    *HostMetrics
	recorders  []Recorder
	engineOpts []engine.Option
}

// WithHostLogger sets the logger. Default: slog.Default() with component=server.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(o *hostOptions) {
		o.logger = logger
	}
}

// WithHostMetrics records host activity into m.
func WithHostMetrics(m *HostMetrics) HostOption {
	return func(o *hostOptions) {
		o.metrics = m
	}
}

// WithRecorder forwards every published edit frame to r. Recorders run in
// the order they were added.
func WithRecorder(r Recorder) HostOption {
	return func(o *hostOptions) {
		o.recorders = append(o.recorders, r)
	}
}

// WithEngineOptions passes options through to the VirtualDom.
func WithEngineOptions(opts ...engine.Option) HostOption {
	return func(o *hostOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

type inbound struct {
	ev   vdom.Event
	from *conn
}

// Host drives one VirtualDom and streams its edits to a renderer.
type Host struct {
	cfg      *HostConfig
	dom      *engine.VirtualDom
	logger   *slog.Logger
	metrics   *HostMetrics
	recorders []Recorder
	upgrader  websocket.Upgrader

	// mu guards the mirror, the sequence counter and the attached
	// connection. Publishing and resync both hold it, so a renderer never
	// sees a live frame interleaved with a replay.
	mu      sync.Mutex
	doc     *render.Document
	seq     uint64
	history *EditHistory
	conn    *conn

	events    chan inbound
	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	started   atomic.Bool
	closeOnce sync.Once
}

// NewHost creates a host for root. The tree is not rendered until Start.
func NewHost(root vdom.Component, cfg *HostConfig, opts ...HostOption) *Host {
	cfg = cfg.withDefaults()
	o := hostOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "server")
	}

	h := &Host{
		cfg:       cfg,
		logger:    o.logger,
		metrics:   o.metrics,
		recorders: o.recorders,
		doc:       render.NewDocument(),
		history:   NewEditHistory(cfg.PatchHistory),
		events:    make(chan inbound, cfg.EventQueue),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	if cfg.CheckOrigin != nil {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return cfg.CheckOrigin(r.Header.Get("Origin"))
		}
	}

	engineOpts := append([]engine.Option{engine.WithDirtyNotify(h.signal)}, o.engineOpts...)
	h.dom = engine.New(root, engineOpts...)
	return h
}

// VirtualDom returns the hosted engine. Callers must not drive it directly
// while the host is running.
func (h *Host) VirtualDom() *engine.VirtualDom {
	return h.dom
}

// Start renders the initial tree and launches the driver goroutine. The
// driver stops when ctx is cancelled or Close is called.
func (h *Host) Start(ctx context.Context) error {
	if h.isClosed() {
		return ErrHostClosed
	}
	if !h.started.CompareAndSwap(false, true) {
		return ErrHostStarted
	}

	edits, err := h.dom.Rebuild(ctx)
	if err != nil {
		h.logger.Warn("initial render failed", "error", err)
	}
	h.publish(ctx, edits)

	go h.loop(ctx)
	h.logger.Info("host started", "root", h.dom.Root(), "seq", h.Seq())
	return nil
}

// Done is closed once the driver goroutine has exited.
func (h *Host) Done() <-chan struct{} {
	return h.stopped
}

// Close stops the driver, disconnects the renderer and unmounts the tree
// so cleanup hooks run. It is safe to call more than once.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		if h.started.Load() {
			<-h.stopped
		}

		h.mu.Lock()
		if h.conn != nil {
			h.conn.close(protocol.CloseServerShutdown, "host closed")
			h.conn = nil
		}
		h.mu.Unlock()

		if _, err := h.dom.Unmount(context.Background()); err != nil && !errors.Is(err, engine.ErrNotMounted) {
			h.logger.Warn("unmount failed", "error", err)
		}
		h.logger.Info("host closed", "seq", h.Seq())
	})
	return nil
}

func (h *Host) isClosed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Dispatch queues an event for the driver goroutine.
func (h *Host) Dispatch(ev vdom.Event) error {
	return h.enqueue(inbound{ev: ev})
}

func (h *Host) enqueue(in inbound) error {
	if h.isClosed() {
		return ErrHostClosed
	}
	select {
	case h.events <- in:
		return nil
	default:
		h.metrics.event("dropped")
		return ErrEventQueueFull
	}
}

// Seq returns the sequence number of the last published edit script.
func (h *Host) Seq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// HTML renders the mirror of the renderer's tree.
func (h *Host) HTML() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.HTML()
}

// History returns the replay ring.
func (h *Host) History() *EditHistory {
	return h.history
}

// signal wakes the driver. It never blocks.
func (h *Host) signal() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Host) loop(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case in := <-h.events:
			h.dispatch(in)
		case <-h.wake:
		}
		h.drive(ctx)
	}
}

func (h *Host) dispatch(in inbound) {
	err := h.dom.DispatchEvent(in.ev)
	if err == nil {
		h.metrics.event("ok")
		return
	}
	h.metrics.event("error")
	h.logger.Warn("event dispatch failed",
		"event", in.ev.Name,
		"scope", in.ev.Scope,
		"target", in.ev.Target,
		"error", err)
	if in.from != nil {
		in.from.sendError(protocol.NewError(errorCode(err), err.Error()))
	}
}

// drive runs one budgeted work cycle and publishes its edits.
func (h *Host) drive(ctx context.Context) {
	if !h.dom.HasWork() {
		return
	}
	deadline := time.Now().Add(h.cfg.FrameBudget)
	edits, err := h.dom.WorkWithDeadline(ctx, func() bool {
		return time.Now().After(deadline)
	})
	if err != nil {
		h.logger.Warn("render failed", "error", err)
		h.mu.Lock()
		c := h.conn
		h.mu.Unlock()
		if c != nil {
			c.sendError(protocol.NewError(errorCode(err), err.Error()))
		}
	}
	h.publish(ctx, edits)
	if h.dom.HasWork() {
		h.signal()
	}
}

// publish sequences an edit script, mirrors it and sends it.
func (h *Host) publish(ctx context.Context, edits []vdom.Edit) {
	if len(edits) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.doc.Apply(edits); err != nil {
		h.logger.Error("mirror rejected edit script", "seq", h.seq+1, "error", err)
	}
	h.seq++
	frame := protocol.NewFrame(protocol.FrameEdits, protocol.EncodeEdits(&protocol.EditsFrame{
		Seq:   h.seq,
		Edits: edits,
	})).Encode()
	h.history.Add(h.seq, frame)
	h.metrics.published(h.seq)

	for _, r := range h.recorders {
		if err := r.Record(ctx, h.seq, frame); err != nil {
			h.logger.Warn("record failed", "seq", h.seq, "error", err)
		}
	}
	if h.conn != nil {
		if err := h.conn.write(frame); err != nil {
			h.logger.Warn("edit frame not delivered", "seq", h.seq, "error", err)
			h.conn.close(protocol.CloseError, "write failed")
			h.conn = nil
		}
	}
}

// attach makes c the renderer and brings it up to date from lastSeq.
func (h *Host) attach(c *conn, lastSeq uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isClosed() {
		return ErrHostClosed
	}
	if h.conn != nil {
		h.logger.Info("renderer replaced", "old", h.conn.id, "new", c.id)
		h.conn.close(protocol.CloseGoingAway, "replaced by a newer connection")
	}
	h.conn = c
	return h.resyncLocked(c, lastSeq)
}

func (h *Host) detach(c *conn) {
	h.mu.Lock()
	if h.conn == c {
		h.conn = nil
	}
	h.mu.Unlock()
	c.close(protocol.CloseNormal, "")
}

// resync sends c whatever it needs to reach the current sequence.
func (h *Host) resync(c *conn, lastSeq uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != c {
		return ErrConnectionClosed
	}
	return h.resyncLocked(c, lastSeq)
}

func (h *Host) resyncLocked(c *conn, lastSeq uint64) error {
	if lastSeq == h.seq {
		return nil
	}
	if lastSeq > 0 && lastSeq < h.seq {
		if frames := h.history.Frames(lastSeq, h.seq); frames != nil {
			for _, frame := range frames {
				replay := make([]byte, len(frame))
				copy(replay, frame)
				replay[1] |= byte(protocol.FlagReplay)
				if err := c.write(replay); err != nil {
					return err
				}
			}
			h.metrics.resync("replay")
			h.logger.Debug("replayed edit frames", "from", lastSeq+1, "to", h.seq)
			return nil
		}
	}

	if err := c.sendControl(protocol.NewReset(h.seq)); err != nil {
		return err
	}
	payload := protocol.EncodeEdits(&protocol.EditsFrame{Seq: h.seq, Edits: h.doc.Script()})
	if err := c.send(protocol.FrameEdits, protocol.FlagReset, payload); err != nil {
		return err
	}
	h.metrics.resync("reset")
	h.logger.Debug("reset renderer", "last_seq", lastSeq, "seq", h.seq)
	return nil
}
