package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/pkg/scope"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// VirtualDom is a mounted component tree.
type VirtualDom struct {
	mu      sync.Mutex
	arena   *scope.Arena
	queue   *dirtyQueue
	ids     *vdom.MountIDAllocator
	root    vdom.ScopeID
	mounted bool
	closed  bool

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	// Per drive call.
	errs     []error
	rendered int
}

// New creates a VirtualDom for the root component. The root scope starts
// dirty; call Rebuild to mount it.
func New(root vdom.Component, opts ...Option) *VirtualDom {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	q := newDirtyQueue()
	q.notify = o.onDirty

	v := &VirtualDom{
		queue:   q,
		ids:     vdom.NewMountIDAllocator(),
		logger:  o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
	}
	v.arena = scope.NewArena(q)
	v.arena.OnRemove = func(vdom.ScopeID) {
		if v.metrics != nil {
			v.metrics.scopesRemoved.Inc()
		}
	}

	s := v.arena.CreateRoot(root, o.rootProps)
	v.root = s.ID()
	q.Schedule(s.Ref())
	return v
}

// Root returns the id of the root scope.
func (v *VirtualDom) Root() vdom.ScopeID {
	return v.root
}

// Rebuild performs the initial mount of the root scope. The returned edits
// create the whole tree and append its roots to the host container.
func (v *VirtualDom) Rebuild(ctx context.Context) ([]vdom.Edit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, ErrNotMounted
	}
	if v.mounted {
		return nil, ErrAlreadyMounted
	}

	d := v.begin(ctx, "rebuild")
	s := v.arena.Get(v.root)
	v.queue.Cancel(v.root)

	node, err := v.render(s)
	if err != nil {
		node = vdom.Placeholder()
	}
	n := v.create(node, d.m, s)
	s.Commit(node)
	d.m.AppendChildren(n)
	v.mounted = true

	return v.finish(d, false)
}

// WorkWithDeadline renders dirty scopes, shallowest first, until the queue
// is empty or shouldYield returns true. shouldYield is consulted after each
// scope, never in the middle of one, so every call makes progress on at
// least one dirty scope. Scopes left in the queue are picked up by the next
// call.
func (v *VirtualDom) WorkWithDeadline(ctx context.Context, shouldYield func() bool) ([]vdom.Edit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return nil, ErrNotMounted
	}

	d := v.begin(ctx, "work")
	yielded := false
	for {
		ref, ok := v.queue.Pop()
		if !ok {
			break
		}
		if !v.arena.Valid(ref) {
			continue
		}
		v.update(v.arena.Get(ref.ID), d.m)
		if shouldYield != nil && shouldYield() {
			yielded = v.queue.Len() > 0
			break
		}
	}
	return v.finish(d, yielded)
}

// HardDiff re-renders scope id immediately and diffs it against its
// previous tree, whether or not it is dirty.
func (v *VirtualDom) HardDiff(ctx context.Context, id vdom.ScopeID) ([]vdom.Edit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return nil, ErrNotMounted
	}
	s := v.arena.Get(id)
	if s == nil {
		return nil, fmt.Errorf("%w: %d", ErrScopeNotFound, id)
	}

	d := v.begin(ctx, "hard_diff")
	v.queue.Cancel(id)
	v.update(s, d.m)
	return v.finish(d, false)
}

// HasWork reports whether any live scope is waiting to be rendered.
func (v *VirtualDom) HasWork() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.queue.prune(v.arena.Valid) > 0
}

// Unmount tears down the whole tree. The returned edits remove every node.
// The VirtualDom cannot be used afterwards.
func (v *VirtualDom) Unmount(ctx context.Context) ([]vdom.Edit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return nil, ErrNotMounted
	}
	d := v.begin(ctx, "unmount")
	v.arena.Remove(v.root, d.m)
	v.mounted = false
	v.closed = true
	return v.finish(d, false)
}

// Scope returns the live scope with the given id, or nil. The returned
// scope must only be read while no drive call is running.
func (v *VirtualDom) Scope(id vdom.ScopeID) *scope.Scope {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.arena.Get(id)
}

// LiveScopes returns the number of live scopes.
func (v *VirtualDom) LiveScopes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.arena.Len()
}

// LiveMountIDs returns the number of mount ids held by renderer nodes.
func (v *VirtualDom) LiveMountIDs() int {
	return v.ids.Live()
}

// update re-renders s and diffs the result against its current tree.
// On failure the current tree is kept and nothing is emitted.
func (v *VirtualDom) update(s *scope.Scope, m *vdom.Mutations) {
	start := m.Len()
	node, err := v.render(s)
	if err != nil {
		return
	}
	v.diffNode(s.Current(), node, m, s)
	s.Commit(node)
	v.logger.Debug("scope rendered",
		"scope", s.ID(),
		"height", s.Height(),
		"edits", m.Len()-start)
}

// render runs the render function of s, recording failures.
func (v *VirtualDom) render(s *scope.Scope) (*vdom.VNode, error) {
	v.rendered++
	node, err := v.arena.Run(s.ID())
	if err != nil {
		v.errs = append(v.errs, err)
		v.logger.Warn("render failed",
			"scope", s.ID(),
			"component", vdom.ComponentName(s.Component()),
			"error", err)
		if v.metrics != nil {
			v.metrics.renderErrors.Inc()
		}
	}
	return node, err
}

type drive struct {
	name  string
	start time.Time
	span  trace.Span
	m     *vdom.Mutations
}

func (v *VirtualDom) begin(ctx context.Context, name string) *drive {
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := v.tracer.Start(ctx, "vtree."+name, trace.WithSpanKind(trace.SpanKindInternal))
	v.errs = nil
	v.rendered = 0
	return &drive{
		name:  name,
		start: time.Now(),
		span:  span,
		m:     vdom.NewMutations(v.ids),
	}
}

func (v *VirtualDom) finish(d *drive, yielded bool) ([]vdom.Edit, error) {
	err := errors.Join(v.errs...)
	edits := d.m.Edits

	d.span.SetAttributes(
		attribute.Int("vtree.scopes", v.rendered),
		attribute.Int("vtree.edits", len(edits)),
		attribute.Bool("vtree.yielded", yielded),
	)
	if err != nil {
		d.span.RecordError(err)
		d.span.SetStatus(codes.Error, err.Error())
	} else {
		d.span.SetStatus(codes.Ok, "")
	}
	d.span.End()

	if v.metrics != nil {
		v.metrics.scopesRendered.Add(float64(v.rendered))
		v.metrics.observeEdits(edits)
		v.metrics.dirtyScopes.Set(float64(v.queue.Len()))
		v.metrics.liveScopes.Set(float64(v.arena.Len()))
		v.metrics.mountIDsLive.Set(float64(v.ids.Live()))
		v.metrics.driveDuration.WithLabelValues(d.name).Observe(time.Since(d.start).Seconds())
	}

	v.errs = nil
	return edits, err
}
