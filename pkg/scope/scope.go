package scope

import (
	"fmt"
	"runtime/debug"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Ref is a generation-checked reference to a scope.
type Ref struct {
	ID         vdom.ScopeID
	Generation uint32
	Height     int
}

// Disposer is implemented by hook cells that hold resources.
type Disposer interface {
	Dispose()
}

// Scope is one live component instance.
type Scope struct {
	id         vdom.ScopeID
	generation uint32
	height     int
	parent     *Scope
	children   []vdom.ScopeID

	comp  vdom.Component
	props any

	// hooks are addressed by call order; cursor is the next slot.
	hooks  []any
	cursor int

	// current is the tree of the last successful render, previous the one before.
	current  *vdom.VNode
	previous *vdom.VNode
	renders  int

	arena *Arena
}

// ID returns the scope id.
func (s *Scope) ID() vdom.ScopeID { return s.id }

// ScopeID implements vdom.Context.
func (s *Scope) ScopeID() vdom.ScopeID { return s.id }

// Ref returns a generation-checked reference to s.
func (s *Scope) Ref() Ref {
	return Ref{ID: s.id, Generation: s.generation, Height: s.height}
}

// Height returns the depth of the scope. The root is at height 0.
func (s *Scope) Height() int { return s.height }

// Parent returns the parent scope id and whether one exists.
func (s *Scope) Parent() (vdom.ScopeID, bool) {
	if s.parent == nil {
		return 0, false
	}
	return s.parent.id, true
}

// Children returns the ids of child scopes in creation order.
func (s *Scope) Children() []vdom.ScopeID {
	out := make([]vdom.ScopeID, len(s.children))
	copy(out, s.children)
	return out
}

// Component returns the component rendered by the scope.
func (s *Scope) Component() vdom.Component { return s.comp }

// Props implements vdom.Context.
func (s *Scope) Props() any { return s.props }

// SetProps replaces the props used by the next render.
func (s *Scope) SetProps(props any) { s.props = props }

// Current returns the tree produced by the last successful render.
func (s *Scope) Current() *vdom.VNode { return s.current }

// Previous returns the tree that Current replaced.
func (s *Scope) Previous() *vdom.VNode { return s.previous }

// Renders returns how many times the render function has run.
func (s *Scope) Renders() int { return s.renders }

// Commit records node as the scope's current tree.
func (s *Scope) Commit(node *vdom.VNode) {
	s.previous = s.current
	s.current = node
}

// HookCount returns the number of hook cells allocated so far.
func (s *Scope) HookCount() int { return len(s.hooks) }

// UseHook implements vdom.Context.
func (s *Scope) UseHook(init func() any) any {
	if s.cursor < len(s.hooks) {
		cell := s.hooks[s.cursor]
		s.cursor++
		return cell
	}
	cell := init()
	s.hooks = append(s.hooks, cell)
	s.cursor++
	return cell
}

// ScheduleUpdate implements vdom.Context. The returned function marks the
// scope dirty and is safe to call from any goroutine; it does nothing once
// the scope has been removed.
func (s *Scope) ScheduleUpdate() func() {
	ref := s.Ref()
	sched := s.arena.sched
	return func() {
		if sched != nil {
			sched.Schedule(ref)
		}
	}
}

// run executes the render function with panic recovery.
func (s *Scope) run() (node *vdom.VNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{
				Scope:     s.id,
				Component: vdom.ComponentName(s.comp),
				Err:       fmt.Errorf("%w: %v", ErrRenderPanic, r),
				Panic:     r,
				Stack:     debug.Stack(),
			}
		}
	}()

	s.cursor = 0
	s.renders++
	node, err = s.comp.Render(s)
	if err != nil {
		return nil, &RenderError{Scope: s.id, Component: vdom.ComponentName(s.comp), Err: err}
	}
	return vdom.Normalize(node), nil
}

// dispose runs hook cleanups in reverse slot order.
func (s *Scope) dispose() {
	for i := len(s.hooks) - 1; i >= 0; i-- {
		if d, ok := s.hooks[i].(Disposer); ok {
			d.Dispose()
		}
	}
	s.hooks = nil
	s.current = nil
	s.previous = nil
	s.children = nil
}

func (s *Scope) removeChild(id vdom.ScopeID) {
	for i, c := range s.children {
		if c == id {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}
