package scope

import (
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Scheduler receives dirty notifications from hook writes.
//
// Schedule may be called from any goroutine. Cancel is called by the arena
// on the driver goroutine when a scope is torn down.
type Scheduler interface {
	Schedule(ref Ref)
	Cancel(id vdom.ScopeID)
}

// Arena stores scopes indexed by ScopeID.
//
// An Arena is not safe for concurrent use; it belongs to the goroutine that
// drives rendering. Only the closures returned by ScheduleUpdate cross
// goroutines, and they touch the Scheduler, never the arena.
type Arena struct {
	slots []*Scope
	gens  []uint32
	free  []vdom.ScopeID
	live  int
	sched Scheduler

	// OnRemove, if set, is called after a scope has been torn down.
	OnRemove func(id vdom.ScopeID)
}

// NewArena creates an empty arena reporting dirty scopes to sched.
func NewArena(sched Scheduler) *Arena {
	return &Arena{sched: sched}
}

// CreateRoot allocates a scope with no parent.
func (a *Arena) CreateRoot(comp vdom.Component, props any) *Scope {
	return a.create(nil, comp, props)
}

// Create allocates a scope under parent. An unknown parent yields a root scope.
func (a *Arena) Create(parent vdom.ScopeID, comp vdom.Component, props any) *Scope {
	return a.create(a.Get(parent), comp, props)
}

func (a *Arena) create(parent *Scope, comp vdom.Component, props any) *Scope {
	var id vdom.ScopeID
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		id = vdom.ScopeID(len(a.slots))
		a.slots = append(a.slots, nil)
		a.gens = append(a.gens, 0)
	}
	a.gens[id]++

	s := &Scope{
		id:         id,
		generation: a.gens[id],
		parent:     parent,
		comp:       comp,
		props:      props,
		arena:      a,
	}
	if parent != nil {
		s.height = parent.height + 1
		parent.children = append(parent.children, id)
	}
	a.slots[id] = s
	a.live++
	return s
}

// Get returns the live scope with the given id, or nil.
func (a *Arena) Get(id vdom.ScopeID) *Scope {
	if int(id) >= len(a.slots) {
		return nil
	}
	return a.slots[id]
}

// Valid reports whether ref still points at a live scope.
func (a *Arena) Valid(ref Ref) bool {
	s := a.Get(ref.ID)
	return s != nil && s.generation == ref.Generation
}

// Len returns the number of live scopes.
func (a *Arena) Len() int { return a.live }

// Run executes the render function of scope id and returns the normalized
// tree. The scope's current tree is left untouched; callers Commit the
// result once it has been diffed.
func (a *Arena) Run(id vdom.ScopeID) (*vdom.VNode, error) {
	s := a.Get(id)
	if s == nil {
		return nil, ErrScopeRemoved
	}
	return s.run()
}

// Remove tears down scope id and all of its descendants.
//
// A Remove edit is recorded for every mount id in the scope's current tree,
// in pre-order. Child scopes are torn down before their parent's hook cells
// are disposed.
func (a *Arena) Remove(id vdom.ScopeID, m *vdom.Mutations) {
	s := a.Get(id)
	if s == nil {
		return
	}
	a.Release(s.current, m, vdom.ContainerID)
	// Children no longer reachable from the current tree.
	for len(s.children) > 0 {
		a.Remove(s.children[0], m)
	}
	a.drop(s)
}

// Release records Remove edits for every mount id under node and tears
// down every scope it references. The id skip has already been released
// by the caller (the first root of a replaced subtree) and gets no edit.
func (a *Arena) Release(node *vdom.VNode, m *vdom.Mutations, skip vdom.MountID) {
	if node == nil {
		return
	}
	switch node.Kind {
	case vdom.KindElement:
		if node.ID != skip {
			m.Remove(node.ID)
		}
		for _, child := range node.Children {
			a.Release(child, m, skip)
		}
	case vdom.KindText, vdom.KindPlaceholder:
		if node.ID != skip {
			m.Remove(node.ID)
		}
	case vdom.KindFragment:
		for _, child := range node.Children {
			a.Release(child, m, skip)
		}
	case vdom.KindComponent:
		s := a.Get(node.Scope)
		if s == nil {
			return
		}
		a.Release(s.current, m, skip)
		for len(s.children) > 0 {
			a.Remove(s.children[0], m)
		}
		a.drop(s)
	}
}

func (a *Arena) drop(s *Scope) {
	if a.slots[s.id] != s {
		return
	}
	if s.parent != nil {
		s.parent.removeChild(s.id)
	}
	a.slots[s.id] = nil
	a.free = append(a.free, s.id)
	a.live--
	if a.sched != nil {
		a.sched.Cancel(s.id)
	}
	s.dispose()
	if a.OnRemove != nil {
		a.OnRemove(s.id)
	}
}
