package engine

import (
	"github.com/vango-dev/vtree/pkg/scope"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// diffNode brings the renderer from prev to next. Mount ids and scopes held
// by prev are carried over to next wherever the node survives.
func (v *VirtualDom) diffNode(prev, next *vdom.VNode, m *vdom.Mutations, owner *scope.Scope) {
	if prev.Kind != next.Kind || prev.Key != next.Key {
		v.replace(prev, next, m, owner)
		return
	}

	switch next.Kind {
	case vdom.KindText:
		next.ID = prev.ID
		if prev.Text != next.Text {
			m.SetText(next.ID, next.Text)
		}

	case vdom.KindPlaceholder:
		next.ID = prev.ID

	case vdom.KindElement:
		if prev.Tag != next.Tag {
			v.replace(prev, next, m, owner)
			return
		}
		next.ID = prev.ID
		diffListeners(prev, next, m, owner)
		diffAttrs(prev, next, m)
		v.diffChildren(prev.Children, next.Children, m, owner, next)

	case vdom.KindFragment:
		v.diffChildren(prev.Children, next.Children, m, owner, nil)

	case vdom.KindComponent:
		if !vdom.SameComponent(prev.Comp, next.Comp) {
			v.replace(prev, next, m, owner)
			return
		}
		v.diffComponent(prev, next, m)
	}
}

// diffComponent re-renders the scope held by prev with next's props.
func (v *VirtualDom) diffComponent(prev, next *vdom.VNode, m *vdom.Mutations) {
	next.Scope = prev.Scope
	s := v.arena.Get(prev.Scope)
	if s == nil {
		return
	}
	s.SetProps(next.Props)

	// The parent's render covers any pending update of this scope.
	v.queue.Cancel(s.ID())

	sub, err := v.render(s)
	if err != nil {
		return
	}
	v.diffNode(s.Current(), sub, m, s)
	s.Commit(sub)
}

// replace creates next, swaps it in for prev's first root and removes the
// rest of prev.
func (v *VirtualDom) replace(prev, next *vdom.VNode, m *vdom.Mutations, owner *scope.Scope) {
	n := v.create(next, m, owner)
	first := v.firstRoot(prev)
	m.ReplaceWith(first, n)
	v.arena.Release(prev, m, first)
}

func diffAttrs(prev, next *vdom.VNode, m *vdom.Mutations) {
	for _, name := range attrNames(next.Attrs) {
		value := next.Attrs[name]
		old, had := prev.Attrs[name]
		had = had && !attrAbsent(old)
		switch {
		case attrAbsent(value):
			if had {
				m.RemoveAttribute(next.ID, name)
			}
		case !had || !vdom.AttrEqual(old, value):
			m.SetAttribute(next.ID, name, value)
		}
	}
	for _, name := range attrNames(prev.Attrs) {
		if _, ok := next.Attrs[name]; !ok && !attrAbsent(prev.Attrs[name]) {
			m.RemoveAttribute(next.ID, name)
		}
	}
}

// diffListeners treats a listener whose handler code changed as a
// different listener. A new closure over the same function literal is the
// same listener; dispatch always reaches the latest one.
func diffListeners(prev, next *vdom.VNode, m *vdom.Mutations, owner *scope.Scope) {
	for _, name := range listenerNames(prev.Listeners) {
		l, ok := next.Listeners[name]
		if !ok || !vdom.SameHandler(prev.Listeners[name], l) {
			m.RemoveEventListener(next.ID, name)
		}
	}
	for _, name := range listenerNames(next.Listeners) {
		l, ok := prev.Listeners[name]
		if !ok || !vdom.SameHandler(l, next.Listeners[name]) {
			m.NewEventListener(next.ID, name, owner.ID())
		}
	}
}
