package engine

import (
	"sort"

	"github.com/vango-dev/vtree/pkg/scope"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// create emits the edits that build node and leaves its roots on the
// renderer stack. It returns how many roots were pushed.
func (v *VirtualDom) create(node *vdom.VNode, m *vdom.Mutations, owner *scope.Scope) int {
	switch node.Kind {
	case vdom.KindText:
		node.ID = m.CreateTextNode(node.Text)
		return 1

	case vdom.KindPlaceholder:
		node.ID = m.CreatePlaceholder()
		return 1

	case vdom.KindElement:
		node.ID = m.CreateElement(node.Tag)
		for _, name := range listenerNames(node.Listeners) {
			m.NewEventListener(node.ID, name, owner.ID())
		}
		for _, name := range attrNames(node.Attrs) {
			if value := node.Attrs[name]; !attrAbsent(value) {
				m.SetAttribute(node.ID, name, value)
			}
		}
		if n := v.createAll(node.Children, m, owner); n > 0 {
			m.AppendChildren(n)
		}
		return 1

	case vdom.KindFragment:
		return v.createAll(node.Children, m, owner)

	case vdom.KindComponent:
		return v.createComponent(node, m, owner)
	}
	return 0
}

func (v *VirtualDom) createAll(nodes []*vdom.VNode, m *vdom.Mutations, owner *scope.Scope) int {
	n := 0
	for _, node := range nodes {
		n += v.create(node, m, owner)
	}
	return n
}

// createComponent mounts a new scope for node under owner.
func (v *VirtualDom) createComponent(node *vdom.VNode, m *vdom.Mutations, owner *scope.Scope) int {
	s := v.arena.Create(owner.ID(), node.Comp, node.Props)
	node.Scope = s.ID()

	sub, err := v.render(s)
	if err != nil {
		sub = vdom.Placeholder()
	}
	n := v.create(sub, m, s)
	s.Commit(sub)
	return n
}

// roots appends the mount ids of node's top-level renderer nodes to out.
func (v *VirtualDom) roots(node *vdom.VNode, out []vdom.MountID) []vdom.MountID {
	switch node.Kind {
	case vdom.KindElement, vdom.KindText, vdom.KindPlaceholder:
		return append(out, node.ID)
	case vdom.KindFragment:
		for _, child := range node.Children {
			out = v.roots(child, out)
		}
	case vdom.KindComponent:
		if s := v.arena.Get(node.Scope); s != nil && s.Current() != nil {
			out = v.roots(s.Current(), out)
		}
	}
	return out
}

func (v *VirtualDom) firstRoot(node *vdom.VNode) vdom.MountID {
	switch node.Kind {
	case vdom.KindFragment:
		return v.firstRoot(node.Children[0])
	case vdom.KindComponent:
		if s := v.arena.Get(node.Scope); s != nil && s.Current() != nil {
			return v.firstRoot(s.Current())
		}
		return vdom.ContainerID
	}
	return node.ID
}

func (v *VirtualDom) lastRoot(node *vdom.VNode) vdom.MountID {
	switch node.Kind {
	case vdom.KindFragment:
		return v.lastRoot(node.Children[len(node.Children)-1])
	case vdom.KindComponent:
		if s := v.arena.Get(node.Scope); s != nil && s.Current() != nil {
			return v.lastRoot(s.Current())
		}
		return vdom.ContainerID
	}
	return node.ID
}

func attrNames(attrs vdom.Attrs) []string {
	if len(attrs) == 0 {
		return nil
	}
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func listenerNames(listeners map[string]vdom.Listener) []string {
	if len(listeners) == 0 {
		return nil
	}
	names := make([]string, 0, len(listeners))
	for k := range listeners {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// attrAbsent reports whether an attribute value means "not set".
// false and nil are never sent to the renderer.
func attrAbsent(v any) bool {
	if v == nil {
		return true
	}
	b, ok := v.(bool)
	return ok && !b
}
