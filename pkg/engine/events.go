package engine

import (
	"fmt"
	"runtime/debug"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// DispatchEvent delivers ev to the listener registered for ev.Name on the
// element ev.Target in the latest tree of scope ev.Scope. The handler runs
// synchronously on the calling goroutine, outside the engine lock; state
// writes it makes are picked up by the next drive call.
func (v *VirtualDom) DispatchEvent(ev vdom.Event) error {
	l, err := v.lookupListener(ev)
	if err != nil {
		return err
	}
	return invoke(l, ev)
}

func (v *VirtualDom) lookupListener(ev vdom.Event) (vdom.Listener, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.arena.Get(ev.Scope)
	if s == nil {
		return vdom.Listener{}, fmt.Errorf("%w: %d", ErrScopeNotFound, ev.Scope)
	}
	node := findElement(s.Current(), ev.Target)
	if node == nil {
		return vdom.Listener{}, fmt.Errorf("%w: %d in scope %d", ErrNodeNotFound, ev.Target, ev.Scope)
	}
	l, ok := node.Listener(ev.Name)
	if !ok {
		return vdom.Listener{}, fmt.Errorf("%w: %s on %d", ErrListenerNotFound, ev.Name, ev.Target)
	}
	return l, nil
}

func invoke(l vdom.Listener, ev vdom.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{
				Scope:  ev.Scope,
				Target: ev.Target,
				Event:  ev.Name,
				Panic:  r,
				Stack:  debug.Stack(),
			}
		}
	}()
	l.Handler(ev)
	return nil
}

// findElement searches the part of a tree rendered by one scope. Child
// component subtrees belong to their own scopes and are skipped.
func findElement(node *vdom.VNode, id vdom.MountID) *vdom.VNode {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case vdom.KindElement:
		if node.ID == id {
			return node
		}
		for _, child := range node.Children {
			if found := findElement(child, id); found != nil {
				return found
			}
		}
	case vdom.KindFragment:
		for _, child := range node.Children {
			if found := findElement(child, id); found != nil {
				return found
			}
		}
	}
	return nil
}
