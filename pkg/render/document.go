package render

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Sentinel errors returned by Apply.
var (
	ErrUnknownNode   = errors.New("render: unknown mount id")
	ErrDuplicateNode = errors.New("render: mount id already live")
	ErrStackUnderrun = errors.New("render: stack underrun")
	ErrDetached      = errors.New("render: node has no parent")
	ErrUnknownOp     = errors.New("render: unknown edit op")
)

// NodeKind distinguishes document nodes.
type NodeKind uint8

const (
	NodeContainer NodeKind = iota
	NodeElement
	NodeText
	NodePlaceholder
)

// Node is one renderer-side node.
type Node struct {
	Kind      NodeKind
	ID        vdom.MountID
	Tag       string
	Text      string
	Attrs     map[string]string
	Listeners map[string]vdom.ScopeID
	Children  []*Node
	Parent    *Node
}

// Listener returns the scope registered for event on n.
func (n *Node) Listener(event string) (vdom.ScopeID, bool) {
	s, ok := n.Listeners[event]
	return s, ok
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) detach() {
	if n.Parent == nil {
		return
	}
	p := n.Parent
	if i := p.indexOf(n); i >= 0 {
		p.Children = append(p.Children[:i], p.Children[i+1:]...)
	}
	n.Parent = nil
}

func (n *Node) insert(at int, nodes []*Node) {
	for _, c := range nodes {
		c.Parent = n
	}
	tail := append([]*Node(nil), n.Children[at:]...)
	n.Children = append(append(n.Children[:at], nodes...), tail...)
}

// Document is an in-memory renderer.
type Document struct {
	root  *Node
	nodes map[vdom.MountID]*Node
	stack []*Node
}

// NewDocument creates an empty document whose stack holds the container.
func NewDocument() *Document {
	root := &Node{Kind: NodeContainer, ID: vdom.ContainerID}
	return &Document{
		root:  root,
		nodes: make(map[vdom.MountID]*Node),
		stack: []*Node{root},
	}
}

// Root returns the container node.
func (d *Document) Root() *Node { return d.root }

// Node returns the live node with the given mount id.
func (d *Document) Node(id vdom.MountID) (*Node, bool) {
	if id == vdom.ContainerID {
		return d.root, true
	}
	n, ok := d.nodes[id]
	return n, ok
}

// Len returns the number of live nodes, not counting the container.
func (d *Document) Len() int { return len(d.nodes) }

// IDs returns the live mount ids in ascending order.
func (d *Document) IDs() []vdom.MountID {
	ids := make([]vdom.MountID, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StackDepth returns the number of entries on the node stack, including
// the container. A fully applied script leaves it at 1.
func (d *Document) StackDepth() int { return len(d.stack) }

// Apply applies edits in order. It stops at the first invalid edit.
func (d *Document) Apply(edits []vdom.Edit) error {
	for i, e := range edits {
		if err := d.apply(e); err != nil {
			return fmt.Errorf("edit %d (%s): %w", i, e, err)
		}
	}
	return nil
}

func (d *Document) lookup(id vdom.MountID) (*Node, error) {
	n, ok := d.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return n, nil
}

func (d *Document) create(n *Node) error {
	if _, ok := d.nodes[n.ID]; ok || n.ID == vdom.ContainerID {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID)
	}
	d.nodes[n.ID] = n
	d.stack = append(d.stack, n)
	return nil
}

// pop removes the top many nodes, returned in push order.
func (d *Document) pop(many int) ([]*Node, error) {
	if many > len(d.stack) {
		return nil, ErrStackUnderrun
	}
	at := len(d.stack) - many
	nodes := append([]*Node(nil), d.stack[at:]...)
	d.stack = d.stack[:at]
	for _, n := range nodes {
		n.detach()
	}
	return nodes, nil
}

func (d *Document) forget(n *Node) {
	n.detach()
	delete(d.nodes, n.ID)
}

func (d *Document) apply(e vdom.Edit) error {
	switch e.Op {
	case vdom.EditPushRoot:
		n, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		d.stack = append(d.stack, n)

	case vdom.EditPopRoot:
		if len(d.stack) == 0 {
			return ErrStackUnderrun
		}
		d.stack = d.stack[:len(d.stack)-1]

	case vdom.EditCreateElement:
		return d.create(&Node{Kind: NodeElement, ID: e.Root, Tag: e.Tag})

	case vdom.EditCreateTextNode:
		return d.create(&Node{Kind: NodeText, ID: e.Root, Text: e.Text})

	case vdom.EditCreatePlaceholder:
		return d.create(&Node{Kind: NodePlaceholder, ID: e.Root})

	case vdom.EditAppendChildren:
		nodes, err := d.pop(int(e.Many))
		if err != nil {
			return err
		}
		if len(d.stack) == 0 {
			return ErrStackUnderrun
		}
		parent := d.stack[len(d.stack)-1]
		parent.insert(len(parent.Children), nodes)

	case vdom.EditReplaceWith:
		target, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		nodes, err := d.pop(int(e.Many))
		if err != nil {
			return err
		}
		parent := target.Parent
		if parent == nil {
			return fmt.Errorf("%w: %d", ErrDetached, e.Root)
		}
		at := parent.indexOf(target)
		d.forget(target)
		parent.insert(at, nodes)

	case vdom.EditInsertAfter, vdom.EditInsertBefore:
		target, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		nodes, err := d.pop(int(e.Many))
		if err != nil {
			return err
		}
		parent := target.Parent
		if parent == nil {
			return fmt.Errorf("%w: %d", ErrDetached, e.Root)
		}
		at := parent.indexOf(target)
		if e.Op == vdom.EditInsertAfter {
			at++
		}
		parent.insert(at, nodes)

	case vdom.EditRemove:
		n, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		if n == d.root {
			return fmt.Errorf("%w: container cannot be removed", ErrUnknownNode)
		}
		d.forget(n)

	case vdom.EditSetText:
		n, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		n.Text = e.Text

	case vdom.EditSetAttribute:
		n, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]string)
		}
		n.Attrs[e.Name] = e.Value

	case vdom.EditRemoveAttribute:
		n, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		delete(n.Attrs, e.Name)

	case vdom.EditNewEventListener:
		n, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		if n.Listeners == nil {
			n.Listeners = make(map[string]vdom.ScopeID)
		}
		n.Listeners[e.Name] = e.Scope

	case vdom.EditRemoveEventListener:
		n, err := d.lookup(e.Root)
		if err != nil {
			return err
		}
		delete(n.Listeners, e.Name)

	default:
		return fmt.Errorf("%w: %d", ErrUnknownOp, e.Op)
	}
	return nil
}

// Script returns edits that rebuild the attached tree on an empty renderer,
// keeping every mount id. A host uses it to resynchronize a renderer that
// lost its state.
func (d *Document) Script() []vdom.Edit {
	var edits []vdom.Edit
	for _, c := range d.root.Children {
		edits = scriptNode(edits, c)
	}
	if n := len(d.root.Children); n > 0 {
		edits = append(edits, vdom.Edit{Op: vdom.EditAppendChildren, Many: uint32(n)})
	}
	return edits
}

func scriptNode(edits []vdom.Edit, n *Node) []vdom.Edit {
	switch n.Kind {
	case NodeText:
		return append(edits, vdom.Edit{Op: vdom.EditCreateTextNode, Root: n.ID, Text: n.Text})
	case NodePlaceholder:
		return append(edits, vdom.Edit{Op: vdom.EditCreatePlaceholder, Root: n.ID})
	}

	edits = append(edits, vdom.Edit{Op: vdom.EditCreateElement, Root: n.ID, Tag: n.Tag})
	for _, name := range sortedKeys(n.Listeners) {
		edits = append(edits, vdom.Edit{Op: vdom.EditNewEventListener, Root: n.ID, Name: name, Scope: n.Listeners[name]})
	}
	for _, name := range sortedKeys(n.Attrs) {
		edits = append(edits, vdom.Edit{Op: vdom.EditSetAttribute, Root: n.ID, Name: name, Value: n.Attrs[name]})
	}
	for _, c := range n.Children {
		edits = scriptNode(edits, c)
	}
	if len(n.Children) > 0 {
		edits = append(edits, vdom.Edit{Op: vdom.EditAppendChildren, Many: uint32(len(n.Children))})
	}
	return edits
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
