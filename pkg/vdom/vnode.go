package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement     VKind = iota // <div>, <button>, etc.
	KindText                     // Plain text node
	KindFragment                 // Grouping without wrapper
	KindComponent                // Nested component
	KindPlaceholder              // Stand-in for absent content
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	case KindPlaceholder:
		return "Placeholder"
	default:
		return "Unknown"
	}
}

// MountID is the renderer-visible handle of an element, text node or
// placeholder. Zero is reserved for the host container.
type MountID uint32

// ContainerID addresses the host container the root scope is mounted into.
const ContainerID MountID = 0

// ScopeID identifies a live component instance.
type ScopeID uint32

// VNode is one node of a render pass snapshot.
//
// A VNode is produced fresh on every render and is never compared by value.
// The engine only writes ID (elements, text, placeholders) and Scope
// (components) once the node is mounted.
type VNode struct {
	Kind      VKind               // Node type
	Tag       string              // Element tag name (e.g., "div")
	Attrs     Attrs               // Element attributes
	Listeners map[string]Listener // Element event listeners, by event name
	Children  []*VNode            // Element or fragment children
	Key       string              // Reconciliation key
	Text      string              // For KindText
	Comp      Component           // For KindComponent
	Props     any                 // For KindComponent

	ID    MountID // Assigned on mount
	Scope ScopeID // Assigned on mount (KindComponent only)
}

// Attrs holds element attributes.
type Attrs map[string]any

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// HasKey reports whether the node carries an explicit reconciliation key.
func (v *VNode) HasKey() bool {
	return v != nil && v.Key != ""
}

// IsMountable reports whether the node owns a mount id of its own.
func (v *VNode) IsMountable() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case KindElement, KindText, KindPlaceholder:
		return true
	}
	return false
}

// Listener looks up the listener registered for an event name.
func (v *VNode) Listener(name string) (Listener, bool) {
	if v == nil || v.Kind != KindElement {
		return Listener{}, false
	}
	l, ok := v.Listeners[name]
	return l, ok
}

// Normalize rewrites a render result into the shape the engine diffs:
// a nil node becomes a placeholder, nil children are dropped and empty
// fragments get a placeholder child so they keep a position in the tree.
// Component subtrees are left alone; they are normalized when their own
// scope renders.
func Normalize(node *VNode) *VNode {
	if node == nil {
		return Placeholder()
	}
	switch node.Kind {
	case KindElement:
		node.Children = compact(node.Children)
		for _, child := range node.Children {
			Normalize(child)
		}
	case KindFragment:
		node.Children = compact(node.Children)
		if len(node.Children) == 0 {
			node.Children = []*VNode{Placeholder()}
		}
		for _, child := range node.Children {
			Normalize(child)
		}
	}
	return node
}

func compact(children []*VNode) []*VNode {
	for _, c := range children {
		if c == nil {
			out := make([]*VNode, 0, len(children))
			for _, child := range children {
				if child != nil {
					out = append(out, child)
				}
			}
			return out
		}
	}
	return children
}
