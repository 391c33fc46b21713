package vdom

// Mutations is the ordered edit log produced by one driver call.
//
// Mutations owns mount id bookkeeping: the create methods allocate an id
// and the release methods (Remove, ReplaceWith) return one to the pool as
// the edit is recorded. Callers never touch the allocator directly.
type Mutations struct {
	Edits []Edit
	ids   *MountIDAllocator
}

// NewMutations creates an empty edit log backed by ids.
func NewMutations(ids *MountIDAllocator) *Mutations {
	return &Mutations{ids: ids}
}

func (m *Mutations) push(e Edit) {
	m.Edits = append(m.Edits, e)
}

// Len returns the number of recorded edits.
func (m *Mutations) Len() int {
	return len(m.Edits)
}

// CreateElement records the creation of an element and returns its id.
func (m *Mutations) CreateElement(tag string) MountID {
	id := m.ids.Next()
	m.push(Edit{Op: EditCreateElement, Root: id, Tag: tag})
	return id
}

// CreateTextNode records the creation of a text node and returns its id.
func (m *Mutations) CreateTextNode(text string) MountID {
	id := m.ids.Next()
	m.push(Edit{Op: EditCreateTextNode, Root: id, Text: text})
	return id
}

// CreatePlaceholder records the creation of a placeholder and returns its id.
func (m *Mutations) CreatePlaceholder() MountID {
	id := m.ids.Next()
	m.push(Edit{Op: EditCreatePlaceholder, Root: id})
	return id
}

// PushRoot pushes an existing node onto the renderer stack.
func (m *Mutations) PushRoot(id MountID) {
	m.push(Edit{Op: EditPushRoot, Root: id})
}

// PopRoot pops the top of the renderer stack.
func (m *Mutations) PopRoot() {
	m.push(Edit{Op: EditPopRoot})
}

// AppendChildren appends the top many nodes to the node beneath them.
func (m *Mutations) AppendChildren(many int) {
	m.push(Edit{Op: EditAppendChildren, Many: uint32(many)})
}

// ReplaceWith replaces id with the top many nodes and releases id.
func (m *Mutations) ReplaceWith(id MountID, many int) {
	m.push(Edit{Op: EditReplaceWith, Root: id, Many: uint32(many)})
	m.ids.Release(id)
}

// InsertAfter inserts the top many nodes after id.
func (m *Mutations) InsertAfter(id MountID, many int) {
	m.push(Edit{Op: EditInsertAfter, Root: id, Many: uint32(many)})
}

// InsertBefore inserts the top many nodes before id.
func (m *Mutations) InsertBefore(id MountID, many int) {
	m.push(Edit{Op: EditInsertBefore, Root: id, Many: uint32(many)})
}

// Remove detaches id and releases it.
func (m *Mutations) Remove(id MountID) {
	m.push(Edit{Op: EditRemove, Root: id})
	m.ids.Release(id)
}

// SetText updates the content of a text node.
func (m *Mutations) SetText(id MountID, text string) {
	m.push(Edit{Op: EditSetText, Root: id, Text: text})
}

// SetAttribute sets an attribute on an element.
func (m *Mutations) SetAttribute(id MountID, name string, value any) {
	m.push(Edit{Op: EditSetAttribute, Root: id, Name: name, Value: attrString(value)})
}

// RemoveAttribute removes an attribute from an element.
func (m *Mutations) RemoveAttribute(id MountID, name string) {
	m.push(Edit{Op: EditRemoveAttribute, Root: id, Name: name})
}

// NewEventListener attaches a listener owned by scope to an element.
func (m *Mutations) NewEventListener(id MountID, event string, scope ScopeID) {
	m.push(Edit{Op: EditNewEventListener, Root: id, Name: event, Scope: scope})
}

// RemoveEventListener detaches a listener from an element.
func (m *Mutations) RemoveEventListener(id MountID, event string) {
	m.push(Edit{Op: EditRemoveEventListener, Root: id, Name: event})
}

// Counts tallies the recorded edits by op.
func (m *Mutations) Counts() map[EditOp]int {
	counts := make(map[EditOp]int)
	for _, e := range m.Edits {
		counts[e.Op]++
	}
	return counts
}
