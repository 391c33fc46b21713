package vdom

import "fmt"

// EditOp is the type of an edit instruction.
type EditOp uint8

const (
	EditPushRoot            EditOp = 0x01 // Push an existing node onto the stack
	EditPopRoot             EditOp = 0x02 // Pop the top of the stack
	EditAppendChildren      EditOp = 0x03 // Append the top N nodes to the node beneath them
	EditReplaceWith         EditOp = 0x04 // Replace a node with the top N nodes
	EditInsertAfter         EditOp = 0x05 // Insert the top N nodes after a node
	EditInsertBefore        EditOp = 0x06 // Insert the top N nodes before a node
	EditRemove              EditOp = 0x07 // Remove a node
	EditCreateTextNode      EditOp = 0x08 // Create a text node and push it
	EditCreateElement       EditOp = 0x09 // Create an element and push it
	EditCreatePlaceholder   EditOp = 0x0A // Create a placeholder and push it
	EditNewEventListener    EditOp = 0x0B // Attach a listener to an element
	EditRemoveEventListener EditOp = 0x0C // Detach a listener from an element
	EditSetText             EditOp = 0x0D // Update text content
	EditSetAttribute        EditOp = 0x0E // Set/update attribute
	EditRemoveAttribute     EditOp = 0x0F // Remove attribute
)

// String returns the string representation of the EditOp.
func (op EditOp) String() string {
	switch op {
	case EditPushRoot:
		return "PushRoot"
	case EditPopRoot:
		return "PopRoot"
	case EditAppendChildren:
		return "AppendChildren"
	case EditReplaceWith:
		return "ReplaceWith"
	case EditInsertAfter:
		return "InsertAfter"
	case EditInsertBefore:
		return "InsertBefore"
	case EditRemove:
		return "Remove"
	case EditCreateTextNode:
		return "CreateTextNode"
	case EditCreateElement:
		return "CreateElement"
	case EditCreatePlaceholder:
		return "CreatePlaceholder"
	case EditNewEventListener:
		return "NewEventListener"
	case EditRemoveEventListener:
		return "RemoveEventListener"
	case EditSetText:
		return "SetText"
	case EditSetAttribute:
		return "SetAttribute"
	case EditRemoveAttribute:
		return "RemoveAttribute"
	default:
		return "Unknown"
	}
}

// Edit is a single renderer mutation.
//
// Fields are used per op:
//
//	PushRoot, Remove                  Root
//	AppendChildren                    Many
//	ReplaceWith, InsertAfter/Before   Root, Many
//	CreateTextNode, SetText           Root, Text
//	CreateElement                     Root, Tag
//	CreatePlaceholder                 Root
//	NewEventListener                  Root, Name (event), Scope
//	RemoveEventListener               Root, Name (event)
//	SetAttribute                      Root, Name, Value
//	RemoveAttribute                   Root, Name
type Edit struct {
	Op    EditOp
	Root  MountID
	Many  uint32
	Tag   string
	Text  string
	Name  string
	Value string
	Scope ScopeID
}

// String renders the edit in a compact debugging form.
func (e Edit) String() string {
	switch e.Op {
	case EditPushRoot, EditRemove, EditCreatePlaceholder:
		return fmt.Sprintf("%s{root: %d}", e.Op, e.Root)
	case EditPopRoot:
		return e.Op.String()
	case EditAppendChildren:
		return fmt.Sprintf("%s{many: %d}", e.Op, e.Many)
	case EditReplaceWith, EditInsertAfter, EditInsertBefore:
		return fmt.Sprintf("%s{root: %d, many: %d}", e.Op, e.Root, e.Many)
	case EditCreateTextNode, EditSetText:
		return fmt.Sprintf("%s{root: %d, text: %q}", e.Op, e.Root, e.Text)
	case EditCreateElement:
		return fmt.Sprintf("%s{root: %d, tag: %s}", e.Op, e.Root, e.Tag)
	case EditNewEventListener:
		return fmt.Sprintf("%s{root: %d, event: %s, scope: %d}", e.Op, e.Root, e.Name, e.Scope)
	case EditRemoveEventListener, EditRemoveAttribute:
		return fmt.Sprintf("%s{root: %d, name: %s}", e.Op, e.Root, e.Name)
	case EditSetAttribute:
		return fmt.Sprintf("%s{root: %d, name: %s, value: %q}", e.Op, e.Root, e.Name, e.Value)
	default:
		return fmt.Sprintf("Unknown(%d)", e.Op)
	}
}

// IsCreate reports whether the edit creates a new renderer node.
func (e Edit) IsCreate() bool {
	return e.Op == EditCreateElement || e.Op == EditCreateTextNode || e.Op == EditCreatePlaceholder
}

// IsRelease reports whether the edit releases the mount id it addresses.
func (e Edit) IsRelease() bool {
	return e.Op == EditRemove || e.Op == EditReplaceWith
}
