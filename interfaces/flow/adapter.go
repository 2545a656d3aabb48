// Package flow converts between the domain model and the node/edge
// representation the interactive editing surface consumes. The
// conversion is pure: presented nodes carry flattened content plus
// UI callback closures, and the inverse direction trusts the original
// entity for everything the editing surface does not own. Position is
// the one field the editing surface is authoritative for.
package flow

import (
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

// Node is the editing surface's view of one canvas node.
type Node struct {
	ID          string
	Variant     entities.NodeVariant
	Position    valueobjects.Position
	Label       string
	Content     string
	ContentType valueobjects.ContentType
	Question    string
	SourceRef   valueobjects.SourceRef
	Collapsed   bool
	Status      entities.NodeStatus
	Color       string
	ChildCount  int
	Hooks       NodeHooks
}

// NodeHooks are the UI actions wired into one presented node. Each
// closure is bound to that node's ID at conversion time.
type NodeHooks struct {
	ToggleCollapse func()
	Delete         func()
	Navigate       func()
	AskFollowUp    func(question string)
	AddNote        func(content string)
	UpdateContent  func(body string)
}

// Callbacks are the UI actions the host application supplies once per
// render; the adapter binds them per node.
type Callbacks struct {
	ToggleCollapse func(id valueobjects.NodeID)
	Delete         func(id valueobjects.NodeID)
	Navigate       func(ref valueobjects.SourceRef)
	AskFollowUp    func(id valueobjects.NodeID, question string)
	AddNote        func(id valueobjects.NodeID, content string)
	UpdateContent  func(id valueobjects.NodeID, body string)
}

// ToNode converts a domain node for the editing surface. The child
// count is derived live by scanning allNodes; cached counts are never
// trusted.
func ToNode(node *entities.Node, allNodes []*entities.Node, cb Callbacks) Node {
	id := node.ID()
	ref := node.SourceRef()

	children := 0
	for _, other := range allNodes {
		if other.HasParent() && other.ParentID().Equals(id) {
			children++
		}
	}

	hooks := NodeHooks{}
	if cb.ToggleCollapse != nil {
		hooks.ToggleCollapse = func() { cb.ToggleCollapse(id) }
	}
	if cb.Delete != nil {
		hooks.Delete = func() { cb.Delete(id) }
	}
	if cb.Navigate != nil && !ref.IsZero() {
		hooks.Navigate = func() { cb.Navigate(ref) }
	}
	if cb.AskFollowUp != nil {
		hooks.AskFollowUp = func(question string) { cb.AskFollowUp(id, question) }
	}
	if cb.AddNote != nil {
		hooks.AddNote = func(content string) { cb.AddNote(id, content) }
	}
	if cb.UpdateContent != nil {
		hooks.UpdateContent = func(body string) { cb.UpdateContent(id, body) }
	}

	return Node{
		ID:          id.String(),
		Variant:     node.Variant(),
		Position:    node.Position(),
		Label:       node.Label(),
		Content:     node.Content().Body(),
		ContentType: node.Content().Type(),
		Question:    node.Question(),
		SourceRef:   ref,
		Collapsed:   node.Collapsed(),
		Status:      node.Status(),
		Color:       node.Color(),
		ChildCount:  children,
		Hooks:       hooks,
	}
}

// ToNodes converts the full collection.
func ToNodes(nodes []*entities.Node, cb Callbacks) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = ToNode(n, nodes, cb)
	}
	return out
}

// FromNode maps a presented node back onto its original entity for
// persistence. The editing surface owns only position and transient UI
// state, so variant, parent, content, and timestamps are restored from
// the original rather than reinvented. Callbacks are discarded.
func FromNode(presented Node, original *entities.Node) *entities.Node {
	restored := original.Clone()
	restored.MoveTo(presented.Position)
	return restored
}
