package aggregates

import (
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

// Placement rules for programmatically created nodes. Pages form a
// horizontal backbone under the document root; explorations and answers
// fan out below their parent, offset per existing sibling so new
// branches never land on top of each other.

// NextPagePosition returns where the next page-summary node goes.
func (c *Canvas) NextPagePosition() valueobjects.Position {
	pages := 0
	for _, n := range c.nodes {
		if n.Variant() == entities.VariantPageSummary {
			pages++
		}
	}
	pos, _ := valueobjects.NewPosition(100+float64(pages)*400, 250)
	return pos
}

// ExplorationPosition returns where a new excerpt under the given page
// node goes.
func (c *Canvas) ExplorationPosition(pageID valueobjects.NodeID) valueobjects.Position {
	base, _ := valueobjects.NewPosition(100, 250)
	if page, ok := c.Node(pageID); ok {
		base = page.Position()
	}
	siblings := 0
	for _, n := range c.nodes {
		if !n.HasParent() || !n.ParentID().Equals(pageID) {
			continue
		}
		if n.Variant() == entities.VariantExploration || n.Variant() == entities.VariantNote {
			siblings++
		}
	}
	return base.Translate(-150+float64(siblings)*380, 220)
}

// AnswerPosition returns where a new assistant response under the given
// parent goes.
func (c *Canvas) AnswerPosition(parentID valueobjects.NodeID) valueobjects.Position {
	base, _ := valueobjects.NewPosition(400, 400)
	if parent, ok := c.Node(parentID); ok {
		base = parent.Position()
	}
	siblings := c.ChildCount(parentID)
	return base.Translate(-100+float64(siblings)*350, 250)
}

// NotePosition returns where a new note goes: beside its parent when it
// has one, in free space otherwise.
func (c *Canvas) NotePosition(parentID valueobjects.NodeID) valueobjects.Position {
	if parentID.IsZero() {
		pos, _ := valueobjects.NewPosition(800, 300)
		return pos
	}
	base, _ := valueobjects.NewPosition(400, 400)
	if parent, ok := c.Node(parentID); ok {
		base = parent.Position()
	}
	siblings := 0
	for _, n := range c.nodes {
		if n.HasParent() && n.ParentID().Equals(parentID) && n.Variant() == entities.VariantNote {
			siblings++
		}
	}
	return base.Translate(350+float64(siblings)*250, 50)
}
