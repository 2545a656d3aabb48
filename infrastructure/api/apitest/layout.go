package apitest

import (
	"papertree/domain/core/aggregates"
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

// Server-side layout algorithms, applied in place.

const (
	treeHSpace = 350.0
	treeVStep  = 250.0
	treeRootY  = 50.0
	treeRootX  = 50.0
	treeGap    = 100.0

	gridCols    = 4
	gridCellW   = 380.0
	gridCellH   = 280.0
	gridOriginX = 100.0
	gridOriginY = 50.0
)

func gridLayout(c *aggregates.Canvas) {
	for i, n := range c.Nodes() {
		x := gridOriginX + float64(i%gridCols)*gridCellW
		y := gridOriginY + float64(i/gridCols)*gridCellH
		pos, _ := valueobjects.NewPosition(x, y)
		n.MoveTo(pos)
	}
}

// treeLayout places leaves left to right, centers each parent above its
// children, and walks roots along the x axis with a fixed gap.
func treeLayout(c *aggregates.Canvas) {
	xCursor := treeRootX
	for _, root := range c.Roots() {
		xCursor = layoutSubtree(c, root, xCursor, treeRootY)
		xCursor += treeGap
	}
}

func layoutSubtree(c *aggregates.Canvas, node *entities.Node, x, y float64) float64 {
	children := c.ChildrenOf(node.ID())
	if len(children) == 0 {
		pos, _ := valueobjects.NewPosition(x, y)
		node.MoveTo(pos)
		return x + treeHSpace
	}

	childCursor := x
	for _, child := range children {
		childCursor = layoutSubtree(c, child, childCursor, y+treeVStep)
	}

	first := children[0].Position().X()
	last := children[len(children)-1].Position().X()
	pos, _ := valueobjects.NewPosition((first+last)/2, y)
	node.MoveTo(pos)

	if end := x + treeHSpace; childCursor < end {
		return end
	}
	return childCursor
}

// Template skeletons: each replaces the canvas with a themed structure
// hanging off the document root.

var templateBranches = map[string][]string{
	"summary-tree":    {"Key ideas", "Methods", "Results", "Open questions"},
	"question-branch": {"What problem does this solve?", "How does it work?", "What are the limits?"},
	"critique-map":    {"Claims", "Evidence", "Assumptions", "Weaknesses"},
	"concept-map":     {"Core concepts", "Definitions", "Relationships", "Examples"},
}

func applyTemplate(c *aggregates.Canvas, documentID, title, template string) bool {
	branches, ok := templateBranches[template]
	if !ok {
		return false
	}

	root := entities.NewDocumentRoot(documentID, title, "")
	nodes := []*entities.Node{root}
	var edges []*entities.Edge
	for i, label := range branches {
		pos, _ := valueobjects.NewPosition(100+float64(i)*treeHSpace, 300)
		note, err := entities.NewNote(label, root.ID(), pos)
		if err != nil {
			continue
		}
		nodes = append(nodes, note)
		if edge, err := entities.NewEdge(root.ID(), note.ID(), entities.EdgeBranch, ""); err == nil {
			edges = append(edges, edge)
		}
	}
	c.Replace(nodes, edges)
	treeLayout(c)
	return true
}
