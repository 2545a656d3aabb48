package flow

import "papertree/domain/core/entities"

// Edge is the editing surface's view of one connection.
type Edge struct {
	ID     string
	Source string
	Target string
	Label  string
	Style  EdgeStyle
}

// EdgeStyle is the render descriptor for an edge variant.
type EdgeStyle struct {
	Animated    bool
	StrokeWidth float64
	DashArray   string
}

// edgeStyles is the single lookup table mapping edge variants to their
// render style. Adding a variant is a one-row change here.
var edgeStyles = map[entities.EdgeVariant]EdgeStyle{
	entities.EdgeDefault:  {StrokeWidth: 1.5},
	entities.EdgeBranch:   {StrokeWidth: 2},
	entities.EdgeFollowUp: {Animated: true, StrokeWidth: 2},
	entities.EdgeNote:     {StrokeWidth: 1, DashArray: "4 4"},
}

// StyleFor returns the render style for an edge variant, falling back
// to the default variant's style for anything unknown.
func StyleFor(variant entities.EdgeVariant) EdgeStyle {
	if style, ok := edgeStyles[variant]; ok {
		return style
	}
	return edgeStyles[entities.EdgeDefault]
}

// ToEdge converts a domain edge for the editing surface.
func ToEdge(edge *entities.Edge) Edge {
	return Edge{
		ID:     edge.ID().String(),
		Source: edge.Source().String(),
		Target: edge.Target().String(),
		Label:  edge.Label(),
		Style:  StyleFor(edge.Variant()),
	}
}

// ToEdges converts the full collection.
func ToEdges(edges []*entities.Edge) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = ToEdge(e)
	}
	return out
}
