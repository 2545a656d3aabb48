package entities

import (
	"time"

	"papertree/domain/core/valueobjects"
	pkgerrors "papertree/pkg/errors"
)

// EdgeVariant controls how a connection is rendered.
type EdgeVariant string

const (
	EdgeDefault  EdgeVariant = "default"
	EdgeBranch   EdgeVariant = "branch"
	EdgeFollowUp EdgeVariant = "followup"
	EdgeNote     EdgeVariant = "note"
)

// Edge is a directed connection between two node IDs. Edges reference
// nodes by ID only and are a superset of the parent/child tree: users
// can wire any two nodes regardless of hierarchy.
type Edge struct {
	id        valueobjects.EdgeID
	source    valueobjects.NodeID
	target    valueobjects.NodeID
	variant   EdgeVariant
	label     string
	createdAt time.Time
}

// NewEdge creates an edge with validation.
func NewEdge(source, target valueobjects.NodeID, variant EdgeVariant, label string) (*Edge, error) {
	if source.IsZero() || target.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints are required")
	}
	if source.Equals(target) {
		return nil, pkgerrors.NewValidationError("cannot connect node to itself")
	}
	if !isValidEdgeVariant(variant) {
		variant = EdgeDefault
	}
	return &Edge{
		id:        valueobjects.NewEdgeID(),
		source:    source,
		target:    target,
		variant:   variant,
		label:     label,
		createdAt: time.Now(),
	}, nil
}

// ReconstructEdge rebuilds an edge from server data.
func ReconstructEdge(id valueobjects.EdgeID, source, target valueobjects.NodeID, variant EdgeVariant, label string, createdAt time.Time) (*Edge, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("edge ID is required")
	}
	if source.IsZero() || target.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints are required")
	}
	if !isValidEdgeVariant(variant) {
		variant = EdgeDefault
	}
	return &Edge{
		id:        id,
		source:    source,
		target:    target,
		variant:   variant,
		label:     label,
		createdAt: createdAt,
	}, nil
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.EdgeID {
	return e.id
}

// Source returns the origin node ID
func (e *Edge) Source() valueobjects.NodeID {
	return e.source
}

// Target returns the destination node ID
func (e *Edge) Target() valueobjects.NodeID {
	return e.target
}

// Variant returns the edge's render variant
func (e *Edge) Variant() EdgeVariant {
	return e.variant
}

// Label returns the edge's display label, usually empty
func (e *Edge) Label() string {
	return e.label
}

// CreatedAt returns when the edge was created
func (e *Edge) CreatedAt() time.Time {
	return e.createdAt
}

// Touches checks whether either endpoint is the given node.
func (e *Edge) Touches(id valueobjects.NodeID) bool {
	return e.source.Equals(id) || e.target.Equals(id)
}

// Clone returns an independent copy of the edge.
func (e *Edge) Clone() *Edge {
	c := *e
	return &c
}

func isValidEdgeVariant(v EdgeVariant) bool {
	switch v {
	case EdgeDefault, EdgeBranch, EdgeFollowUp, EdgeNote:
		return true
	default:
		return false
	}
}
