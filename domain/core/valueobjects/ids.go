package valueobjects

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NodeID is a value object holding a canvas node identifier.
// IDs are opaque strings: client-generated ones carry a variant prefix
// ("explore-ab12cd34ef56"), server-assigned ones follow the same scheme
// but are never reinterpreted here.
type NodeID struct {
	value string
}

// NewNodeID generates a fresh prefixed node ID.
func NewNodeID(prefix string) NodeID {
	return NodeID{value: prefix + "-" + shortHex()}
}

// DocumentRootID returns the deterministic ID of a document's root node.
func DocumentRootID(documentID string) NodeID {
	return NodeID{value: "doc-" + documentID}
}

// PageNodeID returns the deterministic ID of a page-summary node.
// Pages are 0-indexed.
func PageNodeID(documentID string, page int) NodeID {
	return NodeID{value: fmt.Sprintf("page-%s-%d", documentID, page)}
}

// NewNodeIDFromString wraps an existing identifier.
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// EdgeID is a value object holding a canvas edge identifier.
type EdgeID struct {
	value string
}

// NewEdgeID generates a fresh edge ID.
func NewEdgeID() EdgeID {
	return EdgeID{value: "edge-" + shortHex()}
}

// NewEdgeIDFromString wraps an existing identifier.
func NewEdgeIDFromString(id string) (EdgeID, error) {
	if id == "" {
		return EdgeID{}, errors.New("edge ID cannot be empty")
	}
	return EdgeID{value: id}, nil
}

// String returns the string representation of the EdgeID
func (id EdgeID) String() string {
	return id.value
}

// Equals checks if two EdgeIDs are equal
func (id EdgeID) Equals(other EdgeID) bool {
	return id.value == other.value
}

// IsZero checks if the EdgeID is the zero value
func (id EdgeID) IsZero() bool {
	return id.value == ""
}

// shortHex returns 12 hex characters of fresh randomness.
func shortHex() string {
	u := uuid.New()
	return fmt.Sprintf("%x", u[:6])
}
