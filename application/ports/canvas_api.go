// Package ports defines the interfaces this subsystem consumes from
// external collaborators. The backend that persists canvases and calls
// the language model lives behind CanvasAPI; implementations belong to
// the infrastructure layer.
package ports

import (
	"context"
	"time"

	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

// CanvasSnapshot is a full server-side copy of one canvas.
type CanvasSnapshot struct {
	Nodes     []*entities.Node
	Edges     []*entities.Edge
	UpdatedAt time.Time
}

// AskRequest branches a follow-up question from an existing node.
type AskRequest struct {
	ParentNodeID valueobjects.NodeID
	Question     string
	Mode         entities.AskMode
}

// AskResult carries the nodes and edges the assistant appended.
// Typically one response node and one edge from the parent to it.
type AskResult struct {
	Nodes []*entities.Node
	Edges []*entities.Edge
}

// ExploreRequest turns a reading-view highlight into a canvas branch.
type ExploreRequest struct {
	HighlightID string
	Question    string
	Mode        entities.AskMode
	Page        int // 0-indexed
}

// ExploreResult carries the exploration branch the server created. The
// page node is non-nil only when the server had to synthesize it.
type ExploreResult struct {
	PageNode        *entities.Node
	ExplorationNode *entities.Node
	AnswerNode      *entities.Node
	Edges           []*entities.Edge
}

// NoteRequest adds a user note, optionally attached to a parent node.
type NoteRequest struct {
	Content      string
	ParentNodeID valueobjects.NodeID  // zero = free-floating
	Position     *valueobjects.Position // nil = server picks placement
}

// NoteResult carries the created note and its edge, if parented.
type NoteResult struct {
	Node *entities.Node
	Edge *entities.Edge
}

// PopulateResult reports what auto-population created. The client
// refetches only when something was created.
type PopulateResult struct {
	PagesCreated        int
	ExplorationsCreated int
}

// Created reports whether anything changed server side.
func (r PopulateResult) Created() bool {
	return r.PagesCreated > 0 || r.ExplorationsCreated > 0
}

// Layout algorithm names accepted by AutoLayout.
const (
	LayoutTree = "tree"
	LayoutGrid = "grid"
)

// Template names accepted by GenerateTemplate.
const (
	TemplateSummaryTree    = "summary-tree"
	TemplateQuestionBranch = "question-branch"
	TemplateCritiqueMap    = "critique-map"
	TemplateConceptMap     = "concept-map"
)

// CanvasAPI is the network boundary to the canvas backend. All canvas
// persistence goes through it; this subsystem keeps no state on disk.
type CanvasAPI interface {
	// GetCanvas fetches the full canvas for a document, creating an
	// empty seeded one server side on first access.
	GetCanvas(ctx context.Context, documentID string) (*CanvasSnapshot, error)

	// SaveCanvas transmits the full node and edge collections.
	// Last write wins; there is no server-side locking.
	SaveCanvas(ctx context.Context, documentID string, nodes []*entities.Node, edges []*entities.Edge) error

	// AutoLayout repositions every node server side. The caller must
	// refetch afterwards.
	AutoLayout(ctx context.Context, documentID, algorithm string) error

	// GenerateTemplate replaces the canvas with a named skeleton. The
	// caller must refetch afterwards.
	GenerateTemplate(ctx context.Context, documentID, template string) error

	// AutoPopulate creates page and exploration nodes from document
	// structure. The caller refetches only when the counts are nonzero.
	AutoPopulate(ctx context.Context, documentID string) (PopulateResult, error)

	// Ask branches a follow-up question from a node.
	Ask(ctx context.Context, documentID string, req AskRequest) (*AskResult, error)

	// Explore turns a highlight into a page/exploration/answer branch.
	Explore(ctx context.Context, documentID string, req ExploreRequest) (*ExploreResult, error)

	// AddNote creates a note node server side.
	AddNote(ctx context.Context, documentID string, req NoteRequest) (*NoteResult, error)

	// DeleteNode removes a node and its descendants server side and
	// returns the removed IDs.
	DeleteNode(ctx context.Context, documentID string, nodeID valueobjects.NodeID) ([]string, error)
}
