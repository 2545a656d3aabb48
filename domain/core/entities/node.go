package entities

import (
	"time"

	"papertree/domain/core/valueobjects"
	pkgerrors "papertree/pkg/errors"
)

// NodeVariant selects the renderer and default behaviors for a node.
// The set is closed: adding a variant means extending this list and the
// presentation style table, nothing else.
type NodeVariant string

const (
	VariantDocumentRoot      NodeVariant = "document_root"
	VariantPageSummary       NodeVariant = "page_summary"
	VariantExploration       NodeVariant = "exploration"
	VariantAssistantResponse NodeVariant = "assistant_response"
	VariantNote              NodeVariant = "note"
)

// NodeStatus tracks a node's async lifecycle. Only assistant-response
// parents move through loading/error; everything else stays complete.
type NodeStatus string

const (
	StatusIdle     NodeStatus = "idle"
	StatusLoading  NodeStatus = "loading"
	StatusError    NodeStatus = "error"
	StatusComplete NodeStatus = "complete"
)

// AskMode tags the kind of answer requested from the assistant.
type AskMode string

const (
	AskExplainSimply AskMode = "explain_simply"
	AskExplainMath   AskMode = "explain_math"
	AskDeriveSteps   AskMode = "derive_steps"
	AskIntuition     AskMode = "intuition"
	AskPseudocode    AskMode = "pseudocode"
	AskDiagram       AskMode = "diagram"
	AskCustom        AskMode = "custom"
)

const noteColor = "#fbbf24"

// Node is a unit of content on the exploration canvas.
//
// parentID is the single source of truth for hierarchy. Children are
// always derived by scanning; a node never records its own children.
type Node struct {
	id        valueobjects.NodeID
	variant   NodeVariant
	position  valueobjects.Position
	label     string
	content   valueobjects.NodeContent
	question  string
	askMode   AskMode
	sourceRef valueobjects.SourceRef
	parentID  valueobjects.NodeID // zero when the node is a root
	collapsed bool
	status    NodeStatus
	color     string
	createdAt time.Time
	updatedAt time.Time
}

// NewDocumentRoot creates the seed node for a document's canvas.
func NewDocumentRoot(documentID, title, summary string) *Node {
	pos, _ := valueobjects.NewPosition(400, 50)
	now := time.Now()
	return &Node{
		id:        valueobjects.DocumentRootID(documentID),
		variant:   VariantDocumentRoot,
		position:  pos,
		label:     title,
		content:   valueobjects.MarkdownContent(summary),
		status:    StatusComplete,
		createdAt: now,
		updatedAt: now,
	}
}

// NewPageSummary creates the collapsible backbone node for a page.
// Pages with no summary yet start idle.
func NewPageSummary(documentID string, page int, title, summary string, position valueobjects.Position) *Node {
	status := StatusComplete
	if summary == "" {
		status = StatusIdle
	}
	now := time.Now()
	return &Node{
		id:        valueobjects.PageNodeID(documentID, page),
		variant:   VariantPageSummary,
		position:  position,
		label:     title,
		content:   valueobjects.MarkdownContent(summary),
		sourceRef: valueobjects.NewPageRef(page),
		parentID:  valueobjects.DocumentRootID(documentID),
		collapsed: true,
		status:    status,
		createdAt: now,
		updatedAt: now,
	}
}

// NewExploration creates an excerpt node for highlighted text.
func NewExploration(selectedText string, ref valueobjects.SourceRef, parentID valueobjects.NodeID, position valueobjects.Position) *Node {
	content := valueobjects.PlainContent(selectedText)
	now := time.Now()
	return &Node{
		id:        valueobjects.NewNodeID("explore"),
		variant:   VariantExploration,
		position:  position,
		label:     content.Summary(60),
		content:   content,
		sourceRef: ref,
		parentID:  parentID,
		status:    StatusComplete,
		createdAt: now,
		updatedAt: now,
	}
}

// NewAssistantResponse creates an answer node branching from parentID.
func NewAssistantResponse(question string, mode AskMode, answer string, ref valueobjects.SourceRef, parentID valueobjects.NodeID, position valueobjects.Position) *Node {
	q := valueobjects.PlainContent(question)
	now := time.Now()
	return &Node{
		id:        valueobjects.NewNodeID("ai"),
		variant:   VariantAssistantResponse,
		position:  position,
		label:     "AI: " + q.Summary(40),
		content:   valueobjects.MarkdownContent(answer),
		question:  question,
		askMode:   mode,
		sourceRef: ref,
		parentID:  parentID,
		status:    StatusComplete,
		createdAt: now,
		updatedAt: now,
	}
}

// NewNote creates a user sticky note, optionally attached to a parent.
func NewNote(content string, parentID valueobjects.NodeID, position valueobjects.Position) (*Node, error) {
	c := valueobjects.PlainContent(content)
	if c.IsEmpty() {
		return nil, pkgerrors.NewValidationError("note content cannot be empty")
	}
	now := time.Now()
	return &Node{
		id:        valueobjects.NewNodeID("note"),
		variant:   VariantNote,
		position:  position,
		label:     c.Summary(40),
		content:   c,
		parentID:  parentID,
		status:    StatusComplete,
		color:     noteColor,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructNode rebuilds a node from server data with preserved fields.
func ReconstructNode(
	id valueobjects.NodeID,
	variant NodeVariant,
	position valueobjects.Position,
	label string,
	content valueobjects.NodeContent,
	question string,
	mode AskMode,
	ref valueobjects.SourceRef,
	parentID valueobjects.NodeID,
	collapsed bool,
	status NodeStatus,
	color string,
	createdAt, updatedAt time.Time,
) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID is required")
	}
	if !isValidVariant(variant) {
		return nil, pkgerrors.NewValidationError("unknown node variant: " + string(variant))
	}
	if !isValidStatus(status) {
		status = StatusComplete
	}
	return &Node{
		id:        id,
		variant:   variant,
		position:  position,
		label:     label,
		content:   content,
		question:  question,
		askMode:   mode,
		sourceRef: ref,
		parentID:  parentID,
		collapsed: collapsed,
		status:    status,
		color:     color,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Variant returns which kind of node this is
func (n *Node) Variant() NodeVariant {
	return n.variant
}

// Position returns the node's canvas position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// Label returns the node's display label
func (n *Node) Label() string {
	return n.label
}

// Content returns the node's payload
func (n *Node) Content() valueobjects.NodeContent {
	return n.content
}

// Question returns the question an assistant-response node answered
func (n *Node) Question() string {
	return n.question
}

// AskMode returns the ask mode of an assistant-response node
func (n *Node) AskMode() AskMode {
	return n.askMode
}

// SourceRef returns the node's pointer back into the document
func (n *Node) SourceRef() valueobjects.SourceRef {
	return n.sourceRef
}

// ParentID returns the node that spawned this one, zero for roots.
// This is a weak back-reference: a parent link may exist without a
// rendered edge, and edges may connect non-parents.
func (n *Node) ParentID() valueobjects.NodeID {
	return n.parentID
}

// HasParent checks whether the node hangs off another node
func (n *Node) HasParent() bool {
	return !n.parentID.IsZero()
}

// Collapsed returns the node's collapse state
func (n *Node) Collapsed() bool {
	return n.collapsed
}

// Status returns the node's async lifecycle state
func (n *Node) Status() NodeStatus {
	return n.status
}

// Color returns the node's accent color, empty for variant default
func (n *Node) Color() string {
	return n.color
}

// CreatedAt returns when the node was created
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the node was last updated
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// MoveTo moves the node without touching content timestamps: position
// changes are high-frequency during drag and must stay cheap.
func (n *Node) MoveTo(position valueobjects.Position) {
	n.position = position
}

// UpdateContent replaces the node's payload and bumps updatedAt.
func (n *Node) UpdateContent(content valueobjects.NodeContent) {
	if content.Equals(n.content) {
		return
	}
	n.content = content
	n.updatedAt = time.Now()
}

// ToggleCollapse flips the collapse state.
func (n *Node) ToggleCollapse() {
	n.collapsed = !n.collapsed
	n.updatedAt = time.Now()
}

// SetStatus moves the node through its async lifecycle.
func (n *Node) SetStatus(status NodeStatus) {
	if !isValidStatus(status) || status == n.status {
		return
	}
	n.status = status
	n.updatedAt = time.Now()
}

// NodeUpdate is a shallow partial update. Nil fields are left untouched.
type NodeUpdate struct {
	Label     *string
	Content   *valueobjects.NodeContent
	Collapsed *bool
	Status    *NodeStatus
	Color     *string
}

// Apply merges a partial update into the node and bumps updatedAt.
func (n *Node) Apply(u NodeUpdate) {
	if u.Label != nil {
		n.label = *u.Label
	}
	if u.Content != nil {
		n.content = *u.Content
	}
	if u.Collapsed != nil {
		n.collapsed = *u.Collapsed
	}
	if u.Status != nil && isValidStatus(*u.Status) {
		n.status = *u.Status
	}
	if u.Color != nil {
		n.color = *u.Color
	}
	n.updatedAt = time.Now()
}

// Clone returns an independent copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	return &c
}

func isValidVariant(v NodeVariant) bool {
	switch v {
	case VariantDocumentRoot, VariantPageSummary, VariantExploration, VariantAssistantResponse, VariantNote:
		return true
	default:
		return false
	}
}

func isValidStatus(s NodeStatus) bool {
	switch s {
	case StatusIdle, StatusLoading, StatusError, StatusComplete:
		return true
	default:
		return false
	}
}
