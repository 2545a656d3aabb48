package api

// Wire types for the canvas backend. Field names follow the backend's
// snake_case JSON dialect. children_ids is accepted on reads for
// compatibility with older server payloads but never trusted and never
// sent: child lists are derived from parent_id alone.

type positionDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type nodeDataDTO struct {
	Label             string `json:"label"`
	Content           string `json:"content,omitempty"`
	ContentType       string `json:"content_type,omitempty"`
	Question          string `json:"question,omitempty"`
	AskMode           string `json:"ask_mode,omitempty"`
	SourcePage        *int   `json:"source_page,omitempty"`
	SourceHighlightID string `json:"source_highlight_id,omitempty"`
	IsCollapsed       bool   `json:"is_collapsed"`
	Status            string `json:"status,omitempty"`
	Color             string `json:"color,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

type nodeDTO struct {
	ID          string      `json:"id" validate:"required"`
	Type        string      `json:"type" validate:"required"`
	Position    positionDTO `json:"position"`
	Data        nodeDataDTO `json:"data"`
	ParentID    string      `json:"parent_id,omitempty"`
	ChildrenIDs []string    `json:"children_ids,omitempty"` // read-only compat, ignored
}

type edgeDTO struct {
	ID       string `json:"id" validate:"required"`
	Source   string `json:"source" validate:"required"`
	Target   string `json:"target" validate:"required"`
	Label    string `json:"label,omitempty"`
	EdgeType string `json:"edge_type,omitempty"`
}

type elementsDTO struct {
	Nodes []nodeDTO `json:"nodes" validate:"dive"`
	Edges []edgeDTO `json:"edges" validate:"dive"`
}

type canvasDTO struct {
	ID         string      `json:"id"`
	DocumentID string      `json:"document_id"`
	Elements   elementsDTO `json:"elements"`
	UpdatedAt  string      `json:"updated_at"`
}

type saveCanvasRequest struct {
	Elements elementsDTO `json:"elements"`
}

type layoutRequest struct {
	Algorithm string `json:"algorithm"`
}

type templateRequest struct {
	Template string `json:"template"`
}

type populateResponse struct {
	PagesCreated        int `json:"pages_created"`
	ExplorationsCreated int `json:"explorations_created"`
}

type askRequest struct {
	ParentNodeID string `json:"parent_node_id"`
	Question     string `json:"question"`
	AskMode      string `json:"ask_mode"`
}

type askResponse struct {
	Node nodeDTO `json:"node" validate:"required"`
	Edge edgeDTO `json:"edge" validate:"required"`
}

type exploreRequest struct {
	HighlightID string `json:"highlight_id"`
	Question    string `json:"question"`
	AskMode     string `json:"ask_mode"`
	PageNumber  int    `json:"page_number"`
}

type exploreResponse struct {
	PageNode        *nodeDTO  `json:"page_node,omitempty"`
	ExplorationNode nodeDTO   `json:"exploration_node" validate:"required"`
	AINode          nodeDTO   `json:"ai_node" validate:"required"`
	Edges           []edgeDTO `json:"edges" validate:"dive"`
}

type noteRequest struct {
	Content      string       `json:"content"`
	ParentNodeID string       `json:"parent_node_id,omitempty"`
	Position     *positionDTO `json:"position,omitempty"`
}

type noteResponse struct {
	Node nodeDTO  `json:"node" validate:"required"`
	Edge *edgeDTO `json:"edge,omitempty"`
}

type deleteResponse struct {
	Deleted []string `json:"deleted"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
