package apitest

import (
	"time"

	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

// Wire structs mirroring the backend's JSON dialect. The fake speaks
// the same snake_case shapes the real backend does so client tests
// exercise the exact encoding path.

type wirePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireNodeData struct {
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

type wireNode struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Position wirePosition `json:"position"`
	Data     wireNodeData `json:"data"`
	ParentID string       `json:"parent_id,omitempty"`
}

type wireEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Label    string `json:"label,omitempty"`
	EdgeType string `json:"edge_type,omitempty"`
}

type wireElements struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

type wireCanvas struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	Elements   wireElements `json:"elements"`
	UpdatedAt  string       `json:"updated_at"`
}

func encodeNode(n *entities.Node) wireNode {
	w := wireNode{
		ID:       n.ID().String(),
		Type:     string(n.Variant()),
		Position: wirePosition{X: n.Position().X(), Y: n.Position().Y()},
		Data: wireNodeData{
			Label:       n.Label(),
			Content:     n.Content().Body(),
			ContentType: string(n.Content().Type()),
			Question:    n.Question(),
			AskMode:     string(n.AskMode()),
			IsCollapsed: n.Collapsed(),
			Status:      string(n.Status()),
			Color:       n.Color(),
			CreatedAt:   n.CreatedAt().UTC().Format(time.RFC3339Nano),
			UpdatedAt:   n.UpdatedAt().UTC().Format(time.RFC3339Nano),
		},
	}
	if page, ok := n.SourceRef().Page(); ok {
		p := page
		w.Data.SourcePage = &p
	}
	w.Data.SourceHighlightID = n.SourceRef().HighlightID()
	if n.HasParent() {
		w.ParentID = n.ParentID().String()
	}
	return w
}

func decodeNode(w wireNode) (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(w.ID)
	if err != nil {
		return nil, err
	}
	pos, err := valueobjects.NewPosition(w.Position.X, w.Position.Y)
	if err != nil {
		return nil, err
	}
	contentType := valueobjects.ContentType(w.Data.ContentType)
	if w.Data.ContentType == "" {
		contentType = valueobjects.ContentMarkdown
	}
	content, err := valueobjects.NewNodeContent(w.Data.Content, contentType)
	if err != nil {
		return nil, err
	}
	var ref valueobjects.SourceRef
	switch {
	case w.Data.SourcePage != nil && w.Data.SourceHighlightID != "":
		ref = valueobjects.NewHighlightRef(*w.Data.SourcePage, w.Data.SourceHighlightID)
	case w.Data.SourcePage != nil:
		ref = valueobjects.NewPageRef(*w.Data.SourcePage)
	}
	var parentID valueobjects.NodeID
	if w.ParentID != "" {
		if parentID, err = valueobjects.NewNodeIDFromString(w.ParentID); err != nil {
			return nil, err
		}
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, w.Data.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, w.Data.UpdatedAt)
	return entities.ReconstructNode(
		id, entities.NodeVariant(w.Type), pos, w.Data.Label, content,
		w.Data.Question, entities.AskMode(w.Data.AskMode), ref, parentID,
		w.Data.IsCollapsed, entities.NodeStatus(w.Data.Status), w.Data.Color,
		createdAt, updatedAt,
	)
}

func encodeEdge(e *entities.Edge) wireEdge {
	return wireEdge{
		ID:       e.ID().String(),
		Source:   e.Source().String(),
		Target:   e.Target().String(),
		Label:    e.Label(),
		EdgeType: string(e.Variant()),
	}
}

func decodeEdge(w wireEdge) (*entities.Edge, error) {
	id, err := valueobjects.NewEdgeIDFromString(w.ID)
	if err != nil {
		return nil, err
	}
	source, err := valueobjects.NewNodeIDFromString(w.Source)
	if err != nil {
		return nil, err
	}
	target, err := valueobjects.NewNodeIDFromString(w.Target)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructEdge(id, source, target, entities.EdgeVariant(w.EdgeType), w.Label, time.Time{})
}

func encodeNodes(nodes []*entities.Node) []wireNode {
	out := make([]wireNode, len(nodes))
	for i, n := range nodes {
		out[i] = encodeNode(n)
	}
	return out
}

func encodeEdges(edges []*entities.Edge) []wireEdge {
	out := make([]wireEdge, len(edges))
	for i, e := range edges {
		out[i] = encodeEdge(e)
	}
	return out
}
