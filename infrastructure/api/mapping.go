package api

import (
	"time"

	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
	pkgerrors "papertree/pkg/errors"
)

func nodeToDTO(n *entities.Node) nodeDTO {
	dto := nodeDTO{
		ID:       n.ID().String(),
		Type:     string(n.Variant()),
		Position: positionDTO{X: n.Position().X(), Y: n.Position().Y()},
		Data: nodeDataDTO{
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
		dto.Data.SourcePage = &p
	}
	dto.Data.SourceHighlightID = n.SourceRef().HighlightID()
	if n.HasParent() {
		dto.ParentID = n.ParentID().String()
	}
	return dto
}

func nodeFromDTO(dto nodeDTO) (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(dto.ID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("malformed node payload: " + err.Error())
	}

	pos, err := valueobjects.NewPosition(dto.Position.X, dto.Position.Y)
	if err != nil {
		return nil, err
	}

	contentType := valueobjects.ContentType(dto.Data.ContentType)
	if dto.Data.ContentType == "" {
		contentType = valueobjects.ContentMarkdown
	}
	content, err := valueobjects.NewNodeContent(dto.Data.Content, contentType)
	if err != nil {
		return nil, err
	}

	var ref valueobjects.SourceRef
	switch {
	case dto.Data.SourcePage != nil && dto.Data.SourceHighlightID != "":
		ref = valueobjects.NewHighlightRef(*dto.Data.SourcePage, dto.Data.SourceHighlightID)
	case dto.Data.SourcePage != nil:
		ref = valueobjects.NewPageRef(*dto.Data.SourcePage)
	}

	var parentID valueobjects.NodeID
	if dto.ParentID != "" {
		parentID, err = valueobjects.NewNodeIDFromString(dto.ParentID)
		if err != nil {
			return nil, err
		}
	}

	createdAt := parseTime(dto.Data.CreatedAt)
	updatedAt := parseTime(dto.Data.UpdatedAt)
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	return entities.ReconstructNode(
		id,
		entities.NodeVariant(dto.Type),
		pos,
		dto.Data.Label,
		content,
		dto.Data.Question,
		entities.AskMode(dto.Data.AskMode),
		ref,
		parentID,
		dto.Data.IsCollapsed,
		entities.NodeStatus(dto.Data.Status),
		dto.Data.Color,
		createdAt,
		updatedAt,
	)
}

func edgeToDTO(e *entities.Edge) edgeDTO {
	return edgeDTO{
		ID:       e.ID().String(),
		Source:   e.Source().String(),
		Target:   e.Target().String(),
		Label:    e.Label(),
		EdgeType: string(e.Variant()),
	}
}

func edgeFromDTO(dto edgeDTO) (*entities.Edge, error) {
	id, err := valueobjects.NewEdgeIDFromString(dto.ID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("malformed edge payload: " + err.Error())
	}
	source, err := valueobjects.NewNodeIDFromString(dto.Source)
	if err != nil {
		return nil, err
	}
	target, err := valueobjects.NewNodeIDFromString(dto.Target)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructEdge(id, source, target, entities.EdgeVariant(dto.EdgeType), dto.Label, time.Time{})
}

func nodesToDTO(nodes []*entities.Node) []nodeDTO {
	out := make([]nodeDTO, len(nodes))
	for i, n := range nodes {
		out[i] = nodeToDTO(n)
	}
	return out
}

func nodesFromDTO(dtos []nodeDTO) ([]*entities.Node, error) {
	out := make([]*entities.Node, 0, len(dtos))
	for _, dto := range dtos {
		n, err := nodeFromDTO(dto)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func edgesToDTO(edges []*entities.Edge) []edgeDTO {
	out := make([]edgeDTO, len(edges))
	for i, e := range edges {
		out[i] = edgeToDTO(e)
	}
	return out
}

func edgesFromDTO(dtos []edgeDTO) ([]*entities.Edge, error) {
	out := make([]*entities.Edge, 0, len(dtos))
	for _, dto := range dtos {
		e, err := edgeFromDTO(dto)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
