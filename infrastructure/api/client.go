// Package api implements the CanvasAPI port over HTTP against the
// canvas backend. Transport failures, malformed payloads, and backend
// errors map onto the pkg/errors taxonomy; callers decide retry policy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"papertree/application/ports"
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
	pkgerrors "papertree/pkg/errors"
)

// Client talks to the canvas backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	validate   *validator.Validate
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token forwarded on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a canvas backend client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.CanvasAPI = (*Client)(nil)

// GetCanvas fetches the full canvas for a document.
func (c *Client) GetCanvas(ctx context.Context, documentID string) (*ports.CanvasSnapshot, error) {
	var dto canvasDTO
	if err := c.do(ctx, http.MethodGet, c.canvasPath(documentID), nil, &dto); err != nil {
		return nil, err
	}
	nodes, err := nodesFromDTO(dto.Elements.Nodes)
	if err != nil {
		return nil, err
	}
	edges, err := edgesFromDTO(dto.Elements.Edges)
	if err != nil {
		return nil, err
	}
	return &ports.CanvasSnapshot{
		Nodes:     nodes,
		Edges:     edges,
		UpdatedAt: parseTime(dto.UpdatedAt),
	}, nil
}

// SaveCanvas transmits the full node and edge collections.
func (c *Client) SaveCanvas(ctx context.Context, documentID string, nodes []*entities.Node, edges []*entities.Edge) error {
	req := saveCanvasRequest{Elements: elementsDTO{
		Nodes: nodesToDTO(nodes),
		Edges: edgesToDTO(edges),
	}}
	return c.do(ctx, http.MethodPut, c.canvasPath(documentID), req, nil)
}

// AutoLayout asks the server to reposition every node.
func (c *Client) AutoLayout(ctx context.Context, documentID, algorithm string) error {
	return c.do(ctx, http.MethodPost, c.canvasPath(documentID)+"/layout", layoutRequest{Algorithm: algorithm}, nil)
}

// GenerateTemplate asks the server to replace the canvas with a skeleton.
func (c *Client) GenerateTemplate(ctx context.Context, documentID, template string) error {
	return c.do(ctx, http.MethodPost, c.canvasPath(documentID)+"/template", templateRequest{Template: template}, nil)
}

// AutoPopulate asks the server to seed pages and explorations.
func (c *Client) AutoPopulate(ctx context.Context, documentID string) (ports.PopulateResult, error) {
	var resp populateResponse
	if err := c.do(ctx, http.MethodPost, c.canvasPath(documentID)+"/populate", nil, &resp); err != nil {
		return ports.PopulateResult{}, err
	}
	return ports.PopulateResult{
		PagesCreated:        resp.PagesCreated,
		ExplorationsCreated: resp.ExplorationsCreated,
	}, nil
}

// Ask branches a follow-up question from a node.
func (c *Client) Ask(ctx context.Context, documentID string, req ports.AskRequest) (*ports.AskResult, error) {
	body := askRequest{
		ParentNodeID: req.ParentNodeID.String(),
		Question:     req.Question,
		AskMode:      string(req.Mode),
	}
	var resp askResponse
	if err := c.do(ctx, http.MethodPost, c.canvasPath(documentID)+"/ask", body, &resp); err != nil {
		return nil, err
	}
	node, err := nodeFromDTO(resp.Node)
	if err != nil {
		return nil, err
	}
	edge, err := edgeFromDTO(resp.Edge)
	if err != nil {
		return nil, err
	}
	return &ports.AskResult{
		Nodes: []*entities.Node{node},
		Edges: []*entities.Edge{edge},
	}, nil
}

// Explore turns a highlight into a canvas branch.
func (c *Client) Explore(ctx context.Context, documentID string, req ports.ExploreRequest) (*ports.ExploreResult, error) {
	body := exploreRequest{
		HighlightID: req.HighlightID,
		Question:    req.Question,
		AskMode:     string(req.Mode),
		PageNumber:  req.Page,
	}
	var resp exploreResponse
	if err := c.do(ctx, http.MethodPost, c.canvasPath(documentID)+"/explore", body, &resp); err != nil {
		return nil, err
	}

	result := &ports.ExploreResult{}
	var err error
	if resp.PageNode != nil {
		if result.PageNode, err = nodeFromDTO(*resp.PageNode); err != nil {
			return nil, err
		}
	}
	if result.ExplorationNode, err = nodeFromDTO(resp.ExplorationNode); err != nil {
		return nil, err
	}
	if result.AnswerNode, err = nodeFromDTO(resp.AINode); err != nil {
		return nil, err
	}
	if result.Edges, err = edgesFromDTO(resp.Edges); err != nil {
		return nil, err
	}
	return result, nil
}

// AddNote creates a note node server side.
func (c *Client) AddNote(ctx context.Context, documentID string, req ports.NoteRequest) (*ports.NoteResult, error) {
	body := noteRequest{Content: req.Content}
	if !req.ParentNodeID.IsZero() {
		body.ParentNodeID = req.ParentNodeID.String()
	}
	if req.Position != nil {
		body.Position = &positionDTO{X: req.Position.X(), Y: req.Position.Y()}
	}
	var resp noteResponse
	if err := c.do(ctx, http.MethodPost, c.canvasPath(documentID)+"/note", body, &resp); err != nil {
		return nil, err
	}
	node, err := nodeFromDTO(resp.Node)
	if err != nil {
		return nil, err
	}
	result := &ports.NoteResult{Node: node}
	if resp.Edge != nil {
		if result.Edge, err = edgeFromDTO(*resp.Edge); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// DeleteNode removes a node and its descendants server side.
func (c *Client) DeleteNode(ctx context.Context, documentID string, nodeID valueobjects.NodeID) ([]string, error) {
	var resp deleteResponse
	path := c.canvasPath(documentID) + "/nodes/" + url.PathEscape(nodeID.String())
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Deleted, nil
}

func (c *Client) canvasPath(documentID string) string {
	return "/documents/" + url.PathEscape(documentID) + "/canvas"
}

// do performs one request with JSON encoding on both sides. Responses
// are validated before use: a payload the backend should never emit is
// a validation failure, not a cryptic nil dereference later.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.NewInternalError("encode request: " + err.Error())
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.NewInternalError("build request: " + err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.NewNetworkError(fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.NewNotFoundError("canvas resource")
	}
	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		detail := apiErr.Detail
		if detail == "" {
			detail = resp.Status
		}
		return pkgerrors.NewExternalError("canvas-api", fmt.Errorf("%s %s: %s", method, path, detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.NewValidationError("malformed server payload: " + err.Error())
	}
	if err := c.validate.Struct(out); err != nil {
		return pkgerrors.NewValidationError("malformed server payload: " + err.Error())
	}
	return nil
}
