// Package assist implements the assistant-append protocol: ask a
// question from a node, explore a highlight, add a note, delete a
// branch. Each call round-trips the backend, then appends the returned
// elements to the local store; the store's idempotent inserts make
// duplicate delivery harmless.
package assist

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"papertree/application/ports"
	"papertree/application/store"
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
	pkgerrors "papertree/pkg/errors"
)

// Asker appends assistant-generated branches to a canvas session. Safe
// for concurrent use; each ask tracks its own in-flight state, so two
// questions on the same node resolve independently.
type Asker struct {
	store   *store.Store
	api     ports.CanvasAPI
	limiter *rate.Limiter
	logger  *zap.Logger

	mu       sync.Mutex
	inflight map[string]int
	failed   map[string]bool
}

// Option configures an Asker.
type Option func(*Asker)

// WithLimiter throttles outgoing assistant requests. Waiting requests
// keep their parent in the loading state.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *Asker) { a.limiter = l }
}

// New creates an Asker bound to one store and one backend.
func New(st *store.Store, api ports.CanvasAPI, logger *zap.Logger, opts ...Option) *Asker {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Asker{
		store:    st,
		api:      api,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		logger:   logger,
		inflight: make(map[string]int),
		failed:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask branches a follow-up question from an existing node. The parent
// shows loading while any of its asks are in flight and settles to
// complete or error when the last one resolves.
func (a *Asker) Ask(ctx context.Context, parentID valueobjects.NodeID, question string, mode entities.AskMode) (*ports.AskResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, pkgerrors.NewValidationError("question is required")
	}
	if !a.store.HasNode(parentID) {
		return nil, pkgerrors.NewNotFoundError("parent node " + parentID.String())
	}

	a.begin(parentID)
	result, err := a.dispatch(ctx, parentID, question, mode)
	a.end(parentID, err != nil)
	return result, err
}

func (a *Asker) dispatch(ctx context.Context, parentID valueobjects.NodeID, question string, mode entities.AskMode) (*ports.AskResult, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := a.api.Ask(ctx, a.store.DocumentID(), ports.AskRequest{
		ParentNodeID: parentID,
		Question:     question,
		Mode:         mode,
	})
	if err != nil {
		a.logger.Warn("ask failed",
			zap.String("parent", parentID.String()),
			zap.Error(err))
		return nil, err
	}

	a.append(result.Nodes, result.Edges)
	return result, nil
}

// Explore turns a reading-view highlight into a canvas branch: a page
// node when the server had to create one, an exploration node for the
// excerpt, and an assistant answer under it.
func (a *Asker) Explore(ctx context.Context, req ports.ExploreRequest) (*ports.ExploreResult, error) {
	if req.HighlightID == "" {
		return nil, pkgerrors.NewValidationError("highlight ID is required")
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := a.api.Explore(ctx, a.store.DocumentID(), req)
	if err != nil {
		a.logger.Warn("explore failed",
			zap.String("highlight", req.HighlightID),
			zap.Error(err))
		return nil, err
	}

	nodes := []*entities.Node{result.ExplorationNode, result.AnswerNode}
	if result.PageNode != nil {
		nodes = append([]*entities.Node{result.PageNode}, nodes...)
	}
	a.append(nodes, result.Edges)
	return result, nil
}

// AddNote creates a note via the backend and appends it locally.
func (a *Asker) AddNote(ctx context.Context, req ports.NoteRequest) (*ports.NoteResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, pkgerrors.NewValidationError("note content is required")
	}
	if !req.ParentNodeID.IsZero() && !a.store.HasNode(req.ParentNodeID) {
		return nil, pkgerrors.NewNotFoundError("parent node " + req.ParentNodeID.String())
	}

	result, err := a.api.AddNote(ctx, a.store.DocumentID(), req)
	if err != nil {
		return nil, err
	}

	var edges []*entities.Edge
	if result.Edge != nil {
		edges = append(edges, result.Edge)
	}
	a.append([]*entities.Node{result.Node}, edges)
	return result, nil
}

// DeleteNode removes a branch optimistically: the subtree disappears
// from the store first, then the backend is told. A backend failure is
// returned but does not resurrect the local removal; the next save
// reconciles.
func (a *Asker) DeleteNode(ctx context.Context, id valueobjects.NodeID) ([]valueobjects.NodeID, error) {
	removed := a.store.RemoveNode(id)
	if len(removed) == 0 {
		return nil, pkgerrors.NewNotFoundError("node " + id.String())
	}

	if _, err := a.api.DeleteNode(ctx, a.store.DocumentID(), id); err != nil {
		a.logger.Warn("server-side delete failed",
			zap.String("node", id.String()),
			zap.Error(err))
		return removed, err
	}
	return removed, nil
}

// append inserts server-created elements, nodes before edges so edge
// endpoints always exist.
func (a *Asker) append(nodes []*entities.Node, edges []*entities.Edge) {
	for _, n := range nodes {
		if n != nil {
			a.store.AddNode(n)
		}
	}
	for _, e := range edges {
		if e != nil {
			a.store.AddEdge(e)
		}
	}
}

// begin marks one more ask in flight on a node.
func (a *Asker) begin(id valueobjects.NodeID) {
	a.mu.Lock()
	key := id.String()
	a.inflight[key]++
	first := a.inflight[key] == 1
	if first {
		delete(a.failed, key)
	}
	a.mu.Unlock()
	if first {
		a.store.SetNodeStatus(id, entities.StatusLoading)
	}
}

// end resolves one ask; the node's status settles when the last
// in-flight ask on it finishes.
func (a *Asker) end(id valueobjects.NodeID, failed bool) {
	a.mu.Lock()
	key := id.String()
	if failed {
		a.failed[key] = true
	}
	a.inflight[key]--
	last := a.inflight[key] <= 0
	var status entities.NodeStatus
	if last {
		delete(a.inflight, key)
		status = entities.StatusComplete
		if a.failed[key] {
			status = entities.StatusError
		}
		delete(a.failed, key)
	}
	a.mu.Unlock()
	if last {
		a.store.SetNodeStatus(id, status)
	}
}

// Pending reports how many asks are in flight on a node.
func (a *Asker) Pending(id valueobjects.NodeID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inflight[id.String()]
}
