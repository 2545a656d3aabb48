// Package store holds the client-side mutable state for one canvas
// session: the node and edge collections, the dirty flag, and the last
// persisted timestamp. All mutations are synchronous, in-memory, and
// cannot fail; fallible work lives in the sync engine and the assist
// protocol.
package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"papertree/domain/core/aggregates"
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

// Snapshot is a deep copy of the store's collections, safe to serialize
// off the lock, tagged with the revision it was taken at.
type Snapshot struct {
	Nodes    []*entities.Node
	Edges    []*entities.Edge
	Revision uint64
}

// Store is the single owner of a canvas session's state. One instance
// backs every component viewing the same canvas; it is constructed on
// first canvas access and discarded when the user navigates away.
type Store struct {
	mu        sync.Mutex
	canvas    *aggregates.Canvas
	dirty     bool
	revision  uint64
	lastSaved time.Time
	selected  valueobjects.NodeID
	changes   chan struct{}
	logger    *zap.Logger
}

// New creates a store around an already loaded (or freshly seeded) canvas.
func New(canvas *aggregates.Canvas, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		canvas:  canvas,
		changes: make(chan struct{}, 1),
		logger:  logger,
	}
}

// Changes returns a coalescing notification channel: at least one
// receive is pending after any dirtying mutation. The sync engine
// consumes it to restart the debounce timer.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// markDirty must be called with the lock held.
func (s *Store) markDirty() {
	s.dirty = true
	s.revision++
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// DocumentID returns the canvas's owning document ID.
func (s *Store) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.DocumentID()
}

// Dirty reports whether unsaved local mutations exist.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LastSaved returns when the canvas last persisted, zero if never.
func (s *Store) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// MarkSaved stamps lastSaved and clears the dirty flag, unless more
// mutations landed after the given revision was snapshotted. Those
// still need a save, so the flag stays up and the next trigger retries.
func (s *Store) MarkSaved(revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSaved = time.Now()
	if s.revision == revision {
		s.dirty = false
	}
}

// Snapshot deep-copies the collections for serialization off the lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := s.canvas.Clone()
	return Snapshot{Nodes: clone.Nodes(), Edges: clone.Edges(), Revision: s.revision}
}

// Replace atomically substitutes both collections in a single update so
// no observer sees edges referencing missing nodes. Used after server
// bulk operations; like every mutation it marks the store dirty, and the
// sync engine calls MarkSaved right after when the data came from the
// server.
func (s *Store) Replace(nodes []*entities.Node, edges []*entities.Edge, updatedAt time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas.Replace(nodes, edges)
	s.canvas.SetUpdatedAt(updatedAt)
	if !s.selected.IsZero() && !s.canvas.HasNode(s.selected) {
		s.selected = valueobjects.NodeID{}
	}
	s.markDirty()
	return s.revision
}

// AddNode inserts a node, idempotent on ID. Duplicate delivery from the
// assist protocol is a no-op and does not dirty the store.
func (s *Store) AddNode(node *entities.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canvas.AddNode(node) {
		return false
	}
	s.markDirty()
	return true
}

// UpdateNode shallow-merges a partial update into a node.
func (s *Store) UpdateNode(id valueobjects.NodeID, update entities.NodeUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.canvas.Node(id)
	if !ok {
		return false
	}
	node.Apply(update)
	s.markDirty()
	return true
}

// UpdateNodeContent replaces a node's payload, keeping its render hint.
func (s *Store) UpdateNodeContent(id valueobjects.NodeID, body string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.canvas.Node(id)
	if !ok {
		return false
	}
	node.UpdateContent(node.Content().WithBody(body))
	s.markDirty()
	return true
}

// UpdateNodePosition moves a node. Called per drag frame; it touches
// only the coordinate, never content or timestamps.
func (s *Store) UpdateNodePosition(id valueobjects.NodeID, pos valueobjects.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.canvas.Node(id)
	if !ok {
		return false
	}
	if node.Position().Equals(pos) {
		return true
	}
	node.MoveTo(pos)
	s.markDirty()
	return true
}

// SetNodeStatus moves a node through its async lifecycle.
func (s *Store) SetNodeStatus(id valueobjects.NodeID, status entities.NodeStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.canvas.Node(id)
	if !ok {
		return false
	}
	node.SetStatus(status)
	s.markDirty()
	return true
}

// ToggleCollapse flips a node's collapse state.
func (s *Store) ToggleCollapse(id valueobjects.NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.canvas.Node(id)
	if !ok {
		return false
	}
	node.ToggleCollapse()
	s.markDirty()
	return true
}

// RemoveNode cascades: the node, its descendants by parent chain, and
// every edge touching the removed set go together. A selection pointing
// into the removed set is cleared. Returns the removed IDs.
func (s *Store) RemoveNode(id valueobjects.NodeID) []valueobjects.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.canvas.RemoveSubtree(id)
	if len(removed) == 0 {
		return nil
	}
	for _, rid := range removed {
		if rid.Equals(s.selected) {
			s.selected = valueobjects.NodeID{}
			break
		}
	}
	s.markDirty()
	s.logger.Debug("removed subtree",
		zap.String("root", id.String()),
		zap.Int("nodes", len(removed)))
	return removed
}

// AddEdge inserts an edge, idempotent on ID. Edges with a missing
// endpoint are refused.
func (s *Store) AddEdge(edge *entities.Edge) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canvas.AddEdge(edge) {
		return false
	}
	s.markDirty()
	return true
}

// RemoveEdge deletes an edge by ID.
func (s *Store) RemoveEdge(id valueobjects.EdgeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canvas.RemoveEdge(id) {
		return false
	}
	s.markDirty()
	return true
}

// Select records the selected node. Selection is transient UI state and
// never dirties the store.
func (s *Store) Select(id valueobjects.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.IsZero() || s.canvas.HasNode(id) {
		s.selected = id
	}
}

// Selected returns the selected node ID, zero if none.
func (s *Store) Selected() valueobjects.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Node retrieves a copy of a node by ID.
func (s *Store) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.canvas.Node(id)
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

// HasNode checks if a node exists.
func (s *Store) HasNode(id valueobjects.NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.HasNode(id)
}

// View runs fn with read access to the live canvas. The canvas must not
// be retained or mutated; it is how the presentation layer and CLI
// derive child counts and ancestor chains without copying.
func (s *Store) View(fn func(c *aggregates.Canvas)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.canvas)
}

// UpdatedAt returns the server-side save timestamp, display only.
func (s *Store) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.UpdatedAt()
}
