package aggregates

import (
	"time"

	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
	pkgerrors "papertree/pkg/errors"
)

// Canvas is the aggregate root for one document's exploration graph.
// It owns exactly one node collection and one edge collection and keeps
// the invariants between them: unique node IDs, no dangling edges, and
// hierarchy derived solely from parent IDs.
type Canvas struct {
	documentID string
	nodes      []*entities.Node
	edges      []*entities.Edge
	updatedAt  time.Time
}

// NewCanvas creates an empty canvas seeded with a single document-root node.
func NewCanvas(documentID, title string) (*Canvas, error) {
	if documentID == "" {
		return nil, pkgerrors.NewValidationError("documentID is required")
	}
	if title == "" {
		title = "Document"
	}
	return &Canvas{
		documentID: documentID,
		nodes:      []*entities.Node{entities.NewDocumentRoot(documentID, title, "")},
		updatedAt:  time.Now(),
	}, nil
}

// ReconstructCanvas rebuilds a canvas from server data. Edges whose
// endpoints are missing are dropped rather than kept dangling.
func ReconstructCanvas(documentID string, nodes []*entities.Node, edges []*entities.Edge, updatedAt time.Time) (*Canvas, error) {
	if documentID == "" {
		return nil, pkgerrors.NewValidationError("documentID is required")
	}
	c := &Canvas{documentID: documentID, updatedAt: updatedAt}
	c.Replace(nodes, edges)
	return c, nil
}

// DocumentID returns the owning document's ID
func (c *Canvas) DocumentID() string {
	return c.documentID
}

// UpdatedAt returns the server-side save timestamp, display only.
func (c *Canvas) UpdatedAt() time.Time {
	return c.updatedAt
}

// SetUpdatedAt records the server-side save timestamp.
func (c *Canvas) SetUpdatedAt(t time.Time) {
	c.updatedAt = t
}

// Nodes returns the node collection. The slice is a copy; the entities
// are shared.
func (c *Canvas) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, len(c.nodes))
	copy(nodes, c.nodes)
	return nodes
}

// Edges returns the edge collection. The slice is a copy.
func (c *Canvas) Edges() []*entities.Edge {
	edges := make([]*entities.Edge, len(c.edges))
	copy(edges, c.edges)
	return edges
}

// NodeCount returns the number of nodes
func (c *Canvas) NodeCount() int {
	return len(c.nodes)
}

// EdgeCount returns the number of edges
func (c *Canvas) EdgeCount() int {
	return len(c.edges)
}

// Node retrieves a node by ID.
func (c *Canvas) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	for _, n := range c.nodes {
		if n.ID().Equals(id) {
			return n, true
		}
	}
	return nil, false
}

// HasNode checks if a node exists.
func (c *Canvas) HasNode(id valueobjects.NodeID) bool {
	_, ok := c.Node(id)
	return ok
}

// Edge retrieves an edge by ID.
func (c *Canvas) Edge(id valueobjects.EdgeID) (*entities.Edge, bool) {
	for _, e := range c.edges {
		if e.ID().Equals(id) {
			return e, true
		}
	}
	return nil, false
}

// AddNode inserts a node, idempotent on ID. Returns false when a node
// with the same ID is already present (duplicate delivery is a no-op).
func (c *Canvas) AddNode(node *entities.Node) bool {
	if node == nil || c.HasNode(node.ID()) {
		return false
	}
	c.nodes = append(c.nodes, node)
	return true
}

// AddEdge inserts an edge, idempotent on ID. Edges whose endpoints do
// not both exist are refused so the no-dangling-edges invariant holds
// regardless of caller ordering.
func (c *Canvas) AddEdge(edge *entities.Edge) bool {
	if edge == nil {
		return false
	}
	if _, exists := c.Edge(edge.ID()); exists {
		return false
	}
	if !c.HasNode(edge.Source()) || !c.HasNode(edge.Target()) {
		return false
	}
	c.edges = append(c.edges, edge)
	return true
}

// RemoveEdge deletes an edge by ID.
func (c *Canvas) RemoveEdge(id valueobjects.EdgeID) bool {
	for i, e := range c.edges {
		if e.ID().Equals(id) {
			c.edges = append(c.edges[:i], c.edges[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveSubtree deletes a node, every node whose parent chain leads to
// it, and every edge touching the removed set. Returns the removed IDs.
func (c *Canvas) RemoveSubtree(id valueobjects.NodeID) []valueobjects.NodeID {
	if !c.HasNode(id) {
		return nil
	}

	removed := map[string]bool{id.String(): true}
	order := []valueobjects.NodeID{id}
	// parent_id is the single source of truth for descent; repeat until
	// the frontier stops growing so chains of any depth are collected.
	for grew := true; grew; {
		grew = false
		for _, n := range c.nodes {
			if removed[n.ID().String()] || !n.HasParent() {
				continue
			}
			if removed[n.ParentID().String()] {
				removed[n.ID().String()] = true
				order = append(order, n.ID())
				grew = true
			}
		}
	}

	kept := c.nodes[:0]
	for _, n := range c.nodes {
		if !removed[n.ID().String()] {
			kept = append(kept, n)
		}
	}
	c.nodes = kept

	keptEdges := c.edges[:0]
	for _, e := range c.edges {
		if !removed[e.Source().String()] && !removed[e.Target().String()] {
			keptEdges = append(keptEdges, e)
		}
	}
	c.edges = keptEdges

	return order
}

// Replace substitutes both collections in one step, used after server
// bulk operations. Duplicate node IDs keep the first occurrence; edges
// with a missing endpoint or duplicate ID are dropped.
func (c *Canvas) Replace(nodes []*entities.Node, edges []*entities.Edge) {
	seen := make(map[string]bool, len(nodes))
	c.nodes = c.nodes[:0]
	for _, n := range nodes {
		if n == nil || seen[n.ID().String()] {
			continue
		}
		seen[n.ID().String()] = true
		c.nodes = append(c.nodes, n)
	}

	seenEdges := make(map[string]bool, len(edges))
	c.edges = c.edges[:0]
	for _, e := range edges {
		if e == nil || seenEdges[e.ID().String()] {
			continue
		}
		if !seen[e.Source().String()] || !seen[e.Target().String()] {
			continue
		}
		seenEdges[e.ID().String()] = true
		c.edges = append(c.edges, e)
	}
}

// ChildrenOf derives a node's children by scanning parent IDs. Child
// lists are never stored; this is the only way to obtain them.
func (c *Canvas) ChildrenOf(id valueobjects.NodeID) []*entities.Node {
	var children []*entities.Node
	for _, n := range c.nodes {
		if n.HasParent() && n.ParentID().Equals(id) {
			children = append(children, n)
		}
	}
	return children
}

// ChildCount derives the number of children of a node.
func (c *Canvas) ChildCount(id valueobjects.NodeID) int {
	count := 0
	for _, n := range c.nodes {
		if n.HasParent() && n.ParentID().Equals(id) {
			count++
		}
	}
	return count
}

// AncestorChain walks parent IDs from the node up to its root and
// returns the chain in root-first order. Cycles and broken links
// terminate the walk.
func (c *Canvas) AncestorChain(id valueobjects.NodeID) []*entities.Node {
	var chain []*entities.Node
	visited := make(map[string]bool)
	current := id
	for !current.IsZero() && !visited[current.String()] {
		visited[current.String()] = true
		node, ok := c.Node(current)
		if !ok {
			break
		}
		chain = append([]*entities.Node{node}, chain...)
		current = node.ParentID()
	}
	return chain
}

// Roots returns the nodes with no parent.
func (c *Canvas) Roots() []*entities.Node {
	var roots []*entities.Node
	for _, n := range c.nodes {
		if !n.HasParent() {
			roots = append(roots, n)
		}
	}
	return roots
}

// Validate ensures canvas invariants hold.
func (c *Canvas) Validate() error {
	seen := make(map[string]bool, len(c.nodes))
	for _, n := range c.nodes {
		if seen[n.ID().String()] {
			return pkgerrors.NewValidationError("duplicate node ID: " + n.ID().String())
		}
		seen[n.ID().String()] = true
	}
	for _, e := range c.edges {
		if !seen[e.Source().String()] {
			return pkgerrors.NewValidationError("edge references missing source node: " + e.Source().String())
		}
		if !seen[e.Target().String()] {
			return pkgerrors.NewValidationError("edge references missing target node: " + e.Target().String())
		}
	}
	return nil
}

// Clone returns a deep copy of the canvas.
func (c *Canvas) Clone() *Canvas {
	nodes := make([]*entities.Node, len(c.nodes))
	for i, n := range c.nodes {
		nodes[i] = n.Clone()
	}
	edges := make([]*entities.Edge, len(c.edges))
	for i, e := range c.edges {
		edges[i] = e.Clone()
	}
	return &Canvas{
		documentID: c.documentID,
		nodes:      nodes,
		edges:      edges,
		updatedAt:  c.updatedAt,
	}
}
