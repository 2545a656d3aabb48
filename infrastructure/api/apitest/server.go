// Package apitest provides an in-memory canvas backend speaking the
// real wire dialect. Tests (and the CLI's demo mode) point the HTTP
// client at it instead of a deployed backend; it hosts the server-side
// behaviors the client only ever observes: layout, templating,
// auto-population, and assistant answers.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"papertree/domain/core/aggregates"
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

// PageSummary seeds a document page the fake knows about.
type PageSummary struct {
	Page    int
	Title   string
	Summary string
}

// Highlight seeds a reading-view highlight the fake can resolve.
type Highlight struct {
	ID   string
	Page int
	Text string
}

// AnswerFunc produces assistant answers for ask/explore requests.
type AnswerFunc func(question string, mode entities.AskMode) (string, error)

// Server is the in-memory backend. Zero value is not usable; call New.
type Server struct {
	mu         sync.Mutex
	canvases   map[string]*aggregates.Canvas
	titles     map[string]string
	pages      map[string][]PageSummary
	highlights map[string]map[string]Highlight // documentID -> highlightID
	answer     AnswerFunc
	saveCounts map[string]int
	failSaves  int
	failAsks   int
}

// New creates an empty in-memory backend with a canned assistant.
func New() *Server {
	return &Server{
		canvases:   make(map[string]*aggregates.Canvas),
		titles:     make(map[string]string),
		pages:      make(map[string][]PageSummary),
		highlights: make(map[string]map[string]Highlight),
		saveCounts: make(map[string]int),
		answer: func(question string, _ entities.AskMode) (string, error) {
			return "**Answer:** " + question, nil
		},
	}
}

// SeedDocument registers a document with optional page summaries.
func (s *Server) SeedDocument(documentID, title string, pages ...PageSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[documentID] = title
	s.pages[documentID] = pages
}

// SeedHighlight registers a highlight explore requests can reference.
func (s *Server) SeedHighlight(documentID string, h Highlight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlights[documentID] == nil {
		s.highlights[documentID] = make(map[string]Highlight)
	}
	s.highlights[documentID][h.ID] = h
}

// SetAnswer replaces the scripted assistant.
func (s *Server) SetAnswer(fn AnswerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer = fn
}

// FailNextSaves makes the next n canvas saves return a server error.
func (s *Server) FailNextSaves(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSaves = n
}

// FailNextAsks makes the next n ask/explore calls return a server error.
func (s *Server) FailNextAsks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAsks = n
}

// SaveCount reports how many saves a document's canvas has received.
func (s *Server) SaveCount(documentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCounts[documentID]
}

// Snapshot returns a deep copy of a document's canvas for assertions.
func (s *Server) Snapshot(documentID string) ([]*entities.Node, []*entities.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.canvases[documentID]
	if !ok {
		return nil, nil
	}
	clone := c.Clone()
	return clone.Nodes(), clone.Edges()
}

// Handler returns the backend's HTTP surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Route("/documents/{documentID}/canvas", func(r chi.Router) {
		r.Get("/", s.getCanvas)
		r.Put("/", s.saveCanvas)
		r.Post("/layout", s.layout)
		r.Post("/template", s.template)
		r.Post("/populate", s.populate)
		r.Post("/ask", s.ask)
		r.Post("/explore", s.explore)
		r.Post("/note", s.note)
		r.Delete("/nodes/{nodeID}", s.deleteNode)
	})

	return r
}

// getOrCreate must be called with the lock held.
func (s *Server) getOrCreate(documentID string) *aggregates.Canvas {
	if c, ok := s.canvases[documentID]; ok {
		return c
	}
	title := s.titles[documentID]
	if title == "" {
		title = "Document"
	}
	c, _ := aggregates.NewCanvas(documentID, title)
	c.SetUpdatedAt(time.Now())
	s.canvases[documentID] = c
	return c
}

func (s *Server) getCanvas(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	s.mu.Lock()
	c := s.getOrCreate(documentID)
	resp := wireCanvas{
		ID:         "canvas-" + documentID,
		DocumentID: documentID,
		Elements: wireElements{
			Nodes: encodeNodes(c.Nodes()),
			Edges: encodeEdges(c.Edges()),
		},
		UpdatedAt: c.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) saveCanvas(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	var req struct {
		Elements wireElements `json:"elements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves > 0 {
		s.failSaves--
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	nodes := make([]*entities.Node, 0, len(req.Elements.Nodes))
	for _, wn := range req.Elements.Nodes {
		n, err := decodeNode(wn)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		nodes = append(nodes, n)
	}
	edges := make([]*entities.Edge, 0, len(req.Elements.Edges))
	for _, we := range req.Elements.Edges {
		e, err := decodeEdge(we)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		edges = append(edges, e)
	}

	c := s.getOrCreate(documentID)
	c.Replace(nodes, edges)
	c.SetUpdatedAt(time.Now())
	s.saveCounts[documentID]++
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	var req struct {
		Algorithm string `json:"algorithm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreate(documentID)
	switch req.Algorithm {
	case "grid":
		gridLayout(c)
	case "tree", "":
		treeLayout(c)
	default:
		writeError(w, http.StatusBadRequest, "unknown layout algorithm: "+req.Algorithm)
		return
	}
	c.SetUpdatedAt(time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) template(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	var req struct {
		Template string `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreate(documentID)
	title := s.titles[documentID]
	if title == "" {
		title = "Document"
	}
	if !applyTemplate(c, documentID, title, req.Template) {
		writeError(w, http.StatusBadRequest, "unknown template: "+req.Template)
		return
	}
	c.SetUpdatedAt(time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) populate(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreate(documentID)

	pagesCreated := 0
	for _, ps := range s.pages[documentID] {
		if _, created := s.ensurePage(c, documentID, ps.Page); created {
			pagesCreated++
		}
	}

	explorationsCreated := 0
	for _, h := range s.highlights[documentID] {
		if s.hasExploration(c, h.ID) {
			continue
		}
		page, _ := s.ensurePage(c, documentID, h.Page)
		exploration := entities.NewExploration(
			h.Text,
			valueobjects.NewHighlightRef(h.Page, h.ID),
			page.ID(),
			c.ExplorationPosition(page.ID()),
		)
		c.AddNode(exploration)
		if edge, err := entities.NewEdge(page.ID(), exploration.ID(), entities.EdgeBranch, ""); err == nil {
			c.AddEdge(edge)
		}
		explorationsCreated++
	}

	if pagesCreated > 0 || explorationsCreated > 0 {
		c.SetUpdatedAt(time.Now())
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"pages_created":        pagesCreated,
		"explorations_created": explorationsCreated,
	})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	var req struct {
		ParentNodeID string `json:"parent_node_id"`
		Question     string `json:"question"`
		AskMode      string `json:"ask_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAsks > 0 {
		s.failAsks--
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}

	c := s.getOrCreate(documentID)
	parentID, err := valueobjects.NewNodeIDFromString(req.ParentNodeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	parent, ok := c.Node(parentID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("parent node %s not found in canvas", req.ParentNodeID))
		return
	}

	answer, err := s.answer(req.Question, entities.AskMode(req.AskMode))
	if err != nil {
		writeError(w, http.StatusBadGateway, "AI query failed: "+err.Error())
		return
	}

	node := entities.NewAssistantResponse(
		req.Question,
		entities.AskMode(req.AskMode),
		answer,
		parent.SourceRef(),
		parentID,
		c.AnswerPosition(parentID),
	)
	label := valueobjects.PlainContent(req.Question).Summary(25)
	edge, err := entities.NewEdge(parentID, node.ID(), entities.EdgeFollowUp, label)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	c.AddNode(node)
	c.AddEdge(edge)
	c.SetUpdatedAt(time.Now())

	writeJSON(w, http.StatusOK, map[string]any{
		"node": encodeNode(node),
		"edge": encodeEdge(edge),
	})
}

func (s *Server) explore(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	var req struct {
		HighlightID string `json:"highlight_id"`
		Question    string `json:"question"`
		AskMode     string `json:"ask_mode"`
		PageNumber  int    `json:"page_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAsks > 0 {
		s.failAsks--
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}

	c := s.getOrCreate(documentID)
	page, pageCreated := s.ensurePage(c, documentID, req.PageNumber)

	var edges []*entities.Edge
	if pageCreated {
		if edge, err := entities.NewEdge(valueobjects.DocumentRootID(documentID), page.ID(), entities.EdgeDefault, ""); err == nil && c.AddEdge(edge) {
			edges = append(edges, edge)
		}
	}

	selectedText := "Unknown text"
	if h, ok := s.highlights[documentID][req.HighlightID]; ok {
		selectedText = h.Text
	}
	exploration := entities.NewExploration(
		selectedText,
		valueobjects.NewHighlightRef(req.PageNumber, req.HighlightID),
		page.ID(),
		c.ExplorationPosition(page.ID()),
	)
	c.AddNode(exploration)
	if edge, err := entities.NewEdge(page.ID(), exploration.ID(), entities.EdgeBranch, ""); err == nil && c.AddEdge(edge) {
		edges = append(edges, edge)
	}

	answer, err := s.answer(req.Question, entities.AskMode(req.AskMode))
	if err != nil {
		writeError(w, http.StatusBadGateway, "AI query failed: "+err.Error())
		return
	}
	answerNode := entities.NewAssistantResponse(
		req.Question,
		entities.AskMode(req.AskMode),
		answer,
		valueobjects.NewHighlightRef(req.PageNumber, req.HighlightID),
		exploration.ID(),
		c.AnswerPosition(exploration.ID()),
	)
	c.AddNode(answerNode)
	if edge, err := entities.NewEdge(exploration.ID(), answerNode.ID(), entities.EdgeFollowUp, ""); err == nil && c.AddEdge(edge) {
		edges = append(edges, edge)
	}
	c.SetUpdatedAt(time.Now())

	resp := map[string]any{
		"exploration_node": encodeNode(exploration),
		"ai_node":          encodeNode(answerNode),
		"edges":            encodeEdges(edges),
	}
	if pageCreated {
		resp["page_node"] = encodeNode(page)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) note(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	var req struct {
		Content      string        `json:"content"`
		ParentNodeID string        `json:"parent_node_id"`
		Position     *wirePosition `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreate(documentID)

	var parentID valueobjects.NodeID
	if req.ParentNodeID != "" {
		id, err := valueobjects.NewNodeIDFromString(req.ParentNodeID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !c.HasNode(id) {
			writeError(w, http.StatusNotFound, "parent node not found")
			return
		}
		parentID = id
	}

	pos := c.NotePosition(parentID)
	if req.Position != nil {
		if p, err := valueobjects.NewPosition(req.Position.X, req.Position.Y); err == nil {
			pos = p
		}
	}

	note, err := entities.NewNote(req.Content, parentID, pos)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.AddNode(note)

	resp := map[string]any{"node": encodeNode(note)}
	if !parentID.IsZero() {
		if edge, err := entities.NewEdge(parentID, note.ID(), entities.EdgeNote, ""); err == nil && c.AddEdge(edge) {
			resp["edge"] = encodeEdge(edge)
		}
	}
	c.SetUpdatedAt(time.Now())
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	nodeID, err := valueobjects.NewNodeIDFromString(chi.URLParam(r, "nodeID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreate(documentID)
	removed := c.RemoveSubtree(nodeID)
	if len(removed) == 0 {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	c.SetUpdatedAt(time.Now())

	deleted := make([]string, len(removed))
	for i, id := range removed {
		deleted[i] = id.String()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"deleted": deleted})
}

// ensurePage must be called with the lock held. Returns the page node
// and whether it had to be created.
func (s *Server) ensurePage(c *aggregates.Canvas, documentID string, page int) (*entities.Node, bool) {
	id := valueobjects.PageNodeID(documentID, page)
	if existing, ok := c.Node(id); ok {
		return existing, false
	}

	title := fmt.Sprintf("Page %d", page+1)
	summary := ""
	for _, ps := range s.pages[documentID] {
		if ps.Page == page {
			if ps.Title != "" {
				title = ps.Title
			}
			summary = ps.Summary
			break
		}
	}

	node := entities.NewPageSummary(documentID, page, title, summary, c.NextPagePosition())
	c.AddNode(node)
	if edge, err := entities.NewEdge(valueobjects.DocumentRootID(documentID), node.ID(), entities.EdgeDefault, ""); err == nil {
		c.AddEdge(edge)
	}
	return node, true
}

// hasExploration must be called with the lock held.
func (s *Server) hasExploration(c *aggregates.Canvas, highlightID string) bool {
	for _, n := range c.Nodes() {
		if n.Variant() == entities.VariantExploration && n.SourceRef().HighlightID() == highlightID {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
