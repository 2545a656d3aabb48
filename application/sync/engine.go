// Package sync owns every network interaction for a canvas session:
// debounced autosave, manual saves, and the bulk server operations
// (layout, template, populate) that replace the whole canvas. All of it
// runs on one loop goroutine, so a save can never interleave with a
// bulk replace.
package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"papertree/application/ports"
	"papertree/application/store"
	"papertree/domain/core/aggregates"
	"papertree/domain/core/valueobjects"
)

// DefaultDebounce is how long the engine waits after the last mutation
// before autosaving. Long enough to coalesce a typing or dragging
// burst, short enough that little work is at risk.
const DefaultDebounce = 2500 * time.Millisecond

// finalSaveTimeout bounds the best-effort flush when Run's context is
// cancelled with unsaved changes.
const finalSaveTimeout = 5 * time.Second

// State describes what the engine is currently doing. Presentation
// surfaces read it to badge the canvas.
type State string

const (
	StateIdle       State = "idle"
	StateSaving     State = "saving"
	StatePopulating State = "populating"
	StateLayouting  State = "layouting"
)

// PositionSource exposes the presentation layer's live node positions.
// A drag updates the rendered position immediately; the engine folds
// those coordinates into the store right before serializing a save, so
// in-flight drags are persisted without waiting for a drag-end event.
type PositionSource interface {
	// Positions returns node ID -> current rendered position.
	Positions() map[string]valueobjects.Position
}

// Engine drives persistence for one canvas session. Construct with
// NewEngine, start Run on its own goroutine, and call the operation
// methods from anywhere; they hand work to the loop and wait.
type Engine struct {
	store     *store.Store
	api       ports.CanvasAPI
	debounce  time.Duration
	positions PositionSource
	logger    *zap.Logger

	mu    sync.Mutex
	state State

	requests chan request
}

type request struct {
	run   func(ctx context.Context) error
	reply chan error
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce overrides the autosave quiet period.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithPositionSource attaches live rendered positions to fold into
// saves.
func WithPositionSource(src PositionSource) Option {
	return func(e *Engine) { e.positions = src }
}

// NewEngine creates a sync engine bound to one store and one backend.
func NewEngine(st *store.Store, api ports.CanvasAPI, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:    st,
		api:      api,
		debounce: DefaultDebounce,
		logger:   logger,
		state:    StateIdle,
		requests: make(chan request),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches a document's canvas and wraps it in a store. When the
// fetch fails the session still starts: the store is seeded with a
// lone document-root node and the failure is logged, matching first
// open of a document that has no canvas yet.
func Load(ctx context.Context, api ports.CanvasAPI, documentID, title string, logger *zap.Logger) *store.Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	snap, err := api.GetCanvas(ctx, documentID)
	if err == nil {
		canvas, rerr := aggregates.ReconstructCanvas(documentID, snap.Nodes, snap.Edges, snap.UpdatedAt)
		if rerr == nil {
			return store.New(canvas, logger)
		}
		err = rerr
	}
	logger.Warn("canvas load failed, starting from empty canvas",
		zap.String("document_id", documentID),
		zap.Error(err))
	canvas, _ := aggregates.NewCanvas(documentID, title)
	return store.New(canvas, logger)
}

// State reports what the engine is doing right now.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run is the engine's loop. It owns the debounce timer and executes
// every save and bulk operation in arrival order. Blocks until ctx is
// cancelled; unsaved changes get one best-effort flush on the way out.
func (e *Engine) Run(ctx context.Context) {
	timer := time.NewTimer(e.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			if e.store.Dirty() {
				flushCtx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
				if err := e.persist(flushCtx); err != nil {
					e.logger.Warn("final canvas flush failed", zap.Error(err))
				}
				cancel()
			}
			return

		case <-e.store.Changes():
			// Every mutation restarts the quiet period.
			if armed && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(e.debounce)
			armed = true

		case <-timer.C:
			armed = false
			if !e.store.Dirty() {
				continue
			}
			e.setState(StateSaving)
			err := e.persist(ctx)
			e.setState(StateIdle)
			if err != nil {
				// The store stays dirty; rearm so the save retries
				// after another quiet period.
				e.logger.Warn("autosave failed", zap.Error(err))
				timer.Reset(e.debounce)
				armed = true
			}

		case req := <-e.requests:
			req.reply <- req.run(ctx)
		}
	}
}

// do hands fn to the loop goroutine and waits for its result.
func (e *Engine) do(ctx context.Context, fn func(context.Context) error) error {
	req := request{run: fn, reply: make(chan error, 1)}
	select {
	case e.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Save persists the canvas immediately, regardless of the debounce
// timer or the dirty flag.
func (e *Engine) Save(ctx context.Context) error {
	return e.do(ctx, func(ctx context.Context) error {
		e.setState(StateSaving)
		defer e.setState(StateIdle)
		return e.persist(ctx)
	})
}

// Layout asks the server to reposition every node, then replaces the
// local canvas with the result.
func (e *Engine) Layout(ctx context.Context, algorithm string) error {
	return e.do(ctx, func(ctx context.Context) error {
		e.setState(StateLayouting)
		defer e.setState(StateIdle)
		return e.bulk(ctx, func(ctx context.Context) error {
			return e.api.AutoLayout(ctx, e.store.DocumentID(), algorithm)
		})
	})
}

// Template asks the server to replace the canvas with a named
// skeleton, then replaces the local canvas with the result.
func (e *Engine) Template(ctx context.Context, template string) error {
	return e.do(ctx, func(ctx context.Context) error {
		e.setState(StateLayouting)
		defer e.setState(StateIdle)
		return e.bulk(ctx, func(ctx context.Context) error {
			return e.api.GenerateTemplate(ctx, e.store.DocumentID(), template)
		})
	})
}

// Populate asks the server to create page and exploration nodes from
// document structure. The local canvas is refetched only when the
// server reports it created something.
func (e *Engine) Populate(ctx context.Context) (ports.PopulateResult, error) {
	var result ports.PopulateResult
	err := e.do(ctx, func(ctx context.Context) error {
		e.setState(StatePopulating)
		defer e.setState(StateIdle)
		if e.store.Dirty() {
			if err := e.persist(ctx); err != nil {
				return err
			}
		}
		r, err := e.api.AutoPopulate(ctx, e.store.DocumentID())
		if err != nil {
			return err
		}
		result = r
		if !r.Created() {
			return nil
		}
		return e.refetch(ctx)
	})
	return result, err
}

// Refresh replaces the local canvas with the server's copy.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.do(ctx, func(ctx context.Context) error {
		return e.refetch(ctx)
	})
}

// persist serializes the store and transmits it. The revision captured
// with the snapshot keeps MarkSaved honest: edits landing during the
// request leave the store dirty for the next trigger.
func (e *Engine) persist(ctx context.Context) error {
	e.mergePositions()
	snap := e.store.Snapshot()
	if err := e.api.SaveCanvas(ctx, e.store.DocumentID(), snap.Nodes, snap.Edges); err != nil {
		return err
	}
	e.store.MarkSaved(snap.Revision)
	e.logger.Debug("canvas saved",
		zap.String("document_id", e.store.DocumentID()),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)))
	return nil
}

// bulk runs a server operation that rewrites the whole canvas. Dirty
// local state is flushed first so the server operates on current data,
// then the result is fetched back and swapped in atomically.
func (e *Engine) bulk(ctx context.Context, op func(context.Context) error) error {
	if e.store.Dirty() {
		if err := e.persist(ctx); err != nil {
			return err
		}
	}
	if err := op(ctx); err != nil {
		return err
	}
	return e.refetch(ctx)
}

func (e *Engine) refetch(ctx context.Context) error {
	snap, err := e.api.GetCanvas(ctx, e.store.DocumentID())
	if err != nil {
		return err
	}
	rev := e.store.Replace(snap.Nodes, snap.Edges, snap.UpdatedAt)
	e.store.MarkSaved(rev)
	return nil
}

// mergePositions folds live rendered positions into the store before a
// snapshot. Unchanged positions are skipped by the store, so this never
// dirties a clean canvas by itself.
func (e *Engine) mergePositions() {
	if e.positions == nil {
		return
	}
	for raw, pos := range e.positions.Positions() {
		id, err := valueobjects.NewNodeIDFromString(raw)
		if err != nil {
			continue
		}
		e.store.UpdateNodePosition(id, pos)
	}
}
