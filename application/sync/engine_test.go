package sync

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papertree/application/ports"
	"papertree/application/store"
	"papertree/domain/core/aggregates"
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
	"papertree/infrastructure/api"
	"papertree/infrastructure/api/apitest"
)

type engineFixture struct {
	backend *apitest.Server
	client  *api.Client
	store   *store.Store
	engine  *Engine
}

func newFixture(t *testing.T, debounce time.Duration, seed func(*apitest.Server)) *engineFixture {
	t.Helper()

	backend := apitest.New()
	backend.SeedDocument("doc-1", "Paper")
	if seed != nil {
		seed(backend)
	}
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	client := api.NewClient(server.URL, 5*time.Second, zap.NewNop())
	st := Load(context.Background(), client, "doc-1", "Paper", zap.NewNop())

	engine := NewEngine(st, client, zap.NewNop(), WithDebounce(debounce))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &engineFixture{backend: backend, client: client, store: st, engine: engine}
}

func waitForSaves(t *testing.T, backend *apitest.Server, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for backend.SaveCount("doc-1") < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d saves, have %d", want, backend.SaveCount("doc-1"))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func addNote(t *testing.T, st *store.Store, content string) *entities.Node {
	t.Helper()
	pos, _ := valueobjects.NewPosition(800, 300)
	note, err := entities.NewNote(content, valueobjects.NodeID{}, pos)
	require.NoError(t, err)
	require.True(t, st.AddNode(note))
	return note
}

func TestLoad_FetchesExistingCanvas(t *testing.T) {
	backend := apitest.New()
	backend.SeedDocument("doc-1", "Paper",
		apitest.PageSummary{Page: 0, Title: "Intro", Summary: "Overview."})
	server := httptest.NewServer(backend.Handler())
	defer server.Close()
	client := api.NewClient(server.URL, 5*time.Second, zap.NewNop())
	_, err := client.AutoPopulate(context.Background(), "doc-1")
	require.NoError(t, err)

	st := Load(context.Background(), client, "doc-1", "Paper", zap.NewNop())

	assert.Equal(t, "doc-1", st.DocumentID())
	assert.False(t, st.Dirty())
	st.View(func(c *aggregates.Canvas) {
		assert.Equal(t, 2, c.NodeCount())
	})
	assert.True(t, st.HasNode(valueobjects.PageNodeID("doc-1", 0)))
}

func TestLoad_FailureSeedsEmptyCanvas(t *testing.T) {
	server := httptest.NewServer(apitest.New().Handler())
	client := api.NewClient(server.URL, time.Second, zap.NewNop())
	server.Close()

	st := Load(context.Background(), client, "doc-1", "Paper", zap.NewNop())

	require.NotNil(t, st)
	st.View(func(c *aggregates.Canvas) {
		require.Equal(t, 1, c.NodeCount())
		root := c.Roots()[0]
		assert.Equal(t, entities.VariantDocumentRoot, root.Variant())
		assert.Equal(t, "Paper", root.Label())
	})
}

func TestEngine_ManualSave(t *testing.T) {
	f := newFixture(t, time.Hour, nil)
	addNote(t, f.store, "unsaved thought")
	require.True(t, f.store.Dirty())

	require.NoError(t, f.engine.Save(context.Background()))

	assert.Equal(t, 1, f.backend.SaveCount("doc-1"))
	assert.False(t, f.store.Dirty())
	assert.False(t, f.store.LastSaved().IsZero())

	nodes, _ := f.backend.Snapshot("doc-1")
	assert.Len(t, nodes, 2)
}

func TestEngine_DebounceCoalescesBurst(t *testing.T) {
	f := newFixture(t, 100*time.Millisecond, nil)

	for i := 0; i < 5; i++ {
		addNote(t, f.store, "burst")
		time.Sleep(10 * time.Millisecond)
	}

	waitForSaves(t, f.backend, 1, 2*time.Second)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, f.backend.SaveCount("doc-1"), "one burst, one save")
	assert.False(t, f.store.Dirty())
}

func TestEngine_SeparateBurstsSaveSeparately(t *testing.T) {
	f := newFixture(t, 100*time.Millisecond, nil)

	addNote(t, f.store, "first")
	waitForSaves(t, f.backend, 1, 2*time.Second)

	addNote(t, f.store, "second")
	waitForSaves(t, f.backend, 2, 2*time.Second)
}

func TestEngine_FailedSaveLeavesDirtyThenRetries(t *testing.T) {
	f := newFixture(t, time.Hour, nil)
	addNote(t, f.store, "precious")
	f.backend.FailNextSaves(1)

	err := f.engine.Save(context.Background())

	require.Error(t, err)
	assert.True(t, f.store.Dirty(), "failed save must not mark the store clean")

	require.NoError(t, f.engine.Save(context.Background()))
	assert.False(t, f.store.Dirty())
}

func TestEngine_SaveMergesRenderedPositions(t *testing.T) {
	f := newFixture(t, time.Hour, nil)
	note := addNote(t, f.store, "dragged")
	dragged, _ := valueobjects.NewPosition(1234, 567)

	src := positionSourceFunc(func() map[string]valueobjects.Position {
		return map[string]valueobjects.Position{note.ID().String(): dragged}
	})
	WithPositionSource(src)(f.engine)

	require.NoError(t, f.engine.Save(context.Background()))

	nodes, _ := f.backend.Snapshot("doc-1")
	for _, n := range nodes {
		if n.ID().Equals(note.ID()) {
			assert.True(t, n.Position().Equals(dragged))
			return
		}
	}
	t.Fatal("note missing from saved canvas")
}

type positionSourceFunc func() map[string]valueobjects.Position

func (f positionSourceFunc) Positions() map[string]valueobjects.Position { return f() }

func TestEngine_LayoutFlushesThenReplaces(t *testing.T) {
	f := newFixture(t, time.Hour, func(backend *apitest.Server) {
		backend.SeedDocument("doc-1", "Paper",
			apitest.PageSummary{Page: 0, Title: "Intro", Summary: "Overview."})
	})
	_, err := f.engine.Populate(context.Background())
	require.NoError(t, err)
	addNote(t, f.store, "local only")
	require.True(t, f.store.Dirty())

	require.NoError(t, f.engine.Layout(context.Background(), ports.LayoutGrid))

	// Dirty state was flushed before the layout ran, so the note
	// survived the server-side rewrite.
	assert.False(t, f.store.Dirty())
	found := false
	f.store.View(func(c *aggregates.Canvas) {
		for _, n := range c.Nodes() {
			if n.Variant() == entities.VariantNote {
				found = true
			}
		}
	})
	assert.True(t, found, "note must survive the flush + layout round trip")
	assert.GreaterOrEqual(t, f.backend.SaveCount("doc-1"), 1)
}

func TestEngine_PopulateRefetchesOnlyWhenCreated(t *testing.T) {
	f := newFixture(t, time.Hour, func(backend *apitest.Server) {
		backend.SeedDocument("doc-1", "Paper",
			apitest.PageSummary{Page: 0, Title: "Intro", Summary: "Overview."},
			apitest.PageSummary{Page: 1, Title: "Model", Summary: "Details."})
	})

	result, err := f.engine.Populate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.PagesCreated)
	assert.True(t, f.store.HasNode(valueobjects.PageNodeID("doc-1", 0)))
	assert.True(t, f.store.HasNode(valueobjects.PageNodeID("doc-1", 1)))
	assert.False(t, f.store.Dirty())

	again, err := f.engine.Populate(context.Background())
	require.NoError(t, err)
	assert.False(t, again.Created())
}

func TestEngine_TemplateReplacesCanvas(t *testing.T) {
	f := newFixture(t, time.Hour, nil)

	require.NoError(t, f.engine.Template(context.Background(), ports.TemplateQuestionBranch))

	f.store.View(func(c *aggregates.Canvas) {
		assert.Greater(t, c.NodeCount(), 1)
		assert.NoError(t, c.Validate())
	})
	assert.False(t, f.store.Dirty())
}

func TestEngine_StateSettlesToIdle(t *testing.T) {
	f := newFixture(t, time.Hour, nil)
	addNote(t, f.store, "note")

	require.NoError(t, f.engine.Save(context.Background()))

	assert.Equal(t, StateIdle, f.engine.State())
}

func TestEngine_FinalFlushOnShutdown(t *testing.T) {
	backend := apitest.New()
	backend.SeedDocument("doc-1", "Paper")
	server := httptest.NewServer(backend.Handler())
	defer server.Close()
	client := api.NewClient(server.URL, 5*time.Second, zap.NewNop())
	st := Load(context.Background(), client, "doc-1", "Paper", zap.NewNop())
	engine := NewEngine(st, client, zap.NewNop(), WithDebounce(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	addNote(t, st, "typed right before closing")
	cancel()
	<-done

	assert.Equal(t, 1, backend.SaveCount("doc-1"))
}
