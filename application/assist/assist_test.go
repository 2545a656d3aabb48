package assist

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"papertree/application/ports"
	"papertree/application/store"
	"papertree/domain/core/aggregates"
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
	"papertree/infrastructure/api"
	"papertree/infrastructure/api/apitest"
	pkgerrors "papertree/pkg/errors"
)

func newAskerTest(t *testing.T, opts ...Option) (*Asker, *store.Store, *apitest.Server) {
	t.Helper()

	backend := apitest.New()
	backend.SeedDocument("doc-1", "Paper")
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)
	client := api.NewClient(server.URL, 5*time.Second, zap.NewNop())

	snap, err := client.GetCanvas(context.Background(), "doc-1")
	require.NoError(t, err)
	canvas, err := aggregates.ReconstructCanvas("doc-1", snap.Nodes, snap.Edges, snap.UpdatedAt)
	require.NoError(t, err)
	st := store.New(canvas, zap.NewNop())

	return New(st, client, zap.NewNop(), opts...), st, backend
}

func rootID() valueobjects.NodeID {
	return valueobjects.DocumentRootID("doc-1")
}

func TestAsker_Ask_AppendsBranch(t *testing.T) {
	asker, st, backend := newAskerTest(t)
	backend.SetAnswer(func(q string, _ entities.AskMode) (string, error) {
		return "answer: " + q, nil
	})

	result, err := asker.Ask(context.Background(), rootID(), "what is attention?", entities.AskExplainSimply)
	require.NoError(t, err)

	require.Len(t, result.Nodes, 1)
	answer := result.Nodes[0]
	assert.True(t, st.HasNode(answer.ID()))
	assert.Equal(t, "answer: what is attention?", answer.Content().Body())

	st.View(func(c *aggregates.Canvas) {
		assert.Equal(t, 1, c.ChildCount(rootID()))
		assert.Equal(t, 1, c.EdgeCount())
		assert.NoError(t, c.Validate())
	})

	parent, ok := st.Node(rootID())
	require.True(t, ok)
	assert.Equal(t, entities.StatusComplete, parent.Status())
	assert.Equal(t, 0, asker.Pending(rootID()))
}

func TestAsker_Ask_Validation(t *testing.T) {
	asker, _, _ := newAskerTest(t)

	_, err := asker.Ask(context.Background(), rootID(), "   ", entities.AskCustom)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = asker.Ask(context.Background(), valueobjects.NewNodeID("explore"), "hello?", entities.AskCustom)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAsker_Ask_FailureMarksParentError(t *testing.T) {
	asker, st, backend := newAskerTest(t)
	backend.FailNextAsks(1)

	_, err := asker.Ask(context.Background(), rootID(), "doomed question", entities.AskCustom)

	require.Error(t, err)
	parent, ok := st.Node(rootID())
	require.True(t, ok)
	assert.Equal(t, entities.StatusError, parent.Status())

	// The next successful ask recovers the parent.
	_, err = asker.Ask(context.Background(), rootID(), "second try", entities.AskCustom)
	require.NoError(t, err)
	parent, _ = st.Node(rootID())
	assert.Equal(t, entities.StatusComplete, parent.Status())
}

func TestAsker_ConcurrentAsksResolveIndependently(t *testing.T) {
	asker, st, backend := newAskerTest(t)
	release := make(chan struct{})
	backend.SetAnswer(func(q string, _ entities.AskMode) (string, error) {
		<-release
		return "answer", nil
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = asker.Ask(context.Background(), rootID(), "question", entities.AskCustom)
		}(i)
	}

	// Both asks are in flight; the parent shows loading.
	deadline := time.Now().Add(2 * time.Second)
	for asker.Pending(rootID()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 2, asker.Pending(rootID()))
	parent, ok := st.Node(rootID())
	require.True(t, ok)
	assert.Equal(t, entities.StatusLoading, parent.Status())

	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 0, asker.Pending(rootID()))
	parent, _ = st.Node(rootID())
	assert.Equal(t, entities.StatusComplete, parent.Status())
	st.View(func(c *aggregates.Canvas) {
		assert.Equal(t, 2, c.ChildCount(rootID()))
	})
}

func TestAsker_ThrottleDelaysDispatch(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(150*time.Millisecond), 1)
	asker, _, _ := newAskerTest(t, WithLimiter(limiter))
	ctx := context.Background()

	start := time.Now()
	_, err := asker.Ask(ctx, rootID(), "first", entities.AskCustom)
	require.NoError(t, err)
	_, err = asker.Ask(ctx, rootID(), "second", entities.AskCustom)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestAsker_Explore_AppendsWholeBranch(t *testing.T) {
	asker, st, backend := newAskerTest(t)
	backend.SeedDocument("doc-1", "Paper",
		apitest.PageSummary{Page: 1, Title: "Model", Summary: "Details."})
	backend.SeedHighlight("doc-1", apitest.Highlight{ID: "hl-1", Page: 1, Text: "the excerpt"})

	result, err := asker.Explore(context.Background(), ports.ExploreRequest{
		HighlightID: "hl-1",
		Question:    "explain this",
		Mode:        entities.AskExplainSimply,
		Page:        1,
	})
	require.NoError(t, err)

	require.NotNil(t, result.PageNode)
	assert.True(t, st.HasNode(result.PageNode.ID()))
	assert.True(t, st.HasNode(result.ExplorationNode.ID()))
	assert.True(t, st.HasNode(result.AnswerNode.ID()))
	st.View(func(c *aggregates.Canvas) {
		assert.NoError(t, c.Validate())
		assert.Equal(t, 3, c.EdgeCount())
	})
}

func TestAsker_Explore_RequiresHighlight(t *testing.T) {
	asker, _, _ := newAskerTest(t)

	_, err := asker.Explore(context.Background(), ports.ExploreRequest{Question: "about what?"})

	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAsker_AddNote(t *testing.T) {
	asker, st, _ := newAskerTest(t)

	t.Run("parented note lands with its edge", func(t *testing.T) {
		result, err := asker.AddNote(context.Background(), ports.NoteRequest{
			Content:      "remember this",
			ParentNodeID: rootID(),
		})
		require.NoError(t, err)

		assert.True(t, st.HasNode(result.Node.ID()))
		require.NotNil(t, result.Edge)
		st.View(func(c *aggregates.Canvas) {
			assert.NoError(t, c.Validate())
		})
	})

	t.Run("empty content is rejected locally", func(t *testing.T) {
		_, err := asker.AddNote(context.Background(), ports.NoteRequest{Content: "  "})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("unknown parent is rejected locally", func(t *testing.T) {
		_, err := asker.AddNote(context.Background(), ports.NoteRequest{
			Content:      "orphan",
			ParentNodeID: valueobjects.NewNodeID("explore"),
		})
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestAsker_DeleteNode(t *testing.T) {
	asker, st, _ := newAskerTest(t)
	ctx := context.Background()

	result, err := asker.Ask(ctx, rootID(), "branch to delete", entities.AskCustom)
	require.NoError(t, err)
	answerID := result.Nodes[0].ID()

	removed, err := asker.DeleteNode(ctx, answerID)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.False(t, st.HasNode(answerID))

	_, err = asker.DeleteNode(ctx, answerID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAsker_DeleteNode_LocalRemovalSurvivesServerFailure(t *testing.T) {
	asker, st, _ := newAskerTest(t)

	// A note that exists only locally: the server has never seen it.
	pos, _ := valueobjects.NewPosition(800, 300)
	note, err := entities.NewNote("local only", valueobjects.NodeID{}, pos)
	require.NoError(t, err)
	require.True(t, st.AddNode(note))

	removed, err := asker.DeleteNode(context.Background(), note.ID())

	require.Error(t, err, "server never had the node")
	assert.Len(t, removed, 1)
	assert.False(t, st.HasNode(note.ID()), "optimistic removal stands")
}
