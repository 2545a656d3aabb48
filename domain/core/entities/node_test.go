package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertree/domain/core/valueobjects"
)

func TestNewDocumentRoot(t *testing.T) {
	node := NewDocumentRoot("doc-1", "Attention Is All You Need", "Transformer paper")

	assert.Equal(t, "doc-doc-1", node.ID().String())
	assert.Equal(t, VariantDocumentRoot, node.Variant())
	assert.Equal(t, "Attention Is All You Need", node.Label())
	assert.Equal(t, StatusComplete, node.Status())
	assert.False(t, node.HasParent())
	assert.Equal(t, 400.0, node.Position().X())
	assert.Equal(t, 50.0, node.Position().Y())
}

func TestNewPageSummary(t *testing.T) {
	pos, _ := valueobjects.NewPosition(100, 250)

	t.Run("starts collapsed under the document root", func(t *testing.T) {
		node := NewPageSummary("doc-1", 0, "Introduction", "Overview of the model.", pos)

		assert.Equal(t, "page-doc-1-0", node.ID().String())
		assert.True(t, node.Collapsed())
		assert.True(t, node.ParentID().Equals(valueobjects.DocumentRootID("doc-1")))
		assert.Equal(t, StatusComplete, node.Status())

		page, ok := node.SourceRef().Page()
		require.True(t, ok)
		assert.Equal(t, 0, page)
	})

	t.Run("missing summary means idle", func(t *testing.T) {
		node := NewPageSummary("doc-1", 3, "Page 4", "", pos)

		assert.Equal(t, StatusIdle, node.Status())
	})
}

func TestNewExploration_LabelIsTruncatedExcerpt(t *testing.T) {
	pos, _ := valueobjects.NewPosition(0, 0)
	text := strings.Repeat("attention ", 20)

	node := NewExploration(text, valueobjects.NewHighlightRef(1, "hl-1"), valueobjects.DocumentRootID("doc-1"), pos)

	assert.Equal(t, VariantExploration, node.Variant())
	assert.True(t, strings.HasPrefix(node.ID().String(), "explore-"))
	assert.True(t, strings.HasSuffix(node.Label(), "…"))
	assert.LessOrEqual(t, len([]rune(node.Label())), 61)
	assert.Equal(t, "hl-1", node.SourceRef().HighlightID())
}

func TestNewAssistantResponse(t *testing.T) {
	pos, _ := valueobjects.NewPosition(0, 0)
	parent := valueobjects.NewNodeID("explore")

	node := NewAssistantResponse("Why scale by sqrt(d_k)?", AskExplainMath, "**Because** dot products grow with dimension.", valueobjects.NewPageRef(1), parent, pos)

	assert.Equal(t, VariantAssistantResponse, node.Variant())
	assert.True(t, strings.HasPrefix(node.Label(), "AI: "))
	assert.Equal(t, "Why scale by sqrt(d_k)?", node.Question())
	assert.Equal(t, AskExplainMath, node.AskMode())
	assert.True(t, node.ParentID().Equals(parent))
	assert.Equal(t, valueobjects.ContentMarkdown, node.Content().Type())
}

func TestNewNote(t *testing.T) {
	pos, _ := valueobjects.NewPosition(800, 300)

	t.Run("free-floating note has no parent and a color", func(t *testing.T) {
		node, err := NewNote("compare with additive attention", valueobjects.NodeID{}, pos)
		require.NoError(t, err)

		assert.Equal(t, VariantNote, node.Variant())
		assert.False(t, node.HasParent())
		assert.NotEmpty(t, node.Color())
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		_, err := NewNote("", valueobjects.NodeID{}, pos)
		assert.Error(t, err)
	})
}

func TestReconstructNode(t *testing.T) {
	pos, _ := valueobjects.NewPosition(10, 20)
	id := valueobjects.NewNodeID("ai")
	base := NewDocumentRoot("doc-1", "Doc", "")

	t.Run("requires an ID", func(t *testing.T) {
		_, err := ReconstructNode(valueobjects.NodeID{}, VariantNote, pos, "n", valueobjects.PlainContent("x"), "", "", valueobjects.SourceRef{}, valueobjects.NodeID{}, false, StatusComplete, "", base.CreatedAt(), base.UpdatedAt())
		assert.Error(t, err)
	})

	t.Run("rejects unknown variants", func(t *testing.T) {
		_, err := ReconstructNode(id, NodeVariant("mystery"), pos, "n", valueobjects.PlainContent("x"), "", "", valueobjects.SourceRef{}, valueobjects.NodeID{}, false, StatusComplete, "", base.CreatedAt(), base.UpdatedAt())
		assert.Error(t, err)
	})

	t.Run("unknown status falls back to complete", func(t *testing.T) {
		node, err := ReconstructNode(id, VariantNote, pos, "n", valueobjects.PlainContent("x"), "", "", valueobjects.SourceRef{}, valueobjects.NodeID{}, false, NodeStatus("spinning"), "", base.CreatedAt(), base.UpdatedAt())
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, node.Status())
	})
}

func TestNode_MoveToKeepsTimestamps(t *testing.T) {
	node := NewDocumentRoot("doc-1", "Doc", "")
	before := node.UpdatedAt()

	pos, _ := valueobjects.NewPosition(123, 456)
	node.MoveTo(pos)

	assert.True(t, node.Position().Equals(pos))
	assert.Equal(t, before, node.UpdatedAt())
}

func TestNode_Apply(t *testing.T) {
	node := NewDocumentRoot("doc-1", "Doc", "")
	label := "Renamed"
	collapsed := true
	badStatus := NodeStatus("spinning")

	node.Apply(NodeUpdate{Label: &label, Collapsed: &collapsed, Status: &badStatus})

	assert.Equal(t, "Renamed", node.Label())
	assert.True(t, node.Collapsed())
	assert.Equal(t, StatusComplete, node.Status())
}

func TestNode_CloneIsIndependent(t *testing.T) {
	node := NewDocumentRoot("doc-1", "Doc", "")
	clone := node.Clone()

	clone.UpdateContent(valueobjects.MarkdownContent("changed"))

	assert.NotEqual(t, node.Content().Body(), clone.Content().Body())
}
