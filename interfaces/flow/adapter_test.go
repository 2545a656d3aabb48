package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

func testNodes(t *testing.T) (*entities.Node, *entities.Node, *entities.Node, []*entities.Node) {
	t.Helper()

	root := entities.NewDocumentRoot("doc-1", "Paper", "")
	pos, _ := valueobjects.NewPosition(100, 250)
	page := entities.NewPageSummary("doc-1", 0, "Intro", "Overview.", pos)
	exploration := entities.NewExploration("excerpt", valueobjects.NewHighlightRef(0, "hl-1"), page.ID(), pos)
	return root, page, exploration, []*entities.Node{root, page, exploration}
}

func TestToNode_DerivesChildCount(t *testing.T) {
	root, page, _, all := testNodes(t)

	presented := ToNode(root, all, Callbacks{})
	assert.Equal(t, 1, presented.ChildCount)

	presented = ToNode(page, all, Callbacks{})
	assert.Equal(t, 1, presented.ChildCount)
}

func TestToNode_FlattensContent(t *testing.T) {
	_, page, exploration, all := testNodes(t)

	presented := ToNode(page, all, Callbacks{})

	assert.Equal(t, page.ID().String(), presented.ID)
	assert.Equal(t, entities.VariantPageSummary, presented.Variant)
	assert.Equal(t, "Overview.", presented.Content)
	assert.Equal(t, valueobjects.ContentMarkdown, presented.ContentType)
	assert.True(t, presented.Collapsed)

	presented = ToNode(exploration, all, Callbacks{})
	assert.Equal(t, "hl-1", presented.SourceRef.HighlightID())
}

func TestToNode_HooksBindToTheirNode(t *testing.T) {
	_, page, exploration, all := testNodes(t)

	var toggled []string
	var asked []string
	cb := Callbacks{
		ToggleCollapse: func(id valueobjects.NodeID) { toggled = append(toggled, id.String()) },
		AskFollowUp: func(id valueobjects.NodeID, q string) {
			asked = append(asked, id.String()+"|"+q)
		},
	}

	presentedPage := ToNode(page, all, cb)
	presentedExploration := ToNode(exploration, all, cb)

	presentedPage.Hooks.ToggleCollapse()
	presentedExploration.Hooks.ToggleCollapse()
	presentedExploration.Hooks.AskFollowUp("and then?")

	assert.Equal(t, []string{page.ID().String(), exploration.ID().String()}, toggled)
	assert.Equal(t, []string{exploration.ID().String() + "|and then?"}, asked)
}

func TestToNode_NavigateRequiresSourceRef(t *testing.T) {
	root, _, exploration, all := testNodes(t)
	cb := Callbacks{Navigate: func(valueobjects.SourceRef) {}}

	assert.Nil(t, ToNode(root, all, cb).Hooks.Navigate, "root has no source to jump to")
	assert.NotNil(t, ToNode(exploration, all, cb).Hooks.Navigate)
}

func TestToNode_MissingCallbacksLeaveHooksNil(t *testing.T) {
	_, page, _, all := testNodes(t)

	hooks := ToNode(page, all, Callbacks{}).Hooks

	assert.Nil(t, hooks.ToggleCollapse)
	assert.Nil(t, hooks.Delete)
	assert.Nil(t, hooks.AskFollowUp)
}

func TestFromNode_PositionWinsEverythingElseRestored(t *testing.T) {
	_, page, _, all := testNodes(t)

	presented := ToNode(page, all, Callbacks{})
	moved, err := valueobjects.NewPosition(999, -40)
	require.NoError(t, err)
	presented.Position = moved
	presented.Label = "tampered"
	presented.ChildCount = 42

	restored := FromNode(presented, page)

	assert.True(t, restored.Position().Equals(moved))
	assert.Equal(t, page.Label(), restored.Label())
	assert.True(t, restored.ParentID().Equals(page.ParentID()))
	assert.Equal(t, page.CreatedAt(), restored.CreatedAt())
}

func TestStyleFor(t *testing.T) {
	tests := []struct {
		variant entities.EdgeVariant
		want    EdgeStyle
	}{
		{entities.EdgeDefault, EdgeStyle{StrokeWidth: 1.5}},
		{entities.EdgeBranch, EdgeStyle{StrokeWidth: 2}},
		{entities.EdgeFollowUp, EdgeStyle{Animated: true, StrokeWidth: 2}},
		{entities.EdgeNote, EdgeStyle{StrokeWidth: 1, DashArray: "4 4"}},
		{entities.EdgeVariant("sparkly"), EdgeStyle{StrokeWidth: 1.5}},
	}

	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			assert.Equal(t, tt.want, StyleFor(tt.variant))
		})
	}
}

func TestToEdge(t *testing.T) {
	_, page, exploration, _ := testNodes(t)
	edge, err := entities.NewEdge(page.ID(), exploration.ID(), entities.EdgeFollowUp, "why?")
	require.NoError(t, err)

	presented := ToEdge(edge)

	assert.Equal(t, edge.ID().String(), presented.ID)
	assert.Equal(t, page.ID().String(), presented.Source)
	assert.Equal(t, exploration.ID().String(), presented.Target)
	assert.Equal(t, "why?", presented.Label)
	assert.True(t, presented.Style.Animated)
}
