package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func TestRelated(t *testing.T) {
	for _, encoding := range []string{types.EncodingBare, types.EncodingBracketed} {
		t.Run(encoding, func(t *testing.T) {
			cfg := depthConfig()
			cfg.Encoding = encoding
			e, _ := setupEngine(t, cfg)
			nodes := buildFixture(t, e)
			ctx := context.Background()

			tests := []struct {
				rel  Relation
				node types.ID
				want []types.ID
			}{
				{Ancestors, "4", []types.ID{"1", "2", "3"}},
				{Ancestors, "1", []types.ID{}},
				{PathTo, "3", []types.ID{"1", "2", "3"}},
				{Children, "1", []types.ID{"2", "5"}},
				{Children, "4", []types.ID{}},
				{Siblings, "2", []types.ID{"2", "5"}},
				{Siblings, "1", []types.ID{"1", "6"}},
				{Descendants, "1", []types.ID{"2", "5", "3", "4"}},
				{Descendants, "2", []types.ID{"3", "4"}},
				{Indirects, "1", []types.ID{"3", "4"}},
				{Subtree, "2", []types.ID{"2", "3", "4"}},
			}
			for _, tt := range tests {
				got, err := e.Related(ctx, tt.rel, nodes[tt.node])
				require.NoError(t, err, "%s of %s", tt.rel, tt.node)
				assert.Equal(t, tt.want, append([]types.ID{}, ids(got)...), "%s of %s", tt.rel, tt.node)
			}
		})
	}
}

// Prefix matches must respect segment boundaries: node 2's subtree must not
// pick up node 20's rows.
func TestRelated_SegmentBoundaries(t *testing.T) {
	for _, encoding := range []string{types.EncodingBare, types.EncodingBracketed} {
		t.Run(encoding, func(t *testing.T) {
			cfg := types.DefaultTreeConfig()
			cfg.Encoding = encoding
			e, store := setupEngine(t, cfg)
			c := e.Codec()
			seed(t, store,
				types.Node{ID: "1", Path: c.Root()},
				types.Node{ID: "2", Path: c.Render([]types.ID{"1"})},
				types.Node{ID: "20", Path: c.Render([]types.ID{"1"})},
				types.Node{ID: "3", Path: c.Render([]types.ID{"1", "2"})},
				types.Node{ID: "30", Path: c.Render([]types.ID{"1", "20"})},
			)
			ctx := context.Background()

			got, err := e.Descendants(ctx, mustFind(t, e, "2"))
			require.NoError(t, err)
			assert.Equal(t, []types.ID{"3"}, ids(got))

			got, err = e.Descendants(ctx, mustFind(t, e, "1"))
			require.NoError(t, err)
			assert.Equal(t, []types.ID{"2", "20", "3", "30"}, ids(got))
		})
	}
}

// An empty path is a root under the bracketed encoding too, so roots and
// root siblings must include it alongside "/".
func TestRoots_EmptyPathBracketed(t *testing.T) {
	cfg := types.DefaultTreeConfig()
	cfg.Encoding = types.EncodingBracketed
	e, store := setupEngine(t, cfg)
	seed(t, store,
		types.Node{ID: "1", Path: ""},
		types.Node{ID: "2", Path: "/"},
		types.Node{ID: "3", Path: "/1/"},
	)
	ctx := context.Background()

	roots, err := e.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"1", "2"}, ids(roots))

	for _, id := range []types.ID{"1", "2"} {
		got, err := e.Siblings(ctx, mustFind(t, e, id))
		require.NoError(t, err)
		assert.Equal(t, []types.ID{"1", "2"}, ids(got), "siblings of %s", id)
	}

	p, err := e.PreloadSiblings(ctx, []types.Node{mustFind(t, e, "1")})
	require.NoError(t, err)
	got, err := p.Siblings(ctx, mustFind(t, e, "2"))
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"1", "2"}, ids(got))
	assert.Equal(t, 1, p.Queries())

	children, err := e.Children(ctx, mustFind(t, e, "1"))
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"3"}, ids(children))
}

func TestRelated_DepthFilters(t *testing.T) {
	e, _ := setupEngine(t, depthConfig())
	nodes := buildFixture(t, e)
	ctx := context.Background()

	tests := []struct {
		name   string
		rel    Relation
		node   types.ID
		filter DepthFilter
		want   []types.ID
	}{
		{"descendants at relative depth 1", Descendants, "1", DepthFilter{AtDepth, 1}, []types.ID{"2", "5"}},
		{"descendants to relative depth 2", Descendants, "1", DepthFilter{ToDepth, 2}, []types.ID{"2", "5", "3"}},
		{"descendants after relative depth 2", Descendants, "1", DepthFilter{AfterDepth, 2}, []types.ID{"4"}},
		{"descendants from relative depth 2", Descendants, "1", DepthFilter{FromDepth, 2}, []types.ID{"3", "4"}},
		{"ancestors before relative depth -1", Ancestors, "4", DepthFilter{BeforeDepth, -1}, []types.ID{"1", "2"}},
		{"subtree at own depth", Subtree, "2", DepthFilter{AtDepth, 0}, []types.ID{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Related(ctx, tt.rel, nodes[tt.node], tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestRelated_DepthFilterNeedsCache(t *testing.T) {
	e, _ := setupEngine(t, types.DefaultTreeConfig())
	nodes := buildFixture(t, e)

	_, err := e.Descendants(context.Background(), nodes["1"], DepthFilter{AtDepth, 1})
	assert.ErrorIs(t, err, types.ErrDepthCacheDisabled)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestConditions_UnknownRelation(t *testing.T) {
	e, _ := setupEngine(t, types.DefaultTreeConfig())
	_, err := e.Conditions("cousins", types.Node{ID: "1"})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestConditions_UnsavedNode(t *testing.T) {
	e, _ := setupEngine(t, types.DefaultTreeConfig())
	_, err := e.ChildConditions(types.Node{})
	assert.ErrorIs(t, err, types.ErrNotPersisted)
}

func TestQueryHelpers(t *testing.T) {
	e, _ := setupEngine(t, types.DefaultTreeConfig())
	nodes := buildFixture(t, e)
	ctx := context.Background()

	roots, err := e.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"1", "6"}, ids(roots))

	parent, err := e.Parent(ctx, nodes["3"])
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, types.ID("2"), parent.ID)

	parent, err = e.Parent(ctx, nodes["1"])
	require.NoError(t, err)
	assert.Nil(t, parent)

	root, err := e.Root(ctx, nodes["4"])
	require.NoError(t, err)
	assert.Equal(t, types.ID("1"), root.ID)

	has, err := e.HasChildren(ctx, nodes["2"])
	require.NoError(t, err)
	assert.True(t, has)
	has, err = e.HasChildren(ctx, nodes["4"])
	require.NoError(t, err)
	assert.False(t, has)

	has, err = e.HasSiblings(ctx, nodes["5"])
	require.NoError(t, err)
	assert.True(t, has)
	has, err = e.HasSiblings(ctx, nodes["3"])
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSortNodes_NumericIDs(t *testing.T) {
	e, _ := setupEngine(t, types.DefaultTreeConfig())
	nodes := []types.Node{{ID: "10"}, {ID: "9"}, {ID: "2", Path: "1"}, {ID: "1"}}
	e.sortNodes(nodes)
	assert.Equal(t, []types.ID{"1", "9", "10", "2"}, ids(nodes))
}
