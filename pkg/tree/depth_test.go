package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func TestRebuildDepthCache(t *testing.T) {
	ctx := context.Background()
	e, store := setupEngine(t, depthConfig())
	seed(t, store,
		types.Node{ID: "1", Depth: 4},
		types.Node{ID: "2", Path: "1", Depth: 1},
		types.Node{ID: "3", Path: "1/2", Depth: 0},
	)

	fixed, err := e.RebuildDepthCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)

	for _, id := range []types.ID{"1", "2", "3"} {
		n := mustFind(t, e, id)
		assert.Equal(t, e.Codec().Depth(n.Path), n.Depth, "depth of %s", id)
	}

	fixed, err = e.RebuildDepthCache(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}

func TestRebuildDepthCache_AfterMoves(t *testing.T) {
	ctx := context.Background()
	e, _ := setupEngine(t, depthConfig())
	buildFixture(t, e)

	for _, mv := range [][2]types.ID{{"2", "5"}, {"3", ""}, {"5", "6"}, {"4", "1"}} {
		_, err := e.Move(ctx, mv[0], mv[1])
		require.NoError(t, err)
	}

	fixed, err := e.RebuildDepthCache(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed, "moves keep the depth cache current")
}

func TestRebuildDepthCache_Disabled(t *testing.T) {
	e, _ := setupEngine(t, types.DefaultTreeConfig())
	_, err := e.RebuildDepthCache(context.Background())
	assert.ErrorIs(t, err, types.ErrDepthCacheDisabled)
}
