package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func TestCreate(t *testing.T) {
	e, _ := setupEngine(t, depthConfig())
	nodes := buildFixture(t, e)

	assert.Equal(t, "", nodes["1"].Path)
	assert.Equal(t, 0, nodes["1"].Depth)
	assert.Equal(t, "1/2/3", nodes["4"].Path)
	assert.Equal(t, 3, nodes["4"].Depth)
}

func TestCreate_Errors(t *testing.T) {
	ctx := context.Background()
	e, _ := setupEngine(t, types.DefaultTreeConfig())

	_, err := e.Create(ctx, types.Node{Name: "orphan"}, &types.Node{})
	assert.ErrorIs(t, err, types.ErrNotPersisted)

	_, err = e.Create(ctx, types.Node{Path: "1//2"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidFormat)
	assert.True(t, IsValidationError(err))

	_, err = e.Create(ctx, types.Node{ID: "7", Path: "3/7"}, nil)
	assert.ErrorIs(t, err, types.ErrSelfAncestor)

	_, err = e.Create(ctx, types.Node{}, &types.Node{ID: "99"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreate_UsesStoredParentPath(t *testing.T) {
	ctx := context.Background()
	e, _ := setupEngine(t, types.DefaultTreeConfig())
	nodes := buildFixture(t, e)

	stale := nodes["3"]
	stale.Path = "6"
	child, err := e.Create(ctx, types.Node{Name: "seven"}, &stale)
	require.NoError(t, err)
	assert.Equal(t, "1/2/3", child.Path)
}

func TestMove_Cascade(t *testing.T) {
	for _, mode := range []string{types.CascadeRow, types.CascadeBulk} {
		for _, encoding := range []string{types.EncodingBare, types.EncodingBracketed} {
			t.Run(mode+"/"+encoding, func(t *testing.T) {
				cfg := depthConfig()
				cfg.Cascade = mode
				cfg.Encoding = encoding
				e, _ := setupEngine(t, cfg)
				buildFixture(t, e)
				c := e.Codec()
				ctx := context.Background()

				moved, err := e.Move(ctx, "2", "5")
				require.NoError(t, err)
				assert.Equal(t, c.Render([]types.ID{"1", "5"}), moved.Path)

				want := map[types.ID][]types.ID{
					"2": {"1", "5"},
					"3": {"1", "5", "2"},
					"4": {"1", "5", "2", "3"},
					"5": {"1"},
				}
				for id, ancestors := range want {
					n := mustFind(t, e, id)
					assert.Equal(t, c.Render(ancestors), n.Path, "path of %s", id)
					assert.Equal(t, len(ancestors), n.Depth, "depth of %s", id)
				}
			})
		}
	}
}

// Reparenting 2 under the root 5 in the forest 1 -> 2 -> 3, 5.
func TestMove_ReparentUnderRoot(t *testing.T) {
	for _, mode := range []string{types.CascadeRow, types.CascadeBulk} {
		t.Run(mode, func(t *testing.T) {
			cfg := depthConfig()
			cfg.Cascade = mode
			e, store := setupEngine(t, cfg)
			seed(t, store,
				types.Node{ID: "1", Path: ""},
				types.Node{ID: "2", Path: "1", Depth: 1},
				types.Node{ID: "3", Path: "1/2", Depth: 2},
				types.Node{ID: "5", Path: ""},
			)

			_, err := e.Move(context.Background(), "2", "5")
			require.NoError(t, err)

			two := mustFind(t, e, "2")
			three := mustFind(t, e, "3")
			assert.Equal(t, "5", two.Path)
			assert.Equal(t, "5/2", three.Path)
			assert.Equal(t, 1, two.Depth)
			assert.Equal(t, 2, three.Depth)
		})
	}
}

func TestMove_ToRoot(t *testing.T) {
	e, _ := setupEngine(t, depthConfig())
	buildFixture(t, e)
	ctx := context.Background()

	_, err := e.Move(ctx, "3", "")
	require.NoError(t, err)

	assert.Equal(t, "", mustFind(t, e, "3").Path)
	four := mustFind(t, e, "4")
	assert.Equal(t, "3", four.Path)
	assert.Equal(t, 1, four.Depth)
}

func TestMove_IntoOwnSubtree(t *testing.T) {
	e, _ := setupEngine(t, types.DefaultTreeConfig())
	buildFixture(t, e)
	ctx := context.Background()

	_, err := e.Move(ctx, "2", "4")
	assert.ErrorIs(t, err, types.ErrSelfAncestor)
	_, err = e.Move(ctx, "2", "2")
	assert.ErrorIs(t, err, types.ErrSelfAncestor)

	assert.Equal(t, "1/2/3", mustFind(t, e, "4").Path, "failed move leaves storage unchanged")
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	e, _ := setupEngine(t, depthConfig())
	nodes := buildFixture(t, e)

	two := nodes["2"]
	two.Name = "renamed"
	two.Depth = 42
	saved, err := e.Save(ctx, two)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Depth, "depth cache is recomputed on save")
	assert.Equal(t, "renamed", mustFind(t, e, "2").Name)

	_, err = e.Save(ctx, types.Node{Name: "new"})
	assert.ErrorIs(t, err, types.ErrNotPersisted)

	_, err = e.Save(ctx, types.Node{ID: "99"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSave_ObserverSeesEveryRow(t *testing.T) {
	ctx := context.Background()
	var changes []Change
	obs := ObserverFunc(func(ctx context.Context, c Change) error {
		changes = append(changes, c)
		return nil
	})
	cfg := types.DefaultTreeConfig()
	cfg.Cascade = types.CascadeRow
	e, _ := setupEngine(t, cfg, WithObserver(obs))
	buildFixture(t, e)
	changes = nil

	_, err := e.Move(ctx, "2", "6")
	require.NoError(t, err)

	require.Len(t, changes, 3)
	assert.Equal(t, ChangeMoved, changes[0].Kind)
	assert.Equal(t, types.ID("2"), changes[0].After.ID)
	assert.Equal(t, ChangeCascaded, changes[1].Kind)
	assert.Equal(t, "1/2", changes[1].Before.Path)
	assert.Equal(t, "6/2", changes[1].After.Path)
	assert.Equal(t, ChangeCascaded, changes[2].Kind)
	assert.Equal(t, "6/2/3", changes[2].After.Path)
}

// An observer that saves the row it was told about must not trigger a second
// cascade over the same subtree.
func TestSave_ObserverReentrancy(t *testing.T) {
	ctx := context.Background()
	cfg := depthConfig()
	cfg.Cascade = types.CascadeRow

	cascaded := 0
	obs := ObserverFunc(func(ctx context.Context, c Change) error {
		if c.Kind != ChangeCascaded {
			return nil
		}
		cascaded++
		_, err := c.Tx.Save(ctx, c.After)
		return err
	})
	e, _ := setupEngine(t, cfg, WithObserver(obs))
	buildFixture(t, e)

	_, err := e.Move(ctx, "2", "6")
	require.NoError(t, err)
	assert.Equal(t, 2, cascaded)
	assert.Equal(t, "6/2/3", mustFind(t, e, "4").Path)
	assert.Equal(t, 3, mustFind(t, e, "4").Depth)
}

func TestCascadingGuard(t *testing.T) {
	ctx := context.Background()
	assert.False(t, isCascading(ctx, "1"))

	inner := withCascading(withCascading(ctx, "1"), "2")
	assert.True(t, isCascading(inner, "1"))
	assert.True(t, isCascading(inner, "2"))
	assert.False(t, isCascading(withCascading(ctx, "2"), "1"), "sets are not shared between branches")
}

func TestSave_ObserverErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	obs := ObserverFunc(func(ctx context.Context, c Change) error {
		if c.Kind == ChangeCascaded {
			return boom
		}
		return nil
	})
	cfg := types.DefaultTreeConfig()
	cfg.Cascade = types.CascadeRow
	e, _ := setupEngine(t, cfg, WithObserver(obs))
	buildFixture(t, e)

	_, err := e.Move(ctx, "2", "6")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "1", mustFind(t, e, "2").Path)
	assert.Equal(t, "1/2", mustFind(t, e, "3").Path)
}
