package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

var testSchema = types.Schema{
	IDColumn:    "id",
	PathColumn:  "ancestry",
	DepthColumn: "depth",
	NameColumn:  "name",
	KeyKind:     types.KeyInteger,
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testSchema)

	n, err := s.Create(ctx, types.Node{Name: "root"})
	require.NoError(t, err)
	assert.Equal(t, types.ID("1"), n.ID)

	got, err := s.Find(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "root", got.Name)

	got.Name = "renamed"
	require.NoError(t, s.Update(ctx, got))
	got, err = s.Find(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	require.NoError(t, s.Delete(ctx, "1"))
	_, err = s.Find(ctx, "1")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "1"), types.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, types.Node{ID: "1"}), types.ErrNotFound)
}

func TestStore_CreateIDs(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testSchema)

	_, err := s.Create(ctx, types.Node{ID: "10"})
	require.NoError(t, err)

	n, err := s.Create(ctx, types.Node{})
	require.NoError(t, err)
	assert.Equal(t, types.ID("11"), n.ID, "sequence continues after explicit ids")

	_, err = s.Create(ctx, types.Node{ID: "10"})
	assert.ErrorIs(t, err, types.ErrDuplicateID)

	_, err = s.Create(ctx, types.Node{ID: "abc"})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestStore_StringKeys(t *testing.T) {
	schema := testSchema
	schema.KeyKind = types.KeyString
	s := NewStore(schema)

	n, err := s.Create(context.Background(), types.Node{Name: "a"})
	require.NoError(t, err)
	assert.Len(t, string(n.ID), 36)
}

func TestStore_QueryAndBulkUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testSchema)
	for _, n := range []types.Node{
		{ID: "1", Path: ""},
		{ID: "2", Path: "1", Depth: 1},
		{ID: "3", Path: "1/2", Depth: 2},
		{ID: "4", Path: "41/2", Depth: 2},
	} {
		_, err := s.Create(ctx, n)
		require.NoError(t, err)
	}

	under := types.Or(types.Eq("ancestry", "1/2"), types.HasPrefix("ancestry", "1/2/"))
	rows, err := s.Query(ctx, types.HasPrefix("ancestry", "1"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	changed, err := s.BulkUpdate(ctx, under, types.Transform{
		Rewrite: &types.PrefixRewrite{Column: "ancestry", Old: "1/2", New: "5/2"},
		Adjust:  &types.ColumnAdjust{Column: "depth", Delta: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	n, err := s.Find(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "5/2", n.Path)

	n, err = s.Find(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "41/2", n.Path, "non-matching rows are untouched")
}

func TestStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testSchema)
	_, err := s.Create(ctx, types.Node{ID: "1"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTransaction(ctx, func(ctx context.Context, tx types.Store) error {
		if _, err := tx.Create(ctx, types.Node{ID: "2"}); err != nil {
			return err
		}
		if err := tx.Delete(ctx, "1"); err != nil {
			return err
		}
		return tx.WithTransaction(ctx, func(ctx context.Context, inner types.Store) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Len())

	_, err = s.Find(ctx, "1")
	assert.NoError(t, err)
}

func TestBackend_Lifecycle(t *testing.T) {
	b := NewBackend(testSchema)

	_, err := b.Store()
	assert.ErrorIs(t, err, types.ErrStoreDetached)

	require.NoError(t, b.Attach(types.Config{Backend: types.BackendMemory}))
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendMemory}), types.ErrAlreadyAttached)

	s, err := b.Store()
	require.NoError(t, err)
	assert.NotNil(t, s)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach())
}
