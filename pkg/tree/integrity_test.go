package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		rows []types.Node
		want map[types.ID]string
	}{
		{
			name: "clean forest",
			rows: []types.Node{
				{ID: "1"}, {ID: "2", Path: "1"}, {ID: "3", Path: "1/2"},
			},
			want: map[types.ID]string{},
		},
		{
			name: "invalid format",
			rows: []types.Node{
				{ID: "1"}, {ID: "2", Path: "1//"},
			},
			want: map[types.ID]string{"2": types.ViolationInvalidFormat},
		},
		{
			name: "node in its own path",
			rows: []types.Node{
				{ID: "1"}, {ID: "2", Path: "1/2"},
			},
			want: map[types.ID]string{"2": types.ViolationCyclicAncestry},
		},
		{
			name: "missing ancestor",
			rows: []types.Node{
				{ID: "1"}, {ID: "3", Path: "1/2"},
			},
			want: map[types.ID]string{"3": types.ViolationDanglingAncestor},
		},
		{
			name: "two parents for one node",
			rows: []types.Node{
				{ID: "1"}, {ID: "5"}, {ID: "2", Path: "1"}, {ID: "3", Path: "5/2"},
			},
			want: map[types.ID]string{"3": types.ViolationConflictingParent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store := setupEngine(t, types.DefaultTreeConfig())
			seed(t, store, tt.rows...)

			violations, err := e.Check(context.Background(), ReportCollect)
			require.NoError(t, err)
			got := make(map[types.ID]string)
			for _, v := range violations {
				got[v.NodeID] = v.Kind
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_Raise(t *testing.T) {
	e, store := setupEngine(t, types.DefaultTreeConfig())
	seed(t, store, types.Node{ID: "1", Path: "1"}, types.Node{ID: "2", Path: "x"})

	violations, err := e.Check(context.Background(), ReportRaise)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIntegrity)
	require.Len(t, violations, 1)
	assert.Equal(t, types.ID("1"), violations[0].NodeID)
	assert.Equal(t, types.ViolationCyclicAncestry, violations[0].Kind)
}

func TestCheck_Echo(t *testing.T) {
	e, store := setupEngine(t, types.DefaultTreeConfig())
	seed(t, store, types.Node{ID: "2", Path: "9"})

	violations, err := e.Check(context.Background(), ReportEcho)
	require.NoError(t, err)
	assert.Len(t, violations, 1)
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name string
		rows []types.Node
		want map[types.ID]string
	}{
		{
			name: "cyclic node is demoted to root",
			rows: []types.Node{
				{ID: "1"}, {ID: "2", Path: "1/2"}, {ID: "3", Path: "1/2"},
			},
			want: map[types.ID]string{"1": "", "2": "", "3": "2"},
		},
		{
			name: "cycle across rows is broken",
			rows: []types.Node{
				{ID: "1", Path: "2"}, {ID: "2", Path: "1"},
			},
			want: map[types.ID]string{"1": "", "2": "1"},
		},
		{
			name: "missing parent makes a root",
			rows: []types.Node{
				{ID: "1"}, {ID: "3", Path: "1/2"}, {ID: "4", Path: "1/2/3"},
			},
			want: map[types.ID]string{"3": "", "4": "3"},
		},
		{
			name: "conflicting paths follow the parent",
			rows: []types.Node{
				{ID: "1"}, {ID: "5"}, {ID: "2", Path: "1"}, {ID: "3", Path: "5/2"},
			},
			want: map[types.ID]string{"2": "1", "3": "1/2"},
		},
		{
			name: "malformed path becomes root",
			rows: []types.Node{
				{ID: "1"}, {ID: "2", Path: "1//"},
			},
			want: map[types.ID]string{"2": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			e, store := setupEngine(t, depthConfig())
			seed(t, store, tt.rows...)

			require.NoError(t, e.Restore(ctx))
			assert.Equal(t, len(tt.rows), store.Len(), "restore never deletes rows")

			for id, path := range tt.want {
				n := mustFind(t, e, id)
				assert.Equal(t, path, n.Path, "path of %s", id)
				assert.Equal(t, e.Codec().Depth(path), n.Depth, "depth of %s", id)
			}

			violations, err := e.Check(ctx, ReportCollect)
			require.NoError(t, err)
			assert.Empty(t, violations)
		})
	}
}
