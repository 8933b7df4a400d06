package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func TestReadJSONL(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty file", "", 0},
		{"two records", `{"id":1}` + "\n" + `{"id":2}` + "\n", 2},
		{"blank lines skipped", "\n" + `{"id":1}` + "\n\n", 1},
		{"malformed lines skipped", `{"id":1}` + "\n{not json\n" + `{"id":2}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nodes.jsonl")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			records, err := readJSONL(path)
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}

	_, err := readJSONL(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestWriteJSONL_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodes.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))

	require.NoError(t, writeJSONL(path, []json.RawMessage{json.RawMessage(`{"id":"1"}`)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`+"\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	_, src := setupBackend(t, testSchema)
	nodes := []types.Node{
		{ID: "1", Name: "root"},
		{ID: "2", Path: "1", Depth: 1, Name: "child"},
		{ID: "3", Path: "1/2", Depth: 2, Name: "grandchild"},
	}
	for _, n := range nodes {
		_, err := src.Create(ctx, n)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "export", "nodes.jsonl")
	require.NoError(t, ExportJSONL(path, nodes))

	_, dst := setupBackend(t, testSchema)
	res, err := ImportJSONL(ctx, dst, path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Zero(t, res.Skipped)
	assert.Nil(t, res.Parents)

	for _, want := range nodes {
		got, err := dst.Find(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	res, err = ImportJSONL(ctx, dst, path)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 3, res.Skipped, "existing ids are skipped")
}

func TestImportJSONL_ParentIDs(t *testing.T) {
	ctx := context.Background()
	_, s := setupBackend(t, testSchema)

	path := filepath.Join(t.TempDir(), "legacy.jsonl")
	content := `{"id":1,"name":"a","parent_id":null}
{"id":2,"name":"b","parent_id":1}
{"id":"3","name":"c","parent_id":"2"}
{"id":"x","name":"bad id"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	res, err := ImportJSONL(ctx, s, path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, map[types.ID]types.ID{"1": "", "2": "1", "3": "2"}, res.Parents)
}
