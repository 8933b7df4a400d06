package sqlite

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// nodesTable is the SQLite table holding tree rows.
const nodesTable = "nodes"

// dbFile is the database file name inside DataDir.
const dbFile = "pathtree.db"

// quote returns column as a quoted SQLite identifier. Column names are
// validated as plain identifiers by TreeConfig.Validate.
func quote(column string) string {
	return `"` + strings.ReplaceAll(column, `"`, `""`) + `"`
}

// schemaDDL returns the statements that create the nodes table and its
// indexes for schema. The statements are idempotent.
func schemaDDL(schema types.Schema) []string {
	id := quote(schema.IDColumn) + " TEXT PRIMARY KEY"
	if schema.KeyKind == types.KeyInteger {
		id = quote(schema.IDColumn) + " INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	cols := []string{
		id,
		quote(schema.PathColumn) + " TEXT NOT NULL DEFAULT ''",
	}
	if schema.HasDepth() {
		cols = append(cols, quote(schema.DepthColumn)+" INTEGER NOT NULL DEFAULT 0")
	}
	if schema.NameColumn != "" {
		cols = append(cols, quote(schema.NameColumn)+" TEXT NOT NULL DEFAULT ''")
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);", nodesTable, strings.Join(cols, ",\n    ")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_nodes_path ON %s(%s);", nodesTable, quote(schema.PathColumn)),
	}
	if schema.HasDepth() {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_nodes_depth ON %s(%s);", nodesTable, quote(schema.DepthColumn)))
	}
	return stmts
}

// selectColumns returns the column list read by every query, in scan order.
func selectColumns(schema types.Schema) []string {
	cols := []string{schema.IDColumn, schema.PathColumn}
	if schema.HasDepth() {
		cols = append(cols, schema.DepthColumn)
	}
	if schema.NameColumn != "" {
		cols = append(cols, schema.NameColumn)
	}
	return cols
}

func joinColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}
