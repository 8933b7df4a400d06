package types

import (
	"strconv"
)

// ID identifies a node. Integer keys are carried in their decimal form so
// that every store and the path codec share a single representation.
type ID string

// Int64 parses the ID as an integer key.
func (id ID) Int64() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// Node is one row of the tree table. Path holds the encoded ancestor chain;
// the root representation of the configured encoding marks a root node.
// Depth mirrors the depth cache column and is meaningful only when the
// model caches depth.
type Node struct {
	ID    ID     `json:"id"`
	Path  string `json:"path"`
	Depth int    `json:"depth"`
	Name  string `json:"name,omitempty"`
}

// Persisted reports whether the node has been assigned an identifier.
func (n Node) Persisted() bool {
	return n.ID != ""
}

// Key kinds for the primary key column.
const (
	KeyInteger = "integer"
	KeyString  = "string"
)

// Schema names the physical columns a store exposes for tree rows. The
// engine builds predicates against these names and stores resolve them
// back to Node fields.
type Schema struct {
	IDColumn    string
	PathColumn  string
	DepthColumn string // empty when depth is not cached
	NameColumn  string
	KeyKind     string
}

// HasDepth reports whether the schema carries a depth cache column.
func (s Schema) HasDepth() bool {
	return s.DepthColumn != ""
}

// Value returns the node field stored under column. Integer depth is
// returned as int; identifiers and paths as string. ok is false when the
// column is not part of the schema.
func (s Schema) Value(n Node, column string) (v any, ok bool) {
	switch column {
	case s.IDColumn:
		return string(n.ID), true
	case s.PathColumn:
		return n.Path, true
	case s.NameColumn:
		return n.Name, s.NameColumn != ""
	}
	if s.DepthColumn != "" && column == s.DepthColumn {
		return n.Depth, true
	}
	return nil, false
}
