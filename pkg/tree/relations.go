package tree

import (
	"slices"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Relation tests that only need the nodes' own paths; none of them touch
// storage.

// AncestorIDs returns n's ancestors, root first.
func (c Codec) AncestorIDs(n types.Node) []types.ID {
	return c.Parse(n.Path)
}

// PathIDs returns n's ancestors followed by n itself.
func (c Codec) PathIDs(n types.Node) []types.ID {
	return append(c.Parse(n.Path), n.ID)
}

// ParentID returns the id of n's parent. ok is false for roots.
func (c Codec) ParentID(n types.Node) (id types.ID, ok bool) {
	ids := c.Parse(n.Path)
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}

// RootID returns the id of the root of n's tree, which is n.ID for roots.
func (c Codec) RootID(n types.Node) types.ID {
	ids := c.Parse(n.Path)
	if len(ids) == 0 {
		return n.ID
	}
	return ids[0]
}

// IsRoot reports whether n has no parent.
func (c Codec) IsRoot(n types.Node) bool {
	return c.IsRootPath(n.Path)
}

// IsAncestorOf reports whether a is a strict ancestor of d.
func (c Codec) IsAncestorOf(a, d types.Node) bool {
	return slices.Contains(c.Parse(d.Path), a.ID)
}

// IsDescendantOf reports whether d is a strict descendant of a.
func (c Codec) IsDescendantOf(d, a types.Node) bool {
	return c.IsAncestorOf(a, d)
}

// IsParentOf reports whether p is the parent of ch.
func (c Codec) IsParentOf(p, ch types.Node) bool {
	id, ok := c.ParentID(ch)
	return ok && id == p.ID
}

// IsChildOf reports whether ch is a direct child of p.
func (c Codec) IsChildOf(ch, p types.Node) bool {
	return c.IsParentOf(p, ch)
}

// IsSiblingOf reports whether a and b share a parent. A node is its own
// sibling, matching the sibling predicate.
func (c Codec) IsSiblingOf(a, b types.Node) bool {
	return c.Normalize(a.Path) == c.Normalize(b.Path)
}

// IsIndirectOf reports whether d descends from a through at least one
// intermediate node.
func (c Codec) IsIndirectOf(d, a types.Node) bool {
	return c.IsDescendantOf(d, a) && !c.IsChildOf(d, a)
}
