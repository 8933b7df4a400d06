package tree

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Related queries the store for rel relative to n. Results are ordered by
// depth, then path, then id, independent of the store.
func (e *Engine) Related(ctx context.Context, rel Relation, n types.Node, filters ...DepthFilter) ([]types.Node, error) {
	p, err := e.Conditions(rel, n, filters...)
	if err != nil {
		return nil, err
	}
	nodes, err := e.store.Query(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("querying %s of node %s: %w", rel, n.ID, err)
	}
	e.sortNodes(nodes)
	return nodes, nil
}

// Ancestors returns n's ancestors, root first.
func (e *Engine) Ancestors(ctx context.Context, n types.Node, filters ...DepthFilter) ([]types.Node, error) {
	return e.Related(ctx, Ancestors, n, filters...)
}

// Path returns n's ancestors followed by n.
func (e *Engine) Path(ctx context.Context, n types.Node, filters ...DepthFilter) ([]types.Node, error) {
	return e.Related(ctx, PathTo, n, filters...)
}

// Children returns n's direct children.
func (e *Engine) Children(ctx context.Context, n types.Node) ([]types.Node, error) {
	return e.Related(ctx, Children, n)
}

// Siblings returns the nodes sharing n's parent, n included.
func (e *Engine) Siblings(ctx context.Context, n types.Node) ([]types.Node, error) {
	return e.Related(ctx, Siblings, n)
}

// Descendants returns all strict descendants of n.
func (e *Engine) Descendants(ctx context.Context, n types.Node, filters ...DepthFilter) ([]types.Node, error) {
	return e.Related(ctx, Descendants, n, filters...)
}

// Indirects returns the descendants of n that are not its children.
func (e *Engine) Indirects(ctx context.Context, n types.Node, filters ...DepthFilter) ([]types.Node, error) {
	return e.Related(ctx, Indirects, n, filters...)
}

// Subtree returns n and all of its descendants.
func (e *Engine) Subtree(ctx context.Context, n types.Node, filters ...DepthFilter) ([]types.Node, error) {
	return e.Related(ctx, Subtree, n, filters...)
}

// Roots returns every root node.
func (e *Engine) Roots(ctx context.Context) ([]types.Node, error) {
	nodes, err := e.store.Query(ctx, e.RootConditions())
	if err != nil {
		return nil, fmt.Errorf("querying roots: %w", err)
	}
	e.sortNodes(nodes)
	return nodes, nil
}

// Find loads one node.
func (e *Engine) Find(ctx context.Context, id types.ID) (types.Node, error) {
	return e.store.Find(ctx, id)
}

// Parent returns n's parent, or nil for a root.
func (e *Engine) Parent(ctx context.Context, n types.Node) (*types.Node, error) {
	id, ok := e.codec.ParentID(n)
	if !ok {
		return nil, nil
	}
	p, err := e.store.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading parent %s of node %s: %w", id, n.ID, err)
	}
	return &p, nil
}

// Root returns the root of n's tree, which is n itself for a root.
func (e *Engine) Root(ctx context.Context, n types.Node) (types.Node, error) {
	if e.codec.IsRoot(n) {
		return n, nil
	}
	return e.store.Find(ctx, e.codec.RootID(n))
}

// HasChildren reports whether any node lists n as its parent.
func (e *Engine) HasChildren(ctx context.Context, n types.Node) (bool, error) {
	children, err := e.Related(ctx, Children, n)
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

// HasSiblings reports whether n shares its parent with another node.
func (e *Engine) HasSiblings(ctx context.Context, n types.Node) (bool, error) {
	siblings, err := e.Related(ctx, Siblings, n)
	if err != nil {
		return false, err
	}
	for _, s := range siblings {
		if s.ID != n.ID {
			return true, nil
		}
	}
	return false, nil
}

// sortNodes orders nodes by depth, path, then id.
func (e *Engine) sortNodes(nodes []types.Node) {
	slices.SortStableFunc(nodes, func(a, b types.Node) int {
		if c := cmp.Compare(e.codec.Depth(a.Path), e.codec.Depth(b.Path)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return e.compareIDs(a.ID, b.ID)
	})
}

// compareIDs orders integer keys numerically and string keys lexically.
func (e *Engine) compareIDs(a, b types.ID) int {
	if e.cfg.KeyKind == types.KeyInteger {
		ai, aerr := strconv.ParseInt(string(a), 10, 64)
		bi, berr := strconv.ParseInt(string(b), 10, 64)
		if aerr == nil && berr == nil {
			return cmp.Compare(ai, bi)
		}
	}
	return cmp.Compare(a, b)
}
