package tree

import (
	"context"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// TreeNode is one node of an arranged forest.
type TreeNode struct {
	Node     types.Node  `json:"node"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Arrange nests a flat node set into a forest. Nodes whose parent is not in
// the set become top-level entries. Children keep the engine's ordering.
func (e *Engine) Arrange(nodes []types.Node) []*TreeNode {
	sorted := slices.Clone(nodes)
	e.sortNodes(sorted)

	index := make(map[types.ID]*TreeNode, len(sorted))
	for _, n := range sorted {
		index[n.ID] = &TreeNode{Node: n}
	}

	var forest []*TreeNode
	for _, n := range sorted {
		t := index[n.ID]
		if pid, ok := e.codec.ParentID(n); ok {
			if parent, ok := index[pid]; ok {
				parent.Children = append(parent.Children, t)
				continue
			}
		}
		forest = append(forest, t)
	}
	return forest
}

// Walk visits t and its descendants depth first, passing each node's level
// below t.
func (t *TreeNode) Walk(fn func(n *TreeNode, level int)) {
	var visit func(*TreeNode, int)
	visit = func(n *TreeNode, level int) {
		fn(n, level)
		for _, c := range n.Children {
			visit(c, level+1)
		}
	}
	visit(t, 0)
}

// SortByAncestry returns nodes ordered so that every node follows its
// ancestors, with siblings in id order. The input is not modified.
func (e *Engine) SortByAncestry(nodes []types.Node) []types.Node {
	var out []types.Node
	for _, t := range e.Arrange(nodes) {
		t.Walk(func(n *TreeNode, _ int) { out = append(out, n.Node) })
	}
	return out
}

// MigrateFromParentIDs assigns paths from a parent-id mapping, the layout
// of adjacency-list tables. parents maps every node id to its parent id, or
// to "" for roots. Nodes are written breadth-first from the roots; ids
// unreachable from a root (cycles or missing parents) are left untouched
// and returned.
func (e *Engine) MigrateFromParentIDs(ctx context.Context, parents map[types.ID]types.ID) ([]types.ID, error) {
	children := make(map[types.ID][]types.ID)
	for id, parent := range parents {
		children[parent] = append(children[parent], id)
	}
	for _, ids := range children {
		slices.SortFunc(ids, e.compareIDs)
	}

	visited := make(map[types.ID]bool, len(parents))
	err := e.store.WithTransaction(ctx, func(ctx context.Context, tx types.Store) error {
		type item struct {
			id   types.ID
			path []types.ID
		}
		var queue []item
		for _, id := range children[""] {
			queue = append(queue, item{id: id})
		}

		for len(queue) > 0 {
			it := queue[0]
			queue = queue[1:]
			if visited[it.id] {
				continue
			}
			visited[it.id] = true

			n, err := tx.Find(ctx, it.id)
			if err != nil {
				return fmt.Errorf("loading node %s: %w", it.id, err)
			}
			n.Path = e.codec.Render(it.path)
			n = e.prepare(n)
			if err := tx.Update(ctx, n); err != nil {
				return fmt.Errorf("writing path of node %s: %w", it.id, err)
			}

			childPath := append(slices.Clone(it.path), it.id)
			for _, c := range children[it.id] {
				queue = append(queue, item{id: c, path: childPath})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var skipped []types.ID
	for id := range parents {
		if !visited[id] {
			skipped = append(skipped, id)
		}
	}
	slices.SortFunc(skipped, e.compareIDs)
	return skipped, nil
}
