package tree

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// cascader rewrites every row below a moved node. oldPrefix and newPrefix
// are the moved node's child paths before and after the move; delta is the
// change of its depth.
type cascader interface {
	mode() string
	run(ctx context.Context, e *Engine, oldPrefix, newPrefix string, delta int) (int, error)
}

// rowCascade loads each descendant, rewrites it and writes it back, so the
// observer sees every row.
type rowCascade struct{}

func (rowCascade) mode() string { return types.CascadeRow }

func (rowCascade) run(ctx context.Context, e *Engine, oldPrefix, newPrefix string, _ int) (int, error) {
	descendants, err := e.store.Query(ctx, e.descendantsOfChildPath(oldPrefix))
	if err != nil {
		return 0, fmt.Errorf("loading descendants of %q: %w", oldPrefix, err)
	}
	e.sortNodes(descendants)

	for _, d := range descendants {
		after := d
		after.Path = e.codec.RewritePrefix(d.Path, oldPrefix, newPrefix)
		after = e.prepare(after)
		if err := e.store.Update(ctx, after); err != nil {
			return 0, fmt.Errorf("rewriting node %s: %w", d.ID, err)
		}
		if err := e.notify(withCascading(ctx, d.ID), ChangeCascaded, d, after); err != nil {
			return 0, err
		}
	}
	return len(descendants), nil
}

// bulkCascade replaces the prefix in storage with one statement and shifts
// the depth cache by the same delta. Observers are not called per row.
type bulkCascade struct{}

func (bulkCascade) mode() string { return types.CascadeBulk }

func (bulkCascade) run(ctx context.Context, e *Engine, oldPrefix, newPrefix string, delta int) (int, error) {
	bu, ok := e.store.(types.BulkUpdater)
	if !ok {
		return 0, types.ErrBulkUnsupported
	}
	t := types.Transform{
		Rewrite: &types.PrefixRewrite{Column: e.schema.PathColumn, Old: oldPrefix, New: newPrefix},
	}
	if e.schema.HasDepth() && delta != 0 {
		t.Adjust = &types.ColumnAdjust{Column: e.schema.DepthColumn, Delta: delta}
	}
	n, err := bu.BulkUpdate(ctx, e.descendantsOfChildPath(oldPrefix), t)
	if err != nil {
		return 0, fmt.Errorf("bulk rewrite of %q: %w", oldPrefix, err)
	}
	return n, nil
}
