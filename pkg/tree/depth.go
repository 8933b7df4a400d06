package tree

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// RebuildDepthCache recomputes the depth cache of every node from its path
// and writes back the rows that were stale. Returns the number of rows
// fixed. Fails with ErrDepthCacheDisabled when the model has no depth column.
func (e *Engine) RebuildDepthCache(ctx context.Context) (int, error) {
	if !e.schema.HasDepth() {
		return 0, fmt.Errorf("rebuilding depth cache: %w", types.ErrDepthCacheDisabled)
	}

	fixed := 0
	err := e.store.WithTransaction(ctx, func(ctx context.Context, tx types.Store) error {
		nodes, err := tx.Query(ctx, types.All())
		if err != nil {
			return fmt.Errorf("loading nodes: %w", err)
		}
		for _, n := range nodes {
			want := e.CacheDepth(n)
			if n.Depth == want {
				continue
			}
			n.Depth = want
			if err := tx.Update(ctx, n); err != nil {
				return fmt.Errorf("updating depth of node %s: %w", n.ID, err)
			}
			fixed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.log.WithField("fixed", fixed).Info("rebuilt depth cache")
	return fixed, nil
}
