package tree

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Destroy deletes the node id after applying the configured orphan strategy
// to its descendants. The descendant set is read before the node is
// removed.
func (e *Engine) Destroy(ctx context.Context, id types.ID) error {
	return e.DestroyWith(ctx, id, e.cfg.OrphanStrategy)
}

// DestroyWith is Destroy with an explicit orphan strategy.
func (e *Engine) DestroyWith(ctx context.Context, id types.ID, strategy string) error {
	resolve, ok := orphanStrategies[strategy]
	if !ok {
		return fmt.Errorf("%w: unknown orphan strategy %q", types.ErrConfiguration, strategy)
	}

	return e.Transaction(ctx, func(ctx context.Context, tx *Engine) error {
		n, err := tx.store.Find(ctx, id)
		if err != nil {
			return fmt.Errorf("loading node %s: %w", id, err)
		}

		count, err := resolve(ctx, tx, n)
		if err != nil {
			return err
		}

		if err := tx.store.Delete(ctx, n.ID); err != nil {
			return fmt.Errorf("deleting node %s: %w", n.ID, err)
		}
		if err := tx.notify(ctx, ChangeDestroyed, n, types.Node{}); err != nil {
			return err
		}

		tx.metrics.orphansResolved(strategy, count)
		tx.log.WithFields(logrus.Fields{
			"node":        n.ID,
			"strategy":    strategy,
			"descendants": count,
		}).Debug("destroyed node")
		return nil
	})
}

// orphanResolver handles the descendants of n before n is deleted and
// returns how many rows it touched.
type orphanResolver func(ctx context.Context, e *Engine, n types.Node) (int, error)

var orphanStrategies = map[string]orphanResolver{
	types.OrphanDestroy:  destroyOrphans,
	types.OrphanRootify:  rootifyOrphans,
	types.OrphanAdopt:    adoptOrphans,
	types.OrphanRestrict: restrictOrphans,
	types.OrphanNone:     func(context.Context, *Engine, types.Node) (int, error) { return 0, nil },
}

func (e *Engine) loadDescendants(ctx context.Context, n types.Node) ([]types.Node, error) {
	p, err := e.DescendantConditions(n)
	if err != nil {
		return nil, err
	}
	descendants, err := e.store.Query(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("loading descendants of node %s: %w", n.ID, err)
	}
	e.sortNodes(descendants)
	return descendants, nil
}

// destroyOrphans deletes the whole subtree below n, deepest rows first.
func destroyOrphans(ctx context.Context, e *Engine, n types.Node) (int, error) {
	descendants, err := e.loadDescendants(ctx, n)
	if err != nil {
		return 0, err
	}
	slices.Reverse(descendants)
	for _, d := range descendants {
		if err := e.store.Delete(ctx, d.ID); err != nil {
			return 0, fmt.Errorf("deleting descendant %s: %w", d.ID, err)
		}
		if err := e.notify(ctx, ChangeDestroyed, d, types.Node{}); err != nil {
			return 0, err
		}
	}
	return len(descendants), nil
}

// rootifyOrphans strips n's child path from every descendant: children of
// n become roots and deeper rows keep their position below them.
func rootifyOrphans(ctx context.Context, e *Engine, n types.Node) (int, error) {
	descendants, err := e.loadDescendants(ctx, n)
	if err != nil {
		return 0, err
	}
	prefix, err := e.codec.ChildPath(n)
	if err != nil {
		return 0, err
	}
	for _, d := range descendants {
		after := d
		after.Path = e.codec.RewritePrefix(d.Path, prefix, e.codec.Root())
		if err := e.writeOrphan(ctx, d, after); err != nil {
			return 0, err
		}
	}
	return len(descendants), nil
}

// adoptOrphans removes n's id from every descendant's ancestor list, so
// children of n move up to n's parent. Direct children and deeper rows are
// treated the same way; an emptied list renders as a root.
func adoptOrphans(ctx context.Context, e *Engine, n types.Node) (int, error) {
	descendants, err := e.loadDescendants(ctx, n)
	if err != nil {
		return 0, err
	}
	for _, d := range descendants {
		ids := slices.DeleteFunc(e.codec.AncestorIDs(d), func(id types.ID) bool { return id == n.ID })
		after := d
		after.Path = e.codec.Render(ids)
		if err := e.writeOrphan(ctx, d, after); err != nil {
			return 0, err
		}
	}
	return len(descendants), nil
}

// restrictOrphans refuses to delete a node that still has children.
func restrictOrphans(ctx context.Context, e *Engine, n types.Node) (int, error) {
	has, err := e.HasChildren(ctx, n)
	if err != nil {
		return 0, err
	}
	if has {
		return 0, fmt.Errorf("deleting node %s: %w", n.ID, types.ErrRestrictedDeletion)
	}
	return 0, nil
}

func (e *Engine) writeOrphan(ctx context.Context, before, after types.Node) error {
	after = e.prepare(after)
	if err := e.store.Update(ctx, after); err != nil {
		return fmt.Errorf("rewriting orphan %s: %w", before.ID, err)
	}
	return e.notify(withCascading(ctx, before.ID), ChangeOrphaned, before, after)
}
