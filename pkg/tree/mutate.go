package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Validate checks n's id and path against the codec. Failures are returned
// as *types.ValidationError wrapping ErrInvalidFormat or ErrSelfAncestor.
func (e *Engine) Validate(n types.Node) error {
	if n.Persisted() && !e.codec.ValidID(n.ID) {
		return &types.ValidationError{NodeID: n.ID, Field: e.schema.IDColumn, Value: string(n.ID), Err: types.ErrInvalidFormat}
	}
	if !e.codec.Valid(n.Path) {
		return &types.ValidationError{NodeID: n.ID, Field: e.schema.PathColumn, Value: n.Path, Err: types.ErrInvalidFormat}
	}
	if n.Persisted() && e.codec.IsAncestorOf(n, n) {
		return &types.ValidationError{NodeID: n.ID, Field: e.schema.PathColumn, Value: n.Path, Err: types.ErrSelfAncestor}
	}
	return nil
}

// CacheDepth returns the depth value stored for n: its ancestor count.
func (e *Engine) CacheDepth(n types.Node) int {
	return e.codec.Depth(n.Path)
}

// prepare normalizes the root spelling and fills the depth cache.
func (e *Engine) prepare(n types.Node) types.Node {
	n.Path = e.codec.Normalize(n.Path)
	if e.schema.HasDepth() {
		n.Depth = e.CacheDepth(n)
	} else {
		n.Depth = 0
	}
	return n
}

// Create inserts n. With a parent, n's path is derived from the parent's
// stored path; the parent must already be persisted. Without a parent, n.Path
// is written as given.
func (e *Engine) Create(ctx context.Context, n types.Node, parent *types.Node) (types.Node, error) {
	var created types.Node
	err := e.store.WithTransaction(ctx, func(ctx context.Context, tx types.Store) error {
		if parent != nil {
			if !parent.Persisted() {
				return fmt.Errorf("creating child: parent: %w", types.ErrNotPersisted)
			}
			stored, err := tx.Find(ctx, parent.ID)
			if err != nil {
				return fmt.Errorf("loading parent %s: %w", parent.ID, err)
			}
			cp, err := e.codec.ChildPath(stored)
			if err != nil {
				return err
			}
			n.Path = cp
		}
		n = e.prepare(n)
		if err := e.Validate(n); err != nil {
			return err
		}

		var err error
		created, err = tx.Create(ctx, n)
		if err != nil {
			return fmt.Errorf("creating node: %w", err)
		}
		if !e.codec.ValidID(created.ID) {
			return &types.ValidationError{NodeID: created.ID, Field: e.schema.IDColumn, Value: string(created.ID), Err: types.ErrInvalidFormat}
		}
		return e.with(tx).notify(ctx, ChangeCreated, types.Node{}, created)
	})
	if err != nil {
		return types.Node{}, err
	}
	return created, nil
}

// Save persists changes to an existing node. When the path differs from the
// stored one and the new path is sane, every descendant is rewritten to
// follow. The depth cache of n and its descendants is kept current.
func (e *Engine) Save(ctx context.Context, n types.Node) (types.Node, error) {
	if !n.Persisted() {
		return types.Node{}, fmt.Errorf("saving node: %w", types.ErrNotPersisted)
	}
	n = e.prepare(n)
	if err := e.Validate(n); err != nil {
		return types.Node{}, err
	}

	err := e.store.WithTransaction(ctx, func(ctx context.Context, tx types.Store) error {
		before, err := tx.Find(ctx, n.ID)
		if err != nil {
			return fmt.Errorf("loading node %s: %w", n.ID, err)
		}
		if err := tx.Update(ctx, n); err != nil {
			return fmt.Errorf("updating node %s: %w", n.ID, err)
		}

		te := e.with(tx)
		if before.Path == n.Path {
			return nil
		}
		if err := te.notify(ctx, ChangeMoved, before, n); err != nil {
			return err
		}
		if !e.codec.Sane(n) || isCascading(ctx, n.ID) {
			return nil
		}
		return te.cascade(ctx, before, n)
	})
	if err != nil {
		return types.Node{}, err
	}
	return n, nil
}

// Move reparents the node id under parentID. An empty parentID makes the
// node a root. Moving a node below itself or one of its descendants fails
// with ErrSelfAncestor.
func (e *Engine) Move(ctx context.Context, id, parentID types.ID) (types.Node, error) {
	var moved types.Node
	err := e.Transaction(ctx, func(ctx context.Context, tx *Engine) error {
		n, err := tx.store.Find(ctx, id)
		if err != nil {
			return fmt.Errorf("loading node %s: %w", id, err)
		}

		n.Path = tx.codec.Root()
		if parentID != "" {
			parent, err := tx.store.Find(ctx, parentID)
			if err != nil {
				return fmt.Errorf("loading parent %s: %w", parentID, err)
			}
			if parent.ID == n.ID || tx.codec.IsAncestorOf(n, parent) {
				return fmt.Errorf("moving %s under %s: %w", id, parentID, types.ErrSelfAncestor)
			}
			cp, err := tx.codec.ChildPath(parent)
			if err != nil {
				return err
			}
			n.Path = cp
		}

		moved, err = tx.Save(ctx, n)
		return err
	})
	if err != nil {
		return types.Node{}, err
	}
	return moved, nil
}

// cascade rewrites the descendants of before so they follow after.
func (e *Engine) cascade(ctx context.Context, before, after types.Node) error {
	oldPrefix, err := e.codec.ChildPath(before)
	if err != nil {
		return err
	}
	newPrefix, err := e.codec.ChildPath(after)
	if err != nil {
		return err
	}
	delta := e.codec.Depth(after.Path) - e.codec.Depth(before.Path)

	rows, err := e.cascader.run(ctx, e, oldPrefix, newPrefix, delta)
	if err != nil {
		return fmt.Errorf("cascading move of node %s: %w", after.ID, err)
	}

	e.metrics.cascaded(e.cascader.mode(), rows)
	e.log.WithFields(logrus.Fields{
		"node":  after.ID,
		"from":  oldPrefix,
		"to":    newPrefix,
		"delta": delta,
		"rows":  rows,
		"mode":  e.cascader.mode(),
	}).Debug("cascaded path rewrite")
	return nil
}

// IsValidationError reports whether err is a per-node validation failure.
func IsValidationError(err error) bool {
	var ve *types.ValidationError
	return errors.As(err, &ve)
}
