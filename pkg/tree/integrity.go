package tree

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// ReportMode selects how Check reports violations.
type ReportMode int

const (
	// ReportRaise stops at the first violation and returns it as the error.
	ReportRaise ReportMode = iota
	// ReportCollect returns every violation without an error.
	ReportCollect
	// ReportEcho logs every violation as a warning and returns them all.
	ReportEcho
)

// Check scans every node and verifies path format, ancestor existence and
// parent consistency across rows. Each node reports at most one violation,
// the first one found.
func (e *Engine) Check(ctx context.Context, mode ReportMode) ([]types.Violation, error) {
	nodes, err := e.store.Query(ctx, types.All())
	if err != nil {
		return nil, fmt.Errorf("loading nodes: %w", err)
	}
	e.sortNodes(nodes)

	exists := make(map[types.ID]bool, len(nodes))
	for _, n := range nodes {
		exists[n.ID] = true
	}

	// parents records the parent each id was first seen with; "" is root.
	parents := make(map[types.ID]types.ID, len(nodes))
	var violations []types.Violation

	for _, n := range nodes {
		v, ok := e.checkNode(n, exists, parents)
		if !ok {
			continue
		}
		e.metrics.violation(v.Kind)
		switch mode {
		case ReportRaise:
			return []types.Violation{v}, v
		case ReportEcho:
			e.log.WithFields(logrus.Fields{"node": v.NodeID, "kind": v.Kind}).Warn(v.Detail)
		}
		violations = append(violations, v)
	}
	return violations, nil
}

func (e *Engine) checkNode(n types.Node, exists map[types.ID]bool, parents map[types.ID]types.ID) (types.Violation, bool) {
	if !e.codec.Valid(n.Path) {
		return types.Violation{
			Kind:   types.ViolationInvalidFormat,
			NodeID: n.ID,
			Detail: fmt.Sprintf("invalid %s %q", e.schema.PathColumn, n.Path),
		}, true
	}

	ancestors := e.codec.Parse(n.Path)
	if slices.Contains(ancestors, n.ID) {
		return types.Violation{
			Kind:   types.ViolationCyclicAncestry,
			NodeID: n.ID,
			Detail: fmt.Sprintf("node appears in its own %s %q", e.schema.PathColumn, n.Path),
		}, true
	}

	for _, a := range ancestors {
		if !exists[a] {
			return types.Violation{
				Kind:   types.ViolationDanglingAncestor,
				NodeID: n.ID,
				Detail: fmt.Sprintf("reference to non-existent node %s", a),
			}, true
		}
	}

	path := append(ancestors, n.ID)
	var parent types.ID
	for _, id := range path {
		recorded, seen := parents[id]
		if !seen {
			parents[id] = parent
		} else if recorded != parent {
			return types.Violation{
				Kind:   types.ViolationConflictingParent,
				NodeID: n.ID,
				Detail: fmt.Sprintf("node %s has parent %q here but %q elsewhere", id, parent, recorded),
			}, true
		}
		parent = id
	}
	return types.Violation{}, false
}

// Restore rebuilds a consistent forest from whatever is stored. Malformed
// or self-referencing paths become roots, references to missing parents are
// dropped and cycles are broken by making one member a root. Every path is
// then re-rendered from the repaired parent links. The repair runs in one
// transaction and bypasses cascades, orphan handling and observers.
func (e *Engine) Restore(ctx context.Context) error {
	var rewritten int
	err := e.store.WithTransaction(ctx, func(ctx context.Context, tx types.Store) error {
		nodes, err := tx.Query(ctx, types.All())
		if err != nil {
			return fmt.Errorf("loading nodes: %w", err)
		}
		e.sortNodes(nodes)

		exists := make(map[types.ID]bool, len(nodes))
		for _, n := range nodes {
			exists[n.ID] = true
		}

		parents := make(map[types.ID]types.ID, len(nodes))
		for _, n := range nodes {
			parent, ok := e.codec.ParentID(n)
			if !e.codec.Sane(n) || !ok || !exists[parent] {
				parents[n.ID] = ""
				continue
			}
			parents[n.ID] = parent

			seen := map[types.ID]bool{n.ID: true}
			for p := parents[n.ID]; p != ""; p = parents[p] {
				if seen[p] {
					parents[n.ID] = ""
					break
				}
				seen[p] = true
			}
		}

		for _, n := range nodes {
			var ids []types.ID
			for p := parents[n.ID]; p != ""; p = parents[p] {
				ids = append(ids, p)
			}
			slices.Reverse(ids)

			after := e.prepare(types.Node{ID: n.ID, Path: e.codec.Render(ids), Depth: n.Depth, Name: n.Name})
			if after.Path == n.Path && after.Depth == n.Depth {
				continue
			}
			if err := tx.Update(ctx, after); err != nil {
				return fmt.Errorf("restoring node %s: %w", n.ID, err)
			}
			rewritten++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restoring integrity: %w", err)
	}

	e.log.WithField("rewritten", rewritten).Info("restored tree integrity")

	violations, err := e.Check(ctx, ReportCollect)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("restoring integrity: %d violations remain: %w", len(violations), violations[0])
	}
	return nil
}
