// Package tree implements a materialized-path tree engine over a flat
// record store. Every node stores its ancestor chain in one path column;
// relationship queries are prefix and equality predicates over that column,
// reparenting rewrites the prefix of the whole subtree, and deletion applies
// an orphan strategy to the descendants.
//
// The engine is synchronous and holds no goroutines. Concurrent moves of
// overlapping subtrees are not serialized by the engine; callers that need
// that must lock per subtree or rely on store-level row locking. Bulk
// cascades shrink the race window to a single store statement.
package tree

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Change kinds passed to observers.
const (
	ChangeCreated   = "created"
	ChangeMoved     = "moved"
	ChangeCascaded  = "cascaded"
	ChangeOrphaned  = "orphaned"
	ChangeDestroyed = "destroyed"
)

// Change describes one row write performed by the engine.
type Change struct {
	Kind   string
	Before types.Node
	After  types.Node
	// Tx is the engine bound to the transaction the write happened in.
	// Observers that write back must go through it.
	Tx *Engine
}

// Observer is notified after every row the engine writes, including each
// descendant touched by a row-mode cascade. Returning an error aborts the
// surrounding operation. Structural repairs by Restore are not reported.
type Observer interface {
	NodeChanged(ctx context.Context, c Change) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Change) error

// NodeChanged calls f.
func (f ObserverFunc) NodeChanged(ctx context.Context, c Change) error { return f(ctx, c) }

// Engine runs tree operations for one model against one store.
type Engine struct {
	cfg      types.TreeConfig
	schema   types.Schema
	codec    Codec
	store    types.Store
	cascader cascader
	log      *logrus.Logger
	metrics  *Metrics
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default logger writes warnings to stderr.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records engine activity in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver registers the change observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New validates cfg and builds an engine over store. The cascade strategy
// is chosen here from the configured mode and the store's capabilities.
func New(store types.Store, cfg types.TreeConfig, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", types.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := NewCodec(cfg)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	e := &Engine{
		cfg:    cfg,
		schema: cfg.Schema(),
		codec:  codec,
		store:  store,
		log:    log,
	}
	for _, opt := range opts {
		opt(e)
	}

	_, bulk := store.(types.BulkUpdater)
	switch cfg.Cascade {
	case types.CascadeRow:
		e.cascader = rowCascade{}
	case types.CascadeBulk:
		if !bulk {
			return nil, fmt.Errorf("%w: cascade=bulk: %w", types.ErrConfiguration, types.ErrBulkUnsupported)
		}
		e.cascader = bulkCascade{}
	default:
		if bulk {
			e.cascader = bulkCascade{}
		} else {
			e.cascader = rowCascade{}
		}
	}

	e.log.WithFields(logrus.Fields{
		"ancestry_column": cfg.AncestryColumn,
		"encoding":        cfg.Encoding,
		"orphan_strategy": cfg.OrphanStrategy,
		"cascade":         e.cascader.mode(),
	}).Debug("tree engine configured")

	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() types.TreeConfig { return e.cfg }

// Codec returns the path codec.
func (e *Engine) Codec() Codec { return e.codec }

// Store returns the store the engine runs against.
func (e *Engine) Store() types.Store { return e.store }

// CascadeMode reports the selected cascade strategy: "row" or "bulk".
func (e *Engine) CascadeMode() string { return e.cascader.mode() }

// Transaction runs fn with an engine bound to a single store transaction.
func (e *Engine) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Engine) error) error {
	return e.store.WithTransaction(ctx, func(ctx context.Context, s types.Store) error {
		return fn(ctx, e.with(s))
	})
}

// with returns a shallow copy of e bound to s.
func (e *Engine) with(s types.Store) *Engine {
	cp := *e
	cp.store = s
	return &cp
}

func (e *Engine) notify(ctx context.Context, kind string, before, after types.Node) error {
	if e.observer == nil {
		return nil
	}
	if err := e.observer.NodeChanged(ctx, Change{Kind: kind, Before: before, After: after, Tx: e}); err != nil {
		return fmt.Errorf("observer %s on node %s: %w", kind, after.ID, err)
	}
	return nil
}

type cascadingKey struct{}

// withCascading marks id as being rewritten by a cascade so that a save of
// the same node from inside an observer does not cascade again.
func withCascading(ctx context.Context, id types.ID) context.Context {
	prev, _ := ctx.Value(cascadingKey{}).(map[types.ID]bool)
	next := make(map[types.ID]bool, len(prev)+1)
	for k := range prev {
		next[k] = true
	}
	next[id] = true
	return context.WithValue(ctx, cascadingKey{}, next)
}

func isCascading(ctx context.Context, id types.ID) bool {
	set, _ := ctx.Value(cascadingKey{}).(map[types.ID]bool)
	return set[id]
}
