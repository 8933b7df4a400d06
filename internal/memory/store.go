// Package memory implements an in-process record store for tree nodes.
// Rows live in a map guarded by a RWMutex; transactions snapshot the map
// and restore it on failure.
package memory

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Compile-time interface checks.
var (
	_ types.Store       = (*Store)(nil)
	_ types.BulkUpdater = (*Store)(nil)
	_ types.Store       = (*txStore)(nil)
	_ types.BulkUpdater = (*txStore)(nil)
)

// Store is a map-backed types.Store. The zero value is not usable; call
// NewStore.
type Store struct {
	mu sync.RWMutex
	st *state
}

// state holds the rows. Its methods assume the caller holds the lock.
type state struct {
	schema types.Schema
	rows   map[types.ID]types.Node
	seq    int64
}

// NewStore returns an empty store for schema.
func NewStore(schema types.Schema) *Store {
	return &Store{st: &state{
		schema: schema,
		rows:   make(map[types.ID]types.Node),
	}}
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.rows)
}

// Find implements types.Store.
func (s *Store) Find(ctx context.Context, id types.ID) (types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.find(id)
}

// Create implements types.Store.
func (s *Store) Create(ctx context.Context, n types.Node) (types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.create(n)
}

// Update implements types.Store.
func (s *Store) Update(ctx context.Context, n types.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.update(n)
}

// Delete implements types.Store.
func (s *Store) Delete(ctx context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.delete(id)
}

// Query implements types.Store.
func (s *Store) Query(ctx context.Context, p types.Predicate) ([]types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.query(p), nil
}

// BulkUpdate implements types.BulkUpdater.
func (s *Store) BulkUpdate(ctx context.Context, p types.Predicate, t types.Transform) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.bulkUpdate(p, t), nil
}

// WithTransaction holds the write lock for the duration of fn. On error the
// rows are restored to their state before fn ran.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx types.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := maps.Clone(s.st.rows)
	seq := s.st.seq
	if err := fn(ctx, &txStore{st: s.st}); err != nil {
		s.st.rows = rows
		s.st.seq = seq
		return err
	}
	return nil
}

// txStore is the view handed to transaction callbacks. The enclosing
// WithTransaction holds the lock.
type txStore struct {
	st *state
}

func (t *txStore) Find(ctx context.Context, id types.ID) (types.Node, error) {
	return t.st.find(id)
}

func (t *txStore) Create(ctx context.Context, n types.Node) (types.Node, error) {
	return t.st.create(n)
}

func (t *txStore) Update(ctx context.Context, n types.Node) error {
	return t.st.update(n)
}

func (t *txStore) Delete(ctx context.Context, id types.ID) error {
	return t.st.delete(id)
}

func (t *txStore) Query(ctx context.Context, p types.Predicate) ([]types.Node, error) {
	return t.st.query(p), nil
}

func (t *txStore) BulkUpdate(ctx context.Context, p types.Predicate, tr types.Transform) (int, error) {
	return t.st.bulkUpdate(p, tr), nil
}

// WithTransaction joins the enclosing transaction.
func (t *txStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx types.Store) error) error {
	return fn(ctx, t)
}

func (st *state) find(id types.ID) (types.Node, error) {
	if id == "" {
		return types.Node{}, types.ErrInvalidID
	}
	n, ok := st.rows[id]
	if !ok {
		return types.Node{}, fmt.Errorf("node %s: %w", id, types.ErrNotFound)
	}
	return n, nil
}

func (st *state) create(n types.Node) (types.Node, error) {
	if n.ID == "" {
		id, err := st.nextID()
		if err != nil {
			return types.Node{}, err
		}
		n.ID = id
	} else if st.schema.KeyKind == types.KeyInteger {
		v, err := n.ID.Int64()
		if err != nil {
			return types.Node{}, fmt.Errorf("node %s: %w", n.ID, types.ErrInvalidID)
		}
		if v > st.seq {
			st.seq = v
		}
	}
	if _, exists := st.rows[n.ID]; exists {
		return types.Node{}, fmt.Errorf("node %s: %w", n.ID, types.ErrDuplicateID)
	}
	st.rows[n.ID] = n
	return n, nil
}

func (st *state) nextID() (types.ID, error) {
	if st.schema.KeyKind == types.KeyString {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generating UUID v7: %w", err)
		}
		return types.ID(id.String()), nil
	}
	for {
		st.seq++
		id := types.ID(strconv.FormatInt(st.seq, 10))
		if _, taken := st.rows[id]; !taken {
			return id, nil
		}
	}
}

func (st *state) update(n types.Node) error {
	if n.ID == "" {
		return types.ErrInvalidID
	}
	if _, ok := st.rows[n.ID]; !ok {
		return fmt.Errorf("node %s: %w", n.ID, types.ErrNotFound)
	}
	st.rows[n.ID] = n
	return nil
}

func (st *state) delete(id types.ID) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if _, ok := st.rows[id]; !ok {
		return fmt.Errorf("node %s: %w", id, types.ErrNotFound)
	}
	delete(st.rows, id)
	return nil
}

func (st *state) query(p types.Predicate) []types.Node {
	var out []types.Node
	for _, n := range st.rows {
		if p.Match(n, st.schema) {
			out = append(out, n)
		}
	}
	return out
}

func (st *state) bulkUpdate(p types.Predicate, t types.Transform) int {
	changed := 0
	for id, n := range st.rows {
		if !p.Match(n, st.schema) {
			continue
		}
		after := t.Apply(n, st.schema)
		if after != n {
			st.rows[id] = after
			changed++
		}
	}
	return changed
}
