// Package badger implements a tree node store on BadgerDB. Each node is a
// JSON value under the key "node/<id>"; predicates are evaluated in memory
// while iterating that prefix. The store has no native bulk rewrite, so the
// engine cascades row by row.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

var _ types.Store = (*Store)(nil)

// nodePrefix prefixes every node key.
var nodePrefix = []byte("node/")

// seqKey holds the integer id sequence.
var seqKey = []byte("seq/node")

// seqBandwidth is how many ids a sequence leases at a time. Unused leased
// ids are skipped after a restart.
const seqBandwidth = 100

func nodeKey(id types.ID) []byte {
	return append(append([]byte{}, nodePrefix...), id...)
}

// Store implements types.Store over a BadgerDB instance. A Store obtained
// from WithTransaction runs against that read-write transaction.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	txn    *badger.Txn
	schema types.Schema
}

func newStore(db *badger.DB, seq *badger.Sequence, schema types.Schema) *Store {
	return &Store{db: db, seq: seq, schema: schema}
}

func (s *Store) view(fn func(txn *badger.Txn) error) error {
	if s.txn != nil {
		return fn(s.txn)
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(txn *badger.Txn) error) error {
	if s.txn != nil {
		return fn(s.txn)
	}
	return s.db.Update(fn)
}

// Find implements types.Store.
func (s *Store) Find(ctx context.Context, id types.ID) (types.Node, error) {
	if id == "" {
		return types.Node{}, types.ErrInvalidID
	}
	var n types.Node
	err := s.view(func(txn *badger.Txn) error {
		var err error
		n, err = get(txn, id)
		return err
	})
	return n, err
}

// Create implements types.Store.
func (s *Store) Create(ctx context.Context, n types.Node) (types.Node, error) {
	err := s.update(func(txn *badger.Txn) error {
		if n.ID == "" {
			id, err := s.nextID(txn)
			if err != nil {
				return err
			}
			n.ID = id
		} else if s.schema.KeyKind == types.KeyInteger {
			if _, err := n.ID.Int64(); err != nil {
				return fmt.Errorf("node %s: %w", n.ID, types.ErrInvalidID)
			}
		}

		_, err := txn.Get(nodeKey(n.ID))
		switch {
		case err == nil:
			return fmt.Errorf("node %s: %w", n.ID, types.ErrDuplicateID)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("reading node %s: %w", n.ID, err)
		}
		return put(txn, n)
	})
	if err != nil {
		return types.Node{}, err
	}
	return n, nil
}

// nextID returns an unused id: a UUID v7 for string keys, otherwise the
// next free value of the sequence.
func (s *Store) nextID(txn *badger.Txn) (types.ID, error) {
	if s.schema.KeyKind == types.KeyString {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generating UUID v7: %w", err)
		}
		return types.ID(id.String()), nil
	}
	for {
		v, err := s.seq.Next()
		if err != nil {
			return "", fmt.Errorf("next sequence value: %w", err)
		}
		if v == 0 {
			continue
		}
		id := types.ID(strconv.FormatUint(v, 10))
		_, err = txn.Get(nodeKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("reading node %s: %w", id, err)
		}
	}
}

// Update implements types.Store.
func (s *Store) Update(ctx context.Context, n types.Node) error {
	if n.ID == "" {
		return types.ErrInvalidID
	}
	return s.update(func(txn *badger.Txn) error {
		if _, err := get(txn, n.ID); err != nil {
			return err
		}
		return put(txn, n)
	})
}

// Delete implements types.Store.
func (s *Store) Delete(ctx context.Context, id types.ID) error {
	if id == "" {
		return types.ErrInvalidID
	}
	return s.update(func(txn *badger.Txn) error {
		if _, err := get(txn, id); err != nil {
			return err
		}
		if err := txn.Delete(nodeKey(id)); err != nil {
			return fmt.Errorf("deleting node %s: %w", id, err)
		}
		return nil
	})
}

// Query implements types.Store by scanning every node key.
func (s *Store) Query(ctx context.Context, p types.Predicate) ([]types.Node, error) {
	var out []types.Node
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = nodePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var n types.Node
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			})
			if err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			if p.Match(n, s.schema) {
				out = append(out, n)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying nodes where %s: %w", p, err)
	}
	return out, nil
}

// WithTransaction runs fn in one read-write transaction. Calls on a Store
// that is already transactional join the enclosing transaction. Commit
// fails with badger.ErrConflict when a concurrent transaction wrote a key
// fn read.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx types.Store) error) error {
	if s.txn != nil {
		return fn(ctx, s)
	}
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(ctx, &Store{db: s.db, seq: s.seq, txn: txn, schema: s.schema}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func get(txn *badger.Txn, id types.ID) (types.Node, error) {
	item, err := txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.Node{}, fmt.Errorf("node %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.Node{}, fmt.Errorf("reading node %s: %w", id, err)
	}
	var n types.Node
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &n) }); err != nil {
		return types.Node{}, fmt.Errorf("decoding node %s: %w", id, err)
	}
	return n, nil
}

func put(txn *badger.Txn, n types.Node) error {
	val, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding node %s: %w", n.ID, err)
	}
	if err := txn.Set(nodeKey(n.ID), val); err != nil {
		return fmt.Errorf("writing node %s: %w", n.ID, err)
	}
	return nil
}
