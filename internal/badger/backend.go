package badger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// dirName is the Badger directory inside DataDir.
const dirName = "badger"

// Backend owns one Badger database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	inMemory bool
	schema   types.Schema
	log      logrus.FieldLogger
	db       *badger.DB
	seq      *badger.Sequence
	store    *Store
}

// Option configures a Backend.
type Option func(*Backend)

// WithInMemory keeps the database in memory; DataDir is ignored.
func WithInMemory() Option {
	return func(b *Backend) { b.inMemory = true }
}

// NewBackend creates a detached Badger backend for schema. Badger's own
// log output goes to log at the level log is configured for; a nil log
// discards it.
func NewBackend(schema types.Schema, log logrus.FieldLogger, opts ...Option) *Backend {
	b := &Backend{schema: schema, log: log}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens DataDir/badger, or an in-memory database.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	var opts badger.Options
	if b.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		dir := filepath.Join(dataDir, dirName)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create database directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if b.log != nil {
		opts = opts.WithLogger(b.log.WithField("component", "badger"))
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		db.Close()
		return fmt.Errorf("open id sequence: %w", err)
	}

	b.db = db
	b.seq = seq
	b.store = newStore(db, seq, b.schema)
	b.attached = true
	return nil
}

// Detach releases the id sequence and closes the database. Detach is
// idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.seq.Release(); err != nil {
		return fmt.Errorf("release id sequence: %w", err)
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close badger database: %w", err)
	}
	b.db, b.seq, b.store = nil, nil, nil
	b.attached = false
	return nil
}

// Store returns the node store. Returns ErrStoreDetached if the backend is
// not attached.
func (b *Backend) Store() (types.Store, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.store, nil
}
