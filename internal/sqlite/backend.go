// Package sqlite implements the SQLite storage backend for tree nodes.
// Rows live in a single nodes table whose column names follow the tree
// configuration; predicates compile to WHERE clauses and cascades compile
// to one UPDATE statement.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Backend owns the database handle for one data directory.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	schema   types.Schema
	db       *sql.DB
	store    *Store
	log      logrus.FieldLogger
}

// NewBackend creates a new SQLite backend instance for schema.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(schema types.Schema, log logrus.FieldLogger) *Backend {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	return &Backend{schema: schema, log: log}
}

// Attach opens DataDir/pathtree.db, creating the directory and the nodes
// table when missing. Existing rows are kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	for _, stmt := range schemaDDL(b.schema) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.store = newStore(db, b.schema)
	b.attached = true

	b.log.WithFields(logrus.Fields{
		"db":       dbPath,
		"key_kind": b.schema.KeyKind,
	}).Debug("sqlite backend attached")
	return nil
}

// Detach closes the database. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.store = nil
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

// DataDir returns the attached data directory.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}
