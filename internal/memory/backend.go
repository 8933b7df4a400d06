package memory

import (
	"sync"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Backend wraps a Store in the attach/detach lifecycle. Rows do not outlive
// Detach.
type Backend struct {
	mu     sync.Mutex
	schema types.Schema
	store  *Store
}

// NewBackend creates a detached memory backend for schema.
func NewBackend(schema types.Schema) *Backend {
	return &Backend{schema: schema}
}

// Attach implements types.Backend.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.store != nil {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	b.store = NewStore(b.schema)
	return nil
}

// Detach implements types.Backend.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store = nil
	return nil
}

// Store implements types.Backend.
func (b *Backend) Store() (types.Store, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store == nil {
		return nil, types.ErrStoreDetached
	}
	return b.store, nil
}
