package types

import "context"

// Store is the record store the tree engine runs against. Implementations
// own persistence; the engine never assumes a storage technology.
type Store interface {
	// Find returns the node with the given ID.
	// Returns ErrNotFound if no node exists with that ID.
	Find(ctx context.Context, id ID) (Node, error)

	// Create inserts a node. When n.ID is empty the store assigns one
	// (auto-increment for integer keys, UUID v7 for string keys).
	// Returns the node as stored.
	Create(ctx context.Context, n Node) (Node, error)

	// Update overwrites the path, depth and name of an existing node.
	// Returns ErrNotFound if the node does not exist.
	Update(ctx context.Context, n Node) error

	// Delete removes the node with the given ID.
	// Returns ErrNotFound if no node exists with that ID.
	Delete(ctx context.Context, id ID) error

	// Query returns every node matching p, in no particular order.
	Query(ctx context.Context, p Predicate) ([]Node, error)

	// WithTransaction runs fn against a store bound to one transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	// Nested calls join the enclosing transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// BulkUpdater is implemented by stores that can rewrite many rows with a
// single statement. Returns the number of rows changed.
type BulkUpdater interface {
	BulkUpdate(ctx context.Context, p Predicate, t Transform) (int, error)
}

// Backend is a store with an attach/detach lifecycle.
type Backend interface {
	// Attach opens the backend described by config.
	// Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// Store returns the record store. Returns ErrStoreDetached when the
	// backend is not attached.
	Store() (Store, error)
}
