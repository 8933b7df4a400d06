// Package sqlite provides the public API for the SQLite node store.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pathtree/internal/sqlite"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// NewBackend creates a new SQLite backend for the columns of cfg.
// The backend is not attached; call Attach with a Config to initialize.
// A nil log writes warnings to stderr.
//
// Example:
//
//	cfg := types.DefaultTreeConfig()
//	backend := sqlite.NewBackend(cfg, nil)
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".pathtree-db",
//	})
//	defer backend.Detach()
//	store, err := backend.Store()
//	engine, err := tree.New(store, cfg)
func NewBackend(cfg types.TreeConfig, log logrus.FieldLogger) types.Backend {
	return sqlite.NewBackend(cfg.Schema(), log)
}
