package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pathtree/internal/badger"
	"github.com/mesh-intelligence/pathtree/internal/memory"
	"github.com/mesh-intelligence/pathtree/pkg/sqlite"
	"github.com/mesh-intelligence/pathtree/pkg/tree"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// session is an attached backend and the engine running over it.
type session struct {
	backend types.Backend
	engine  *tree.Engine
	log     *logrus.Logger
}

// newBackend returns an unattached backend for s.Backend. The memory
// backend keeps nothing between invocations.
func newBackend(s settings, log *logrus.Logger) (types.Backend, error) {
	switch s.Backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(s.TreeConfig, log), nil
	case types.BackendBadger:
		return badger.NewBackend(s.TreeConfig.Schema(), log), nil
	case types.BackendMemory:
		return memory.NewBackend(s.TreeConfig.Schema()), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, fmt.Errorf("%w %q", types.ErrBackendUnknown, s.Backend)
	}
}

// attach opens the configured backend and builds the engine.
func (a *app) attach(s settings) (*session, error) {
	if err := s.TreeConfig.Validate(); err != nil {
		return nil, err
	}
	b, err := newBackend(s, a.log)
	if err != nil {
		return nil, err
	}
	if err := b.Attach(types.Config{Backend: s.Backend, DataDir: s.DataDir}); err != nil {
		return nil, fmt.Errorf("attach %s backend: %w", s.Backend, err)
	}
	store, err := b.Store()
	if err != nil {
		_ = b.Detach()
		return nil, err
	}
	e, err := tree.New(store, s.TreeConfig, tree.WithLogger(a.log))
	if err != nil {
		_ = b.Detach()
		return nil, err
	}
	return &session{backend: b, engine: e, log: a.log}, nil
}

// open resolves the configuration and attaches the backend.
func (a *app) open() (*session, error) {
	s, _, err := a.resolve()
	if err != nil {
		return nil, err
	}
	return a.attach(s)
}

func (s *session) close() error {
	return s.backend.Detach()
}

// find loads the node named on the command line.
func (s *session) find(ctx context.Context, arg string) (types.Node, error) {
	n, err := s.engine.Find(ctx, types.ID(arg))
	if errors.Is(err, types.ErrNotFound) {
		return types.Node{}, userError(fmt.Errorf("node %q: %w", arg, types.ErrNotFound))
	}
	return n, err
}

// run opens a session, calls fn and detaches, keeping the first error.
func (a *app) run(ctx context.Context, fn func(ctx context.Context, s *session) error) (err error) {
	sess, err := a.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.close(); cerr != nil && err == nil {
			err = fmt.Errorf("detach: %w", cerr)
		}
	}()
	return fn(ctx, sess)
}
