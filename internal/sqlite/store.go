package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Compile-time interface checks.
var (
	_ types.Store       = (*Store)(nil)
	_ types.BulkUpdater = (*Store)(nil)
)

// querier is the part of *sql.DB and *sql.Tx a Store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements types.Store over the nodes table. A Store obtained from
// WithTransaction runs every statement inside that transaction.
type Store struct {
	db     *sql.DB
	q      querier
	inTx   bool
	schema types.Schema
}

func newStore(db *sql.DB, schema types.Schema) *Store {
	return &Store{db: db, q: db, schema: schema}
}

// Find implements types.Store.
func (s *Store) Find(ctx context.Context, id types.ID) (types.Node, error) {
	if id == "" {
		return types.Node{}, types.ErrInvalidID
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		joinColumns(selectColumns(s.schema)), nodesTable, quote(s.schema.IDColumn))
	n, err := s.scan(s.q.QueryRowContext(ctx, query, columnArg(s.schema, s.schema.IDColumn, id)))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Node{}, fmt.Errorf("node %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.Node{}, fmt.Errorf("querying node %s: %w", id, err)
	}
	return n, nil
}

// Create implements types.Store. Integer keys without an id take the next
// AUTOINCREMENT value; string keys without an id get a UUID v7.
func (s *Store) Create(ctx context.Context, n types.Node) (types.Node, error) {
	if n.ID == "" && s.schema.KeyKind == types.KeyString {
		id, err := uuid.NewV7()
		if err != nil {
			return types.Node{}, fmt.Errorf("generating UUID v7: %w", err)
		}
		n.ID = types.ID(id.String())
	}
	if n.ID != "" && s.schema.KeyKind == types.KeyInteger {
		if _, err := n.ID.Int64(); err != nil {
			return types.Node{}, fmt.Errorf("node %s: %w", n.ID, types.ErrInvalidID)
		}
	}

	cols, args := s.values(n)
	if n.ID == "" {
		cols, args = cols[1:], args[1:]
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", nodesTable, joinColumns(cols), marks)

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isConstraint(err) {
			return types.Node{}, fmt.Errorf("node %s: %w", n.ID, types.ErrDuplicateID)
		}
		return types.Node{}, fmt.Errorf("inserting node: %w", err)
	}
	if n.ID == "" {
		id, err := res.LastInsertId()
		if err != nil {
			return types.Node{}, fmt.Errorf("reading inserted id: %w", err)
		}
		n.ID = types.ID(strconv.FormatInt(id, 10))
	}
	return n, nil
}

// Update implements types.Store.
func (s *Store) Update(ctx context.Context, n types.Node) error {
	if n.ID == "" {
		return types.ErrInvalidID
	}
	cols, args := s.values(n)
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, quote(c)+" = ?")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		nodesTable, strings.Join(sets, ", "), quote(s.schema.IDColumn))
	res, err := s.q.ExecContext(ctx, query, append(args[1:], args[0])...)
	if err != nil {
		return fmt.Errorf("updating node %s: %w", n.ID, err)
	}
	return requireRow(res, n.ID)
}

// Delete implements types.Store.
func (s *Store) Delete(ctx context.Context, id types.ID) error {
	if id == "" {
		return types.ErrInvalidID
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", nodesTable, quote(s.schema.IDColumn))
	res, err := s.q.ExecContext(ctx, query, columnArg(s.schema, s.schema.IDColumn, id))
	if err != nil {
		return fmt.Errorf("deleting node %s: %w", id, err)
	}
	return requireRow(res, id)
}

// Query implements types.Store.
func (s *Store) Query(ctx context.Context, p types.Predicate) ([]types.Node, error) {
	where, args, err := compileWhere(s.schema, p)
	if err != nil {
		return nil, err
	}
	if len(args) > maxVariables {
		if parts, ok := splitPredicate(p); ok {
			return s.queryEach(ctx, parts)
		}
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		joinColumns(selectColumns(s.schema)), nodesTable, where)
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying nodes where %s: %w", p, err)
	}
	defer rows.Close()

	var out []types.Node
	for rows.Next() {
		n, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// queryEach runs Query for every part and merges the rows by id.
func (s *Store) queryEach(ctx context.Context, parts []types.Predicate) ([]types.Node, error) {
	var out []types.Node
	seen := make(map[types.ID]bool)
	for _, part := range parts {
		nodes, err := s.Query(ctx, part)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// BulkUpdate implements types.BulkUpdater with a single UPDATE statement.
func (s *Store) BulkUpdate(ctx context.Context, p types.Predicate, t types.Transform) (int, error) {
	var (
		sets []string
		args []any
	)
	if r := t.Rewrite; r != nil {
		col := quote(r.Column)
		sets = append(sets, fmt.Sprintf(
			"%s = CASE WHEN substr(%s, 1, length(?)) = ? THEN ? || substr(%s, length(?) + 1) ELSE %s END",
			col, col, col, col))
		args = append(args, r.Old, r.Old, r.New, r.Old)
	}
	if a := t.Adjust; a != nil {
		col := quote(a.Column)
		sets = append(sets, fmt.Sprintf("%s = %s + ?", col, col))
		args = append(args, a.Delta)
	}
	if len(sets) == 0 {
		return 0, nil
	}

	where, whereArgs, err := compileWhere(s.schema, p)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", nodesTable, strings.Join(sets, ", "), where)
	res, err := s.q.ExecContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("bulk update where %s: %w", p, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(n), nil
}

// WithTransaction runs fn inside a database transaction. Calls on a Store
// that is already transactional join the enclosing transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx types.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &Store{db: s.db, q: tx, inTx: true, schema: s.schema}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// values returns the written columns and their arguments, id first.
func (s *Store) values(n types.Node) ([]string, []any) {
	cols := []string{s.schema.IDColumn, s.schema.PathColumn}
	args := []any{columnArg(s.schema, s.schema.IDColumn, n.ID), n.Path}
	if s.schema.HasDepth() {
		cols = append(cols, s.schema.DepthColumn)
		args = append(args, n.Depth)
	}
	if s.schema.NameColumn != "" {
		cols = append(cols, s.schema.NameColumn)
		args = append(args, n.Name)
	}
	return cols, args
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(row scanner) (types.Node, error) {
	var (
		n  types.Node
		id any
	)
	dest := []any{&id, &n.Path}
	if s.schema.HasDepth() {
		dest = append(dest, &n.Depth)
	}
	if s.schema.NameColumn != "" {
		dest = append(dest, &n.Name)
	}
	if err := row.Scan(dest...); err != nil {
		return types.Node{}, err
	}
	switch v := id.(type) {
	case int64:
		n.ID = types.ID(strconv.FormatInt(v, 10))
	case []byte:
		n.ID = types.ID(v)
	default:
		n.ID = types.ID(fmt.Sprint(v))
	}
	return n, nil
}

func requireRow(res sql.Result, id types.ID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("node %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// isConstraint reports whether err is a primary-key or unique violation.
func isConstraint(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
