package sqlite

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// compileWhere translates p into a WHERE clause with positional arguments.
// Prefix matches use substr so that they stay case-exact; LIKE folds ASCII
// case in SQLite.
func compileWhere(schema types.Schema, p types.Predicate) (string, []any, error) {
	var args []any
	clause, err := compile(schema, p, &args)
	if err != nil {
		return "", nil, err
	}
	return clause, args, nil
}

// maxVariables is SQLite's default limit on bound parameters per statement.
const maxVariables = 32766

// joinBalanced joins parts with sep as a balanced tree. SQLite caps the
// parsed expression depth at 1000, so a flat chain of many operands fails.
func joinBalanced(parts []string, sep string) string {
	if len(parts) == 1 {
		return "(" + parts[0] + ")"
	}
	mid := len(parts) / 2
	return "(" + joinBalanced(parts[:mid], sep) + sep + joinBalanced(parts[mid:], sep) + ")"
}

// splitPredicate halves a disjunction or an IN list so each half can run as
// its own statement. ok is false when p cannot be split.
func splitPredicate(p types.Predicate) ([]types.Predicate, bool) {
	switch {
	case p.Op == types.OpOr && len(p.Operands) > 1:
		mid := len(p.Operands) / 2
		return []types.Predicate{types.Or(p.Operands[:mid]...), types.Or(p.Operands[mid:]...)}, true
	case p.Op == types.OpIn && len(p.Values) > 1:
		mid := len(p.Values) / 2
		return []types.Predicate{types.In(p.Column, p.Values[:mid]), types.In(p.Column, p.Values[mid:])}, true
	}
	return nil, false
}

func compile(schema types.Schema, p types.Predicate, args *[]any) (string, error) {
	switch p.Op {
	case types.OpAll:
		return "1=1", nil
	case types.OpAnd, types.OpOr:
		if len(p.Operands) == 0 {
			if p.Op == types.OpAnd {
				return "1=1", nil
			}
			return "0=1", nil
		}
		parts := make([]string, 0, len(p.Operands))
		for _, op := range p.Operands {
			s, err := compile(schema, op, args)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		sep := " AND "
		if p.Op == types.OpOr {
			sep = " OR "
		}
		return joinBalanced(parts, sep), nil
	case types.OpNot:
		if len(p.Operands) != 1 {
			return "", fmt.Errorf("not takes one operand: %w", types.ErrInvalidData)
		}
		s, err := compile(schema, p.Operands[0], args)
		if err != nil {
			return "", err
		}
		return "NOT " + s, nil
	}

	if !knownColumn(schema, p.Column) {
		return "", fmt.Errorf("unknown column %q: %w", p.Column, types.ErrInvalidData)
	}
	col := quote(p.Column)

	switch p.Op {
	case types.OpEq:
		*args = append(*args, columnArg(schema, p.Column, p.Value))
		return col + " = ?", nil
	case types.OpIn:
		if len(p.Values) == 0 {
			return "0=1", nil
		}
		marks := make([]string, len(p.Values))
		for i, v := range p.Values {
			marks[i] = "?"
			*args = append(*args, columnArg(schema, p.Column, v))
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")", nil
	case types.OpPrefix:
		prefix, _ := p.Value.(string)
		*args = append(*args, prefix, prefix)
		return "substr(" + col + ", 1, length(?)) = ?", nil
	case types.OpLt:
		*args = append(*args, p.Value)
		return col + " < ?", nil
	case types.OpLte:
		*args = append(*args, p.Value)
		return col + " <= ?", nil
	case types.OpGt:
		*args = append(*args, p.Value)
		return col + " > ?", nil
	case types.OpGte:
		*args = append(*args, p.Value)
		return col + " >= ?", nil
	}
	return "", fmt.Errorf("unsupported operator %s: %w", p.Op, types.ErrInvalidData)
}

func knownColumn(schema types.Schema, column string) bool {
	return slices.Contains(selectColumns(schema), column)
}

// columnArg converts v to the storage type of column. Integer keys are bound
// as integers.
func columnArg(schema types.Schema, column string, v any) any {
	if column != schema.IDColumn || schema.KeyKind != types.KeyInteger {
		return v
	}
	s := fmt.Sprint(v)
	if id, err := types.ID(s).Int64(); err == nil {
		return id
	}
	return s
}
