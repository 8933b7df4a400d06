package types

import (
	"fmt"
	"strings"
)

// Op is a predicate operator.
type Op int

// Predicate operators understood by every store.
const (
	OpAll Op = iota
	OpEq
	OpIn
	OpPrefix
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
	OpNot
)

var opNames = map[Op]string{
	OpAll:    "all",
	OpEq:     "=",
	OpIn:     "in",
	OpPrefix: "prefix",
	OpLt:     "<",
	OpLte:    "<=",
	OpGt:     ">",
	OpGte:    ">=",
	OpAnd:    "and",
	OpOr:     "or",
	OpNot:    "not",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Predicate describes a row filter as data. Stores translate it into their
// native query language or evaluate it with Match. Prefix matching is
// anchored at the start of the value and case-exact.
type Predicate struct {
	Op       Op
	Column   string
	Value    any      // string for text columns, int for depth comparisons
	Values   []string // OpIn operands
	Operands []Predicate
}

// All matches every row.
func All() Predicate { return Predicate{Op: OpAll} }

// Eq matches rows whose column equals value.
func Eq(column string, value any) Predicate {
	return Predicate{Op: OpEq, Column: column, Value: value}
}

// In matches rows whose column is one of values. An empty set matches nothing.
func In(column string, values []string) Predicate {
	return Predicate{Op: OpIn, Column: column, Values: values}
}

// InIDs is In over a list of node identifiers.
func InIDs(column string, ids []ID) Predicate {
	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = string(id)
	}
	return In(column, values)
}

// HasPrefix matches rows whose column starts with prefix.
func HasPrefix(column, prefix string) Predicate {
	return Predicate{Op: OpPrefix, Column: column, Value: prefix}
}

// Lt, Lte, Gt and Gte compare an integer column against value.
func Lt(column string, value int) Predicate  { return Predicate{Op: OpLt, Column: column, Value: value} }
func Lte(column string, value int) Predicate { return Predicate{Op: OpLte, Column: column, Value: value} }
func Gt(column string, value int) Predicate  { return Predicate{Op: OpGt, Column: column, Value: value} }
func Gte(column string, value int) Predicate { return Predicate{Op: OpGte, Column: column, Value: value} }

// And matches rows satisfying every operand.
func And(ps ...Predicate) Predicate { return Predicate{Op: OpAnd, Operands: ps} }

// Or matches rows satisfying at least one operand.
func Or(ps ...Predicate) Predicate { return Predicate{Op: OpOr, Operands: ps} }

// Not negates p.
func Not(p Predicate) Predicate { return Predicate{Op: OpNot, Operands: []Predicate{p}} }

// Match evaluates the predicate against a node in memory. Columns unknown to
// the schema never match.
func (p Predicate) Match(n Node, s Schema) bool {
	switch p.Op {
	case OpAll:
		return true
	case OpAnd:
		for _, op := range p.Operands {
			if !op.Match(n, s) {
				return false
			}
		}
		return true
	case OpOr:
		for _, op := range p.Operands {
			if op.Match(n, s) {
				return true
			}
		}
		return false
	case OpNot:
		return len(p.Operands) == 1 && !p.Operands[0].Match(n, s)
	}

	v, ok := s.Value(n, p.Column)
	if !ok {
		return false
	}

	switch p.Op {
	case OpEq:
		return fmt.Sprint(v) == fmt.Sprint(p.Value)
	case OpIn:
		sv := fmt.Sprint(v)
		for _, candidate := range p.Values {
			if candidate == sv {
				return true
			}
		}
		return false
	case OpPrefix:
		str, isStr := v.(string)
		prefix, _ := p.Value.(string)
		return isStr && strings.HasPrefix(str, prefix)
	case OpLt, OpLte, OpGt, OpGte:
		got, isInt := v.(int)
		want, wantInt := p.Value.(int)
		if !isInt || !wantInt {
			return false
		}
		switch p.Op {
		case OpLt:
			return got < want
		case OpLte:
			return got <= want
		case OpGt:
			return got > want
		default:
			return got >= want
		}
	}
	return false
}

// String renders the predicate for logs and error messages.
func (p Predicate) String() string {
	switch p.Op {
	case OpAll:
		return "true"
	case OpAnd, OpOr:
		parts := make([]string, len(p.Operands))
		for i, op := range p.Operands {
			parts[i] = op.String()
		}
		return "(" + strings.Join(parts, " "+p.Op.String()+" ") + ")"
	case OpNot:
		if len(p.Operands) == 1 {
			return "not " + p.Operands[0].String()
		}
		return "not ()"
	case OpIn:
		return fmt.Sprintf("%s in [%s]", p.Column, strings.Join(p.Values, ","))
	case OpPrefix:
		return fmt.Sprintf("%s prefix %q", p.Column, p.Value)
	}
	return fmt.Sprintf("%s %s %v", p.Column, p.Op, p.Value)
}

// PrefixRewrite replaces a leading literal in a text column.
type PrefixRewrite struct {
	Column string
	Old    string
	New    string
}

// ColumnAdjust adds Delta to an integer column.
type ColumnAdjust struct {
	Column string
	Delta  int
}

// Transform is the change a bulk update applies to every matched row.
type Transform struct {
	Rewrite *PrefixRewrite
	Adjust  *ColumnAdjust
}

// Apply returns n with the transform applied. A rewrite only touches values
// that actually start with Old.
func (t Transform) Apply(n Node, s Schema) Node {
	if t.Rewrite != nil && t.Rewrite.Column == s.PathColumn && strings.HasPrefix(n.Path, t.Rewrite.Old) {
		n.Path = t.Rewrite.New + n.Path[len(t.Rewrite.Old):]
	}
	if t.Adjust != nil && s.HasDepth() && t.Adjust.Column == s.DepthColumn {
		n.Depth += t.Adjust.Delta
	}
	return n
}
