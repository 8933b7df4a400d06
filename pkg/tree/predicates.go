package tree

import (
	"fmt"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Relation names a set of nodes defined relative to a node.
type Relation string

// Relations supported by Conditions and Related.
const (
	Ancestors   Relation = "ancestors"
	PathTo      Relation = "path"
	Children    Relation = "children"
	Siblings    Relation = "siblings"
	Descendants Relation = "descendants"
	Indirects   Relation = "indirects"
	Subtree     Relation = "subtree"
)

// DepthScope bounds a relation by depth relative to the querying node.
type DepthScope string

// Depth scopes. Each compares the depth cache against the node's own depth
// plus DepthFilter.Relative.
const (
	BeforeDepth DepthScope = "before_depth" // depth <  ref
	ToDepth     DepthScope = "to_depth"     // depth <= ref
	AtDepth     DepthScope = "at_depth"     // depth == ref
	FromDepth   DepthScope = "from_depth"   // depth >= ref
	AfterDepth  DepthScope = "after_depth"  // depth >  ref
)

// DepthFilter is one depth bound applied to a relation.
type DepthFilter struct {
	Scope    DepthScope
	Relative int
}

// RootConditions matches every root node. Under the bracketed encoding an
// empty path is a root as well.
func (e *Engine) RootConditions() types.Predicate {
	return types.In(e.schema.PathColumn, e.rootSpellings())
}

// rootSpellings lists the stored path values that denote a root.
func (e *Engine) rootSpellings() []string {
	if root := e.codec.Root(); root != "" {
		return []string{"", root}
	}
	return []string{""}
}

// AncestorConditions matches the strict ancestors of n.
func (e *Engine) AncestorConditions(n types.Node) types.Predicate {
	return types.InIDs(e.schema.IDColumn, e.codec.AncestorIDs(n))
}

// PathConditions matches n and its ancestors.
func (e *Engine) PathConditions(n types.Node) types.Predicate {
	return types.InIDs(e.schema.IDColumn, e.codec.PathIDs(n))
}

// ChildConditions matches the direct children of n.
func (e *Engine) ChildConditions(n types.Node) (types.Predicate, error) {
	cp, err := e.codec.ChildPath(n)
	if err != nil {
		return types.Predicate{}, err
	}
	return types.Eq(e.schema.PathColumn, cp), nil
}

// SiblingConditions matches every node sharing n's parent, n included.
func (e *Engine) SiblingConditions(n types.Node) types.Predicate {
	if e.codec.IsRootPath(n.Path) {
		return e.RootConditions()
	}
	return types.Eq(e.schema.PathColumn, e.codec.Normalize(n.Path))
}

// DescendantConditions matches every strict descendant of n.
func (e *Engine) DescendantConditions(n types.Node) (types.Predicate, error) {
	cp, err := e.codec.ChildPath(n)
	if err != nil {
		return types.Predicate{}, err
	}
	return e.descendantsOfChildPath(cp), nil
}

// descendantsOfChildPath matches every row whose path starts with the child
// path cp. Cascades call it with the pre-save child path.
func (e *Engine) descendantsOfChildPath(cp string) types.Predicate {
	col := e.schema.PathColumn
	if e.cfg.Encoding == types.EncodingBracketed {
		return types.HasPrefix(col, cp)
	}
	return types.Or(types.Eq(col, cp), types.HasPrefix(col, cp+Delimiter))
}

// SubtreeConditions matches n and all of its descendants.
func (e *Engine) SubtreeConditions(n types.Node) (types.Predicate, error) {
	desc, err := e.DescendantConditions(n)
	if err != nil {
		return types.Predicate{}, err
	}
	return types.Or(desc, types.Eq(e.schema.IDColumn, string(n.ID))), nil
}

// IndirectConditions matches descendants of n that are not direct children.
func (e *Engine) IndirectConditions(n types.Node) (types.Predicate, error) {
	cp, err := e.codec.ChildPath(n)
	if err != nil {
		return types.Predicate{}, err
	}
	col := e.schema.PathColumn
	if e.cfg.Encoding == types.EncodingBracketed {
		return types.And(types.HasPrefix(col, cp), types.Not(types.Eq(col, cp))), nil
	}
	return types.HasPrefix(col, cp+Delimiter), nil
}

// Conditions returns the predicate for rel relative to n, narrowed by the
// depth filters. Depth filters need the depth cache.
func (e *Engine) Conditions(rel Relation, n types.Node, filters ...DepthFilter) (types.Predicate, error) {
	var (
		p   types.Predicate
		err error
	)
	switch rel {
	case Ancestors:
		p = e.AncestorConditions(n)
	case PathTo:
		p = e.PathConditions(n)
	case Children:
		p, err = e.ChildConditions(n)
	case Siblings:
		p = e.SiblingConditions(n)
	case Descendants:
		p, err = e.DescendantConditions(n)
	case Indirects:
		p, err = e.IndirectConditions(n)
	case Subtree:
		p, err = e.SubtreeConditions(n)
	default:
		return types.Predicate{}, fmt.Errorf("%w: unknown relation %q", types.ErrConfiguration, rel)
	}
	if err != nil {
		return types.Predicate{}, err
	}
	if len(filters) == 0 {
		return p, nil
	}

	ref := e.codec.Depth(n.Path)
	parts := []types.Predicate{p}
	for _, f := range filters {
		dp, err := e.DepthConditions(ref, f)
		if err != nil {
			return types.Predicate{}, err
		}
		parts = append(parts, dp)
	}
	return types.And(parts...), nil
}

// DepthConditions returns the depth bound for filter f relative to the
// reference depth ref. Returns ErrDepthCacheDisabled without a depth column.
func (e *Engine) DepthConditions(ref int, f DepthFilter) (types.Predicate, error) {
	if !e.schema.HasDepth() {
		return types.Predicate{}, fmt.Errorf("%s: %w", f.Scope, types.ErrDepthCacheDisabled)
	}
	col := e.schema.DepthColumn
	bound := ref + f.Relative
	switch f.Scope {
	case BeforeDepth:
		return types.Lt(col, bound), nil
	case ToDepth:
		return types.Lte(col, bound), nil
	case AtDepth:
		return types.Eq(col, bound), nil
	case FromDepth:
		return types.Gte(col, bound), nil
	case AfterDepth:
		return types.Gt(col, bound), nil
	}
	return types.Predicate{}, fmt.Errorf("%w: unknown depth scope %q", types.ErrConfiguration, f.Scope)
}
