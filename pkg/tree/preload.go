package tree

import (
	"context"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Preloaded is a read-only cache of relations assembled by batch loads.
// Each Load call issues exactly one store query no matter how many nodes it
// covers. Accessors answer from the cache when it holds the full answer and
// fall back to a store query otherwise, so results match the on-demand path.
//
// A Preloaded is not safe for concurrent Load calls; accessors may be
// called concurrently once loading is done.
type Preloaded struct {
	e        *Engine
	byID     map[types.ID]types.Node
	subtrees map[types.ID]*subtreeCache
	siblings map[string][]types.Node
	queries  int
}

// subtreeCache holds the descendants of one preloaded root. ceiling is the
// deepest absolute depth loaded, or -1 when the subtree is complete.
type subtreeCache struct {
	root        types.Node
	descendants []types.Node
	ceiling     int
}

// NewPreloaded returns an empty cache bound to e.
func (e *Engine) NewPreloaded() *Preloaded {
	return &Preloaded{
		e:        e,
		byID:     make(map[types.ID]types.Node),
		subtrees: make(map[types.ID]*subtreeCache),
		siblings: make(map[string][]types.Node),
	}
}

// PreloadDescendants loads the descendants of every root in one query.
// maxDepth < 0 loads complete subtrees; otherwise only descendants at most
// maxDepth levels below their root are loaded, which needs the depth cache.
func (e *Engine) PreloadDescendants(ctx context.Context, roots []types.Node, maxDepth int) (*Preloaded, error) {
	p := e.NewPreloaded()
	if err := p.LoadDescendants(ctx, roots, maxDepth); err != nil {
		return nil, err
	}
	return p, nil
}

// PreloadAncestors loads the ancestors of every node in one query.
func (e *Engine) PreloadAncestors(ctx context.Context, nodes []types.Node) (*Preloaded, error) {
	p := e.NewPreloaded()
	if err := p.LoadAncestors(ctx, nodes); err != nil {
		return nil, err
	}
	return p, nil
}

// PreloadSiblings loads the sibling sets of every node in one query.
func (e *Engine) PreloadSiblings(ctx context.Context, nodes []types.Node) (*Preloaded, error) {
	p := e.NewPreloaded()
	if err := p.LoadSiblings(ctx, nodes); err != nil {
		return nil, err
	}
	return p, nil
}

// Queries returns the number of store queries issued by Load calls.
func (p *Preloaded) Queries() int { return p.queries }

func (p *Preloaded) query(ctx context.Context, pred types.Predicate) ([]types.Node, error) {
	p.queries++
	p.e.metrics.preloadQuery()
	nodes, err := p.e.store.Query(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("preload query: %w", err)
	}
	for _, n := range nodes {
		p.byID[n.ID] = n
	}
	return nodes, nil
}

// LoadDescendants adds the subtrees of roots to the cache with one query.
func (p *Preloaded) LoadDescendants(ctx context.Context, roots []types.Node, maxDepth int) error {
	if len(roots) == 0 {
		return nil
	}
	if maxDepth >= 0 && !p.e.schema.HasDepth() {
		return fmt.Errorf("preloading to depth %d: %w", maxDepth, types.ErrDepthCacheDisabled)
	}

	parts := make([]types.Predicate, 0, len(roots))
	caches := make([]*subtreeCache, 0, len(roots))
	for _, r := range roots {
		desc, err := p.e.DescendantConditions(r)
		if err != nil {
			return fmt.Errorf("preloading node %s: %w", r.ID, err)
		}
		c := &subtreeCache{root: r, ceiling: -1}
		if maxDepth >= 0 {
			c.ceiling = p.e.codec.Depth(r.Path) + maxDepth
			desc = types.And(desc, types.Lte(p.e.schema.DepthColumn, c.ceiling))
		}
		parts = append(parts, desc)
		caches = append(caches, c)
	}

	nodes, err := p.query(ctx, types.Or(parts...))
	if err != nil {
		return err
	}
	p.e.sortNodes(nodes)

	for _, c := range caches {
		p.byID[c.root.ID] = c.root
		for _, n := range nodes {
			if p.e.codec.IsDescendantOf(n, c.root) {
				c.descendants = append(c.descendants, n)
			}
		}
		p.subtrees[c.root.ID] = c
	}
	return nil
}

// LoadAncestors adds the ancestors of every node to the cache with one
// query.
func (p *Preloaded) LoadAncestors(ctx context.Context, nodes []types.Node) error {
	var ids []types.ID
	seen := make(map[types.ID]bool)
	for _, n := range nodes {
		p.byID[n.ID] = n
		for _, id := range p.e.codec.AncestorIDs(n) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := p.query(ctx, types.InIDs(p.e.schema.IDColumn, ids))
	return err
}

// LoadSiblings adds the sibling sets of every node to the cache with one
// query.
func (p *Preloaded) LoadSiblings(ctx context.Context, nodes []types.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	var paths, values []string
	for _, n := range nodes {
		path := p.e.codec.Normalize(n.Path)
		if slices.Contains(paths, path) {
			continue
		}
		paths = append(paths, path)
		if p.e.codec.IsRootPath(path) {
			values = append(values, p.e.rootSpellings()...)
		} else {
			values = append(values, path)
		}
	}
	found, err := p.query(ctx, types.In(p.e.schema.PathColumn, values))
	if err != nil {
		return err
	}
	p.e.sortNodes(found)
	for _, path := range paths {
		p.siblings[path] = []types.Node{}
	}
	for _, n := range found {
		path := p.e.codec.Normalize(n.Path)
		p.siblings[path] = append(p.siblings[path], n)
	}
	return nil
}

// cover returns the cached subtree that holds every row of rel for n.
func (p *Preloaded) cover(n types.Node, rel Relation) (*subtreeCache, bool) {
	if c, ok := p.subtrees[n.ID]; ok && p.answers(c, n, rel) {
		return c, true
	}
	for _, c := range p.subtrees {
		if p.e.codec.IsDescendantOf(n, c.root) && p.answers(c, n, rel) {
			return c, true
		}
	}
	return nil, false
}

// answers reports whether c holds the full answer to rel for n. A subtree
// loaded with a depth limit only answers Children above its deepest level.
func (p *Preloaded) answers(c *subtreeCache, n types.Node, rel Relation) bool {
	if c.ceiling < 0 {
		return true
	}
	return rel == Children && p.e.codec.Depth(n.Path)+1 <= c.ceiling
}

// fromSubtree answers rel for n from the cache, or reports false.
func (p *Preloaded) fromSubtree(n types.Node, rel Relation) ([]types.Node, bool, error) {
	c, ok := p.cover(n, rel)
	if !ok {
		return nil, false, nil
	}
	pred, err := p.e.Conditions(rel, n)
	if err != nil {
		return nil, false, err
	}
	pool := append([]types.Node{c.root}, c.descendants...)
	var out []types.Node
	for _, m := range pool {
		if pred.Match(m, p.e.schema) {
			out = append(out, m)
		}
	}
	p.e.sortNodes(out)
	return out, true, nil
}

func (p *Preloaded) related(ctx context.Context, rel Relation, n types.Node) ([]types.Node, error) {
	out, ok, err := p.fromSubtree(n, rel)
	if err != nil || ok {
		return out, err
	}
	return p.e.Related(ctx, rel, n)
}

// Children returns n's children.
func (p *Preloaded) Children(ctx context.Context, n types.Node) ([]types.Node, error) {
	return p.related(ctx, Children, n)
}

// Descendants returns n's descendants.
func (p *Preloaded) Descendants(ctx context.Context, n types.Node) ([]types.Node, error) {
	return p.related(ctx, Descendants, n)
}

// Indirects returns n's descendants that are not its children.
func (p *Preloaded) Indirects(ctx context.Context, n types.Node) ([]types.Node, error) {
	return p.related(ctx, Indirects, n)
}

// Subtree returns n and its descendants.
func (p *Preloaded) Subtree(ctx context.Context, n types.Node) ([]types.Node, error) {
	return p.related(ctx, Subtree, n)
}

// Parent returns n's parent, or nil for a root.
func (p *Preloaded) Parent(ctx context.Context, n types.Node) (*types.Node, error) {
	id, ok := p.e.codec.ParentID(n)
	if !ok {
		return nil, nil
	}
	if parent, ok := p.byID[id]; ok {
		return &parent, nil
	}
	return p.e.Parent(ctx, n)
}

// Ancestors returns n's ancestors, root first.
func (p *Preloaded) Ancestors(ctx context.Context, n types.Node) ([]types.Node, error) {
	ids := p.e.codec.AncestorIDs(n)
	out := make([]types.Node, 0, len(ids))
	for _, id := range ids {
		a, ok := p.byID[id]
		if !ok {
			return p.e.Ancestors(ctx, n)
		}
		out = append(out, a)
	}
	p.e.sortNodes(out)
	return out, nil
}

// Siblings returns the nodes sharing n's parent, n included.
func (p *Preloaded) Siblings(ctx context.Context, n types.Node) ([]types.Node, error) {
	if s, ok := p.siblings[p.e.codec.Normalize(n.Path)]; ok {
		return slices.Clone(s), nil
	}
	if parentID, ok := p.e.codec.ParentID(n); ok {
		if parent, ok := p.byID[parentID]; ok {
			if out, ok, err := p.fromSubtree(parent, Children); err != nil || ok {
				return out, err
			}
		}
	}
	return p.e.Siblings(ctx, n)
}

// Tree arranges the cached subtree of a preloaded root. For a root loaded
// with a depth limit the tree stops at the deepest loaded level. ok is false
// when id was not loaded with LoadDescendants.
func (p *Preloaded) Tree(id types.ID) (*TreeNode, bool) {
	c, ok := p.subtrees[id]
	if !ok {
		return nil, false
	}
	forest := p.e.Arrange(append([]types.Node{c.root}, c.descendants...))
	for _, t := range forest {
		if t.Node.ID == id {
			return t, true
		}
	}
	return nil, false
}
