package tree

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Delimiter separates ancestor ids inside a path value.
const Delimiter = "/"

// Codec encodes and decodes ancestor chains for one model. It is a value
// type and safe for concurrent use.
type Codec struct {
	encoding string
	keyKind  string
	segment  *regexp.Regexp
	format   *regexp.Regexp
}

// NewCodec compiles the path format for cfg. The configuration must already
// be valid.
func NewCodec(cfg types.TreeConfig) (Codec, error) {
	seg := cfg.Segment()
	segment, err := regexp.Compile(`^(?:` + seg + `)$`)
	if err != nil {
		return Codec{}, fmt.Errorf("%w: segment pattern: %v", types.ErrConfiguration, err)
	}

	d := regexp.QuoteMeta(Delimiter)
	var pattern string
	switch cfg.Encoding {
	case types.EncodingBare:
		pattern = `^(?:` + seg + `)(?:` + d + `(?:` + seg + `))*$`
	case types.EncodingBracketed:
		pattern = `^` + d + `(?:(?:` + seg + `)` + d + `)*$`
	default:
		return Codec{}, fmt.Errorf("%w: unknown encoding %q", types.ErrConfiguration, cfg.Encoding)
	}
	format, err := regexp.Compile(pattern)
	if err != nil {
		return Codec{}, fmt.Errorf("%w: path pattern: %v", types.ErrConfiguration, err)
	}

	return Codec{
		encoding: cfg.Encoding,
		keyKind:  cfg.KeyKind,
		segment:  segment,
		format:   format,
	}, nil
}

// Root returns the stored representation of a root node's path.
func (c Codec) Root() string {
	if c.encoding == types.EncodingBracketed {
		return Delimiter
	}
	return ""
}

// IsRootPath reports whether raw denotes a root. The empty string is a root
// under both encodings.
func (c Codec) IsRootPath(raw string) bool {
	return raw == "" || raw == c.Root()
}

// Normalize maps every root spelling to Root and leaves other values as is.
func (c Codec) Normalize(raw string) string {
	if c.IsRootPath(raw) {
		return c.Root()
	}
	return raw
}

// Parse splits raw into ancestor ids, root first. Empty segments are dropped
// and integer keys are brought into canonical decimal form.
func (c Codec) Parse(raw string) []types.ID {
	if c.IsRootPath(raw) {
		return nil
	}
	parts := strings.Split(raw, Delimiter)
	ids := make([]types.ID, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		ids = append(ids, c.canonical(p))
	}
	return ids
}

func (c Codec) canonical(segment string) types.ID {
	if c.keyKind == types.KeyInteger {
		if v, err := strconv.ParseInt(segment, 10, 64); err == nil {
			return types.ID(strconv.FormatInt(v, 10))
		}
	}
	return types.ID(segment)
}

// Render encodes ids using the configured encoding. An empty slice renders
// the root representation.
func (c Codec) Render(ids []types.ID) string {
	if len(ids) == 0 {
		return c.Root()
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	joined := strings.Join(parts, Delimiter)
	if c.encoding == types.EncodingBracketed {
		return Delimiter + joined + Delimiter
	}
	return joined
}

// ChildPath returns the path value the children of n carry. It is derived
// from n.Path as given, so callers pass the persisted row.
// Returns ErrNotPersisted when n has no id yet.
func (c Codec) ChildPath(n types.Node) (string, error) {
	if !n.Persisted() {
		return "", types.ErrNotPersisted
	}
	if c.encoding == types.EncodingBracketed {
		return c.Normalize(n.Path) + string(n.ID) + Delimiter, nil
	}
	if c.IsRootPath(n.Path) {
		return string(n.ID), nil
	}
	return n.Path + Delimiter + string(n.ID), nil
}

// Valid reports whether raw is a well-formed path. Roots are always valid.
func (c Codec) Valid(raw string) bool {
	return c.IsRootPath(raw) || c.format.MatchString(raw)
}

// ValidID reports whether id matches the primary-key segment pattern.
func (c Codec) ValidID(id types.ID) bool {
	return c.segment.MatchString(string(id))
}

// Sane reports whether n's path is well-formed and does not list n itself.
func (c Codec) Sane(n types.Node) bool {
	if !c.Valid(n.Path) {
		return false
	}
	for _, a := range c.Parse(n.Path) {
		if a == n.ID {
			return false
		}
	}
	return true
}

// Depth returns the number of ancestors encoded in raw.
func (c Codec) Depth(raw string) int {
	return len(c.Parse(raw))
}

// RewritePrefix replaces the leading oldPrefix of raw with newPrefix, keeping
// the remainder verbatim. Both prefixes are child paths (or the root
// representation for newPrefix). Values that do not start with oldPrefix are
// returned unchanged.
func (c Codec) RewritePrefix(raw, oldPrefix, newPrefix string) string {
	if c.encoding == types.EncodingBracketed {
		if !strings.HasPrefix(raw, oldPrefix) {
			return raw
		}
		return c.Normalize(newPrefix) + raw[len(oldPrefix):]
	}

	if raw == oldPrefix {
		return c.Normalize(newPrefix)
	}
	if !strings.HasPrefix(raw, oldPrefix+Delimiter) {
		return raw
	}
	rest := raw[len(oldPrefix)+len(Delimiter):]
	if c.IsRootPath(newPrefix) {
		return rest
	}
	return newPrefix + Delimiter + rest
}
