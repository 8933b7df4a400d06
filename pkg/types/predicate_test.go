package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testSchema = Schema{
	IDColumn:    "id",
	PathColumn:  "ancestry",
	DepthColumn: "depth",
	NameColumn:  "name",
	KeyKind:     KeyInteger,
}

func TestPredicateMatch(t *testing.T) {
	n := Node{ID: "3", Path: "1/2", Depth: 2, Name: "leaf"}

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"all", All(), true},
		{"eq path", Eq("ancestry", "1/2"), true},
		{"eq path mismatch", Eq("ancestry", "1"), false},
		{"eq depth", Eq("depth", 2), true},
		{"in ids", In("id", []string{"1", "3"}), true},
		{"in ids miss", InIDs("id", []ID{"1", "2"}), false},
		{"empty in", In("id", nil), false},
		{"prefix", HasPrefix("ancestry", "1/"), true},
		{"prefix is anchored", HasPrefix("ancestry", "2"), false},
		{"prefix is case exact", HasPrefix("name", "LE"), false},
		{"lt", Lt("depth", 3), true},
		{"lte", Lte("depth", 2), true},
		{"gt", Gt("depth", 2), false},
		{"gte", Gte("depth", 2), true},
		{"and", And(Eq("ancestry", "1/2"), Eq("id", "3")), true},
		{"or", Or(Eq("ancestry", "x"), Eq("id", "3")), true},
		{"not", Not(Eq("id", "3")), false},
		{"unknown column", Eq("parent_id", "2"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Match(n, testSchema))
		})
	}
}

func TestTransformApply(t *testing.T) {
	tr := Transform{
		Rewrite: &PrefixRewrite{Column: "ancestry", Old: "1/2", New: "5/2"},
		Adjust:  &ColumnAdjust{Column: "depth", Delta: -1},
	}

	got := tr.Apply(Node{ID: "3", Path: "1/2/3", Depth: 3}, testSchema)
	assert.Equal(t, "5/2/3", got.Path)
	assert.Equal(t, 2, got.Depth)

	// Values without the prefix keep their path.
	got = tr.Apply(Node{ID: "9", Path: "7/1/2", Depth: 3}, testSchema)
	assert.Equal(t, "7/1/2", got.Path)
}

func TestPredicateString(t *testing.T) {
	p := Or(Eq("ancestry", "1"), HasPrefix("ancestry", "1/"))
	assert.Equal(t, `(ancestry = 1 or ancestry prefix "1/")`, p.String())
}
