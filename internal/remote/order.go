package remote

import (
	"slices"
	"strings"
	"time"
)

// CompareDocuments orders a and b under the query's ordering terms, with id
// ascending as the final tiebreak. The tiebreak makes the order total, which
// stable pagination depends on: without it equal rows could duplicate or
// vanish across page boundaries.
func CompareDocuments(a, b Document, orders []Order) int {
	for _, o := range orders {
		c := compareValues(a.Data[o.Field], b.Data[o.Field])
		if c == 0 {
			continue
		}
		if o.Desc {
			return -c
		}
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// SortDocuments sorts docs in place under the given ordering terms.
func SortDocuments(docs []Document, orders []Order) {
	slices.SortFunc(docs, func(a, b Document) int {
		return CompareDocuments(a, b, orders)
	})
}

// FilterAfter drops every document at or before the cursor row under the
// given ordering.
func FilterAfter(docs []Document, after *Document, orders []Order) []Document {
	if after == nil {
		return docs
	}
	out := docs[:0]
	for _, d := range docs {
		if CompareDocuments(d, *after, orders) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// MatchesQuery applies the query's equality and array-membership filters.
func MatchesQuery(d Document, q Query) bool {
	for field, want := range q.Match {
		if compareValues(d.Data[field], want) != 0 {
			return false
		}
	}
	for field, want := range q.ArrayContains {
		values, ok := asStringSlice(d.Data[field])
		if !ok {
			return false
		}
		member, ok := asString(want)
		if !ok || !slices.Contains(values, member) {
			return false
		}
	}
	return true
}

// compareValues orders two untyped field values. A missing (nil) value sorts
// before any present value. Numeric types compare across int widths, string
// slices compare element-wise.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, aok := asTime(a); aok {
		if bt, bok := asTime(b); bok {
			return at.Compare(bt)
		}
	}
	if as, aok := asString(a); aok {
		if bs, bok := asString(b); bok {
			return strings.Compare(as, bs)
		}
	}
	if av, aok := asStringSlice(a); aok {
		if bv, bok := asStringSlice(b); bok {
			return slices.Compare(av, bv)
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ab == bb:
				return 0
			case bb:
				return -1
			default:
				return 1
			}
		}
	}
	return 0
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case time.Duration:
		return float64(n), true
	}
	return 0, false
}
