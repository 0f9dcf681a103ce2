// Package memory keeps records in process memory. It backs tests and the "memory"
// database driver and evaluates query specs with the same semantics as the document
// store: a predicate on an array field matches when any element matches.
package memory

import (
	"sort"
	"strings"
	"time"

	"natours/api/internal/query"
)

func matches(doc map[string]any, filters []query.Filter) bool {
	for _, f := range filters {
		if !matchOne(doc[f.Field.Name], f) {
			return false
		}
	}
	return true
}

func matchOne(value any, f query.Filter) bool {
	if f.Op == query.OpNe {
		return !matchOne(value, query.Filter{Field: f.Field, Op: query.OpEq, Value: f.Value})
	}
	if value == nil {
		return false
	}

	for _, elem := range elements(value) {
		if f.Op == query.OpIn {
			set, _ := f.Value.([]any)
			for _, candidate := range set {
				if c, ok := compare(elem, candidate); ok && c == 0 {
					return true
				}
			}
			continue
		}

		c, ok := compare(elem, f.Value)
		if !ok {
			continue
		}
		switch f.Op {
		case query.OpEq:
			if c == 0 {
				return true
			}
		case query.OpGt:
			if c > 0 {
				return true
			}
		case query.OpGte:
			if c >= 0 {
				return true
			}
		case query.OpLt:
			if c < 0 {
				return true
			}
		case query.OpLte:
			if c <= 0 {
				return true
			}
		}
	}
	return false
}

func elements(value any) []any {
	switch v := value.(type) {
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []time.Time:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	default:
		return []any{value}
	}
}

// compare orders two scalars of compatible types. Numbers compare across int64 and
// float64; ok is false when the types cannot be compared.
func compare(a, b any) (int, bool) {
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// sortDocs orders docs by keys. Missing values sort first, as they do in the document
// store.
func sortDocs(docs []map[string]any, keys []query.SortKey) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			c := compareForSort(docs[i][k.Field.Name], docs[j][k.Field.Name])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareForSort(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	a, b = sortValue(a), sortValue(b)
	c, _ := compare(a, b)
	return c
}

// sortValue reduces arrays to their first element.
func sortValue(v any) any {
	elems := elements(v)
	if len(elems) == 0 {
		return nil
	}
	return elems[0]
}

func page(n int, spec query.Spec) (int, int) {
	start := spec.Skip()
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if spec.Limit > 0 && spec.Limit < n-start {
		end = start + spec.Limit
	}
	return start, end
}
