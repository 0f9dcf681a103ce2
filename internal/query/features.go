// Package query turns flat request parameters into a store-neutral read query.
//
// Stages run in a fixed order: filter, sort, projection, pagination. Every stage
// validates against a Schema, so only whitelisted fields and the four comparison
// operators gt, gte, lt and lte can reach a store.
package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"natours/api/internal/apperr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
)

var reserved = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

// Features builds a Spec stage by stage. The first error is sticky: later stages
// become no-ops and Spec returns it.
type Features struct {
	schema Schema
	params url.Values
	spec   Spec
	err    error
}

func NewFeatures(schema Schema, params url.Values) *Features {
	if params == nil {
		params = url.Values{}
	}
	return &Features{
		schema: schema,
		params: params,
		spec: Spec{
			Page:  DefaultPage,
			Limit: DefaultLimit,
		},
	}
}

// Build runs all four stages in order.
func Build(schema Schema, params url.Values) (Spec, error) {
	return NewFeatures(schema, params).Filter().Sort().Project().Paginate().Spec()
}

func (f *Features) Spec() (Spec, error) {
	if f.err != nil {
		return Spec{}, f.err
	}
	return f.spec, nil
}

// Filter turns every non-reserved parameter naming a schema field into a predicate.
// "field=v" is equality, repeated "field=a&field=b" is membership and "field[op]=v"
// is a range comparison.
func (f *Features) Filter() *Features {
	if f.err != nil {
		return f
	}

	keys := make([]string, 0, len(f.params))
	for k := range f.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name, opToken, bracketed, err := splitKey(key)
		if err != nil {
			f.err = err
			return f
		}
		if _, ok := reserved[name]; ok {
			continue
		}
		field, ok := f.schema.Lookup(name)
		if !ok {
			continue
		}

		values := f.params[key]
		if len(values) == 0 {
			continue
		}

		if bracketed {
			op, ok := rangeOps[opToken]
			if !ok {
				f.err = apperr.Validation(fmt.Sprintf("unsupported operator %q on field %q", opToken, name))
				return f
			}
			if field.Type == Bool {
				f.err = apperr.Validation(fmt.Sprintf("operator %q is not supported on field %q", opToken, name))
				return f
			}
			for _, raw := range values {
				v, err := coerce(field, raw)
				if err != nil {
					f.err = err
					return f
				}
				f.spec.Filters = append(f.spec.Filters, Filter{Field: field, Op: op, Value: v})
			}
			continue
		}

		if len(values) == 1 {
			v, err := coerce(field, values[0])
			if err != nil {
				f.err = err
				return f
			}
			f.spec.Filters = append(f.spec.Filters, Filter{Field: field, Op: OpEq, Value: v})
			continue
		}

		set := make([]any, 0, len(values))
		for _, raw := range values {
			v, err := coerce(field, raw)
			if err != nil {
				f.err = err
				return f
			}
			set = append(set, v)
		}
		f.spec.Filters = append(f.spec.Filters, Filter{Field: field, Op: OpIn, Value: set})
	}
	return f
}

// Sort reads "sort=a,-b". Without usable keys the result is ordered by identity
// ascending; with keys, identity is appended as the final tie-breaker.
func (f *Features) Sort() *Features {
	if f.err != nil {
		return f
	}

	id := f.schema.ID()
	seen := make(map[string]struct{})
	var keys []SortKey
	for _, part := range splitList(f.params.Get("sort")) {
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		field, ok := f.schema.Lookup(name)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		keys = append(keys, SortKey{Field: field, Desc: desc})
	}

	if _, ok := seen[id.Name]; !ok {
		keys = append(keys, SortKey{Field: id})
	}
	f.spec.Sort = keys
	return f
}

// Project reads "fields=a,b" (inclusion) or "fields=-a,-b" (exclusion). Without it
// only the version field is dropped.
func (f *Features) Project() *Features {
	if f.err != nil {
		return f
	}

	parts := splitList(f.params.Get("fields"))
	var include, exclude []Field
	seen := make(map[string]struct{})
	for _, part := range parts {
		neg := strings.HasPrefix(part, "-")
		field, ok := f.schema.Lookup(strings.TrimPrefix(part, "-"))
		if !ok {
			continue
		}
		if _, dup := seen[field.Name]; dup {
			continue
		}
		seen[field.Name] = struct{}{}
		if neg {
			exclude = append(exclude, field)
		} else {
			include = append(include, field)
		}
	}

	switch {
	case len(include) > 0 && len(exclude) > 0:
		f.err = apperr.Validation("fields cannot mix inclusion and exclusion")
	case len(include) > 0:
		id := f.schema.ID()
		if _, ok := seen[id.Name]; !ok {
			include = append([]Field{id}, include...)
		}
		f.spec.Projection = Projection{Include: include}
	case len(exclude) > 0:
		f.spec.Projection = Projection{Exclude: exclude}
	default:
		f.spec.Projection = defaultProjection(f.schema)
	}
	return f
}

// Paginate reads "page" and "limit"; anything that is not a positive integer falls
// back to the default. Page is capped so the skip never overflows int.
func (f *Features) Paginate() *Features {
	if f.err != nil {
		return f
	}

	f.spec.Page = positiveInt(f.params.Get("page"), DefaultPage)
	limit := positiveInt(f.params.Get("limit"), DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	f.spec.Limit = limit
	if f.spec.Page-1 > math.MaxInt/limit {
		f.spec.Page = math.MaxInt/limit + 1
	}
	return f
}

func splitKey(key string) (name, op string, bracketed bool, err error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, "", false, nil
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", "", false, apperr.Validation(fmt.Sprintf("malformed filter key %q", key))
	}
	return key[:open], key[open+1 : len(key)-1], true, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && p != "-" {
			out = append(out, p)
		}
	}
	return out
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func coerce(field Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	invalid := func() error {
		return apperr.Validation(fmt.Sprintf("invalid value %q for field %q", raw, field.Name))
	}

	switch field.Type {
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalid()
		}
		return n, nil
	case Float:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, invalid()
		}
		return n, nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, invalid()
		}
		return b, nil
	case Time, TimeArray:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, invalid()
	default:
		return raw, nil
	}
}
