package query

import "math"

// Op is a comparison understood by every store renderer. Stores translate it into
// their own syntax; no operator text from a request ever reaches a store.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpIn  Op = "in"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

// rangeOps are the only operators accepted from query parameters.
var rangeOps = map[string]Op{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
}

// IsRange reports whether op is one of gt, gte, lt, lte.
func (op Op) IsRange() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Filter is a single predicate. Value is already coerced to the field's type;
// for OpIn it is a []any.
type Filter struct {
	Field Field
	Op    Op
	Value any
}

type SortKey struct {
	Field Field
	Desc  bool
}

// Projection selects fields. Only one of Include and Exclude is set. An inclusion
// projection always contains the identity field.
type Projection struct {
	Include []Field
	Exclude []Field
}

// Apply narrows doc, keyed by exposed field names, to the projected fields.
func (p Projection) Apply(doc map[string]any) map[string]any {
	if len(p.Include) > 0 {
		out := make(map[string]any, len(p.Include))
		for _, f := range p.Include {
			if v, ok := doc[f.Name]; ok {
				out[f.Name] = v
			}
		}
		return out
	}

	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, f := range p.Exclude {
		delete(out, f.Name)
	}
	return out
}

// Includes reports whether name survives the projection.
func (p Projection) Includes(name string) bool {
	if len(p.Include) > 0 {
		for _, f := range p.Include {
			if f.Name == name {
				return true
			}
		}
		return false
	}
	for _, f := range p.Exclude {
		if f.Name == name {
			return false
		}
	}
	return true
}

// Spec is a fully built read query.
type Spec struct {
	Filters    []Filter
	Sort       []SortKey
	Projection Projection
	Page       int
	Limit      int
}

// Skip is the number of records to skip for the current page.
func (s Spec) Skip() int {
	if s.Page < 1 || s.Limit < 1 {
		return 0
	}
	if s.Page-1 > math.MaxInt/s.Limit {
		return math.MaxInt
	}
	return (s.Page - 1) * s.Limit
}

// With returns a copy of s with extra filters appended. Used for the default filters
// collections apply to every read.
func (s Spec) With(filters ...Filter) Spec {
	out := s
	out.Filters = make([]Filter, 0, len(s.Filters)+len(filters))
	out.Filters = append(out.Filters, s.Filters...)
	out.Filters = append(out.Filters, filters...)
	return out
}

// All returns a spec that reads the whole collection ordered by identity.
func All(schema Schema) Spec {
	return Spec{
		Sort:       []SortKey{{Field: schema.ID()}},
		Projection: defaultProjection(schema),
	}
}

func defaultProjection(schema Schema) Projection {
	if v, ok := schema.Version(); ok {
		return Projection{Exclude: []Field{v}}
	}
	return Projection{}
}
