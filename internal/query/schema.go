package query

// FieldType is the value type a field is coerced to when it appears in a filter.
type FieldType int

const (
	String FieldType = iota
	Int
	Float
	Bool
	Time
	StringArray
	TimeArray
)

// Field describes one queryable field of a collection. Name is the name clients use,
// Mongo and Column are its names in the document and relational stores.
type Field struct {
	Name   string
	Type   FieldType
	Mongo  string
	Column string
}

// Schema is the whitelist of fields a collection exposes to query parameters.
type Schema struct {
	id      string
	version string
	fields  map[string]Field
	order   []string
}

// NewSchema builds a schema. id names the identity field; version names the internal
// version field dropped by the default projection (empty when the collection has none).
func NewSchema(id, version string, fields ...Field) Schema {
	s := Schema{
		id:      id,
		version: version,
		fields:  make(map[string]Field, len(fields)),
		order:   make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		if f.Mongo == "" {
			f.Mongo = f.Name
		}
		if f.Column == "" {
			f.Column = f.Name
		}
		if _, dup := s.fields[f.Name]; !dup {
			s.order = append(s.order, f.Name)
		}
		s.fields[f.Name] = f
	}
	return s
}

func (s Schema) Lookup(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// ID returns the identity field.
func (s Schema) ID() Field {
	return s.fields[s.id]
}

// Version returns the version field, if the collection has one.
func (s Schema) Version() (Field, bool) {
	if s.version == "" {
		return Field{}, false
	}
	f, ok := s.fields[s.version]
	return f, ok
}

// Fields returns all fields in declaration order.
func (s Schema) Fields() []Field {
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}
