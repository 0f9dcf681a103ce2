package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"natours/api/internal/query"
)

// sqlBuilder renders query specs into SQL fragments with positional arguments.
// Column names only ever come from a schema whitelist and are quoted as identifiers.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

var sqlOps = map[query.Op]string{
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// where renders filters joined by AND, or TRUE when there are none.
func (b *sqlBuilder) where(filters []query.Filter) (string, error) {
	if len(filters) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		part, err := b.predicate(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " AND "), nil
}

func (b *sqlBuilder) predicate(f query.Filter) (string, error) {
	col := ident(f.Field.Column)
	array := f.Field.Type == query.StringArray || f.Field.Type == query.TimeArray

	switch f.Op {
	case query.OpEq:
		if array {
			return fmt.Sprintf("%s = ANY(%s)", b.arg(f.Value), col), nil
		}
		return fmt.Sprintf("%s = %s", col, b.arg(f.Value)), nil
	case query.OpNe:
		if array {
			return fmt.Sprintf("NOT (%s = ANY(%s))", b.arg(f.Value), col), nil
		}
		return fmt.Sprintf("%s IS DISTINCT FROM %s", col, b.arg(f.Value)), nil
	case query.OpIn:
		set, err := typedSet(f)
		if err != nil {
			return "", err
		}
		if array {
			return fmt.Sprintf("%s && %s", col, b.arg(set)), nil
		}
		return fmt.Sprintf("%s = ANY(%s)", col, b.arg(set)), nil
	}

	op, ok := sqlOps[f.Op]
	if !ok {
		return "", fmt.Errorf("unsupported operator %q", f.Op)
	}
	if array {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS e WHERE e %s %s)", col, op, b.arg(f.Value)), nil
	}
	return fmt.Sprintf("%s %s %s", col, op, b.arg(f.Value)), nil
}

// typedSet converts a membership set into a slice pgx can encode as an array.
func typedSet(f query.Filter) (any, error) {
	values, ok := f.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("membership filter on %q needs a set", f.Field.Name)
	}

	switch f.Field.Type {
	case query.Int:
		return collect[int64](values)
	case query.Float:
		return collect[float64](values)
	case query.Bool:
		return collect[bool](values)
	case query.Time, query.TimeArray:
		return collect[time.Time](values)
	default:
		return collect[string](values)
	}
}

func collect[T any](values []any) ([]T, error) {
	out := make([]T, 0, len(values))
	for _, v := range values {
		typed, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("unexpected set element %T", v)
		}
		out = append(out, typed)
	}
	return out, nil
}

func orderBy(keys []query.SortKey) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, ident(k.Field.Column)+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (b *sqlBuilder) paginate(spec query.Spec) string {
	if spec.Limit < 1 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %s OFFSET %s", b.arg(spec.Limit), b.arg(spec.Skip()))
}

// columns returns the columns a projection selects out of all, keeping declaration
// order. The identity column is always selected.
func columns(p query.Projection, schema query.Schema) []string {
	id := schema.ID().Column
	out := []string{id}
	for _, f := range schema.Fields() {
		if f.Column == id {
			continue
		}
		if p.Includes(f.Name) {
			out = append(out, f.Column)
		}
	}
	return out
}

func selectList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	return strings.Join(quoted, ", ")
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
