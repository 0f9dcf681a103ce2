package mongodb

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"natours/api/internal/query"
)

var mongoOps = map[query.Op]string{
	query.OpEq:  "$eq",
	query.OpNe:  "$ne",
	query.OpIn:  "$in",
	query.OpGt:  "$gt",
	query.OpGte: "$gte",
	query.OpLt:  "$lt",
	query.OpLte: "$lte",
}

// filterDoc renders filters as a query document. Each predicate is its own clause so
// two filters on the same field never overwrite each other.
func filterDoc(filters []query.Filter) bson.D {
	clauses := make(bson.A, 0, len(filters))
	for _, f := range filters {
		op, ok := mongoOps[f.Op]
		if !ok {
			continue
		}
		value := f.Value
		if set, isSet := value.([]any); isSet {
			value = bson.A(set)
		}
		clauses = append(clauses, bson.D{{Key: f.Field.Mongo, Value: bson.D{{Key: op, Value: value}}}})
	}

	switch len(clauses) {
	case 0:
		return bson.D{}
	case 1:
		return clauses[0].(bson.D)
	default:
		return bson.D{{Key: "$and", Value: clauses}}
	}
}

func sortDoc(keys []query.SortKey) bson.D {
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: k.Field.Mongo, Value: dir})
	}
	return out
}

// projectionDoc renders a projection. hidden fields are always excluded from
// exclusion projections; inclusion projections never name them anyway.
func projectionDoc(p query.Projection, hidden ...string) bson.D {
	if len(p.Include) > 0 {
		out := make(bson.D, 0, len(p.Include))
		for _, f := range p.Include {
			out = append(out, bson.E{Key: f.Mongo, Value: 1})
		}
		return out
	}
	out := make(bson.D, 0, len(p.Exclude)+len(hidden))
	for _, f := range p.Exclude {
		out = append(out, bson.E{Key: f.Mongo, Value: 0})
	}
	for _, name := range hidden {
		out = append(out, bson.E{Key: name, Value: 0})
	}
	return out
}

func findOptions(spec query.Spec, hidden ...string) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(sortDoc(spec.Sort))
	if proj := projectionDoc(spec.Projection, hidden...); len(proj) > 0 {
		opts.SetProjection(proj)
	}
	if spec.Limit > 0 {
		opts.SetSkip(int64(spec.Skip())).SetLimit(int64(spec.Limit))
	}
	return opts
}
