package postgres

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/models"
	"natours/api/internal/query"
)

func tourSpec(t *testing.T, raw string) query.Spec {
	t.Helper()
	params, err := url.ParseQuery(raw)
	require.NoError(t, err)
	spec, err := query.Build(models.TourSchema, params)
	require.NoError(t, err)
	return spec
}

func TestWhere_RendersOperatorsAsSQL(t *testing.T) {
	spec := tourSpec(t, "duration[gte]=5&price[lt]=1500&difficulty=easy").With(models.PublicTours())

	var b sqlBuilder
	where, err := b.where(spec.Filters)
	require.NoError(t, err)

	assert.Equal(t, `"difficulty" = $1 AND "duration" >= $2 AND "price" < $3 AND "secret_tour" IS DISTINCT FROM $4`, where)
	assert.Equal(t, []any{"easy", int64(5), 1500.0, true}, b.args)
}

func TestWhere_ArrayColumns(t *testing.T) {
	spec := tourSpec(t, "startDates[gte]=2021-06-01&images=tour-2-1.jpg")

	var b sqlBuilder
	where, err := b.where(spec.Filters)
	require.NoError(t, err)

	assert.Equal(t, `$1 = ANY("images") AND EXISTS (SELECT 1 FROM unnest("start_dates") AS e WHERE e >= $2)`, where)
	assert.Equal(t, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), b.args[1])
}

func TestWhere_MembershipIsTyped(t *testing.T) {
	spec := tourSpec(t, "duration=5&duration=7")

	var b sqlBuilder
	where, err := b.where(spec.Filters)
	require.NoError(t, err)

	assert.Equal(t, `"duration" = ANY($1)`, where)
	assert.Equal(t, []int64{5, 7}, b.args[0])
}

func TestWhere_EmptyIsTrue(t *testing.T) {
	var b sqlBuilder
	where, err := b.where(nil)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, b.args)
}

func TestOrderByAndPaginate(t *testing.T) {
	spec := tourSpec(t, "sort=-price,ratingsAverage&page=3&limit=10")

	assert.Equal(t, ` ORDER BY "price" DESC, "ratings_average" ASC, "id" ASC`, orderBy(spec.Sort))

	b := sqlBuilder{args: []any{"x"}}
	assert.Equal(t, " LIMIT $2 OFFSET $3", b.paginate(spec))
	assert.Equal(t, []any{"x", 10, 20}, b.args)

	var huge sqlBuilder
	huge.paginate(tourSpec(t, "page=100000000000000000"))
	require.Len(t, huge.args, 2)
	assert.GreaterOrEqual(t, huge.args[1].(int), 0)
}

func TestColumns_Projection(t *testing.T) {
	spec := tourSpec(t, "fields=name,price")
	assert.Equal(t, []string{"id", "name", "price"}, columns(spec.Projection, models.TourSchema))

	spec = tourSpec(t, "")
	cols := columns(spec.Projection, models.TourSchema)
	assert.NotContains(t, cols, "version")
	assert.Contains(t, cols, "start_dates")
	assert.Equal(t, "id", cols[0])
}
