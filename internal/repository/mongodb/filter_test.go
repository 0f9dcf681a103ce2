package mongodb

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

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

func TestFilterDoc_OperatorsAreRewritten(t *testing.T) {
	spec := tourSpec(t, "duration[gte]=5&price[lt]=1500")

	got := filterDoc(spec.Filters)
	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "duration", Value: bson.D{{Key: "$gte", Value: int64(5)}}}},
		bson.D{{Key: "price", Value: bson.D{{Key: "$lt", Value: 1500.0}}}},
	}}}
	assert.Equal(t, want, got)
}

func TestFilterDoc_SingleAndEmpty(t *testing.T) {
	assert.Equal(t, bson.D{}, filterDoc(nil))

	got := filterDoc([]query.Filter{models.PublicTours()})
	assert.Equal(t, bson.D{{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}}}, got)
}

func TestFilterDoc_SameFieldTwice(t *testing.T) {
	spec := tourSpec(t, "price[gte]=100&price[lte]=500")

	got := filterDoc(spec.Filters)
	require.Len(t, got, 1)
	clauses, ok := got[0].Value.(bson.A)
	require.True(t, ok)
	assert.Len(t, clauses, 2)
}

func TestFilterDoc_MembershipAndIdentity(t *testing.T) {
	spec := tourSpec(t, "difficulty=easy&difficulty=medium&id=abc")

	got := filterDoc(spec.Filters)
	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "difficulty", Value: bson.D{{Key: "$in", Value: bson.A{"easy", "medium"}}}}},
		bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: "abc"}}}},
	}}}
	assert.Equal(t, want, got)
}

func TestFindOptionsParts(t *testing.T) {
	spec := tourSpec(t, "sort=-price&fields=name")

	assert.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}, sortDoc(spec.Sort))
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}, {Key: "name", Value: 1}}, projectionDoc(spec.Projection))

	def := tourSpec(t, "")
	assert.Equal(t, bson.D{{Key: "__v", Value: 0}}, projectionDoc(def.Projection))
}

func TestProjectionDoc_HidesUserSecrets(t *testing.T) {
	spec, err := query.Build(models.UserSchema, url.Values{})
	require.NoError(t, err)

	got := projectionDoc(spec.Projection, hiddenUserFields...)
	assert.Equal(t, bson.D{
		{Key: "password", Value: 0},
		{Key: "passwordResetToken", Value: 0},
		{Key: "passwordResetExpires", Value: 0},
	}, got)
}

func TestStatsPipeline(t *testing.T) {
	pipeline := statsPipeline([]query.Filter{models.PublicTours(), models.TopRated()})

	require.Len(t, pipeline, 4)
	assert.Equal(t, "$match", pipeline[0][0].Key)
	assert.Equal(t, "$group", pipeline[1][0].Key)
	assert.Equal(t, bson.D{{Key: "_id", Value: -1}}, pipeline[3][0].Value)
}

func TestMonthlyPlanPipeline(t *testing.T) {
	pipeline := monthlyPlanPipeline(2021, nil)

	require.Len(t, pipeline, 5)
	assert.Equal(t, "$unwind", pipeline[1][0].Key)
	assert.Equal(t, "$startDates", pipeline[1][0].Value)
}
