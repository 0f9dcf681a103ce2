package memory

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

func seedTours(t *testing.T) *TourRepository {
	t.Helper()
	repo := NewTourRepository()
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 9, 0, 0, 0, time.UTC) }

	tours := []models.Tour{
		{ID: "a", Name: "The Forest Hiker", Duration: 5, Difficulty: models.DifficultyEasy, Price: 397, RatingsAverage: 4.7, RatingsQuantity: 37,
			StartDates: []time.Time{day(2021, 4, 25), day(2021, 7, 20)}},
		{ID: "b", Name: "The Sea Explorer", Duration: 7, Difficulty: models.DifficultyMedium, Price: 497, RatingsAverage: 4.8, RatingsQuantity: 23,
			StartDates: []time.Time{day(2021, 6, 19)}},
		{ID: "c", Name: "The Snow Adventurer", Duration: 4, Difficulty: models.DifficultyDifficult, Price: 997, RatingsAverage: 4.5, RatingsQuantity: 13,
			StartDates: []time.Time{day(2022, 1, 5)}},
		{ID: "d", Name: "The City Wanderer", Duration: 9, Difficulty: models.DifficultyEasy, Price: 1197, RatingsAverage: 4.6, RatingsQuantity: 54,
			StartDates: []time.Time{day(2021, 4, 1)}},
		{ID: "e", Name: "The Secret Tour", Duration: 9, Difficulty: models.DifficultyEasy, Price: 10, RatingsAverage: 5, SecretTour: true,
			StartDates: []time.Time{day(2021, 4, 2)}},
	}
	require.NoError(t, repo.InsertMany(context.Background(), tours))
	return repo
}

func spec(t *testing.T, raw string) query.Spec {
	t.Helper()
	params, err := url.ParseQuery(raw)
	require.NoError(t, err)
	s, err := query.Build(models.TourSchema, params)
	require.NoError(t, err)
	return s.With(models.PublicTours())
}

func ids(tours []models.Tour) []string {
	out := make([]string, 0, len(tours))
	for _, t := range tours {
		out = append(out, t.ID)
	}
	return out
}

func TestTourList_FilterSortPaginate(t *testing.T) {
	repo := seedTours(t)
	ctx := context.Background()

	got, err := repo.List(ctx, spec(t, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got), "secret tour hidden, id ascending")

	got, err = repo.List(ctx, spec(t, "duration[gte]=5&price[lt]=1000&sort=-price"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(got))

	got, err = repo.List(ctx, spec(t, "difficulty=easy&difficulty=difficult"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, ids(got))

	got, err = repo.List(ctx, spec(t, "page=2&limit=3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(got))

	got, err = repo.List(ctx, spec(t, "page=9&limit=3"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTourList_ArrayAnyElement(t *testing.T) {
	repo := seedTours(t)

	got, err := repo.List(context.Background(), spec(t, "startDates[gte]=2021-07-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(got))
}

func TestTourGetByID_DefaultFilter(t *testing.T) {
	repo := seedTours(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "e", models.PublicTours())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	tour, err := repo.GetByID(ctx, "e")
	require.NoError(t, err)
	assert.True(t, tour.SecretTour)
}

func TestTourUpdate_BumpsVersion(t *testing.T) {
	repo := seedTours(t)
	ctx := context.Background()

	tour, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	tour.Price = 450

	updated, err := repo.Update(ctx, tour)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)
	assert.Equal(t, 450.0, updated.Price)

	tour.Name = "The Sea Explorer"
	_, err = repo.Update(ctx, tour)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestTourStats(t *testing.T) {
	repo := seedTours(t)

	stats, err := repo.Stats(context.Background(), []query.Filter{models.PublicTours(), models.TopRated()})
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.Equal(t, "MEDIUM", stats[0].Difficulty)
	assert.Equal(t, "EASY", stats[1].Difficulty)
	assert.Equal(t, "DIFFICULT", stats[2].Difficulty)

	easy := stats[1]
	assert.Equal(t, 2, easy.Count)
	assert.Equal(t, 91, easy.NumRatings)
	assert.InDelta(t, 797.0, easy.AvgPrice, 0.001)
	assert.Equal(t, 1197.0, easy.MaxPrice)
	assert.InDelta(t, 4.65, easy.AverageRating, 0.001)
	assert.Equal(t, []string{"The City Wanderer", "The Forest Hiker"}, easy.Tours)
}

func TestTourMonthlyPlan(t *testing.T) {
	repo := seedTours(t)

	plan, err := repo.MonthlyPlan(context.Background(), 2021, []query.Filter{models.PublicTours()})
	require.NoError(t, err)

	assert.Equal(t, []models.MonthlyPlan{
		{Month: 4, ToursCount: 2, Names: []string{"The City Wanderer", "The Forest Hiker"}},
		{Month: 6, ToursCount: 1, Names: []string{"The Sea Explorer"}},
		{Month: 7, ToursCount: 1, Names: []string{"The Forest Hiker"}},
	}, plan)
}

func TestUserPasswordReset(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, models.User{ID: "u1", Email: "a@example.com", Active: true}))
	assert.ErrorIs(t, repo.Create(ctx, models.User{ID: "u2", Email: "a@example.com"}), repository.ErrDuplicate)

	require.NoError(t, repo.SetPasswordReset(ctx, "u1", "hash", now.Add(10*time.Minute)))

	u, err := repo.FindByResetToken(ctx, "hash", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = repo.FindByResetToken(ctx, "hash", now.Add(11*time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.ConsumePasswordReset(ctx, "u1", "hash", []byte("new"), now, now))
	err = repo.ConsumePasswordReset(ctx, "u1", "hash", []byte("again"), now, now)
	assert.ErrorIs(t, err, repository.ErrResetTokenInvalid)

	u, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), u.PasswordHash)
	assert.Empty(t, u.PasswordResetTokenHash)
	assert.Nil(t, u.PasswordResetExpiresAt)
}

func TestUserPurgeExpiredResets(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, models.User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, repo.Create(ctx, models.User{ID: "u2", Email: "b@example.com"}))
	require.NoError(t, repo.SetPasswordReset(ctx, "u1", "h1", now.Add(-time.Minute)))
	require.NoError(t, repo.SetPasswordReset(ctx, "u2", "h2", now.Add(time.Minute)))

	n, err := repo.PurgeExpiredResets(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	u2, err := repo.GetByID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "h2", u2.PasswordResetTokenHash)
}

func TestUserList_ActiveOnly(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, models.User{ID: "u1", Email: "a@example.com", Name: "Ann", Active: true}))
	require.NoError(t, repo.Create(ctx, models.User{ID: "u2", Email: "b@example.com", Name: "Bob", Active: false}))

	s, err := query.Build(models.UserSchema, url.Values{"sort": {"-name"}})
	require.NoError(t, err)
	users, err := repo.List(ctx, s.With(models.ActiveUsers()))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)

	_, err = repo.GetByID(ctx, "u2", models.ActiveUsers())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserList_PageBeyondRangeIsEmpty(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, models.User{ID: "u1", Email: "a@example.com", Active: true}))

	for _, raw := range []string{"page=100000000000000000", "page=2&limit=1"} {
		s, err := query.Build(models.UserSchema, mustQuery(t, raw))
		require.NoError(t, err)
		users, err := repo.List(ctx, s)
		require.NoError(t, err, raw)
		assert.Empty(t, users, raw)
	}

	done := make(chan error, 1)
	go func() { done <- repo.SetActive(ctx, "u1", false) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write blocked after listing")
	}
}

func TestPage_ClampsOutOfRangeSkip(t *testing.T) {
	start, end := page(3, query.Spec{Page: 2, Limit: 10})
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)

	start, end = page(5, query.Spec{Page: 2, Limit: 2})
	assert.Equal(t, 2, start)
	assert.Equal(t, 4, end)
}

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	v, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return v
}

func TestTourList_HugePage(t *testing.T) {
	repo := seedTours(t)
	got, err := repo.List(context.Background(), spec(t, "page=100000000000000000&limit=1"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
