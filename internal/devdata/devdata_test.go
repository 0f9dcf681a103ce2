package devdata

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/repository/memory"
)

func TestDecodeImportDelete(t *testing.T) {
	f, err := os.Open("testdata/tours.json")
	require.NoError(t, err)
	defer f.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tours, err := Decode(f, now)
	require.NoError(t, err)
	require.Len(t, tours, 3)

	hiker := tours[0]
	assert.NotEmpty(t, hiker.ID)
	assert.Equal(t, "the-forest-hiker", hiker.Slug)
	assert.Equal(t, now, hiker.CreatedAt)
	assert.Equal(t, time.Date(2021, 4, 25, 10, 0, 0, 0, time.UTC), hiker.StartDates[0])
	assert.Equal(t, time.Date(2022, 2, 12, 0, 0, 0, 0, time.UTC), tours[2].StartDates[1])

	ctx := context.Background()
	repo := memory.NewTourRepository()
	require.NoError(t, Import(ctx, repo, tours))

	plan, err := repo.MonthlyPlan(ctx, 2021, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, plan)

	n, err := Delete(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"name":"ab","startDates":[]}]`), time.Now())
	require.Error(t, err)

	_, err = Decode(strings.NewReader(`[{"name":"The Forest Hiker","startDates":["someday"]}]`), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "someday")

	_, err = Decode(strings.NewReader(`{`), time.Now())
	require.Error(t, err)
}
