// Package devdata loads and clears the sample tour collection used in development.
package devdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"natours/api/internal/ids"
	"natours/api/internal/models"
	"natours/api/internal/repository"
)

// startDateLayouts are tried in order; the sample files use a compact date,time form.
var startDateLayouts = []string{
	time.RFC3339,
	"2006-01-02,15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

type tourRecord struct {
	models.Tour
	StartDates []string `json:"startDates"`
}

// Decode reads a JSON array of tours and prepares each for insertion.
func Decode(r io.Reader, now time.Time) ([]models.Tour, error) {
	var records []tourRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode tours: %w", err)
	}

	tours := make([]models.Tour, 0, len(records))
	for i, rec := range records {
		tour := rec.Tour
		tour.ID = ids.New()
		tour.Version = 0
		tour.StartDates = make([]time.Time, 0, len(rec.StartDates))
		for _, raw := range rec.StartDates {
			ts, err := parseStartDate(raw)
			if err != nil {
				return nil, fmt.Errorf("tour %d (%s): %w", i, tour.Name, err)
			}
			tour.StartDates = append(tour.StartDates, ts)
		}

		models.ApplyTourDefaults(&tour, now)
		if err := models.PrepareTour(&tour); err != nil {
			return nil, fmt.Errorf("tour %d (%s): %w", i, tour.Name, err)
		}
		tours = append(tours, tour)
	}
	return tours, nil
}

func parseStartDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range startDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised start date %q", raw)
}

// Import inserts tours in one batch.
func Import(ctx context.Context, repo repository.TourRepository, tours []models.Tour) error {
	if err := repo.InsertMany(ctx, tours); err != nil {
		return fmt.Errorf("insert tours: %w", err)
	}
	return nil
}

// Delete removes every tour and reports how many were removed.
func Delete(ctx context.Context, repo repository.TourRepository) (int64, error) {
	n, err := repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete tours: %w", err)
	}
	return n, nil
}
