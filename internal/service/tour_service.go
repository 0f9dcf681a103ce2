package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"natours/api/internal/apperr"
	"natours/api/internal/cache"
	"natours/api/internal/ids"
	"natours/api/internal/media/sniffer"
	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

const msgNoTour = "No tour found with that ID"

// Aliases are canned queries exposed as their own routes. Their parameters override
// whatever the client sent for the same keys.
var Aliases = map[string]url.Values{
	"top-5-cheap": {
		"limit":  {"5"},
		"sort":   {"-ratingsAverage,price"},
		"fields": {"name,price,ratingsAverage,summary,difficulty"},
	},
	"top-5-extravagant": {
		"limit": {"5"},
		"sort":  {"-price,-ratingsAverage"},
	},
}

// WithAlias returns params with the named alias applied.
func WithAlias(params url.Values, alias string) url.Values {
	out := url.Values{}
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range Aliases[alias] {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// CoverStore persists uploaded cover images and returns their public URL.
type CoverStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

type TourService struct {
	tours  repository.TourRepository
	stats  *cache.StatsCache
	covers CoverStore
	log    zerolog.Logger
	now    func() time.Time
}

// NewTourService wires the tour use cases. stats and covers may be nil when redis or
// object storage are disabled.
func NewTourService(tours repository.TourRepository, stats *cache.StatsCache, covers CoverStore, log zerolog.Logger, now func() time.Time) *TourService {
	if now == nil {
		now = time.Now
	}
	return &TourService{tours: tours, stats: stats, covers: covers, log: log, now: now}
}

// DefaultProjection is the projection single-tour responses use.
func DefaultProjection() query.Projection {
	return query.All(models.TourSchema).Projection
}

func (s *TourService) List(ctx context.Context, params url.Values) ([]map[string]any, error) {
	spec, err := query.Build(models.TourSchema, params)
	if err != nil {
		return nil, err
	}

	tours, err := s.tours.List(ctx, spec.With(models.PublicTours()))
	if err != nil {
		return nil, apperr.Internal("list tours", err)
	}
	views := make([]map[string]any, 0, len(tours))
	for _, t := range tours {
		views = append(views, models.TourView(t, spec.Projection))
	}
	return views, nil
}

func (s *TourService) Get(ctx context.Context, id string) (models.Tour, error) {
	tour, err := s.tours.GetByID(ctx, id, models.PublicTours())
	if err != nil {
		return models.Tour{}, storeError(err, msgNoTour)
	}
	return tour, nil
}

func (s *TourService) Create(ctx context.Context, tour models.Tour) (models.Tour, error) {
	tour.ID = ids.New()
	tour.Version = 0
	tour.CreatedAt = time.Time{}
	models.ApplyTourDefaults(&tour, s.now())
	if err := models.PrepareTour(&tour); err != nil {
		return models.Tour{}, err
	}

	if err := s.tours.Create(ctx, tour); err != nil {
		return models.Tour{}, tourWriteError(err)
	}
	s.invalidate(ctx)
	return tour, nil
}

func (s *TourService) Update(ctx context.Context, id string, patch models.TourPatch) (models.Tour, error) {
	tour, err := s.Get(ctx, id)
	if err != nil {
		return models.Tour{}, err
	}
	patch.Apply(&tour)
	return s.save(ctx, tour)
}

func (s *TourService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.tours.Delete(ctx, id); err != nil {
		return storeError(err, msgNoTour)
	}
	s.invalidate(ctx)
	return nil
}

// Stats groups top rated tours by difficulty.
func (s *TourService) Stats(ctx context.Context) ([]models.TourStats, error) {
	const key = "tour-stats"
	var stats []models.TourStats
	if s.cached(ctx, key, &stats) {
		return stats, nil
	}

	stats, err := s.tours.Stats(ctx, []query.Filter{models.PublicTours(), models.TopRated()})
	if err != nil {
		return nil, apperr.Internal("tour stats", err)
	}
	s.store(ctx, key, stats)
	return stats, nil
}

// MonthlyPlan counts tour starts per month of year.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	if year < 1 || year > 9999 {
		return nil, apperr.Validation(fmt.Sprintf("Invalid year: %d", year))
	}

	key := fmt.Sprintf("monthly-plan:%d", year)
	var plan []models.MonthlyPlan
	if s.cached(ctx, key, &plan) {
		return plan, nil
	}

	plan, err := s.tours.MonthlyPlan(ctx, year, []query.Filter{models.PublicTours()})
	if err != nil {
		return nil, apperr.Internal("monthly plan", err)
	}
	s.store(ctx, key, plan)
	return plan, nil
}

// SetCover stores an uploaded image as the tour's cover. The content type is taken
// from the bytes, not from the client.
func (s *TourService) SetCover(ctx context.Context, id string, r io.Reader, size int64) (models.Tour, error) {
	if s.covers == nil {
		return models.Tour{}, apperr.Upstream("Image uploads are not available", errors.New("object storage disabled"))
	}

	tour, err := s.Get(ctx, id)
	if err != nil {
		return models.Tour{}, err
	}

	media, body, err := sniffer.Detect(r)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return models.Tour{}, apperr.Validation("Not an image! Please upload only images.")
		}
		return models.Tour{}, apperr.Internal("read upload", err)
	}

	key := fmt.Sprintf("tours/%s/cover-%s.%s", tour.ID, ids.New(), media.Extension())
	link, err := s.covers.Put(ctx, key, body, size, media.MIME)
	if err != nil {
		return models.Tour{}, apperr.Upstream("Could not store the image", err)
	}

	tour.ImageCover = link
	s.log.Info().Str("tour_id", tour.ID).Str("object", key).Msg("tour cover uploaded")
	return s.save(ctx, tour)
}

func (s *TourService) save(ctx context.Context, tour models.Tour) (models.Tour, error) {
	if err := models.PrepareTour(&tour); err != nil {
		return models.Tour{}, err
	}
	updated, err := s.tours.Update(ctx, tour)
	if err != nil {
		return models.Tour{}, tourWriteError(err)
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *TourService) cached(ctx context.Context, key string, dest any) bool {
	ok, err := s.stats.Get(ctx, key, dest)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		return false
	}
	return ok
}

func (s *TourService) store(ctx context.Context, key string, value any) {
	if err := s.stats.Set(ctx, key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
}

func (s *TourService) invalidate(ctx context.Context) {
	if err := s.stats.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}

func tourWriteError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Conflict("A tour with this name already exists. Please use another value!")
	}
	return storeError(err, msgNoTour)
}
