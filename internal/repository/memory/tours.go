package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

type TourRepository struct {
	mu    sync.RWMutex
	tours map[string]models.Tour
}

func NewTourRepository() *TourRepository {
	return &TourRepository{tours: make(map[string]models.Tour)}
}

var _ repository.TourRepository = (*TourRepository)(nil)

func (r *TourRepository) List(_ context.Context, spec query.Spec) ([]models.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := r.matching(spec.Filters)
	sortDocs(docs, spec.Sort)

	start, end := page(len(docs), spec)
	out := make([]models.Tour, 0, end-start)
	for _, doc := range docs[start:end] {
		out = append(out, cloneTour(r.tours[doc["id"].(string)]))
	}
	return out, nil
}

func (r *TourRepository) GetByID(_ context.Context, id string, filters ...query.Filter) (models.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tour, ok := r.tours[id]
	if !ok || !matches(tour.Document(), filters) {
		return models.Tour{}, repository.ErrNotFound
	}
	return cloneTour(tour), nil
}

func (r *TourRepository) Create(_ context.Context, tour models.Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insert(tour)
}

func (r *TourRepository) Update(_ context.Context, tour models.Tour) (models.Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tours[tour.ID]
	if !ok {
		return models.Tour{}, repository.ErrNotFound
	}
	if r.nameTaken(tour.Name, tour.ID) {
		return models.Tour{}, repository.ErrDuplicate
	}
	tour.CreatedAt = current.CreatedAt
	tour.Version = current.Version + 1
	r.tours[tour.ID] = cloneTour(tour)
	return cloneTour(tour), nil
}

func (r *TourRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tours[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tours, id)
	return nil
}

func (r *TourRepository) Stats(_ context.Context, filters []query.Filter) ([]models.TourStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type acc struct {
		stats       models.TourStats
		ratingTotal float64
		priceTotal  float64
	}
	groups := make(map[string]*acc)
	for _, doc := range r.matching(filters) {
		tour := r.tours[doc["id"].(string)]
		key := strings.ToUpper(string(tour.Difficulty))
		g, ok := groups[key]
		if !ok {
			g = &acc{stats: models.TourStats{Difficulty: key, MaxPrice: tour.Price, Tours: []string{}}}
			groups[key] = g
		}
		g.stats.Count++
		g.stats.NumRatings += tour.RatingsQuantity
		g.stats.Tours = append(g.stats.Tours, tour.Name)
		if tour.Price > g.stats.MaxPrice {
			g.stats.MaxPrice = tour.Price
		}
		g.ratingTotal += tour.RatingsAverage
		g.priceTotal += tour.Price
	}

	out := make([]models.TourStats, 0, len(groups))
	for _, g := range groups {
		g.stats.AverageRating = g.ratingTotal / float64(g.stats.Count)
		g.stats.AvgPrice = g.priceTotal / float64(g.stats.Count)
		sort.Strings(g.stats.Tours)
		out = append(out, g.stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Difficulty > out[j].Difficulty })
	return out, nil
}

func (r *TourRepository) MonthlyPlan(_ context.Context, year int, filters []query.Filter) ([]models.MonthlyPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start, end := repository.YearBounds(year)
	months := make(map[int]*models.MonthlyPlan)
	for _, doc := range r.matching(filters) {
		tour := r.tours[doc["id"].(string)]
		for _, d := range tour.StartDates {
			d = d.UTC()
			if d.Before(start) || !d.Before(end) {
				continue
			}
			m := int(d.Month())
			plan, ok := months[m]
			if !ok {
				plan = &models.MonthlyPlan{Month: m, Names: []string{}}
				months[m] = plan
			}
			plan.ToursCount++
			plan.Names = append(plan.Names, tour.Name)
		}
	}

	out := make([]models.MonthlyPlan, 0, len(months))
	for _, plan := range months {
		sort.Strings(plan.Names)
		out = append(out, *plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r *TourRepository) InsertMany(_ context.Context, tours []models.Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tour := range tours {
		if err := r.insert(tour); err != nil {
			return err
		}
	}
	return nil
}

func (r *TourRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.tours))
	r.tours = make(map[string]models.Tour)
	return n, nil
}

// insert expects the caller to hold the write lock.
func (r *TourRepository) insert(tour models.Tour) error {
	if _, ok := r.tours[tour.ID]; ok {
		return repository.ErrDuplicate
	}
	if r.nameTaken(tour.Name, tour.ID) {
		return repository.ErrDuplicate
	}
	r.tours[tour.ID] = cloneTour(tour)
	return nil
}

func (r *TourRepository) nameTaken(name, exceptID string) bool {
	for id, t := range r.tours {
		if id != exceptID && t.Name == name {
			return true
		}
	}
	return false
}

func (r *TourRepository) matching(filters []query.Filter) []map[string]any {
	docs := make([]map[string]any, 0, len(r.tours))
	for _, tour := range r.tours {
		doc := tour.Document()
		if matches(doc, filters) {
			docs = append(docs, doc)
		}
	}
	return docs
}

func cloneTour(t models.Tour) models.Tour {
	if t.PriceDiscount != nil {
		d := *t.PriceDiscount
		t.PriceDiscount = &d
	}
	t.Images = append([]string{}, t.Images...)
	t.StartDates = append([]time.Time{}, t.StartDates...)
	return t
}
