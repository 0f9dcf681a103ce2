package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"natours/api/internal/apperr"
	"natours/api/internal/query"
)

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

const (
	DefaultRatingsAverage = 4.5
	StatsMinRating        = 4.5
)

type Tour struct {
	ID              string      `json:"id"`
	Name            string      `json:"name" validate:"required,min=3,max=60"`
	Slug            string      `json:"slug"`
	Duration        int         `json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int         `json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      Difficulty  `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64     `json:"ratingsAverage" validate:"gte=1,lte=5"`
	RatingsQuantity int         `json:"ratingsQuantity" validate:"gte=0"`
	Price           float64     `json:"price" validate:"required,gt=0"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty" validate:"omitempty,gte=0"`
	Summary         string      `json:"summary" validate:"required"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"imageCover" validate:"required"`
	Images          []string    `json:"images"`
	CreatedAt       time.Time   `json:"createdAt"`
	StartDates      []time.Time `json:"startDates"`
	SecretTour      bool        `json:"secretTour"`
	Version         int         `json:"-"`
}

// DurationWeeks is the tour length in weeks, rounded to two decimals.
func (t Tour) DurationWeeks() float64 {
	return math.Round(float64(t.Duration)/7*100) / 100
}

// Document returns the tour keyed by query field names, with values typed the way
// TourSchema declares them.
func (t Tour) Document() map[string]any {
	images := t.Images
	if images == nil {
		images = []string{}
	}
	startDates := t.StartDates
	if startDates == nil {
		startDates = []time.Time{}
	}

	doc := map[string]any{
		"id":              t.ID,
		"name":            t.Name,
		"slug":            t.Slug,
		"duration":        int64(t.Duration),
		"maxGroupSize":    int64(t.MaxGroupSize),
		"difficulty":      string(t.Difficulty),
		"ratingsAverage":  t.RatingsAverage,
		"ratingsQuantity": int64(t.RatingsQuantity),
		"price":           t.Price,
		"summary":         t.Summary,
		"imageCover":      t.ImageCover,
		"images":          images,
		"createdAt":       t.CreatedAt,
		"startDates":      startDates,
		"secretTour":      t.SecretTour,
		"version":         int64(t.Version),
	}
	if t.PriceDiscount != nil {
		doc["priceDiscount"] = *t.PriceDiscount
	}
	if t.Description != "" {
		doc["description"] = t.Description
	}
	return doc
}

// TourView renders t narrowed to the projection. durationWeeks is derived, so it is
// present whenever duration is.
func TourView(t Tour, p query.Projection) map[string]any {
	out := p.Apply(t.Document())
	if _, ok := out["duration"]; ok {
		out["durationWeeks"] = t.DurationWeeks()
	}
	return out
}

var TourSchema = query.NewSchema("id", "version",
	query.Field{Name: "id", Type: query.String, Mongo: "_id"},
	query.Field{Name: "name", Type: query.String},
	query.Field{Name: "slug", Type: query.String},
	query.Field{Name: "duration", Type: query.Int},
	query.Field{Name: "maxGroupSize", Type: query.Int, Column: "max_group_size"},
	query.Field{Name: "difficulty", Type: query.String},
	query.Field{Name: "ratingsAverage", Type: query.Float, Column: "ratings_average"},
	query.Field{Name: "ratingsQuantity", Type: query.Int, Column: "ratings_quantity"},
	query.Field{Name: "price", Type: query.Float},
	query.Field{Name: "priceDiscount", Type: query.Float, Column: "price_discount"},
	query.Field{Name: "summary", Type: query.String},
	query.Field{Name: "description", Type: query.String},
	query.Field{Name: "imageCover", Type: query.String, Column: "image_cover"},
	query.Field{Name: "images", Type: query.StringArray},
	query.Field{Name: "createdAt", Type: query.Time, Column: "created_at"},
	query.Field{Name: "startDates", Type: query.TimeArray, Column: "start_dates"},
	query.Field{Name: "secretTour", Type: query.Bool, Column: "secret_tour"},
	query.Field{Name: "version", Type: query.Int, Mongo: "__v"},
)

func tourField(name string) query.Field {
	f, _ := TourSchema.Lookup(name)
	return f
}

// PublicTours is the default filter hiding secret tours from every read.
func PublicTours() query.Filter {
	return query.Filter{Field: tourField("secretTour"), Op: query.OpNe, Value: true}
}

// TopRated selects tours eligible for the statistics report.
func TopRated() query.Filter {
	return query.Filter{Field: tourField("ratingsAverage"), Op: query.OpGte, Value: StatsMinRating}
}

// ApplyTourDefaults fills the values a new tour gets when the client leaves them out.
func ApplyTourDefaults(t *Tour, now time.Time) {
	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now.UTC()
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	if t.StartDates == nil {
		t.StartDates = []time.Time{}
	}
}

// PrepareTour normalises and validates t before it is written. It runs on every
// create and update.
func PrepareTour(t *Tour) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Slug = slug.Make(t.Name)

	if err := Validate(t, "tour"); err != nil {
		return err
	}
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		return apperr.Validation(fmt.Sprintf("Discount price (%v) should be below regular price", *t.PriceDiscount))
	}
	return nil
}

// TourPatch carries the fields of a partial update; nil means unchanged.
type TourPatch struct {
	Name            *string      `json:"name"`
	Duration        *int         `json:"duration"`
	MaxGroupSize    *int         `json:"maxGroupSize"`
	Difficulty      *Difficulty  `json:"difficulty"`
	RatingsAverage  *float64     `json:"ratingsAverage"`
	RatingsQuantity *int         `json:"ratingsQuantity"`
	Price           *float64     `json:"price"`
	PriceDiscount   *float64     `json:"priceDiscount"`
	Summary         *string      `json:"summary"`
	Description     *string      `json:"description"`
	ImageCover      *string      `json:"imageCover"`
	Images          *[]string    `json:"images"`
	StartDates      *[]time.Time `json:"startDates"`
	SecretTour      *bool        `json:"secretTour"`
}

func (p TourPatch) Apply(t *Tour) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.MaxGroupSize != nil {
		t.MaxGroupSize = *p.MaxGroupSize
	}
	if p.Difficulty != nil {
		t.Difficulty = *p.Difficulty
	}
	if p.RatingsAverage != nil {
		t.RatingsAverage = *p.RatingsAverage
	}
	if p.RatingsQuantity != nil {
		t.RatingsQuantity = *p.RatingsQuantity
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.PriceDiscount != nil {
		discount := *p.PriceDiscount
		t.PriceDiscount = &discount
	}
	if p.Summary != nil {
		t.Summary = *p.Summary
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ImageCover != nil {
		t.ImageCover = *p.ImageCover
	}
	if p.Images != nil {
		t.Images = *p.Images
	}
	if p.StartDates != nil {
		t.StartDates = *p.StartDates
	}
	if p.SecretTour != nil {
		t.SecretTour = *p.SecretTour
	}
}

// TourStats is one row of the difficulty report.
type TourStats struct {
	Difficulty    string   `json:"difficulty"`
	AverageRating float64  `json:"averageRating"`
	Count         int      `json:"count"`
	AvgPrice      float64  `json:"avgPrice"`
	MaxPrice      float64  `json:"maxPrice"`
	NumRatings    int      `json:"numRatings"`
	Tours         []string `json:"tours"`
}

// MonthlyPlan is one month of the yearly start-date report.
type MonthlyPlan struct {
	Month      int      `json:"month"`
	ToursCount int      `json:"toursCount"`
	Names      []string `json:"names"`
}
