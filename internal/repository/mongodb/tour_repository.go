package mongodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

type tourDocument struct {
	ID              string      `bson:"_id"`
	Name            string      `bson:"name"`
	Slug            string      `bson:"slug"`
	Duration        int         `bson:"duration"`
	MaxGroupSize    int         `bson:"maxGroupSize"`
	Difficulty      string      `bson:"difficulty"`
	RatingsAverage  float64     `bson:"ratingsAverage"`
	RatingsQuantity int         `bson:"ratingsQuantity"`
	Price           float64     `bson:"price"`
	PriceDiscount   *float64    `bson:"priceDiscount,omitempty"`
	Summary         string      `bson:"summary"`
	Description     string      `bson:"description,omitempty"`
	ImageCover      string      `bson:"imageCover"`
	Images          []string    `bson:"images"`
	CreatedAt       time.Time   `bson:"createdAt"`
	StartDates      []time.Time `bson:"startDates"`
	SecretTour      bool        `bson:"secretTour"`
	Version         int         `bson:"__v"`
}

func newTourDocument(t models.Tour) tourDocument {
	images := t.Images
	if images == nil {
		images = []string{}
	}
	startDates := t.StartDates
	if startDates == nil {
		startDates = []time.Time{}
	}
	return tourDocument{
		ID:              t.ID,
		Name:            t.Name,
		Slug:            t.Slug,
		Duration:        t.Duration,
		MaxGroupSize:    t.MaxGroupSize,
		Difficulty:      string(t.Difficulty),
		RatingsAverage:  t.RatingsAverage,
		RatingsQuantity: t.RatingsQuantity,
		Price:           t.Price,
		PriceDiscount:   t.PriceDiscount,
		Summary:         t.Summary,
		Description:     t.Description,
		ImageCover:      t.ImageCover,
		Images:          images,
		CreatedAt:       t.CreatedAt,
		StartDates:      startDates,
		SecretTour:      t.SecretTour,
		Version:         t.Version,
	}
}

func (d tourDocument) model() models.Tour {
	startDates := make([]time.Time, 0, len(d.StartDates))
	for _, sd := range d.StartDates {
		startDates = append(startDates, sd.UTC())
	}
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return models.Tour{
		ID:              d.ID,
		Name:            d.Name,
		Slug:            d.Slug,
		Duration:        d.Duration,
		MaxGroupSize:    d.MaxGroupSize,
		Difficulty:      models.Difficulty(d.Difficulty),
		RatingsAverage:  d.RatingsAverage,
		RatingsQuantity: d.RatingsQuantity,
		Price:           d.Price,
		PriceDiscount:   d.PriceDiscount,
		Summary:         d.Summary,
		Description:     d.Description,
		ImageCover:      d.ImageCover,
		Images:          images,
		CreatedAt:       d.CreatedAt.UTC(),
		StartDates:      startDates,
		SecretTour:      d.SecretTour,
		Version:         d.Version,
	}
}

type TourRepository struct {
	coll *mongo.Collection
}

func NewTourRepository(db *mongo.Database) *TourRepository {
	return &TourRepository{coll: db.Collection(toursCollection)}
}

var _ repository.TourRepository = (*TourRepository)(nil)

func (r *TourRepository) List(ctx context.Context, spec query.Spec) ([]models.Tour, error) {
	cursor, err := r.coll.Find(ctx, filterDoc(spec.Filters), findOptions(spec))
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}

	var docs []tourDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tours: %w", err)
	}
	tours := make([]models.Tour, 0, len(docs))
	for _, d := range docs {
		tours = append(tours, d.model())
	}
	return tours, nil
}

func (r *TourRepository) GetByID(ctx context.Context, id string, filters ...query.Filter) (models.Tour, error) {
	var doc tourDocument
	if err := r.coll.FindOne(ctx, byID(id, filterDoc(filters))).Decode(&doc); err != nil {
		return models.Tour{}, mapError(err)
	}
	return doc.model(), nil
}

func (r *TourRepository) Create(ctx context.Context, tour models.Tour) error {
	tour.Version = 0
	_, err := r.coll.InsertOne(ctx, newTourDocument(tour))
	return mapError(err)
}

func (r *TourRepository) Update(ctx context.Context, tour models.Tour) (models.Tour, error) {
	doc := newTourDocument(tour)
	set := bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "slug", Value: doc.Slug},
		{Key: "duration", Value: doc.Duration},
		{Key: "maxGroupSize", Value: doc.MaxGroupSize},
		{Key: "difficulty", Value: doc.Difficulty},
		{Key: "ratingsAverage", Value: doc.RatingsAverage},
		{Key: "ratingsQuantity", Value: doc.RatingsQuantity},
		{Key: "price", Value: doc.Price},
		{Key: "summary", Value: doc.Summary},
		{Key: "description", Value: doc.Description},
		{Key: "imageCover", Value: doc.ImageCover},
		{Key: "images", Value: doc.Images},
		{Key: "startDates", Value: doc.StartDates},
		{Key: "secretTour", Value: doc.SecretTour},
	}
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: "__v", Value: 1}}},
	}
	if doc.PriceDiscount != nil {
		set = append(set, bson.E{Key: "priceDiscount", Value: *doc.PriceDiscount})
		update[0].Value = set
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "priceDiscount", Value: ""}}})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated tourDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: tour.ID}}, update, opts).Decode(&updated); err != nil {
		return models.Tour{}, mapError(err)
	}
	return updated.model(), nil
}

func (r *TourRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type statsResult struct {
	Difficulty    string   `bson:"_id"`
	AverageRating float64  `bson:"avgRating"`
	Count         int      `bson:"numTours"`
	AvgPrice      float64  `bson:"avgPrice"`
	MaxPrice      float64  `bson:"maxPrice"`
	NumRatings    int      `bson:"numRatings"`
	Tours         []string `bson:"tours"`
}

func statsPipeline(filters []query.Filter) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filterDoc(filters)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$toUpper", Value: "$difficulty"}}},
			{Key: "numTours", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "numRatings", Value: bson.D{{Key: "$sum", Value: "$ratingsQuantity"}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$ratingsAverage"}}},
			{Key: "avgPrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
			{Key: "minPrice", Value: bson.D{{Key: "$min", Value: "$price"}}},
			{Key: "maxPrice", Value: bson.D{{Key: "$max", Value: "$price"}}},
			{Key: "tours", Value: bson.D{{Key: "$push", Value: "$name"}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "minPrice", Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
	}
}

func (r *TourRepository) Stats(ctx context.Context, filters []query.Filter) ([]models.TourStats, error) {
	cursor, err := r.coll.Aggregate(ctx, statsPipeline(filters))
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}

	var results []statsResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode tour stats: %w", err)
	}
	stats := make([]models.TourStats, 0, len(results))
	for _, res := range results {
		sort.Strings(res.Tours)
		stats = append(stats, models.TourStats(res))
	}
	return stats, nil
}

type monthResult struct {
	Month      int      `bson:"_id"`
	ToursCount int      `bson:"toursCount"`
	Names      []string `bson:"names"`
}

func monthlyPlanPipeline(year int, filters []query.Filter) mongo.Pipeline {
	start, end := repository.YearBounds(year)
	return mongo.Pipeline{
		{{Key: "$match", Value: filterDoc(filters)}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.D{{Key: "startDates", Value: bson.D{
			{Key: "$gte", Value: start},
			{Key: "$lt", Value: end},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$month", Value: "$startDates"}}},
			{Key: "toursCount", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "names", Value: bson.D{{Key: "$push", Value: "$name"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func (r *TourRepository) MonthlyPlan(ctx context.Context, year int, filters []query.Filter) ([]models.MonthlyPlan, error) {
	cursor, err := r.coll.Aggregate(ctx, monthlyPlanPipeline(year, filters))
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}

	var results []monthResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode monthly plan: %w", err)
	}
	plan := make([]models.MonthlyPlan, 0, len(results))
	for _, res := range results {
		sort.Strings(res.Names)
		plan = append(plan, models.MonthlyPlan(res))
	}
	return plan, nil
}

func (r *TourRepository) InsertMany(ctx context.Context, tours []models.Tour) error {
	if len(tours) == 0 {
		return nil
	}
	docs := make([]tourDocument, 0, len(tours))
	for _, t := range tours {
		docs = append(docs, newTourDocument(t))
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return mapError(err)
}

func (r *TourRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
