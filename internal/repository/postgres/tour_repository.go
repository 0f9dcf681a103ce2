package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

type tourRow struct {
	ID              string      `db:"id"`
	Name            string      `db:"name"`
	Slug            string      `db:"slug"`
	Duration        int         `db:"duration"`
	MaxGroupSize    int         `db:"max_group_size"`
	Difficulty      string      `db:"difficulty"`
	RatingsAverage  float64     `db:"ratings_average"`
	RatingsQuantity int         `db:"ratings_quantity"`
	Price           float64     `db:"price"`
	PriceDiscount   *float64    `db:"price_discount"`
	Summary         string      `db:"summary"`
	Description     string      `db:"description"`
	ImageCover      string      `db:"image_cover"`
	Images          []string    `db:"images"`
	CreatedAt       time.Time   `db:"created_at"`
	StartDates      []time.Time `db:"start_dates"`
	SecretTour      bool        `db:"secret_tour"`
	Version         int         `db:"version"`
}

func (r tourRow) model() models.Tour {
	return models.Tour{
		ID:              r.ID,
		Name:            r.Name,
		Slug:            r.Slug,
		Duration:        r.Duration,
		MaxGroupSize:    r.MaxGroupSize,
		Difficulty:      models.Difficulty(r.Difficulty),
		RatingsAverage:  r.RatingsAverage,
		RatingsQuantity: r.RatingsQuantity,
		Price:           r.Price,
		PriceDiscount:   r.PriceDiscount,
		Summary:         r.Summary,
		Description:     r.Description,
		ImageCover:      r.ImageCover,
		Images:          r.Images,
		CreatedAt:       r.CreatedAt,
		StartDates:      r.StartDates,
		SecretTour:      r.SecretTour,
		Version:         r.Version,
	}
}

const tourColumns = `id, name, slug, duration, max_group_size, difficulty, ratings_average, ratings_quantity,
	price, price_discount, summary, description, image_cover, images, created_at, start_dates, secret_tour, version`

type TourRepository struct {
	db DB
}

func NewTourRepository(db DB) *TourRepository {
	return &TourRepository{db: db}
}

var _ repository.TourRepository = (*TourRepository)(nil)

func (r *TourRepository) List(ctx context.Context, spec query.Spec) ([]models.Tour, error) {
	var b sqlBuilder
	where, err := b.where(spec.Filters)
	if err != nil {
		return nil, err
	}
	sql := "SELECT " + selectList(columns(spec.Projection, models.TourSchema)) +
		" FROM tours WHERE " + where + orderBy(spec.Sort) + b.paginate(spec)

	rows, err := r.db.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[tourRow])
	if err != nil {
		return nil, fmt.Errorf("scan tours: %w", err)
	}

	tours := make([]models.Tour, 0, len(found))
	for _, row := range found {
		tours = append(tours, row.model())
	}
	return tours, nil
}

func (r *TourRepository) GetByID(ctx context.Context, id string, filters ...query.Filter) (models.Tour, error) {
	if err := checkID(id); err != nil {
		return models.Tour{}, err
	}

	b := sqlBuilder{args: []any{id}}
	where, err := b.where(filters)
	if err != nil {
		return models.Tour{}, err
	}
	rows, err := r.db.Query(ctx, "SELECT "+tourColumns+" FROM tours WHERE id = $1 AND "+where, b.args...)
	if err != nil {
		return models.Tour{}, fmt.Errorf("get tour: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[tourRow])
	if err != nil {
		return models.Tour{}, mapError(err)
	}
	return row.model(), nil
}

func (r *TourRepository) Create(ctx context.Context, tour models.Tour) error {
	const query = `
		INSERT INTO tours (
			id, name, slug, duration, max_group_size, difficulty, ratings_average, ratings_quantity,
			price, price_discount, summary, description, image_cover, images, created_at, start_dates,
			secret_tour, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 0
		)
	`

	_, err := r.db.Exec(ctx, query,
		tour.ID,
		tour.Name,
		tour.Slug,
		tour.Duration,
		tour.MaxGroupSize,
		string(tour.Difficulty),
		tour.RatingsAverage,
		tour.RatingsQuantity,
		tour.Price,
		tour.PriceDiscount,
		tour.Summary,
		tour.Description,
		tour.ImageCover,
		nonNilStrings(tour.Images),
		tour.CreatedAt,
		nonNilTimes(tour.StartDates),
		tour.SecretTour,
	)
	return mapError(err)
}

func (r *TourRepository) Update(ctx context.Context, tour models.Tour) (models.Tour, error) {
	if err := checkID(tour.ID); err != nil {
		return models.Tour{}, err
	}

	const query = `
		UPDATE tours SET
			name = $2, slug = $3, duration = $4, max_group_size = $5, difficulty = $6,
			ratings_average = $7, ratings_quantity = $8, price = $9, price_discount = $10,
			summary = $11, description = $12, image_cover = $13, images = $14, start_dates = $15,
			secret_tour = $16, version = version + 1
		WHERE id = $1
		RETURNING version, created_at
	`

	err := r.db.QueryRow(ctx, query,
		tour.ID,
		tour.Name,
		tour.Slug,
		tour.Duration,
		tour.MaxGroupSize,
		string(tour.Difficulty),
		tour.RatingsAverage,
		tour.RatingsQuantity,
		tour.Price,
		tour.PriceDiscount,
		tour.Summary,
		tour.Description,
		tour.ImageCover,
		nonNilStrings(tour.Images),
		nonNilTimes(tour.StartDates),
		tour.SecretTour,
	).Scan(&tour.Version, &tour.CreatedAt)
	if err != nil {
		return models.Tour{}, mapError(err)
	}
	return tour, nil
}

func (r *TourRepository) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type statsRow struct {
	Difficulty    string   `db:"difficulty"`
	AverageRating float64  `db:"average_rating"`
	Count         int64    `db:"count"`
	AvgPrice      float64  `db:"avg_price"`
	MaxPrice      float64  `db:"max_price"`
	NumRatings    int64    `db:"num_ratings"`
	Tours         []string `db:"tours"`
}

func (r *TourRepository) Stats(ctx context.Context, filters []query.Filter) ([]models.TourStats, error) {
	var b sqlBuilder
	where, err := b.where(filters)
	if err != nil {
		return nil, err
	}
	sql := `
		SELECT UPPER(difficulty) AS difficulty,
		       AVG(ratings_average) AS average_rating,
		       COUNT(*) AS count,
		       AVG(price) AS avg_price,
		       MAX(price) AS max_price,
		       COALESCE(SUM(ratings_quantity), 0)::bigint AS num_ratings,
		       array_agg(name ORDER BY name) AS tours
		FROM tours
		WHERE ` + where + `
		GROUP BY UPPER(difficulty)
		ORDER BY 1 DESC`

	rows, err := r.db.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[statsRow])
	if err != nil {
		return nil, fmt.Errorf("scan tour stats: %w", err)
	}

	stats := make([]models.TourStats, 0, len(found))
	for _, row := range found {
		stats = append(stats, models.TourStats{
			Difficulty:    row.Difficulty,
			AverageRating: row.AverageRating,
			Count:         int(row.Count),
			AvgPrice:      row.AvgPrice,
			MaxPrice:      row.MaxPrice,
			NumRatings:    int(row.NumRatings),
			Tours:         row.Tours,
		})
	}
	return stats, nil
}

type monthRow struct {
	Month      int32    `db:"month"`
	ToursCount int64    `db:"tours_count"`
	Names      []string `db:"names"`
}

func (r *TourRepository) MonthlyPlan(ctx context.Context, year int, filters []query.Filter) ([]models.MonthlyPlan, error) {
	start, end := repository.YearBounds(year)
	b := sqlBuilder{args: []any{start, end}}
	where, err := b.where(filters)
	if err != nil {
		return nil, err
	}
	sql := `
		SELECT EXTRACT(MONTH FROM d AT TIME ZONE 'UTC')::int AS month,
		       COUNT(*) AS tours_count,
		       array_agg(name ORDER BY name) AS names
		FROM tours CROSS JOIN LATERAL unnest(start_dates) AS d
		WHERE d >= $1 AND d < $2 AND ` + where + `
		GROUP BY 1
		ORDER BY 1`

	rows, err := r.db.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[monthRow])
	if err != nil {
		return nil, fmt.Errorf("scan monthly plan: %w", err)
	}

	plan := make([]models.MonthlyPlan, 0, len(found))
	for _, row := range found {
		plan = append(plan, models.MonthlyPlan{Month: int(row.Month), ToursCount: int(row.ToursCount), Names: row.Names})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].Month < plan[j].Month })
	return plan, nil
}

func (r *TourRepository) InsertMany(ctx context.Context, tours []models.Tour) error {
	for _, tour := range tours {
		if err := r.Create(ctx, tour); err != nil {
			return fmt.Errorf("insert %q: %w", tour.Name, err)
		}
	}
	return nil
}

func (r *TourRepository) DeleteAll(ctx context.Context) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tours`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilTimes(v []time.Time) []time.Time {
	if v == nil {
		return []time.Time{}
	}
	return v
}
