// AngelaMos | 2026
// repository.go

package tour

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/angelamos/tourways/internal/core"
)

const tourColumns = `id, name, slug, duration, max_group_size, difficulty,
       ratings_average, ratings_quantity, price, price_discount,
       summary, description, image_cover, secret_tour, start_date,
       created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, tour *Tour) error
	GetByID(ctx context.Context, id string, includeSecret bool) (*Tour, error)
	GetBySlug(ctx context.Context, slug string) (*Tour, error)
	Update(ctx context.Context, tour *Tour) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListToursParams) ([]Tour, int, error)
	UpdateRatingStats(
		ctx context.Context,
		id string,
		quantity int,
		average float64,
	) error
	Exists(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, tour *Tour) error {
	query := `
		INSERT INTO tours (id, name, slug, duration, max_group_size,
			difficulty, price, price_discount, summary, description,
			image_cover, secret_tour, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ratings_average, ratings_quantity, created_at, updated_at`

	err := r.db.GetContext(ctx, tour, query,
		tour.ID,
		tour.Name,
		tour.Slug,
		tour.Duration,
		tour.MaxGroupSize,
		tour.Difficulty,
		tour.Price,
		tour.PriceDiscount,
		tour.Summary,
		tour.Description,
		tour.ImageCover,
		tour.SecretTour,
		tour.StartDate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create tour: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create tour: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
	includeSecret bool,
) (*Tour, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tours
		WHERE id = $1`, tourColumns)
	if !includeSecret {
		query += " AND secret_tour = false"
	}

	var tour Tour
	err := r.db.GetContext(ctx, &tour, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tour: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}

	return &tour, nil
}

func (r *repository) GetBySlug(
	ctx context.Context,
	slug string,
) (*Tour, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tours
		WHERE slug = $1 AND secret_tour = false`, tourColumns)

	var tour Tour
	err := r.db.GetContext(ctx, &tour, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tour by slug: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tour by slug: %w", err)
	}

	return &tour, nil
}

func (r *repository) Update(ctx context.Context, tour *Tour) error {
	query := `
		UPDATE tours
		SET name = $2, slug = $3, duration = $4, max_group_size = $5,
		    difficulty = $6, price = $7, price_discount = $8,
		    summary = $9, description = $10, image_cover = $11,
		    secret_tour = $12, start_date = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &tour.UpdatedAt, query,
		tour.ID,
		tour.Name,
		tour.Slug,
		tour.Duration,
		tour.MaxGroupSize,
		tour.Difficulty,
		tour.Price,
		tour.PriceDiscount,
		tour.Summary,
		tour.Description,
		tour.ImageCover,
		tour.SecretTour,
		tour.StartDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update tour: %w", core.ErrNotFound)
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("update tour: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update tour: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete tour: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListToursParams,
) ([]Tour, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.IncludeSecret {
		conditions = append(conditions, "TRUE")
	} else {
		conditions = append(conditions, "secret_tour = false")
	}

	if params.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", argIdx))
		args = append(args, params.Difficulty)
		argIdx++
	}

	if params.MinPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIdx))
		args = append(args, params.MinPrice)
		argIdx++
	}

	if params.MaxPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIdx))
		args = append(args, params.MaxPrice)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM tours WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tours: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tours
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		tourColumns, whereClause, orderBy(params.Sort), argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var tours []Tour
	if err := r.db.SelectContext(ctx, &tours, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tours: %w", err)
	}

	return tours, total, nil
}

// UpdateRatingStats installs a freshly computed aggregate. Both
// columns move in one statement so readers never observe a count from
// one recalculation and an average from another.
func (r *repository) UpdateRatingStats(
	ctx context.Context,
	id string,
	quantity int,
	average float64,
) error {
	query := `
		UPDATE tours
		SET ratings_quantity = $2, ratings_average = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, quantity, average)
	if err != nil {
		return fmt.Errorf("update rating stats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rating stats: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update rating stats: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tours WHERE id = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check tour exists: %w", err)
	}

	return exists, nil
}

// orderBy maps a client sort key to a fixed ORDER BY clause. Unknown
// keys fall back to newest-first; nothing from the request is ever
// interpolated into SQL.
func orderBy(sort string) string {
	switch sort {
	case "price":
		return "price ASC"
	case "-price":
		return "price DESC"
	case "rating":
		return "ratings_average ASC"
	case "-rating":
		return "ratings_average DESC"
	case "name":
		return "name ASC"
	default:
		return "created_at DESC"
	}
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
