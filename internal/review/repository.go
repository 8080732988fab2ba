// AngelaMos | 2026
// repository.go

package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/angelamos/tourways/internal/core"
)

const reviewColumns = `id, tour_id, user_id, review_text, rating,
       created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, review *Review) error
	GetByID(ctx context.Context, id string) (*Review, error)
	Update(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id string) error
	ListByTour(
		ctx context.Context,
		tourID string,
		params ListReviewsParams,
	) ([]Review, int, error)
	AggregateByTour(ctx context.Context, tourID string) (int, float64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, review *Review) error {
	query := `
		INSERT INTO reviews (id, tour_id, user_id, review_text, rating)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, review, query,
		review.ID,
		review.TourID,
		review.UserID,
		review.Text,
		review.Rating,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create review: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create review: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Review, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE id = $1`, reviewColumns)

	var review Review
	err := r.db.GetContext(ctx, &review, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get review: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	return &review, nil
}

// Update touches only the mutable fields; the tour and author bindings
// are fixed at creation.
func (r *repository) Update(ctx context.Context, review *Review) error {
	query := `
		UPDATE reviews
		SET review_text = $2, rating = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &review.UpdatedAt, query,
		review.ID,
		review.Text,
		review.Rating,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update review: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete review: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListByTour(
	ctx context.Context,
	tourID string,
	params ListReviewsParams,
) ([]Review, int, error) {
	params.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM reviews WHERE tour_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, tourID); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE tour_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, reviewColumns)

	var reviews []Review
	err := r.db.SelectContext(
		ctx,
		&reviews,
		query,
		tourID,
		params.PageSize,
		params.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, total, nil
}

// AggregateByTour computes the review count and mean rating straight
// from the rows, in one statement.
func (r *repository) AggregateByTour(
	ctx context.Context,
	tourID string,
) (int, float64, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(rating), 0)
		FROM reviews
		WHERE tour_id = $1`

	var count int
	var average float64

	row := r.db.QueryRowxContext(ctx, query, tourID)
	if err := row.Scan(&count, &average); err != nil {
		return 0, 0, fmt.Errorf("aggregate reviews: %w", err)
	}

	return count, average, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
