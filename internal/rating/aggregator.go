// AngelaMos | 2026
// aggregator.go

package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelamos/tourways/internal/core"
)

const dirtySetKey = "ratings:dirty"

// defaultAverage is shown for tours with no reviews.
const defaultAverage = 4.5

// ReviewSource exposes the ground truth the aggregate is derived from.
type ReviewSource interface {
	AggregateByTour(ctx context.Context, tourID string) (int, float64, error)
}

// TourStats receives freshly computed aggregates.
type TourStats interface {
	UpdateRatingStats(
		ctx context.Context,
		id string,
		quantity int,
		average float64,
	) error
}

// Aggregator keeps each tour's ratings_quantity and ratings_average
// consistent with its reviews by full recomputation, never by
// incremental adjustment. A recomputation that fails leaves the tour
// flagged in a Redis set until the reconciler retries it.
type Aggregator struct {
	reviews ReviewSource
	tours   TourStats
	redis   *redis.Client
	logger  *slog.Logger
}

func NewAggregator(
	reviews ReviewSource,
	tours TourStats,
	redisClient *redis.Client,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		reviews: reviews,
		tours:   tours,
		redis:   redisClient,
		logger:  logger,
	}
}

// Recalculate recomputes the aggregate from scratch and writes it to
// the tour. On failure the tour is marked dirty so the reconciler
// picks it up later.
func (a *Aggregator) Recalculate(ctx context.Context, tourID string) error {
	if err := a.recalculate(ctx, tourID); err != nil {
		a.MarkDirty(ctx, tourID)
		return err
	}

	return nil
}

func (a *Aggregator) recalculate(ctx context.Context, tourID string) error {
	quantity, average, err := a.reviews.AggregateByTour(ctx, tourID)
	if err != nil {
		return fmt.Errorf("aggregate reviews: %w", err)
	}

	if quantity == 0 {
		average = defaultAverage
	}

	err = a.tours.UpdateRatingStats(ctx, tourID, quantity, average)
	if err != nil {
		// The tour may have been deleted between the review mutation
		// and this write; there is nothing left to reconcile.
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("write rating stats: %w", err)
	}

	return nil
}

// MarkDirty records a tour whose stored aggregate may be out of sync.
func (a *Aggregator) MarkDirty(ctx context.Context, tourID string) {
	if err := a.redis.SAdd(ctx, dirtySetKey, tourID).Err(); err != nil {
		a.logger.Error("failed to mark tour ratings dirty",
			"error", err,
			"tour_id", tourID,
		)
		return
	}

	a.logger.Warn("tour ratings marked dirty", "tour_id", tourID)
}

// DirtyCount reports how many tours are flagged for recomputation.
func (a *Aggregator) DirtyCount(ctx context.Context) (int64, error) {
	count, err := a.redis.SCard(ctx, dirtySetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count dirty set: %w", err)
	}
	return count, nil
}

// Reconcile drains the dirty set, recomputing each flagged tour. A
// tour is only removed from the set once its recomputation succeeds.
func (a *Aggregator) Reconcile(ctx context.Context) error {
	tourIDs, err := a.redis.SMembers(ctx, dirtySetKey).Result()
	if err != nil {
		return fmt.Errorf("read dirty set: %w", err)
	}

	for _, tourID := range tourIDs {
		if err := a.recalculate(ctx, tourID); err != nil {
			a.logger.Error("rating reconciliation failed",
				"error", err,
				"tour_id", tourID,
			)
			continue
		}

		if err := a.redis.SRem(ctx, dirtySetKey, tourID).Err(); err != nil {
			a.logger.Error("failed to clear dirty flag",
				"error", err,
				"tour_id", tourID,
			)
			continue
		}

		a.logger.Info("tour ratings reconciled", "tour_id", tourID)
	}

	return nil
}

// Run reconciles on a fixed interval until the context is cancelled.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("rating reconciler started", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("rating reconciler stopped")
			return
		case <-ticker.C:
			if err := a.Reconcile(ctx); err != nil {
				a.logger.Error("rating reconcile pass failed", "error", err)
			}
		}
	}
}
