// AngelaMos | 2026
// service.go

package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/angelamos/tourways/internal/core"
	"github.com/angelamos/tourways/internal/user"
)

const refreshTimeout = 10 * time.Second

// TourChecker verifies the target tour exists before a review is
// accepted.
type TourChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// RatingAggregator recomputes a tour's rating aggregate after a
// review mutation.
type RatingAggregator interface {
	Recalculate(ctx context.Context, tourID string) error
}

type Service struct {
	repo       Repository
	tours      TourChecker
	aggregator RatingAggregator
	logger     *slog.Logger
}

func NewService(
	repo Repository,
	tours TourChecker,
	aggregator RatingAggregator,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		tours:      tours,
		aggregator: aggregator,
		logger:     logger,
	}
}

func (s *Service) Create(
	ctx context.Context,
	tourID, userID string,
	req CreateReviewRequest,
) (*Review, error) {
	exists, err := s.tours.Exists(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("check tour: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("create review: tour: %w", core.ErrNotFound)
	}

	review := &Review{
		ID:     uuid.New().String(),
		TourID: tourID,
		UserID: userID,
		Text:   req.Text,
		Rating: req.Rating,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}

	s.refreshRatings(tourID)

	return review, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Review, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(
	ctx context.Context,
	reviewID, requesterID, requesterRole string,
	req UpdateReviewRequest,
) (*Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if err := canModify(review, requesterID, requesterRole); err != nil {
		return nil, err
	}

	if req.Text != nil {
		review.Text = *req.Text
	}
	if req.Rating != nil {
		review.Rating = *req.Rating
	}

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, err
	}

	s.refreshRatings(review.TourID)

	return review, nil
}

func (s *Service) Delete(
	ctx context.Context,
	reviewID, requesterID, requesterRole string,
) error {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}

	if err := canModify(review, requesterID, requesterRole); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return err
	}

	s.refreshRatings(review.TourID)

	return nil
}

func (s *Service) ListByTour(
	ctx context.Context,
	tourID string,
	params ListReviewsParams,
) ([]Review, int, error) {
	return s.repo.ListByTour(ctx, tourID, params)
}

// canModify allows the author and admins; nobody else.
func canModify(review *Review, requesterID, requesterRole string) error {
	if review.UserID == requesterID || requesterRole == user.RoleAdmin {
		return nil
	}
	return fmt.Errorf("modify review: %w", core.ErrForbidden)
}

// refreshRatings runs the aggregate recomputation on a context
// detached from the request, so a client hanging up mid-response
// cannot strand the tour's stored aggregate. Failures are logged; the
// aggregator flags the tour for the reconciler.
func (s *Service) refreshRatings(tourID string) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := s.aggregator.Recalculate(ctx, tourID); err != nil {
		s.logger.Error("rating recalculation failed",
			"error", err,
			"tour_id", tourID,
		)
	}
}
