// AngelaMos | 2026
// service.go

package tour

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelamos/tourways/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(
	ctx context.Context,
	req CreateTourRequest,
) (*Tour, error) {
	if req.PriceDiscount != nil && *req.PriceDiscount >= req.Price {
		return nil, fmt.Errorf(
			"create tour: discount must be below regular price: %w",
			core.ErrInvalidInput,
		)
	}

	tour := &Tour{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Slug:          Slugify(req.Name),
		Duration:      req.Duration,
		MaxGroupSize:  req.MaxGroupSize,
		Difficulty:    req.Difficulty,
		Price:         req.Price,
		PriceDiscount: req.PriceDiscount,
		Summary:       req.Summary,
		Description:   req.Description,
		ImageCover:    req.ImageCover,
		SecretTour:    req.SecretTour,
		StartDate:     req.StartDate,
	}

	if err := s.repo.Create(ctx, tour); err != nil {
		return nil, err
	}

	return tour, nil
}

// Get returns a tour by ID. Secret tours are only visible to staff.
func (s *Service) Get(
	ctx context.Context,
	id string,
	includeSecret bool,
) (*Tour, error) {
	return s.repo.GetByID(ctx, id, includeSecret)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Tour, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) Update(
	ctx context.Context,
	id string,
	req UpdateTourRequest,
) (*Tour, error) {
	tour, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != tour.Name {
		tour.Name = *req.Name
		// The slug follows the name; it never changes otherwise.
		tour.Slug = Slugify(*req.Name)
	}
	if req.Duration != nil {
		tour.Duration = *req.Duration
	}
	if req.MaxGroupSize != nil {
		tour.MaxGroupSize = *req.MaxGroupSize
	}
	if req.Difficulty != nil {
		tour.Difficulty = *req.Difficulty
	}
	if req.Price != nil {
		tour.Price = *req.Price
	}
	if req.PriceDiscount != nil {
		tour.PriceDiscount = req.PriceDiscount
	}
	if req.Summary != nil {
		tour.Summary = *req.Summary
	}
	if req.Description != nil {
		tour.Description = *req.Description
	}
	if req.ImageCover != nil {
		tour.ImageCover = *req.ImageCover
	}
	if req.SecretTour != nil {
		tour.SecretTour = *req.SecretTour
	}
	if req.StartDate != nil {
		tour.StartDate = req.StartDate
	}

	if tour.PriceDiscount != nil && *tour.PriceDiscount >= tour.Price {
		return nil, fmt.Errorf(
			"update tour: discount must be below regular price: %w",
			core.ErrInvalidInput,
		)
	}

	if err := s.repo.Update(ctx, tour); err != nil {
		return nil, err
	}

	return tour, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(
	ctx context.Context,
	params ListToursParams,
) ([]Tour, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Slugify lowercases the name and collapses every non-alphanumeric
// run into a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
