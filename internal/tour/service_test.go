// AngelaMos | 2026
// service_test.go

package tour

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/tourways/internal/core"
)

type fakeTourRepo struct {
	tours map[string]*Tour
}

func newFakeTourRepo() *fakeTourRepo {
	return &fakeTourRepo{tours: make(map[string]*Tour)}
}

func (f *fakeTourRepo) Create(ctx context.Context, tour *Tour) error {
	for _, existing := range f.tours {
		if existing.Name == tour.Name || existing.Slug == tour.Slug {
			return fmt.Errorf("create tour: %w", core.ErrDuplicateKey)
		}
	}
	copied := *tour
	copied.RatingsAverage = DefaultRatingsAverage
	f.tours[tour.ID] = &copied
	tour.RatingsAverage = DefaultRatingsAverage
	return nil
}

func (f *fakeTourRepo) GetByID(
	ctx context.Context,
	id string,
	includeSecret bool,
) (*Tour, error) {
	tour, ok := f.tours[id]
	if !ok || (tour.SecretTour && !includeSecret) {
		return nil, fmt.Errorf("get tour: %w", core.ErrNotFound)
	}
	copied := *tour
	return &copied, nil
}

func (f *fakeTourRepo) GetBySlug(
	ctx context.Context,
	slug string,
) (*Tour, error) {
	for _, tour := range f.tours {
		if tour.Slug == slug && !tour.SecretTour {
			copied := *tour
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get tour by slug: %w", core.ErrNotFound)
}

func (f *fakeTourRepo) Update(ctx context.Context, tour *Tour) error {
	if _, ok := f.tours[tour.ID]; !ok {
		return fmt.Errorf("update tour: %w", core.ErrNotFound)
	}
	copied := *tour
	f.tours[tour.ID] = &copied
	return nil
}

func (f *fakeTourRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.tours[id]; !ok {
		return fmt.Errorf("delete tour: %w", core.ErrNotFound)
	}
	delete(f.tours, id)
	return nil
}

func (f *fakeTourRepo) List(
	ctx context.Context,
	params ListToursParams,
) ([]Tour, int, error) {
	var out []Tour
	for _, tour := range f.tours {
		if tour.SecretTour && !params.IncludeSecret {
			continue
		}
		out = append(out, *tour)
	}
	return out, len(out), nil
}

func (f *fakeTourRepo) UpdateRatingStats(
	ctx context.Context,
	id string,
	quantity int,
	average float64,
) error {
	tour, ok := f.tours[id]
	if !ok {
		return fmt.Errorf("update rating stats: %w", core.ErrNotFound)
	}
	tour.RatingsQuantity = quantity
	tour.RatingsAverage = average
	return nil
}

func (f *fakeTourRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.tours[id]
	return ok, nil
}

func validCreateRequest() CreateTourRequest {
	return CreateTourRequest{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   DifficultyEasy,
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
	}
}

func TestCreateSlugsAndDefaults(t *testing.T) {
	svc := NewService(newFakeTourRepo())

	tour, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, tour.ID)
	assert.Equal(t, "the-forest-hiker", tour.Slug)
	assert.InDelta(t, DefaultRatingsAverage, tour.RatingsAverage, 0.0001)
	assert.Zero(t, tour.RatingsQuantity)
}

func TestCreateRejectsDiscountAtOrAbovePrice(t *testing.T) {
	svc := NewService(newFakeTourRepo())

	req := validCreateRequest()
	discount := req.Price
	req.PriceDiscount = &discount

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCreateAllowsDiscountBelowPrice(t *testing.T) {
	svc := NewService(newFakeTourRepo())

	req := validCreateRequest()
	discount := req.Price - 50
	req.PriceDiscount = &discount

	tour, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, tour.PriceDiscount)
	assert.InDelta(t, discount, *tour.PriceDiscount, 0.0001)
}

func TestUpdateRenameMovesSlug(t *testing.T) {
	svc := NewService(newFakeTourRepo())

	tour, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	newName := "The Mountain Biker"
	updated, err := svc.Update(context.Background(), tour.ID, UpdateTourRequest{
		Name: &newName,
	})
	require.NoError(t, err)

	assert.Equal(t, "the-mountain-biker", updated.Slug)
}

func TestUpdateWithoutRenameKeepsSlug(t *testing.T) {
	svc := NewService(newFakeTourRepo())

	tour, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	price := 450.0
	updated, err := svc.Update(context.Background(), tour.ID, UpdateTourRequest{
		Price: &price,
	})
	require.NoError(t, err)

	assert.Equal(t, tour.Slug, updated.Slug)
	assert.InDelta(t, 450.0, updated.Price, 0.0001)
}

func TestUpdateRejectsDiscountReachingPrice(t *testing.T) {
	svc := NewService(newFakeTourRepo())

	tour, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	// Lowering the price below an existing discount must also fail.
	discount := 300.0
	_, err = svc.Update(context.Background(), tour.ID, UpdateTourRequest{
		PriceDiscount: &discount,
	})
	require.NoError(t, err)

	price := 250.0
	_, err = svc.Update(context.Background(), tour.ID, UpdateTourRequest{
		Price: &price,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestGetHidesSecretTours(t *testing.T) {
	svc := NewService(newFakeTourRepo())

	req := validCreateRequest()
	req.SecretTour = true
	tour, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), tour.ID, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := svc.Get(context.Background(), tour.ID, true)
	require.NoError(t, err)
	assert.Equal(t, tour.ID, got.ID)
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"The Snow  Adventurer!", "the-snow-adventurer"},
		{"  Leading & Trailing  ", "leading-trailing"},
		{"ALLCAPS", "allcaps"},
		{"Tour 2026", "tour-2026"},
		{"---", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.name), "input %q", tc.name)
	}
}
