// AngelaMos | 2026
// dto.go

package tour

import (
	"time"
)

type CreateTourRequest struct {
	Name          string     `json:"name"                     validate:"required,min=10,max=40"`
	Duration      int        `json:"duration"                 validate:"required,gte=1"`
	MaxGroupSize  int        `json:"max_group_size"           validate:"required,gte=1"`
	Difficulty    string     `json:"difficulty"               validate:"required,oneof=easy medium difficult"`
	Price         float64    `json:"price"                    validate:"required,gte=0"`
	PriceDiscount *float64   `json:"price_discount,omitempty" validate:"omitempty,gte=0"`
	Summary       string     `json:"summary"                  validate:"required,max=500"`
	Description   string     `json:"description,omitempty"`
	ImageCover    string     `json:"image_cover,omitempty"`
	SecretTour    bool       `json:"secret_tour,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
}

type UpdateTourRequest struct {
	Name          *string    `json:"name,omitempty"           validate:"omitempty,min=10,max=40"`
	Duration      *int       `json:"duration,omitempty"       validate:"omitempty,gte=1"`
	MaxGroupSize  *int       `json:"max_group_size,omitempty" validate:"omitempty,gte=1"`
	Difficulty    *string    `json:"difficulty,omitempty"     validate:"omitempty,oneof=easy medium difficult"`
	Price         *float64   `json:"price,omitempty"          validate:"omitempty,gte=0"`
	PriceDiscount *float64   `json:"price_discount,omitempty" validate:"omitempty,gte=0"`
	Summary       *string    `json:"summary,omitempty"        validate:"omitempty,max=500"`
	Description   *string    `json:"description,omitempty"`
	ImageCover    *string    `json:"image_cover,omitempty"`
	SecretTour    *bool      `json:"secret_tour,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
}

type TourResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	Duration        int        `json:"duration"`
	MaxGroupSize    int        `json:"max_group_size"`
	Difficulty      string     `json:"difficulty"`
	RatingsAverage  float64    `json:"ratings_average"`
	RatingsQuantity int        `json:"ratings_quantity"`
	Price           float64    `json:"price"`
	PriceDiscount   *float64   `json:"price_discount,omitempty"`
	Summary         string     `json:"summary"`
	Description     string     `json:"description,omitempty"`
	ImageCover      string     `json:"image_cover,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type ListToursParams struct {
	Page          int     `json:"page"`
	PageSize      int     `json:"page_size"`
	Difficulty    string  `json:"difficulty"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	Sort          string  `json:"sort"`
	IncludeSecret bool    `json:"include_secret"`
}

func (p *ListToursParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListToursParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToTourResponse(t *Tour) TourResponse {
	return TourResponse{
		ID:              t.ID,
		Name:            t.Name,
		Slug:            t.Slug,
		Duration:        t.Duration,
		MaxGroupSize:    t.MaxGroupSize,
		Difficulty:      t.Difficulty,
		RatingsAverage:  t.RatingsAverage,
		RatingsQuantity: t.RatingsQuantity,
		Price:           t.Price,
		PriceDiscount:   t.PriceDiscount,
		Summary:         t.Summary,
		Description:     t.Description,
		ImageCover:      t.ImageCover,
		StartDate:       t.StartDate,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func ToTourResponseList(tours []Tour) []TourResponse {
	responses := make([]TourResponse, 0, len(tours))
	for _, t := range tours {
		responses = append(responses, ToTourResponse(&t))
	}
	return responses
}
