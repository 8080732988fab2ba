// AngelaMos | 2026
// dto.go

package review

import (
	"time"
)

type CreateReviewRequest struct {
	Text   string `json:"text"   validate:"required,min=1,max=1000"`
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
}

type UpdateReviewRequest struct {
	Text   *string `json:"text,omitempty"   validate:"omitempty,min=1,max=1000"`
	Rating *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
}

type ReviewResponse struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListReviewsParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (p *ListReviewsParams) Normalize() {
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

func (p *ListReviewsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToReviewResponse(rv *Review) ReviewResponse {
	return ReviewResponse{
		ID:        rv.ID,
		TourID:    rv.TourID,
		UserID:    rv.UserID,
		Text:      rv.Text,
		Rating:    rv.Rating,
		CreatedAt: rv.CreatedAt,
		UpdatedAt: rv.UpdatedAt,
	}
}

func ToReviewResponseList(reviews []Review) []ReviewResponse {
	responses := make([]ReviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		responses = append(responses, ToReviewResponse(&rv))
	}
	return responses
}
