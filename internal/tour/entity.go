// AngelaMos | 2026
// entity.go

package tour

import (
	"time"
)

type Tour struct {
	ID              string     `db:"id"`
	Name            string     `db:"name"`
	Slug            string     `db:"slug"`
	Duration        int        `db:"duration"`
	MaxGroupSize    int        `db:"max_group_size"`
	Difficulty      string     `db:"difficulty"`
	RatingsAverage  float64    `db:"ratings_average"`
	RatingsQuantity int        `db:"ratings_quantity"`
	Price           float64    `db:"price"`
	PriceDiscount   *float64   `db:"price_discount"`
	Summary         string     `db:"summary"`
	Description     string     `db:"description"`
	ImageCover      string     `db:"image_cover"`
	SecretTour      bool       `db:"secret_tour"`
	StartDate       *time.Time `db:"start_date"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// DefaultRatingsAverage is the rating shown for a tour nobody has
// reviewed yet.
const DefaultRatingsAverage = 4.5
