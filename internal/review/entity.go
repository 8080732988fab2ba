// AngelaMos | 2026
// entity.go

package review

import (
	"time"
)

// Review binds one author to one tour; the pair is unique and neither
// side changes after creation.
type Review struct {
	ID        string    `db:"id"`
	TourID    string    `db:"tour_id"`
	UserID    string    `db:"user_id"`
	Text      string    `db:"review_text"`
	Rating    int       `db:"rating"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
