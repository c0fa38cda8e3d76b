package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityCategoryEnrollment tags every activity entry written by this
// service. Other services append their own categories to the same table.
const ActivityCategoryEnrollment = "enrollment"

// Activity is one append-only audit-trail entry. The actor's display name is
// denormalized at write time so the feed stays stable even if the user is
// later renamed. Entries are never updated or deleted.
type Activity struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	CourseID  uuid.UUID `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}
