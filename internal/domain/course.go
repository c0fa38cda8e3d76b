package domain

import (
	"time"

	"github.com/google/uuid"
)

// Course represents a course as seen by this service. The course catalog is
// owned by an external service; enrollment only reads Title and Price and
// maintains the two derived counters.
//
// EnrollmentCount and TotalRevenue must always equal the count and
// amount-paid sum of the enrollments referencing this course. They are
// updated in the same database transaction as every ledger insert, never
// reconciled after the fact.
type Course struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Price           int64     `json:"price"` // in cents
	EnrollmentCount int64     `json:"enrollment_count"`
	TotalRevenue    int64     `json:"total_revenue"` // in cents
	CreatedAt       time.Time `json:"created_at"`
}

// User is the slice of the identity service's user record this service
// needs: enough to authorize enrollment and denormalize activity entries.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}
