/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the enrollment-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/enrollment-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User and course lookups. Both entities are owned by external services;
	// this service only reads them.
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindCourseByID(ctx context.Context, courseID uuid.UUID) (*domain.Course, error)

	// Enrollment ledger.
	//
	// CreateEnrollment inserts the enrollment, increments the owning course's
	// enrollment_count and total_revenue, and appends the activity entry, all
	// in one database transaction. It returns ErrDuplicateEnrollment when an
	// enrollment for the same (user, course) pair already exists, and
	// ErrTransactionFailed once the bounded retry budget for transient
	// conflicts is exhausted. The enrollment's ID and EnrolledAt fields are
	// populated on success.
	CreateEnrollment(ctx context.Context, enrollment *domain.Enrollment, actorName, action string) error
	FindEnrollmentByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*domain.Enrollment, error)
	ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.EnrollmentSummary, error)

	// Activity log read path. Appends happen inside CreateEnrollment.
	RecentActivity(ctx context.Context, limit int) ([]domain.Activity, error)

	// Analytics. All windows are half-open intervals [from, to).
	CountUsersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountEnrollmentsBetween(ctx context.Context, from, to time.Time) (int64, error)
	SumRevenueBetween(ctx context.Context, from, to time.Time) (int64, error)
	PlatformTotals(ctx context.Context) (*domain.PlatformTotals, error)
}
