/**
 * @description
 * This file defines the core domain models for the enrollment-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Monetary amounts are stored as `int64` in the smallest currency unit (cents),
 *   which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment is the ledger record granting a user access to a course.
// This struct maps directly to the `enrollments` table. The pair
// (UserID, CourseID) is unique across all records; the database enforces
// this with a compound unique index.
type Enrollment struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	CourseID          uuid.UUID `json:"course_id"`
	EnrolledAt        time.Time `json:"enrolled_at"`
	AmountPaid        int64     `json:"amount_paid"` // in cents
	PaymentReference  *string   `json:"payment_reference,omitempty"`
	Progress          int       `json:"progress"` // 0-100, owned by the learning-progress service
	CompletedLectures []string  `json:"completed_lectures"`
}

// EnrollmentResult is returned by the intake gateway for every successful
// enrollment call. AlreadyEnrolled distinguishes a fresh insert from an
// idempotent resubmission; callers treat both as success.
type EnrollmentResult struct {
	Enrollment      *Enrollment `json:"enrollment"`
	AlreadyEnrolled bool        `json:"already_enrolled"`
}

// EnrollmentSummary is an enrollment joined with course display fields,
// returned by the "my enrollments" listing.
type EnrollmentSummary struct {
	Enrollment
	CourseTitle string `json:"course_title"`
	CoursePrice int64  `json:"course_price"` // in cents
}

// EnrollRequest is the DTO for the self-service enrollment endpoint.
type EnrollRequest struct {
	CourseID         uuid.UUID `json:"course_id"`
	AmountPaid       int64     `json:"amount_paid"` // in cents
	PaymentReference *string   `json:"payment_reference,omitempty"`
}

// ManualEnrollRequest is the DTO for the administrator enrollment endpoint.
// The student is addressed by email; the amount is always zero.
type ManualEnrollRequest struct {
	CourseID     uuid.UUID `json:"course_id"`
	StudentEmail string    `json:"student_email"`
}

// VerifyPaymentRequest is the DTO for the payment verification endpoint.
type VerifyPaymentRequest struct {
	SessionID string    `json:"session_id"`
	CourseID  uuid.UUID `json:"course_id"`
}

// CheckoutSessionRequest is the DTO for creating a payment-processor
// checkout session for a paid course.
type CheckoutSessionRequest struct {
	CourseID uuid.UUID `json:"course_id"`
}
