/**
 * @description
 * This file contains the core business logic for the enrollment-service. The
 * `Service` struct is the enrollment intake gateway: the single internal entry
 * point that all three external triggers (self-service free enrollment,
 * payment verification, administrator manual enrollment) call through.
 *
 * Key properties:
 * - Idempotency: a duplicate enrollment conflict from the store is resolved
 *   into a success response carrying the existing record. Double-clicks and
 *   twice-delivered webhooks produce one enrollment and uniform successes.
 * - Atomicity: the ledger insert, the course counter updates and the activity
 *   append happen in one store transaction; the gateway never observes or
 *   leaks partial state.
 * - Manual enrollments always record amount_paid = 0, even for paid courses,
 *   so total_revenue intentionally undercounts manually granted access.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/paymentclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/enrollment-service/internal/domain"
	"github.com/learnhub/enrollment-service/internal/store"
	"github.com/learnhub/enrollment-service/pkg/paymentclient"
	"github.com/learnhub/enrollment-service/pkg/rabbitmq"
)

var (
	// ErrInvalidAmount is returned when the offered amount is negative or does
	// not exactly match the course's current price on a non-manual path.
	ErrInvalidAmount = errors.New("amount does not match course price")
	// ErrPaymentNotConfirmed is returned when the processor session is not in
	// a completed state yet.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	// ErrPaymentMismatch is returned when the processor session's recorded
	// course or amount does not match what the caller claims was purchased.
	ErrPaymentMismatch = errors.New("payment details do not match")
	// ErrRateLimited is returned when the self-service enroll path exceeds its
	// per-user request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// PaymentGateway is the slice of the checkout client the service depends on.
// *paymentclient.Client satisfies it; tests substitute a fake.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req paymentclient.CreateSessionRequest) (*paymentclient.Session, error)
	GetSession(ctx context.Context, sessionID string) (*paymentclient.Session, error)
}

// RateLimiter consumes one request from a fixed-window budget and reports
// the resulting count plus the seconds until the window resets.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// EnrollmentIntake is the normalized input to the intake gateway, regardless
// of which trigger produced it.
type EnrollmentIntake struct {
	UserID           uuid.UUID
	CourseID         uuid.UUID
	AmountPaid       int64 // in cents
	PaymentReference *string
	// Manual marks an administrator override. Manual enrollments skip the
	// price-equality check and always carry AmountPaid = 0.
	Manual bool
}

// Service provides the core business logic for enrollments.
type Service struct {
	repo          store.Repository
	payments      PaymentGateway
	eventProducer rabbitmq.Publisher
	eventExchange string

	rateLimiter          RateLimiter
	enrollLimitPerMinute int

	checkoutCurrency   string
	checkoutSuccessURL string
	checkoutCancelURL  string
}

// NewService creates a new enrollment service instance.
func NewService(repo store.Repository, payments PaymentGateway, producer rabbitmq.Publisher, eventExchange string) *Service {
	return &Service{
		repo:             repo,
		payments:         payments,
		eventProducer:    producer,
		eventExchange:    eventExchange,
		checkoutCurrency: "usd",
	}
}

// SetEnrollRateLimiter installs the injected limiter applied to the
// self-service enroll path. A nil limiter or non-positive limit disables it.
func (s *Service) SetEnrollRateLimiter(limiter RateLimiter, limitPerMinute int) {
	s.rateLimiter = limiter
	s.enrollLimitPerMinute = limitPerMinute
}

// ConfigureCheckout sets the redirect URLs handed to the payment processor
// when a checkout session is created.
func (s *Service) ConfigureCheckout(successURL, cancelURL string) {
	s.checkoutSuccessURL = successURL
	s.checkoutCancelURL = cancelURL
}

// Enroll is the single chokepoint for recording that a user gained access to
// a course. It validates the references and the amount, runs the atomic
// ledger+counters+activity transaction, and resolves a duplicate conflict
// into an idempotent success.
func (s *Service) Enroll(ctx context.Context, intake EnrollmentIntake) (*domain.EnrollmentResult, error) {
	if intake.AmountPaid < 0 {
		return nil, ErrInvalidAmount
	}

	course, err := s.repo.FindCourseByID(ctx, intake.CourseID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByID(ctx, intake.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		// Administrators manage courses; they do not enroll in them.
		log.Printf("level=warn component=app msg=\"enrollment rejected for administrator account\" user_id=%s course_id=%s", user.ID, course.ID)
		return nil, store.ErrUserNotFound
	}

	// Exact price match on non-manual paths prevents client-supplied price
	// tampering; mismatches are rejected, never silently coerced.
	if !intake.Manual && intake.AmountPaid != course.Price {
		log.Printf("level=warn component=app msg=\"enrollment amount mismatch\" user_id=%s course_id=%s offered=%d price=%d",
			user.ID, course.ID, intake.AmountPaid, course.Price)
		return nil, ErrInvalidAmount
	}

	enrollment := &domain.Enrollment{
		ID:                uuid.New(),
		UserID:            user.ID,
		CourseID:          course.ID,
		AmountPaid:        intake.AmountPaid,
		PaymentReference:  intake.PaymentReference,
		CompletedLectures: []string{},
	}

	action := fmt.Sprintf("enrolled in %q", course.Title)
	if intake.Manual {
		action = fmt.Sprintf("was enrolled in %q by an administrator", course.Title)
	}

	err = s.repo.CreateEnrollment(ctx, enrollment, user.Name, action)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEnrollment) {
			return s.resolveDuplicate(ctx, user.ID, course.ID, intake)
		}
		return nil, err
	}

	s.publishEnrollmentEvent(ctx, enrollment)

	return &domain.EnrollmentResult{Enrollment: enrollment, AlreadyEnrolled: false}, nil
}

// resolveDuplicate turns a storage-level duplicate conflict into the
// idempotent success contract: the existing record is re-read and returned.
// This is the only authoritative duplicate path; no pre-insert check exists.
func (s *Service) resolveDuplicate(ctx context.Context, userID, courseID uuid.UUID, intake EnrollmentIntake) (*domain.EnrollmentResult, error) {
	existing, err := s.repo.FindEnrollmentByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing enrollment after duplicate conflict: %w", err)
	}
	if existing.AmountPaid != intake.AmountPaid {
		log.Printf("level=warn component=app msg=\"duplicate enrollment with diverging amount; ledger record wins\" user_id=%s course_id=%s recorded=%d offered=%d",
			userID, courseID, existing.AmountPaid, intake.AmountPaid)
	}
	return &domain.EnrollmentResult{Enrollment: existing, AlreadyEnrolled: true}, nil
}

// publishEnrollmentEvent emits the enrollment.created event. Failures are
// logged and swallowed: event delivery is auxiliary, enrollment correctness
// is not.
func (s *Service) publishEnrollmentEvent(ctx context.Context, enrollment *domain.Enrollment) {
	if s.eventProducer == nil {
		return
	}
	event := rabbitmq.EnrollmentEvent{
		EnrollmentID: enrollment.ID,
		UserID:       enrollment.UserID,
		CourseID:     enrollment.CourseID,
		AmountPaid:   enrollment.AmountPaid,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.eventProducer.PublishEnrollmentEvent(ctx, s.eventExchange, event); err != nil {
		log.Printf("level=warn component=app msg=\"failed to publish enrollment event\" enrollment_id=%s err=%v", enrollment.ID, err)
	}
}

// ManualEnroll records an administrator-granted enrollment. The student is
// addressed by email; the amount is always zero, even for paid courses.
func (s *Service) ManualEnroll(ctx context.Context, courseID uuid.UUID, studentEmail string) (*domain.EnrollmentResult, error) {
	student, err := s.repo.FindUserByEmail(ctx, studentEmail)
	if err != nil {
		return nil, err
	}
	return s.Enroll(ctx, EnrollmentIntake{
		UserID:     student.ID,
		CourseID:   courseID,
		AmountPaid: 0,
		Manual:     true,
	})
}

// ListEnrollments returns the user's enrollments with course summaries,
// newest first.
func (s *Service) ListEnrollments(ctx context.Context, userID uuid.UUID) ([]domain.EnrollmentSummary, error) {
	return s.repo.ListEnrollmentsByUser(ctx, userID)
}

// CheckEnrollRateLimit consumes one request from the caller's self-service
// enroll budget. It returns ErrRateLimited with the seconds to wait when the
// budget is exhausted, and is a no-op when no limiter is installed. Limiter
// backend failures are logged and fail open: rate limiting is protective,
// not load-bearing.
func (s *Service) CheckEnrollRateLimit(ctx context.Context, userID uuid.UUID) (retryAfterSeconds int, err error) {
	if s.rateLimiter == nil || s.enrollLimitPerMinute <= 0 {
		return 0, nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "enroll", userID.String(), s.enrollLimitPerMinute, time.Minute)
	if err != nil {
		log.Printf("level=warn component=app msg=\"enroll rate limiter unavailable; failing open\" user_id=%s err=%v", userID, err)
		return 0, nil
	}
	if count > s.enrollLimitPerMinute {
		return retryAfter, ErrRateLimited
	}
	return 0, nil
}
