/**
 * @description
 * This file contains the payment verification adapter: the reconciliation
 * between an externally-issued checkout session and a pending enrollment
 * intent. The processor's session record is the trust boundary — the amount
 * written to the ledger and the identity of the buyer come from the session,
 * never from the browser redirect's parameters.
 *
 * @dependencies
 * - context, fmt, log: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/paymentclient: For checkout session creation and lookup.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/learnhub/enrollment-service/internal/domain"
	"github.com/learnhub/enrollment-service/internal/store"
	"github.com/learnhub/enrollment-service/pkg/paymentclient"
)

// CreateCheckoutSession creates a processor checkout session for a paid
// course. The session's metadata carries the enrollment intent
// (user, course); there is no local intent store, so an abandoned session
// needs no cleanup — no enrollment was ever created for it.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, courseID uuid.UUID) (*paymentclient.Session, error) {
	course, err := s.repo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Price == 0 {
		// Free courses enroll directly; there is nothing to charge.
		return nil, ErrInvalidAmount
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		return nil, store.ErrUserNotFound
	}

	session, err := s.payments.CreateSession(ctx, paymentclient.CreateSessionRequest{
		Amount:      course.Price,
		Currency:    s.checkoutCurrency,
		Description: course.Title,
		SuccessURL:  s.checkoutSuccessURL,
		CancelURL:   s.checkoutCancelURL,
		Metadata: paymentclient.SessionMetadata{
			UserID:   user.ID.String(),
			CourseID: course.ID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	log.Printf("level=info component=app msg=\"checkout session created\" session_id=%s user_id=%s course_id=%s amount=%d",
		session.ID, user.ID, course.ID, course.Price)
	return session, nil
}

// VerifyPayment reconciles a checkout session with an enrollment. It loads
// the session from the processor, confirms it completed for the claimed
// course at the course's price, and enrolls the user recorded in the
// session's metadata with the session's recorded amount.
//
// The method tolerates being invoked more than once for the same session
// (webhook and client-side redirect both firing, page refreshes): the second
// and later calls resolve through the gateway's duplicate path and return
// the same enrollment as a success.
func (s *Service) VerifyPayment(ctx context.Context, sessionID string, courseID uuid.UUID) (*domain.EnrollmentResult, error) {
	session, err := s.payments.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	if session.Status != paymentclient.SessionStatusCompleted {
		log.Printf("level=info component=app msg=\"payment not confirmed yet\" session_id=%s status=%s", session.ID, session.Status)
		return nil, ErrPaymentNotConfirmed
	}

	sessionCourseID, err := uuid.Parse(session.Metadata.CourseID)
	if err != nil || sessionCourseID != courseID {
		log.Printf("level=warn component=app msg=\"session course mismatch\" session_id=%s session_course=%q claimed_course=%s",
			session.ID, session.Metadata.CourseID, courseID)
		return nil, ErrPaymentMismatch
	}

	sessionUserID, err := uuid.Parse(session.Metadata.UserID)
	if err != nil {
		log.Printf("level=warn component=app msg=\"session missing buyer metadata\" session_id=%s", session.ID)
		return nil, ErrPaymentMismatch
	}

	course, err := s.repo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if session.Amount != course.Price {
		log.Printf("level=warn component=app msg=\"session amount does not match course price\" session_id=%s session_amount=%d price=%d",
			session.ID, session.Amount, course.Price)
		return nil, ErrPaymentMismatch
	}

	// The amount and buyer come from the verified session record only.
	reference := session.ID
	return s.Enroll(ctx, EnrollmentIntake{
		UserID:           sessionUserID,
		CourseID:         courseID,
		AmountPaid:       session.Amount,
		PaymentReference: &reference,
	})
}
