/**
 * @description
 * This file contains the HTTP handlers for the enrollment-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * The enroll handlers encode the idempotency contract on the wire: the first
 * enrollment returns 201 Created, any replay returns 200 OK with the same record.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/enrollment-service/internal/app"
	"github.com/learnhub/enrollment-service/internal/domain"
	"github.com/learnhub/enrollment-service/internal/store"
)

// EnrollmentHandlers holds the application service that handlers will use.
type EnrollmentHandlers struct {
	service *app.Service
}

// NewEnrollmentHandlers creates a new instance of EnrollmentHandlers.
func NewEnrollmentHandlers(service *app.Service) *EnrollmentHandlers {
	return &EnrollmentHandlers{service: service}
}

// enrollmentResponse is the wire shape for a recorded enrollment. The same
// body is returned for a fresh enrollment and for an idempotent replay; only
// the status code and AlreadyEnrolled flag differ.
type enrollmentResponse struct {
	EnrollmentID     string    `json:"enrollment_id"`
	UserID           string    `json:"user_id"`
	CourseID         string    `json:"course_id"`
	AmountPaid       int64     `json:"amount_paid"`
	PaymentReference *string   `json:"payment_reference,omitempty"`
	EnrolledAt       time.Time `json:"enrolled_at"`
	AlreadyEnrolled  bool      `json:"already_enrolled"`
	Message          string    `json:"message"`
}

type checkoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

func buildEnrollmentResponse(result *domain.EnrollmentResult) enrollmentResponse {
	message := "Enrollment recorded"
	if result.AlreadyEnrolled {
		message = "Already enrolled"
	}
	return enrollmentResponse{
		EnrollmentID:     result.Enrollment.ID.String(),
		UserID:           result.Enrollment.UserID.String(),
		CourseID:         result.Enrollment.CourseID.String(),
		AmountPaid:       result.Enrollment.AmountPaid,
		PaymentReference: result.Enrollment.PaymentReference,
		EnrolledAt:       result.Enrollment.EnrolledAt,
		AlreadyEnrolled:  result.AlreadyEnrolled,
		Message:          message,
	}
}

// writeEnrollmentResult writes the shared success shape: 201 for a fresh
// enrollment, 200 for an idempotent replay.
func (h *EnrollmentHandlers) writeEnrollmentResult(w http.ResponseWriter, result *domain.EnrollmentResult) {
	status := http.StatusCreated
	if result.AlreadyEnrolled {
		status = http.StatusOK
	}
	h.writeJSON(w, status, buildEnrollmentResponse(result))
}

// EnrollHandler handles self-service enrollment requests for free courses.
func (h *EnrollmentHandlers) EnrollHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	if retryAfter, err := h.service.CheckEnrollRateLimit(r.Context(), userID); err != nil {
		if errors.Is(err, app.ErrRateLimited) {
			log.Printf("level=warn component=api endpoint=enroll outcome=reject reason=rate_limited user_id=%s retry_after=%d", userID, retryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			h.writeError(w, http.StatusTooManyRequests, "Too many enrollment attempts. Please try again shortly.")
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var req domain.EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=enroll outcome=reject reason=invalid_json err=%v", err)
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.CourseID == uuid.Nil {
		http.Error(w, "Course ID is required", http.StatusBadRequest)
		return
	}

	log.Printf("level=info component=api endpoint=enroll outcome=accepted user_id=%s course_id=%s amount=%d", userID, req.CourseID, req.AmountPaid)

	result, err := h.service.Enroll(r.Context(), app.EnrollmentIntake{
		UserID:           userID,
		CourseID:         req.CourseID,
		AmountPaid:       req.AmountPaid,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		h.writeEnrollmentError(w, "enroll", userID, err)
		return
	}

	h.writeEnrollmentResult(w, result)
}

// CheckoutSessionHandler creates a payment processor checkout session for a
// paid course. The amount charged is the course's current price; the client
// never supplies it.
func (h *EnrollmentHandlers) CheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	var req domain.CheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=checkout_session outcome=reject reason=invalid_json err=%v", err)
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.CourseID == uuid.Nil {
		http.Error(w, "Course ID is required", http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateCheckoutSession(r.Context(), userID, req.CourseID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=checkout_session outcome=failed user_id=%s course_id=%s err=%v", userID, req.CourseID, err)
		if errors.Is(err, store.ErrCourseNotFound) || errors.Is(err, store.ErrUserNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, app.ErrInvalidAmount) {
			http.Error(w, "Free courses do not require checkout", http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, checkoutSessionResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		Amount:      session.Amount,
		Currency:    session.Currency,
	})
}

// VerifyPaymentHandler reconciles a completed checkout session into an
// enrollment. Clients and webhooks may both call it for the same session;
// replays return 200 with the existing record.
func (h *EnrollmentHandlers) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	var req domain.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=verify_payment outcome=reject reason=invalid_json err=%v", err)
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}
	if req.CourseID == uuid.Nil {
		http.Error(w, "Course ID is required", http.StatusBadRequest)
		return
	}

	log.Printf("level=info component=api endpoint=verify_payment outcome=accepted user_id=%s course_id=%s session_id=%s", userID, req.CourseID, req.SessionID)

	result, err := h.service.VerifyPayment(r.Context(), req.SessionID, req.CourseID)
	if err != nil {
		h.writeEnrollmentError(w, "verify_payment", userID, err)
		return
	}

	h.writeEnrollmentResult(w, result)
}

// ManualEnrollHandler records an administrator-granted enrollment. The student
// is addressed by email and the recorded amount is always zero.
func (h *EnrollmentHandlers) ManualEnrollHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	var req domain.ManualEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=manual_enroll outcome=reject reason=invalid_json err=%v", err)
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.StudentEmail) == "" {
		http.Error(w, "Student email is required", http.StatusBadRequest)
		return
	}
	if req.CourseID == uuid.Nil {
		http.Error(w, "Course ID is required", http.StatusBadRequest)
		return
	}

	log.Printf("level=info component=api endpoint=manual_enroll outcome=accepted admin_id=%s course_id=%s", adminID, req.CourseID)

	result, err := h.service.ManualEnroll(r.Context(), req.CourseID, req.StudentEmail)
	if err != nil {
		h.writeEnrollmentError(w, "manual_enroll", adminID, err)
		return
	}

	h.writeEnrollmentResult(w, result)
}

// MyEnrollmentsHandler returns the authenticated user's enrollments with
// course summaries, newest first.
func (h *EnrollmentHandlers) MyEnrollmentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	enrollments, err := h.service.ListEnrollments(r.Context(), userID)
	if err != nil {
		log.Printf("level=error component=api endpoint=my_enrollments outcome=failed user_id=%s err=%v", userID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"enrollments": enrollments,
		"count":       len(enrollments),
	})
}

// AdminStatsHandler returns the operator dashboard payload: platform totals,
// month-over-month growth, and the recent activity feed.
func (h *EnrollmentHandlers) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_stats outcome=failed err=%v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// writeEnrollmentError maps the intake gateway's error taxonomy onto HTTP
// status codes, shared by all three enrollment triggers.
func (h *EnrollmentHandlers) writeEnrollmentError(w http.ResponseWriter, endpoint string, userID uuid.UUID, err error) {
	log.Printf("level=warn component=api endpoint=%s outcome=failed user_id=%s err=%v", endpoint, userID, err)
	switch {
	case errors.Is(err, store.ErrCourseNotFound):
		http.Error(w, "Course not found", http.StatusNotFound)
	case errors.Is(err, store.ErrUserNotFound):
		http.Error(w, "User not found", http.StatusNotFound)
	case errors.Is(err, app.ErrInvalidAmount):
		http.Error(w, "Amount does not match course price", http.StatusBadRequest)
	case errors.Is(err, app.ErrPaymentNotConfirmed):
		http.Error(w, "Payment has not been confirmed", http.StatusPaymentRequired)
	case errors.Is(err, app.ErrPaymentMismatch):
		http.Error(w, "Payment details do not match the purchased course", http.StatusConflict)
	case errors.Is(err, store.ErrTransactionFailed):
		http.Error(w, "Could not record enrollment. Please try again.", http.StatusInternalServerError)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSON is a helper to send JSON responses.
func (h *EnrollmentHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

// writeError is a helper to send a JSON error payload.
func (h *EnrollmentHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
