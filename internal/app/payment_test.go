package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/learnhub/enrollment-service/internal/store"
	"github.com/learnhub/enrollment-service/pkg/paymentclient"
)

// fakePaymentGateway serves scripted sessions keyed by session ID.
type fakePaymentGateway struct {
	sessions       map[string]*paymentclient.Session
	createdRequest *paymentclient.CreateSessionRequest
}

func newFakePaymentGateway() *fakePaymentGateway {
	return &fakePaymentGateway{sessions: make(map[string]*paymentclient.Session)}
}

func (f *fakePaymentGateway) CreateSession(ctx context.Context, req paymentclient.CreateSessionRequest) (*paymentclient.Session, error) {
	f.createdRequest = &req
	session := &paymentclient.Session{
		ID:       "cs_" + uuid.NewString(),
		URL:      "https://pay.example.com/cs_test",
		Status:   paymentclient.SessionStatusPending,
		Amount:   req.Amount,
		Currency: req.Currency,
		Metadata: req.Metadata,
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakePaymentGateway) GetSession(ctx context.Context, sessionID string) (*paymentclient.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, errors.New("session not found")
	}
	copied := *session
	return &copied, nil
}

func (f *fakePaymentGateway) addSession(session paymentclient.Session) *paymentclient.Session {
	f.sessions[session.ID] = &session
	return &session
}

func newPaymentTestService(repo *fakeRepo) (*Service, *fakePaymentGateway) {
	gateway := newFakePaymentGateway()
	service := NewService(repo, gateway, &recordingPublisher{}, "learnhub.events")
	service.ConfigureCheckout("https://learnhub.example.com/success", "https://learnhub.example.com/cancel")
	return service, gateway
}

func TestCreateCheckoutSession(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("Ada Lovelace", "ada@example.com", false)
	course := repo.addCourse("Numerical Methods", 4999)
	service, gateway := newPaymentTestService(repo)

	session, err := service.CreateCheckoutSession(context.Background(), user.ID, course.ID)
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}

	// The charged amount is the catalog price, never client input.
	if session.Amount != 4999 {
		t.Fatalf("expected session amount 4999, got %d", session.Amount)
	}
	if gateway.createdRequest.SuccessURL != "https://learnhub.example.com/success" {
		t.Fatalf("unexpected success URL: %q", gateway.createdRequest.SuccessURL)
	}
	if gateway.createdRequest.Metadata.UserID != user.ID.String() {
		t.Fatalf("expected buyer metadata %s, got %q", user.ID, gateway.createdRequest.Metadata.UserID)
	}
	if gateway.createdRequest.Metadata.CourseID != course.ID.String() {
		t.Fatalf("expected course metadata %s, got %q", course.ID, gateway.createdRequest.Metadata.CourseID)
	}
}

func TestCreateCheckoutSession_FreeCourse(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("Ada Lovelace", "ada@example.com", false)
	course := repo.addCourse("Intro to Go", 0)
	service, _ := newPaymentTestService(repo)

	_, err := service.CreateCheckoutSession(context.Background(), user.ID, course.ID)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for a free course, got %v", err)
	}
}

func TestVerifyPayment_CompletedSessionEnrolls(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("Ada Lovelace", "ada@example.com", false)
	course := repo.addCourse("Numerical Methods", 4999)
	service, gateway := newPaymentTestService(repo)

	session := gateway.addSession(paymentclient.Session{
		ID:     "cs_completed",
		Status: paymentclient.SessionStatusCompleted,
		Amount: 4999,
		Metadata: paymentclient.SessionMetadata{
			UserID:   user.ID.String(),
			CourseID: course.ID.String(),
		},
	})

	result, err := service.VerifyPayment(context.Background(), session.ID, course.ID)
	if err != nil {
		t.Fatalf("VerifyPayment returned error: %v", err)
	}
	if result.AlreadyEnrolled {
		t.Fatal("expected fresh enrollment")
	}
	// Amount and buyer come from the session record.
	if result.Enrollment.AmountPaid != 4999 {
		t.Fatalf("expected recorded amount 4999, got %d", result.Enrollment.AmountPaid)
	}
	if result.Enrollment.UserID != user.ID {
		t.Fatalf("expected enrollment for session buyer %s, got %s", user.ID, result.Enrollment.UserID)
	}
	if result.Enrollment.PaymentReference == nil || *result.Enrollment.PaymentReference != session.ID {
		t.Fatalf("expected payment reference %q, got %v", session.ID, result.Enrollment.PaymentReference)
	}

	updated, _ := repo.FindCourseByID(context.Background(), course.ID)
	if updated.TotalRevenue != 4999 {
		t.Fatalf("expected revenue 4999, got %d", updated.TotalRevenue)
	}
}

func TestVerifyPayment_ReplayIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("Ada Lovelace", "ada@example.com", false)
	course := repo.addCourse("Numerical Methods", 4999)
	service, gateway := newPaymentTestService(repo)

	session := gateway.addSession(paymentclient.Session{
		ID:     "cs_replayed",
		Status: paymentclient.SessionStatusCompleted,
		Amount: 4999,
		Metadata: paymentclient.SessionMetadata{
			UserID:   user.ID.String(),
			CourseID: course.ID.String(),
		},
	})

	first, err := service.VerifyPayment(context.Background(), session.ID, course.ID)
	if err != nil {
		t.Fatalf("first VerifyPayment returned error: %v", err)
	}
	// Webhook and redirect both verify the same session.
	second, err := service.VerifyPayment(context.Background(), session.ID, course.ID)
	if err != nil {
		t.Fatalf("second VerifyPayment returned error: %v", err)
	}

	if !second.AlreadyEnrolled {
		t.Fatal("expected replay to report AlreadyEnrolled")
	}
	if second.Enrollment.ID != first.Enrollment.ID {
		t.Fatal("expected replay to return the original enrollment")
	}

	updated, _ := repo.FindCourseByID(context.Background(), course.ID)
	if updated.EnrollmentCount != 1 {
		t.Fatalf("expected a single enrollment, got %d", updated.EnrollmentCount)
	}
	if updated.TotalRevenue != 4999 {
		t.Fatalf("expected revenue counted once, got %d", updated.TotalRevenue)
	}
}

func TestVerifyPayment_Rejections(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("Ada Lovelace", "ada@example.com", false)
	course := repo.addCourse("Numerical Methods", 4999)
	otherCourse := repo.addCourse("Linear Algebra", 2999)
	service, gateway := newPaymentTestService(repo)

	gateway.addSession(paymentclient.Session{
		ID:     "cs_pending",
		Status: paymentclient.SessionStatusPending,
		Amount: 4999,
		Metadata: paymentclient.SessionMetadata{
			UserID:   user.ID.String(),
			CourseID: course.ID.String(),
		},
	})
	gateway.addSession(paymentclient.Session{
		ID:     "cs_other_course",
		Status: paymentclient.SessionStatusCompleted,
		Amount: 2999,
		Metadata: paymentclient.SessionMetadata{
			UserID:   user.ID.String(),
			CourseID: otherCourse.ID.String(),
		},
	})
	gateway.addSession(paymentclient.Session{
		ID:     "cs_wrong_amount",
		Status: paymentclient.SessionStatusCompleted,
		Amount: 100,
		Metadata: paymentclient.SessionMetadata{
			UserID:   user.ID.String(),
			CourseID: course.ID.String(),
		},
	})
	gateway.addSession(paymentclient.Session{
		ID:     "cs_no_buyer",
		Status: paymentclient.SessionStatusCompleted,
		Amount: 4999,
		Metadata: paymentclient.SessionMetadata{
			CourseID: course.ID.String(),
		},
	})

	tests := []struct {
		name      string
		sessionID string
		courseID  uuid.UUID
		wantErr   error
	}{
		{
			name:      "pending session",
			sessionID: "cs_pending",
			courseID:  course.ID,
			wantErr:   ErrPaymentNotConfirmed,
		},
		{
			name:      "session bought a different course",
			sessionID: "cs_other_course",
			courseID:  course.ID,
			wantErr:   ErrPaymentMismatch,
		},
		{
			name:      "session amount does not cover the price",
			sessionID: "cs_wrong_amount",
			courseID:  course.ID,
			wantErr:   ErrPaymentMismatch,
		},
		{
			name:      "session has no buyer metadata",
			sessionID: "cs_no_buyer",
			courseID:  course.ID,
			wantErr:   ErrPaymentMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.VerifyPayment(context.Background(), tt.sessionID, tt.courseID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// No rejected verification left a ledger entry behind.
	if _, err := repo.FindEnrollmentByUserAndCourse(context.Background(), user.ID, course.ID); !errors.Is(err, store.ErrEnrollmentNotFound) {
		t.Fatalf("expected no enrollment after rejections, got %v", err)
	}
}
