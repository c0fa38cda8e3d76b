/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the SQL needed to maintain the enrollment ledger, the derived
 * course counters, the activity audit trail and the analytics read paths.
 *
 * The central correctness property of the whole service lives here: the
 * `enrollments` table carries a compound unique index on (user_id, course_id),
 * and CreateEnrollment performs the ledger insert, the counter update and the
 * activity append inside a single transaction. Concurrent enrollments for the
 * same pair are resolved by the database, never by an application-level
 * check-then-act sequence.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/enrollment-service/internal/domain"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrDuplicateEnrollment = errors.New("enrollment already exists for user and course")
	ErrTransactionFailed   = errors.New("enrollment transaction failed")
)

const (
	// createEnrollmentMaxAttempts bounds the automatic retry of the whole
	// enrollment transaction on transient storage conflicts.
	createEnrollmentMaxAttempts = 3
	createEnrollmentRetryDelay  = 25 * time.Millisecond
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505). This is the only authoritative duplicate
// signal; any pre-insert existence check is an optimization at best.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isRetryableTxError reports whether err is a transient conflict that makes
// the whole transaction worth retrying: a serialization failure (40001) or a
// deadlock (40P01). Everything else is surfaced to the caller.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// FindUserByID retrieves a user from the database by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, name, email, is_admin, created_at FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail retrieves a user by email. Emails are unique
// case-insensitively, so the match is performed on the lowered value.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, name, email, is_admin, created_at FROM users WHERE lower(email) = lower(btrim($1))`
	err := r.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindCourseByID retrieves a course along with its derived counters.
func (r *PostgresRepository) FindCourseByID(ctx context.Context, courseID uuid.UUID) (*domain.Course, error) {
	var course domain.Course
	query := `SELECT id, title, price, enrollment_count, total_revenue, created_at FROM courses WHERE id = $1`
	err := r.db.QueryRow(ctx, query, courseID).Scan(
		&course.ID, &course.Title, &course.Price,
		&course.EnrollmentCount, &course.TotalRevenue, &course.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

// CreateEnrollment inserts the enrollment record, bumps the owning course's
// counters and appends the activity entry in one transaction. Either all
// three writes commit or none do.
//
// The insert relies on the uq_enrollments_user_course index to reject
// duplicates; the resulting SQLSTATE 23505 is translated to
// ErrDuplicateEnrollment so the gateway can resolve it idempotently.
// Serialization failures and deadlocks retry the whole transaction up to
// createEnrollmentMaxAttempts before surfacing ErrTransactionFailed.
func (r *PostgresRepository) CreateEnrollment(ctx context.Context, enrollment *domain.Enrollment, actorName, action string) error {
	if enrollment.ID == uuid.Nil {
		enrollment.ID = uuid.New()
	}

	var lastErr error
	for attempt := 1; attempt <= createEnrollmentMaxAttempts; attempt++ {
		err := r.createEnrollmentOnce(ctx, enrollment, actorName, action)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDuplicateEnrollment) || errors.Is(err, ErrCourseNotFound) {
			return err
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
		log.Printf("level=warn component=store msg=\"enrollment transaction conflict; retrying\" attempt=%d user_id=%s course_id=%s err=%v",
			attempt, enrollment.UserID, enrollment.CourseID, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrTransactionFailed, ctx.Err())
		case <-time.After(createEnrollmentRetryDelay * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: retry budget exhausted: %v", ErrTransactionFailed, lastErr)
}

func (r *PostgresRepository) createEnrollmentOnce(ctx context.Context, enrollment *domain.Enrollment, actorName, action string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertEnrollment = `
		INSERT INTO enrollments (id, user_id, course_id, amount_paid, payment_reference, progress, completed_lectures)
		VALUES ($1, $2, $3, $4, $5, 0, '{}')
		RETURNING enrolled_at
	`
	err = tx.QueryRow(ctx, insertEnrollment,
		enrollment.ID, enrollment.UserID, enrollment.CourseID,
		enrollment.AmountPaid, enrollment.PaymentReference,
	).Scan(&enrollment.EnrolledAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEnrollment
		}
		return err
	}

	// Derived counters move in lockstep with the ledger insert. This UPDATE
	// takes a row lock on the course, serializing concurrent enrollments
	// into the same course for the duration of the transaction.
	const bumpCounters = `
		UPDATE courses
		SET enrollment_count = enrollment_count + 1,
		    total_revenue = total_revenue + $2
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, bumpCounters, enrollment.CourseID, enrollment.AmountPaid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCourseNotFound
	}

	const insertActivity = `
		INSERT INTO activities (id, user_id, user_name, action, category, course_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, insertActivity,
		uuid.New(), enrollment.UserID, actorName, action,
		domain.ActivityCategoryEnrollment, enrollment.CourseID,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindEnrollmentByUserAndCourse returns the enrollment for a (user, course)
// pair, used by the gateway's idempotent re-read after a duplicate conflict.
func (r *PostgresRepository) FindEnrollmentByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*domain.Enrollment, error) {
	var e domain.Enrollment
	query := `
		SELECT id, user_id, course_id, enrolled_at, amount_paid, payment_reference, progress, completed_lectures
		FROM enrollments
		WHERE user_id = $1 AND course_id = $2
	`
	err := r.db.QueryRow(ctx, query, userID, courseID).Scan(
		&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt,
		&e.AmountPaid, &e.PaymentReference, &e.Progress, &e.CompletedLectures,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListEnrollmentsByUser returns all of a user's enrollments joined with
// course display fields, newest first. The descending enrolled_at order is
// part of the contract; the UI renders the list without pagination.
func (r *PostgresRepository) ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.EnrollmentSummary, error) {
	query := `
		SELECT e.id, e.user_id, e.course_id, e.enrolled_at, e.amount_paid,
		       e.payment_reference, e.progress, e.completed_lectures,
		       c.title, c.price
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.EnrollmentSummary, 0)
	for rows.Next() {
		var s domain.EnrollmentSummary
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.CourseID, &s.EnrolledAt, &s.AmountPaid,
			&s.PaymentReference, &s.Progress, &s.CompletedLectures,
			&s.CourseTitle, &s.CoursePrice,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// RecentActivity returns the most recent activity entries across all users,
// newest first, for the dashboard feed.
func (r *PostgresRepository) RecentActivity(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, user_id, user_name, action, category, course_id, created_at
		FROM activities
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.Activity, 0, limit)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.UserName, &a.Action, &a.Category, &a.CourseID, &a.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountUsersCreatedBetween counts non-administrator users created in the
// half-open window [from, to). Administrators cannot enroll, so they are
// excluded from the "students" growth figure.
func (r *PostgresRepository) CountUsersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM users WHERE is_admin = FALSE AND created_at >= $1 AND created_at < $2`
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountEnrollmentsBetween counts enrollments created in [from, to).
func (r *PostgresRepository) CountEnrollmentsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM enrollments WHERE enrolled_at >= $1 AND enrolled_at < $2`
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SumRevenueBetween sums amount_paid over enrollments created in [from, to).
func (r *PostgresRepository) SumRevenueBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount_paid), 0) FROM enrollments WHERE enrolled_at >= $1 AND enrolled_at < $2`
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// PlatformTotals returns the all-time dashboard aggregates.
func (r *PostgresRepository) PlatformTotals(ctx context.Context) (*domain.PlatformTotals, error) {
	var totals domain.PlatformTotals
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE is_admin = FALSE),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM enrollments),
			(SELECT COALESCE(SUM(amount_paid), 0) FROM enrollments)
	`
	err := r.db.QueryRow(ctx, query).Scan(&totals.Students, &totals.Courses, &totals.Enrollments, &totals.TotalRevenue)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
