/**
 * @description
 * This file contains the growth analytics calculator used by the operator
 * dashboard. It partitions enrollment, revenue and student-signup timestamps
 * into three trailing calendar-month windows and derives month-over-month
 * percentage deltas.
 *
 * The zero-baseline policy is deliberate and load-bearing: a previous month
 * of zero must not crash the division or report a misleading infinite spike.
 * When the previous month is empty the rate is computed against the window
 * two months back, and when that is empty too the growth is reported as 0.
 *
 * @dependencies
 * - context, math, time: Standard Go libraries.
 * - internal/domain: For the stats models.
 */

package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/learnhub/enrollment-service/internal/domain"
)

// monthWindows returns the boundaries of the three trailing calendar-month
// windows relative to now, in UTC: the start of the month before last, the
// start of last month, the start of the current month, and the start of the
// next month. Each window is the half-open interval between neighbors.
func monthWindows(now time.Time) (beforePrevStart, prevStart, currentStart, nextStart time.Time) {
	now = now.UTC()
	currentStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevStart = currentStart.AddDate(0, -1, 0)
	beforePrevStart = currentStart.AddDate(0, -2, 0)
	nextStart = currentStart.AddDate(0, 1, 0)
	return beforePrevStart, prevStart, currentStart, nextStart
}

// growthRate computes a signed percentage delta with the three-tier
// zero-baseline fallback, rounded to two decimal places:
//   - previous > 0: (current-previous)/previous * 100
//   - previous == 0 and fallback > 0: computed against fallback instead
//   - previous == 0 and fallback == 0: 0 (no signal)
func growthRate(current, previous, fallback float64) float64 {
	baseline := previous
	if baseline == 0 {
		if fallback == 0 {
			return 0
		}
		baseline = fallback
	}
	return math.Round((current-baseline)/baseline*100*100) / 100
}

// MonthlyGrowth derives the month-over-month growth figures for students,
// revenue and enrollments from the ledger.
func (s *Service) MonthlyGrowth(ctx context.Context) (*domain.MonthlyGrowth, error) {
	return s.monthlyGrowthAt(ctx, time.Now())
}

// monthlyGrowthAt is MonthlyGrowth with an injectable clock for tests.
func (s *Service) monthlyGrowthAt(ctx context.Context, now time.Time) (*domain.MonthlyGrowth, error) {
	beforePrevStart, prevStart, currentStart, nextStart := monthWindows(now)

	type window struct{ from, to time.Time }
	windows := []window{
		{currentStart, nextStart},    // current month
		{prevStart, currentStart},    // previous month
		{beforePrevStart, prevStart}, // month before that
	}

	var students, enrollments, revenue [3]float64
	for i, w := range windows {
		userCount, err := s.repo.CountUsersCreatedBetween(ctx, w.from, w.to)
		if err != nil {
			return nil, fmt.Errorf("failed to count students in window: %w", err)
		}
		enrollCount, err := s.repo.CountEnrollmentsBetween(ctx, w.from, w.to)
		if err != nil {
			return nil, fmt.Errorf("failed to count enrollments in window: %w", err)
		}
		revenueSum, err := s.repo.SumRevenueBetween(ctx, w.from, w.to)
		if err != nil {
			return nil, fmt.Errorf("failed to sum revenue in window: %w", err)
		}
		students[i] = float64(userCount)
		enrollments[i] = float64(enrollCount)
		revenue[i] = float64(revenueSum)
	}

	return &domain.MonthlyGrowth{
		Students:    growthRate(students[0], students[1], students[2]),
		Revenue:     growthRate(revenue[0], revenue[1], revenue[2]),
		Enrollments: growthRate(enrollments[0], enrollments[1], enrollments[2]),
	}, nil
}

// DashboardStats assembles the admin dashboard payload: all-time totals, the
// growth block and the recent activity feed.
func (s *Service) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	totals, err := s.repo.PlatformTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform totals: %w", err)
	}
	growth, err := s.MonthlyGrowth(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentActivity(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	return &domain.DashboardStats{
		Totals:         *totals,
		Growth:         *growth,
		RecentActivity: recent,
	}, nil
}

// RecentActivity exposes the activity feed on its own for dashboard widgets
// that poll it more frequently than the full stats block.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]domain.Activity, error) {
	return s.repo.RecentActivity(ctx, limit)
}
