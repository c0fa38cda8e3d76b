package domain

// MonthlyGrowth holds the month-over-month percentage deltas shown on the
// operator dashboard. Each value is a signed percentage rounded to two
// decimal places.
type MonthlyGrowth struct {
	Students    float64 `json:"students"`
	Revenue     float64 `json:"revenue"`
	Enrollments float64 `json:"enrollments"`
}

// PlatformTotals are the all-time aggregate figures for the dashboard.
type PlatformTotals struct {
	Students     int64 `json:"students"`
	Courses      int64 `json:"courses"`
	Enrollments  int64 `json:"enrollments"`
	TotalRevenue int64 `json:"total_revenue"` // in cents
}

// DashboardStats is the admin stats response: totals, the growth block and
// the recent activity feed.
type DashboardStats struct {
	Totals         PlatformTotals `json:"totals"`
	Growth         MonthlyGrowth  `json:"growth"`
	RecentActivity []Activity     `json:"recent_activity"`
}
