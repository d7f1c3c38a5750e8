package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensio/expense-service/internal/expense"
)

// Row is the flat expense projection the aggregations run over. The
// repository joins in the display names so the service never reaches
// back into other packages for labels.
type Row struct {
	ExpenseID    int64
	UserID       int64
	UserName     string
	CategoryID   int64
	CategoryName string
	Amount       decimal.Decimal
	Status       expense.Status
	Date         time.Time
}

// CategoryShare is one slice of the dashboard's top-category breakdown.
// Percentage is computed over the sum of the listed categories, not the
// grand total, so the listed shares always add up to 100.
type CategoryShare struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
	Percentage   float64         `json:"percentage"`
}

type MonthlyTotal struct {
	Month string          `json:"month"` // YYYY-MM
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

type StatusCount struct {
	Status expense.Status  `json:"status"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// DashboardSummary is the landing-page aggregate for the actor's scope.
type DashboardSummary struct {
	TotalAmount        decimal.Decimal    `json:"total_amount"`
	TotalExpenses      int64              `json:"total_expenses"`
	AverageAmount      decimal.Decimal    `json:"average_amount"`
	MonthAmount        decimal.Decimal    `json:"month_amount"`
	MonthExpenses      int64              `json:"month_expenses"`
	PendingCount       int64              `json:"pending_count"`
	PendingAmount      decimal.Decimal    `json:"pending_amount"`
	TopCategories      []CategoryShare    `json:"top_categories"`
	MonthlyTrend       []MonthlyTotal     `json:"monthly_trend"`
	StatusDistribution []StatusCount      `json:"status_distribution"`
	RecentExpenses     []*expense.Expense `json:"recent_expenses"`
}

// ReportQuery selects the grouping dimension and window for a report.
type ReportQuery struct {
	GroupBy   string // category, user, month, status
	StartDate *time.Time
	EndDate   *time.Time
	OwnerID   *int64
}

type ReportBucket struct {
	Key       string          `json:"key"`
	Label     string          `json:"label"`
	Total     decimal.Decimal `json:"total"`
	Count     int64           `json:"count"`
	Average   decimal.Decimal `json:"average"`
	MinAmount decimal.Decimal `json:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

type Report struct {
	GroupBy    string          `json:"group_by"`
	StartDate  *time.Time      `json:"start_date,omitempty"`
	EndDate    *time.Time      `json:"end_date,omitempty"`
	Buckets    []ReportBucket  `json:"buckets"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// TrendQuery selects the bucketing period. Each period implies its own
// lookback window.
type TrendQuery struct {
	Period  string // daily, weekly, monthly, yearly
	OwnerID *int64
}

type TrendPoint struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
	Count  int64           `json:"count"`
}

// Trend carries the bucketed series plus a comparison of the current
// window against the equally sized window before it.
type Trend struct {
	Period        string          `json:"period"`
	Points        []TrendPoint    `json:"points"`
	CurrentTotal  decimal.Decimal `json:"current_total"`
	PreviousTotal decimal.Decimal `json:"previous_total"`
	ChangePercent float64         `json:"change_percent"`
}

// CategoryStat has the full per-category breakdown, unlike the
// dashboard's top-N slice.
type CategoryStat struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
	Average      decimal.Decimal `json:"average"`
	MaxAmount    decimal.Decimal `json:"max_amount"`
	MinAmount    decimal.Decimal `json:"min_amount"`
}

// UserSummary is a manager's per-report view of one user's spending.
type UserSummary struct {
	UserID        int64           `json:"user_id"`
	UserName      string          `json:"user_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalExpenses int64           `json:"total_expenses"`
	ByStatus      []StatusCount   `json:"by_status"`
	MonthlyTrend  []MonthlyTotal  `json:"monthly_trend"`
}
