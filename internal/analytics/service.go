package analytics

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/core/access"
	"github.com/expensio/expense-service/internal/expense"
	"github.com/expensio/expense-service/internal/user"
)

const (
	topCategoryLimit  = 5
	recentLimit       = 10
	trendMonths       = 12
	dailyLookbackDays = 30
	weeklyLookback    = 12
	yearlyLookback    = 5
)

// Repository provides the raw projections the aggregations run over.
type Repository interface {
	Rows(ownerIDs []int64, start, end *time.Time) ([]Row, error)
	Recent(ownerIDs []int64, limit int) ([]*expense.Expense, error)
}

// Service computes every aggregate in memory with decimal arithmetic so
// money totals never pass through floating point.
type Service struct {
	repo      Repository
	evaluator *access.Evaluator
	logger    *slog.Logger
}

func NewService(repo Repository, evaluator *access.Evaluator, logger *slog.Logger) *Service {
	return &Service{repo: repo, evaluator: evaluator, logger: logger}
}

// Dashboard assembles the landing-page summary for the actor's scope,
// optionally narrowed to a date range.
func (s *Service) Dashboard(actor *user.User, start, end *time.Time) (*DashboardSummary, error) {
	scope, err := s.evaluator.ComputeScope(actor.Actor(), nil)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Rows(scope.OwnerIDs, start, end)
	if err != nil {
		s.logger.Error("failed to load analytics rows", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to build dashboard", err)
	}

	recent, err := s.repo.Recent(scope.OwnerIDs, recentLimit)
	if err != nil {
		s.logger.Error("failed to load recent expenses", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to build dashboard", err)
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	summary := &DashboardSummary{
		TopCategories:      topCategories(rows, topCategoryLimit),
		MonthlyTrend:       monthlyTrend(rows, now, trendMonths),
		StatusDistribution: statusDistribution(rows),
		RecentExpenses:     recent,
	}

	for _, row := range rows {
		summary.TotalAmount = summary.TotalAmount.Add(row.Amount)
		summary.TotalExpenses++
		if !row.Date.Before(monthStart) {
			summary.MonthAmount = summary.MonthAmount.Add(row.Amount)
			summary.MonthExpenses++
		}
		if row.Status == expense.StatusPending {
			summary.PendingCount++
			summary.PendingAmount = summary.PendingAmount.Add(row.Amount)
		}
	}
	if summary.TotalExpenses > 0 {
		summary.AverageAmount = summary.TotalAmount.
			Div(decimal.NewFromInt(summary.TotalExpenses)).
			Round(2)
	}

	return summary, nil
}

// Report groups scoped expenses by one of the supported dimensions.
func (s *Service) Report(actor *user.User, q ReportQuery) (*Report, error) {
	keyFn, labelFn, err := groupers(q.GroupBy)
	if err != nil {
		return nil, err
	}

	scope, err := s.evaluator.ComputeScope(actor.Actor(), q.OwnerID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Rows(scope.OwnerIDs, q.StartDate, q.EndDate)
	if err != nil {
		s.logger.Error("failed to load analytics rows", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to build report", err)
	}

	buckets := map[string]*ReportBucket{}
	var order []string
	report := &Report{GroupBy: q.GroupBy, StartDate: q.StartDate, EndDate: q.EndDate}

	for _, row := range rows {
		key := keyFn(row)
		b, ok := buckets[key]
		if !ok {
			b = &ReportBucket{
				Key:       key,
				Label:     labelFn(row),
				MinAmount: row.Amount,
				MaxAmount: row.Amount,
			}
			buckets[key] = b
			order = append(order, key)
		}
		b.Total = b.Total.Add(row.Amount)
		b.Count++
		if row.Amount.GreaterThan(b.MaxAmount) {
			b.MaxAmount = row.Amount
		}
		if row.Amount.LessThan(b.MinAmount) {
			b.MinAmount = row.Amount
		}
		report.GrandTotal = report.GrandTotal.Add(row.Amount)
	}

	report.Buckets = make([]ReportBucket, 0, len(buckets))
	for _, key := range order {
		b := buckets[key]
		b.Average = b.Total.Div(decimal.NewFromInt(b.Count)).Round(2)
		report.Buckets = append(report.Buckets, *b)
	}
	sort.Slice(report.Buckets, func(i, j int) bool {
		return report.Buckets[i].Total.GreaterThan(report.Buckets[j].Total)
	})

	return report, nil
}

// Trends buckets scoped spending by period and compares the window to
// the equally sized one before it.
func (s *Service) Trends(actor *user.User, q TrendQuery) (*Trend, error) {
	bucketFn, windowStart, err := trendWindow(q.Period, time.Now())
	if err != nil {
		return nil, err
	}

	scope, err := s.evaluator.ComputeScope(actor.Actor(), q.OwnerID)
	if err != nil {
		return nil, err
	}

	// Pull twice the window so the previous period is covered too.
	now := time.Now()
	previousStart := windowStart.Add(-now.Sub(windowStart))
	rows, err := s.repo.Rows(scope.OwnerIDs, &previousStart, nil)
	if err != nil {
		s.logger.Error("failed to load analytics rows", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to build trend", err)
	}

	trend := &Trend{Period: q.Period}
	points := map[string]*TrendPoint{}
	var order []string

	for _, row := range rows {
		if row.Date.Before(windowStart) {
			trend.PreviousTotal = trend.PreviousTotal.Add(row.Amount)
			continue
		}
		trend.CurrentTotal = trend.CurrentTotal.Add(row.Amount)

		key := bucketFn(row.Date)
		p, ok := points[key]
		if !ok {
			p = &TrendPoint{Period: key}
			points[key] = p
			order = append(order, key)
		}
		p.Total = p.Total.Add(row.Amount)
		p.Count++
	}

	sort.Strings(order)
	trend.Points = make([]TrendPoint, 0, len(order))
	for _, key := range order {
		trend.Points = append(trend.Points, *points[key])
	}

	if trend.PreviousTotal.IsPositive() {
		change, _ := trend.CurrentTotal.Sub(trend.PreviousTotal).
			Div(trend.PreviousTotal).
			Mul(decimal.NewFromInt(100)).
			Round(2).
			Float64()
		trend.ChangePercent = change
	}

	return trend, nil
}

// CategoryStats is the full per-category breakdown for the actor's scope.
func (s *Service) CategoryStats(actor *user.User, start, end *time.Time) ([]CategoryStat, error) {
	scope, err := s.evaluator.ComputeScope(actor.Actor(), nil)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Rows(scope.OwnerIDs, start, end)
	if err != nil {
		s.logger.Error("failed to load analytics rows", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to build category stats", err)
	}

	stats := map[int64]*CategoryStat{}
	var order []int64
	for _, row := range rows {
		st, ok := stats[row.CategoryID]
		if !ok {
			st = &CategoryStat{
				CategoryID:   row.CategoryID,
				CategoryName: row.CategoryName,
				MaxAmount:    row.Amount,
				MinAmount:    row.Amount,
			}
			stats[row.CategoryID] = st
			order = append(order, row.CategoryID)
		}
		st.Total = st.Total.Add(row.Amount)
		st.Count++
		if row.Amount.GreaterThan(st.MaxAmount) {
			st.MaxAmount = row.Amount
		}
		if row.Amount.LessThan(st.MinAmount) {
			st.MinAmount = row.Amount
		}
	}

	result := make([]CategoryStat, 0, len(order))
	for _, id := range order {
		st := stats[id]
		st.Average = st.Total.Div(decimal.NewFromInt(st.Count)).Round(2)
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Total.GreaterThan(result[j].Total)
	})
	return result, nil
}

// UserSummary reports one user's spending, visible only when that user is
// inside the actor's scope.
func (s *Service) UserSummary(actor *user.User, userID int64) (*UserSummary, error) {
	scope, err := s.evaluator.ComputeScope(actor.Actor(), &userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Rows(scope.OwnerIDs, nil, nil)
	if err != nil {
		s.logger.Error("failed to load analytics rows", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to build user summary", err)
	}

	summary := &UserSummary{
		UserID:       userID,
		ByStatus:     statusDistribution(rows),
		MonthlyTrend: monthlyTrend(rows, time.Now(), trendMonths),
	}
	for _, row := range rows {
		summary.UserName = row.UserName
		summary.TotalAmount = summary.TotalAmount.Add(row.Amount)
		summary.TotalExpenses++
	}
	return summary, nil
}

func groupers(groupBy string) (func(Row) string, func(Row) string, error) {
	switch groupBy {
	case "category":
		return func(r Row) string { return fmt.Sprintf("%d", r.CategoryID) },
			func(r Row) string { return r.CategoryName }, nil
	case "user":
		return func(r Row) string { return fmt.Sprintf("%d", r.UserID) },
			func(r Row) string { return r.UserName }, nil
	case "month":
		key := func(r Row) string { return r.Date.Format("2006-01") }
		return key, key, nil
	case "status":
		key := func(r Row) string { return string(r.Status) }
		return key, key, nil
	}
	return nil, nil, internal.NewValidationError(
		"group_by must be one of category, user, month, status",
		internal.ErrCodeInvalidGroupBy)
}

func trendWindow(period string, now time.Time) (func(time.Time) string, time.Time, error) {
	switch period {
	case "daily":
		return func(t time.Time) string { return t.Format("2006-01-02") },
			now.AddDate(0, 0, -dailyLookbackDays), nil
	case "weekly":
		bucket := func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%d-W%02d", year, week)
		}
		return bucket, now.AddDate(0, 0, -7*weeklyLookback), nil
	case "monthly":
		return func(t time.Time) string { return t.Format("2006-01") },
			now.AddDate(0, -trendMonths, 0), nil
	case "yearly":
		return func(t time.Time) string { return t.Format("2006") },
			now.AddDate(-yearlyLookback, 0, 0), nil
	}
	return nil, time.Time{}, internal.NewValidationError(
		"period must be one of daily, weekly, monthly, yearly",
		internal.ErrCodeInvalidPeriod)
}

// topCategories ranks categories by total and normalizes percentages
// over the sum of the returned slice.
func topCategories(rows []Row, limit int) []CategoryShare {
	shares := map[int64]*CategoryShare{}
	var order []int64
	for _, row := range rows {
		sh, ok := shares[row.CategoryID]
		if !ok {
			sh = &CategoryShare{CategoryID: row.CategoryID, CategoryName: row.CategoryName}
			shares[row.CategoryID] = sh
			order = append(order, row.CategoryID)
		}
		sh.Total = sh.Total.Add(row.Amount)
		sh.Count++
	}

	ranked := make([]CategoryShare, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *shares[id])
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Total.GreaterThan(ranked[j].Total)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	var top decimal.Decimal
	for _, sh := range ranked {
		top = top.Add(sh.Total)
	}
	if top.IsPositive() {
		for i := range ranked {
			pct, _ := ranked[i].Total.
				Div(top).
				Mul(decimal.NewFromInt(100)).
				Round(2).
				Float64()
			ranked[i].Percentage = pct
		}
	}
	return ranked
}

// monthlyTrend produces one point per month for the trailing window,
// zero-filled so the series has no gaps.
func monthlyTrend(rows []Row, now time.Time, months int) []MonthlyTotal {
	totals := map[string]*MonthlyTotal{}
	series := make([]MonthlyTotal, 0, months)

	cursor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(months - 1), 0)
	for i := 0; i < months; i++ {
		key := cursor.Format("2006-01")
		series = append(series, MonthlyTotal{Month: key})
		totals[key] = &series[len(series)-1]
		cursor = cursor.AddDate(0, 1, 0)
	}

	for _, row := range rows {
		if t, ok := totals[row.Date.Format("2006-01")]; ok {
			t.Total = t.Total.Add(row.Amount)
			t.Count++
		}
	}
	return series
}

func statusDistribution(rows []Row) []StatusCount {
	counts := map[expense.Status]*StatusCount{}
	var order []expense.Status
	for _, row := range rows {
		c, ok := counts[row.Status]
		if !ok {
			c = &StatusCount{Status: row.Status}
			counts[row.Status] = c
			order = append(order, row.Status)
		}
		c.Count++
		c.Total = c.Total.Add(row.Amount)
	}

	result := make([]StatusCount, 0, len(order))
	for _, st := range order {
		result = append(result, *counts[st])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Status < result[j].Status
	})
	return result
}
