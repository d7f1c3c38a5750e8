package analytics

import (
	"io"
	"log/slog"
	"testing"
	"time"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/core/access"
	"github.com/expensio/expense-service/internal/expense"
	"github.com/expensio/expense-service/internal/user"
)

func TestAnalytics(t *testing.T) {
	RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Analytics Module Suite")
}

type mockDirectory struct {
	reports map[int64][]int64
}

func (m *mockDirectory) SubordinateIDs(managerID int64) ([]int64, error) {
	return m.reports[managerID], nil
}

type mockAnalyticsRepo struct {
	rows         []Row
	recent       []*expense.Expense
	lastOwnerIDs []int64
}

func (m *mockAnalyticsRepo) Rows(ownerIDs []int64, start, end *time.Time) ([]Row, error) {
	m.lastOwnerIDs = ownerIDs
	var out []Row
	for _, row := range m.rows {
		if len(ownerIDs) > 0 && !ownerInScope(ownerIDs, row.UserID) {
			continue
		}
		if start != nil && row.Date.Before(*start) {
			continue
		}
		if end != nil && row.Date.After(*end) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *mockAnalyticsRepo) Recent(ownerIDs []int64, limit int) ([]*expense.Expense, error) {
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func ownerInScope(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var _ = ginkgo.Describe("AnalyticsService", func() {
	var (
		service *Service
		repo    *mockAnalyticsRepo
		admin   *user.User
		manager *user.User
		alice   *user.User
		bob     *user.User
		now     time.Time
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ginkgo.BeforeEach(func() {
		now = time.Now()

		admin = &user.User{ID: 1, Role: access.RoleAdmin, IsActive: true}
		manager = &user.User{ID: 2, Role: access.RoleManager, IsActive: true}
		alice = &user.User{ID: 3, Role: access.RoleEmployee, IsActive: true}
		bob = &user.User{ID: 4, Role: access.RoleEmployee, IsActive: true}

		dir := &mockDirectory{reports: map[int64][]int64{manager.ID: {alice.ID}}}
		repo = &mockAnalyticsRepo{}
		service = NewService(repo, access.NewEvaluator(dir), testLogger)
	})

	ginkgo.Describe("Dashboard", func() {
		ginkgo.BeforeEach(func() {
			repo.rows = []Row{
				{ExpenseID: 1, UserID: alice.ID, UserName: "Alice Ann", CategoryID: 1, CategoryName: "Travel", Amount: amount("100.00"), Status: expense.StatusApproved, Date: now},
				{ExpenseID: 2, UserID: alice.ID, UserName: "Alice Ann", CategoryID: 2, CategoryName: "Meals", Amount: amount("60.00"), Status: expense.StatusPending, Date: now},
				{ExpenseID: 3, UserID: manager.ID, UserName: "Marta Manager", CategoryID: 1, CategoryName: "Travel", Amount: amount("40.00"), Status: expense.StatusPending, Date: now.AddDate(0, -2, 0)},
				{ExpenseID: 4, UserID: bob.ID, UserName: "Bob B", CategoryID: 2, CategoryName: "Meals", Amount: amount("999.00"), Status: expense.StatusApproved, Date: now},
			}
		})

		ginkgo.It("aggregates totals, month slice and pending backlog", func() {
			summary, err := service.Dashboard(manager, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(repo.lastOwnerIDs).To(ConsistOf(manager.ID, alice.ID))
			Expect(summary.TotalExpenses).To(Equal(int64(3)))
			Expect(summary.TotalAmount.Equal(amount("200"))).To(BeTrue())
			Expect(summary.MonthExpenses).To(Equal(int64(2)))
			Expect(summary.MonthAmount.Equal(amount("160"))).To(BeTrue())
			Expect(summary.PendingCount).To(Equal(int64(2)))
			Expect(summary.PendingAmount.Equal(amount("100"))).To(BeTrue())
		})

		ginkgo.It("computes the average spend per expense", func() {
			summary, err := service.Dashboard(manager, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.AverageAmount.Equal(amount("66.67"))).To(BeTrue())
		})

		ginkgo.It("narrows the summary to an explicit date range", func() {
			start := now.AddDate(0, -1, 0)
			end := now.AddDate(0, 0, 1)

			summary, err := service.Dashboard(manager, &start, &end)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.TotalExpenses).To(Equal(int64(2)))
			Expect(summary.TotalAmount.Equal(amount("160"))).To(BeTrue())
			Expect(summary.AverageAmount.Equal(amount("80"))).To(BeTrue())
		})

		ginkgo.It("ranks top categories with percentages over the listed slice", func() {
			summary, err := service.Dashboard(manager, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.TopCategories).To(HaveLen(2))
			Expect(summary.TopCategories[0].CategoryName).To(Equal("Travel"))
			Expect(summary.TopCategories[0].Total.Equal(amount("140"))).To(BeTrue())
			Expect(summary.TopCategories[0].Percentage).To(Equal(70.0))
			Expect(summary.TopCategories[1].Percentage).To(Equal(30.0))
		})

		ginkgo.It("zero-fills the monthly trend series", func() {
			summary, err := service.Dashboard(manager, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.MonthlyTrend).To(HaveLen(12))
			Expect(summary.MonthlyTrend[11].Month).To(Equal(now.Format("2006-01")))
			Expect(summary.MonthlyTrend[11].Total.Equal(amount("160"))).To(BeTrue())
			Expect(summary.MonthlyTrend[0].Total.IsZero()).To(BeTrue())
		})

		ginkgo.It("scopes employees to their own rows", func() {
			summary, err := service.Dashboard(alice, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastOwnerIDs).To(ConsistOf(alice.ID))
			Expect(summary.TotalExpenses).To(Equal(int64(2)))
		})
	})

	ginkgo.Describe("Report", func() {
		ginkgo.BeforeEach(func() {
			repo.rows = []Row{
				{ExpenseID: 1, UserID: alice.ID, UserName: "Alice Ann", CategoryID: 1, CategoryName: "Travel", Amount: amount("10.00"), Status: expense.StatusApproved, Date: now},
				{ExpenseID: 2, UserID: alice.ID, UserName: "Alice Ann", CategoryID: 1, CategoryName: "Travel", Amount: amount("30.00"), Status: expense.StatusPending, Date: now},
				{ExpenseID: 3, UserID: manager.ID, UserName: "Marta Manager", CategoryID: 2, CategoryName: "Meals", Amount: amount("20.00"), Status: expense.StatusPending, Date: now},
			}
		})

		ginkgo.It("groups by category with totals and averages", func() {
			report, err := service.Report(manager, ReportQuery{GroupBy: "category"})
			Expect(err).NotTo(HaveOccurred())

			Expect(report.GrandTotal.Equal(amount("60"))).To(BeTrue())
			Expect(report.Buckets).To(HaveLen(2))
			Expect(report.Buckets[0].Label).To(Equal("Travel"))
			Expect(report.Buckets[0].Total.Equal(amount("40"))).To(BeTrue())
			Expect(report.Buckets[0].Average.Equal(amount("20"))).To(BeTrue())
			Expect(report.Buckets[0].Count).To(Equal(int64(2)))
			Expect(report.Buckets[1].Label).To(Equal("Meals"))
		})

		ginkgo.It("tracks min and max amounts per bucket", func() {
			report, err := service.Report(manager, ReportQuery{GroupBy: "category"})
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Buckets[0].MinAmount.Equal(amount("10"))).To(BeTrue())
			Expect(report.Buckets[0].MaxAmount.Equal(amount("30"))).To(BeTrue())
			Expect(report.Buckets[1].MinAmount.Equal(amount("20"))).To(BeTrue())
			Expect(report.Buckets[1].MaxAmount.Equal(amount("20"))).To(BeTrue())
		})

		ginkgo.It("groups by user and by status", func() {
			byUser, err := service.Report(manager, ReportQuery{GroupBy: "user"})
			Expect(err).NotTo(HaveOccurred())
			Expect(byUser.Buckets).To(HaveLen(2))
			Expect(byUser.Buckets[0].Label).To(Equal("Alice Ann"))

			byStatus, err := service.Report(manager, ReportQuery{GroupBy: "status"})
			Expect(err).NotTo(HaveOccurred())
			Expect(byStatus.Buckets).To(HaveLen(2))
		})

		ginkgo.It("rejects an unsupported grouping", func() {
			_, err := service.Report(manager, ReportQuery{GroupBy: "vendor"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidGroupBy))
		})

		ginkgo.It("lets a manager narrow to one direct report but not beyond", func() {
			report, err := service.Report(manager, ReportQuery{GroupBy: "category", OwnerID: &alice.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastOwnerIDs).To(ConsistOf(alice.ID))
			Expect(report.GrandTotal.Equal(amount("40"))).To(BeTrue())

			_, err = service.Report(manager, ReportQuery{GroupBy: "category", OwnerID: &bob.ID})
			Expect(err).To(Equal(internal.ErrNotSubordinate))
		})
	})

	ginkgo.Describe("Trends", func() {
		ginkgo.It("compares the current window against the previous one", func() {
			repo.rows = []Row{
				{ExpenseID: 1, UserID: alice.ID, CategoryID: 1, Amount: amount("200.00"), Status: expense.StatusApproved, Date: now.AddDate(0, -1, 0)},
				{ExpenseID: 2, UserID: alice.ID, CategoryID: 1, Amount: amount("100.00"), Status: expense.StatusApproved, Date: now.AddDate(0, -14, 0)},
			}

			trend, err := service.Trends(alice, TrendQuery{Period: "monthly"})
			Expect(err).NotTo(HaveOccurred())
			Expect(trend.CurrentTotal.Equal(amount("200"))).To(BeTrue())
			Expect(trend.PreviousTotal.Equal(amount("100"))).To(BeTrue())
			Expect(trend.ChangePercent).To(Equal(100.0))
			Expect(trend.Points).To(HaveLen(1))
			Expect(trend.Points[0].Period).To(Equal(now.AddDate(0, -1, 0).Format("2006-01")))
		})

		ginkgo.It("rejects an unsupported period", func() {
			_, err := service.Trends(alice, TrendQuery{Period: "hourly"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidPeriod))
		})

		ginkgo.It("leaves the change at zero when there is no previous spend", func() {
			repo.rows = []Row{
				{ExpenseID: 1, UserID: alice.ID, CategoryID: 1, Amount: amount("50.00"), Status: expense.StatusApproved, Date: now},
			}

			trend, err := service.Trends(alice, TrendQuery{Period: "daily"})
			Expect(err).NotTo(HaveOccurred())
			Expect(trend.ChangePercent).To(BeZero())
		})
	})

	ginkgo.Describe("CategoryStats", func() {
		ginkgo.It("tracks min, max and average per category", func() {
			repo.rows = []Row{
				{ExpenseID: 1, UserID: alice.ID, CategoryID: 1, CategoryName: "Travel", Amount: amount("10.00"), Date: now},
				{ExpenseID: 2, UserID: alice.ID, CategoryID: 1, CategoryName: "Travel", Amount: amount("50.00"), Date: now},
				{ExpenseID: 3, UserID: alice.ID, CategoryID: 2, CategoryName: "Meals", Amount: amount("15.00"), Date: now},
			}

			stats, err := service.CategoryStats(alice, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(HaveLen(2))
			Expect(stats[0].CategoryName).To(Equal("Travel"))
			Expect(stats[0].MinAmount.Equal(amount("10"))).To(BeTrue())
			Expect(stats[0].MaxAmount.Equal(amount("50"))).To(BeTrue())
			Expect(stats[0].Average.Equal(amount("30"))).To(BeTrue())
		})
	})

	ginkgo.Describe("UserSummary", func() {
		ginkgo.BeforeEach(func() {
			repo.rows = []Row{
				{ExpenseID: 1, UserID: alice.ID, UserName: "Alice Ann", CategoryID: 1, Amount: amount("25.00"), Status: expense.StatusApproved, Date: now},
				{ExpenseID: 2, UserID: alice.ID, UserName: "Alice Ann", CategoryID: 2, Amount: amount("75.00"), Status: expense.StatusPending, Date: now},
			}
		})

		ginkgo.It("reports one subordinate's spending to their manager", func() {
			summary, err := service.UserSummary(manager, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.UserID).To(Equal(alice.ID))
			Expect(summary.UserName).To(Equal("Alice Ann"))
			Expect(summary.TotalAmount.Equal(amount("100"))).To(BeTrue())
			Expect(summary.TotalExpenses).To(Equal(int64(2)))
			Expect(summary.ByStatus).To(HaveLen(2))
		})

		ginkgo.It("denies a manager a summary of a non-report", func() {
			_, err := service.UserSummary(manager, bob.ID)
			Expect(err).To(Equal(internal.ErrNotSubordinate))
		})

		ginkgo.It("denies an employee a summary of anyone else", func() {
			_, err := service.UserSummary(alice, bob.ID)
			Expect(err).To(Equal(internal.ErrAccessDenied))
		})

		ginkgo.It("lets admins summarize anyone", func() {
			summary, err := service.UserSummary(admin, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastOwnerIDs).To(ConsistOf(alice.ID))
			Expect(summary.TotalExpenses).To(Equal(int64(2)))
		})
	})
})
