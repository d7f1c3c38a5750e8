package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/expensio/expense-service/internal/expense"
)

func TestExpensePostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Repository Suite")
}

var _ = Describe("ExpenseRepository", func() {
	var (
		db   *gorm.DB
		repo expense.Repository
	)

	newExpense := func(ownerID, categoryID int64, title string, amount string, status expense.Status, date time.Time) *expense.Expense {
		return &expense.Expense{
			UserID:     ownerID,
			CategoryID: categoryID,
			Title:      title,
			Amount:     decimal.RequireFromString(amount),
			Currency:   "USD",
			Date:       date,
			Status:     status,
		}
	}

	listQuery := func() expense.ListExpensesQuery {
		q := expense.ListExpensesQuery{}
		q.Normalize()
		return q
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(db.AutoMigrate(&expense.Expense{}, &expense.Receipt{})).To(Succeed())

		repo = NewExpenseRepository(db)
	})

	Describe("Create and GetByID", func() {
		It("round-trips an expense with its receipts", func() {
			e := newExpense(1, 1, "Client dinner", "84.50", expense.StatusPending, time.Now())
			e.Receipts = []expense.Receipt{
				{Filename: "a.pdf", OriginalName: "dinner.pdf", MimeType: "application/pdf", Size: 1024, Path: "/tmp/a.pdf", UploadedAt: time.Now()},
			}
			Expect(repo.Create(e)).To(Succeed())
			Expect(e.ID).NotTo(BeZero())

			got, err := repo.GetByID(e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Client dinner"))
			Expect(got.Amount.Equal(decimal.RequireFromString("84.50"))).To(BeTrue())
			Expect(got.Receipts).To(HaveLen(1))
			Expect(got.Receipts[0].OriginalName).To(Equal("dinner.pdf"))
		})

		It("returns nil, nil for an unknown id", func() {
			got, err := repo.GetByID(4040)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			now := time.Now()
			Expect(repo.Create(newExpense(1, 1, "Taxi to airport", "10.50", expense.StatusPending, now.AddDate(0, 0, -3)))).To(Succeed())
			Expect(repo.Create(newExpense(1, 2, "Team lunch", "20.25", expense.StatusApproved, now.AddDate(0, 0, -2)))).To(Succeed())
			Expect(repo.Create(newExpense(2, 1, "Hotel night", "150.00", expense.StatusPending, now.AddDate(0, 0, -1)))).To(Succeed())
			Expect(repo.Create(newExpense(3, 2, "Office snacks", "5.00", expense.StatusRejected, now))).To(Succeed())
		})

		It("restricts to the given owner set", func() {
			expenses, total, summary, err := repo.List([]int64{1}, listQuery())
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
			Expect(expenses).To(HaveLen(2))
			Expect(summary.TotalAmount.Equal(decimal.RequireFromString("30.75"))).To(BeTrue())
		})

		It("applies no owner restriction for an empty set", func() {
			_, total, _, err := repo.List(nil, listQuery())
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(4)))
		})

		It("filters by status and category", func() {
			q := listQuery()
			q.Status = string(expense.StatusPending)
			_, total, _, err := repo.List(nil, q)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))

			catID := int64(2)
			q = listQuery()
			q.CategoryID = &catID
			_, total, _, err = repo.List(nil, q)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
		})

		It("searches text fields case-insensitively", func() {
			q := listQuery()
			q.Search = "LUNCH"
			expenses, total, _, err := repo.List(nil, q)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(expenses[0].Title).To(Equal("Team lunch"))
		})

		It("filters by amount range", func() {
			min := decimal.RequireFromString("10.00")
			max := decimal.RequireFromString("100.00")
			q := listQuery()
			q.MinAmount = &min
			q.MaxAmount = &max
			_, total, _, err := repo.List(nil, q)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
		})

		It("filters by date range", func() {
			start := time.Now().AddDate(0, 0, -1).Add(-time.Hour)
			q := listQuery()
			q.StartDate = &start
			_, total, _, err := repo.List(nil, q)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
		})

		It("sorts by amount when asked and falls back to date for unknown columns", func() {
			q := listQuery()
			q.SortBy = "amount"
			q.SortOrder = "asc"
			expenses, _, _, err := repo.List(nil, q)
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses[0].Title).To(Equal("Office snacks"))
			Expect(expenses[3].Title).To(Equal("Hotel night"))

			q = listQuery()
			q.SortBy = "drop table"
			expenses, _, _, err = repo.List(nil, q)
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses[0].Title).To(Equal("Office snacks"))
		})

		It("totals the whole filtered set regardless of pagination", func() {
			q := listQuery()
			q.Limit = 2
			expenses, total, summary, err := repo.List(nil, q)
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(2))
			Expect(total).To(Equal(int64(4)))
			Expect(summary.TotalExpenses).To(Equal(int64(4)))
			Expect(summary.TotalAmount.Equal(decimal.RequireFromString("185.75"))).To(BeTrue())
		})
	})

	Describe("Update", func() {
		It("persists field changes without touching receipts", func() {
			e := newExpense(1, 1, "Draft", "10.00", expense.StatusPending, time.Now())
			e.Receipts = []expense.Receipt{
				{Filename: "r.png", OriginalName: "r.png", MimeType: "image/png", Size: 10, Path: "/tmp/r.png", UploadedAt: time.Now()},
			}
			Expect(repo.Create(e)).To(Succeed())

			e.Title = "Final"
			e.Amount = decimal.RequireFromString("12.00")
			Expect(repo.Update(e)).To(Succeed())

			got, err := repo.GetByID(e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Final"))
			Expect(got.Receipts).To(HaveLen(1))
		})
	})

	Describe("ReplaceReceipts", func() {
		var e *expense.Expense

		BeforeEach(func() {
			e = newExpense(1, 1, "With receipts", "10.00", expense.StatusPending, time.Now())
			e.Receipts = []expense.Receipt{
				{Filename: "old.png", OriginalName: "old.png", MimeType: "image/png", Size: 10, Path: "/tmp/old.png", UploadedAt: time.Now()},
			}
			Expect(repo.Create(e)).To(Succeed())
		})

		It("swaps the stored set", func() {
			err := repo.ReplaceReceipts(e.ID, []expense.Receipt{
				{Filename: "new1.png", OriginalName: "new1.png", MimeType: "image/png", Size: 11, Path: "/tmp/new1.png", UploadedAt: time.Now()},
				{Filename: "new2.png", OriginalName: "new2.png", MimeType: "image/png", Size: 12, Path: "/tmp/new2.png", UploadedAt: time.Now()},
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := repo.GetByID(e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Receipts).To(HaveLen(2))
			Expect(got.Receipts[0].Filename).To(Equal("new1.png"))
		})

		It("clears the set when given nothing", func() {
			Expect(repo.ReplaceReceipts(e.ID, nil)).To(Succeed())

			got, err := repo.GetByID(e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Receipts).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		It("removes the expense together with its receipts", func() {
			e := newExpense(1, 1, "Doomed", "10.00", expense.StatusPending, time.Now())
			e.Receipts = []expense.Receipt{
				{Filename: "r.png", OriginalName: "r.png", MimeType: "image/png", Size: 10, Path: "/tmp/r.png", UploadedAt: time.Now()},
			}
			Expect(repo.Create(e)).To(Succeed())

			Expect(repo.Delete(e.ID)).To(Succeed())

			got, err := repo.GetByID(e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())

			var count int64
			Expect(db.Model(&expense.Receipt{}).Where("expense_id = ?", e.ID).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})
	})
})
