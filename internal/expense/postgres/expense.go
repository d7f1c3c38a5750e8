package postgres

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/expensio/expense-service/internal/expense"
)

// ExpenseRepository implements the expense.Repository interface using GORM.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

var expenseSortColumns = map[string]string{
	"date":       "date",
	"amount":     "amount",
	"title":      "title",
	"status":     "status",
	"created_at": "created_at",
}

func (r *ExpenseRepository) Create(e *expense.Expense) error {
	return r.db.Create(e).Error
}

func (r *ExpenseRepository) GetByID(id int64) (*expense.Expense, error) {
	var e expense.Expense
	err := r.db.Preload("Receipts").Where("id = ?", id).First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// List applies the query filters inside the given owner set and returns
// the page plus count and amount totals over the whole filtered set.
// An empty ownerIDs slice means no owner restriction.
func (r *ExpenseRepository) List(ownerIDs []int64, q expense.ListExpensesQuery) ([]*expense.Expense, int64, expense.ListSummary, error) {
	var summary expense.ListSummary

	tx := r.filtered(ownerIDs, q)

	if err := tx.Count(&summary.TotalExpenses).Error; err != nil {
		return nil, 0, summary, err
	}

	var sum struct {
		Total decimal.Decimal
	}
	if err := r.filtered(ownerIDs, q).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&sum).Error; err != nil {
		return nil, 0, summary, err
	}
	summary.TotalAmount = sum.Total

	column, ok := expenseSortColumns[q.SortBy]
	if !ok {
		column = "date"
	}
	order := column + " DESC"
	if q.SortOrder == "asc" {
		order = column + " ASC"
	}

	var expenses []*expense.Expense
	err := r.filtered(ownerIDs, q).
		Preload("Receipts").
		Order(order).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&expenses).Error
	return expenses, summary.TotalExpenses, summary, err
}

func (r *ExpenseRepository) filtered(ownerIDs []int64, q expense.ListExpensesQuery) *gorm.DB {
	tx := r.db.Model(&expense.Expense{})

	if len(ownerIDs) > 0 {
		tx = tx.Where("user_id IN ?", ownerIDs)
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		tx = tx.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(vendor) LIKE ? OR LOWER(location) LIKE ?",
			pattern, pattern, pattern, pattern)
	}
	if q.CategoryID != nil {
		tx = tx.Where("category_id = ?", *q.CategoryID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.PaymentMethod != "" {
		tx = tx.Where("payment_method = ?", q.PaymentMethod)
	}
	if q.StartDate != nil {
		tx = tx.Where("date >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		tx = tx.Where("date <= ?", *q.EndDate)
	}
	if q.MinAmount != nil {
		tx = tx.Where("amount >= ?", *q.MinAmount)
	}
	if q.MaxAmount != nil {
		tx = tx.Where("amount <= ?", *q.MaxAmount)
	}

	return tx
}

func (r *ExpenseRepository) Update(e *expense.Expense) error {
	e.UpdatedAt = time.Now()
	return r.db.Omit("Receipts").Save(e).Error
}

// ReplaceReceipts swaps the stored receipt set for the expense. Runs in a
// transaction so a failed insert never leaves the expense receiptless.
func (r *ExpenseRepository) ReplaceReceipts(expenseID int64, receipts []expense.Receipt) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", expenseID).Delete(&expense.Receipt{}).Error; err != nil {
			return err
		}
		if len(receipts) == 0 {
			return nil
		}
		for i := range receipts {
			receipts[i].ID = 0
			receipts[i].ExpenseID = expenseID
		}
		return tx.Create(&receipts).Error
	})
}

func (r *ExpenseRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", id).Delete(&expense.Receipt{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&expense.Expense{}).Error
	})
}
