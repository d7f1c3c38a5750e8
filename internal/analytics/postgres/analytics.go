package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/expensio/expense-service/internal/analytics"
	"github.com/expensio/expense-service/internal/expense"
)

// AnalyticsRepository implements the analytics.Repository interface using
// GORM, joining in user and category names for labeling.
type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) analytics.Repository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Rows(ownerIDs []int64, start, end *time.Time) ([]analytics.Row, error) {
	tx := r.db.Table("expenses").
		Select(`expenses.id AS expense_id,
			expenses.user_id,
			users.first_name || ' ' || users.last_name AS user_name,
			expenses.category_id,
			categories.name AS category_name,
			expenses.amount,
			expenses.status,
			expenses.date`).
		Joins("JOIN users ON users.id = expenses.user_id").
		Joins("JOIN categories ON categories.id = expenses.category_id")

	if len(ownerIDs) > 0 {
		tx = tx.Where("expenses.user_id IN ?", ownerIDs)
	}
	if start != nil {
		tx = tx.Where("expenses.date >= ?", *start)
	}
	if end != nil {
		tx = tx.Where("expenses.date <= ?", *end)
	}

	var rows []analytics.Row
	err := tx.Order("expenses.date ASC").Scan(&rows).Error
	return rows, err
}

func (r *AnalyticsRepository) Recent(ownerIDs []int64, limit int) ([]*expense.Expense, error) {
	tx := r.db.Model(&expense.Expense{})
	if len(ownerIDs) > 0 {
		tx = tx.Where("user_id IN ?", ownerIDs)
	}

	var expenses []*expense.Expense
	err := tx.Order("created_at DESC").Limit(limit).Find(&expenses).Error
	return expenses, err
}
