package category

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is a named, soft-deletable expense classification. Expenses
// keep a foreign key to it, so a referenced category can never be deleted.
type Category struct {
	ID            int64            `json:"id" gorm:"primaryKey"`
	Name          string           `json:"name" gorm:"uniqueIndex;not null"`
	Description   string           `json:"description"`
	Color         string           `json:"color" gorm:"default:#007bff"`
	Icon          string           `json:"icon"`
	MonthlyBudget *decimal.Decimal `json:"monthly_budget,omitempty" gorm:"column:monthly_budget;type:numeric(14,2)"`
	YearlyBudget  *decimal.Decimal `json:"yearly_budget,omitempty" gorm:"column:yearly_budget;type:numeric(14,2)"`
	IsActive      bool             `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedByID   int64            `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) IsActiveCategory() bool {
	return c.IsActive
}

func (c *Category) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now()
}
