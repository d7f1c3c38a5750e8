package postgres

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/expensio/expense-service/internal/category"
)

// CategoryRepository implements the category.RepositoryAPI interface using GORM.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

var categorySortColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (r *CategoryRepository) List(q category.ListCategoriesQuery) ([]*category.Category, int64, error) {
	tx := r.db.Model(&category.Category{}).Where("is_active = ?", true)

	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := categorySortColumns[q.SortBy]
	if !ok {
		column = "name"
	}
	order := column + " ASC"
	if q.SortOrder == "desc" {
		order = column + " DESC"
	}

	var categories []*category.Category
	err := tx.Order(order).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&categories).Error
	return categories, total, err
}

func (r *CategoryRepository) GetByID(id int64) (*category.Category, error) {
	var c category.Category
	err := r.db.Where("id = ?", id).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) GetByName(name string) (*category.Category, error) {
	var c category.Category
	err := r.db.Where("LOWER(name) = ?", strings.ToLower(name)).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) Create(c *category.Category) error {
	return r.db.Create(c).Error
}

func (r *CategoryRepository) Update(c *category.Category) error {
	c.UpdatedAt = time.Now()
	return r.db.Save(c).Error
}

func (r *CategoryRepository) Deactivate(id int64) error {
	return r.db.Model(&category.Category{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}

// ExpenseCount counts referencing expenses in any status; the referential
// guard in the service depends on it.
func (r *CategoryRepository) ExpenseCount(id int64) (int64, error) {
	var count int64
	err := r.db.Table("expenses").Where("category_id = ?", id).Count(&count).Error
	return count, err
}
