package postgres

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/expensio/expense-service/internal/user"
)

// UserRepository implements the user.Repository interface using GORM.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *user.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var u user.User
	err := r.db.Where("email = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmployeeID(employeeID string) (*user.User, error) {
	var u user.User
	err := r.db.Where("employee_id = ?", employeeID).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// userSortColumns whitelists sortable fields; anything else falls back to
// first_name.
var userSortColumns = map[string]string{
	"first_name":  "first_name",
	"last_name":   "last_name",
	"email":       "email",
	"role":        "role",
	"department":  "department",
	"employee_id": "employee_id",
	"created_at":  "created_at",
}

// List returns active users matching the query, restricted to ownerIDs
// when non-empty.
func (r *UserRepository) List(q user.ListUsersQuery, ownerIDs []int64) ([]*user.User, int64, error) {
	tx := r.db.Model(&user.User{}).Where("is_active = ?", true)

	if len(ownerIDs) > 0 {
		tx = tx.Where("id IN ?", ownerIDs)
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		tx = tx.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(COALESCE(employee_id, '')) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if q.Role != "" {
		tx = tx.Where("role = ?", q.Role)
	}
	if q.Department != "" {
		tx = tx.Where("LOWER(department) LIKE ?", "%"+strings.ToLower(q.Department)+"%")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := userSortColumns[q.SortBy]
	if !ok {
		column = "first_name"
	}
	order := column + " ASC"
	if q.SortOrder == "desc" {
		order = column + " DESC"
	}

	var users []*user.User
	err := tx.Order(order).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&users).Error
	return users, total, err
}

func (r *UserRepository) Update(u *user.User) error {
	u.UpdatedAt = time.Now()
	return r.db.Save(u).Error
}

func (r *UserRepository) Deactivate(id int64) error {
	return r.db.Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}

func (r *UserRepository) Subordinates(managerID int64) ([]*user.User, error) {
	var users []*user.User
	err := r.db.Where("manager_id = ? AND is_active = ?", managerID, true).
		Order("first_name ASC").
		Find(&users).Error
	return users, err
}

// SubordinateIDs also satisfies access.Directory.
func (r *UserRepository) SubordinateIDs(managerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&user.User{}).
		Where("manager_id = ? AND is_active = ?", managerID, true).
		Pluck("id", &ids).Error
	return ids, err
}
