package user

import (
	"strings"
	"time"

	"github.com/expensio/expense-service/internal/core/access"
)

// User is a member of the organization tree. ManagerID, when set, points
// at the user's direct manager; the tree is effectively two levels deep
// (employee -> manager, admins see everything).
type User struct {
	ID              int64        `json:"id" gorm:"primaryKey"`
	FirstName       string       `json:"first_name" gorm:"column:first_name;not null"`
	LastName        string       `json:"last_name" gorm:"column:last_name"`
	Email           string       `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash    string       `json:"-" gorm:"column:password_hash;not null"`
	Role            access.Role  `json:"role" gorm:"type:varchar(20);default:employee"`
	Department      string       `json:"department"`
	EmployeeID      *string      `json:"employee_id,omitempty" gorm:"column:employee_id;uniqueIndex"`
	ManagerID       *int64       `json:"manager_id,omitempty" gorm:"column:manager_id"`
	IsActive        bool         `json:"is_active" gorm:"column:is_active;default:true"`
	IsEmailVerified bool         `json:"is_email_verified" gorm:"column:is_email_verified;default:false"`
	LastLoginAt     *time.Time   `json:"last_login_at,omitempty" gorm:"column:last_login_at"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Actor converts the user to the evaluator's view of it.
func (u *User) Actor() access.Actor {
	return access.Actor{ID: u.ID, Role: u.Role}
}

func (u *User) IsAdmin() bool {
	return u.Role == access.RoleAdmin
}

func (u *User) IsManager() bool {
	return u.Role == access.RoleManager
}

func (u *User) IsActiveUser() bool {
	return u.IsActive
}
