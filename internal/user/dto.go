package user

import (
	"net/mail"
	"strings"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/core/access"
)

// CreateUserDTO is the admin-create payload. Registration goes through the
// auth package; both end up in Service.Create.
type CreateUserDTO struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Role       string  `json:"role"`
	Department string  `json:"department"`
	EmployeeID *string `json:"employee_id,omitempty"`
	ManagerID  *int64  `json:"manager_id,omitempty"`
}

func (dto *CreateUserDTO) Validate() error {
	var errs []internal.ValidationError

	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	dto.FirstName = strings.TrimSpace(dto.FirstName)
	dto.LastName = strings.TrimSpace(dto.LastName)

	if dto.FirstName == "" {
		errs = append(errs, internal.ValidationError{Field: "first_name", Message: "first name is required"})
	}
	if len(dto.FirstName) > 50 || len(dto.LastName) > 50 {
		errs = append(errs, internal.ValidationError{Field: "first_name", Message: "name cannot exceed 50 characters"})
	}
	if _, err := mail.ParseAddress(dto.Email); err != nil {
		errs = append(errs, internal.ValidationError{Field: "email", Message: "a valid email is required"})
	}
	if len(dto.Password) < 6 {
		errs = append(errs, internal.ValidationError{Field: "password", Message: "password must be at least 6 characters"})
	}
	if dto.Role == "" {
		dto.Role = string(access.RoleEmployee)
	}
	if _, err := access.ParseRole(dto.Role); err != nil {
		errs = append(errs, internal.ValidationError{Field: "role", Message: "role must be employee, manager or admin"})
	}

	if len(errs) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: errs})
	}
	return nil
}

// UpdateUserDTO carries admin updates. Password changes are not accepted
// through this path. Nil pointers mean "leave unchanged".
type UpdateUserDTO struct {
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	EmployeeID *string `json:"employee_id,omitempty"`
	ManagerID  *int64  `json:"manager_id,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

func (dto *UpdateUserDTO) Validate() error {
	if dto.Role != nil {
		if _, err := access.ParseRole(*dto.Role); err != nil {
			return internal.NewValidationFieldError("role", "role must be employee, manager or admin", internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

// ListUsersQuery mirrors the list endpoint's query parameters.
type ListUsersQuery struct {
	Page       int
	Limit      int
	Search     string
	Role       string
	Department string
	SortBy     string
	SortOrder  string
}

func (q *ListUsersQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}
	if q.SortBy == "" {
		q.SortBy = "first_name"
	}
	if q.SortOrder != "desc" {
		q.SortOrder = "asc"
	}
}

type UserResponse struct {
	*User
	Manager      *UserRef `json:"manager,omitempty"`
	Subordinates []UserRef `json:"subordinates,omitempty"`
}

// UserRef is the compact embedded form used when a user appears inside
// another record (manager reference, approver, report rows).
type UserRef struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
}

func NewUserRef(u *User) UserRef {
	return UserRef{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
	}
}

type ListUsersResponse struct {
	Users      []*User             `json:"users"`
	Pagination internal.Pagination `json:"pagination"`
}
