package category

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/expensio/expense-service/internal"
)

var hexColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

type CreateCategoryDTO struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Color         string           `json:"color"`
	Icon          string           `json:"icon"`
	MonthlyBudget *decimal.Decimal `json:"monthly_budget,omitempty"`
	YearlyBudget  *decimal.Decimal `json:"yearly_budget,omitempty"`
}

func (dto *CreateCategoryDTO) Validate() error {
	var errs []internal.ValidationError

	dto.Name = strings.TrimSpace(dto.Name)
	if dto.Name == "" {
		errs = append(errs, internal.ValidationError{Field: "name", Message: "category name is required"})
	}
	if len(dto.Name) > 100 {
		errs = append(errs, internal.ValidationError{Field: "name", Message: "category name cannot exceed 100 characters"})
	}
	if len(dto.Description) > 500 {
		errs = append(errs, internal.ValidationError{Field: "description", Message: "description cannot exceed 500 characters"})
	}
	if dto.Color != "" && !hexColorPattern.MatchString(dto.Color) {
		errs = append(errs, internal.ValidationError{Field: "color", Message: "color must be a hex value"})
	}
	if dto.MonthlyBudget != nil && dto.MonthlyBudget.IsNegative() {
		errs = append(errs, internal.ValidationError{Field: "monthly_budget", Message: "budget cannot be negative"})
	}
	if dto.YearlyBudget != nil && dto.YearlyBudget.IsNegative() {
		errs = append(errs, internal.ValidationError{Field: "yearly_budget", Message: "budget cannot be negative"})
	}

	if len(errs) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: errs})
	}
	return nil
}

// UpdateCategoryDTO uses pointers so absent fields are left unchanged.
type UpdateCategoryDTO struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Color         *string          `json:"color,omitempty"`
	Icon          *string          `json:"icon,omitempty"`
	MonthlyBudget *decimal.Decimal `json:"monthly_budget,omitempty"`
	YearlyBudget  *decimal.Decimal `json:"yearly_budget,omitempty"`
}

func (dto *UpdateCategoryDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "category name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Color != nil && *dto.Color != "" && !hexColorPattern.MatchString(*dto.Color) {
		return internal.NewValidationFieldError("color", "color must be a hex value", internal.ErrCodeValidationFailed)
	}
	return nil
}

type ListCategoriesQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

func (q *ListCategoriesQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}
	if q.SortBy == "" {
		q.SortBy = "name"
	}
	if q.SortOrder != "desc" {
		q.SortOrder = "asc"
	}
}

type ListCategoriesResponse struct {
	Categories []*Category         `json:"categories"`
	Pagination internal.Pagination `json:"pagination"`
}
