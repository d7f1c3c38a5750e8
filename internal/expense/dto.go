package expense

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensio/expense-service/internal"
)

var supportedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "INR": true,
	"CAD": true, "AUD": true, "JPY": true,
}

var paymentMethods = map[string]bool{
	"cash": true, "credit_card": true, "debit_card": true,
	"bank_transfer": true, "check": true, "digital_wallet": true, "other": true,
}

type CreateExpenseDTO struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CategoryID    int64           `json:"category_id"`
	Date          time.Time       `json:"date"`
	PaymentMethod string          `json:"payment_method"`
	Vendor        string          `json:"vendor"`
	Location      string          `json:"location"`
	Tags          []string        `json:"tags"`
}

func (dto *CreateExpenseDTO) Validate() error {
	var errs []internal.ValidationError

	dto.Title = strings.TrimSpace(dto.Title)
	dto.Currency = strings.ToUpper(strings.TrimSpace(dto.Currency))
	if dto.Currency == "" {
		dto.Currency = "USD"
	}
	if dto.PaymentMethod == "" {
		dto.PaymentMethod = "cash"
	}

	if dto.Title == "" {
		errs = append(errs, internal.ValidationError{Field: "title", Message: "expense title is required"})
	}
	if len(dto.Title) > 200 {
		errs = append(errs, internal.ValidationError{Field: "title", Message: "title cannot exceed 200 characters"})
	}
	if len(dto.Description) > 1000 {
		errs = append(errs, internal.ValidationError{Field: "description", Message: "description cannot exceed 1000 characters"})
	}
	if !dto.Amount.IsPositive() {
		errs = append(errs, internal.ValidationError{Field: "amount", Message: "amount must be greater than 0", Code: string(internal.ErrCodeInvalidAmount)})
	}
	if !supportedCurrencies[dto.Currency] {
		errs = append(errs, internal.ValidationError{Field: "currency", Message: "unsupported currency"})
	}
	if dto.CategoryID <= 0 {
		errs = append(errs, internal.ValidationError{Field: "category_id", Message: "category is required", Code: string(internal.ErrCodeInvalidCategory)})
	}
	if dto.Date.IsZero() {
		errs = append(errs, internal.ValidationError{Field: "date", Message: "expense date is required", Code: string(internal.ErrCodeInvalidDate)})
	} else if dto.Date.After(time.Now()) {
		errs = append(errs, internal.ValidationError{Field: "date", Message: "expense date cannot be in the future", Code: string(internal.ErrCodeInvalidDate)})
	}
	if !paymentMethods[dto.PaymentMethod] {
		errs = append(errs, internal.ValidationError{Field: "payment_method", Message: "unsupported payment method"})
	}
	for _, tag := range dto.Tags {
		if len(tag) > 50 {
			errs = append(errs, internal.ValidationError{Field: "tags", Message: "tag cannot exceed 50 characters"})
			break
		}
	}

	if len(errs) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: errs})
	}
	return nil
}

// UpdateExpenseDTO uses pointers so absent fields are left unchanged.
// Owner and status are never updatable through the payload.
type UpdateExpenseDTO struct {
	Title         *string          `json:"title,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	Date          *time.Time       `json:"date,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	Vendor        *string          `json:"vendor,omitempty"`
	Location      *string          `json:"location,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
}

func (dto *UpdateExpenseDTO) Validate() error {
	var errs []internal.ValidationError

	if dto.Title != nil {
		trimmed := strings.TrimSpace(*dto.Title)
		if trimmed == "" {
			errs = append(errs, internal.ValidationError{Field: "title", Message: "expense title cannot be empty"})
		}
		if len(trimmed) > 200 {
			errs = append(errs, internal.ValidationError{Field: "title", Message: "title cannot exceed 200 characters"})
		}
		*dto.Title = trimmed
	}
	if dto.Amount != nil && !dto.Amount.IsPositive() {
		errs = append(errs, internal.ValidationError{Field: "amount", Message: "amount must be greater than 0", Code: string(internal.ErrCodeInvalidAmount)})
	}
	if dto.Currency != nil {
		upper := strings.ToUpper(strings.TrimSpace(*dto.Currency))
		if !supportedCurrencies[upper] {
			errs = append(errs, internal.ValidationError{Field: "currency", Message: "unsupported currency"})
		}
		*dto.Currency = upper
	}
	if dto.Date != nil && dto.Date.After(time.Now()) {
		errs = append(errs, internal.ValidationError{Field: "date", Message: "expense date cannot be in the future", Code: string(internal.ErrCodeInvalidDate)})
	}
	if dto.PaymentMethod != nil && !paymentMethods[*dto.PaymentMethod] {
		errs = append(errs, internal.ValidationError{Field: "payment_method", Message: "unsupported payment method"})
	}

	if len(errs) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: errs})
	}
	return nil
}

type RejectExpenseDTO struct {
	Reason string `json:"reason"`
}

// ListExpensesQuery mirrors the list endpoint's query parameters. OwnerID
// is the explicit target user, validated against the actor's scope.
type ListExpensesQuery struct {
	Page          int
	Limit         int
	Search        string
	CategoryID    *int64
	Status        string
	PaymentMethod string
	StartDate     *time.Time
	EndDate       *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	OwnerID       *int64
	SortBy        string
	SortOrder     string
}

func (q *ListExpensesQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}
	if q.SortBy == "" {
		q.SortBy = "date"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
}

// ListSummary totals the filtered set before pagination.
type ListSummary struct {
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalExpenses int64           `json:"total_expenses"`
}

type ListExpensesResponse struct {
	Expenses   []*Expense          `json:"expenses"`
	Pagination internal.Pagination `json:"pagination"`
	Summary    ListSummary         `json:"summary"`
}
