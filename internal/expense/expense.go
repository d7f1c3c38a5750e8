package expense

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensio/expense-service/internal"
)

type Status string

const (
	// StatusPending is the initial state of every submitted expense.
	StatusPending Status = "pending"
	// StatusApproved is terminal: the record becomes immutable.
	StatusApproved Status = "approved"
	// StatusRejected may return to pending when the owner edits.
	StatusRejected Status = "rejected"
	// StatusProcessing is entered only through the external reimbursement
	// lane, never via approve/reject.
	StatusProcessing Status = "processing"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusProcessing:
		return true
	}
	return false
}

// Receipt holds attachment metadata. File content lives in the external
// file store; Path is the store's handle.
type Receipt struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	ExpenseID    int64     `json:"-" gorm:"column:expense_id;not null;index"`
	Filename     string    `json:"filename" gorm:"not null"`
	OriginalName string    `json:"original_name" gorm:"column:original_name;not null"`
	MimeType     string    `json:"mime_type" gorm:"column:mime_type;not null"`
	Size         int64     `json:"size" gorm:"not null"`
	Path         string    `json:"path" gorm:"not null"`
	UploadedAt   time.Time `json:"uploaded_at" gorm:"column:uploaded_at"`
}

func (Receipt) TableName() string {
	return "expense_receipts"
}

type Expense struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	UserID          int64           `json:"user_id" gorm:"column:user_id;not null;index"`
	CategoryID      int64           `json:"category_id" gorm:"column:category_id;not null;index"`
	Title           string          `json:"title" gorm:"not null"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Currency        string          `json:"currency" gorm:"type:varchar(3);default:USD"`
	Date            time.Time       `json:"date" gorm:"not null;index"`
	PaymentMethod   string          `json:"payment_method" gorm:"column:payment_method;default:cash"`
	Vendor          string          `json:"vendor"`
	Location        string          `json:"location"`
	Tags            []string        `json:"tags" gorm:"serializer:json"`
	Receipts        []Receipt       `json:"receipts" gorm:"foreignKey:ExpenseID"`
	Status          Status          `json:"status" gorm:"type:varchar(20);default:pending;index"`
	ApprovedByID    *int64          `json:"approved_by,omitempty" gorm:"column:approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty" gorm:"column:approved_at"`
	RejectionReason *string         `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

// Mutable reports whether edits and deletes are still allowed. Approved is
// the only terminal state.
func (e *Expense) Mutable() bool {
	return e.Status != StatusApproved
}

// Approve transitions to approved. It is guarded, not idempotent:
// approving an already-approved expense is an InvalidState error.
func (e *Expense) Approve(approverID int64) error {
	if e.Status == StatusApproved {
		return internal.ErrAlreadyApproved
	}
	now := time.Now()
	e.Status = StatusApproved
	e.ApprovedByID = &approverID
	e.ApprovedAt = &now
	e.RejectionReason = nil
	e.UpdatedAt = now
	return nil
}

// Reject transitions to rejected with a mandatory reason. Approved
// expenses cannot be rejected.
func (e *Expense) Reject(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return internal.ErrMissingReason
	}
	if e.Status == StatusApproved {
		return internal.NewInvalidStateError("cannot reject an approved expense", internal.ErrCodeExpenseImmutable)
	}
	e.Status = StatusRejected
	e.RejectionReason = &reason
	e.ApprovedByID = nil
	e.ApprovedAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// BeginEdit prepares the entity for a field update: a rejected expense
// returns to pending and loses its rejection reason, pending stays
// pending. The caller must have checked Mutable first.
func (e *Expense) BeginEdit() {
	if e.Status == StatusRejected {
		e.Status = StatusPending
		e.RejectionReason = nil
	}
	e.UpdatedAt = time.Now()
}

// MarkProcessing moves a pending expense into the external reimbursement
// lane. No approve/reject transition crosses into processing.
func (e *Expense) MarkProcessing() error {
	if e.Status != StatusPending {
		return internal.NewInvalidStateError("only pending expenses can enter processing", internal.ErrCodeExpenseImmutable)
	}
	e.Status = StatusProcessing
	e.UpdatedAt = time.Now()
	return nil
}
