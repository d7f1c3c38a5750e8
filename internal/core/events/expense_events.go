package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeExpenseApproved = "expense.approved"
	EventTypeExpenseRejected = "expense.rejected"
	EventTypeUserCreated     = "user.created"
)

type ExpenseApprovedEvent struct {
	BaseEvent
	ExpenseID  int64           `json:"expense_id"`
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OwnerID    int64           `json:"owner_id"`
	ApproverID int64           `json:"approver_id"`
}

func NewExpenseApprovedEvent(expenseID int64, title string, amount decimal.Decimal, currency string, ownerID, approverID int64) *ExpenseApprovedEvent {
	return &ExpenseApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":  expenseID,
				"title":       title,
				"amount":      amount.String(),
				"currency":    currency,
				"owner_id":    ownerID,
				"approver_id": approverID,
			},
		},
		ExpenseID:  expenseID,
		Title:      title,
		Amount:     amount,
		Currency:   currency,
		OwnerID:    ownerID,
		ApproverID: approverID,
	}
}

type ExpenseRejectedEvent struct {
	BaseEvent
	ExpenseID int64  `json:"expense_id"`
	Title     string `json:"title"`
	OwnerID   int64  `json:"owner_id"`
	Reason    string `json:"reason"`
}

func NewExpenseRejectedEvent(expenseID int64, title string, ownerID int64, reason string) *ExpenseRejectedEvent {
	return &ExpenseRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id": expenseID,
				"title":      title,
				"owner_id":   ownerID,
				"reason":     reason,
			},
		},
		ExpenseID: expenseID,
		Title:     title,
		OwnerID:   ownerID,
		Reason:    reason,
	}
}

type UserCreatedEvent struct {
	BaseEvent
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func NewUserCreatedEvent(userID int64, email, name string) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUserCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"email":   email,
				"name":    name,
			},
		},
		UserID: userID,
		Email:  email,
		Name:   name,
	}
}
