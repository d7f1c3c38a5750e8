package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expensio/expense-service/internal/core/events"
	"github.com/expensio/expense-service/internal/user"
)

// UserDirectory resolves recipients by ID.
type UserDirectory interface {
	GetByID(id int64) (*user.User, error)
}

// EventHandler turns domain events into notifications.
type EventHandler struct {
	notifier Notifier
	users    UserDirectory
	logger   *slog.Logger
}

func NewEventHandler(notifier Notifier, users UserDirectory, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		notifier: notifier,
		users:    users,
		logger:   logger,
	}
}

// Register subscribes the handler to the events it cares about.
func (h *EventHandler) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeExpenseApproved, h.handleExpenseApproved)
	bus.Subscribe(events.EventTypeExpenseRejected, h.handleExpenseRejected)
	bus.Subscribe(events.EventTypeUserCreated, h.handleUserCreated)
}

func (h *EventHandler) resolveRecipient(id int64) (*user.User, error) {
	owner, err := h.users.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient %d: %w", id, err)
	}
	if owner == nil {
		return nil, fmt.Errorf("recipient %d not found", id)
	}
	return owner, nil
}

func (h *EventHandler) handleExpenseApproved(_ context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseApprovedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	owner, err := h.resolveRecipient(e.OwnerID)
	if err != nil {
		return err
	}

	return h.notifier.Notify(owner.Email, TemplateExpenseApproved, map[string]interface{}{
		"expense_id": e.ExpenseID,
		"title":      e.Title,
		"amount":     e.Amount.StringFixed(2),
		"currency":   e.Currency,
	})
}

func (h *EventHandler) handleExpenseRejected(_ context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseRejectedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	owner, err := h.resolveRecipient(e.OwnerID)
	if err != nil {
		return err
	}

	return h.notifier.Notify(owner.Email, TemplateExpenseRejected, map[string]interface{}{
		"expense_id": e.ExpenseID,
		"title":      e.Title,
		"reason":     e.Reason,
	})
}

func (h *EventHandler) handleUserCreated(_ context.Context, event events.Event) error {
	e, ok := event.(*events.UserCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	return h.notifier.Notify(e.Email, TemplateWelcome, map[string]interface{}{
		"name": e.Name,
	})
}
