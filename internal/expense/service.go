package expense

import (
	"context"
	"log/slog"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/category"
	"github.com/expensio/expense-service/internal/core/access"
	"github.com/expensio/expense-service/internal/core/events"
	"github.com/expensio/expense-service/internal/user"
)

// Repository defines the data access methods for expenses.
type Repository interface {
	Create(e *Expense) error
	GetByID(id int64) (*Expense, error)
	List(ownerIDs []int64, q ListExpensesQuery) ([]*Expense, int64, ListSummary, error)
	Update(e *Expense) error
	Delete(id int64) error
	// ReplaceReceipts persists the receipt set alongside the expense row.
	ReplaceReceipts(expenseID int64, receipts []Receipt) error
}

// FileStore is the slice of the external file store the ledger needs:
// releasing content whose metadata it drops.
type FileStore interface {
	Release(path string) (bool, error)
}

// UserDirectory resolves expense owners for approval checks.
type UserDirectory interface {
	GetByID(id int64) (*user.User, error)
}

// CategoryRegistry validates category references on create and edit.
type CategoryRegistry interface {
	GetActive(id int64) (*category.Category, error)
}

// Service handles expense business logic: every operation resolves the
// actor's scope first, then runs the status state machine, then persists.
type Service struct {
	repo       Repository
	evaluator  *access.Evaluator
	users      UserDirectory
	categories CategoryRegistry
	files      FileStore
	bus        *events.EventBus
	logger     *slog.Logger
}

func NewService(
	repo Repository,
	evaluator *access.Evaluator,
	users UserDirectory,
	categories CategoryRegistry,
	files FileStore,
	bus *events.EventBus,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		evaluator:  evaluator,
		users:      users,
		categories: categories,
		files:      files,
		bus:        bus,
		logger:     logger,
	}
}

// List returns the expenses inside the actor's scope matching the
// filters, with totals computed over the filtered set before pagination.
func (s *Service) List(actor *user.User, q ListExpensesQuery) (*ListExpensesResponse, error) {
	q.Normalize()

	scope, err := s.evaluator.ComputeScope(actor.Actor(), q.OwnerID)
	if err != nil {
		s.logger.Warn("expense list scope denied",
			"actor_id", actor.ID, "role", actor.Role, "requested_owner", q.OwnerID)
		return nil, err
	}

	expenses, total, summary, err := s.repo.List(scope.OwnerIDs, q)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to list expenses", err)
	}

	return &ListExpensesResponse{
		Expenses:   expenses,
		Pagination: internal.NewPagination(q.Page, q.Limit, total),
		Summary:    summary,
	}, nil
}

// Get fetches one expense with the read-access rule from listing: the
// owner must be inside the actor's scope.
func (s *Service) Get(actor *user.User, id int64) (*Expense, error) {
	e, err := s.fetch(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.evaluator.ComputeScope(actor.Actor(), &e.UserID); err != nil {
		s.logger.Warn("expense read denied", "expense_id", id, "actor_id", actor.ID, "owner_id", e.UserID)
		return nil, err
	}
	return e, nil
}

// Create submits a new expense. The owner is always the actor and the
// status always starts pending, whatever the payload claims. Attachments
// were already accepted by the file store; they are released again if
// anything later fails.
func (s *Service) Create(actor *user.User, dto CreateExpenseDTO, attachments []Receipt) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.releaseFiles(attachments)
		return nil, err
	}

	if _, err := s.categories.GetActive(dto.CategoryID); err != nil {
		s.releaseFiles(attachments)
		return nil, err
	}

	e := &Expense{
		UserID:        actor.ID,
		CategoryID:    dto.CategoryID,
		Title:         dto.Title,
		Description:   dto.Description,
		Amount:        dto.Amount,
		Currency:      dto.Currency,
		Date:          dto.Date,
		PaymentMethod: dto.PaymentMethod,
		Vendor:        dto.Vendor,
		Location:      dto.Location,
		Tags:          dto.Tags,
		Receipts:      attachments,
		Status:        StatusPending,
	}

	if err := s.repo.Create(e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", actor.ID)
		s.releaseFiles(attachments)
		return nil, internal.NewInternalError("failed to create expense", err)
	}

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"user_id", actor.ID,
		"amount", e.Amount,
		"category_id", e.CategoryID)
	return e, nil
}

// Update edits a mutable expense. A rejected expense returns to pending
// and loses its rejection reason. Removed receipts are released from the
// file store, new ones appended.
func (s *Service) Update(actor *user.User, id int64, dto UpdateExpenseDTO, newAttachments []Receipt, removeReceiptIDs []int64) (*Expense, error) {
	e, err := s.fetch(id)
	if err != nil {
		s.releaseFiles(newAttachments)
		return nil, err
	}

	if !access.CanMutate(actor.Actor(), e.UserID) {
		s.releaseFiles(newAttachments)
		s.logger.Warn("expense update denied", "expense_id", id, "actor_id", actor.ID)
		return nil, internal.ErrAccessDenied
	}
	if !e.Mutable() {
		s.releaseFiles(newAttachments)
		return nil, internal.ErrExpenseApproved
	}
	if err := dto.Validate(); err != nil {
		s.releaseFiles(newAttachments)
		return nil, err
	}

	if dto.CategoryID != nil && *dto.CategoryID != e.CategoryID {
		if _, err := s.categories.GetActive(*dto.CategoryID); err != nil {
			s.releaseFiles(newAttachments)
			return nil, err
		}
		e.CategoryID = *dto.CategoryID
	}

	// Drop the receipts the caller removed, keep the rest, append new.
	var kept []Receipt
	var released []Receipt
	for _, r := range e.Receipts {
		if containsID(removeReceiptIDs, r.ID) {
			released = append(released, r)
		} else {
			kept = append(kept, r)
		}
	}
	e.Receipts = append(kept, newAttachments...)

	e.BeginEdit()
	applyUpdates(e, dto)

	if err := s.repo.Update(e); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		s.releaseFiles(newAttachments)
		return nil, internal.NewInternalError("failed to update expense", err)
	}
	if err := s.repo.ReplaceReceipts(e.ID, e.Receipts); err != nil {
		s.logger.Error("failed to persist receipts", "error", err, "expense_id", id)
		return nil, internal.NewInternalError("failed to update expense", err)
	}

	// Only after the edit persisted do the removed files actually go.
	s.releaseFiles(released)

	s.logger.Info("expense updated", "expense_id", id, "actor_id", actor.ID, "status", e.Status)
	return e, nil
}

// Delete removes a mutable expense and releases its attachments.
func (s *Service) Delete(actor *user.User, id int64) error {
	e, err := s.fetch(id)
	if err != nil {
		return err
	}
	if !access.CanMutate(actor.Actor(), e.UserID) {
		s.logger.Warn("expense delete denied", "expense_id", id, "actor_id", actor.ID)
		return internal.ErrAccessDenied
	}
	if !e.Mutable() {
		return internal.ErrExpenseApproved
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return internal.NewInternalError("failed to delete expense", err)
	}

	s.releaseFiles(e.Receipts)

	s.logger.Info("expense deleted", "expense_id", id, "actor_id", actor.ID)
	return nil
}

// Approve transitions a subordinate's expense to approved. Admins may
// approve anyone's.
func (s *Service) Approve(actor *user.User, id int64) (*Expense, error) {
	e, err := s.fetch(id)
	if err != nil {
		return nil, err
	}

	owner, err := s.owner(e.UserID)
	if err != nil {
		return nil, err
	}
	if !access.CanApprove(actor.Actor(), owner.ManagerID) {
		s.logger.Warn("expense approve denied",
			"expense_id", id, "actor_id", actor.ID, "owner_id", owner.ID)
		return nil, internal.ErrCannotApprove
	}

	if err := e.Approve(actor.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(e); err != nil {
		s.logger.Error("failed to persist approval", "error", err, "expense_id", id)
		return nil, internal.NewInternalError("failed to approve expense", err)
	}

	s.logger.Info("expense approved",
		"expense_id", id, "approver_id", actor.ID, "owner_id", owner.ID, "amount", e.Amount)

	s.bus.Publish(context.Background(),
		events.NewExpenseApprovedEvent(e.ID, e.Title, e.Amount, e.Currency, owner.ID, actor.ID))

	return e, nil
}

// Reject transitions to rejected with a mandatory reason.
func (s *Service) Reject(actor *user.User, id int64, reason string) (*Expense, error) {
	if reason == "" {
		return nil, internal.ErrMissingReason
	}

	e, err := s.fetch(id)
	if err != nil {
		return nil, err
	}

	owner, err := s.owner(e.UserID)
	if err != nil {
		return nil, err
	}
	if !access.CanApprove(actor.Actor(), owner.ManagerID) {
		s.logger.Warn("expense reject denied",
			"expense_id", id, "actor_id", actor.ID, "owner_id", owner.ID)
		return nil, internal.ErrCannotApprove
	}

	if err := e.Reject(reason); err != nil {
		return nil, err
	}
	if err := s.repo.Update(e); err != nil {
		s.logger.Error("failed to persist rejection", "error", err, "expense_id", id)
		return nil, internal.NewInternalError("failed to reject expense", err)
	}

	s.logger.Info("expense rejected",
		"expense_id", id, "actor_id", actor.ID, "owner_id", owner.ID, "reason", reason)

	s.bus.Publish(context.Background(),
		events.NewExpenseRejectedEvent(e.ID, e.Title, owner.ID, reason))

	return e, nil
}

// MarkProcessing is the entry point for the external reimbursement
// integration; it is not reachable through approve or reject.
func (s *Service) MarkProcessing(id int64) (*Expense, error) {
	e, err := s.fetch(id)
	if err != nil {
		return nil, err
	}
	if err := e.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(e); err != nil {
		return nil, internal.NewInternalError("failed to update expense", err)
	}
	s.logger.Info("expense entered processing", "expense_id", id)
	return e, nil
}

func (s *Service) fetch(id int64) (*Expense, error) {
	e, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get expense", "error", err, "expense_id", id)
		return nil, internal.NewInternalError("failed to get expense", err)
	}
	if e == nil {
		return nil, internal.ErrExpenseNotFound
	}
	return e, nil
}

func (s *Service) owner(id int64) (*user.User, error) {
	owner, err := s.users.GetByID(id)
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve expense owner", err)
	}
	if owner == nil {
		return nil, internal.ErrUserNotFound
	}
	return owner, nil
}

// releaseFiles best-effort releases attachment content; the ledger never
// fails an operation because cleanup failed.
func (s *Service) releaseFiles(receipts []Receipt) {
	for _, r := range receipts {
		if _, err := s.files.Release(r.Path); err != nil {
			s.logger.Error("failed to release receipt file", "error", err, "path", r.Path)
		}
	}
}

func applyUpdates(e *Expense, dto UpdateExpenseDTO) {
	if dto.Title != nil {
		e.Title = *dto.Title
	}
	if dto.Description != nil {
		e.Description = *dto.Description
	}
	if dto.Amount != nil {
		e.Amount = *dto.Amount
	}
	if dto.Currency != nil {
		e.Currency = *dto.Currency
	}
	if dto.Date != nil {
		e.Date = *dto.Date
	}
	if dto.PaymentMethod != nil {
		e.PaymentMethod = *dto.PaymentMethod
	}
	if dto.Vendor != nil {
		e.Vendor = *dto.Vendor
	}
	if dto.Location != nil {
		e.Location = *dto.Location
	}
	if dto.Tags != nil {
		e.Tags = dto.Tags
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
