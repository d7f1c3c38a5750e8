package category

import (
	"log/slog"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/user"
)

// RepositoryAPI defines the data access methods for categories. GetByName
// returns (nil, nil) when nothing matches.
type RepositoryAPI interface {
	List(q ListCategoriesQuery) ([]*Category, int64, error)
	GetByID(id int64) (*Category, error)
	GetByName(name string) (*Category, error)
	Create(c *Category) error
	Update(c *Category) error
	Deactivate(id int64) error
	// ExpenseCount counts expenses referencing the category, in any status.
	ExpenseCount(id int64) (int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(q ListCategoriesQuery) (*ListCategoriesResponse, error) {
	q.Normalize()

	categories, total, err := s.repo.List(q)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		return nil, internal.NewInternalError("failed to list categories", err)
	}
	return &ListCategoriesResponse{
		Categories: categories,
		Pagination: internal.NewPagination(q.Page, q.Limit, total),
	}, nil
}

func (s *Service) Get(id int64) (*Category, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get category", err)
	}
	if c == nil || !c.IsActive {
		return nil, internal.ErrCategoryNotFound
	}
	return c, nil
}

// GetActive validates a category reference for expense creation: it must
// exist and be active.
func (s *Service) GetActive(id int64) (*Category, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get category", err)
	}
	if c == nil || !c.IsActive {
		return nil, internal.ErrInvalidCategory
	}
	return c, nil
}

func (s *Service) Create(actor *user.User, dto CreateCategoryDTO) (*Category, error) {
	if !actor.IsAdmin() && !actor.IsManager() {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("failed to check category name", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError("category with this name already exists", internal.ErrCodeDuplicateCategoryName)
	}

	c := &Category{
		Name:          dto.Name,
		Description:   dto.Description,
		Color:         dto.Color,
		Icon:          dto.Icon,
		MonthlyBudget: dto.MonthlyBudget,
		YearlyBudget:  dto.YearlyBudget,
		IsActive:      true,
		CreatedByID:   actor.ID,
	}
	if c.Color == "" {
		c.Color = "#007bff"
	}

	if err := s.repo.Create(c); err != nil {
		s.logger.Error("failed to create category", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create category", err)
	}

	s.logger.Info("category created", "category_id", c.ID, "name", c.Name, "created_by", actor.ID)
	return c, nil
}

func (s *Service) Update(actor *user.User, id int64, dto UpdateCategoryDTO) (*Category, error) {
	if !actor.IsAdmin() && !actor.IsManager() {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get category", err)
	}
	if c == nil || !c.IsActive {
		return nil, internal.ErrCategoryNotFound
	}

	if dto.Name != nil && *dto.Name != c.Name {
		dup, err := s.repo.GetByName(*dto.Name)
		if err != nil {
			return nil, internal.NewInternalError("failed to check category name", err)
		}
		if dup != nil && dup.ID != id {
			return nil, internal.NewConflictError("category with this name already exists", internal.ErrCodeDuplicateCategoryName)
		}
		c.Name = *dto.Name
	}
	if dto.Description != nil {
		c.Description = *dto.Description
	}
	if dto.Color != nil {
		c.Color = *dto.Color
	}
	if dto.Icon != nil {
		c.Icon = *dto.Icon
	}
	if dto.MonthlyBudget != nil {
		c.MonthlyBudget = dto.MonthlyBudget
	}
	if dto.YearlyBudget != nil {
		c.YearlyBudget = dto.YearlyBudget
	}

	if err := s.repo.Update(c); err != nil {
		s.logger.Error("failed to update category", "error", err, "category_id", id)
		return nil, internal.NewInternalError("failed to update category", err)
	}

	s.logger.Info("category updated", "category_id", id, "updated_by", actor.ID)
	return c, nil
}

// Delete soft-deletes a category, refusing while any expense still
// references it so existing records never dangle.
func (s *Service) Delete(actor *user.User, id int64) error {
	if !actor.IsAdmin() {
		return internal.ErrAccessDenied
	}

	c, err := s.repo.GetByID(id)
	if err != nil {
		return internal.NewInternalError("failed to get category", err)
	}
	if c == nil || !c.IsActive {
		return internal.ErrCategoryNotFound
	}

	count, err := s.repo.ExpenseCount(id)
	if err != nil {
		return internal.NewInternalError("failed to count category expenses", err)
	}
	if count > 0 {
		s.logger.Warn("category delete blocked", "category_id", id, "expense_count", count)
		return internal.ErrCategoryInUse
	}

	if err := s.repo.Deactivate(id); err != nil {
		s.logger.Error("failed to delete category", "error", err, "category_id", id)
		return internal.NewInternalError("failed to delete category", err)
	}

	s.logger.Info("category deleted", "category_id", id, "deleted_by", actor.ID)
	return nil
}
