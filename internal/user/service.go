package user

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/core/access"
	"github.com/expensio/expense-service/internal/core/events"
)

// Repository defines the data access methods for users. Lookups by unique
// field return (nil, nil) when nothing matches.
type Repository interface {
	Create(u *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByEmployeeID(employeeID string) (*User, error)
	List(q ListUsersQuery, ownerIDs []int64) ([]*User, int64, error)
	Update(u *User) error
	Deactivate(id int64) error
	Subordinates(managerID int64) ([]*User, error)
	SubordinateIDs(managerID int64) ([]int64, error)
}

type Service struct {
	repo       Repository
	evaluator  *access.Evaluator
	bus        *events.EventBus
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, evaluator *access.Evaluator, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		evaluator:  evaluator,
		bus:        bus,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
}

// List returns the directory page the actor may see: admins everyone,
// managers themselves plus direct reports. Employees have no directory
// access.
func (s *Service) List(actor *User, q ListUsersQuery) (*ListUsersResponse, error) {
	q.Normalize()

	scope, err := s.evaluator.ComputeScope(actor.Actor(), nil)
	if err != nil {
		return nil, err
	}
	if scope.Mode == access.ScopeSelf {
		s.logger.Warn("user list denied", "actor_id", actor.ID, "role", actor.Role)
		return nil, internal.ErrAccessDenied
	}

	users, total, err := s.repo.List(q, scope.OwnerIDs)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}

	return &ListUsersResponse{
		Users:      users,
		Pagination: internal.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// Get fetches one user, applying the same reachability rule as listing:
// self, direct report, or anyone for admins.
func (s *Service) Get(actor *User, id int64) (*UserResponse, error) {
	if _, err := s.evaluator.ComputeScope(actor.Actor(), &id); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if u == nil || !u.IsActive {
		return nil, internal.ErrUserNotFound
	}

	resp := &UserResponse{User: u}
	if u.ManagerID != nil {
		if mgr, err := s.repo.GetByID(*u.ManagerID); err == nil && mgr != nil {
			ref := NewUserRef(mgr)
			resp.Manager = &ref
		}
	}
	if u.Role.CanManage() {
		subs, err := s.repo.Subordinates(u.ID)
		if err == nil {
			for _, sub := range subs {
				resp.Subordinates = append(resp.Subordinates, NewUserRef(sub))
			}
		}
	}
	return resp, nil
}

// Create registers a user on behalf of an admin.
func (s *Service) Create(actor *User, dto CreateUserDTO) (*User, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError("user with this email already exists", internal.ErrCodeDuplicateEmail)
	}

	if dto.EmployeeID != nil && *dto.EmployeeID != "" {
		dup, err := s.repo.GetByEmployeeID(*dto.EmployeeID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check employee id", err)
		}
		if dup != nil {
			return nil, internal.NewConflictError("employee id already exists", internal.ErrCodeDuplicateEmployeeID)
		}
	}

	if err := s.validateManagerRef(dto.ManagerID, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	role, _ := access.ParseRole(dto.Role)
	u := &User{
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		Email:        dto.Email,
		PasswordHash: string(hash),
		Role:         role,
		Department:   dto.Department,
		EmployeeID:   dto.EmployeeID,
		ManagerID:    dto.ManagerID,
		IsActive:     true,
	}
	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "created_by", actor.ID)
	_ = s.bus.Publish(context.Background(), events.NewUserCreatedEvent(u.ID, u.Email, u.FullName()))
	return u, nil
}

// Update applies admin edits. Password never changes through this path.
func (s *Service) Update(actor *User, id int64, dto UpdateUserDTO) (*User, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if u == nil || !u.IsActive {
		return nil, internal.ErrUserNotFound
	}

	if dto.EmployeeID != nil && *dto.EmployeeID != "" {
		dup, err := s.repo.GetByEmployeeID(*dto.EmployeeID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check employee id", err)
		}
		if dup != nil && dup.ID != id {
			return nil, internal.NewConflictError("employee id already exists", internal.ErrCodeDuplicateEmployeeID)
		}
		u.EmployeeID = dto.EmployeeID
	}

	if dto.ManagerID != nil {
		if err := s.validateManagerRef(dto.ManagerID, id); err != nil {
			return nil, err
		}
		u.ManagerID = dto.ManagerID
	}

	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	if dto.Role != nil {
		role, _ := access.ParseRole(*dto.Role)
		u.Role = role
	}
	if dto.Department != nil {
		u.Department = *dto.Department
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", actor.ID)
	return u, nil
}

// Deactivate soft-deletes. Users are never hard-deleted so historical
// expenses keep a valid owner reference.
func (s *Service) Deactivate(actor *User, id int64) error {
	if !actor.IsAdmin() {
		return internal.ErrAccessDenied
	}
	if id == actor.ID {
		return internal.NewValidationError("you cannot deactivate your own account", internal.ErrCodeSelfDeactivation)
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return internal.NewInternalError("failed to get user", err)
	}
	if u == nil || !u.IsActive {
		return internal.ErrUserNotFound
	}

	if err := s.repo.Deactivate(id); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to deactivate user", err)
	}

	s.logger.Info("user deactivated", "user_id", id, "deactivated_by", actor.ID)
	return nil
}

// GetByID is the unscoped lookup used by the auth middleware and other
// services; callers are responsible for access checks.
func (s *Service) GetByID(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

// validateManagerRef enforces the manager invariant: the reference must
// point to an active user with role manager or admin and never at selfID.
func (s *Service) validateManagerRef(managerID *int64, selfID int64) error {
	if managerID == nil {
		return nil
	}
	if selfID != 0 && *managerID == selfID {
		return internal.NewValidationError("a user cannot be their own manager", internal.ErrCodeInvalidManager)
	}
	mgr, err := s.repo.GetByID(*managerID)
	if err != nil {
		return internal.NewInternalError("failed to validate manager", err)
	}
	if mgr == nil || !mgr.IsActive || !mgr.Role.CanManage() {
		return internal.NewValidationError("invalid manager selected", internal.ErrCodeInvalidManager)
	}
	return nil
}
