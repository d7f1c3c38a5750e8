// Package access decides, given an actor and a target resource owner,
// whether an operation is permitted, and produces the owner scope every
// list and aggregation query is constrained by. All access checks in the
// service layer go through this package instead of switching on role
// strings ad hoc.
package access

import (
	"fmt"

	"github.com/expensio/expense-service/internal"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleManager, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// CanManage reports whether users with this role may be assigned as
// someone's manager.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleAdmin
}

// Actor is the minimal view of an authenticated user the evaluator needs.
type Actor struct {
	ID   int64
	Role Role
}

type ScopeMode string

const (
	// ScopeSelf restricts to the actor's own records.
	ScopeSelf ScopeMode = "self"
	// ScopeSubordinates restricts to the actor plus direct reports.
	ScopeSubordinates ScopeMode = "subordinates"
	// ScopeAll places no owner restriction.
	ScopeAll ScopeMode = "all"
)

// Scope is the owner filter a query must apply. OwnerIDs is nil only for
// ScopeAll with no explicit target; otherwise queries filter on it.
type Scope struct {
	Mode     ScopeMode
	OwnerIDs []int64
}

// Restricted reports whether the scope constrains owner ids at all.
func (s Scope) Restricted() bool {
	return len(s.OwnerIDs) > 0
}

// Contains reports whether ownerID falls inside the scope.
func (s Scope) Contains(ownerID int64) bool {
	if !s.Restricted() {
		return s.Mode == ScopeAll
	}
	for _, id := range s.OwnerIDs {
		if id == ownerID {
			return true
		}
	}
	return false
}

// Directory is the single lookup the evaluator needs from the user store.
type Directory interface {
	SubordinateIDs(managerID int64) ([]int64, error)
}

type Evaluator struct {
	dir Directory
}

func NewEvaluator(dir Directory) *Evaluator {
	return &Evaluator{dir: dir}
}

// scopeFn resolves the scope for one role. Table-driven so every operation
// shares the same rules instead of re-deriving them.
type scopeFn func(e *Evaluator, actor Actor, requestedOwnerID *int64) (Scope, error)

var scopeTable = map[Role]scopeFn{
	RoleAdmin:    adminScope,
	RoleManager:  managerScope,
	RoleEmployee: employeeScope,
}

// ComputeScope resolves the set of expense-owner ids the actor may see.
// An explicit requestedOwnerID outside the actor's reach fails with
// Forbidden; an implicit listing (nil requestedOwnerID) never errors, it
// silently applies the computed owner set.
func (e *Evaluator) ComputeScope(actor Actor, requestedOwnerID *int64) (Scope, error) {
	fn, ok := scopeTable[actor.Role]
	if !ok {
		// Unknown roles get the narrowest scope.
		fn = employeeScope
	}
	return fn(e, actor, requestedOwnerID)
}

func adminScope(_ *Evaluator, _ Actor, requestedOwnerID *int64) (Scope, error) {
	// The requested owner is honored verbatim, no membership check.
	if requestedOwnerID != nil {
		return Scope{Mode: ScopeAll, OwnerIDs: []int64{*requestedOwnerID}}, nil
	}
	return Scope{Mode: ScopeAll}, nil
}

func managerScope(e *Evaluator, actor Actor, requestedOwnerID *int64) (Scope, error) {
	subIDs, err := e.dir.SubordinateIDs(actor.ID)
	if err != nil {
		return Scope{}, fmt.Errorf("resolve subordinates: %w", err)
	}
	allowed := append([]int64{actor.ID}, subIDs...)

	if requestedOwnerID != nil {
		for _, id := range allowed {
			if id == *requestedOwnerID {
				return Scope{Mode: ScopeSubordinates, OwnerIDs: []int64{*requestedOwnerID}}, nil
			}
		}
		return Scope{}, internal.ErrNotSubordinate
	}
	return Scope{Mode: ScopeSubordinates, OwnerIDs: allowed}, nil
}

func employeeScope(_ *Evaluator, actor Actor, requestedOwnerID *int64) (Scope, error) {
	if requestedOwnerID != nil && *requestedOwnerID != actor.ID {
		return Scope{}, internal.ErrAccessDenied
	}
	return Scope{Mode: ScopeSelf, OwnerIDs: []int64{actor.ID}}, nil
}

// CanApprove reports whether the actor may approve or reject an expense
// whose owner has the given manager reference. Admins always may; a
// manager only for direct reports. Approval is a single-hop chain.
func CanApprove(actor Actor, ownerManagerID *int64) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return ownerManagerID != nil && *ownerManagerID == actor.ID
	default:
		return false
	}
}

// CanMutate reports whether the actor may edit or delete a resource owned
// by ownerID. Approval and rejection use CanApprove, not this.
func CanMutate(actor Actor, ownerID int64) bool {
	return actor.Role == RoleAdmin || actor.ID == ownerID
}
