package access

import (
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensio/expense-service/internal"
)

func TestAccess(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Access Module Suite")
}

type mockDirectory struct {
	subordinates map[int64][]int64
	err          error
}

func (m *mockDirectory) SubordinateIDs(managerID int64) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subordinates[managerID], nil
}

var _ = Describe("Evaluator", func() {
	var (
		evaluator *Evaluator
		dir       *mockDirectory
	)

	admin := Actor{ID: 1, Role: RoleAdmin}
	manager := Actor{ID: 2, Role: RoleManager}
	employee := Actor{ID: 3, Role: RoleEmployee}

	BeforeEach(func() {
		dir = &mockDirectory{
			subordinates: map[int64][]int64{
				2: {3, 4},
			},
		}
		evaluator = NewEvaluator(dir)
	})

	Describe("ComputeScope", func() {
		Context("for an admin", func() {
			It("returns an unrestricted scope without a target", func() {
				scope, err := evaluator.ComputeScope(admin, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(scope.Mode).To(Equal(ScopeAll))
				Expect(scope.Restricted()).To(BeFalse())
			})

			It("honors any explicit owner verbatim", func() {
				ownerID := int64(99)
				scope, err := evaluator.ComputeScope(admin, &ownerID)
				Expect(err).NotTo(HaveOccurred())
				Expect(scope.OwnerIDs).To(Equal([]int64{99}))
			})
		})

		Context("for a manager", func() {
			It("covers the manager plus direct reports", func() {
				scope, err := evaluator.ComputeScope(manager, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(scope.Mode).To(Equal(ScopeSubordinates))
				Expect(scope.OwnerIDs).To(ConsistOf(int64(2), int64(3), int64(4)))
			})

			It("narrows to one direct report when requested", func() {
				ownerID := int64(4)
				scope, err := evaluator.ComputeScope(manager, &ownerID)
				Expect(err).NotTo(HaveOccurred())
				Expect(scope.OwnerIDs).To(Equal([]int64{4}))
			})

			It("allows requesting the manager's own records", func() {
				ownerID := int64(2)
				scope, err := evaluator.ComputeScope(manager, &ownerID)
				Expect(err).NotTo(HaveOccurred())
				Expect(scope.OwnerIDs).To(Equal([]int64{2}))
			})

			It("rejects a user who is not a direct report", func() {
				ownerID := int64(7)
				_, err := evaluator.ComputeScope(manager, &ownerID)
				Expect(err).To(Equal(internal.ErrNotSubordinate))
			})

			It("does not reach transitive reports", func() {
				// 4 manages 5, but 2 only manages 3 and 4 directly.
				dir.subordinates[4] = []int64{5}
				ownerID := int64(5)
				_, err := evaluator.ComputeScope(manager, &ownerID)
				Expect(err).To(Equal(internal.ErrNotSubordinate))
			})

			It("propagates directory failures", func() {
				dir.err = errors.New("db down")
				_, err := evaluator.ComputeScope(manager, nil)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("for an employee", func() {
			It("restricts to the employee's own records", func() {
				scope, err := evaluator.ComputeScope(employee, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(scope.Mode).To(Equal(ScopeSelf))
				Expect(scope.OwnerIDs).To(Equal([]int64{3}))
			})

			It("allows explicitly requesting their own records", func() {
				ownerID := int64(3)
				scope, err := evaluator.ComputeScope(employee, &ownerID)
				Expect(err).NotTo(HaveOccurred())
				Expect(scope.OwnerIDs).To(Equal([]int64{3}))
			})

			It("rejects requesting anyone else's records", func() {
				ownerID := int64(4)
				_, err := evaluator.ComputeScope(employee, &ownerID)
				Expect(err).To(Equal(internal.ErrAccessDenied))
			})
		})

		Context("for an unknown role", func() {
			It("falls back to the narrowest scope", func() {
				odd := Actor{ID: 9, Role: Role("intern")}
				scope, err := evaluator.ComputeScope(odd, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(scope.Mode).To(Equal(ScopeSelf))
				Expect(scope.OwnerIDs).To(Equal([]int64{9}))
			})
		})
	})

	Describe("CanApprove", func() {
		managerID := int64(2)
		otherID := int64(8)

		It("always allows admins", func() {
			Expect(CanApprove(admin, nil)).To(BeTrue())
			Expect(CanApprove(admin, &otherID)).To(BeTrue())
		})

		It("allows a manager only for direct reports", func() {
			Expect(CanApprove(manager, &managerID)).To(BeTrue())
			Expect(CanApprove(manager, &otherID)).To(BeFalse())
			Expect(CanApprove(manager, nil)).To(BeFalse())
		})

		It("never allows employees", func() {
			Expect(CanApprove(employee, &managerID)).To(BeFalse())
		})
	})

	Describe("CanMutate", func() {
		It("allows owners and admins only", func() {
			Expect(CanMutate(employee, 3)).To(BeTrue())
			Expect(CanMutate(employee, 4)).To(BeFalse())
			Expect(CanMutate(manager, 3)).To(BeFalse())
			Expect(CanMutate(admin, 3)).To(BeTrue())
		})
	})

	Describe("Scope.Contains", func() {
		It("matches listed owners", func() {
			s := Scope{Mode: ScopeSubordinates, OwnerIDs: []int64{2, 3}}
			Expect(s.Contains(3)).To(BeTrue())
			Expect(s.Contains(5)).To(BeFalse())
		})

		It("treats an unrestricted all-scope as containing everyone", func() {
			s := Scope{Mode: ScopeAll}
			Expect(s.Contains(42)).To(BeTrue())
		})
	})

	Describe("ParseRole", func() {
		It("accepts the three known roles", func() {
			for _, r := range []string{"employee", "manager", "admin"} {
				parsed, err := ParseRole(r)
				Expect(err).NotTo(HaveOccurred())
				Expect(parsed.Valid()).To(BeTrue())
			}
		})

		It("rejects anything else", func() {
			_, err := ParseRole("superuser")
			Expect(err).To(HaveOccurred())
		})
	})
})
