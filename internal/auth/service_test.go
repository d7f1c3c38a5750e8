package auth

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/core/access"
	"github.com/expensio/expense-service/internal/user"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Module Suite")
}

type mockDirectory struct {
	users      map[int64]*user.User
	failUpdate bool
	updated    []*user.User
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{users: map[int64]*user.User{}}
}

func (m *mockDirectory) GetByEmail(email string) (*user.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockDirectory) GetByID(id int64) (*user.User, error) {
	return m.users[id], nil
}

func (m *mockDirectory) Update(u *user.User) error {
	if m.failUpdate {
		return io.ErrClosedPipe
	}
	m.updated = append(m.updated, u)
	return nil
}

const (
	testAccessSecret  = "access-secret-for-tests-0123456789abcdef"
	testRefreshSecret = "refresh-secret-for-tests-0123456789abcdef"
)

var _ = Describe("AuthService", func() {
	var (
		service   *Service
		directory *mockDirectory
		generator *JWTTokenGenerator
		alice     *user.User
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	BeforeEach(func() {
		directory = newMockDirectory()
		generator = NewJWTTokenGenerator(testAccessSecret, testRefreshSecret)
		service = NewService(directory, generator, testLogger)

		hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())

		alice = &user.User{
			ID:           1,
			FirstName:    "Alice",
			LastName:     "Ann",
			Email:        "alice@example.com",
			PasswordHash: string(hash),
			Role:         access.RoleEmployee,
			IsActive:     true,
		}
		directory.users[alice.ID] = alice
	})

	Describe("Authenticate", func() {
		It("issues a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "alice@example.com", Password: "hunter22"})
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())
			Expect(tokens.ExpiresIn).To(Equal(int64((15 * time.Minute).Seconds())))

			claims, err := generator.ValidateToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal(alice.ID))
			Expect(claims.Email).To(Equal(alice.Email))
			Expect(claims.Role).To(Equal(access.RoleEmployee))
		})

		It("records the login timestamp", func() {
			_, err := service.Authenticate(LoginDTO{Email: "alice@example.com", Password: "hunter22"})
			Expect(err).NotTo(HaveOccurred())
			Expect(directory.updated).To(HaveLen(1))
			Expect(directory.updated[0].LastLoginAt).NotTo(BeNil())
		})

		It("still succeeds when recording the timestamp fails", func() {
			directory.failUpdate = true
			tokens, err := service.Authenticate(LoginDTO{Email: "alice@example.com", Password: "hunter22"})
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
		})

		It("returns the same error for a wrong password and an unknown email", func() {
			_, wrongPass := service.Authenticate(LoginDTO{Email: "alice@example.com", Password: "nope"})
			_, unknown := service.Authenticate(LoginDTO{Email: "ghost@example.com", Password: "hunter22"})
			Expect(wrongPass).To(Equal(internal.ErrInvalidCredentials))
			Expect(unknown).To(Equal(internal.ErrInvalidCredentials))
		})

		It("rejects deactivated accounts", func() {
			alice.IsActive = false
			_, err := service.Authenticate(LoginDTO{Email: "alice@example.com", Password: "hunter22"})
			Expect(err).To(Equal(internal.ErrUserInactive))
		})

		It("rejects an empty payload before touching the store", func() {
			_, err := service.Authenticate(LoginDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("RefreshTokens", func() {
		It("rotates a refresh token into a new pair", func() {
			refresh, err := generator.GenerateRefreshToken(alice.ID, alice.Email, alice.Role)
			Expect(err).NotTo(HaveOccurred())

			tokens, err := service.RefreshTokens(refresh)
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())
		})

		It("rejects tokens for users deactivated since issuance", func() {
			refresh, err := generator.GenerateRefreshToken(alice.ID, alice.Email, alice.Role)
			Expect(err).NotTo(HaveOccurred())

			alice.IsActive = false
			_, err = service.RefreshTokens(refresh)
			Expect(err).To(Equal(internal.ErrUserInactive))
		})

		It("rejects tokens for users that no longer exist", func() {
			refresh, err := generator.GenerateRefreshToken(99, "gone@example.com", access.RoleEmployee)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RefreshTokens(refresh)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("rejects garbage tokens", func() {
			_, err := service.RefreshTokens("not-a-jwt")
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})

	Describe("ValidateToken", func() {
		It("flags expired tokens distinctly", func() {
			expired := NewJWTTokenGenerator(testAccessSecret, testRefreshSecret)
			expired.AccessTokenTTL = -time.Minute

			token, err := expired.GenerateAccessToken(alice.ID, alice.Email, alice.Role)
			Expect(err).NotTo(HaveOccurred())

			_, err = generator.ValidateToken(token)
			Expect(err).To(Equal(internal.ErrTokenExpired))
		})

		It("rejects tokens signed with a different secret", func() {
			other := NewJWTTokenGenerator("another-secret-entirely-0123456789abcdef", testRefreshSecret)
			token, err := other.GenerateAccessToken(alice.ID, alice.Email, alice.Role)
			Expect(err).NotTo(HaveOccurred())

			_, err = generator.ValidateToken(token)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})

	Describe("ResolveUser", func() {
		It("loads active users", func() {
			u, err := service.ResolveUser(alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).To(Equal(alice.ID))
		})

		It("rejects deactivated users even with a valid token", func() {
			alice.IsActive = false
			_, err := service.ResolveUser(alice.ID)
			Expect(err).To(Equal(internal.ErrUserInactive))
		})

		It("rejects unknown ids", func() {
			_, err := service.ResolveUser(404)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})
})
