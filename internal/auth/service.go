package auth

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/user"
)

// UserDirectory is the slice of the user store authentication needs.
type UserDirectory interface {
	GetByEmail(email string) (*user.User, error)
	GetByID(id int64) (*user.User, error)
	Update(u *user.User) error
}

type Service struct {
	users  UserDirectory
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(users UserDirectory, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Authenticate validates credentials and issues a token pair. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByEmail(dto.Email)
	if err != nil {
		s.logger.Error("failed to look up user for login", "error", err)
		return AuthTokens{}, internal.NewInternalError("login failed", err)
	}
	if u == nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if !u.IsActive {
		return AuthTokens{}, internal.ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(u)
	if err != nil {
		return AuthTokens{}, err
	}

	now := time.Now()
	u.LastLoginAt = &now
	if err := s.users.Update(u); err != nil {
		// Login still succeeds; the timestamp is best effort.
		s.logger.Warn("failed to record last login", "error", err, "user_id", u.ID)
	}

	s.logger.Info("user authenticated", "user_id", u.ID, "role", u.Role)
	return tokens, nil
}

// RefreshTokens rotates a refresh token into a fresh pair. The user must
// still exist and be active.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("token refresh failed", err)
	}
	if u == nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}
	if !u.IsActive {
		return AuthTokens{}, internal.ErrUserInactive
	}

	return s.issueTokens(u)
}

// ValidateAccessToken validates a token and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.ValidateToken(tokenString)
}

// ResolveUser loads the authenticated user for the request context.
// Deactivated accounts are rejected even with a valid token.
func (s *Service) ResolveUser(userID int64) (*user.User, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve user", err)
	}
	if u == nil {
		return nil, internal.ErrInvalidToken
	}
	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}
	return u, nil
}

func (s *Service) issueTokens(u *user.User) (AuthTokens, error) {
	accessToken, err := s.tokens.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to generate token", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(u.ID, u.Email, u.Role)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to generate token", err)
	}

	var expiresIn int64
	if g, ok := s.tokens.(*JWTTokenGenerator); ok {
		expiresIn = int64(g.AccessTokenTTL.Seconds())
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}
