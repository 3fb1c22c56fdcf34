package usecases

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token   string         `json:"token"`
	Session domain.Session `json:"session"`
}

// AuthService checks dashboard credentials and issues session tokens.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenIssuer
	cost   int
}

// NewAuthService creates a new AuthService.
func NewAuthService(users ports.UserRepository, tokens ports.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Login verifies username and password. Unknown users and wrong passwords
// both yield domain.ErrUnauthorized with the same message.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}

	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !s.checkPassword(u, password) {
		return nil, fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)
	}
	if !u.Privileges.Valid() {
		return nil, fmt.Errorf("%w: user has invalid privileges", domain.ErrForbidden)
	}

	sess := domain.Session{UserID: u.ID, Username: u.Username, Role: u.Privileges}
	token, err := s.tokens.Issue(sess)
	if err != nil {
		return nil, err
	}
	slog.Info("login succeeded", "user", u.Username, "role", u.Privileges)
	return &LoginResult{Token: token, Session: sess}, nil
}

func (s *AuthService) checkPassword(u *domain.User, password string) bool {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
	}
	if u.Password == "" {
		return false
	}
	slog.Warn("user has a plaintext password; rehash with oceanctl users add", "user", u.Username)
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// Authenticate validates a bearer token.
func (s *AuthService) Authenticate(token string) (*domain.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}
	return s.tokens.Validate(token)
}

// AddUser creates or replaces an account, storing only a bcrypt hash.
func (s *AuthService) AddUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{ID: uuid.NewString(), Username: username, PasswordHash: string(hash), Privileges: role}
	existing, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		u.ID = existing.ID
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns every account without credentials.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
		users[i].PasswordHash = ""
	}
	return users, nil
}
