// Package auth signs and validates dashboard session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

const (
	claimUsername = "username"
	claimRole     = "role"
)

// TokenIssuer implements ports.TokenIssuer with HS256 signed JWTs.
type TokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. The secret must be non-empty.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{key: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for s.
func (t *TokenIssuer) Issue(s domain.Session) (string, error) {
	now := t.now()
	tok, err := jwt.NewBuilder().
		Issuer(t.issuer).
		Subject(s.UserID).
		IssuedAt(now).
		Expiration(now.Add(t.ttl)).
		Claim(claimUsername, s.Username).
		Claim(claimRole, string(s.Role)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// Validate checks signature, issuer and expiry and returns the session.
func (t *TokenIssuer) Validate(token string) (*domain.Session, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, t.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(t.issuer),
		jwt.WithClock(jwt.ClockFunc(t.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	s := &domain.Session{UserID: tok.Subject()}
	if v, ok := tok.Get(claimUsername); ok {
		s.Username, _ = v.(string)
	}
	if v, ok := tok.Get(claimRole); ok {
		r, _ := v.(string)
		s.Role = domain.Role(r)
	}
	if !s.Role.Valid() {
		return nil, fmt.Errorf("%w: token carries invalid role", domain.ErrUnauthorized)
	}
	return s, nil
}
