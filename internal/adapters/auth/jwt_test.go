package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanclean/oceanclean/internal/adapters/auth"
	"github.com/oceanclean/oceanclean/internal/core/domain"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(secret, "oceanclean", time.Hour)
	require.NoError(t, err)

	in := domain.Session{UserID: "u1", Username: "ops", Role: domain.RoleAdmin}
	token, err := issuer.Issue(in)
	require.NoError(t, err)

	out, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer, _ := auth.NewTokenIssuer(secret, "oceanclean", time.Hour)
	token, err := issuer.Issue(domain.Session{UserID: "u1", Username: "ops", Role: domain.RoleUser})
	require.NoError(t, err)

	otherKey, _ := auth.NewTokenIssuer("fedcba9876543210fedcba9876543210", "oceanclean", time.Hour)
	_, err = otherKey.Validate(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	otherIssuer, _ := auth.NewTokenIssuer(secret, "someone-else", time.Hour)
	_, err = otherIssuer.Validate(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	bad, err := issuer.Issue(domain.Session{UserID: "u2", Username: "x", Role: "root"})
	require.NoError(t, err)
	_, err = issuer.Validate(bad)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer, _ := auth.NewTokenIssuer(secret, "oceanclean", time.Millisecond)
	token, err := issuer.Issue(domain.Session{UserID: "u1", Username: "ops", Role: domain.RoleUser})
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	_, err := auth.NewTokenIssuer("", "oceanclean", time.Hour)
	assert.Error(t, err)
}
