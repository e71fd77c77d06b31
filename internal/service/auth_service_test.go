package service

import (
	"context"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-collab-backend/internal/config"
	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, token, err := f.svc.Auth.Register(ctx, "Ann", "Ann@Example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "admin", first.Role)
	assert.Equal(t, "ann@example.com", first.Email)
	assert.NotEqual(t, "secret1", first.PasswordHash)

	second, _, err := f.svc.Auth.Register(ctx, "Bob", "bob@example.com", "secret2")
	require.NoError(t, err)
	assert.Equal(t, "member", second.Role)

	_, _, err = f.svc.Auth.Register(ctx, "Ann again", "ANN@example.com", "secret3")
	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.svc.Auth.Register(ctx, "", "a@example.com", "secret1")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, _, err = f.svc.Auth.Register(ctx, "Ann", "a@example.com", "12345")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestLogin_GenericFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.svc.Auth.Register(ctx, "Ann", "ann@example.com", "secret1")
	require.NoError(t, err)

	_, _, err = f.svc.Auth.Login(ctx, "ann@example.com", "wrong-pass")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, _, err = f.svc.Auth.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	user, token, err := f.svc.Auth.Login(ctx, " ANN@example.com ", "secret1")
	require.NoError(t, err)

	ident, err := f.svc.Auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: user.ID, Role: "admin"}, ident)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, token, err := f.svc.Auth.Register(ctx, "Ann", "ann@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Auth.Logout(ctx, token))

	_, err = f.svc.Auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	// A fresh login issues a new, valid token.
	_, again, err := f.svc.Auth.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	_, err = f.svc.Auth.Authenticate(ctx, again)
	assert.NoError(t, err)
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Auth.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	foreign := NewAuthService(&config.Config{JWTSecret: "other-secret", JWTExpiry: 1}, f.users, NewMemoryTokenStore())
	_, token, err := foreign.Register(ctx, "Ann", "ann@example.com", "secret1")
	require.NoError(t, err)
	_, err = f.svc.Auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = f.svc.Auth.Authenticate(ctx, signed)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user, _, err := f.svc.Auth.Register(ctx, "Ann", "ann@example.com", "secret1")
	require.NoError(t, err)
	ident := as(user)

	err = f.svc.Auth.ChangePassword(ctx, ident, "wrong", "secret2")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	err = f.svc.Auth.ChangePassword(ctx, ident, "secret1", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrPasswordUnchanged)

	require.NoError(t, f.svc.Auth.ChangePassword(ctx, ident, "secret1", "secret2"))

	_, _, err = f.svc.Auth.Login(ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, _, err = f.svc.Auth.Login(ctx, "ann@example.com", "secret2")
	assert.NoError(t, err)
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "a", time.Hour))
	require.NoError(t, store.Revoke(ctx, "b", 0))

	revoked, err := store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "b")
	require.NoError(t, err)
	assert.False(t, revoked)
}
