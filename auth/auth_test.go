package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personahub/store"
)

func newAuthFixture(t *testing.T) (*Authenticator, *store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	return New(s, "test-secret", time.Hour), s
}

func seedUser(t *testing.T, s *store.Store, email, password string) *store.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	u := &store.User{Email: email, PasswordHash: hash}
	require.NoError(t, s.CreateUser(u))
	return u
}

func TestLoginRoundTrip(t *testing.T) {
	a, s := newAuthFixture(t)
	u := seedUser(t, s, "u@example.com", "hunter2")

	token, loggedIn, err := a.Login("u@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, u.ID, loggedIn.ID)
	require.NotEmpty(t, token)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.False(t, claims.IsAdmin)
}

func TestLoginWrongPassword(t *testing.T) {
	a, s := newAuthFixture(t)
	seedUser(t, s, "u@example.com", "hunter2")

	_, _, err := a.Login("u@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	a, _ := newAuthFixture(t)

	_, _, err := a.Login("ghost@example.com", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	a, s := newAuthFixture(t)
	u := seedUser(t, s, "u@example.com", "hunter2")
	require.NoError(t, s.DB().Model(u).Update("active", false).Error)

	_, _, err := a.Login("u@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	a, s := newAuthFixture(t)
	seedUser(t, s, "u@example.com", "hunter2")

	token, _, err := a.Login("u@example.com", "hunter2")
	require.NoError(t, err)

	_, err = a.Verify(token + "x")
	assert.Error(t, err)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	a, s := newAuthFixture(t)
	seedUser(t, s, "u@example.com", "hunter2")

	token, _, err := a.Login("u@example.com", "hunter2")
	require.NoError(t, err)

	other := New(s, "different-secret", time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}
