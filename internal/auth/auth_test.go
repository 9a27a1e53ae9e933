package auth

import (
	"testing"
	"time"

	"grc-isms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tok := NewTokens("secret", time.Hour)
	u := &models.User{Base: models.Base{ID: 7}, Email: "a@b.c", Role: models.RoleAuditor}

	raw, err := tok.Issue(u)
	require.NoError(t, err)

	claims, err := tok.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, models.RoleAuditor, claims.Role)
}

func TestTokens_Expired(t *testing.T) {
	tok := NewTokens("secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	tok.now = func() time.Time { return issued }
	raw, err := tok.Issue(&models.User{Base: models.Base{ID: 1}})
	require.NoError(t, err)

	tok.now = time.Now
	_, err = tok.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokens_WrongSecret(t *testing.T) {
	raw, err := NewTokens("one", time.Hour).Issue(&models.User{Base: models.Base{ID: 1}})
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewTokens("two", time.Hour).Parse("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("Secret123!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "Secret123!"))
	assert.False(t, CheckPassword(hash, "secret123!"))
}
