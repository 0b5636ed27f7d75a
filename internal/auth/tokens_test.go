package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity/entity"
)

func newTestTokens(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(TokenConfig{
		Secret:     "test-secret",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return ts
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	require.Error(t, err)
}

func TestIssuePairRoundTrip(t *testing.T) {
	ts := newTestTokens(t)
	acct := &entity.Account{ID: 42, IsStaff: true}

	access, refresh, err := ts.IssuePair(acct)
	require.NoError(t, err)
	require.NotEqual(t, access, refresh)

	ac, err := ts.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ac.AccountID)
	assert.True(t, ac.IsStaff)
	assert.Equal(t, TokenTypeAccess, ac.TokenType)
	assert.Empty(t, ac.ID)

	rc, err := ts.ParseRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rc.AccountID)
	assert.Equal(t, TokenTypeRefresh, rc.TokenType)
	assert.NotEmpty(t, rc.ID, "refresh tokens carry a jti")
}

func TestParseRejectsWrongTokenType(t *testing.T) {
	ts := newTestTokens(t)
	access, refresh, err := ts.IssuePair(&entity.Account{ID: 1})
	require.NoError(t, err)

	_, err = ts.ParseAccess(refresh)
	assert.ErrorIs(t, err, httperr.ErrInvalidToken)

	_, err = ts.ParseRefresh(access)
	assert.ErrorIs(t, err, httperr.ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	ts := newTestTokens(t)
	past := time.Now().Add(-2 * time.Hour)
	ts.now = func() time.Time { return past }
	access, _, err := ts.IssuePair(&entity.Account{ID: 1})
	require.NoError(t, err)

	ts.now = time.Now
	_, err = ts.ParseAccess(access)
	assert.ErrorIs(t, err, httperr.ErrInvalidToken)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	ts := newTestTokens(t)
	other, err := NewTokenService(TokenConfig{Secret: "other-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)

	access, _, err := other.IssuePair(&entity.Account{ID: 1})
	require.NoError(t, err)

	_, err = ts.ParseAccess(access)
	assert.ErrorIs(t, err, httperr.ErrInvalidToken)

	_, err = ts.ParseAccess("not-a-jwt")
	assert.ErrorIs(t, err, httperr.ErrInvalidToken)
}

func TestSplitResetToken(t *testing.T) {
	id, secret, ok := splitResetToken("abc.def")
	require.True(t, ok)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "def", secret)

	for _, bad := range []string{"", "eyj", ".secret", "id.", "."} {
		_, _, ok := splitResetToken(bad)
		assert.False(t, ok, "token %q", bad)
	}
}
