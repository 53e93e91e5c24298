package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(Config{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	require.NoError(t, err)
	return iss
}

func TestIssueAndParse(t *testing.T) {
	iss := newTestIssuer(t)

	pair, err := iss.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	uid, err := iss.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", uid)

	uid, err = iss.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", uid)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	iss := newTestIssuer(t)
	pair, err := iss.Issue("user-123")
	require.NoError(t, err)

	_, err = iss.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConsecutivePairsDiffer(t *testing.T) {
	iss := newTestIssuer(t)
	a, err := iss.Issue("u")
	require.NoError(t, err)
	b, err := iss.Issue("u")
	require.NoError(t, err)
	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
}

func TestExpiredToken(t *testing.T) {
	iss := newTestIssuer(t)
	issued := time.Now()
	iss.now = func() time.Time { return issued }
	pair, err := iss.Issue("u")
	require.NoError(t, err)

	iss.now = func() time.Time { return issued.Add(16 * time.Minute) }
	_, err = iss.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err, "refresh token lives for a week")
}

func TestWrongSecretAndGarbage(t *testing.T) {
	iss := newTestIssuer(t)
	other, err := NewIssuer(Config{AccessSecret: "other", RefreshSecret: "other-refresh"})
	require.NoError(t, err)

	pair, err := other.Issue("u")
	require.NoError(t, err)
	_, err = iss.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.ParseAccess("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRequiresSecrets(t *testing.T) {
	_, err := NewIssuer(Config{AccessSecret: "x"})
	assert.Error(t, err)
}
