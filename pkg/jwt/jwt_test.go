package jwt

import (
	"strings"
	"testing"
	"time"

	apperrors "keeper/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)

	cases := []struct{ user, role uint }{
		{1, 1},
		{42, 3},
		{7, 12},
	}
	for _, tc := range cases {
		token, expiresAt, err := m.Issue(tc.user, tc.role)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

		claims, err := m.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, tc.user, claims.UserID)
		assert.Equal(t, tc.role, claims.RoleID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewManager("secret", time.Hour, WithClock(fixedClock(issuedAt)))
	token, _, err := issuer.Issue(5, 2)
	require.NoError(t, err)

	later := NewManager("secret", time.Hour, WithClock(fixedClock(issuedAt.Add(2*time.Hour))))
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrExpiredToken)

	stillValid := NewManager("secret", time.Hour, WithClock(fixedClock(issuedAt.Add(30*time.Minute))))
	claims, err := stillValid.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(5), claims.UserID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := NewManager("secret-a", time.Hour).Issue(1, 1)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyExpiredWithBadSignatureIsInvalid(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	token, _, err := NewManager("secret-a", time.Hour, WithClock(fixedClock(issuedAt))).Issue(1, 1)
	require.NoError(t, err)

	m := NewManager("secret-b", time.Hour, WithClock(fixedClock(issuedAt.Add(48*time.Hour))))
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	m := NewManager("secret", time.Hour)

	for _, raw := range []string{"", "abc", "a.b.c", strings.Repeat("x", 300)} {
		_, err := m.Verify(raw)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken, raw)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	m := NewManager("secret", time.Hour)
	claims := Claims{
		UserID: 1,
		RoleID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "keeper",
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(unsigned)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRequiresExpiryAndUser(t *testing.T) {
	m := NewManager("secret", time.Hour)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "keeper"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Verify(noExpiry)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	noUser, _, err := m.Issue(0, 1)
	require.NoError(t, err)
	_, err = m.Verify(noUser)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": 7,
		"iss":    "keeper",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	claims, err := m.Verify(noRole)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
