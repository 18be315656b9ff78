package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/config"
)

func mintToken(t *testing.T, secret, issuer string, userID int64) string {
	t.Helper()
	claims := IdentityClaims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	verifier := NewTokenVerifier(config.IdentityConfig{TokenSecret: "secret", Issuer: "idp"})

	claims, err := verifier.Verify(mintToken(t, "secret", "idp", 42))
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := NewTokenVerifier(config.IdentityConfig{TokenSecret: "secret"})

	_, err := verifier.Verify(mintToken(t, "other-secret", "", 1))
	assert.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	verifier := NewTokenVerifier(config.IdentityConfig{TokenSecret: "secret", Issuer: "idp"})

	_, err := verifier.Verify(mintToken(t, "secret", "someone-else", 1))
	assert.Error(t, err)
}

func TestUserIDRequiresNumericSubject(t *testing.T) {
	claims := &IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-number"}}
	_, err := claims.UserID()
	assert.Error(t, err)
}
