package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	return Claims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7d5c2a9e-0000-4000-8000-000000000001",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerifyValidToken(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	claims, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "7d5c2a9e-0000-4000-8000-000000000001", claims.UserID())
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	_, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()))
	assert.Error(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	_, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	_, err := v.Verify(sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims()))
	assert.Error(t, err)
}

func TestVerifyRequiresSubject(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	claims := validClaims()
	claims.Subject = ""

	_, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestVerifierDisabledWithoutSecret(t *testing.T) {
	v := NewTokenVerifier("")

	assert.False(t, v.Enabled())
	_, err := v.Verify("anything")
	assert.Error(t, err)
}
