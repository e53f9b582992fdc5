package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnipost/omnipost-api/internal/transfer"
)

const testSecret = "test-secret-key"

func TestStateTokenRoundTrip(t *testing.T) {
	token, err := GenerateStateToken(testSecret, transfer.StateClaims{
		UserID:   "42",
		Platform: "linkedin",
		Nonce:    "abc123",
	})
	require.NoError(t, err)

	claims, err := ValidateStateToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "linkedin", claims.Platform)
	assert.Equal(t, "abc123", claims.Nonce)
}

func TestCompletionTokenRoundTrip(t *testing.T) {
	token, err := GenerateCompletionToken(testSecret, transfer.CompletionClaims{
		UserID:   "42",
		Platform: "tiktok",
		Code:     "auth-code",
	})
	require.NoError(t, err)

	claims, err := ValidateCompletionToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "tiktok", claims.Platform)
	assert.Equal(t, "auth-code", claims.Code)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := GenerateStateToken(testSecret, transfer.StateClaims{Platform: "facebook"})
	require.NoError(t, err)

	_, err = ValidateStateToken("other-secret", token)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestValidateExpiredToken(t *testing.T) {
	claims := transfer.CompletionClaims{
		Platform: "snapchat",
		Code:     "auth-code",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-11 * time.Minute)),
			Issuer:    "omnipost",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ValidateCompletionToken(testSecret, signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(testSecret, "7", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.UserID)
}
