package auth

import (
	"testing"

	"supplydesk-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateTokenRoundTrip(t *testing.T) {
	user := &models.User{
		ID: 42, Email: "jo@example.com", Name: "Jo", Department: "IT",
		Role: models.RoleAdmin,
	}

	tokenStr, err := GenerateToken(testSecret, user)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims := &JWTCustomClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "jo@example.com", claims.Email)
	assert.Equal(t, "Jo", claims.Name)
	assert.Equal(t, "IT", claims.Department)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID, "each token carries a unique jti")
	require.NotNil(t, claims.ExpiresAt)
}

func TestGenerateTokenWrongSecretFails(t *testing.T) {
	user := &models.User{ID: 1, Email: "jo@example.com", Role: models.RoleStaff}

	tokenStr, err := GenerateToken(testSecret, user)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(*jwt.Token) (any, error) {
		return []byte("wrong-secret-wrong-secret-wrong!"), nil
	})
	assert.Error(t, err)
}
