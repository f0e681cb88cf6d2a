package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func mintToken(t *testing.T, secret string, mutate func(*Claims)) string {
	t.Helper()
	claims := &Claims{
		OrgID:       uuid.NewString(),
		Name:        "Kari Nordmann",
		Email:       "kari@example.com",
		Roles:       []string{"member"},
		Permissions: []string{"contacts:update"},
		PermVersion: 3,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateTokenOK(t *testing.T) {
	v := NewJWTValidator(&config.AuthConfig{JWTSecret: testSecret})

	userID := uuid.New()
	orgID := uuid.New()
	tokenString := mintToken(t, testSecret, func(c *Claims) {
		c.Subject = userID.String()
		c.OrgID = orgID.String()
	})

	tc, err := v.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, tc.UserID)
	assert.Equal(t, orgID, tc.OrgID)
	assert.Equal(t, "Kari Nordmann", tc.DisplayName)
	assert.Equal(t, []string{"contacts:update"}, tc.Permissions)
	assert.Equal(t, int64(3), tc.PermVersion)
	require.Len(t, tc.Roles, 1)
}

func TestValidateTokenExpired(t *testing.T) {
	v := NewJWTValidator(&config.AuthConfig{JWTSecret: testSecret})

	tokenString := mintToken(t, testSecret, func(c *Claims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	})

	_, err := v.ValidateToken(tokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	v := NewJWTValidator(&config.AuthConfig{JWTSecret: testSecret})

	_, err := v.ValidateToken(mintToken(t, "some-other-key", nil))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	v := NewJWTValidator(&config.AuthConfig{JWTSecret: testSecret})

	_, err := v.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenBadIdentityFields(t *testing.T) {
	v := NewJWTValidator(&config.AuthConfig{JWTSecret: testSecret})

	_, err := v.ValidateToken(mintToken(t, testSecret, func(c *Claims) {
		c.Subject = "not-a-uuid"
	}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.ValidateToken(mintToken(t, testSecret, func(c *Claims) {
		c.OrgID = "not-a-uuid"
	}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
