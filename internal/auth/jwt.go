package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the identity assertion minted by the auth service. The CRM
// never issues tokens, it only verifies them.
type Claims struct {
	OrgID       string   `json:"org_id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	PermVersion int64    `json:"perm_version"`
	jwt.RegisteredClaims
}

// JWTValidator verifies HMAC-signed identity assertions
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{secret: []byte(cfg.JWTSecret)}
}

// ValidateToken verifies the token and returns the tenant context
func (v *JWTValidator) ValidateToken(tokenString string) (*TenantContext, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid org_id", ErrInvalidToken)
	}

	roles := make([]domain.UserRoleType, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, domain.UserRoleType(r))
	}

	return &TenantContext{
		UserID:      userID,
		OrgID:       orgID,
		DisplayName: claims.Name,
		Email:       claims.Email,
		Roles:       roles,
		Permissions: claims.Permissions,
		PermVersion: claims.PermVersion,
	}, nil
}
