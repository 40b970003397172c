package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/config"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

// AuthService validates access tokens minted by the identity service.
// Account management, login, and password handling all live there; this
// core only verifies the shared-secret signature and reads the claims.
type AuthService struct {
	config config.JWTConfig
}

// NewAuthService constructs the token validator.
func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{config: cfg}
}

// ValidateToken parses and verifies an HS256 access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
