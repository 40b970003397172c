package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access-token payload minted by the identity
// service. The scheduling core validates the signature and trusts the
// embedded id and role as given.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
