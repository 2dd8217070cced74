package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload issued by the external identity service.
type JWTClaims struct {
	OperatorID string       `json:"operator_id"`
	Role       OperatorRole `json:"role"`
	Email      string       `json:"email"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
