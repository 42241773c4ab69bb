package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are embedded in the session cookie JWT
type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
