package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims represents custom JWT claims for access tokens
type SessionClaims struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}
