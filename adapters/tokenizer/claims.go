package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // ID of the refresh token
}

// RefreshClaims carry the shell the refresh token belongs to
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}
