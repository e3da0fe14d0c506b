package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the custom claims of a session resume token.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and validates tokens that let a reconnecting client
// log in again without resending its password.
type TokenService interface {
	// Enabled reports whether tokens are configured. When false, Generate
	// returns an empty token and Validate always fails.
	Enabled() bool

	// Generate creates a signed token for the user.
	Generate(userID int64, username string) (string, error)

	// Validate parses and verifies a token string.
	Validate(tokenString string) (*Claims, error)

	// TTL returns how long issued tokens stay valid.
	TTL() time.Duration
}
