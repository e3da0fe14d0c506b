// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"chat/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new user.
type RegisterInput struct {
	Username string `validate:"required,min=3,max=20,username"`
	Password string `validate:"required,min=6,max=50"`
}

// LoginInput defines the credentials for a password login.
type LoginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// --- Output DTOs ---

// RegisterOutput returns the newly created user.
type RegisterOutput struct {
	User *entity.User
}

// LoginOutput returns the authenticated user and, when tokens are enabled,
// a resume token the client may present on its next connection.
type LoginOutput struct {
	User           *entity.User
	Token          string
	TokenExpiresAt time.Time
}

// AccountUsecase defines the credential operations the dispatcher depends on.
type AccountUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
	LoginWithToken(ctx context.Context, token string) (*LoginOutput, error)
}
