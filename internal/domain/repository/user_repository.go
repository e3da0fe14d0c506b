// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"chat/internal/domain/entity"
)

// ErrUserNotFound is a domain-specific error returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UserRepository is the credential store port.
// Create must check username uniqueness and insert atomically, returning
// domainerrors.ErrUsernameTaken when the name is already in use.
type UserRepository interface {
	// Create persists a new user and fills in its ID and CreatedAt.
	Create(ctx context.Context, user *entity.User) error

	// FindByUsername retrieves a user by exact (case-sensitive) username.
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	// FindByID retrieves a user by ID.
	FindByID(ctx context.Context, id int64) (*entity.User, error)
}
