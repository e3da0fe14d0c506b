// Package memory holds process-local stores used for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"chat/internal/domain/entity"
	domainerrors "chat/internal/domain/errors"
	"chat/internal/domain/repository"
)

type userRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byUsername map[string]*entity.User
	byID       map[int64]*entity.User
}

// NewUserRepository returns an empty in-memory credential store.
func NewUserRepository() repository.UserRepository {
	return &userRepository{
		byUsername: make(map[string]*entity.User),
		byID:       make(map[int64]*entity.User),
	}
}

func (s *userRepository) Create(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[user.Username]; exists {
		return domainerrors.ErrUsernameTaken
	}

	s.nextID++
	user.ID = s.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	stored := *user
	s.byUsername[stored.Username] = &stored
	s.byID[stored.ID] = &stored

	return nil
}

func (s *userRepository) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byUsername[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	found := *user

	return &found, nil
}

func (s *userRepository) FindByID(_ context.Context, id int64) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	found := *user

	return &found, nil
}
