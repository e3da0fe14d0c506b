package repository

import (
	"context"

	"chat/internal/domain/entity"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository is a mock of repository.MessageRepository.
type MockMessageRepository struct {
	mock.Mock
}

// NewMockMessageRepository creates a mock whose expectations are asserted on cleanup.
func NewMockMessageRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMessageRepository {
	m := &MockMessageRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockMessageRepository) Append(ctx context.Context, msg *entity.Message) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}

func (m *MockMessageRepository) Recent(ctx context.Context, limit int) ([]*entity.Message, error) {
	args := m.Called(ctx, limit)
	messages, _ := args.Get(0).([]*entity.Message)

	return messages, args.Error(1)
}
