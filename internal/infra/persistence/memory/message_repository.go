package memory

import (
	"context"
	"sync"

	"chat/internal/domain/entity"
	"chat/internal/domain/repository"
)

type messageRepository struct {
	mu          sync.RWMutex
	nextID      int64
	maxMessages int
	messages    []*entity.Message
}

// NewMessageRepository returns an in-memory history. When maxMessages is
// positive only that many of the newest entries are retained.
func NewMessageRepository(maxMessages int) repository.MessageRepository {
	return &messageRepository{maxMessages: maxMessages}
}

func (s *messageRepository) Append(_ context.Context, msg *entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg.ID = s.nextID
	stored := *msg
	s.messages = append(s.messages, &stored)

	if s.maxMessages > 0 && len(s.messages) > s.maxMessages {
		drop := len(s.messages) - s.maxMessages
		clear(s.messages[:drop])
		s.messages = s.messages[drop:]
	}

	return nil
}

func (s *messageRepository) Recent(_ context.Context, limit int) ([]*entity.Message, error) {
	if limit <= 0 {
		return []*entity.Message{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := max(len(s.messages)-limit, 0)
	out := make([]*entity.Message, 0, len(s.messages)-start)
	for _, msg := range s.messages[start:] {
		cp := *msg
		out = append(out, &cp)
	}

	return out, nil
}
