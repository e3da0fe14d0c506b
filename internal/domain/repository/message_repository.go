package repository

import (
	"context"

	"chat/internal/domain/entity"
)

// MessageRepository is the history store port: an append-only ordered log.
type MessageRepository interface {
	// Append stores msg at the end of the log and sets msg.ID.
	Append(ctx context.Context, msg *entity.Message) error

	// Recent returns the most recent limit entries, oldest first.
	// A limit of zero or less returns an empty slice.
	Recent(ctx context.Context, limit int) ([]*entity.Message, error)
}
