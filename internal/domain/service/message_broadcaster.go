package service

import (
	"context"

	"chat/internal/domain/entity"
)

// MessageBroadcaster delivers an accepted message to every live session.
// Publish calls are serialized: two calls completing in order A, B are
// enqueued to every session in that order. Delivery failures are handled
// per session and never returned to the caller.
type MessageBroadcaster interface {
	Publish(ctx context.Context, msg *entity.Message)
}
