package hub

import (
	"context"
	"log/slog"
	"sync"

	"chat/internal/delivery/protocol"
	"chat/internal/domain/entity"
	"chat/internal/domain/service"
)

// Broadcaster delivers new_message frames to every registered session.
// Publish calls run one at a time, so every session sees messages in the
// order Publish was called.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger
	mu       sync.Mutex
}

var _ service.MessageBroadcaster = (*Broadcaster)(nil)

// NewBroadcaster returns a Broadcaster over registry.
func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, logger: logger}
}

// Publish encodes msg once and queues it on each session, the sender's own
// included. A session that cannot take the frame is evicted and closed; the
// others are unaffected and nothing is reported to the caller.
func (b *Broadcaster) Publish(ctx context.Context, msg *entity.Message) {
	frame, err := protocol.Encode(protocol.NewMessageFrame(msg))
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to encode broadcast", slog.String("error", err.Error()))

		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, session := range b.registry.Snapshot() {
		if err := session.Send(frame); err != nil {
			b.logger.WarnContext(ctx, "Evicting session after failed delivery",
				slog.String("conn_id", session.ID()),
				slog.String("error", err.Error()),
			)
			b.registry.Remove(session.ID())
			session.Close("broadcast delivery failed")
		}
	}
}

// Drain returns once no Publish call is in progress.
func (b *Broadcaster) Drain() {
	b.mu.Lock()
	// Holding the lock means the in-flight Publish, if any, has returned.
	b.mu.Unlock() //nolint:staticcheck
}
