package pubsub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat/internal/domain/service"

	"github.com/pkg/errors"
)

const (
	asyncQueueSize      = 1024
	asyncPublishTimeout = 10 * time.Second
)

var (
	errQueueFull       = errors.New("event queue full")
	errPublisherClosed = errors.New("event publisher closed")
)

// asyncPublisher queues events for one background goroutine so callers never
// wait on the bus. Events leave the queue in the order they were accepted.
type asyncPublisher struct {
	next    service.EventPublisher
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan *service.MessageEvent
	done   chan struct{}
}

func newAsyncPublisher(next service.EventPublisher, logger *slog.Logger, queueSize int) *asyncPublisher {
	p := &asyncPublisher{
		next:    next,
		logger:  logger,
		timeout: asyncPublishTimeout,
		events:  make(chan *service.MessageEvent, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()

	return p
}

func (p *asyncPublisher) run() {
	defer close(p.done)

	for event := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.PublishMessageEvent(ctx, event); err != nil {
			p.logger.Warn("Failed to publish message event",
				slog.Int64("sequence", event.Sequence),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

// PublishMessageEvent enqueues the event without blocking.
func (p *asyncPublisher) PublishMessageEvent(_ context.Context, event *service.MessageEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errPublisherClosed
	}

	select {
	case p.events <- event:
		return nil
	default:
		return errors.Wrapf(errQueueFull, "drop event %d", event.Sequence)
	}
}

// Close flushes queued events and closes the underlying publisher.
func (p *asyncPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	<-p.done

	return p.next.Close()
}
