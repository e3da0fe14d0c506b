package pubsub

import (
	"context"
	"sync"
	"testing"

	"chat/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	seen    []int64
	release chan struct{}
	closed  bool
}

func (r *recordingPublisher) PublishMessageEvent(_ context.Context, event *service.MessageEvent) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, event.Sequence)

	return nil
}

func (r *recordingPublisher) Close() error {
	r.closed = true

	return nil
}

func TestAsyncPublisher_PreservesOrderAndFlushesOnClose(t *testing.T) {
	next := &recordingPublisher{}
	p := newAsyncPublisher(next, discardLogger(), 64)

	for i := int64(1); i <= 50; i++ {
		require.NoError(t, p.PublishMessageEvent(context.Background(), &service.MessageEvent{Sequence: i}))
	}
	require.NoError(t, p.Close())

	require.Len(t, next.seen, 50)
	for i, seq := range next.seen {
		assert.Equal(t, int64(i+1), seq)
	}
	assert.True(t, next.closed)

	err := p.PublishMessageEvent(context.Background(), &service.MessageEvent{Sequence: 51})
	assert.True(t, errors.Is(err, errPublisherClosed))
}

func TestAsyncPublisher_DropsWhenQueueFull(t *testing.T) {
	next := &recordingPublisher{release: make(chan struct{})}
	p := newAsyncPublisher(next, discardLogger(), 1)

	// The worker takes at most one event off the queue before blocking on
	// release, so three sends must overflow a queue of one.
	var dropped int
	for i := int64(1); i <= 3; i++ {
		if err := p.PublishMessageEvent(context.Background(), &service.MessageEvent{Sequence: i}); err != nil {
			assert.True(t, errors.Is(err, errQueueFull))
			dropped++
		}
	}
	assert.GreaterOrEqual(t, dropped, 1)

	close(next.release)
	require.NoError(t, p.Close())
}
