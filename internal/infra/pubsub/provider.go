// Package pubsub publishes accepted chat messages to an event bus.
package pubsub

import (
	"context"
	"log/slog"

	"chat/config"
	"chat/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	// ProviderLocal pushes events to an HTTP endpoint in the Pub/Sub push format.
	ProviderLocal = "local"
	// ProviderGoogle publishes to a Google Cloud Pub/Sub topic.
	ProviderGoogle = "google"
)

// noopPublisher drops events when no provider is configured.
type noopPublisher struct {
	logger *slog.Logger
}

func (p *noopPublisher) PublishMessageEvent(_ context.Context, event *service.MessageEvent) error {
	p.logger.Debug("Event publishing disabled, skipping", slog.Int64("sequence", event.Sequence))

	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}

// PublisherParams holds dependencies for EventPublisher, injected by Fx
type PublisherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewEventPublisher creates an EventPublisher based on configuration
func NewEventPublisher(params PublisherParams) (service.EventPublisher, error) {
	cfg := params.Config.PubSub
	logger := params.Logger.With(slog.String("component", "pubsub"))

	if cfg == nil || cfg.Provider == "" {
		logger.Info("PubSub not configured, using no-op publisher")

		return &noopPublisher{logger: logger}, nil
	}

	var publisher service.EventPublisher

	switch cfg.Provider {
	case ProviderLocal:
		if cfg.LocalEndpoint == "" {
			return nil, errors.New("local endpoint is required for local provider")
		}
		logger.Info("Using local HTTP publisher", slog.String("endpoint", cfg.LocalEndpoint))
		publisher = NewLocalHTTPPublisher(cfg.LocalEndpoint, logger)

	case ProviderGoogle:
		if cfg.ProjectID == "" {
			return nil, errors.New("project ID is required for google provider")
		}
		if cfg.TopicID == "" {
			return nil, errors.New("topic ID is required for google provider")
		}

		google := &googlePubSubPublisher{logger: logger}
		publisher = google
		params.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return google.connect(ctx, cfg.ProjectID, cfg.TopicID)
			},
		})

	default:
		return nil, errors.Errorf("unknown pubsub provider: %s", cfg.Provider)
	}

	async := newAsyncPublisher(publisher, logger, asyncQueueSize)
	params.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			logger.Info("Closing EventPublisher")

			return async.Close()
		},
	})

	return async, nil
}

// Module provides the Pub/Sub FX module
var Module = fx.Options(
	fx.Provide(NewEventPublisher),
)
