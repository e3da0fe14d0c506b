package main

import (
	"context"
	"log/slog"
	"os"

	"chat/config"
	"chat/internal/delivery"
	"chat/internal/delivery/http"
	"chat/internal/delivery/http/router/handler"
	"chat/internal/delivery/hub"
	"chat/internal/delivery/supervisor"
	"chat/internal/delivery/tcp"
	"chat/internal/domain/service"
	"chat/internal/infra/auth"
	logs "chat/internal/infra/log"
	"chat/internal/infra/persistence"
	"chat/internal/infra/pubsub"
	"chat/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

type deliveryResult struct {
	fx.Out

	Delivery delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		persistence.Module,
		injectService(),
		injectHub(),
		injectUsecase(),
		injectHandler(),
		injectDelivery(),
		fx.Invoke(
			registerShutdown,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
		),
		pubsub.Module,
	)
}

func injectHub() fx.Option {
	return fx.Provide(
		hub.NewRegistry,
		hub.NewBroadcaster,
		func(b *hub.Broadcaster) service.MessageBroadcaster { return b },
		supervisor.New,
	)
}

func injectUsecase() fx.Option {
	return fx.Provide(
		impl.NewAccountService,
		impl.NewChatService,
	)
}

func injectHandler() fx.Option {
	return fx.Provide(
		handler.NewStatusHandler,
		handler.NewWebSocketHandler,
	)
}

// injectDelivery provides only the transports enabled in config; a disabled
// transport contributes nothing to the deliveries group.
func injectDelivery() fx.Option {
	return fx.Provide(
		func(cfg *config.Config, params tcp.ServerParams) (deliveryResult, error) {
			if !cfg.TCP.Enabled {
				return deliveryResult{}, nil
			}
			srv, err := tcp.NewServer(params)

			return deliveryResult{Delivery: srv}, err
		},
		func(cfg *config.Config, params http.ServerParams) (deliveryResult, error) {
			if !cfg.HTTP.Enabled {
				return deliveryResult{}, nil
			}
			srv, err := http.NewServer(params)

			return deliveryResult{Delivery: srv}, err
		},
	)
}

// registerShutdown is invoked before the transports are built, so its stop
// hook runs after their listeners have closed.
func registerShutdown(lc fx.Lifecycle, cfg *config.Config, sup *supervisor.Supervisor) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Chat.ShutdownTimeout)
			defer cancel()

			return sup.Shutdown(shutdownCtx)
		},
	})
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		if delivery == nil {
			continue
		}
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
