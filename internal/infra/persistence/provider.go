// Package persistence selects the credential and history store implementations.
package persistence

import (
	"log/slog"

	"chat/config"
	"chat/internal/domain/repository"
	"chat/internal/errors"
	"chat/internal/infra/persistence/memory"
	"chat/internal/infra/persistence/postgres"
	"chat/internal/infra/persistence/redis"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// Stores are the store ports handed to the use cases.
type Stores struct {
	fx.Out

	Users    repository.UserRepository
	Messages repository.MessageRepository
}

// Module provides the repositories chosen by storage.users and storage.messages.
var Module = fx.Module("persistence", fx.Provide(NewStores))

// NewStores opens only the backends the configuration selects. Users and
// messages share one gorm connection when both live in PostgreSQL.
func NewStores(params Params) (Stores, error) {
	cfg := params.Config
	var db *gorm.DB
	openPostgres := func() (*gorm.DB, error) {
		if db != nil {
			return db, nil
		}
		conn, err := postgres.New(postgres.Params{Lifecycle: params.Lifecycle, Config: cfg, Logger: params.Logger})
		if err != nil {
			return nil, err
		}
		db = conn

		return db, nil
	}

	var stores Stores

	switch cfg.Storage.Users {
	case config.StoragePostgres:
		conn, err := openPostgres()
		if err != nil {
			return Stores{}, err
		}
		stores.Users = postgres.NewUserRepository(conn)
	case config.StorageMemory:
		stores.Users = memory.NewUserRepository()
	default:
		return Stores{}, errors.Errorf("unsupported user storage %q", cfg.Storage.Users)
	}

	switch cfg.Storage.Messages {
	case config.StoragePostgres:
		conn, err := openPostgres()
		if err != nil {
			return Stores{}, err
		}
		stores.Messages = postgres.NewMessageRepository(conn)
	case config.StorageRedis:
		client, err := redis.NewClient(redis.Params{Lifecycle: params.Lifecycle, Config: cfg, Logger: params.Logger})
		if err != nil {
			return Stores{}, err
		}
		stores.Messages = redis.NewMessageRepository(client, cfg.Redis.Key, cfg.Redis.MaxMessages)
	case config.StorageMemory:
		stores.Messages = memory.NewMessageRepository(cfg.Storage.MemoryMaxMessages)
	default:
		return Stores{}, errors.Errorf("unsupported message storage %q", cfg.Storage.Messages)
	}

	params.Logger.Info("Stores selected",
		slog.String("users", cfg.Storage.Users),
		slog.String("messages", cfg.Storage.Messages),
	)

	return stores, nil
}
