package persistence

import (
	"io"
	"log/slog"
	"testing"

	"chat/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestNewStores_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Users = config.StorageMemory
	cfg.Storage.Messages = config.StorageMemory

	lc := fxtest.NewLifecycle(t)
	stores, err := NewStores(Params{Lifecycle: lc, Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	assert.NotNil(t, stores.Users)
	assert.NotNil(t, stores.Messages)
}

func TestNewStores_Unsupported(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Users = "sqlite"
	cfg.Storage.Messages = config.StorageMemory

	lc := fxtest.NewLifecycle(t)
	_, err := NewStores(Params{Lifecycle: lc, Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	assert.Error(t, err)
}

func TestNewStores_RedisRequiresConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Users = config.StorageMemory
	cfg.Storage.Messages = config.StorageRedis

	lc := fxtest.NewLifecycle(t)
	_, err := NewStores(Params{Lifecycle: lc, Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	assert.Error(t, err)
}
