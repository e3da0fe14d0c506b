package impl

import (
	"io"
	"log/slog"

	"chat/config"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Chat.HistoryMaxLimit = 100
	cfg.Chat.HistoryDefaultLimit = 50

	return cfg
}
