// Package context carries connection-scoped values (ids and a tagged logger)
// through context.Context and echo.Context.
package context

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// KeyRequestID is the key for storing the HTTP request ID.
	KeyRequestID ContextKey = "request_id"

	// KeyConnID is the key for storing the chat connection ID.
	KeyConnID ContextKey = "conn_id"

	// KeyLogger is the key for storing the scoped logger.
	KeyLogger ContextKey = "logger"

	// HeaderXRequestID is the HTTP header name for request ID.
	HeaderXRequestID = "X-Request-Id"
)

// NewConnID returns a fresh connection identifier.
func NewConnID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from echo.Context, generating one if unset.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(string(KeyRequestID)).(string); ok && id != "" {
		return id
	}

	return uuid.NewString()
}

// SetRequestID sets the request ID in echo.Context.
func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(KeyRequestID), requestID)
}

// WithRequestID returns a new context with the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// GetRequestIDFromContext returns the request ID or "".
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(KeyRequestID).(string)

	return id
}

// WithConnID returns a new context with the connection ID.
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, KeyConnID, connID)
}

// GetConnID returns the connection ID or "".
func GetConnID(ctx context.Context) string {
	id, _ := ctx.Value(KeyConnID).(string)

	return id
}

// GetLogger extracts the scoped logger, nil when absent.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(KeyLogger).(*slog.Logger); ok {
		return logger
	}

	return nil
}

// GetLoggerOrDefault extracts the scoped logger, falling back when absent.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := GetLogger(ctx); logger != nil {
		return logger
	}

	return fallback
}

// WithLogger returns a new context with the logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}
