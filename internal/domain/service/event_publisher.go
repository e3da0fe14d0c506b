package service

import (
	"context"
)

// MessageEvent is emitted for every accepted chat message so that
// downstream consumers (archival, moderation, analytics) can follow the room.
type MessageEvent struct {
	Sequence  int64  `json:"sequence"`
	SenderID  int64  `json:"sender_id"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishMessageEvent publishes one message event
	PublishMessageEvent(ctx context.Context, event *MessageEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
