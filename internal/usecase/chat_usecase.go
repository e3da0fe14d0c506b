package usecase

import (
	"context"

	"chat/internal/domain/entity"
)

// PostMessageInput is one send_message request from an authenticated session.
// Sender fields come from the session, never from the client frame.
type PostMessageInput struct {
	SenderID int64
	Sender   string
	Text     string `validate:"required,max=5000"`
}

// PostMessageOutput returns the stored and broadcast message.
type PostMessageOutput struct {
	Message *entity.Message
}

// HistoryInput requests the most recent messages. A nil Limit selects the
// configured default.
type HistoryInput struct {
	Limit *int
}

// HistoryOutput holds messages oldest first.
type HistoryOutput struct {
	Messages []*entity.Message
}

// JoinInput delivers history to a newly authenticated session and admits it
// to the live stream. Join runs with message posting paused, so every later
// broadcast follows the history it received and none is repeated in it.
type JoinInput struct {
	Limit *int
	Join  func(messages []*entity.Message) error
}

// ChatUsecase defines message posting and history queries.
type ChatUsecase interface {
	PostMessage(ctx context.Context, input *PostMessageInput) (*PostMessageOutput, error)
	History(ctx context.Context, input *HistoryInput) (*HistoryOutput, error)
	JoinWithHistory(ctx context.Context, input *JoinInput) error
}
