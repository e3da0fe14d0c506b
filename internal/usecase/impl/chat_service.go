package impl

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chat/config"
	deliverycontext "chat/internal/delivery/context"
	"chat/internal/domain/entity"
	"chat/internal/domain/repository"
	"chat/internal/domain/service"
	"chat/internal/errors"
	"chat/internal/usecase"

	"go.uber.org/fx"
)

// chatService implements the ChatUsecase interface.
type chatService struct {
	messageRepo  repository.MessageRepository
	broadcaster  service.MessageBroadcaster
	publisher    service.EventPublisher
	validator    *requestValidator
	maxLimit     int
	defaultLimit int
	logger       *slog.Logger
	now          func() time.Time

	// mu orders stamp, append and broadcast so history order is delivery order.
	mu        sync.Mutex
	lastStamp time.Time
}

// ChatServiceParams holds dependencies for ChatService, injected by Fx.
type ChatServiceParams struct {
	fx.In

	MessageRepo repository.MessageRepository
	Broadcaster service.MessageBroadcaster
	Publisher   service.EventPublisher
	Config      *config.Config
	Logger      *slog.Logger
}

// NewChatService is the constructor for chatService.
func NewChatService(params ChatServiceParams) usecase.ChatUsecase {
	return &chatService{
		messageRepo:  params.MessageRepo,
		broadcaster:  params.Broadcaster,
		publisher:    params.Publisher,
		validator:    newRequestValidator(),
		maxLimit:     params.Config.Chat.HistoryMaxLimit,
		defaultLimit: params.Config.Chat.HistoryDefaultLimit,
		logger:       params.Logger,
		now:          time.Now,
	}
}

func (srv *chatService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// PostMessage trims and validates the text, stamps it with the server time,
// appends it to the history and hands it to the broadcaster. Delivery
// failures never surface here; only validation and store errors do.
func (srv *chatService) PostMessage(ctx context.Context, input *usecase.PostMessageInput) (*usecase.PostMessageOutput, error) {
	trimmed := *input
	trimmed.Text = strings.TrimSpace(input.Text)
	if err := srv.validator.Struct(&trimmed); err != nil {
		return nil, err
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	// Microsecond precision survives every store, so history and broadcast agree.
	stamp := srv.now().UTC().Truncate(time.Microsecond)
	if stamp.Before(srv.lastStamp) {
		stamp = srv.lastStamp
	}

	msg := &entity.Message{
		SenderID:  trimmed.SenderID,
		Sender:    trimmed.Sender,
		Text:      trimmed.Text,
		Timestamp: stamp,
	}
	if err := srv.messageRepo.Append(ctx, msg); err != nil {
		srv.log(ctx).Error("Failed to append message",
			slog.String("operation", "append message"),
			slog.String("sender", trimmed.Sender),
			slog.String("error", err.Error()),
		)

		return nil, errors.Wrap(err, "append message")
	}
	srv.lastStamp = stamp

	srv.broadcaster.Publish(ctx, msg)

	event := &service.MessageEvent{
		Sequence:  msg.ID,
		SenderID:  msg.SenderID,
		Sender:    msg.Sender,
		Message:   msg.Text,
		Timestamp: msg.FormattedTimestamp(),
	}
	if err := srv.publisher.PublishMessageEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Message event not published",
			slog.Int64("sequence", msg.ID),
			slog.String("error", err.Error()),
		)
	}

	return &usecase.PostMessageOutput{Message: msg}, nil
}

// History returns the newest messages, oldest first, with the requested
// limit clamped to [0, maxLimit].
func (srv *chatService) History(ctx context.Context, input *usecase.HistoryInput) (*usecase.HistoryOutput, error) {
	messages, err := srv.recent(ctx, srv.clampLimit(input.Limit))
	if err != nil {
		return nil, err
	}

	return &usecase.HistoryOutput{Messages: messages}, nil
}

// JoinWithHistory reads the history and runs input.Join while holding the
// posting lock, so no message lands between the snapshot and the join.
func (srv *chatService) JoinWithHistory(ctx context.Context, input *usecase.JoinInput) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	messages, err := srv.recent(ctx, srv.clampLimit(input.Limit))
	if err != nil {
		return err
	}

	return input.Join(messages)
}

func (srv *chatService) recent(ctx context.Context, limit int) ([]*entity.Message, error) {
	if limit == 0 {
		return []*entity.Message{}, nil
	}

	messages, err := srv.messageRepo.Recent(ctx, limit)
	if err != nil {
		srv.log(ctx).Error("Failed to query history",
			slog.String("operation", "query history"),
			slog.Int("limit", limit),
			slog.String("error", err.Error()),
		)

		return nil, errors.Wrap(err, "query history")
	}

	return messages, nil
}

func (srv *chatService) clampLimit(requested *int) int {
	limit := srv.defaultLimit
	if requested != nil {
		limit = *requested
	}

	return min(max(limit, 0), srv.maxLimit)
}
