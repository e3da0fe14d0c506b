package redis

import (
	"context"
	"encoding/json"
	"time"

	"chat/internal/domain/entity"
	domainerrors "chat/internal/domain/errors"
	"chat/internal/domain/repository"
	"chat/internal/errors"

	goredis "github.com/redis/go-redis/v9"
)

// storedMessage is the JSON layout of one list element.
type storedMessage struct {
	ID        int64     `json:"id"`
	SenderID  int64     `json:"sender_id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type messageRepository struct {
	client      goredis.UniversalClient
	key         string
	seqKey      string
	maxMessages int
}

// NewMessageRepository stores history under key. When maxMessages is
// positive the list is trimmed to that many newest entries on every append.
func NewMessageRepository(client goredis.UniversalClient, key string, maxMessages int) repository.MessageRepository {
	return &messageRepository{
		client:      client,
		key:         key,
		seqKey:      key + ":seq",
		maxMessages: maxMessages,
	}
}

func (r *messageRepository) Append(ctx context.Context, msg *entity.Message) error {
	id, err := r.client.Incr(ctx, r.seqKey).Result()
	if err != nil {
		return domainerrors.NewStoreError(err, "allocate message id")
	}

	data, err := json.Marshal(storedMessage{
		ID:        id,
		SenderID:  msg.SenderID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.Timestamp.UTC(),
	})
	if err != nil {
		return domainerrors.NewStoreError(errors.Wrap(err, "marshal message"), "append message")
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, r.key, data)
		if r.maxMessages > 0 {
			pipe.LTrim(ctx, r.key, int64(-r.maxMessages), -1)
		}

		return nil
	})
	if err != nil {
		return domainerrors.NewStoreError(err, "append message")
	}

	msg.ID = id

	return nil
}

func (r *messageRepository) Recent(ctx context.Context, limit int) ([]*entity.Message, error) {
	if limit <= 0 {
		return []*entity.Message{}, nil
	}

	values, err := r.client.LRange(ctx, r.key, int64(-limit), -1).Result()
	if err != nil {
		return nil, domainerrors.NewStoreError(err, "query recent messages")
	}

	messages := make([]*entity.Message, 0, len(values))
	for _, value := range values {
		var stored storedMessage
		if err := json.Unmarshal([]byte(value), &stored); err != nil {
			return nil, domainerrors.NewStoreError(errors.Wrap(err, "unmarshal message"), "query recent messages")
		}
		messages = append(messages, &entity.Message{
			ID:        stored.ID,
			SenderID:  stored.SenderID,
			Sender:    stored.Sender,
			Text:      stored.Text,
			Timestamp: stored.Timestamp.UTC(),
		})
	}

	return messages, nil
}
