package postgres

import (
	"context"
	"slices"

	"chat/internal/domain/entity"
	domainerrors "chat/internal/domain/errors"
	"chat/internal/domain/repository"
	"chat/internal/infra/persistence/model"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// messageRepository implements the repository.MessageRepository interface using GORM.
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository is the constructor for messageRepository.
func NewMessageRepository(db *gorm.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

// Append inserts the message; the serial primary key records append order.
func (repo *messageRepository) Append(ctx context.Context, msg *entity.Message) error {
	msgM := fromMessageDomain(msg)

	if err := repo.db.WithContext(ctx).Clauses(dbresolver.Write).Create(msgM).Error; err != nil {
		return domainerrors.NewStoreError(err, "append message")
	}

	msg.ID = msgM.ID

	return nil
}

// Recent returns the newest limit messages, oldest first. History reads may
// be served by replicas.
func (repo *messageRepository) Recent(ctx context.Context, limit int) ([]*entity.Message, error) {
	if limit <= 0 {
		return []*entity.Message{}, nil
	}

	var rows []*model.MessageModel
	err := repo.db.WithContext(ctx).
		Clauses(dbresolver.Read).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, domainerrors.NewStoreError(err, "query recent messages")
	}

	slices.Reverse(rows)

	messages := make([]*entity.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessageDomain(row))
	}

	return messages, nil
}

func toMessageDomain(data *model.MessageModel) *entity.Message {
	return &entity.Message{
		ID:        data.ID,
		SenderID:  data.SenderID,
		Sender:    data.SenderUsername,
		Text:      data.MessageText,
		Timestamp: data.Timestamp.UTC(),
	}
}

func fromMessageDomain(data *entity.Message) *model.MessageModel {
	return &model.MessageModel{
		ID:             data.ID,
		SenderID:       data.SenderID,
		SenderUsername: data.Sender,
		MessageText:    data.Text,
		Timestamp:      data.Timestamp,
	}
}
