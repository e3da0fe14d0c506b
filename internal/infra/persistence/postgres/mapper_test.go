package postgres

import (
	"testing"
	"time"

	"chat/internal/domain/entity"
	"chat/internal/infra/persistence/model"

	"github.com/stretchr/testify/assert"
)

func TestUserMappers(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &entity.User{ID: 7, Username: "alice", PasswordHash: "$2a$12$hash", CreatedAt: now}

	assert.Equal(t, user, toUserDomain(fromUserDomain(user)))
	assert.Nil(t, toUserDomain(nil))
	assert.Nil(t, fromUserDomain(nil))
}

func TestMessageMappers(t *testing.T) {
	local := time.FixedZone("UTC+8", 8*60*60)
	row := &model.MessageModel{
		ID:             3,
		SenderID:       7,
		SenderUsername: "alice",
		MessageText:    "hello",
		Timestamp:      time.Date(2024, 3, 1, 20, 0, 0, 0, local),
	}

	msg := toMessageDomain(row)
	assert.Equal(t, int64(3), msg.ID)
	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())
	assert.Equal(t, "2024-03-01T12:00:00Z", msg.FormattedTimestamp())

	back := fromMessageDomain(msg)
	assert.Equal(t, row.SenderUsername, back.SenderUsername)
	assert.True(t, row.Timestamp.Equal(back.Timestamp))
}
