package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"chat/internal/domain/entity"
	domainerrors "chat/internal/domain/errors"
	"chat/internal/domain/repository"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	alice := &entity.User{Username: "alice", PasswordHash: "h1"}
	require.NoError(t, repo.Create(ctx, alice))
	assert.Equal(t, int64(1), alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "h1", found.PasswordHash)

	byID, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.FindByUsername(ctx, "Alice")
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))
	_, err = repo.FindByID(ctx, 42)
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	require.NoError(t, repo.Create(ctx, &entity.User{Username: "bob", PasswordHash: "first"}))
	err := repo.Create(ctx, &entity.User{Username: "bob", PasswordHash: "second"})
	assert.True(t, errors.Is(err, domainerrors.ErrUsernameTaken))

	found, err := repo.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "first", found.PasswordHash)
}

func TestUserRepository_ConcurrentRegisterSameName(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Create(ctx, &entity.User{Username: "carol", PasswordHash: fmt.Sprint(i)})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++

			continue
		}
		assert.True(t, errors.Is(err, domainerrors.ErrUsernameTaken))
	}
	assert.Equal(t, 1, succeeded)
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	require.NoError(t, repo.Create(ctx, &entity.User{Username: "dave", PasswordHash: "h"}))

	found, err := repo.FindByUsername(ctx, "dave")
	require.NoError(t, err)
	found.PasswordHash = "mutated"

	again, err := repo.FindByUsername(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, "h", again.PasswordHash)
}

func appendN(t *testing.T, repo repository.MessageRepository, n int) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		msg := &entity.Message{
			SenderID:  1,
			Sender:    "alice",
			Text:      fmt.Sprintf("m%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Append(context.Background(), msg))
		require.Equal(t, int64(i), msg.ID)
	}
}

func texts(messages []*entity.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}

	return out
}

func TestMessageRepository_Recent(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(0)
	appendN(t, repo, 5)

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "fewer than stored", limit: 2, want: []string{"m4", "m5"}},
		{name: "exactly stored", limit: 5, want: []string{"m1", "m2", "m3", "m4", "m5"}},
		{name: "more than stored", limit: 100, want: []string{"m1", "m2", "m3", "m4", "m5"}},
		{name: "zero", limit: 0, want: []string{}},
		{name: "negative", limit: -3, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Recent(ctx, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, texts(got))
		})
	}
}

func TestMessageRepository_EmptyHistory(t *testing.T) {
	got, err := NewMessageRepository(0).Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMessageRepository_Retention(t *testing.T) {
	repo := NewMessageRepository(3)
	appendN(t, repo, 5)

	got, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m4", "m5"}, texts(got))
	assert.Equal(t, int64(5), got[2].ID)
}
