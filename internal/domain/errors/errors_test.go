package errors

import (
	"testing"

	"chat/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_UnwrapsAppError(t *testing.T) {
	wrapped := ErrUsernameTaken.WrapMessage("register alice")

	appErr := From(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, "USERNAME_TAKEN", appErr.ErrorCode())
	assert.Equal(t, KindAuth, appErr.Kind())
	assert.True(t, errors.Is(wrapped, ErrUsernameTaken))
}

func TestFrom_HidesInternalErrors(t *testing.T) {
	appErr := From(errors.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, ErrInternalError, appErr)
	assert.NotContains(t, appErr.Message(), "10.0.0.3")
	assert.Nil(t, From(nil))
}

func TestWithDetails_KeepsIdentity(t *testing.T) {
	detailed := ErrValidationFailed.WithDetails("username too short")

	assert.True(t, errors.Is(detailed, ErrValidationFailed))
	assert.Equal(t, "Invalid request: username too short", detailed.Error())
	assert.Equal(t, "Invalid request", detailed.Message())
}

func TestWithMessage_OverridesClientText(t *testing.T) {
	custom := ErrValidationFailed.WithMessage("Message cannot be empty")

	assert.True(t, errors.Is(custom, ErrValidationFailed))
	assert.Equal(t, "Message cannot be empty", custom.Message())
	assert.Equal(t, "Invalid request", ErrValidationFailed.Message())
}

func TestStoreError(t *testing.T) {
	cause := errors.New("disk full")
	err := errors.Wrap(NewStoreError(cause, "append message"), "post message")

	assert.True(t, errors.Is(err, ErrStoreFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindStore, KindOf(err))

	appErr := From(err)
	assert.Equal(t, "STORE_FAILURE", appErr.ErrorCode())
	assert.Equal(t, "append message", appErr.Details())
	assert.NotContains(t, appErr.Message(), "disk full")
}
