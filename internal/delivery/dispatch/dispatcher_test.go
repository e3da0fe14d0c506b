package dispatch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"chat/config"
	"chat/internal/domain/repository"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Register(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.connect(t, "c1")

	assert.Equal(t, OutcomeContinue, c.send(t, `{"type":"register","username":"alice","password":"secret1"}`))
	resp := c.read(t)
	assert.Equal(t, "register_response", resp["type"])
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(1), resp["user_id"])

	user, err := srv.users.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	firstHash := user.PasswordHash

	c.send(t, `{"type":"register","username":"alice","password":"other99"}`)
	resp = c.read(t)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Username already exists", resp["message"])

	user, err = srv.users.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, firstHash, user.PasswordHash)
	assert.Equal(t, StateUnauthenticated, c.dispatcher.State())
}

func TestDispatcher_RegisterValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.connect(t, "c1")

	tests := []struct {
		frame   string
		message string
	}{
		{`{"type":"register","username":"ab","password":"secret1"}`, "Username must be between 3 and 20 characters"},
		{`{"type":"register","username":"bad name","password":"secret1"}`, "Username may only contain letters, numbers and underscores"},
		{`{"type":"register","username":"carol","password":"12345"}`, "Password must be between 6 and 50 characters"},
		{`{"type":"register","username":7,"password":"secret1"}`, "Invalid request"},
	}
	for _, tt := range tests {
		assert.Equal(t, OutcomeContinue, c.send(t, tt.frame))
		resp := c.read(t)
		assert.Equal(t, "register_response", resp["type"])
		assert.Equal(t, "error", resp["status"])
		assert.Equal(t, tt.message, resp["message"])
	}

	_, err := srv.users.FindByUsername(context.Background(), "ab")
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))

	c.send(t, `{"type":"register","username":"abc","password":"secret1"}`)
	assert.Equal(t, "success", c.read(t)["status"])
}

func TestDispatcher_LoginFailureKeepsUnauthenticated(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.connect(t, "c1")

	c.send(t, `{"type":"register","username":"alice","password":"secret1"}`)
	c.read(t)

	c.send(t, `{"type":"login","username":"alice","password":"wrong99"}`)
	resp := c.read(t)
	assert.Equal(t, "login_response", resp["type"])
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Invalid username or password", resp["message"])
	assert.Equal(t, StateUnauthenticated, c.dispatcher.State())
	assert.Zero(t, srv.registry.Count())

	assert.Equal(t, OutcomeProtocolError, c.send(t, `{"type":"send_message","message":"hi"}`))
	resp = c.read(t)
	assert.Equal(t, "error", resp["type"])
	assert.Equal(t, "NOT_AUTHENTICATED", resp["code"])

	history, err := srv.messages.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDispatcher_LoginSuccess(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.connect(t, "c1")

	resp := c.login(t, "alice")
	assert.Equal(t, "login_response", resp["type"])
	assert.Equal(t, float64(1), resp["user_id"])
	assert.Equal(t, "alice", resp["username"])
	assert.NotEmpty(t, resp["token"])
	expiresAt, err := time.Parse(time.RFC3339, resp["token_expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
	assert.Equal(t, StateAuthenticated, c.dispatcher.State())
	assert.True(t, srv.registry.Contains("c1"))

	assert.Equal(t, OutcomeProtocolError, c.send(t, `{"type":"login","username":"alice","password":"secret1"}`))
	assert.Equal(t, "ALREADY_AUTHENTICATED", c.read(t)["code"])
	assert.Equal(t, OutcomeProtocolError, c.send(t, `{"type":"register","username":"bob","password":"secret1"}`))
	assert.Equal(t, "ALREADY_AUTHENTICATED", c.read(t)["code"])
}

func TestDispatcher_TokenLogin(t *testing.T) {
	srv := newTestServer(t, nil)
	first := srv.connect(t, "c1")
	token, ok := first.login(t, "alice")["token"].(string)
	require.True(t, ok)

	second := srv.connect(t, "c2")
	second.send(t, fmt.Sprintf(`{"type":"login","token":%q}`, token))
	resp := second.read(t)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "alice", resp["username"])
	assert.Equal(t, StateAuthenticated, second.dispatcher.State())

	third := srv.connect(t, "c3")
	third.send(t, `{"type":"login","token":"forged.token.value"}`)
	resp = third.read(t)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Invalid or expired token", resp["message"])
}

func TestDispatcher_TokensDisabled(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Auth.TokenSecret = "" })
	c := srv.connect(t, "c1")

	resp := c.login(t, "alice")
	_, hasToken := resp["token"]
	assert.False(t, hasToken)
	_, hasExpiry := resp["token_expires_at"]
	assert.False(t, hasExpiry)
}

func TestDispatcher_TwoClientScenario(t *testing.T) {
	srv := newTestServer(t, nil)
	a := srv.connect(t, "a")
	b := srv.connect(t, "b")

	a.login(t, "alice")
	a.send(t, `{"type":"send_message","sender":"alice","message":"hi"}`)
	echo := a.read(t)
	assert.Equal(t, "new_message", echo["type"])
	assert.Equal(t, "alice", echo["sender"])
	assert.Equal(t, "hi", echo["message"])

	b.login(t, "bob")
	b.send(t, `{"type":"get_history","limit":10}`)
	history := b.read(t)
	assert.Equal(t, "history_response", history["type"])
	messages, ok := history["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	entry := messages[0].(map[string]any)
	assert.Equal(t, "alice", entry["sender"])
	assert.Equal(t, "hi", entry["message"])
	assert.Equal(t, echo["timestamp"], entry["timestamp"])

	a.send(t, `{"type":"send_message","sender":"alice","message":"second"}`)
	pushed := b.read(t)
	assert.Equal(t, "new_message", pushed["type"])
	assert.Equal(t, "second", pushed["message"])
	assert.Equal(t, "second", a.read(t)["message"])
}

func TestDispatcher_BroadcastReachesEverySession(t *testing.T) {
	srv := newTestServer(t, nil)

	const n = 4
	clients := make([]*testClient, 0, n)
	for i := range n {
		c := srv.connect(t, fmt.Sprintf("c%d", i))
		c.login(t, fmt.Sprintf("user%d", i))
		clients = append(clients, c)
	}

	clients[2].send(t, `{"type":"send_message","message":"one"}`)
	clients[0].send(t, `{"type":"send_message","message":"two"}`)

	var reference []map[string]any
	for i, c := range clients {
		got := []map[string]any{c.read(t), c.read(t)}
		assert.Equal(t, "one", got[0]["message"])
		assert.Equal(t, "user2", got[0]["sender"])
		assert.Equal(t, "two", got[1]["message"])
		if i == 0 {
			reference = got
		} else {
			assert.Equal(t, reference, got)
		}
		c.expectSilence(t)
	}
}

func TestDispatcher_SendMessageValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	a := srv.connect(t, "a")
	b := srv.connect(t, "b")
	a.login(t, "alice")
	b.login(t, "bob")

	for _, text := range []string{"   ", "", strings.Repeat("x", 5001)} {
		assert.Equal(t, OutcomeContinue, a.send(t, fmt.Sprintf(`{"type":"send_message","message":%q}`, text)))
		resp := a.read(t)
		assert.Equal(t, "error", resp["type"])
		assert.Equal(t, "VALIDATION_FAILED", resp["code"])
	}
	b.expectSilence(t)

	a.send(t, fmt.Sprintf(`{"type":"send_message","message":%q}`, strings.Repeat("x", 5000)))
	assert.Equal(t, "new_message", b.read(t)["type"])
}

func TestDispatcher_SenderComesFromSession(t *testing.T) {
	srv := newTestServer(t, nil)
	a := srv.connect(t, "a")
	a.login(t, "alice")

	a.send(t, `{"type":"send_message","sender":"mallory","message":"spoof"}`)
	assert.Equal(t, "alice", a.read(t)["sender"])
}

func TestDispatcher_HistoryLimits(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Chat.HistoryMaxLimit = 3 })
	a := srv.connect(t, "a")
	a.login(t, "alice")
	for i := range 5 {
		a.send(t, fmt.Sprintf(`{"type":"send_message","message":"m%d"}`, i))
		a.read(t)
	}

	a.send(t, `{"type":"get_history","limit":0}`)
	assert.Equal(t, []any{}, a.read(t)["messages"])

	a.send(t, `{"type":"get_history","limit":100}`)
	messages := a.read(t)["messages"].([]any)
	require.Len(t, messages, 3)
	assert.Equal(t, "m2", messages[0].(map[string]any)["message"])
	assert.Equal(t, "m4", messages[2].(map[string]any)["message"])

	a.send(t, `{"type":"get_history","limit":"ten"}`)
	assert.Equal(t, "VALIDATION_FAILED", a.read(t)["code"])
}

func TestDispatcher_UnknownType(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.connect(t, "c1")

	assert.Equal(t, OutcomeProtocolError, c.send(t, `{"type":"typing"}`))
	resp := c.read(t)
	assert.Equal(t, "error", resp["type"])
	assert.Equal(t, "UNKNOWN_TYPE", resp["code"])
	assert.Equal(t, "Unknown request type", resp["message"])
	assert.Equal(t, StateUnauthenticated, c.dispatcher.State())

	assert.Equal(t, OutcomeProtocolError, c.send(t, `{"no":"type"}`))
	assert.Equal(t, "MISSING_TYPE", c.read(t)["code"])
}

func TestDispatcher_Logout(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.connect(t, "c1")

	assert.Equal(t, OutcomeProtocolError, c.send(t, `{"type":"logout"}`))
	assert.Equal(t, "NOT_AUTHENTICATED", c.read(t)["code"])

	c.login(t, "alice")
	assert.Equal(t, OutcomeClose, c.send(t, `{"type":"logout"}`))
	resp := c.read(t)
	assert.Equal(t, "logout_response", resp["type"])
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, StateClosed, c.dispatcher.State())
	assert.False(t, srv.registry.Contains("c1"))
}

func TestDispatcher_HistoryOnLogin(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Chat.HistoryOnLogin = 2 })
	a := srv.connect(t, "a")
	a.login(t, "alice")
	history := a.read(t)
	assert.Equal(t, "history_response", history["type"])
	assert.Equal(t, []any{}, history["messages"])

	for _, text := range []string{"one", "two", "three"} {
		a.send(t, fmt.Sprintf(`{"type":"send_message","message":%q}`, text))
		a.read(t)
	}

	b := srv.connect(t, "b")
	b.login(t, "bob")
	messages := b.read(t)["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "two", messages[0].(map[string]any)["message"])
	assert.True(t, srv.registry.Contains("b"))
}

func TestDispatcher_ClosedSessionSkipsRegistration(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.connect(t, "c1")
	c.send(t, `{"type":"register","username":"alice","password":"secret1"}`)
	c.read(t)

	c.session.Close("peer vanished")
	assert.Equal(t, OutcomeClose, c.send(t, `{"type":"login","username":"alice","password":"secret1"}`))
	assert.False(t, srv.registry.Contains("c1"))
}
