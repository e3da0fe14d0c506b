package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"chat/config"
	"chat/internal/delivery/hub"
	"chat/internal/delivery/protocol"
	"chat/internal/domain/repository"
	"chat/internal/domain/service"
	"chat/internal/infra/auth"
	"chat/internal/infra/persistence/memory"
	"chat/internal/usecase/impl"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type nopPublisher struct{}

func (nopPublisher) PublishMessageEvent(context.Context, *service.MessageEvent) error { return nil }
func (nopPublisher) Close() error                                                   { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	cfg      *config.Config
	registry *hub.Registry
	users    repository.UserRepository
	messages repository.MessageRepository
	deps     func(*hub.Session) *Dispatcher
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Chat.HistoryMaxLimit = 1000
	cfg.Chat.HistoryDefaultLimit = 50
	cfg.Auth.TokenSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	if mutate != nil {
		mutate(cfg)
	}

	logger := discardLogger()
	registry := hub.NewRegistry()
	users := memory.NewUserRepository()
	messages := memory.NewMessageRepository(0)

	accounts := impl.NewAccountService(impl.AccountServiceParams{
		UserRepo:     users,
		Hasher:       auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		TokenService: auth.NewJWTService(cfg),
		Logger:       logger,
	})
	chat := impl.NewChatService(impl.ChatServiceParams{
		MessageRepo: messages,
		Broadcaster: hub.NewBroadcaster(registry, logger),
		Publisher:   nopPublisher{},
		Config:      cfg,
		Logger:      logger,
	})

	return &testServer{
		cfg:      cfg,
		registry: registry,
		users:    users,
		messages: messages,
		deps: func(session *hub.Session) *Dispatcher {
			return New(session, registry, accounts, chat, Options{HistoryOnLogin: cfg.Chat.HistoryOnLogin, Logger: logger})
		},
	}
}

type testClient struct {
	dispatcher *Dispatcher
	session    *hub.Session
	conn       net.Conn
	reader     *bufio.Reader
}

func (s *testServer) connect(t *testing.T, id string) *testClient {
	t.Helper()

	server, client := net.Pipe()
	session := hub.NewSession(id, server, hub.SessionOptions{QueueSize: 64, WriteTimeout: time.Second, Logger: discardLogger()})
	t.Cleanup(func() {
		s.registry.Remove(id)
		session.Close("test done")
		_ = client.Close()
		session.Wait()
	})

	return &testClient{
		dispatcher: s.deps(session),
		session:    session,
		conn:       client,
		reader:     bufio.NewReader(client),
	}
}

func (c *testClient) send(t *testing.T, frame string) Outcome {
	t.Helper()

	decoder := protocol.NewDecoder(0)
	decoder.Write([]byte(frame + "\n"))
	env, ok, err := decoder.Next()
	require.True(t, ok)
	if err != nil {
		return c.dispatcher.ProtocolError(err)
	}

	return c.dispatcher.Handle(context.Background(), env)
}

func (c *testClient) read(t *testing.T) map[string]any {
	t.Helper()

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &frame))

	return frame
}

func (c *testClient) expectSilence(t *testing.T) {
	t.Helper()

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, err := c.reader.ReadString('\n')
	require.Error(t, err)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout())
}

// login registers and logs in username with a fixed password.
func (c *testClient) login(t *testing.T, username string) map[string]any {
	t.Helper()

	c.send(t, `{"type":"register","username":"`+username+`","password":"secret1"}`)
	require.Equal(t, "success", c.read(t)["status"])
	c.send(t, `{"type":"login","username":"`+username+`","password":"secret1"}`)
	resp := c.read(t)
	require.Equal(t, "success", resp["status"])

	return resp
}
