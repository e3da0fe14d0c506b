// Package supervisor owns every live connection: it pairs each transport
// with a session and dispatcher, runs the read loop and tears both down.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat/config"
	deliverycontext "chat/internal/delivery/context"
	"chat/internal/delivery/dispatch"
	"chat/internal/delivery/hub"
	"chat/internal/delivery/protocol"
	domainerrors "chat/internal/domain/errors"
	"chat/internal/errors"
	"chat/internal/usecase"
	"chat/internal/util"

	"go.uber.org/fx"
)

const readBufferSize = 4096

// Params defines the required parameters
type Params struct {
	fx.In

	Config      *config.Config
	Logger      *slog.Logger
	Registry    *hub.Registry
	Broadcaster *hub.Broadcaster
	Accounts    usecase.AccountUsecase
	Chat        usecase.ChatUsecase
}

// Stats is a point-in-time view for the status endpoint.
type Stats struct {
	Connections int
	Sessions    int
	Online      int
	Uptime      time.Duration
}

// Supervisor tracks the active connection set. A session is in the registry
// only while it is also in the active set.
type Supervisor struct {
	cfg         config.ChatConfig
	logger      *slog.Logger
	registry    *hub.Registry
	broadcaster *hub.Broadcaster
	accounts    usecase.AccountUsecase
	chat        usecase.ChatUsecase
	startedAt   time.Time

	mu      sync.Mutex
	active  map[string]*hub.Session
	closing bool
	wg      sync.WaitGroup
}

// New creates a Supervisor.
func New(params Params) *Supervisor {
	params.Logger.Info("Connection limits",
		slog.String("max_frame", util.FormatBytes(int64(params.Config.Chat.MaxFrameBytes))),
		slog.Bool("strict_framing", params.Config.Chat.StrictFraming),
		slog.Int("max_protocol_errors", params.Config.Chat.MaxProtocolErrors),
		slog.Duration("idle_timeout", params.Config.Chat.IdleTimeout),
	)

	return &Supervisor{
		cfg:         params.Config.Chat,
		logger:      params.Logger,
		registry:    params.Registry,
		broadcaster: params.Broadcaster,
		accounts:    params.Accounts,
		chat:        params.Chat,
		startedAt:   time.Now(),
		active:      make(map[string]*hub.Session),
	}
}

// Serve runs one connection until it ends. It blocks; transports call it
// from their own goroutine per connection.
func (s *Supervisor) Serve(ctx context.Context, conn hub.Conn, transport string) {
	connID := deliverycontext.NewConnID()
	logger := s.logger.With(
		slog.String("conn_id", connID),
		slog.String("transport", transport),
		slog.String("remote_addr", remoteAddr(conn)),
	)

	session := hub.NewSession(connID, conn, hub.SessionOptions{
		QueueSize:    s.cfg.OutboundQueueSize,
		WriteTimeout: s.cfg.WriteTimeout,
		Logger:       logger,
	})
	if !s.track(session) {
		session.Close("server shutting down")
		session.Wait()

		return
	}

	dispatcher := dispatch.New(session, s.registry, s.accounts, s.chat, dispatch.Options{
		HistoryOnLogin: s.cfg.HistoryOnLogin,
		Logger:         logger,
	})
	defer s.teardown(session, dispatcher)

	ctx = deliverycontext.WithConnID(ctx, connID)
	ctx = deliverycontext.WithLogger(ctx, logger)

	logger.Info("Connection opened")
	reason := s.readLoop(ctx, conn, session, dispatcher)
	logger.Info("Connection closed", slog.String("reason", reason))
}

func (s *Supervisor) readLoop(ctx context.Context, conn hub.Conn, session *hub.Session, dispatcher *dispatch.Dispatcher) string {
	decoder := protocol.NewDecoder(s.cfg.MaxFrameBytes)
	buf := make([]byte, readBufferSize)
	protocolErrors := 0
	lastValid := time.Now()

	for {
		if s.cfg.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(lastValid.Add(s.cfg.IdleTimeout)); err != nil {
				return "set read deadline: " + err.Error()
			}
		}

		n, readErr := conn.Read(buf)
		if n > 0 {
			decoder.Write(buf[:n])

			for {
				env, ok, err := decoder.Next()
				if !ok {
					if err != nil {
						dispatcher.Fatal(err)
						session.CloseGracefully("frame too large")

						return "frame too large"
					}

					break
				}

				var outcome dispatch.Outcome
				if err != nil {
					if s.cfg.StrictFraming {
						dispatcher.Fatal(err)
						session.CloseGracefully("malformed frame in strict mode")

						return "malformed frame"
					}
					outcome = dispatcher.ProtocolError(err)
				} else {
					lastValid = time.Now()
					outcome = dispatcher.Handle(ctx, env)
				}

				switch outcome {
				case dispatch.OutcomeClose:
					session.CloseGracefully("dispatcher closed")

					return "closed by dispatcher"
				case dispatch.OutcomeProtocolError:
					protocolErrors++
					if s.cfg.MaxProtocolErrors > 0 && protocolErrors > s.cfg.MaxProtocolErrors {
						dispatcher.Fatal(domainerrors.ErrTooManyProtocolErrors)
						session.CloseGracefully("too many protocol errors")

						return "too many protocol errors"
					}
				case dispatch.OutcomeContinue:
				}
			}
		}

		if readErr != nil {
			switch {
			case errors.IsTimeout(readErr) && !session.Closed():
				session.Close("idle timeout")

				return "idle timeout"
			case errors.IsConnClosed(readErr) || session.Closed():
				return "peer closed"
			default:
				return "read error: " + readErr.Error()
			}
		}
	}
}

// track adds session to the active set unless shutdown has begun.
func (s *Supervisor) track(session *hub.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}
	s.active[session.ID()] = session
	s.wg.Add(1)

	return true
}

// teardown removes the session from the registry before the active set and
// waits for its writer, so the transport is closed when Serve returns.
func (s *Supervisor) teardown(session *hub.Session, dispatcher *dispatch.Dispatcher) {
	s.registry.Remove(session.ID())
	session.Close("connection ended")
	dispatcher.Close()
	session.Wait()

	s.mu.Lock()
	delete(s.active, session.ID())
	s.mu.Unlock()

	s.wg.Done()
}

// Shutdown stops admitting connections, lets in-flight broadcasts finish,
// then closes every connection and waits for their read loops to exit.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	sessions := make([]*hub.Session, 0, len(s.active))
	for _, session := range s.active {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	s.broadcaster.Drain()

	s.logger.Info("Closing connections", slog.Int("count", len(sessions)))
	for _, session := range sessions {
		session.CloseGracefully("server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "connections still open at shutdown deadline")
	}
}

// ActiveCount returns the number of live connections.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}

// Stats reports connection and session counts.
func (s *Supervisor) Stats() Stats {
	return Stats{
		Connections: s.ActiveCount(),
		Sessions:    s.registry.Count(),
		Online:      s.registry.UserCount(),
		Uptime:      time.Since(s.startedAt),
	}
}

func remoteAddr(conn hub.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}

	return ""
}
