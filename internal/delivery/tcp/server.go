// Package tcp accepts newline-delimited JSON chat connections over TCP.
package tcp

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"chat/config"
	"chat/internal/delivery"
	"chat/internal/delivery/supervisor"
	"chat/internal/errors"

	"go.uber.org/fx"
)

// ServerParams holds dependencies for the TCP server, injected by Fx.
type ServerParams struct {
	fx.In

	Lc         fx.Lifecycle
	Cfg        *config.Config
	Logger     *slog.Logger
	Supervisor *supervisor.Supervisor
}

type tcpServer struct {
	addr       string
	logger     *slog.Logger
	supervisor *supervisor.Supervisor

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
	ready    chan struct{}
}

func NewServer(params ServerParams) (delivery.Delivery, error) {
	srv := newServer(
		net.JoinHostPort(params.Cfg.TCP.Host, strconv.Itoa(params.Cfg.TCP.Port)),
		params.Logger,
		params.Supervisor,
	)

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

func newServer(addr string, logger *slog.Logger, sup *supervisor.Supervisor) *tcpServer {
	return &tcpServer{
		addr:       addr,
		logger:     logger.With(slog.String("transport", "tcp")),
		supervisor: sup,
		ready:      make(chan struct{}),
	}
}

// Serve listens and hands every accepted connection to the supervisor.
// It returns nil once the listener is closed by stop.
func (s *tcpServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.addr)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()

		return errors.WithStack(listener.Close())
	}
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("Starting TCP server", slog.String("host_port", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn("Temporary accept failure", slog.String("error", err.Error()))

				continue
			}

			return errors.Wrap(err, "accept")
		}

		go s.supervisor.Serve(ctx, conn, "tcp")
	}
}

// Addr returns the bound address once Serve is listening.
func (s *tcpServer) Addr() net.Addr {
	<-s.ready

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listener.Addr()
}

func (s *tcpServer) stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.listener == nil {
		return nil
	}

	s.logger.Info("Shutting down TCP server")
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.WithStack(err)
	}

	return nil
}
