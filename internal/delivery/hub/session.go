// Package hub tracks live chat sessions and fans messages out to them.
package hub

import (
	"log/slog"
	"net"
	"sync"
	"time"

	domainerrors "chat/internal/domain/errors"
	"chat/internal/errors"
)

// Conn is the transport a session writes to. net.Conn satisfies it, as does
// the WebSocket adapter.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// SessionOptions bounds a session's outbound side.
type SessionOptions struct {
	QueueSize    int
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Session is the server-side state of one connection. Frames are queued by
// Send and written by a single writer goroutine, so writes never interleave
// and a stalled peer only fills its own queue.
type Session struct {
	id           string
	conn         Conn
	writeTimeout time.Duration
	logger       *slog.Logger

	outbound   chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	flush      bool

	mu       sync.RWMutex
	userID   int64
	username string
	authed   bool
}

// NewSession wraps conn and starts its writer.
func NewSession(id string, conn Conn, opts SessionOptions) *Session {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		id:           id,
		conn:         conn,
		writeTimeout: opts.WriteTimeout,
		logger:       logger,
		outbound:     make(chan []byte, queueSize),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
	}
	go s.writeLoop()

	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}

	return ""
}

// Authenticate binds the session to a user. It succeeds once.
func (s *Session) Authenticate(userID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authed {
		return domainerrors.ErrAlreadyAuthenticated
	}
	s.userID = userID
	s.username = username
	s.authed = true

	return nil
}

// Identity returns the bound user, ok is false before Authenticate.
func (s *Session) Identity() (userID int64, username string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userID, s.username, s.authed
}

// Send queues one encoded frame without blocking.
func (s *Session) Send(frame []byte) error {
	select {
	case <-s.done:
		return domainerrors.ErrSessionClosed
	default:
	}

	select {
	case s.outbound <- frame:
		return nil
	default:
		return errors.Wrapf(domainerrors.ErrSlowConsumer, "session %s queue full (%d)", s.id, cap(s.outbound))
	}
}

// Close drops queued frames and closes the transport at once.
func (s *Session) Close(reason string) {
	s.close(reason, false)
}

// CloseGracefully writes what is already queued, then closes the transport.
// Each pending write is still bound by the write timeout.
func (s *Session) CloseGracefully(reason string) {
	s.close(reason, true)
}

func (s *Session) close(reason string, flush bool) {
	s.closeOnce.Do(func() {
		s.flush = flush
		close(s.done)
		if !flush {
			_ = s.conn.Close()
		}
		s.logger.Debug("Session closing", slog.String("reason", reason), slog.Bool("flush", flush))
	})
}

// Done is closed once the session starts closing.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether the session has started closing.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the writer has exited and the transport is closed.
func (s *Session) Wait() {
	<-s.writerDone
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	defer s.conn.Close()

	for {
		select {
		case frame := <-s.outbound:
			if err := s.write(frame); err != nil {
				s.writeFailed(err)

				return
			}
		case <-s.done:
			if s.flush {
				s.drainQueue()
			}

			return
		}
	}
}

func (s *Session) drainQueue() {
	for {
		select {
		case frame := <-s.outbound:
			if err := s.write(frame); err != nil {
				s.writeFailed(err)

				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(frame []byte) error {
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return errors.Wrap(err, "set write deadline")
		}
	}
	if _, err := s.conn.Write(frame); err != nil {
		return errors.Wrap(err, "write frame")
	}

	return nil
}

func (s *Session) writeFailed(err error) {
	if errors.IsConnClosed(err) {
		s.logger.Debug("Write on closed connection", slog.String("error", err.Error()))
	} else {
		s.logger.Warn("Write failed, closing session", slog.String("error", err.Error()))
	}
	s.Close("write failed")
}
