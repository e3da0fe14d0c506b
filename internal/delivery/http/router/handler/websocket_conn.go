package handler

import (
	"bytes"
	"io"
	"net"
	"time"

	"chat/internal/delivery/hub"
	"chat/internal/errors"

	"github.com/gorilla/websocket"
)

const closeWriteWait = time.Second

// wsConn presents a websocket as the byte stream hub.Session expects.
// Every inbound message is one frame and gets a trailing newline; every
// outbound frame is sent as one text message.
type wsConn struct {
	conn    *websocket.Conn
	reader  io.Reader
	pending bool
}

var _ hub.Conn = (*wsConn)(nil)

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if c.reader == nil {
			if c.pending {
				c.pending = false
				p[0] = '\n'

				return 1, nil
			}

			_, reader, err := c.conn.NextReader()
			if err != nil {
				return 0, normalizeWSError(err)
			}
			c.reader = reader
		}

		n, err := c.reader.Read(p)
		if errors.Is(err, io.EOF) {
			c.reader = nil
			c.pending = true
			if n == 0 {
				continue
			}

			return n, nil
		}
		if err != nil {
			return n, normalizeWSError(err)
		}

		return n, nil
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(p, []byte("\n"))); err != nil {
		return 0, normalizeWSError(err)
	}

	return len(p), nil
}

// Close sends a normal close frame when it can, then drops the socket.
func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWriteWait),
	)

	return errors.WithStack(c.conn.Close())
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return errors.WithStack(c.conn.SetReadDeadline(t))
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return errors.WithStack(c.conn.SetWriteDeadline(t))
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// normalizeWSError maps close frames to io.EOF so a websocket hangup reads
// like a TCP one.
func normalizeWSError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) || errors.Is(err, websocket.ErrCloseSent) {
		return io.EOF
	}

	return err
}
