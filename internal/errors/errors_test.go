package errors

import (
	"io"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConnClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "eof", err: io.EOF, want: true},
		{name: "wrapped eof", err: Wrap(io.EOF, "read frame"), want: true},
		{name: "closed pipe", err: io.ErrClosedPipe, want: true},
		{name: "net closed", err: net.ErrClosed, want: true},
		{name: "other", err: New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConnClosed(tt.err))
		})
	}
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(nil))
	assert.True(t, IsTimeout(os.ErrDeadlineExceeded))
	assert.True(t, IsTimeout(Wrap(os.ErrDeadlineExceeded, "read")))
	assert.False(t, IsTimeout(io.EOF))
}
