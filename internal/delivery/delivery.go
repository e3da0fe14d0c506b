// Package delivery holds the transports that expose the chat service.
package delivery

import "context"

// Delivery is a long-running transport started by the application.
// Serve blocks until the transport stops; shutdown goes through fx hooks.
type Delivery interface {
	Serve(ctx context.Context) error
}
