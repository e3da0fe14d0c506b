package entity

import "time"

// TimestampLayout is the wire format for message timestamps (RFC 3339, UTC).
const TimestampLayout = time.RFC3339Nano

// Message is one accepted chat message (a history entry).
// It is immutable once appended to the history store.
type Message struct {
	ID        int64     // Store-assigned position, increasing in append order. Zero before append.
	SenderID  int64     // ID of the authenticated user who sent it.
	Sender    string    // Username of the sender, taken from the session, never from the client.
	Text      string    // Trimmed message text.
	Timestamp time.Time // Server acceptance time in UTC, non-decreasing in append order.
}

// FormattedTimestamp renders Timestamp in the wire format.
func (m *Message) FormattedTimestamp() string {
	return m.Timestamp.UTC().Format(TimestampLayout)
}
