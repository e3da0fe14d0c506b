package protocol

import (
	"bytes"
	"encoding/json"

	domainerrors "chat/internal/domain/errors"
	"chat/internal/errors"
)

// Decoder reassembles frames from arbitrarily segmented reads. Bytes live in
// one arena; off marks the start of the unconsumed remainder. A Decoder is
// owned by a single connection and is not safe for concurrent use.
type Decoder struct {
	buf      []byte
	off      int
	maxFrame int
}

// NewDecoder returns a Decoder rejecting frames longer than maxFrameBytes
// (0 = unbounded).
func NewDecoder(maxFrameBytes int) *Decoder {
	return &Decoder{maxFrame: maxFrameBytes}
}

// Write appends freshly read bytes.
func (d *Decoder) Write(p []byte) {
	if d.off == len(d.buf) {
		d.buf = d.buf[:0]
		d.off = 0
	} else if d.off > 0 && d.off >= len(d.buf)/2 {
		n := copy(d.buf, d.buf[d.off:])
		d.buf = d.buf[:n]
		d.off = 0
	}
	d.buf = append(d.buf, p...)
}

// Next returns the next complete frame.
//
//   - ok is false and err nil: more bytes are needed.
//   - ok is false and err set: the stream is unusable (frame too large).
//   - ok is true and err set: that one frame was rejected; decoding may continue.
//   - ok is true and err nil: env holds a frame with a non-empty type.
//
// Blank lines are skipped and a trailing carriage return is dropped.
func (d *Decoder) Next() (env Envelope, ok bool, err error) {
	for {
		rest := d.buf[d.off:]
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			if d.maxFrame > 0 && len(rest) > d.maxFrame {
				return Envelope{}, false, d.tooLarge(len(rest))
			}

			return Envelope{}, false, nil
		}

		line := rest[:idx]
		d.off += idx + 1

		if d.maxFrame > 0 && len(line) > d.maxFrame {
			return Envelope{}, false, d.tooLarge(len(line))
		}

		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		parsed, parseErr := parseEnvelope(line)

		return parsed, true, parseErr
	}
}

func (d *Decoder) tooLarge(size int) error {
	return errors.Wrapf(domainerrors.ErrFrameTooLarge, "frame of %d bytes exceeds limit %d", size, d.maxFrame)
}

func parseEnvelope(line []byte) (Envelope, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return Envelope{}, domainerrors.ErrMalformedFrame.WithDetails(err.Error())
	}
	if head.Type == nil || *head.Type == "" {
		return Envelope{}, domainerrors.ErrMissingType
	}

	return Envelope{Type: *head.Type, Raw: bytes.Clone(line)}, nil
}

// Decode unmarshals the envelope body into a request struct.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	return nil
}

// Encode renders v as one frame: a single JSON document and a newline.
// HTML characters are left unescaped so message text round-trips verbatim.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encode frame")
	}

	return buf.Bytes(), nil
}
