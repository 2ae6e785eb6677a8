// Package wire defines the on-the-wire shapes the dispatch core and async
// runtime exchange with the host: correlation ids, RPC outcomes, and the
// tagged-union request/response envelope codec.
package wire

import (
	"github.com/google/uuid"
)

// CorrelationID is the 128-bit value carried in a request's opaque
// "context" field and matched back on its response. It round-trips
// through that field as its canonical hyphenated string form.
type CorrelationID uuid.UUID

// NewCorrelationID generates a fresh, process-unique correlation id.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.New())
}

// String returns the canonical hyphenated form.
func (c CorrelationID) String() string {
	return uuid.UUID(c).String()
}

// MarshalText implements encoding.TextMarshaler.
func (c CorrelationID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CorrelationID) UnmarshalText(text []byte) error {
	id, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*c = CorrelationID(id)
	return nil
}

// ParseCorrelationID parses the canonical string form back into a CorrelationID.
func ParseCorrelationID(s string) (CorrelationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CorrelationID{}, err
	}
	return CorrelationID(id), nil
}

// IsZero reports whether c is the zero-value correlation id (never
// produced by NewCorrelationID, used as a sentinel for "no correlation").
func (c CorrelationID) IsZero() bool {
	return c == CorrelationID{}
}
