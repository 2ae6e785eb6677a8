package host

import (
	"context"
	"time"
)

// Runtime is the contract the async runtime and dispatch core consume
// from the underlying message-passing host: a blocking next-message
// primitive, fire-and-forget sends, a durable state slot, and a clock.
// spec.md §6 places the concrete transport out of scope; peertransport
// and httpbind in this module are reference implementations of it.
type Runtime interface {
	Clock

	// AwaitNextMessage blocks until the host has a message to deliver.
	AwaitNextMessage(ctx context.Context) (Message, error)

	// SendRequest dispatches body to target at the host and, if
	// expectsResponse, arranges for the matching response to carry
	// contextToken back in its Message.ContextToken. Fire-and-forget
	// from the core's perspective: the host owns retry/reconnect policy.
	SendRequest(ctx context.Context, target string, body []byte, contextToken []byte, expectsResponse bool, timeout time.Duration) error

	// SendResponse replies to the request currently being handled.
	// status is only meaningful on the HTTP transport (§4.2); Local and
	// Remote adapters ignore it.
	SendResponse(ctx context.Context, status int, body []byte) error

	// ReadState and WriteState back the durable state slot (§4.4/§6).
	ReadState(ctx context.Context) ([]byte, bool, error)
	WriteState(ctx context.Context, data []byte) error
}

// StateStore is the narrower two-method contract the persistence engine
// depends on, satisfied by host/statestore's memory and Redis backends
// independently of a full Runtime implementation.
type StateStore interface {
	Read(ctx context.Context) ([]byte, bool, error)
	Write(ctx context.Context, data []byte) error
}
