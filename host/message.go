// Package host declares the contract the core consumes from its message-
// passing host runtime: the blocking next-message primitive, request/
// response sends, the durable state slot, and a clock. spec.md places the
// actual host runtime out of scope; this package is the Go interface
// boundary plus reference adapters (httpbind, statestore, peertransport).
package host

import "github.com/hyperware-ai/hyperprocess-core/wire"

// Kind discriminates the shapes AwaitNextMessage can return.
type Kind int

const (
	KindResponse Kind = iota
	KindLocalRequest
	KindRemoteRequest
	KindHTTPRequest
	KindWebSocketFrame
	KindHostError
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindLocalRequest:
		return "local"
	case KindRemoteRequest:
		return "remote"
	case KindHTTPRequest:
		return "http"
	case KindWebSocketFrame:
		return "websocket"
	case KindHostError:
		return "host_error"
	default:
		return "unknown"
	}
}

// Message is the single envelope AwaitNextMessage yields. Only the fields
// relevant to Kind are populated; this mirrors how the host's own wire
// union is decoded in one shot rather than as Go interface variants,
// since the dispatch core switches on Kind exactly once per message.
type Message struct {
	Kind Kind

	// Populated for KindLocalRequest / KindRemoteRequest.
	Source       string
	Body         []byte
	ContextToken []byte

	// Populated for KindResponse. ContextToken above carries the
	// correlation id; Outcome carries what the host observed.
	Outcome wire.Outcome

	// Populated for KindHTTPRequest.
	HTTPMethod string
	HTTPPath   string
	HTTPQuery  map[string]string
	HTTPBody   []byte

	// Populated for KindWebSocketFrame.
	ChannelID uint32
	FrameKind wire.FrameKind
	Payload   []byte

	// Populated for KindHostError.
	Err error
}
