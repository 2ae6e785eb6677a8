package dispatch

import "github.com/hyperware-ai/hyperprocess-core/host"

// RouteKind is the classification outcome for one inbound message.
type RouteKind int

const (
	RouteResponse RouteKind = iota
	RouteLocal
	RouteRemote
	RouteHTTP
	RouteWebSocket
	RouteHostError
)

// Route is the pure result of Classify: which path a message takes,
// carrying the message along for the caller to act on. Classify performs
// no I/O — it only inspects fields already decoded by the host adapter.
type Route struct {
	Kind    RouteKind
	Message host.Message
}

// Classify implements the precedence rule of §4.2: a message the host
// labels as a Response is always treated as one, regardless of any other
// field; otherwise it is routed by its declared transport. The host
// adapters (httpbind, peertransport) are responsible for setting
// Message.Kind correctly — Classify merely mirrors that into a Route.
func Classify(msg host.Message) Route {
	switch msg.Kind {
	case host.KindResponse:
		return Route{Kind: RouteResponse, Message: msg}
	case host.KindLocalRequest:
		return Route{Kind: RouteLocal, Message: msg}
	case host.KindRemoteRequest:
		return Route{Kind: RouteRemote, Message: msg}
	case host.KindHTTPRequest:
		return Route{Kind: RouteHTTP, Message: msg}
	case host.KindWebSocketFrame:
		return Route{Kind: RouteWebSocket, Message: msg}
	default:
		return Route{Kind: RouteHostError, Message: msg}
	}
}
