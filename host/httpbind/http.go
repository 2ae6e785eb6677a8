// Package httpbind adapts net/http requests and gorilla/websocket
// connections into host.Message values, and implements the HTTP/WebSocket
// half of host.Runtime: a reference binder for exposing a process's
// `//hyperprocess:http` and `//hyperprocess:websocket` handlers over a
// real socket, grounded on the example corpus's net/http router and
// websocket-response adapters.
package httpbind

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/hyperware-ai/hyperprocess-core/wire"
)

// Binder is a host.Runtime's HTTP/WebSocket surface. It does not itself
// implement ReadState/WriteState/SendRequest — compose it with a
// peertransport.Local or peertransport.Remote and a statestore backend
// via a small adapter struct in cmd/exampleprocess when more than one
// transport is served from the same process.
type Binder struct {
	upgrader websocket.Upgrader

	inbox chan host.Message

	mu           sync.Mutex
	httpWaiters  []chan httpResult // FIFO: response order must match dispatch order
	wsConns      map[uint32]*websocket.Conn
	nextChanID   uint32
}

type httpResult struct {
	status int
	body   []byte
}

// NewBinder constructs a Binder whose delivery channel is buffered to
// the given capacity (0 is valid: the channel is then unbuffered and
// every handoff synchronizes directly with the main loop's
// AwaitNextMessage call).
func NewBinder(capacity int) *Binder {
	return &Binder{
		inbox:   make(chan host.Message, capacity),
		wsConns: make(map[uint32]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// AwaitNextMessage is the HTTP/WebSocket half of host.Runtime.
func (b *Binder) AwaitNextMessage(ctx context.Context) (host.Message, error) {
	select {
	case m := <-b.inbox:
		return m, nil
	case <-ctx.Done():
		return host.Message{}, ctx.Err()
	}
}

// SendResponse completes the oldest still-open HTTP request handed to
// AwaitNextMessage. This FIFO assumes `//hyperprocess:http` handlers are
// synchronous (the default) so requests complete in arrival order; an
// HTTP-served handler marked Async can answer out of order and this
// binder does not support that combination (documented limitation).
func (b *Binder) SendResponse(ctx context.Context, status int, body []byte) error {
	b.mu.Lock()
	if len(b.httpWaiters) == 0 {
		b.mu.Unlock()
		return nil
	}
	waiter := b.httpWaiters[0]
	b.httpWaiters = b.httpWaiters[1:]
	b.mu.Unlock()

	waiter <- httpResult{status: status, body: body}
	return nil
}

// ServeHTTP turns one inbound request into a host.Message and blocks
// until the core produces (or fails to produce) its response.
func (b *Binder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	query := map[string]string{}
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	waiter := make(chan httpResult, 1)
	b.mu.Lock()
	b.httpWaiters = append(b.httpWaiters, waiter)
	b.mu.Unlock()

	msg := host.Message{
		Kind:       host.KindHTTPRequest,
		HTTPMethod: r.Method,
		HTTPPath:   r.URL.Path,
		HTTPQuery:  query,
		HTTPBody:   body,
	}

	select {
	case b.inbox <- msg:
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	select {
	case res := <-waiter:
		if res.status == 0 {
			res.status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.status)
		_, _ = w.Write(res.body)
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
	case <-time.After(30 * time.Second):
		http.Error(w, "handler timed out", http.StatusGatewayTimeout)
	}
}

// ServeWebSocket upgrades r and feeds every frame it receives into the
// core as a KindWebSocketFrame message, tagged with a per-connection
// channel id the `//hyperprocess:websocket` handler uses to reply.
func (b *Binder) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.nextChanID++
	channelID := b.nextChanID
	b.wsConns[channelID] = conn
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.wsConns, channelID)
		b.mu.Unlock()
		_ = conn.Close()
	}()

	b.inbox <- host.Message{Kind: host.KindWebSocketFrame, ChannelID: channelID, FrameKind: wire.FrameOpen}

	for {
		mt, payload, err := conn.ReadMessage()
		if err != nil {
			b.inbox <- host.Message{Kind: host.KindWebSocketFrame, ChannelID: channelID, FrameKind: wire.FrameClose}
			return
		}
		fk := wire.FrameBinary
		if mt == websocket.TextMessage {
			fk = wire.FrameText
		}
		b.inbox <- host.Message{Kind: host.KindWebSocketFrame, ChannelID: channelID, FrameKind: fk, Payload: payload}
	}
}

// WriteFrame sends payload to the open WebSocket connection identified
// by channelID, used by the websocket handler's own outbound sends (a
// side channel outside the request/response SendResponse path, since a
// WebSocket connection can emit many frames per inbound frame).
func (b *Binder) WriteFrame(channelID uint32, kind wire.FrameKind, payload []byte) error {
	b.mu.Lock()
	conn, ok := b.wsConns[channelID]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	mt := websocket.BinaryMessage
	if kind == wire.FrameText {
		mt = websocket.TextMessage
	}
	return conn.WriteMessage(mt, payload)
}
