// Package peertransport provides reference Local and Remote host.Runtime
// send/await implementations: Local delivers in-process between
// processes sharing one Go binary (grounded on the example corpus's
// InMemoryCommBus direct-delivery pattern); Remote delivers over a
// line-delimited-JSON TCP connection between separate processes.
package peertransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/hyperware-ai/hyperprocess-core/wire"
)

// Registry is the process-address book a Local transport delivers
// through: a process name maps to the inbox it should receive on.
// Mirrors InMemoryCommBus's map-of-subscribers registration.
type Registry struct {
	mu      sync.RWMutex
	inboxes map[string]chan host.Message
}

// NewRegistry returns an empty process registry shared by every Local
// transport instance in the same binary.
func NewRegistry() *Registry {
	return &Registry{inboxes: make(map[string]chan host.Message)}
}

func (r *Registry) register(name string, inbox chan host.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inboxes[name] = inbox
}

func (r *Registry) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inboxes, name)
}

func (r *Registry) lookup(name string) (chan host.Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.inboxes[name]
	return ch, ok
}

type inflightRequest struct {
	source string
	token  []byte
}

// Local is an in-process Local-transport peer: SendRequest delivers
// directly into the target's inbox channel, and SendResponse routes the
// reply back to the request's source by replaying the source/token pair
// recorded when that request was handed out by AwaitNextMessage. The
// dispatch core always answers a request exactly once (§4.2
// handleLocalOrRemote sends a response unconditionally after invoking
// the handler), so a FIFO of in-flight requests is sufficient without
// tracking expectsResponse at all.
type Local struct {
	name     string
	registry *Registry
	inbox    chan host.Message

	mu       sync.Mutex
	inflight []inflightRequest
	timeouts *pendingTimeout
}

// NewLocal registers name in registry and returns a Local transport for it.
func NewLocal(registry *Registry, name string, capacity int) *Local {
	l := &Local{name: name, registry: registry, inbox: make(chan host.Message, capacity), timeouts: newPendingTimeout()}
	registry.register(name, l.inbox)
	return l
}

// Close unregisters this peer from the shared registry.
func (l *Local) Close() {
	l.registry.unregister(l.name)
}

// AwaitNextMessage blocks until another Local peer in the same registry
// sends this one a message.
func (l *Local) AwaitNextMessage(ctx context.Context) (host.Message, error) {
	select {
	case m := <-l.inbox:
		if m.Kind == host.KindLocalRequest {
			l.mu.Lock()
			l.inflight = append(l.inflight, inflightRequest{source: m.Source, token: m.ContextToken})
			l.mu.Unlock()
		}
		if m.Kind == host.KindResponse {
			// The real response won the race against the timeout timer
			// armed below; stop it before it can deliver a second,
			// spurious outcome for the same correlation token.
			l.timeouts.cancel(string(m.ContextToken))
		}
		return m, nil
	case <-ctx.Done():
		return host.Message{}, ctx.Err()
	}
}

// SendRequest delivers body directly into target's inbox. If
// expectsResponse is set, it also arms a timer for timeout: if no
// KindResponse carrying contextToken reaches this peer's inbox before it
// fires, a synthetic wire.TimeoutOutcome() response is delivered instead,
// so an unresponsive or gone target never leaves the caller's Awaitable
// blocked forever.
func (l *Local) SendRequest(ctx context.Context, target string, body, contextToken []byte, expectsResponse bool, timeout time.Duration) error {
	inbox, ok := l.registry.lookup(target)
	if !ok {
		return fmt.Errorf("peertransport: unknown local peer %q", target)
	}
	msg := host.Message{Kind: host.KindLocalRequest, Source: l.name, Body: body, ContextToken: contextToken}
	select {
	case inbox <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	if expectsResponse && timeout > 0 {
		token := contextToken
		l.timeouts.arm(string(token), timeout, func() {
			l.inbox <- host.Message{Kind: host.KindResponse, ContextToken: token, Outcome: wire.TimeoutOutcome()}
		})
	}
	return nil
}

// SendResponse completes the oldest request this peer has not yet
// answered, routing body back to that request's source tagged with its
// original correlation token.
func (l *Local) SendResponse(ctx context.Context, status int, body []byte) error {
	l.mu.Lock()
	if len(l.inflight) == 0 {
		l.mu.Unlock()
		return nil
	}
	req := l.inflight[0]
	l.inflight = l.inflight[1:]
	l.mu.Unlock()

	inbox, ok := l.registry.lookup(req.source)
	if !ok {
		return nil // source peer has gone away; nothing to deliver to
	}
	reply := host.Message{Kind: host.KindResponse, ContextToken: req.token, Outcome: responseOutcome(body)}
	select {
	case inbox <- reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Local) ReadState(ctx context.Context) ([]byte, bool, error) { return nil, false, nil }
func (l *Local) WriteState(ctx context.Context, data []byte) error  { return nil }
func (l *Local) Now() time.Time                                     { return time.Now() }
