package peertransport

import (
	"sync"
	"time"

	"github.com/hyperware-ai/hyperprocess-core/wire"
)

// responseOutcome wraps a successfully received response body as the
// Outcome a KindResponse host.Message carries, shared by Local and Remote.
func responseOutcome(body []byte) wire.Outcome {
	return wire.BytesOutcome(body)
}

// pendingTimeout tracks outbound requests a peer transport is waiting on a
// response for, keyed by correlation token, so a timer can deliver
// wire.TimeoutOutcome() if no response ever arrives. Grounded on the same
// mutex+map shape as async.pendingTable; Local and Remote each own one
// instance since a token is only meaningful within one transport's address
// space.
type pendingTimeout struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newPendingTimeout() *pendingTimeout {
	return &pendingTimeout{timers: make(map[string]*time.Timer)}
}

// arm starts a timer for token that invokes onTimeout after d, unless
// cancel(token) runs first because the real response arrived.
func (p *pendingTimeout) arm(token string, d time.Duration, onTimeout func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timers[token] = time.AfterFunc(d, func() {
		p.mu.Lock()
		_, live := p.timers[token]
		delete(p.timers, token)
		p.mu.Unlock()
		if live {
			onTimeout()
		}
	})
}

// cancel stops token's timer because the real response arrived first. A
// token that was never armed, or whose timer already fired, is a no-op.
func (p *pendingTimeout) cancel(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.timers[token]
	if !ok {
		return
	}
	delete(p.timers, token)
	t.Stop()
}
