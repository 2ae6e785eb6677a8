package async

import (
	"sync"

	"github.com/hyperware-ai/hyperprocess-core/observability"
	"github.com/hyperware-ai/hyperprocess-core/wire"
)

// pendingTable maps a correlation id to the channel its Awaitable is
// blocked receiving on. Grounded on the `pending map[ID]chan
// *wireResponse` shape used by the JSON-RPC connection implementations
// in the example corpus: a mutex-guarded map rather than a sync.Map,
// since entries are read-then-deleted as a single logical operation.
type pendingTable struct {
	mu      sync.Mutex
	entries map[wire.CorrelationID]chan wire.Outcome
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[wire.CorrelationID]chan wire.Outcome)}
}

// register inserts a fresh waiter for id. The id is assumed unique (§3
// invariant: no correlation id is reused).
func (p *pendingTable) register(id wire.CorrelationID) chan wire.Outcome {
	ch := make(chan wire.Outcome, 1)
	p.mu.Lock()
	p.entries[id] = ch
	p.mu.Unlock()
	return ch
}

// resolve delivers outcome to id's waiter, if one is still registered. A
// correlation id with no matching entry is dropped silently (§8 property
// 5) — it is either unknown to this process or was already delivered.
func (p *pendingTable) resolve(id wire.CorrelationID, outcome wire.Outcome) bool {
	p.mu.Lock()
	ch, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- outcome
	return true
}

// drop removes id's entry without delivering anything, used when a send
// operation fails before the host ever accepted the request.
func (p *pendingTable) drop(id wire.CorrelationID) {
	p.mu.Lock()
	delete(p.entries, id)
	p.mu.Unlock()
}

// len reports the number of outstanding entries, for metrics.
func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *pendingTable) report() {
	observability.SetRPCOutstanding(p.len())
}
