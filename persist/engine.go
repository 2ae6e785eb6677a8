package persist

import (
	"context"
	"sync"
	"time"

	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/hyperware-ai/hyperprocess-core/observability"
)

// Snapshot returns the current application state serialized to bytes.
// Supplied by the caller rather than required via a constrained state
// interface, since Go generics would otherwise force every Engine user
// to parameterize on their own state type for no benefit here.
type Snapshot func() ([]byte, error)

// Engine holds the two counters of §4.4 (messages since last save, wall
// time of last save) and applies SavePolicy after every message the
// async runtime's main loop processes.
type Engine struct {
	mu       sync.Mutex
	policy   SavePolicy
	store    host.StateStore
	clock    host.Clock
	snapshot Snapshot
	logger   observability.Logger

	messagesSinceSave int
	lastSaveTime      time.Time
}

// NewEngine constructs a persistence Engine. logger may be nil, in which
// case write failures are discarded instead of logged.
func NewEngine(policy SavePolicy, store host.StateStore, clock host.Clock, snapshot Snapshot, logger observability.Logger) *Engine {
	if logger == nil {
		logger = observability.NoopLogger()
	}
	return &Engine{
		policy:       policy,
		store:        store,
		clock:        clock,
		snapshot:     snapshot,
		logger:       logger,
		lastSaveTime: clock.Now(),
	}
}

// Load populates the application state from the host's durable slot if
// present, leaving apply uncalled (the default value stands) otherwise.
func (e *Engine) Load(ctx context.Context, apply func([]byte) error) error {
	data, ok, err := e.store.Read(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return apply(data)
}

// Notify applies the save policy for one processed message. processed
// must be false when the handler panicked (§7): a panicking handler's
// message is treated as not successfully processed and never triggers a
// write, even under AfterEveryMessage.
func (e *Engine) Notify(ctx context.Context, processed bool) {
	if !processed {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.policy.Kind {
	case Never:
		return
	case AfterEveryMessage:
		e.write(ctx)
	case AfterEveryN:
		e.messagesSinceSave++
		if e.messagesSinceSave >= e.policy.N {
			e.write(ctx)
		}
	case AfterEverySeconds:
		if e.clock.Now().Sub(e.lastSaveTime) >= time.Duration(e.policy.Seconds)*time.Second {
			e.write(ctx)
		}
	}
	observability.SetMessagesSinceLastSave(e.messagesSinceSave)
}

// write is called with mu held. Failure is logged, never propagated
// (§7 PersistenceError): the next successful save subsumes the miss.
func (e *Engine) write(ctx context.Context) {
	data, err := e.snapshot()
	if err != nil {
		e.logger.Error("persist: snapshot failed", "err", err)
		observability.RecordPersistenceWrite(false)
		return
	}
	if err := e.store.Write(ctx, data); err != nil {
		e.logger.Error("persist: write failed", "err", err)
		observability.RecordPersistenceWrite(false)
		return
	}
	observability.RecordPersistenceWrite(true)
	e.messagesSinceSave = 0
	e.lastSaveTime = e.clock.Now()
}

// Flush forces an unconditional write, used on HostFatal (§7) to make a
// best-effort final save before the main loop terminates.
func (e *Engine) Flush(ctx context.Context) {
	if e.policy.Kind == Never {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.write(ctx)
}

// MessagesSinceSave reports the current counter value, for tests.
func (e *Engine) MessagesSinceSave() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.messagesSinceSave
}
