// Package async implements the correlation-based async runtime: the
// pending-response table, the Awaitable suspension point, RPC send, and
// the main loop that drives dispatch and persistence. There is no
// hand-rolled poll-loop executor; a depth-1 "turnstile" channel
// serializes goroutines the way a single-threaded executor would,
// letting the Go runtime's own scheduler stand in for the executor (see
// turnstile.go).
package async

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hyperware-ai/hyperprocess-core/descriptor"
	"github.com/hyperware-ai/hyperprocess-core/dispatch"
	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/hyperware-ai/hyperprocess-core/observability"
	"github.com/hyperware-ai/hyperprocess-core/persist"
	"github.com/hyperware-ai/hyperprocess-core/wire"
)

// Runtime is the process's single async runtime instance: one per
// process, owning the turnstile, the pending-response table, the
// dispatcher, and the persistence engine.
type Runtime struct {
	host       host.Runtime
	table      *descriptor.Table
	dispatcher *dispatch.Dispatcher
	persist    *persist.Engine
	logger     observability.Logger

	turnstile turnstile
	pending   *pendingTable
	active    int64
}

// Config bundles the dependencies a Runtime needs at construction.
type Config struct {
	Table    *descriptor.Table
	Handlers dispatch.Registry
	Host     host.Runtime
	Persist  *persist.Engine
	Logger   observability.Logger
}

// NewRuntime builds a Runtime. The returned Runtime implements
// dispatch.ResponseSink and wires itself as the Dispatcher's sink.
func NewRuntime(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}
	rt := &Runtime{
		host:      cfg.Host,
		table:     cfg.Table,
		persist:   cfg.Persist,
		logger:    logger,
		turnstile: newTurnstile(),
		pending:   newPendingTable(),
	}
	rt.dispatcher = dispatch.NewDispatcher(cfg.Table, cfg.Handlers, cfg.Host, rt, logger)
	return rt
}

// Resolve implements dispatch.ResponseSink: it delivers an inbound
// Response's outcome to whichever Awaitable is waiting on its
// correlation id, per §8 property 5 dropping unmatched ones with a log.
func (rt *Runtime) Resolve(id wire.CorrelationID, outcome wire.Outcome) {
	if !rt.pending.resolve(id, outcome) {
		rt.logger.Warn("async: response had no matching correlation id, dropping", "correlation_id", id.String())
		return
	}
	rt.pending.report()
}

// Send is the RPC send operation of §4.3: it encodes the message,
// generates a fresh correlation id, hands the request to the host with
// the given timeout, and returns an Awaitable for that id. The caller
// resumes only when Loop delivers a matching outcome via Resolve.
func (rt *Runtime) Send(ctx context.Context, target, variant string, payload any, timeout time.Duration) (*Awaitable, error) {
	_, span := observability.StartRPCSpan(ctx, target)
	body, err := wire.Encode(variant, payload)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	id := wire.NewCorrelationID()
	ch := rt.pending.register(id)
	token, err := id.MarshalText()
	if err != nil {
		rt.pending.drop(id)
		span.RecordError(err)
		span.End()
		return nil, err
	}
	if err := rt.host.SendRequest(ctx, target, body, token, true, timeout); err != nil {
		rt.pending.drop(id)
		span.RecordError(err)
		span.End()
		return nil, err
	}
	rt.pending.report()
	return &Awaitable{id: id, ch: ch, rt: rt, started: rt.host.Now(), span: span}, nil
}

// Loop is the main loop of §4.3: spawn init (if declared), then
// repeatedly await, classify/dispatch, and notify persistence. It runs
// until the host reports a fatal error, at which point state is flushed
// (if the policy is not Never) and the loop returns that error.
func (rt *Runtime) Loop(ctx context.Context) error {
	if _, ok := rt.table.Init(); ok {
		rt.spawnInit(ctx)
	}

	for {
		msg, err := rt.host.AwaitNextMessage(ctx)
		if err != nil {
			rt.logger.Error("async: host reported a fatal error", "err", err)
			rt.persist.Flush(ctx)
			return err
		}
		rt.dispatchMessage(ctx, msg)
	}
}

func (rt *Runtime) dispatchMessage(ctx context.Context, msg host.Message) {
	if msg.Kind == host.KindResponse {
		// Resolving a pending entry touches no application state and
		// needs no turnstile.
		_ = rt.dispatcher.Handle(ctx, msg)
		return
	}

	desc, ok := rt.dispatcher.ResolveDescriptor(msg)
	if ok && desc.Async {
		rt.spawn(ctx, msg)
		return
	}
	rt.runInline(ctx, msg)
}

// spawnInit launches the init descriptor's handler before the main loop
// starts (§4.3 Init). It is otherwise a normal task: it may await RPCs,
// and new inbound messages can be dispatched while it is still in
// flight, because it runs on its own goroutine like any spawned task.
func (rt *Runtime) spawnInit(ctx context.Context) {
	n := atomic.AddInt64(&rt.active, 1)
	observability.SetExecutorActiveTasks(int(n))
	go func() {
		defer func() {
			n := atomic.AddInt64(&rt.active, -1)
			observability.SetExecutorActiveTasks(int(n))
		}()
		rt.turnstile.acquire()
		defer rt.turnstile.release()
		if err := rt.dispatcher.InvokeInit(ctx); err != nil {
			rt.logger.Error("async: init handler failed", "err", err)
		}
	}()
}

// spawn launches a handler's future onto a fresh goroutine; it will
// acquire the turnstile whenever it gets a chance to run, exactly as a
// spawned task would be polled at the top of an executor's next cycle.
func (rt *Runtime) spawn(ctx context.Context, msg host.Message) {
	n := atomic.AddInt64(&rt.active, 1)
	observability.SetExecutorActiveTasks(int(n))
	go func() {
		defer func() {
			n := atomic.AddInt64(&rt.active, -1)
			observability.SetExecutorActiveTasks(int(n))
		}()
		rt.turnstile.acquire()
		defer rt.turnstile.release()
		rt.runAndPersist(ctx, msg)
	}()
}

// runInline is used for sync handlers: the main loop's own goroutine
// acquires the turnstile, runs the handler to completion, and sends its
// response before returning to await the next message.
func (rt *Runtime) runInline(ctx context.Context, msg host.Message) {
	rt.turnstile.acquire()
	defer rt.turnstile.release()
	rt.runAndPersist(ctx, msg)
}

func (rt *Runtime) runAndPersist(ctx context.Context, msg host.Message) {
	err := rt.dispatcher.Handle(ctx, msg)

	var panicErr *dispatch.PanicError
	panicked := errors.As(err, &panicErr)
	if err != nil && !panicked {
		rt.logger.Error("async: message processing returned an error", "err", err)
	}

	rt.persist.Notify(ctx, !panicked)
}
