package async

import (
	"context"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/hyperware-ai/hyperprocess-core/observability"
	"github.com/hyperware-ai/hyperprocess-core/wire"
)

// Awaitable is the handle returned by Runtime.Send for a single
// outstanding RPC. It is not clonable and must be polled to completion
// (via Await) exactly once; a second Await call is a programming error.
type Awaitable struct {
	id      wire.CorrelationID
	ch      chan wire.Outcome
	rt      *Runtime
	started time.Time
	span    oteltrace.Span
	done    bool
}

// ID returns the correlation id this awaitable resolves.
func (a *Awaitable) ID() wire.CorrelationID { return a.id }

// Await blocks the calling goroutine until a response arrives, the host
// reports Timeout/Offline, or ctx is canceled. The turnstile is released
// for the duration of the blocking receive and reacquired before Await
// returns, which is the mechanism that lets the main loop continue
// dispatching other messages while this task is suspended (§4.3, §5).
//
// Dropping an Awaitable (never calling Await, or canceling ctx) does not
// cancel the outbound request: a late response still lands on the
// pendingTable entry and is discarded there if nothing is left to
// receive it (§9, correlation identity vs cancellation).
func (a *Awaitable) Await(ctx context.Context) (wire.Outcome, error) {
	if a.done {
		return wire.Outcome{}, fmt.Errorf("async: awaitable %s already completed", a.id)
	}

	a.rt.turnstile.release()
	defer a.rt.turnstile.acquire()

	select {
	case outcome := <-a.ch:
		a.done = true
		observability.RecordRPCOutcome(string(outcome.Kind), time.Since(a.started).Seconds())
		if !outcome.Success() {
			a.span.RecordError(fmt.Errorf("rpc outcome: %s", outcome.Kind))
		}
		a.span.End()
		a.rt.pending.report()
		return outcome, nil
	case <-ctx.Done():
		return wire.Outcome{}, ctx.Err()
	}
}
