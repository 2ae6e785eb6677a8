package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/hyperware-ai/hyperprocess-core/descriptor"
	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/hyperware-ai/hyperprocess-core/observability"
	"github.com/hyperware-ai/hyperprocess-core/wire"
)

// ResponseSink receives outcomes for inbound Response messages. It is
// implemented by async.Runtime, which owns the pending-response table;
// dispatch only classifies and forwards, never touches the table itself,
// keeping the two packages decoupled.
type ResponseSink interface {
	Resolve(correlationID wire.CorrelationID, outcome wire.Outcome)
}

// Dispatcher routes one classified inbound message to its handler (or,
// for responses, to the ResponseSink) and performs the single I/O side
// effect that follows: sending a response back through the host. It
// never spawns goroutines itself — async.Runtime decides synchronous vs.
// spawned invocation based on the selected descriptor's Async flag and
// calls Handle either inline (while holding the turnstile) or from a
// freshly spawned goroutine.
type Dispatcher struct {
	Table    *descriptor.Table
	Handlers Registry
	Runtime  host.Runtime
	Sink     ResponseSink
	Logger   observability.Logger
}

// NewDispatcher constructs a Dispatcher with a NoopLogger if logger is nil.
func NewDispatcher(table *descriptor.Table, handlers Registry, rt host.Runtime, sink ResponseSink, logger observability.Logger) *Dispatcher {
	if logger == nil {
		logger = observability.NoopLogger()
	}
	return &Dispatcher{Table: table, Handlers: handlers, Runtime: rt, Sink: sink, Logger: logger}
}

// Handle classifies msg and routes it. The returned error is non-nil
// only when the message was not successfully processed (a panicking
// handler, most notably) — callers use this to decide whether an
// AfterEveryMessage save should be skipped for this iteration.
func (d *Dispatcher) Handle(ctx context.Context, msg host.Message) error {
	route := Classify(msg)
	if route.Kind == RouteResponse {
		return d.handleResponse(route.Message)
	}

	transport := routeTransportName(route.Kind)
	started := time.Now()
	ctx, span := observability.StartDispatchSpan(ctx, transport, "")
	defer span.End()

	var err error
	switch route.Kind {
	case RouteLocal:
		err = d.handleLocalOrRemote(ctx, route.Message, descriptor.Local, "local")
	case RouteRemote:
		err = d.handleLocalOrRemote(ctx, route.Message, descriptor.Remote, "remote")
	case RouteHTTP:
		err = d.handleHTTP(ctx, route.Message)
	case RouteWebSocket:
		err = d.handleWebSocket(ctx, route.Message)
	default:
		d.Logger.Error("dispatch: host reported an unrecoverable error", "err", route.Message.Err)
		err = route.Message.Err
	}
	if err != nil {
		span.RecordError(err)
	}
	observability.RecordDispatch(transport, dispatchStatus(err), d.resolvedVariant(route.Message), time.Since(started).Seconds())
	return err
}

// resolvedVariant looks up the handler variant msg would route to, purely
// for the dispatch-duration metric's label; it performs the same
// classification ResolveDescriptor would, without re-dispatching anything.
func (d *Dispatcher) resolvedVariant(msg host.Message) string {
	if desc, ok := d.ResolveDescriptor(msg); ok {
		return desc.Variant
	}
	return ""
}

// routeTransportName maps a classified route to the transport label used
// by both tracing and metrics.
func routeTransportName(kind RouteKind) string {
	switch kind {
	case RouteLocal:
		return "local"
	case RouteRemote:
		return "remote"
	case RouteHTTP:
		return "http"
	case RouteWebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

func dispatchStatus(err error) string {
	if err == nil {
		return "handled"
	}
	var panicErr *PanicError
	if asPanicError(err, &panicErr) {
		return "panic"
	}
	return "decode_error"
}

// InvokeInit runs the process's init handler directly, bypassing
// transport classification entirely — init is not tied to any inbound
// host message, so there is nothing to decode and no response to send.
func (d *Dispatcher) InvokeInit(ctx context.Context) error {
	desc, ok := d.Table.Init()
	if !ok {
		return nil
	}
	handler, ok := d.Handlers[desc.Variant]
	if !ok {
		return fmt.Errorf("dispatch: no invocation shim registered for init handler %q", desc.Variant)
	}
	_, err := d.invoke(ctx, desc, handler, []byte("null"))
	return err
}

// ResolveDescriptor performs the same routing decision Handle would make
// for a request message, without invoking anything — used by
// async.Runtime to decide whether to spawn a goroutine (Async handler)
// or run inline (sync handler) before calling Handle. Returns ok=false
// for Response messages (there is no handler to select) and when no
// route was found.
func (d *Dispatcher) ResolveDescriptor(msg host.Message) (*descriptor.Descriptor, bool) {
	route := Classify(msg)
	switch route.Kind {
	case RouteLocal, RouteRemote:
		env, ok := wire.Decode(route.Message.Body)
		if !ok {
			return nil, false
		}
		return d.Table.ByVariant(env.Variant)
	case RouteHTTP:
		if len(route.Message.HTTPBody) > 0 {
			if desc, _, ok := d.phaseA(route.Message); ok {
				return desc, true
			}
		}
		return SelectParamlessHTTP(d.Table.ParamlessHTTP(), route.Message.HTTPMethod, route.Message.HTTPPath)
	case RouteWebSocket:
		return d.Table.WebSocket()
	default:
		return nil, false
	}
}

func (d *Dispatcher) handleResponse(msg host.Message) error {
	corrID, err := wire.ParseCorrelationID(string(msg.ContextToken))
	if err != nil {
		d.Logger.Warn("dispatch: response carried an unparseable correlation id, dropping", "err", err)
		return nil
	}
	d.Sink.Resolve(corrID, msg.Outcome)
	return nil
}

func (d *Dispatcher) handleLocalOrRemote(ctx context.Context, msg host.Message, kind descriptor.TransportKind, transportName string) error {
	env, ok := wire.Decode(msg.Body)
	if !ok {
		d.Logger.Warn("dispatch: failed to decode request body", "transport", transportName, "source", msg.Source)
		return d.sendError(ctx, 0, "malformed request body")
	}

	desc, ok := d.Table.ByVariant(env.Variant)
	if !ok {
		d.Logger.Warn("dispatch: unknown variant", "variant", env.Variant, "transport", transportName)
		return d.sendError(ctx, 0, fmt.Sprintf("unknown handler %q", env.Variant))
	}
	if !desc.Transports.Has(kind) {
		d.Logger.Warn("dispatch: transport mismatch", "variant", env.Variant, "transport", transportName)
		return d.sendError(ctx, 0, (&TransportMismatchError{Variant: env.Variant, Transport: transportName}).Error())
	}

	handler, ok := d.Handlers[env.Variant]
	if !ok {
		return d.sendError(ctx, 0, fmt.Sprintf("no invocation shim registered for %q", env.Variant))
	}

	result, invokeErr := d.invoke(ctx, desc, handler, env.Raw)
	if invokeErr != nil {
		var panicErr *PanicError
		isPanic := asPanicError(invokeErr, &panicErr)
		d.Logger.Error("dispatch: handler failed", "variant", env.Variant, "err", invokeErr)
		if sendErr := d.sendError(ctx, 0, invokeErr.Error()); sendErr != nil {
			return sendErr
		}
		if isPanic {
			return panicErr
		}
		return nil
	}

	body, err := wire.EncodeEnvelope(desc.Variant, result)
	if err != nil {
		return err
	}
	return d.Runtime.SendResponse(ctx, 0, body)
}

func (d *Dispatcher) handleHTTP(ctx context.Context, msg host.Message) error {
	rc := wire.RequestContext{Path: msg.HTTPPath, Method: msg.HTTPMethod, Query: msg.HTTPQuery, Source: msg.Source}
	ctx = wire.WithRequestContext(ctx, rc)

	if len(msg.HTTPBody) > 0 {
		if desc, raw, ok := d.phaseA(msg); ok {
			return d.invokeHTTP(ctx, desc, raw)
		}
	}

	candidates := d.Table.ParamlessHTTP()
	winner, ok := SelectParamlessHTTP(candidates, msg.HTTPMethod, msg.HTTPPath)
	if !ok {
		noRoute := &NoRouteError{
			Method:     msg.HTTPMethod,
			Path:       msg.HTTPPath,
			Candidates: variantNames(candidates),
			MethodOnly: anyPathMatches(candidates, msg.HTTPPath),
		}
		d.Logger.Warn("dispatch: no HTTP route", "method", msg.HTTPMethod, "path", msg.HTTPPath, "status", noRoute.StatusCode())
		return d.sendError(ctx, noRoute.StatusCode(), noRoute.Error())
	}
	return d.invokeHTTP(ctx, winner, []byte("null"))
}

// phaseA tries to decode the HTTP body as the Request schema and checks
// the resolved handler's filters against the incoming request. A decode
// or filter mismatch is treated as "Phase A failed", not an error
// response — routing falls through to Phase B (§4.2).
func (d *Dispatcher) phaseA(msg host.Message) (*descriptor.Descriptor, []byte, bool) {
	env, ok := wire.Decode(msg.HTTPBody)
	if !ok {
		return nil, nil, false
	}
	desc, ok := d.Table.ByVariant(env.Variant)
	if !ok || !desc.Transports.Has(descriptor.Http) || len(desc.Params) == 0 {
		return nil, nil, false
	}
	if !httpFilterMatches(desc.HTTP, msg.HTTPMethod, msg.HTTPPath) {
		return nil, nil, false
	}
	return desc, env.Raw, true
}

func (d *Dispatcher) invokeHTTP(ctx context.Context, desc *descriptor.Descriptor, rawParams []byte) error {
	handler, ok := d.Handlers[desc.Variant]
	if !ok {
		return d.sendError(ctx, 500, fmt.Sprintf("no invocation shim registered for %q", desc.Variant))
	}
	result, err := d.invoke(ctx, desc, handler, rawParams)
	if err != nil {
		var panicErr *PanicError
		isPanic := asPanicError(err, &panicErr)
		d.Logger.Error("dispatch: HTTP handler failed", "variant", desc.Variant, "err", err)
		if sendErr := d.sendError(ctx, 500, err.Error()); sendErr != nil {
			return sendErr
		}
		if isPanic {
			return panicErr
		}
		return nil
	}
	body, err := wire.EncodeEnvelope(desc.Variant, result)
	if err != nil {
		return err
	}
	return d.Runtime.SendResponse(ctx, 200, body)
}

func (d *Dispatcher) handleWebSocket(ctx context.Context, msg host.Message) error {
	desc, ok := d.Table.WebSocket()
	if !ok {
		d.Logger.Warn("dispatch: websocket frame dropped, no handler declared", "channel", msg.ChannelID)
		return nil
	}
	handler, ok := d.Handlers[desc.Variant]
	if !ok {
		d.Logger.Warn("dispatch: websocket frame dropped, no invocation shim", "channel", msg.ChannelID)
		return nil
	}
	params, err := json.Marshal([]any{msg.ChannelID, msg.FrameKind, msg.Payload})
	if err != nil {
		return err
	}
	_, invokeErr := d.invoke(ctx, desc, handler, params)
	if invokeErr != nil {
		d.Logger.Error("dispatch: websocket handler failed", "err", invokeErr)
	}
	return invokeErr
}

// invoke calls handler, recovering a panic into a PanicError (§7). It tags
// the dispatch span already open on ctx with the resolved variant, which is
// only known once routing has picked a handler.
func (d *Dispatcher) invoke(ctx context.Context, desc *descriptor.Descriptor, handler HandlerFunc, rawParams []byte) (result []byte, err error) {
	oteltrace.SpanFromContext(ctx).SetAttributes(attribute.String("hyperprocess.variant", desc.Variant))
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Variant: desc.Variant, Recovered: r}
		}
	}()
	return handler(ctx, rawParams)
}

func (d *Dispatcher) sendError(ctx context.Context, status int, message string) error {
	body, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return err
	}
	return d.Runtime.SendResponse(ctx, status, body)
}

func variantNames(descs []*descriptor.Descriptor) []string {
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Variant
	}
	return names
}

func asPanicError(err error, target **PanicError) bool {
	if pe, ok := err.(*PanicError); ok {
		*target = pe
		return true
	}
	return false
}
