// Package observability provides OpenTelemetry tracing for the process core.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hyperware-ai/hyperprocess-core"

// processVersion is stamped by the build (ldflags -X) in real deployments;
// it defaults to "dev" for local runs and tests.
var processVersion = "dev"

// InitTracer initializes OpenTelemetry tracing with an OTLP/gRPC exporter
// for one running process. sampleRatio controls what fraction of dispatched
// messages and outbound RPCs get a recorded trace (0 disables sampling, 1
// traces every one); a process sitting on a hot single-threaded dispatch
// loop (§4.3) should pick something well below 1, since every sampled span
// still costs an allocation and an exporter write on that loop's own
// goroutine. Returns a shutdown function that must be called on process
// termination.
func InitTracer(processName, collectorEndpoint string, sampleRatio float64) (func(context.Context) error, error) {
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(collectorEndpoint),
		otlptracegrpc.WithInsecure(), // use TLS in production deployments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(processName),
			semconv.ServiceVersion(processVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(sampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Tracer returns the process-wide tracer used by the dispatch core and async runtime.
func Tracer() oteltrace.Tracer {
	return otel.Tracer(tracerName)
}

// StartDispatchSpan starts a span covering one message's
// classify-decode-invoke-respond path (§4.2), tagged with the transport it
// arrived on and the handler variant it resolved to. variant is empty when
// called before routing completes (e.g. a no_route HTTP request never
// reaches a handler).
func StartDispatchSpan(ctx context.Context, transport, variant string) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, "dispatch."+transport,
		oteltrace.WithAttributes(
			attribute.String("hyperprocess.transport", transport),
			attribute.String("hyperprocess.variant", variant),
		),
	)
}

// StartRPCSpan starts a span covering one outbound RPC from Runtime.Send to
// outcome delivery (§4.3), tagged with the peer it was sent to. The span's
// duration brackets whatever time the caller's task spends suspended in
// Awaitable.Await, which can include other handlers running on the
// turnstile in between.
func StartRPCSpan(ctx context.Context, target string) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, "rpc.send",
		oteltrace.WithAttributes(
			attribute.String("hyperprocess.rpc.target", target),
		),
	)
}
