package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperware-ai/hyperprocess-core/async"
	"github.com/hyperware-ai/hyperprocess-core/config"
	"github.com/hyperware-ai/hyperprocess-core/descriptor"
	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/hyperware-ai/hyperprocess-core/host/httpbind"
	"github.com/hyperware-ai/hyperprocess-core/host/statestore"
	"github.com/hyperware-ai/hyperprocess-core/observability"
	"github.com/hyperware-ai/hyperprocess-core/persist"
)

// exampleHost composes the HTTP binder (request/response + websocket)
// with a state store and a system clock into one host.Runtime. A real
// deployment also serving Local/Remote peers would compose those in the
// same way; this example only exercises HTTP.
type exampleHost struct {
	*httpbind.Binder
	store host.StateStore
}

func (h *exampleHost) SendRequest(ctx context.Context, target string, body, token []byte, expectsResponse bool, timeout time.Duration) error {
	return errors.New("exampleprocess: outbound RPC is not wired in this example host")
}

func (h *exampleHost) ReadState(ctx context.Context) ([]byte, bool, error) { return h.store.Read(ctx) }
func (h *exampleHost) WriteState(ctx context.Context, data []byte) error  { return h.store.Write(ctx, data) }
func (h *exampleHost) Now() time.Time                                     { return time.Now() }

func main() {
	logger := observability.StdLogger()

	cfg := config.MustLoad()

	if cfg.OTelEndpoint != "" {
		shutdown, err := observability.InitTracer(cfg.ProcessID, cfg.OTelEndpoint, cfg.OTelSampleRatio)
		if err != nil {
			logger.Error("exampleprocess: failed to initialize tracing", "err", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	state := NewState()
	table := descriptor.NewTable(Descriptors)
	handlers := NewHandlers(state)

	binder := httpbind.NewBinder(16)
	h := &exampleHost{Binder: binder, store: statestore.NewMemory()}

	policy := persist.AfterEveryMessagePolicy()
	snapshot := func() ([]byte, error) { return json.Marshal(state) }
	engine := persist.NewEngine(policy, h.store, h, snapshot, logger)

	if err := engine.Load(context.Background(), func(data []byte) error {
		return json.Unmarshal(data, state)
	}); err != nil {
		logger.Error("exampleprocess: failed to load prior state", "err", err)
	}

	rt := async.NewRuntime(async.Config{
		Table:    table,
		Handlers: handlers,
		Host:     h,
		Persist:  engine,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: http.HandlerFunc(binder.ServeHTTP),
	}
	go func() {
		logger.Info("exampleprocess: listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("exampleprocess: http server failed", "err", err)
		}
	}()

	if err := rt.Loop(context.Background()); err != nil {
		fmt.Println("exampleprocess: loop exited:", err)
	}
}
