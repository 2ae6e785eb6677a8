// Package config loads the declarative configuration surface of §6 from
// the process's environment, in the style of the example corpus's
// generics-based env config packages: a plain struct with `env` tags,
// parsed once via github.com/caarlos0/env/v11.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process-level configuration surface: how the runtime
// binds to its host, how it persists state, and how it reports itself.
type Config struct {
	// ProcessID is the identity this process presents to the host for
	// addressing Local/Remote sends.
	ProcessID string `env:"HYPERPROCESS_ID,required"`

	// HTTPAddr is the bind address for the reference host/httpbind
	// adapter, when used as the host transport.
	HTTPAddr string `env:"HYPERPROCESS_HTTP_ADDR" envDefault:":8080"`

	// RemoteAddr is the bind address for the reference
	// host/peertransport TCP listener.
	RemoteAddr string `env:"HYPERPROCESS_REMOTE_ADDR" envDefault:":7700"`

	// StateBackend selects the host/statestore implementation: "memory"
	// or "redis".
	StateBackend string `env:"HYPERPROCESS_STATE_BACKEND" envDefault:"memory"`

	// RedisURL is used only when StateBackend is "redis".
	RedisURL string `env:"HYPERPROCESS_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// SavePolicyKind is one of "never", "after_every_message",
	// "after_every_n", "after_every_seconds" (§4.4).
	SavePolicyKind string `env:"HYPERPROCESS_SAVE_POLICY" envDefault:"after_every_message"`
	SavePolicyN    int    `env:"HYPERPROCESS_SAVE_POLICY_N" envDefault:"10"`
	SaveEverySecs  int    `env:"HYPERPROCESS_SAVE_POLICY_SECONDS" envDefault:"30"`

	// RPCTimeout is a configured RPC timeout for callers to pass to
	// async.Runtime.Send. Send always takes its timeout as an argument;
	// nothing in this module applies this value on a caller's behalf.
	RPCTimeout time.Duration `env:"HYPERPROCESS_RPC_TIMEOUT" envDefault:"30s"`

	// OTelEndpoint is the OTLP/gRPC collector target. Empty disables
	// tracing (observability.InitTracer is simply not called).
	OTelEndpoint string `env:"HYPERPROCESS_OTEL_ENDPOINT"`

	// OTelSampleRatio is the fraction of dispatched messages and outbound
	// RPCs that get a recorded trace when tracing is enabled.
	OTelSampleRatio float64 `env:"HYPERPROCESS_OTEL_SAMPLE_RATIO" envDefault:"1.0"`

	// LogLevel is carried through for the logging adapter to interpret;
	// the core logging interface itself is level-less (§ ambient stack).
	LogLevel string `env:"HYPERPROCESS_LOG_LEVEL" envDefault:"info"`
}

// Load parses Config from the process environment.
func Load() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// MustLoad is Load, panicking on failure. Intended for cmd/ entry points
// where a misconfigured environment should abort startup immediately.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}
