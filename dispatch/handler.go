package dispatch

import "context"

// HandlerFunc is the invocation shim the descriptor builder's generated
// code registers for one variant: decode has already produced the raw
// parameter JSON (a single value or an ordered array, per §6), and the
// shim is responsible for unmarshaling it into the user method's
// parameter types, calling the method against the process's state, and
// marshaling its return value back to raw JSON.
type HandlerFunc func(ctx context.Context, rawParams []byte) ([]byte, error)

// Registry maps a descriptor's variant name to its invocation shim.
type Registry map[string]HandlerFunc
