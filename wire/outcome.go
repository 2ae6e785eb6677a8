package wire

// OutcomeKind discriminates the four shapes a pending RPC can resolve to.
type OutcomeKind string

const (
	OutcomeBytes       OutcomeKind = "bytes"
	OutcomeTimeout     OutcomeKind = "timeout"
	OutcomeOffline     OutcomeKind = "offline"
	OutcomeDecodeError OutcomeKind = "decode_error"
)

// Outcome is the value stored in the pending-response table and delivered
// to an awaiting task. It is a single struct rather than an interface so
// it is directly JSON-serializable for test fixtures and log lines.
type Outcome struct {
	Kind   OutcomeKind
	Bytes  []byte // set iff Kind == OutcomeBytes
	Reason string // set iff Kind == OutcomeDecodeError
}

// BytesOutcome wraps a successful response payload.
func BytesOutcome(b []byte) Outcome {
	return Outcome{Kind: OutcomeBytes, Bytes: b}
}

// TimeoutOutcome reports that the host's configured budget elapsed with no response.
func TimeoutOutcome() Outcome {
	return Outcome{Kind: OutcomeTimeout}
}

// OfflineOutcome reports that the host could not reach the target peer.
func OfflineOutcome() Outcome {
	return Outcome{Kind: OutcomeOffline}
}

// DecodeErrorOutcome reports that the peer's response could not be parsed.
func DecodeErrorOutcome(reason string) Outcome {
	return Outcome{Kind: OutcomeDecodeError, Reason: reason}
}

// Success reports whether this outcome carries a usable payload.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeBytes
}
