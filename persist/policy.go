// Package persist implements the state-persistence policy engine: given a
// declarative SavePolicy, it decides after each processed message whether
// to write the application's serialized state to the host's durable slot.
package persist

import "fmt"

// PolicyFromStrings parses the four §4.4 policy kinds from their
// config-surface string tokens ("never", "after_every_message",
// "after_every_n", "after_every_seconds"), taking n/seconds from the
// matching field regardless of which kind is selected.
func PolicyFromStrings(kind string, n, seconds int) (SavePolicy, error) {
	switch kind {
	case "never":
		return NeverPolicy(), nil
	case "after_every_message":
		return AfterEveryMessagePolicy(), nil
	case "after_every_n":
		return AfterEveryNPolicy(n)
	case "after_every_seconds":
		return AfterEverySecondsPolicy(seconds)
	default:
		return SavePolicy{}, fmt.Errorf("persist: unknown save policy kind %q", kind)
	}
}

// Kind discriminates the four save policies of §4.4.
type Kind int

const (
	Never Kind = iota
	AfterEveryMessage
	AfterEveryN
	AfterEverySeconds
)

// SavePolicy is the declarative rule deciding when state is written.
type SavePolicy struct {
	Kind    Kind
	N       int // meaningful only for AfterEveryN; must be >= 1
	Seconds int // meaningful only for AfterEverySeconds; must be >= 1
}

// NeverPolicy never writes state automatically.
func NeverPolicy() SavePolicy { return SavePolicy{Kind: Never} }

// AfterEveryMessagePolicy writes after every successfully processed message.
func AfterEveryMessagePolicy() SavePolicy { return SavePolicy{Kind: AfterEveryMessage} }

// AfterEveryNPolicy writes once every n processed messages.
func AfterEveryNPolicy(n int) (SavePolicy, error) {
	if n < 1 {
		return SavePolicy{}, fmt.Errorf("persist: AfterEveryN requires n >= 1, got %d", n)
	}
	return SavePolicy{Kind: AfterEveryN, N: n}, nil
}

// AfterEverySecondsPolicy writes when at least s seconds have elapsed
// since the last write.
func AfterEverySecondsPolicy(s int) (SavePolicy, error) {
	if s < 1 {
		return SavePolicy{}, fmt.Errorf("persist: AfterEverySeconds requires s >= 1, got %d", s)
	}
	return SavePolicy{Kind: AfterEverySeconds, Seconds: s}, nil
}
