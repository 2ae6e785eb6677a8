package async

// turnstile is a depth-1 channel used as a non-reentrant mutex token: the
// idiomatic Go rendering of "exactly one handler executes at any
// instant" without a hand-rolled poll-loop executor. A goroutine holds
// the turnstile while running handler code and releases it immediately
// before blocking on an Awaitable.Await receive, reacquiring it once
// that receive completes. This is exactly the "no suspension while
// holding the exclusive reference to state" discipline of §5, enforced
// dynamically instead of by a borrow checker.
type turnstile chan struct{}

func newTurnstile() turnstile {
	t := make(turnstile, 1)
	t <- struct{}{}
	return t
}

// acquire blocks until the turnstile token is held by the caller.
func (t turnstile) acquire() {
	<-t
}

// release returns the token, allowing another goroutine waiting in
// acquire (or a goroutine about to call it) to proceed.
func (t turnstile) release() {
	t <- struct{}{}
}
