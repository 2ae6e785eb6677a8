package peertransport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/hyperware-ai/hyperprocess-core/wire"
)

// wireFrame is the line-delimited JSON frame Remote peers exchange over
// TCP. Kind mirrors host.Kind's request/response split; From carries
// the sender's dial-back address for request frames.
type wireFrame struct {
	Kind    string `json:"kind"` // "request" | "response"
	From    string `json:"from,omitempty"`
	Body    []byte `json:"body,omitempty"`
	Token   []byte `json:"token,omitempty"`
	Success bool   `json:"success,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Remote is a TCP/line-delimited-JSON peer transport: it listens for
// inbound connections and maintains outbound connections to peers it has
// sent requests to, keyed by address.
type Remote struct {
	selfAddr string
	listener net.Listener
	inbox    chan host.Message

	mu       sync.Mutex
	inflight []inflightRequest
	outbound map[string]net.Conn
	timeouts *pendingTimeout
}

// Listen starts a Remote transport bound to addr.
func Listen(addr string) (*Remote, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("peertransport: listen: %w", err)
	}
	r := &Remote{
		selfAddr: ln.Addr().String(),
		listener: ln,
		inbox:    make(chan host.Message, 64),
		outbound: make(map[string]net.Conn),
		timeouts: newPendingTimeout(),
	}
	go r.acceptLoop()
	return r, nil
}

func (r *Remote) acceptLoop() {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			return
		}
		go r.readLoop(conn)
	}
}

func (r *Remote) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var f wireFrame
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			continue
		}
		switch f.Kind {
		case "request":
			r.mu.Lock()
			r.outbound[f.From] = conn
			r.inflight = append(r.inflight, inflightRequest{source: f.From, token: f.Token})
			r.mu.Unlock()
			r.inbox <- host.Message{Kind: host.KindRemoteRequest, Source: f.From, Body: f.Body, ContextToken: f.Token}
		case "response":
			r.timeouts.cancel(string(f.Token))
			r.inbox <- host.Message{Kind: host.KindResponse, ContextToken: f.Token, Outcome: responseOutcome(f.Body)}
		}
	}
}

// AwaitNextMessage blocks until a frame arrives from any peer connection.
func (r *Remote) AwaitNextMessage(ctx context.Context) (host.Message, error) {
	select {
	case m := <-r.inbox:
		return m, nil
	case <-ctx.Done():
		return host.Message{}, ctx.Err()
	}
}

// SendRequest dials target (reusing an existing connection if one is
// already open) and writes a request frame. If expectsResponse is set, it
// also arms a timer for timeout: if no response frame carrying
// contextToken arrives before it fires, a synthetic wire.TimeoutOutcome()
// is delivered to this peer's inbox instead, so a dead or unresponsive TCP
// peer never leaves the caller's Awaitable blocked forever.
func (r *Remote) SendRequest(ctx context.Context, target string, body, contextToken []byte, expectsResponse bool, timeout time.Duration) error {
	conn, err := r.dial(target)
	if err != nil {
		return err
	}
	frame := wireFrame{Kind: "request", From: r.selfAddr, Body: body, Token: contextToken}
	if err := writeFrame(conn, frame); err != nil {
		return err
	}
	if expectsResponse && timeout > 0 {
		token := contextToken
		r.timeouts.arm(string(token), timeout, func() {
			r.inbox <- host.Message{Kind: host.KindResponse, ContextToken: token, Outcome: wire.TimeoutOutcome()}
		})
	}
	return nil
}

// SendResponse completes the oldest request this peer has not yet
// answered, writing a response frame back over that request's connection.
func (r *Remote) SendResponse(ctx context.Context, status int, body []byte) error {
	r.mu.Lock()
	if len(r.inflight) == 0 {
		r.mu.Unlock()
		return nil
	}
	req := r.inflight[0]
	r.inflight = r.inflight[1:]
	conn, ok := r.outbound[req.source]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return writeFrame(conn, wireFrame{Kind: "response", Token: req.token, Body: body, Success: true})
}

func (r *Remote) dial(target string) (net.Conn, error) {
	r.mu.Lock()
	conn, ok := r.outbound[target]
	r.mu.Unlock()
	if ok {
		return conn, nil
	}
	conn, err := net.DialTimeout("tcp", target, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("peertransport: dial %s: %w", target, err)
	}
	r.mu.Lock()
	r.outbound[target] = conn
	r.mu.Unlock()
	go r.readLoop(conn)
	return conn, nil
}

func writeFrame(conn net.Conn, f wireFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}

func (r *Remote) ReadState(ctx context.Context) ([]byte, bool, error) { return nil, false, nil }
func (r *Remote) WriteState(ctx context.Context, data []byte) error  { return nil }
func (r *Remote) Now() time.Time                                     { return time.Now() }

// Close stops accepting new connections and closes the listener.
func (r *Remote) Close() error {
	return r.listener.Close()
}
