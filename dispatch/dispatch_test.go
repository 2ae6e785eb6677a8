package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hyperware-ai/hyperprocess-core/descriptor"
	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/hyperware-ai/hyperprocess-core/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHost struct {
	mu        sync.Mutex
	responses []response
}

type response struct {
	Status int
	Body   []byte
}

func (r *recordingHost) AwaitNextMessage(ctx context.Context) (host.Message, error) {
	return host.Message{}, nil
}
func (r *recordingHost) SendRequest(ctx context.Context, target string, body, token []byte, expectsResponse bool, timeout time.Duration) error {
	return nil
}
func (r *recordingHost) SendResponse(ctx context.Context, status int, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{Status: status, Body: append([]byte(nil), body...)})
	return nil
}
func (r *recordingHost) ReadState(ctx context.Context) ([]byte, bool, error) { return nil, false, nil }
func (r *recordingHost) WriteState(ctx context.Context, data []byte) error  { return nil }
func (r *recordingHost) Now() time.Time                                    { return time.Unix(0, 0) }

func (r *recordingHost) last() response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responses[len(r.responses)-1]
}

type noopSink struct{}

func (noopSink) Resolve(wire.CorrelationID, wire.Outcome) {}

func jsonOf(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// --- property 1: a well-formed message routes to its declared handler
// exactly once, for every transport it serves ---

func TestHandle_LocalRoutesToDeclaredHandler(t *testing.T) {
	ping := &descriptor.Descriptor{ID: "ping", Variant: "Ping", Transports: descriptor.Local | descriptor.Remote}
	table := descriptor.NewTable([]*descriptor.Descriptor{ping})

	calls := 0
	handlers := Registry{"Ping": func(ctx context.Context, raw []byte) ([]byte, error) {
		calls++
		return json.Marshal("pong")
	}}
	h := &recordingHost{}
	d := NewDispatcher(table, handlers, h, noopSink{}, nil)

	body, err := wire.Encode("Ping", nil)
	require.NoError(t, err)
	err = d.Handle(context.Background(), host.Message{Kind: host.KindLocalRequest, Body: body})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	env, ok := wire.Decode(h.last().Body)
	require.True(t, ok)
	assert.Equal(t, "Ping", env.Variant)
}

func TestHandle_TransportMismatchIsRejected(t *testing.T) {
	ping := &descriptor.Descriptor{ID: "ping", Variant: "Ping", Transports: descriptor.Local}
	table := descriptor.NewTable([]*descriptor.Descriptor{ping})
	calls := 0
	handlers := Registry{"Ping": func(ctx context.Context, raw []byte) ([]byte, error) {
		calls++
		return json.Marshal("pong")
	}}
	h := &recordingHost{}
	d := NewDispatcher(table, handlers, h, noopSink{}, nil)

	body, err := wire.Encode("Ping", nil)
	require.NoError(t, err)
	// Ping only serves Local; deliver it as Remote instead.
	err = d.Handle(context.Background(), host.Message{Kind: host.KindRemoteRequest, Body: body})
	require.NoError(t, err)
	assert.Equal(t, 0, calls, "handler must not run on a transport it does not serve")
}

// --- property 2 is a builder.Validate concern (duplicate variant
// detection); exercised in the builder package's tests.

// --- property 5: a response with no matching correlation id is dropped,
// never dispatched as a request ---

func TestHandle_UnmatchedResponseIsDroppedNotDispatched(t *testing.T) {
	table := descriptor.NewTable(nil)
	h := &recordingHost{}
	d := NewDispatcher(table, Registry{}, h, noopSink{}, nil)

	token, _ := wire.NewCorrelationID().MarshalText()
	err := d.Handle(context.Background(), host.Message{Kind: host.KindResponse, ContextToken: token, Outcome: wire.BytesOutcome([]byte("x"))})
	require.NoError(t, err)
	assert.Empty(t, h.responses, "a response must never produce an outbound send")
}

// --- property 7: HTTP priority ranking ---

func TestHTTPPriority_RankOrder(t *testing.T) {
	a := &descriptor.Descriptor{ID: "a", Variant: "A", Transports: descriptor.Http,
		HTTP: descriptor.HTTPFilter{Method: descriptor.MethodGet, HasMethod: true, Path: "/x", HasPath: true}}
	b := &descriptor.Descriptor{ID: "b", Variant: "B", Transports: descriptor.Http,
		HTTP: descriptor.HTTPFilter{Method: descriptor.MethodGet, HasMethod: true}}
	c := &descriptor.Descriptor{ID: "c", Variant: "C", Transports: descriptor.Http,
		HTTP: descriptor.HTTPFilter{Path: "/x", HasPath: true}}
	d := &descriptor.Descriptor{ID: "d", Variant: "D", Transports: descriptor.Http}

	all := []*descriptor.Descriptor{a, b, c, d}

	winner, ok := SelectParamlessHTTP(all, "GET", "/x")
	require.True(t, ok)
	assert.Equal(t, "A", winner.Variant)

	winner, ok = SelectParamlessHTTP(all[1:], "GET", "/x")
	require.True(t, ok)
	assert.Equal(t, "B", winner.Variant)

	winner, ok = SelectParamlessHTTP(all[2:], "GET", "/x")
	require.True(t, ok)
	assert.Equal(t, "C", winner.Variant)

	winner, ok = SelectParamlessHTTP(all[3:], "GET", "/x")
	require.True(t, ok)
	assert.Equal(t, "D", winner.Variant)

	_, ok = SelectParamlessHTTP(nil, "GET", "/x")
	assert.False(t, ok)
}

// --- property 8 / S2: HTTP body-shape priority, create then list ---

func TestScenarioS2_CreateThenListUsers(t *testing.T) {
	type User struct {
		Name string `json:"name"`
	}
	var mu sync.Mutex
	var users []User

	createUser := &descriptor.Descriptor{ID: "create_user", Variant: "CreateUser", Transports: descriptor.Http,
		Params: []descriptor.Param{{Name: "u", Type: "User"}},
		HTTP:   descriptor.HTTPFilter{Method: descriptor.MethodPost, HasMethod: true, Path: "/users", HasPath: true}}
	listUsers := &descriptor.Descriptor{ID: "list_users", Variant: "ListUsers", Transports: descriptor.Http,
		HTTP: descriptor.HTTPFilter{Method: descriptor.MethodGet, HasMethod: true, Path: "/users", HasPath: true}}
	table := descriptor.NewTable([]*descriptor.Descriptor{createUser, listUsers})

	handlers := Registry{
		"CreateUser": func(ctx context.Context, raw []byte) ([]byte, error) {
			var u User
			if err := json.Unmarshal(raw, &u); err != nil {
				return nil, err
			}
			mu.Lock()
			users = append(users, u)
			mu.Unlock()
			return json.Marshal(u)
		},
		"ListUsers": func(ctx context.Context, raw []byte) ([]byte, error) {
			mu.Lock()
			defer mu.Unlock()
			return json.Marshal(users)
		},
	}

	h := &recordingHost{}
	d := NewDispatcher(table, handlers, h, noopSink{}, nil)

	createBody, err := wire.Encode("CreateUser", User{Name: "a"})
	require.NoError(t, err)
	err = d.Handle(context.Background(), host.Message{Kind: host.KindHTTPRequest, HTTPMethod: "POST", HTTPPath: "/users", HTTPBody: createBody})
	require.NoError(t, err)
	assert.Equal(t, 200, h.last().Status)

	err = d.Handle(context.Background(), host.Message{Kind: host.KindHTTPRequest, HTTPMethod: "GET", HTTPPath: "/users"})
	require.NoError(t, err)
	last := h.last()
	assert.Equal(t, 200, last.Status)
	env, ok := wire.Decode(last.Body)
	require.True(t, ok)
	assert.Equal(t, "ListUsers", env.Variant)
	assert.JSONEq(t, `[{"name":"a"}]`, string(env.Raw))
}

// --- S1: ping, including the "body present but fails to decode as any
// parameterized handler, falls through to Phase B" case ---

func TestScenarioS1_Ping(t *testing.T) {
	ping := &descriptor.Descriptor{ID: "ping", Variant: "Ping", Transports: descriptor.Http,
		HTTP: descriptor.HTTPFilter{Method: descriptor.MethodGet, HasMethod: true, Path: "/ping", HasPath: true}}
	table := descriptor.NewTable([]*descriptor.Descriptor{ping})
	handlers := Registry{"Ping": func(ctx context.Context, raw []byte) ([]byte, error) {
		return json.Marshal("pong")
	}}
	h := &recordingHost{}
	d := NewDispatcher(table, handlers, h, noopSink{}, nil)

	err := d.Handle(context.Background(), host.Message{Kind: host.KindHTTPRequest, HTTPMethod: "GET", HTTPPath: "/ping"})
	require.NoError(t, err)
	assert.Equal(t, 200, h.last().Status)
	env, ok := wire.Decode(h.last().Body)
	require.True(t, ok)
	assert.JSONEq(t, `"pong"`, string(env.Raw))

	// GET /ping with an empty-object body: Phase A fails to decode as
	// any parameterized handler (there are none), Phase B matches.
	err = d.Handle(context.Background(), host.Message{Kind: host.KindHTTPRequest, HTTPMethod: "GET", HTTPPath: "/ping", HTTPBody: []byte("{}")})
	require.NoError(t, err)
	assert.Equal(t, 200, h.last().Status)
}

// --- S3: missing route ---

func TestScenarioS3_MissingRoute(t *testing.T) {
	table := descriptor.NewTable(nil)
	h := &recordingHost{}
	d := NewDispatcher(table, Registry{}, h, noopSink{}, nil)

	err := d.Handle(context.Background(), host.Message{Kind: host.KindHTTPRequest, HTTPMethod: "DELETE", HTTPPath: "/unknown"})
	require.NoError(t, err)
	assert.Equal(t, 404, h.last().Status)
}

// --- S4: method not allowed ---

func TestScenarioS4_MethodNotAllowed(t *testing.T) {
	listUsers := &descriptor.Descriptor{ID: "list_users", Variant: "ListUsers", Transports: descriptor.Http,
		HTTP: descriptor.HTTPFilter{Method: descriptor.MethodGet, HasMethod: true, Path: "/users", HasPath: true}}
	table := descriptor.NewTable([]*descriptor.Descriptor{listUsers})
	h := &recordingHost{}
	d := NewDispatcher(table, Registry{"ListUsers": func(ctx context.Context, raw []byte) ([]byte, error) {
		return json.Marshal([]string{})
	}}, h, noopSink{}, nil)

	err := d.Handle(context.Background(), host.Message{Kind: host.KindHTTPRequest, HTTPMethod: "POST", HTTPPath: "/users"})
	require.NoError(t, err)
	assert.Equal(t, 405, h.last().Status)
}

func TestHandle_PanickingHandlerIsReportedNotCrashed(t *testing.T) {
	boom := &descriptor.Descriptor{ID: "boom", Variant: "Boom", Transports: descriptor.Local}
	table := descriptor.NewTable([]*descriptor.Descriptor{boom})
	handlers := Registry{"Boom": func(ctx context.Context, raw []byte) ([]byte, error) {
		panic("kaboom")
	}}
	h := &recordingHost{}
	d := NewDispatcher(table, handlers, h, noopSink{}, nil)

	body, err := wire.Encode("Boom", nil)
	require.NoError(t, err)
	err = d.Handle(context.Background(), host.Message{Kind: host.KindLocalRequest, Body: body})
	require.Error(t, err, "a panic must be reported to the caller, not propagated as a crash")
	var panicErr *PanicError
	assert.ErrorAs(t, err, &panicErr)
}
