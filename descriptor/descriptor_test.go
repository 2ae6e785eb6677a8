package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportKindHas(t *testing.T) {
	both := Local | Remote
	assert.True(t, both.Has(Local))
	assert.True(t, both.Has(Remote))
	assert.False(t, both.Has(Http))
}

func TestTransportKindString(t *testing.T) {
	assert.Equal(t, "none", TransportKind(0).String())
	assert.Equal(t, "local", Local.String())
	assert.Equal(t, "local|remote|http", (Local | Remote | Http).String())
}

func TestParseHTTPMethod(t *testing.T) {
	m, err := ParseHTTPMethod("get")
	require.NoError(t, err)
	assert.Equal(t, MethodGet, m)

	m, err = ParseHTTPMethod("PATCH")
	require.NoError(t, err)
	assert.Equal(t, MethodPatch, m)

	m, err = ParseHTTPMethod("any")
	require.NoError(t, err)
	assert.Equal(t, MethodAny, m)

	_, err = ParseHTTPMethod("TRACE")
	require.Error(t, err)
}

func TestTableByVariantAndInit(t *testing.T) {
	init := &Descriptor{ID: "init", Variant: "Init", IsInit: true, Async: true}
	ping := &Descriptor{ID: "ping", Variant: "Ping", Transports: Local | Remote}
	table := NewTable([]*Descriptor{init, ping})

	got, ok := table.ByVariant("Ping")
	require.True(t, ok)
	assert.Same(t, ping, got)

	gotInit, ok := table.Init()
	require.True(t, ok)
	assert.Same(t, init, gotInit)

	_, ok = table.WebSocket()
	assert.False(t, ok)
}

func TestTableParamlessAndParameterizedHTTP(t *testing.T) {
	pingHTTP := &Descriptor{ID: "ping_http", Variant: "PingHTTP", Transports: Http,
		HTTP: HTTPFilter{Method: MethodGet, HasMethod: true, Path: "/ping", HasPath: true}}
	createUser := &Descriptor{ID: "create_user", Variant: "CreateUser", Transports: Http,
		Params: []Param{{Name: "u", Type: "User"}},
		HTTP:   HTTPFilter{Method: MethodPost, HasMethod: true, Path: "/users", HasPath: true}}

	table := NewTable([]*Descriptor{pingHTTP, createUser})

	paramless := table.ParamlessHTTP()
	require.Len(t, paramless, 1)
	assert.Equal(t, "PingHTTP", paramless[0].Variant)

	parameterized := table.ParameterizedHTTP()
	require.Len(t, parameterized, 1)
	assert.Equal(t, "CreateUser", parameterized[0].Variant)
}

func TestTableByTransport(t *testing.T) {
	a := &Descriptor{ID: "a", Variant: "A", Transports: Local}
	b := &Descriptor{ID: "b", Variant: "B", Transports: Local | Remote}
	c := &Descriptor{ID: "c", Variant: "C", Transports: Http}

	table := NewTable([]*Descriptor{a, b, c})

	assert.Len(t, table.ByTransport(Local), 2)
	assert.Len(t, table.ByTransport(Remote), 1)
	assert.Len(t, table.ByTransport(Http), 1)
}
