package builder

import (
	"strings"
	"testing"

	"github.com/hyperware-ai/hyperprocess-core/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirectives_LocalRemoteHTTP(t *testing.T) {
	ds, err := parseDirectives([]string{
		"// Ping does a thing.",
		"//hyperprocess:local",
		"//hyperprocess:remote",
	}, 10)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, directiveLocal, ds[0].Kind)
	assert.Equal(t, directiveRemote, ds[1].Kind)
}

func TestParseDirectives_HTTPAttributes(t *testing.T) {
	ds, err := parseDirectives([]string{"//hyperprocess:http method=GET path=/ping"}, 1)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "GET", ds[0].Attrs["method"])
	assert.Equal(t, "/ping", ds[0].Attrs["path"])
}

func TestParseDirectives_Async(t *testing.T) {
	ds, err := parseDirectives([]string{
		"//hyperprocess:remote",
		"//hyperprocess:async",
	}, 1)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, directiveAsync, ds[1].Kind)
}

func TestParseDirectives_UnknownKindErrors(t *testing.T) {
	_, err := parseDirectives([]string{"//hyperprocess:bogus"}, 1)
	assert.Error(t, err)
}

func TestParseDirectives_MalformedHTTPAttributeErrors(t *testing.T) {
	_, err := parseDirectives([]string{"//hyperprocess:http method"}, 1)
	assert.Error(t, err)
}

func TestValidate_DuplicateVariantIsDiagnosed(t *testing.T) {
	pkg := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{MethodName: "Ping", Recv: "State", Directives: []directive{{Kind: directiveLocal}}, File: "a.go", Line: 1},
			{MethodName: "Ping", Recv: "State", Directives: []directive{{Kind: directiveRemote}}, File: "b.go", Line: 2},
		},
	}
	_, err := Validate(pkg)
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Len(t, buildErr.Diagnostics, 1)
	assert.Contains(t, buildErr.Diagnostics[0].Message, "duplicate variant")
}

func TestValidate_SecondInitIsDiagnosed(t *testing.T) {
	pkg := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{MethodName: "Init", Recv: "State", Directives: []directive{{Kind: directiveInit}}, File: "a.go", Line: 1},
			{MethodName: "Setup", Recv: "State", Directives: []directive{{Kind: directiveInit}}, File: "a.go", Line: 5},
		},
	}
	_, err := Validate(pkg)
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Diagnostics[0].Message, "second //hyperprocess:init")
}

func TestValidate_MissingTransportIsDiagnosed(t *testing.T) {
	pkg := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{MethodName: "Ping", Recv: "State", Directives: []directive{}, File: "a.go", Line: 1},
		},
	}
	// a candidate is only produced by Load when it has at least one
	// directive, so simulate the case where none of the recognized
	// transport directives were attached (e.g. malformed input slipped
	// past parseDirectives as an empty list).
	_, err := Validate(pkg)
	require.Error(t, err)
}

func TestValidate_AsyncDirectiveSetsDescriptorAsync(t *testing.T) {
	pkg := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{MethodName: "Fetch", Recv: "State", Directives: []directive{{Kind: directiveLocal}, {Kind: directiveAsync}}, File: "a.go", Line: 1},
			{MethodName: "Ping", Recv: "State", Directives: []directive{{Kind: directiveLocal}}, File: "a.go", Line: 5},
		},
	}
	table, err := Validate(pkg)
	require.NoError(t, err)
	fetch, ok := table.ByVariant("Fetch")
	require.True(t, ok)
	assert.True(t, fetch.Async, "handler with //hyperprocess:async must come out of Validate with Async set")
	ping, ok := table.ByVariant("Ping")
	require.True(t, ok)
	assert.False(t, ping.Async, "a handler without the async directive must not be marked Async")
}

func TestValidate_NoRoutableHandlerIsDiagnosed(t *testing.T) {
	pkg := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{MethodName: "Init", Recv: "State", Directives: []directive{{Kind: directiveInit}}, File: "a.go", Line: 1},
		},
	}
	_, err := Validate(pkg)
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	found := false
	for _, d := range buildErr.Diagnostics {
		if strings.Contains(d.Message, "unroutable process") {
			found = true
		}
	}
	assert.True(t, found, "expected an unroutable-process diagnostic, got: %+v", buildErr.Diagnostics)
}

func TestValidate_HTTPPathWithoutLeadingSlashIsDiagnosed(t *testing.T) {
	pkg := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{MethodName: "Ping", Recv: "State", Directives: []directive{{Kind: directiveHTTP, Attrs: map[string]string{"path": "ping"}}}, File: "a.go", Line: 1},
		},
	}
	_, err := Validate(pkg)
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Diagnostics[0].Message, "must be an absolute path")
}

func TestValidate_WebSocketShapeIsEnforced(t *testing.T) {
	wrongShape := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{
				MethodName: "Stream", Recv: "State",
				Directives: []directive{{Kind: directiveWebSocket}},
				ParamTypes: []paramType{{Name: "msg", Type: "string"}},
				File:       "a.go", Line: 1,
			},
		},
	}
	_, err := Validate(wrongShape)
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Diagnostics[0].Hint, "fixed websocket parameter shape")

	rightShape := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{
				MethodName: "Stream", Recv: "State",
				Directives: []directive{{Kind: directiveWebSocket}},
				ParamTypes: []paramType{
					{Name: "channelID", Type: "uint32"},
					{Name: "kind", Type: "github.com/hyperware-ai/hyperprocess-core/wire.FrameKind"},
					{Name: "payload", Type: "[]byte"},
				},
				File: "a.go", Line: 1,
			},
			{MethodName: "Ping", Recv: "State", Directives: []directive{{Kind: directiveLocal}}, File: "a.go", Line: 5},
		},
	}
	table, err := Validate(rightShape)
	require.NoError(t, err)
	ws, ok := table.WebSocket()
	require.True(t, ok)
	assert.True(t, ws.IsWebSocket)
}

func TestValidate_HTTPRankCollisionIsDiagnosed(t *testing.T) {
	pkg := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{MethodName: "A", Recv: "State", Directives: []directive{{Kind: directiveHTTP, Attrs: map[string]string{"method": "GET", "path": "/x"}}}, File: "a.go", Line: 1},
			{MethodName: "B", Recv: "State", Directives: []directive{{Kind: directiveHTTP, Attrs: map[string]string{"method": "GET", "path": "/x"}}}, File: "a.go", Line: 2},
		},
	}
	_, err := Validate(pkg)
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Diagnostics[0].Message, "Phase B cannot pick a unique winner")
}

func TestValidate_WellFormedTableBuilds(t *testing.T) {
	pkg := &Package{
		PkgName: "example",
		Candidates: []candidate{
			{MethodName: "Init", Recv: "State", Directives: []directive{{Kind: directiveInit}}, File: "a.go", Line: 1},
			{MethodName: "Ping", Recv: "State", Directives: []directive{{Kind: directiveLocal}, {Kind: directiveRemote}}, File: "a.go", Line: 5},
			{MethodName: "PingHTTP", Recv: "State", Directives: []directive{{Kind: directiveHTTP, Attrs: map[string]string{"method": "GET", "path": "/ping"}}}, File: "a.go", Line: 9},
		},
	}
	table, err := Validate(pkg)
	require.NoError(t, err)
	_, ok := table.Init()
	assert.True(t, ok)
	ping, ok := table.ByVariant("Ping")
	require.True(t, ok)
	assert.True(t, ping.Transports.Has(descriptor.Local))
	assert.True(t, ping.Transports.Has(descriptor.Remote))
	pingHTTP, ok := table.ByVariant("PingHTTP")
	require.True(t, ok)
	assert.True(t, pingHTTP.Transports.Has(descriptor.Http))
	assert.Equal(t, descriptor.MethodGet, pingHTTP.HTTP.Method)
}
