package builder

import (
	"fmt"
	"strings"

	"github.com/hyperware-ai/hyperprocess-core/descriptor"
)

// websocketParamTypes is the fixed three-parameter shape §3/§4.1 requires
// of a //hyperprocess:websocket handler, in order: channel id, frame kind,
// payload. dispatch.Dispatcher.handleWebSocket marshals
// []any{msg.ChannelID, msg.FrameKind, msg.Payload} unconditionally, so a
// handler declared with any other shape would decode into the wrong
// parameters at dispatch time without this check catching it at build time.
var websocketParamTypes = []string{
	"uint32",
	"github.com/hyperware-ai/hyperprocess-core/wire.FrameKind",
	"[]byte",
}

// Validate turns pkg's candidates into a descriptor.Table, collecting
// every Diagnostic it finds rather than stopping at the first one (§4.1).
// On failure the table is nil and the error is a *BuildError.
func Validate(pkg *Package) (*descriptor.Table, error) {
	var diags []Diagnostic
	var descs []*descriptor.Descriptor

	seenVariant := map[string]candidate{}
	var initCandidate, wsCandidate *candidate

	for i := range pkg.Candidates {
		c := pkg.Candidates[i]
		variant := c.variantName()
		if prior, dup := seenVariant[variant]; dup {
			diags = append(diags, Diagnostic{
				Identifier: variant, File: c.File, Line: c.Line,
				Message: fmt.Sprintf("duplicate variant, already declared by %s.%s at line %d", prior.Recv, prior.MethodName, prior.Line),
				Hint:    "rename one of the two methods",
			})
			continue
		}
		seenVariant[variant] = c

		desc := &descriptor.Descriptor{ID: variant, Variant: variant}
		for _, p := range c.ParamTypes {
			desc.Params = append(desc.Params, descriptor.Param{Name: p.Name, Type: p.Type})
		}
		desc.Return = c.ReturnType

		if _, ok := c.has(directiveInit); ok {
			if initCandidate != nil {
				diags = append(diags, Diagnostic{
					Identifier: variant, File: c.File, Line: c.Line,
					Message: fmt.Sprintf("a second //hyperprocess:init handler; %s.%s already has one", initCandidate.Recv, initCandidate.MethodName),
					Hint:    "a process has exactly one init handler",
				})
				continue
			}
			if len(c.ParamTypes) != 0 {
				diags = append(diags, Diagnostic{
					Identifier: variant, File: c.File, Line: c.Line,
					Message: "init handler must take no parameters besides context.Context",
					Hint:    "remove the extra parameters",
				})
				continue
			}
			cc := c
			initCandidate = &cc
			desc.IsInit = true
		}

		if _, ok := c.has(directiveWebSocket); ok {
			if wsCandidate != nil {
				diags = append(diags, Diagnostic{
					Identifier: variant, File: c.File, Line: c.Line,
					Message: fmt.Sprintf("a second //hyperprocess:websocket handler; %s.%s already has one", wsCandidate.Recv, wsCandidate.MethodName),
					Hint:    "a process has at most one websocket handler",
				})
				continue
			}
			if !hasWebSocketShape(c.ParamTypes) {
				diags = append(diags, Diagnostic{
					Identifier: variant, File: c.File, Line: c.Line,
					Message: "websocket handler must take (channel id uint32, frame kind wire.FrameKind, payload []byte) besides context.Context",
					Hint:    "match the fixed websocket parameter shape",
				})
				continue
			}
			cc := c
			wsCandidate = &cc
			desc.IsWebSocket = true
		}

		if _, ok := c.has(directiveAsync); ok {
			desc.Async = true
		}

		if _, ok := c.has(directiveLocal); ok {
			desc.Transports |= descriptor.Local
		}
		if _, ok := c.has(directiveRemote); ok {
			desc.Transports |= descriptor.Remote
		}
		if httpDir, ok := c.has(directiveHTTP); ok {
			desc.Transports |= descriptor.Http
			filter, err := parseHTTPFilter(httpDir.Attrs)
			if err != nil {
				diags = append(diags, Diagnostic{
					Identifier: variant, File: c.File, Line: c.Line,
					Message: err.Error(),
					Hint:    "use method=GET|POST|... and/or path=/literal",
				})
				continue
			}
			desc.HTTP = filter
		}

		if desc.Transports == 0 && !desc.IsInit && !desc.IsWebSocket {
			diags = append(diags, Diagnostic{
				Identifier: variant, File: c.File, Line: c.Line,
				Message: "no transport directive found",
				Hint:    "add //hyperprocess:local, :remote, :http, :init, or :websocket",
			})
			continue
		}

		descs = append(descs, desc)
	}

	if rankDiags := checkHTTPRankUniqueness(descs); len(rankDiags) > 0 {
		diags = append(diags, rankDiags...)
	}

	if !hasRoutableHandler(descs) {
		diags = append(diags, Diagnostic{
			Identifier: pkg.PkgPath,
			Message:    "package declares no Local, Remote, or HTTP handler; init and websocket handlers alone produce an unroutable process",
			Hint:       "add //hyperprocess:local, :remote, or :http to at least one handler",
		})
	}

	if len(diags) > 0 {
		return nil, &BuildError{Diagnostics: diags}
	}
	return descriptor.NewTable(descs), nil
}

// hasRoutableHandler reports whether at least one descriptor serves a
// transport a caller can actually address (Local, Remote, or HTTP); init
// and websocket handlers are reachable only via the host's own lifecycle
// and frame delivery, never via Dispatcher.Handle's transport routing.
func hasRoutableHandler(descs []*descriptor.Descriptor) bool {
	for _, d := range descs {
		if d.Transports != 0 {
			return true
		}
	}
	return false
}

// hasWebSocketShape reports whether params matches the fixed
// (uint32, wire.FrameKind, []byte) shape a websocket handler must declare.
func hasWebSocketShape(params []paramType) bool {
	if len(params) != len(websocketParamTypes) {
		return false
	}
	for i, p := range params {
		if p.Type != websocketParamTypes[i] {
			return false
		}
	}
	return true
}

func parseHTTPFilter(attrs map[string]string) (descriptor.HTTPFilter, error) {
	var f descriptor.HTTPFilter
	if m, ok := attrs["method"]; ok {
		parsed, err := descriptor.ParseHTTPMethod(m)
		if err != nil {
			return f, fmt.Errorf("http directive: %w", err)
		}
		f.Method = parsed
		f.HasMethod = true
	}
	if p, ok := attrs["path"]; ok {
		if !strings.HasPrefix(p, "/") {
			return f, fmt.Errorf("http directive: path %q must be an absolute path starting with /", p)
		}
		f.Path = p
		f.HasPath = true
	}
	return f, nil
}

// checkHTTPRankUniqueness flags two paramless HTTP descriptors that
// would tie on both method and path filter, since Phase B (§4.2) assumes
// exactly one winner per rank given a concrete (method, path).
func checkHTTPRankUniqueness(descs []*descriptor.Descriptor) []Diagnostic {
	type key struct {
		method descriptor.HTTPMethod
		hasM   bool
		path   string
		hasP   bool
	}
	seen := map[key]*descriptor.Descriptor{}
	var diags []Diagnostic
	for _, d := range descs {
		if !d.Transports.Has(descriptor.Http) || len(d.Params) != 0 {
			continue
		}
		k := key{method: d.HTTP.Method, hasM: d.HTTP.HasMethod, path: d.HTTP.Path, hasP: d.HTTP.HasPath}
		if prior, dup := seen[k]; dup {
			diags = append(diags, Diagnostic{
				Identifier: d.Variant,
				Message:    fmt.Sprintf("HTTP filter identical to %q; Phase B cannot pick a unique winner", prior.Variant),
				Hint:       "differentiate by method or path, or merge the two handlers",
			})
			continue
		}
		seen[k] = d
	}
	return diags
}
