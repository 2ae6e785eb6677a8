package builder

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/hyperware-ai/hyperprocess-core/descriptor"
	"golang.org/x/tools/imports"
)

// Generate renders wire_gen.go for pkg's validated table: a package-level
// Descriptors slice literal (the input to descriptor.NewTable) plus a
// NewHandlers function returning a dispatch.Registry wiring every variant
// to a decode-invoke-encode shim around the user's actual method, so the
// user's handler keeps its natural Go signature (typed params, typed
// return) while dispatch.HandlerFunc stays untyped ([]byte in, []byte
// out). Rendered with text/template, then goimports — the same two-step
// the vdl toolchain's golang generator uses for its own generated files.
func Generate(pkg *Package, table *descriptor.Table, stateType string) ([]byte, error) {
	data := genData{
		Package:   pkg.PkgName,
		StateType: stateType,
	}
	byVariant := map[string]candidate{}
	for _, c := range pkg.Candidates {
		byVariant[c.variantName()] = c
	}
	for _, d := range table.All() {
		c := byVariant[d.Variant]
		data.Handlers = append(data.Handlers, genHandler{
			Descriptor: d,
			Method:     c.MethodName,
			HasParam:   len(d.Params) == 1,
			ParamType:  firstParamType(d),
			HasReturn:  d.Return != "",
		})
	}

	var buf bytes.Buffer
	if err := genTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("builder: render wire_gen.go: %w", err)
	}

	formatted, err := imports.Process("wire_gen.go", buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("builder: goimports wire_gen.go: %w", err)
	}
	return formatted, nil
}

func firstParamType(d *descriptor.Descriptor) string {
	if len(d.Params) == 1 {
		return d.Params[0].Type
	}
	return ""
}

type genData struct {
	Package   string
	StateType string
	Handlers  []genHandler
}

type genHandler struct {
	Descriptor *descriptor.Descriptor
	Method     string
	HasParam   bool
	ParamType  string
	HasReturn  bool
}

var genTemplate = template.Must(template.New("wire_gen").Funcs(template.FuncMap{
	"transportExpr": transportExpr,
}).Parse(`// Code generated by hyperprocessgen. DO NOT EDIT.

package {{.Package}}

import (
	"context"
	"encoding/json"

	"github.com/hyperware-ai/hyperprocess-core/descriptor"
	"github.com/hyperware-ai/hyperprocess-core/dispatch"
)

// Descriptors is the compile-time handler table for {{.StateType}},
// generated from its //hyperprocess: directives.
var Descriptors = []*descriptor.Descriptor{
{{- range .Handlers}}
	{
		ID:          {{printf "%q" .Descriptor.ID}},
		Variant:     {{printf "%q" .Descriptor.Variant}},
		Async:       {{.Descriptor.Async}},
		Transports:  {{transportExpr .Descriptor.Transports}},
		IsInit:      {{.Descriptor.IsInit}},
		IsWebSocket: {{.Descriptor.IsWebSocket}},
		{{- if .Descriptor.Params}}
		Params: []descriptor.Param{ {{- range .Descriptor.Params}}{Name: {{printf "%q" .Name}}, Type: {{printf "%q" .Type}}}, {{- end}}},
		{{- end}}
		{{- if .Descriptor.HTTP.HasMethod}}
		HTTP: descriptor.HTTPFilter{Method: {{printf "%q" .Descriptor.HTTP.Method}}, HasMethod: true{{if .Descriptor.HTTP.HasPath}}, Path: {{printf "%q" .Descriptor.HTTP.Path}}, HasPath: true{{end}}},
		{{- else if .Descriptor.HTTP.HasPath}}
		HTTP: descriptor.HTTPFilter{Path: {{printf "%q" .Descriptor.HTTP.Path}}, HasPath: true},
		{{- end}}
	},
{{- end}}
}

// NewHandlers wires dispatch.Registry shims around state's annotated
// methods: each shim decodes rawParams into the method's typed
// parameter (when it has one), calls it, and encodes its typed return
// value (when it has one) back to JSON.
func NewHandlers(state *{{.StateType}}) dispatch.Registry {
	return dispatch.Registry{
{{- range .Handlers}}
		{{printf "%q" .Descriptor.Variant}}: func(ctx context.Context, rawParams []byte) ([]byte, error) {
			{{- if .HasParam}}
			var arg {{.ParamType}}
			if len(rawParams) > 0 {
				if err := json.Unmarshal(rawParams, &arg); err != nil {
					return nil, err
				}
			}
			{{- end}}
			{{- if .HasReturn}}
			result := state.{{.Method}}(ctx{{if .HasParam}}, arg{{end}})
			return json.Marshal(result)
			{{- else}}
			state.{{.Method}}(ctx{{if .HasParam}}, arg{{end}})
			return json.Marshal(struct{}{})
			{{- end}}
		},
{{- end}}
	}
}
`))

func transportExpr(t descriptor.TransportKind) string {
	parts := ""
	if t.Has(descriptor.Local) {
		parts = add(parts, "descriptor.Local")
	}
	if t.Has(descriptor.Remote) {
		parts = add(parts, "descriptor.Remote")
	}
	if t.Has(descriptor.Http) {
		parts = add(parts, "descriptor.Http")
	}
	if parts == "" {
		return "0"
	}
	return parts
}

func add(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "|" + next
}
