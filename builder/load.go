package builder

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// candidate is one annotated method discovered while walking the target
// package's syntax tree, before validation turns it into a
// descriptor.Descriptor.
type candidate struct {
	MethodName string
	Recv       string // the receiver type name, e.g. "State"
	Directives []directive
	ParamTypes []paramType
	ReturnType string // "" for no return value
	File       string
	Line       int
}

type paramType struct {
	Name string
	Type string
}

// Package bundles everything Load extracted: the module/package path (for
// the generated file's package clause) and the discovered candidates.
type Package struct {
	PkgPath  string
	PkgName  string
	Fset     *token.FileSet
	Candidates []candidate
}

// Load parses dir with golang.org/x/tools/go/packages at the syntax+types
// load mode, walks every method of every type declared there, and
// extracts `//hyperprocess:` directives from method doc comments. stateType
// restricts the walk to methods on that single receiver type, matching
// the one-state-struct-per-process model of §3.
func Load(dir, stateType string) (*Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedSyntax | packages.NeedTypes |
			packages.NeedTypesInfo | packages.NeedFiles,
		Dir: dir,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, fmt.Errorf("builder: load: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("builder: target package failed to parse")
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("builder: expected exactly one package in %s, found %d", dir, len(pkgs))
	}
	pkg := pkgs[0]

	out := &Package{PkgPath: pkg.PkgPath, PkgName: pkg.Name, Fset: pkg.Fset}

	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
				continue
			}
			recvName := receiverTypeName(fn.Recv.List[0].Type)
			if recvName != stateType {
				continue
			}
			if fn.Doc == nil {
				continue
			}
			lines := make([]string, len(fn.Doc.List))
			for i, c := range fn.Doc.List {
				lines[i] = c.Text
			}
			startLine := pkg.Fset.Position(fn.Doc.List[0].Pos()).Line
			directives, err := parseDirectives(lines, startLine)
			if err != nil {
				return nil, fmt.Errorf("builder: %s.%s: %w", recvName, fn.Name.Name, err)
			}
			if len(directives) == 0 {
				continue
			}

			params, ret := signatureOf(pkg.TypesInfo, fn)
			pos := pkg.Fset.Position(fn.Pos())
			out.Candidates = append(out.Candidates, candidate{
				MethodName: fn.Name.Name,
				Recv:       recvName,
				Directives: directives,
				ParamTypes: params,
				ReturnType: ret,
				File:       pos.Filename,
				Line:       pos.Line,
			})
		}
	}
	return out, nil
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

// signatureOf extracts a handler method's parameters after the leading
// context.Context (every handler takes one, per §4.1's examples) and its
// single return value, if any, as source-level type strings via go/types.
func signatureOf(info *types.Info, fn *ast.FuncDecl) ([]paramType, string) {
	var params []paramType
	if fn.Type.Params != nil {
		for _, field := range fn.Type.Params.List {
			typeStr := typeString(info, field.Type)
			if typeStr == "context.Context" {
				continue
			}
			names := field.Names
			if len(names) == 0 {
				params = append(params, paramType{Name: "_", Type: typeStr})
				continue
			}
			for _, n := range names {
				params = append(params, paramType{Name: n.Name, Type: typeStr})
			}
		}
	}
	ret := ""
	if fn.Type.Results != nil && len(fn.Type.Results.List) > 0 {
		ret = typeString(info, fn.Type.Results.List[0].Type)
	}
	return params, ret
}

func typeString(info *types.Info, expr ast.Expr) string {
	if t := info.TypeOf(expr); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%v", expr)
}

// has reports whether c carries a directive of the given kind, returning
// the first such directive.
func (c candidate) has(kind directiveKind) (directive, bool) {
	for _, d := range c.Directives {
		if d.Kind == kind {
			return d, true
		}
	}
	return directive{}, false
}

// variantName is the wire variant a candidate's method is addressed by:
// the bare method name, so distinctly-named methods (Ping, PingHTTP) are
// always distinct variants even when they wrap the same logic.
func (c candidate) variantName() string {
	return c.MethodName
}
