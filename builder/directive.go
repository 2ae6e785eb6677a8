package builder

import (
	"fmt"
	"strings"
)

// directiveKind discriminates the six `//hyperprocess:` tags §4.1 defines.
type directiveKind string

const (
	directiveInit      directiveKind = "init"
	directiveLocal     directiveKind = "local"
	directiveRemote    directiveKind = "remote"
	directiveHTTP      directiveKind = "http"
	directiveWebSocket directiveKind = "websocket"
	directiveAsync     directiveKind = "async"
)

// directive is one parsed `//hyperprocess:` line, including its
// key=value attributes (only `http` carries any: method, path).
type directive struct {
	Kind   directiveKind
	Attrs  map[string]string
	Line   int // 1-based source line, for diagnostics
}

const directivePrefix = "hyperprocess:"

// parseDirectives scans a doc comment's lines for `//hyperprocess:...`
// tags. A line not matching the prefix is ordinary documentation and is
// ignored — directives are additive annotations, not the whole comment.
func parseDirectives(lines []string, startLine int) ([]directive, error) {
	var out []directive
	for i, raw := range lines {
		text := strings.TrimSpace(strings.TrimPrefix(raw, "//"))
		if !strings.HasPrefix(text, directivePrefix) {
			continue
		}
		body := strings.TrimSpace(strings.TrimPrefix(text, directivePrefix))
		fields := strings.Fields(body)
		if len(fields) == 0 {
			return nil, fmt.Errorf("line %d: empty hyperprocess directive", startLine+i)
		}
		d := directive{Kind: directiveKind(fields[0]), Attrs: map[string]string{}, Line: startLine + i}
		switch d.Kind {
		case directiveInit, directiveLocal, directiveRemote, directiveWebSocket, directiveAsync:
			if len(fields) > 1 {
				return nil, fmt.Errorf("line %d: %q takes no attributes", startLine+i, d.Kind)
			}
		case directiveHTTP:
			for _, f := range fields[1:] {
				k, v, ok := strings.Cut(f, "=")
				if !ok {
					return nil, fmt.Errorf("line %d: malformed http attribute %q, want key=value", startLine+i, f)
				}
				d.Attrs[k] = v
			}
		default:
			return nil, fmt.Errorf("line %d: unknown hyperprocess directive %q", startLine+i, fields[0])
		}
		out = append(out, d)
	}
	return out, nil
}
