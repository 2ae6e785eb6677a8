package builder

import "fmt"

// Diagnostic is one pointed build-time error (§4.1/§7 BuildError): the
// offending identifier, its file:line, and a remediation hint — never a
// bare "validation failed".
type Diagnostic struct {
	Identifier string
	File       string
	Line       int
	Message    string
	Hint       string
}

func (d Diagnostic) String() string {
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	if d.Hint != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", loc, d.Identifier, d.Message, d.Hint)
	}
	return fmt.Sprintf("%s: %s: %s", loc, d.Identifier, d.Message)
}

// BuildError aggregates every Diagnostic found in one builder.Validate
// pass, so a user sees every problem at once instead of fixing one at a
// time across repeated invocations.
type BuildError struct {
	Diagnostics []Diagnostic
}

func (e *BuildError) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].String()
	}
	s := fmt.Sprintf("%d errors:", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		s += "\n  " + d.String()
	}
	return s
}
