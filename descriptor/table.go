package descriptor

// Table is the immutable runtime artifact produced by the descriptor
// builder: a static index over a process's handlers. It performs no
// validation of its own — the builder package is responsible for
// rejecting malformed handler sets before a Table is ever constructed.
type Table struct {
	descriptors []*Descriptor
	byVariant   map[string]*Descriptor
	init        *Descriptor
	websocket   *Descriptor
}

// NewTable assembles a Table from a slice of descriptors. Callers
// (builder.Validate itself, or a process's main over its generated
// Descriptors slice) are expected to pass a set builder.Validate has
// accepted; NewTable itself only builds indices.
func NewTable(descriptors []*Descriptor) *Table {
	t := &Table{
		descriptors: descriptors,
		byVariant:   make(map[string]*Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		t.byVariant[d.Variant] = d
		if d.IsInit {
			t.init = d
		}
		if d.IsWebSocket {
			t.websocket = d
		}
	}
	return t
}

// ByVariant looks up a handler by its wire tag.
func (t *Table) ByVariant(variant string) (*Descriptor, bool) {
	d, ok := t.byVariant[variant]
	return d, ok
}

// Init returns the process's init descriptor, if one was declared.
func (t *Table) Init() (*Descriptor, bool) {
	return t.init, t.init != nil
}

// WebSocket returns the process's websocket descriptor, if one was declared.
func (t *Table) WebSocket() (*Descriptor, bool) {
	return t.websocket, t.websocket != nil
}

// All returns every descriptor in declaration order.
func (t *Table) All() []*Descriptor {
	return t.descriptors
}

// ParamlessHTTP returns all HTTP handlers eligible for Phase-B routing,
// in declaration order.
func (t *Table) ParamlessHTTP() []*Descriptor {
	var out []*Descriptor
	for _, d := range t.descriptors {
		if d.ParamlessHTTP() {
			out = append(out, d)
		}
	}
	return out
}

// ParameterizedHTTP returns all HTTP handlers with at least one
// parameter, eligible for Phase-A routing.
func (t *Table) ParameterizedHTTP() []*Descriptor {
	var out []*Descriptor
	for _, d := range t.descriptors {
		if d.Transports.Has(Http) && len(d.Params) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// ByTransport returns every handler serving the given transport kind, in
// declaration order.
func (t *Table) ByTransport(kind TransportKind) []*Descriptor {
	var out []*Descriptor
	for _, d := range t.descriptors {
		if d.Transports.Has(kind) {
			out = append(out, d)
		}
	}
	return out
}
