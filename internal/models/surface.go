package models

// Visibility describes whether a surface can be implemented by generated code.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityPackage
	// VisibilityPrivate surfaces cannot be implemented outside their declaring scope.
	VisibilityPrivate
)

// Surface is the declared shape of a remote API.
type Surface struct {
	Name       string
	Visibility Visibility

	// BaseAddress is an optional absolute URI used when the call does not
	// supply one.
	BaseAddress string
	// BasePath is an optional template prefixed to every operation path.
	BasePath string

	Headers       []HeaderBinding
	StatusPolicy  *StatusPolicy
	Serialization SerializationDefaults

	Operations []Operation
	Properties []Property

	// Embeds lists surfaces whose operations, properties and headers are
	// inherited by this one.
	Embeds []*Surface
}

// AllOperations returns the operations of the surface and of every embedded
// surface, embedded ones first.
func (s *Surface) AllOperations() []*Operation {
	var ops []*Operation
	s.Walk(func(cur *Surface) {
		for i := range cur.Operations {
			ops = append(ops, &cur.Operations[i])
		}
	})
	return ops
}

// AllProperties returns the properties of the surface and of every embedded surface.
func (s *Surface) AllProperties() []*Property {
	var props []*Property
	s.Walk(func(cur *Surface) {
		for i := range cur.Properties {
			props = append(props, &cur.Properties[i])
		}
	})
	return props
}

// AllHeaders returns the surface-level headers, embedded ones first.
func (s *Surface) AllHeaders() []HeaderBinding {
	var headers []HeaderBinding
	s.Walk(func(cur *Surface) {
		headers = append(headers, cur.Headers...)
	})
	return headers
}

// Operation looks an operation up by name across the surface and its embeds.
func (s *Surface) Operation(name string) (*Operation, bool) {
	for _, op := range s.AllOperations() {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}

// Walk visits embedded surfaces depth-first before s, each at most once.
func (s *Surface) Walk(fn func(*Surface)) {
	seen := make(map[*Surface]bool)
	var visit func(*Surface)
	visit = func(cur *Surface) {
		if cur == nil || seen[cur] {
			return
		}
		seen[cur] = true
		for _, e := range cur.Embeds {
			visit(e)
		}
		fn(cur)
	}
	visit(s)
}
