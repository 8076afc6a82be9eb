package models

// Request is a request-kind binding: the HTTP verb and optional path template
// an operation is sent with.
type Request struct {
	Method string
	Path   string
}

// StatusPolicy controls whether a non-success status raises an API error.
type StatusPolicy struct {
	AllowAny bool
}

// Operation represents one callable member of a contract surface
type Operation struct {
	Name string

	// Requests holds the declared request-kind bindings. A usable operation
	// has exactly one.
	Requests []Request

	Parameters    []Parameter
	Headers       []HeaderBinding
	StatusPolicy  *StatusPolicy
	Serialization SerializationDefaults

	// Dispose marks the lifecycle operation that releases the underlying
	// transport instead of sending a request.
	Dispose bool
}

// Request returns the single request-kind binding, or false when the
// operation declares zero or several.
func (o *Operation) Request() (Request, bool) {
	if len(o.Requests) != 1 {
		return Request{}, false
	}
	return o.Requests[0], true
}

// Parameter belongs to an operation and carries at most one binding role.
// A parameter without bindings is an implicit query parameter.
type Parameter struct {
	Name     string
	Type     TypeInfo
	Bindings []Binding
}

// Binding returns the single binding of the parameter, or nil when it has none.
func (p *Parameter) Binding() Binding {
	if len(p.Bindings) == 0 {
		return nil
	}
	return p.Bindings[0]
}

// IsCancellation reports whether the parameter carries the call's cancellation signal.
func (p *Parameter) IsCancellation() bool {
	return p.Type.Kind == KindContext
}

// Property is a settable/gettable member of a surface bound to one role.
type Property struct {
	Name     string
	Type     TypeInfo
	Readable bool
	Writable bool
	Bindings []Binding
}

// Binding returns the single binding of the property, or nil when it has none.
func (p *Property) Binding() Binding {
	if len(p.Bindings) == 0 {
		return nil
	}
	return p.Bindings[0]
}

// IsRequester reports whether the property exposes the underlying executor.
func (p *Property) IsRequester() bool {
	return p.Type.Kind == KindRequester
}
