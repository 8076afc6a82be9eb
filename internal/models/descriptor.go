package models

import "context"

// HeaderEntry is one header declaration resolved for a call. A nil Value
// removes the header from lower-precedence layers.
type HeaderEntry struct {
	Name  string
	Value *string
}

// PathEntry is a path-bound value captured at call time.
type PathEntry struct {
	Name          string
	Value         any
	Method        SerializationMethod
	Format        string
	AllowReserved bool
}

// QueryEntry is a query-bound value captured at call time.
type QueryEntry struct {
	Name   string
	Value  any
	Method SerializationMethod
	Format string
}

// QueryMapEntry is a map-shaped value expanded into query pairs.
type QueryMapEntry struct {
	Name   string
	Value  any
	Method SerializationMethod
}

// BodyEntry is the request body value and its resolved serialization.
type BodyEntry struct {
	// Name is the declaring parameter, reported in argument errors.
	Name   string
	Value  any
	Method SerializationMethod
}

// MetadataEntry is a value attached to the outgoing request.
type MetadataEntry struct {
	Key   string
	Value any
}

// RequestDescriptor is the per-call snapshot handed to the composition
// engine. It is read-only once built.
type RequestDescriptor struct {
	Method string
	Path   string

	// BaseAddress and BasePath are captured from the surface; BaseAddress
	// may be empty to defer to the transport.
	BaseAddress string
	BasePath    string

	SurfaceHeaders   []HeaderEntry
	PropertyHeaders  []HeaderEntry
	OperationHeaders []HeaderEntry
	ParameterHeaders []HeaderEntry

	PathProperties  []PathEntry
	PathParameters  []PathEntry
	QueryProperties []QueryEntry
	QueryParameters []QueryEntry
	QueryMaps       []QueryMapEntry
	RawQueries      []string

	Body     *BodyEntry
	Metadata []MetadataEntry

	// Context is the cancellation signal forwarded from the call, if any.
	Context context.Context //nolint:containedctx // the descriptor carries the call's cancellation signal

	AllowAnyStatus bool

	// Operation is the declaring operation, passed to serializers.
	Operation *Operation
}

// Ctx returns the descriptor's context, or context.Background when none was declared.
func (d *RequestDescriptor) Ctx() context.Context {
	if d.Context == nil {
		return context.Background()
	}
	return d.Context
}
