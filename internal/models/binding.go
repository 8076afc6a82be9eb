package models

// Role identifies the declared purpose of a binding.
type Role int

const (
	RoleQuery Role = iota
	RoleHeader
	RolePath
	RoleRawQuery
	RoleQueryMap
	RoleBody
	RoleRequestMetadata
)

func (r Role) String() string {
	switch r {
	case RoleQuery:
		return "query"
	case RoleHeader:
		return "header"
	case RolePath:
		return "path"
	case RoleRawQuery:
		return "raw-query"
	case RoleQueryMap:
		return "query-map"
	case RoleBody:
		return "body"
	case RoleRequestMetadata:
		return "request-metadata"
	default:
		return "unknown"
	}
}

// Binding is the sealed sum type of binding roles attached to parameters,
// properties, operations and surfaces.
type Binding interface {
	Role() Role
	isBinding()
}

// HeaderBinding declares a request header. On surfaces and operations the
// Value is fixed; on parameters and properties it comes from the call.
type HeaderBinding struct {
	Name   string
	Value  *string
	Format string
}

// PathBinding fills a {name} placeholder of the path template.
type PathBinding struct {
	Name          string
	Serialization SerializationOverride
	Format        string
	// AllowReserved leaves reserved characters (such as '/') unescaped.
	AllowReserved bool
}

// QueryBinding adds a name=value pair to the query string.
type QueryBinding struct {
	Name          string
	Serialization SerializationOverride
	Format        string
}

// RawQueryBinding appends the value verbatim to the query string.
type RawQueryBinding struct{}

// QueryMapBinding expands a map-shaped value into query pairs.
type QueryMapBinding struct {
	Serialization SerializationOverride
}

// BodyBinding sends the value as the request body.
type BodyBinding struct {
	Serialization SerializationOverride
}

// RequestMetadataBinding attaches the value to the outgoing request under Key.
type RequestMetadataBinding struct {
	Key string
}

func (HeaderBinding) Role() Role          { return RoleHeader }
func (PathBinding) Role() Role            { return RolePath }
func (QueryBinding) Role() Role           { return RoleQuery }
func (RawQueryBinding) Role() Role        { return RoleRawQuery }
func (QueryMapBinding) Role() Role        { return RoleQueryMap }
func (BodyBinding) Role() Role            { return RoleBody }
func (RequestMetadataBinding) Role() Role { return RoleRequestMetadata }

func (HeaderBinding) isBinding()          {}
func (PathBinding) isBinding()            {}
func (QueryBinding) isBinding()           {}
func (RawQueryBinding) isBinding()        {}
func (QueryMapBinding) isBinding()        {}
func (BodyBinding) isBinding()            {}
func (RequestMetadataBinding) isBinding() {}

// EffectiveName returns the declared name of a named binding, falling back to
// the member's source name.
func EffectiveName(b Binding, sourceName string) string {
	var name string
	switch v := b.(type) {
	case HeaderBinding:
		name = v.Name
	case PathBinding:
		name = v.Name
	case QueryBinding:
		name = v.Name
	case RequestMetadataBinding:
		name = v.Key
	}
	if name == "" {
		return sourceName
	}
	return name
}

// HeaderValue is a convenience for building fixed header bindings.
func HeaderValue(v string) *string {
	return &v
}
