package models

import "fmt"

// SerializationMethod is a concrete way of turning a value into wire text.
type SerializationMethod int

const (
	// ToString converts values with their string representation.
	ToString SerializationMethod = iota + 1
	// Serialized delegates to a pluggable structured serializer.
	Serialized
	// URLEncoded encodes a map-shaped body as a form.
	URLEncoded
)

func (m SerializationMethod) String() string {
	switch m {
	case ToString:
		return "tostring"
	case Serialized:
		return "serialized"
	case URLEncoded:
		return "urlencoded"
	default:
		return fmt.Sprintf("SerializationMethod(%d)", int(m))
	}
}

// ParseSerializationMethod maps the document spelling of a method to its value.
func ParseSerializationMethod(s string) (SerializationMethod, error) {
	switch s {
	case "tostring", "string":
		return ToString, nil
	case "serialized", "json":
		return Serialized, nil
	case "urlencoded", "form":
		return URLEncoded, nil
	default:
		return 0, fmt.Errorf("unknown serialization method %q", s)
	}
}

// SerializationOverride is an optional serialization method. The zero value
// is unset, which is distinct from explicitly choosing any method.
type SerializationOverride struct {
	method SerializationMethod
	set    bool
}

// Unset is the override that defers to the next level.
var Unset = SerializationOverride{}

// Use returns an override explicitly set to m.
func Use(m SerializationMethod) SerializationOverride {
	return SerializationOverride{method: m, set: true}
}

// Get returns the method and whether it was set.
func (o SerializationOverride) Get() (SerializationMethod, bool) {
	return o.method, o.set
}

// IsSet reports whether the override names a method.
func (o SerializationOverride) IsSet() bool { return o.set }

func (o SerializationOverride) String() string {
	if !o.set {
		return "unset"
	}
	return o.method.String()
}

// SerializationDefaults groups the overrides declared on a surface or operation.
type SerializationDefaults struct {
	Body  SerializationOverride
	Query SerializationOverride
	Path  SerializationOverride
}
