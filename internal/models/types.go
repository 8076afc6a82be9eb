package models

import (
	"context"
	"reflect"
)

// Kind classifies the declared type of a parameter or property.
type Kind int

const (
	KindScalar Kind = iota
	KindCollection
	KindMap
	KindObject
	// KindContext marks the cancellation signal.
	KindContext
	// KindRequester marks the accessor exposing the underlying executor.
	KindRequester
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindCollection:
		return "collection"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	case KindContext:
		return "context"
	case KindRequester:
		return "requester"
	default:
		return "unknown"
	}
}

// TypeInfo describes the declared type of a member as far as validation cares.
type TypeInfo struct {
	Name        string
	Kind        Kind
	Nullable    bool
	ByReference bool
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// TypeOf derives TypeInfo from a Go type.
func TypeOf(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{Name: "any", Nullable: true}
	}
	info := TypeInfo{Name: t.String()}
	if t.Implements(contextType) {
		info.Kind = KindContext
		return info
	}
	for t.Kind() == reflect.Pointer {
		info.Nullable = true
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map:
		info.Kind = KindMap
		info.Nullable = true
	case reflect.Slice, reflect.Array:
		switch {
		case t.Elem().Kind() == reflect.Uint8:
			info.Kind = KindScalar
		case t.Kind() == reflect.Slice && IsPairSlice(t):
			info.Kind = KindMap
		default:
			info.Kind = KindCollection
		}
		info.Nullable = t.Kind() == reflect.Slice
	case reflect.Struct:
		info.Kind = KindObject
	case reflect.Interface:
		info.Kind = KindScalar
		info.Nullable = true
	default:
		info.Kind = KindScalar
	}
	return info
}

// IsPairSlice reports whether t is a slice of structs with string Name and
// Value fields. Such slices are ordered key/value lists.
func IsPairSlice(t reflect.Type) bool {
	if t.Kind() != reflect.Slice || t.Elem().Kind() != reflect.Struct {
		return false
	}
	for _, name := range []string{"Name", "Value"} {
		f, ok := t.Elem().FieldByName(name)
		if !ok || !f.IsExported() || f.Type.Kind() != reflect.String {
			return false
		}
	}
	return true
}
