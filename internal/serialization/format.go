package serialization

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// FormatValue converts v to its wire string representation. The optional
// format is a time layout for time values, a fmt verb string (containing '%')
// for anything else, or passed to a Format(string) string method when the
// value has one. It returns false for nil values.
func FormatValue(v any, format string) (string, bool) {
	v, ok := Deref(v)
	if !ok {
		return "", false
	}

	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	case bool:
		return strconv.FormatBool(val), true
	case time.Time:
		if format == "" {
			format = time.RFC3339
		}
		return val.Format(format), true
	case time.Duration:
		return val.String(), true
	}

	if format != "" {
		if f, ok := v.(interface{ Format(string) string }); ok {
			return f.Format(format), true
		}
		if strings.Contains(format, "%") {
			return fmt.Sprintf(format, v), true
		}
	}

	switch val := v.(type) {
	case fmt.Stringer:
		return val.String(), true
	case encoding.TextMarshaler:
		if text, err := val.MarshalText(); err == nil {
			return string(text), true
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	}
	return fmt.Sprint(v), true
}

// Deref follows pointers and reports false when v is nil or a nil pointer,
// map, slice or interface.
func Deref(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		if rv.Kind() == reflect.Pointer && pointerOnlyStringer(rv) {
			return rv.Interface(), true
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil, false
		}
	}
	return rv.Interface(), true
}

// pointerOnlyStringer reports whether String is declared on the pointer
// receiver, in which case dereferencing would lose it.
func pointerOnlyStringer(rv reflect.Value) bool {
	stringer := reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
	return rv.Type().Implements(stringer) && !rv.Type().Elem().Implements(stringer)
}

// IsCollection reports whether v expands to several values: slices and arrays
// other than byte slices.
func IsCollection(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// Elements returns the elements of a collection value as a slice of any.
func Elements(v any) []any {
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
