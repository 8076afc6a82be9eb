package engine

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrUnknownSerializationMethod signals a descriptor that names a method the
// engine cannot apply in that position. Validated contracts never produce it.
var ErrUnknownSerializationMethod = errors.New("unknown serialization method")

// ErrNoBaseAddress is wrapped by URIError when neither the call, the surface
// nor the transport supplies an absolute base.
var ErrNoBaseAddress = errors.New("no base address")

// APIError is returned for responses whose status does not indicate success
// when the strict status policy applies.
type APIError struct {
	Method     string
	URI        *url.URL
	StatusCode int
	Status     string
	Header     http.Header
	RawBody    string

	response     *http.Response
	deserializer ResponseDeserializer
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: response status %d does not indicate success", e.Method, e.URI, e.StatusCode)
}

// HasContent reports whether the error response carried a body.
func (e *APIError) HasContent() bool {
	return e.RawBody != ""
}

// DecodeContent deserializes the raw body into target on demand.
func (e *APIError) DecodeContent(target any) error {
	if e.deserializer == nil {
		return errors.New("no response deserializer")
	}
	return e.deserializer.Deserialize([]byte(e.RawBody), e.response, target)
}

// ContentAs deserializes the error body into a T.
func ContentAs[T any](e *APIError) (T, error) {
	var v T
	err := e.DecodeContent(&v)
	return v, err
}

// ArgumentError reports an argument whose value cannot be encoded as its
// binding requires.
type ArgumentError struct {
	Argument string
	Reason   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %q: %s", e.Argument, e.Reason)
}

// URIError reports a request URI that could not be composed.
type URIError struct {
	URI string
	Err error
}

func (e *URIError) Error() string {
	if e.URI == "" {
		return fmt.Sprintf("unparsable URI: %v", e.Err)
	}
	return fmt.Sprintf("unparsable URI %q: %v", e.URI, e.Err)
}

func (e *URIError) Unwrap() error { return e.Err }

// ContentTypeError is returned by the default deserializer for responses that
// are not JSON.
type ContentTypeError struct {
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("cannot deserialize content type %q", e.ContentType)
}
