package engine

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/serialization"
)

// Content is a request body with its own header set.
type Content struct {
	Body io.Reader
	// Length is the body size in bytes, or -1 when unknown.
	Length int64
	Header http.Header
}

// NewContent wraps a stream of unknown length
func NewContent(r io.Reader, contentType string) *Content {
	return newContent(r, -1, contentType)
}

// BytesContent wraps an in-memory payload
func BytesContent(data []byte, contentType string) *Content {
	return newContent(bytes.NewReader(data), int64(len(data)), contentType)
}

// StringContent wraps a text payload
func StringContent(s string, contentType string) *Content {
	return newContent(strings.NewReader(s), int64(len(s)), contentType)
}

func newContent(r io.Reader, length int64, contentType string) *Content {
	c := &Content{Body: r, Length: length, Header: make(http.Header)}
	if contentType != "" {
		c.Header.Set("Content-Type", contentType)
	}
	return c
}

func emptyContent() *Content {
	return &Content{Body: http.NoBody, Header: make(http.Header)}
}

// composeBody builds the request content from the body entry, if any. A nil
// body value sends no content.
func (e *Engine) composeBody(d *models.RequestDescriptor) (*Content, error) {
	entry := d.Body
	if entry == nil {
		return nil, nil
	}
	if _, ok := serialization.Deref(entry.Value); !ok {
		return nil, nil
	}
	if c, ok := passThrough(entry.Value); ok {
		return c, nil
	}

	switch entry.Method {
	case models.Serialized:
		return e.body.SerializeBody(entry.Value, SerializationContext{Operation: d.Operation})
	case models.URLEncoded:
		pairs, err := formPairs(entry.Name, entry.Value)
		if err != nil {
			return nil, err
		}
		return StringContent(encodePairs(pairs), "application/x-www-form-urlencoded"), nil
	default:
		return nil, fmt.Errorf("%w %s for body %q", ErrUnknownSerializationMethod, entry.Method, entry.Name)
	}
}

// passThrough recognises values that already are wire payloads.
func passThrough(v any) (*Content, bool) {
	switch val := v.(type) {
	case *Content:
		if val == nil {
			return nil, false
		}
		if val.Header == nil {
			val.Header = make(http.Header)
		}
		return val, true
	case []byte:
		return BytesContent(val, "application/octet-stream"), true
	case string:
		return StringContent(val, "text/plain; charset=utf-8"), true
	case io.Reader:
		if val == nil {
			return nil, false
		}
		return NewContent(val, "application/octet-stream"), true
	}
	return nil, false
}
