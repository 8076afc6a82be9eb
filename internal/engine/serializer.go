package engine

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"
	json "github.com/goccy/go-json"

	"github.com/moamenhredeen/restbind/internal/models"
)

// Pair is one name/value pair of a query string or form.
type Pair struct {
	Name  string
	Value string
}

// Pairs is an ordered list of pairs. It can be used as a query map or form
// body value when the order of entries matters.
type Pairs []Pair

// SerializationContext is handed to serializers with every value.
type SerializationContext struct {
	// Operation is the operation that declared the value.
	Operation *models.Operation
	// Format is the format string declared on the binding, if any.
	Format string
}

// BodySerializer turns a body value into request content.
type BodySerializer interface {
	SerializeBody(v any, sc SerializationContext) (*Content, error)
}

// QuerySerializer turns one query value into zero or more pairs.
type QuerySerializer interface {
	SerializeQuery(name string, v any, sc SerializationContext) ([]Pair, error)
}

// PathSerializer turns a path value into the unescaped text substituted for
// its placeholder.
type PathSerializer interface {
	SerializePath(name string, v any, sc SerializationContext) (string, error)
}

// ResponseDeserializer decodes a response body into target, which is a
// non-nil pointer.
type ResponseDeserializer interface {
	Deserialize(data []byte, resp *http.Response, target any) error
}

var jsonMediaType = contenttype.NewMediaType("application/json")

// JSONSerializer is the default structured serializer for every domain.
type JSONSerializer struct{}

var (
	_ BodySerializer       = JSONSerializer{}
	_ QuerySerializer      = JSONSerializer{}
	_ PathSerializer       = JSONSerializer{}
	_ ResponseDeserializer = JSONSerializer{}
)

// SerializeBody encodes v as a JSON document.
func (JSONSerializer) SerializeBody(v any, _ SerializationContext) (*Content, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return BytesContent(data, "application/json; charset=utf-8"), nil
}

// SerializeQuery encodes v as one pair. JSON strings are unquoted so that
// plain text values read naturally; null becomes the literal "null".
func (s JSONSerializer) SerializeQuery(name string, v any, sc SerializationContext) ([]Pair, error) {
	text, err := s.SerializePath(name, v, sc)
	if err != nil {
		return nil, err
	}
	return []Pair{{Name: name, Value: text}}, nil
}

// SerializePath encodes v as JSON text, unquoting JSON strings.
func (JSONSerializer) SerializePath(name string, v any, _ SerializationContext) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s, nil
		}
	}
	return string(data), nil
}

// Deserialize decodes a JSON response. An empty body leaves target untouched.
func (JSONSerializer) Deserialize(data []byte, resp *http.Response, target any) error {
	if len(data) == 0 {
		return nil
	}
	if resp != nil {
		if ct := resp.Header.Get("Content-Type"); ct != "" && !isJSON(ct) {
			return &ContentTypeError{ContentType: ct}
		}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isJSON accepts application/json and any structured +json subtype.
func isJSON(ct string) bool {
	mt, err := contenttype.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt.Matches(jsonMediaType) || strings.HasSuffix(mt.Subtype, "+json")
}

