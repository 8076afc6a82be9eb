package tester

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/elnormous/contenttype"
	"github.com/goccy/go-json"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/models"
)

// Checker compares responses against the responses an OpenAPI operation
// declares. Without declarations only JSON well-formedness is checked.
type Checker struct{}

// NewChecker creates a new response checker
func NewChecker() *Checker {
	return &Checker{}
}

// Check returns the problems found in resp
func (c *Checker) Check(resp *engine.Response[any], declared *v3.Responses) []models.ResponseProblem {
	var problems []models.ResponseProblem
	if resp == nil {
		return []models.ResponseProblem{{Field: "response", Message: "response is nil"}}
	}

	actual, hasType := mediaType(resp.Header.Get("Content-Type"))
	isJSON := hasType && (actual.Subtype == "json" || strings.HasSuffix(actual.Subtype, "+json"))
	if isJSON && len(resp.RawBody) > 0 && !json.Valid(resp.RawBody) {
		problems = append(problems, models.ResponseProblem{Field: "body", Message: "response is not valid JSON"})
		isJSON = false
	}

	if declared == nil {
		return problems
	}

	def := findResponse(declared, resp.StatusCode)
	if def == nil {
		return append(problems, models.ResponseProblem{
			Field:   "status_code",
			Message: fmt.Sprintf("unexpected status code %d, not declared", resp.StatusCode),
		})
	}

	if def.Headers != nil {
		for pair := def.Headers.First(); pair != nil; pair = pair.Next() {
			h := pair.Value()
			if h != nil && h.Required && resp.Header.Get(pair.Key()) == "" {
				problems = append(problems, models.ResponseProblem{
					Field:   "header." + pair.Key(),
					Message: "missing required header " + pair.Key(),
				})
			}
		}
	}

	if def.Content == nil || def.Content.Len() == 0 || !hasType {
		return problems
	}

	var schema *base.Schema
	matched := false
	for pair := def.Content.First(); pair != nil; pair = pair.Next() {
		want, ok := mediaType(pair.Key())
		if !ok || !actual.Matches(want) {
			continue
		}
		matched = true
		if m := pair.Value(); m != nil && m.Schema != nil {
			schema = m.Schema.Schema()
		}
		break
	}
	if !matched {
		return append(problems, models.ResponseProblem{
			Field:   "content_type",
			Message: "unexpected content type " + actual.Type + "/" + actual.Subtype,
		})
	}

	if isJSON && schema != nil && len(resp.RawBody) > 0 {
		body, err := resp.Content()
		if err != nil {
			return append(problems, models.ResponseProblem{Field: "body", Message: err.Error()})
		}
		problems = append(problems, checkSchema("body", body, schema)...)
	}
	return problems
}

// findResponse prefers the exact status, then the status range, then default
func findResponse(declared *v3.Responses, status int) *v3.Response {
	if declared.Codes != nil {
		code := strconv.Itoa(status)
		statusRange := fmt.Sprintf("%dXX", status/100)
		var ranged *v3.Response
		for pair := declared.Codes.First(); pair != nil; pair = pair.Next() {
			switch pair.Key() {
			case code:
				return pair.Value()
			case statusRange, fmt.Sprintf("%dxx", status/100):
				ranged = pair.Value()
			}
		}
		if ranged != nil {
			return ranged
		}
	}
	return declared.Default
}

// checkSchema checks the value's JSON type and the required fields of objects
func checkSchema(field string, v any, schema *base.Schema) []models.ResponseProblem {
	if len(schema.Type) == 0 {
		return nil
	}
	var ok bool
	switch schema.Type[0] {
	case "object":
		ok = isType[map[string]any](v)
	case "array":
		ok = isType[[]any](v)
	case "string":
		ok = isType[string](v)
	case "integer", "number":
		ok = isType[float64](v)
	case "boolean":
		ok = isType[bool](v)
	default:
		ok = true
	}
	if !ok {
		return []models.ResponseProblem{{Field: field, Message: fmt.Sprintf("expected %s, got %T", schema.Type[0], v)}}
	}

	var problems []models.ResponseProblem
	if obj, isObj := v.(map[string]any); isObj {
		for _, name := range schema.Required {
			if _, exists := obj[name]; !exists {
				problems = append(problems, models.ResponseProblem{
					Field:   field + "." + name,
					Message: "missing required field " + name,
				})
			}
		}
	}
	return problems
}

func isType[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

func mediaType(s string) (contenttype.MediaType, bool) {
	if s == "" {
		return contenttype.MediaType{}, false
	}
	mt, err := contenttype.ParseMediaType(s)
	if err != nil {
		return contenttype.MediaType{}, false
	}
	return mt, true
}
