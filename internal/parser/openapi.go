package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/moamenhredeen/restbind/internal/models"
)

const formMediaType = "application/x-www-form-urlencoded"

// OpenAPI converts OpenAPI 3 specification documents into contracts
type OpenAPI struct {
	document libopenapi.Document
	model    *v3.Document
}

// NewOpenAPI parses an OpenAPI 3 document
func NewOpenAPI(data []byte) (*OpenAPI, error) {
	document, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if !strings.HasPrefix(document.GetVersion(), "3") {
		return nil, fmt.Errorf("unsupported OpenAPI version %q", document.GetVersion())
	}

	model, errs := document.BuildV3Model()
	if errs != nil {
		return nil, fmt.Errorf("failed to build v3 model: %v", errs)
	}
	return &OpenAPI{document: document, model: &model.Model}, nil
}

// ServerURLs returns the server URLs with variables replaced by their defaults
func (p *OpenAPI) ServerURLs() []string {
	urls := make([]string, 0, len(p.model.Servers))
	for _, server := range p.model.Servers {
		if server == nil || server.URL == "" {
			continue
		}
		u := server.URL
		if server.Variables != nil {
			for pair := server.Variables.First(); pair != nil; pair = pair.Next() {
				if v := pair.Value(); v != nil {
					u = strings.ReplaceAll(u, "{"+pair.Key()+"}", v.Default)
				}
			}
		}
		urls = append(urls, u)
	}
	return urls
}

// Contract builds a surface with one operation per path and method
func (p *OpenAPI) Contract() (*Contract, error) {
	c := &Contract{
		Servers:    p.ServerURLs(),
		Examples:   make(map[string]map[string]any),
		Schemas:    make(map[string]map[string]*base.Schema),
		Responses:  make(map[string]*v3.Responses),
		Properties: make(map[string]any),
	}

	s := &models.Surface{Name: "API"}
	if p.model.Info != nil && p.model.Info.Title != "" {
		s.Name = identifier(p.model.Info.Title)
	}
	if len(c.Servers) > 0 {
		if u, err := url.Parse(c.Servers[0]); err == nil && u.IsAbs() {
			s.BaseAddress = c.Servers[0]
		} else {
			s.BasePath = c.Servers[0]
		}
	}

	paths := p.model.Paths
	if paths == nil || paths.PathItems == nil {
		c.Surface = s
		return c, nil
	}

	for pair := paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()
		if item == nil {
			continue
		}

		for _, m := range pathMethods(item) {
			if m.op == nil {
				continue
			}
			op, err := c.convertOpenAPIOperation(path, m.method, item, m.op)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", m.method, path, err)
			}
			s.Operations = append(s.Operations, op)
		}
	}

	c.Surface = s
	return c, nil
}

type pathMethod struct {
	method string
	op     *v3.Operation
}

func pathMethods(item *v3.PathItem) []pathMethod {
	return []pathMethod{
		{"GET", item.Get},
		{"POST", item.Post},
		{"PUT", item.Put},
		{"PATCH", item.Patch},
		{"DELETE", item.Delete},
		{"HEAD", item.Head},
		{"OPTIONS", item.Options},
	}
}

func (c *Contract) convertOpenAPIOperation(path, method string, item *v3.PathItem, o *v3.Operation) (models.Operation, error) {
	name := o.OperationId
	if name == "" {
		name = identifier(strings.ToLower(method) + " " + path)
	}
	op := models.Operation{
		Name:     name,
		Requests: []models.Request{{Method: method, Path: path}},
	}
	examples := make(map[string]any)
	schemas := make(map[string]*base.Schema)

	// operation parameters override path-level ones with the same name and location
	params := mergeParameters(item.Parameters, o.Parameters)
	used := make(map[string]bool)
	for _, param := range params {
		var schema *base.Schema
		if param.Schema != nil {
			schema = param.Schema.Schema()
		}

		binding, ok := parameterBinding(param, schema)
		if !ok {
			continue
		}
		argName := param.Name
		if used[argName] {
			argName = param.Name + "_" + param.In
		}
		used[argName] = true

		op.Parameters = append(op.Parameters, models.Parameter{
			Name:     argName,
			Type:     schemaType(schema, param.Required == nil || !*param.Required),
			Bindings: []models.Binding{binding},
		})
		if schema != nil {
			schemas[argName] = schema
		}
		if v, ok := nodeValue(param.Example); ok {
			examples[argName] = v
		}
	}

	if rb := o.RequestBody; rb != nil && rb.Content != nil && rb.Content.Len() > 0 {
		contentType, media := preferredMedia(rb)
		var schema *base.Schema
		if media != nil && media.Schema != nil {
			schema = media.Schema.Schema()
		}

		body := models.BodyBinding{Serialization: models.Use(models.Serialized)}
		if contentType == formMediaType {
			body.Serialization = models.Use(models.URLEncoded)
		} else if contentType != "application/json" {
			op.Headers = append(op.Headers, models.HeaderBinding{Name: "Content-Type", Value: models.HeaderValue(contentType)})
		}

		argName := "body"
		for used[argName] {
			argName = "_" + argName
		}
		op.Parameters = append(op.Parameters, models.Parameter{
			Name:     argName,
			Type:     schemaType(schema, rb.Required == nil || !*rb.Required),
			Bindings: []models.Binding{body},
		})
		if schema != nil {
			schemas[argName] = schema
		}
		if media != nil {
			if v, ok := nodeValue(media.Example); ok {
				examples[argName] = v
			}
		}
	}

	if o.Responses != nil {
		c.Responses[name] = o.Responses
	}
	if len(examples) > 0 {
		c.Examples[name] = examples
	}
	if len(schemas) > 0 {
		c.Schemas[name] = schemas
	}
	return op, nil
}

func mergeParameters(pathLevel, opLevel []*v3.Parameter) []*v3.Parameter {
	key := func(p *v3.Parameter) string { return p.In + ":" + p.Name }
	overridden := make(map[string]bool)
	for _, p := range opLevel {
		if p != nil {
			overridden[key(p)] = true
		}
	}
	var merged []*v3.Parameter
	for _, p := range pathLevel {
		if p != nil && !overridden[key(p)] {
			merged = append(merged, p)
		}
	}
	for _, p := range opLevel {
		if p != nil {
			merged = append(merged, p)
		}
	}
	return merged
}

// parameterBinding maps a parameter location to a binding. Cookie
// parameters have no binding role and are skipped.
func parameterBinding(param *v3.Parameter, schema *base.Schema) (models.Binding, bool) {
	switch param.In {
	case "path":
		return models.PathBinding{Name: param.Name, AllowReserved: param.AllowReserved}, true
	case "query":
		if schemaIs(schema, "object") && (param.Explode == nil || *param.Explode) {
			return models.QueryMapBinding{}, true
		}
		b := models.QueryBinding{Name: param.Name}
		if param.Content != nil && param.Content.Len() > 0 {
			b.Serialization = models.Use(models.Serialized)
		}
		return b, true
	case "header":
		return models.HeaderBinding{Name: param.Name}, true
	default:
		return nil, false
	}
}

// preferredMedia prefers JSON, then forms, then the first declared media type
func preferredMedia(rb *v3.RequestBody) (string, *v3.MediaType) {
	var firstType string
	var first, form *v3.MediaType
	for pair := rb.Content.First(); pair != nil; pair = pair.Next() {
		ct := pair.Key()
		if strings.Contains(ct, "json") {
			return ct, pair.Value()
		}
		if ct == formMediaType && form == nil {
			form = pair.Value()
		}
		if firstType == "" {
			firstType, first = ct, pair.Value()
		}
	}
	if form != nil {
		return formMediaType, form
	}
	return firstType, first
}

func schemaIs(schema *base.Schema, typ string) bool {
	return schema != nil && len(schema.Type) > 0 && schema.Type[0] == typ
}

func schemaType(schema *base.Schema, optional bool) models.TypeInfo {
	info := models.TypeInfo{Name: "any", Kind: models.KindScalar, Nullable: optional}
	if schema == nil || len(schema.Type) == 0 {
		return info
	}
	switch schema.Type[0] {
	case "string":
		info.Name = "string"
	case "integer":
		info.Name = "int64"
	case "number":
		info.Name = "float64"
	case "boolean":
		info.Name = "bool"
	case "array":
		info.Name = "[]any"
		info.Kind = models.KindCollection
	case "object":
		info.Name = "map[string]any"
		info.Kind = models.KindMap
		info.Nullable = true
	}
	if schema.Nullable != nil && *schema.Nullable {
		info.Nullable = true
	}
	return info
}

type decoder interface {
	Decode(v any) error
}

// nodeValue decodes a YAML example node. The node type depends on the YAML
// library libopenapi is built with, so it is only used through Decode.
func nodeValue[N decoder](node N) (any, bool) {
	var zero N
	if any(node) == any(zero) {
		return nil, false
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9]+`)

// identifier turns free text into a CamelCase name
func identifier(s string) string {
	var b strings.Builder
	for _, part := range nonIdentifier.Split(s, -1) {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if b.Len() == 0 {
		return "API"
	}
	return b.String()
}
