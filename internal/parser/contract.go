package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/moamenhredeen/restbind/internal/models"
)

// Document is the on-disk contract format. JSON documents are read through
// the YAML decoder.
type Document struct {
	Name           string            `yaml:"name" json:"name" validate:"required" jsonschema:"description=Surface name"`
	Visibility     string            `yaml:"visibility,omitempty" json:"visibility,omitempty" validate:"omitempty,oneof=public package private" jsonschema:"enum=public,enum=package,enum=private"`
	BaseAddress    string            `yaml:"baseAddress,omitempty" json:"baseAddress,omitempty" validate:"omitempty,url"`
	BasePath       string            `yaml:"basePath,omitempty" json:"basePath,omitempty"`
	AllowAnyStatus *bool             `yaml:"allowAnyStatus,omitempty" json:"allowAnyStatus,omitempty"`
	Headers        []HeaderDoc       `yaml:"headers,omitempty" json:"headers,omitempty" validate:"dive"`
	Serialization  SerializationDoc  `yaml:"serialization,omitempty" json:"serialization,omitempty"`
	Properties     []PropertyDoc     `yaml:"properties,omitempty" json:"properties,omitempty" validate:"dive"`
	Operations     []OperationDoc    `yaml:"operations" json:"operations" validate:"dive"`
	Embeds         []*Document       `yaml:"embeds,omitempty" json:"embeds,omitempty" validate:"dive"`
	Servers        []string          `yaml:"servers,omitempty" json:"servers,omitempty" validate:"dive,url"`
}

// HeaderDoc is a fixed header on a surface or operation.
type HeaderDoc struct {
	Name  string  `yaml:"name" json:"name" validate:"required"`
	Value *string `yaml:"value" json:"value" jsonschema:"description=Header value; null removes the header"`
}

// SerializationDoc holds per-domain serialization defaults.
type SerializationDoc struct {
	Body  string `yaml:"body,omitempty" json:"body,omitempty" validate:"omitempty,oneof=tostring string serialized json urlencoded form"`
	Query string `yaml:"query,omitempty" json:"query,omitempty" validate:"omitempty,oneof=tostring string serialized json urlencoded form"`
	Path  string `yaml:"path,omitempty" json:"path,omitempty" validate:"omitempty,oneof=tostring string serialized json urlencoded form"`
}

// RequestDoc is one request binding.
type RequestDoc struct {
	Method string `yaml:"method" json:"method" validate:"required"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
}

// BindingDoc declares the role of a parameter or property.
type BindingDoc struct {
	In            string  `yaml:"in,omitempty" json:"in,omitempty" validate:"omitempty,oneof=query header path raw-query query-map body metadata context requester" jsonschema:"enum=query,enum=header,enum=path,enum=raw-query,enum=query-map,enum=body,enum=metadata,enum=context,enum=requester"`
	Key           string  `yaml:"key,omitempty" json:"key,omitempty" jsonschema:"description=Wire name; defaults to the member name"`
	Value         *string `yaml:"value,omitempty" json:"value,omitempty" jsonschema:"description=Default header value"`
	Format        string  `yaml:"format,omitempty" json:"format,omitempty"`
	Serialization string  `yaml:"serialization,omitempty" json:"serialization,omitempty" validate:"omitempty,oneof=tostring string serialized json urlencoded form"`
	AllowReserved bool    `yaml:"allowReserved,omitempty" json:"allowReserved,omitempty"`
}

// PropertyDoc is a surface property.
type PropertyDoc struct {
	Name       string `yaml:"name" json:"name" validate:"required"`
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
	Nullable   bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	ReadOnly   bool   `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	BindingDoc `yaml:",inline"`
	// Initial is the property value set before the first call.
	Initial any `yaml:"initial,omitempty" json:"initial,omitempty"`
}

// ParameterDoc is an operation parameter.
type ParameterDoc struct {
	Name       string `yaml:"name" json:"name" validate:"required"`
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
	Nullable   bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	BindingDoc `yaml:",inline"`
	Example    any `yaml:"example,omitempty" json:"example,omitempty"`
}

// OperationDoc is a surface operation. Method and Path are shorthand for a
// single entry in Requests.
type OperationDoc struct {
	Name           string           `yaml:"name" json:"name" validate:"required"`
	Method         string           `yaml:"method,omitempty" json:"method,omitempty"`
	Path           string           `yaml:"path,omitempty" json:"path,omitempty"`
	Requests       []RequestDoc     `yaml:"requests,omitempty" json:"requests,omitempty" validate:"dive"`
	Dispose        bool             `yaml:"dispose,omitempty" json:"dispose,omitempty"`
	AllowAnyStatus *bool            `yaml:"allowAnyStatus,omitempty" json:"allowAnyStatus,omitempty"`
	Headers        []HeaderDoc      `yaml:"headers,omitempty" json:"headers,omitempty" validate:"dive"`
	Serialization  SerializationDoc `yaml:"serialization,omitempty" json:"serialization,omitempty"`
	Parameters     []ParameterDoc   `yaml:"parameters,omitempty" json:"parameters,omitempty" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseContract decodes and converts a contract document. Structural problems
// with the document are reported here; binding rules are left to the
// validator package.
func ParseContract(data []byte) (*Contract, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode contract document: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid contract document: %w", describeValidation(err))
	}

	c := &Contract{
		Servers:    doc.Servers,
		Examples:   make(map[string]map[string]any),
		Properties: make(map[string]any),
	}
	s, err := c.convert(&doc, map[*Document]*models.Surface{})
	if err != nil {
		return nil, err
	}
	c.Surface = s
	if s.BaseAddress == "" && len(c.Servers) > 0 {
		s.BaseAddress = c.Servers[0]
	}
	return c, nil
}

func describeValidation(err error) error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	msgs := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", ve.Namespace(), ve.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (c *Contract) convert(doc *Document, seen map[*Document]*models.Surface) (*models.Surface, error) {
	if s, ok := seen[doc]; ok {
		return s, nil
	}
	s := &models.Surface{
		Name:        doc.Name,
		Visibility:  parseVisibility(doc.Visibility),
		BaseAddress: doc.BaseAddress,
		BasePath:    doc.BasePath,
		Headers:     headerBindings(doc.Headers),
	}
	seen[doc] = s

	if doc.AllowAnyStatus != nil {
		s.StatusPolicy = &models.StatusPolicy{AllowAny: *doc.AllowAnyStatus}
	}
	var err error
	if s.Serialization, err = serializationDefaults(doc.Serialization); err != nil {
		return nil, fmt.Errorf("surface %s: %w", doc.Name, err)
	}

	for _, e := range doc.Embeds {
		embedded, err := c.convert(e, seen)
		if err != nil {
			return nil, err
		}
		s.Embeds = append(s.Embeds, embedded)
	}

	for _, pd := range doc.Properties {
		p, err := convertProperty(pd)
		if err != nil {
			return nil, fmt.Errorf("property %s.%s: %w", doc.Name, pd.Name, err)
		}
		s.Properties = append(s.Properties, p)
		if pd.Initial != nil {
			c.Properties[pd.Name] = pd.Initial
		}
	}

	for _, od := range doc.Operations {
		op, err := c.convertOperation(od)
		if err != nil {
			return nil, fmt.Errorf("operation %s.%s: %w", doc.Name, od.Name, err)
		}
		s.Operations = append(s.Operations, op)
	}
	return s, nil
}

func (c *Contract) convertOperation(od OperationDoc) (models.Operation, error) {
	op := models.Operation{
		Name:    od.Name,
		Headers: headerBindings(od.Headers),
		Dispose: od.Dispose,
	}
	if od.Method != "" {
		op.Requests = append(op.Requests, models.Request{Method: strings.ToUpper(od.Method), Path: od.Path})
	}
	for _, r := range od.Requests {
		op.Requests = append(op.Requests, models.Request{Method: strings.ToUpper(r.Method), Path: r.Path})
	}
	if od.AllowAnyStatus != nil {
		op.StatusPolicy = &models.StatusPolicy{AllowAny: *od.AllowAnyStatus}
	}
	var err error
	if op.Serialization, err = serializationDefaults(od.Serialization); err != nil {
		return op, err
	}

	for _, pd := range od.Parameters {
		b, err := convertBinding(pd.BindingDoc)
		if err != nil {
			return op, fmt.Errorf("parameter %s: %w", pd.Name, err)
		}
		p := models.Parameter{Name: pd.Name, Type: typeInfo(pd.Type, pd.Nullable, pd.In)}
		if b != nil {
			p.Bindings = []models.Binding{b}
		}
		op.Parameters = append(op.Parameters, p)
		if pd.Example != nil {
			if c.Examples[od.Name] == nil {
				c.Examples[od.Name] = make(map[string]any)
			}
			c.Examples[od.Name][pd.Name] = pd.Example
		}
	}
	return op, nil
}

func convertProperty(pd PropertyDoc) (models.Property, error) {
	p := models.Property{
		Name:     pd.Name,
		Type:     typeInfo(pd.Type, pd.Nullable, pd.In),
		Readable: true,
		Writable: !pd.ReadOnly && pd.In != "requester",
	}
	b, err := convertBinding(pd.BindingDoc)
	if err != nil {
		return p, err
	}
	if b != nil {
		p.Bindings = []models.Binding{b}
	}
	return p, nil
}

// convertBinding returns nil for implicit query members and for the context
// and requester kinds, which are recognised by type.
func convertBinding(bd BindingDoc) (models.Binding, error) {
	override, err := parseOverride(bd.Serialization)
	if err != nil {
		return nil, err
	}
	switch bd.In {
	case "context", "requester":
		return nil, nil
	case "":
		if bd.Serialization == "" && bd.Key == "" && bd.Format == "" {
			return nil, nil
		}
		return models.QueryBinding{Name: bd.Key, Serialization: override, Format: bd.Format}, nil
	case "query":
		return models.QueryBinding{Name: bd.Key, Serialization: override, Format: bd.Format}, nil
	case "header":
		return models.HeaderBinding{Name: bd.Key, Value: bd.Value, Format: bd.Format}, nil
	case "path":
		return models.PathBinding{Name: bd.Key, Serialization: override, Format: bd.Format, AllowReserved: bd.AllowReserved}, nil
	case "raw-query":
		return models.RawQueryBinding{}, nil
	case "query-map":
		return models.QueryMapBinding{Serialization: override}, nil
	case "body":
		return models.BodyBinding{Serialization: override}, nil
	case "metadata":
		return models.RequestMetadataBinding{Key: bd.Key}, nil
	default:
		return nil, fmt.Errorf("unknown binding %q", bd.In)
	}
}

func headerBindings(docs []HeaderDoc) []models.HeaderBinding {
	var hs []models.HeaderBinding
	for _, h := range docs {
		hs = append(hs, models.HeaderBinding{Name: h.Name, Value: h.Value})
	}
	return hs
}

func serializationDefaults(sd SerializationDoc) (models.SerializationDefaults, error) {
	var out models.SerializationDefaults
	var err error
	if out.Body, err = parseOverride(sd.Body); err != nil {
		return out, err
	}
	if out.Query, err = parseOverride(sd.Query); err != nil {
		return out, err
	}
	if out.Path, err = parseOverride(sd.Path); err != nil {
		return out, err
	}
	return out, nil
}

func parseOverride(s string) (models.SerializationOverride, error) {
	if s == "" {
		return models.Unset, nil
	}
	m, err := models.ParseSerializationMethod(s)
	if err != nil {
		return models.Unset, err
	}
	return models.Use(m), nil
}

func parseVisibility(s string) models.Visibility {
	switch s {
	case "package":
		return models.VisibilityPackage
	case "private":
		return models.VisibilityPrivate
	default:
		return models.VisibilityPublic
	}
}

// typeInfo maps a document type name to TypeInfo. Array types are written
// "[]T" or "array"; maps "map" or "map[K]V".
func typeInfo(name string, nullable bool, in string) models.TypeInfo {
	info := models.TypeInfo{Name: name, Nullable: nullable}
	switch {
	case in == "context" || name == "context":
		info.Kind = models.KindContext
		if info.Name == "" {
			info.Name = "context.Context"
		}
	case in == "requester" || name == "requester":
		info.Kind = models.KindRequester
	case name == "array" || strings.HasPrefix(name, "[]"):
		info.Kind = models.KindCollection
	case name == "map" || strings.HasPrefix(name, "map["):
		info.Kind = models.KindMap
		info.Nullable = true
	case name == "object":
		info.Kind = models.KindObject
	default:
		info.Kind = models.KindScalar
		if info.Name == "" {
			info.Name = "string"
		}
	}
	return info
}

// DocumentSchema returns the JSON Schema of contract documents.
func DocumentSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: false,
		AllowAdditionalProperties:  false,
	}
	s := r.Reflect(&Document{})
	s.Title = "restbind contract"
	return s
}
