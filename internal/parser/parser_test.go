package parser

import (
	"strings"
	"testing"

	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/validator"
)

func TestLoadOpenAPI(t *testing.T) {
	c, err := Load("testdata/pet-store.yaml")
	if err != nil {
		t.Fatalf("Failed to load contract: %v", err)
	}

	if c.Surface.Name != "SwaggerPetstore" {
		t.Errorf("Expected surface name SwaggerPetstore, got %s", c.Surface.Name)
	}
	if len(c.Servers) != 1 || c.Servers[0] != "http://petstore.swagger.io/v1" {
		t.Errorf("Expected server variables to be substituted, got %v", c.Servers)
	}
	if c.Surface.BaseAddress != "http://petstore.swagger.io/v1" {
		t.Errorf("Expected base address from first server, got %s", c.Surface.BaseAddress)
	}

	var names []string
	for _, op := range c.Surface.Operations {
		names = append(names, op.Name)
	}
	want := "listPets createPet showPetById PostLogin uploadPhoto"
	if got := strings.Join(names, " "); got != want {
		t.Errorf("Expected operations %q, got %q", want, got)
	}

	if res := validator.Validate(c.Surface); !res.Usable() {
		t.Errorf("Expected converted surface to be usable, got %v", res.Diagnostics)
	}
}

func TestOpenAPIParameters(t *testing.T) {
	c, err := Load("testdata/pet-store.yaml")
	if err != nil {
		t.Fatalf("Failed to load contract: %v", err)
	}

	list, _ := c.Surface.Operation("listPets")
	tests := []struct {
		param string
		role  models.Role
		kind  models.Kind
	}{
		{"limit", models.RoleQuery, models.KindScalar},
		{"filter", models.RoleQueryMap, models.KindMap},
		{"X-Request-Id", models.RoleHeader, models.KindScalar},
	}
	for i, tt := range tests {
		p := list.Parameters[i]
		if p.Name != tt.param || p.Binding().Role() != tt.role || p.Type.Kind != tt.kind {
			t.Errorf("parameter %d: expected %s %s %s, got %s %s %s", i, tt.param, tt.role, tt.kind, p.Name, p.Binding().Role(), p.Type.Kind)
		}
	}
	if c.Examples["listPets"]["limit"] != 20 {
		t.Errorf("Expected example limit 20, got %v", c.Examples["listPets"]["limit"])
	}
	if c.Schemas["listPets"]["X-Request-Id"].Format != "uuid" {
		t.Error("Expected header schema to be kept for generation")
	}

	show, _ := c.Surface.Operation("showPetById")
	if len(show.Parameters) != 2 {
		t.Fatalf("Expected path and query parameters without the cookie, got %d", len(show.Parameters))
	}
	if show.Parameters[0].Name != "petId" || show.Parameters[0].Binding().Role() != models.RolePath {
		t.Errorf("Expected inherited path parameter first, got %+v", show.Parameters[0])
	}
	if show.Parameters[1].Name != "petId_query" {
		t.Errorf("Expected clashing query parameter to be renamed, got %s", show.Parameters[1].Name)
	}
	if qb, ok := show.Parameters[1].Binding().(models.QueryBinding); !ok || qb.Name != "petId" {
		t.Errorf("Expected query binding keyed petId, got %+v", show.Parameters[1].Binding())
	}
}

func TestOpenAPIRequestBodies(t *testing.T) {
	c, err := Load("testdata/pet-store.yaml")
	if err != nil {
		t.Fatalf("Failed to load contract: %v", err)
	}

	tests := []struct {
		operation   string
		method      models.SerializationMethod
		contentType string
	}{
		{"createPet", models.Serialized, ""},
		{"PostLogin", models.URLEncoded, ""},
		{"uploadPhoto", models.Serialized, "image/png"},
	}
	for _, tt := range tests {
		op, ok := c.Surface.Operation(tt.operation)
		if !ok {
			t.Fatalf("operation %s not found", tt.operation)
		}
		body := op.Parameters[len(op.Parameters)-1]
		b, ok := body.Binding().(models.BodyBinding)
		if !ok {
			t.Fatalf("%s: expected body binding, got %T", tt.operation, body.Binding())
		}
		if m, _ := b.Serialization.Get(); m != tt.method {
			t.Errorf("%s: expected %s, got %s", tt.operation, tt.method, m)
		}
		var ct string
		for _, h := range op.Headers {
			if h.Name == "Content-Type" {
				ct = *h.Value
			}
		}
		if ct != tt.contentType {
			t.Errorf("%s: expected content type header %q, got %q", tt.operation, tt.contentType, ct)
		}
	}
}

func TestLoadContractDocument(t *testing.T) {
	c, err := Load("testdata/pets.yaml")
	if err != nil {
		t.Fatalf("Failed to load contract: %v", err)
	}

	s := c.Surface
	if s.BaseAddress != "https://pets.example.com" {
		t.Errorf("Expected base address from servers, got %q", s.BaseAddress)
	}
	if m, _ := s.Serialization.Body.Get(); m != models.URLEncoded {
		t.Errorf("Expected surface body default urlencoded, got %s", s.Serialization.Body)
	}
	if c.Properties["Tenant"] != "acme" {
		t.Errorf("Expected initial tenant, got %v", c.Properties["Tenant"])
	}
	if c.Examples["GetPet"]["id"] != 7 {
		t.Errorf("Expected example id 7, got %v", c.Examples["GetPet"]["id"])
	}

	get, _ := s.Operation("GetPet")
	if req, _ := get.Request(); req.Method != "GET" {
		t.Errorf("Expected method to be upper-cased, got %s", req.Method)
	}
	if !get.Parameters[1].IsCancellation() {
		t.Error("Expected ctx to be a cancellation parameter")
	}

	props := s.AllProperties()
	if !props[2].IsRequester() || props[2].Writable {
		t.Errorf("Expected read-only requester property, got %+v", props[2])
	}

	if res := validator.Validate(s); !res.Usable() {
		t.Errorf("Expected usable surface, got %v", res.Diagnostics)
	}
}

func TestParseContractErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "operations: []", "Document.Name"},
		{"unknown binding", "name: A\noperations:\n  - name: X\n    parameters:\n      - name: p\n        in: cookie", "oneof"},
		{"bad serialization", "name: A\nserialization:\n  body: xml", "oneof"},
		{"invalid yaml", "name: [", "decode"},
		{"swagger 2", "swagger: \"2.0\"", "not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseJSONContract(t *testing.T) {
	doc := `{"name": "Ping", "baseAddress": "http://h", "operations": [{"name": "Ping", "method": "HEAD"}]}`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(c.Surface.Operations) != 1 || c.Surface.Operations[0].Requests[0].Method != "HEAD" {
		t.Errorf("unexpected operations %+v", c.Surface.Operations)
	}
}

func TestLoadNotFound(t *testing.T) {
	if _, err := Load("nonexistent.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestDocumentSchema(t *testing.T) {
	s := DocumentSchema()
	if s == nil {
		t.Fatal("Expected schema")
	}
	data, err := s.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	for _, field := range []string{`"operations"`, `"allowReserved"`, `"requester"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Expected schema to mention %s", field)
		}
	}
}
