package generator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pb33f/libopenapi/datamodel/high/base"

	"github.com/moamenhredeen/restbind/internal/models"
)

func TestGenerateValue(t *testing.T) {
	g := NewGeneratorWithSeed(1)

	tests := []struct {
		name   string
		schema *base.Schema
		check  func(any) bool
	}{
		{"string", &base.Schema{Type: []string{"string"}}, func(v any) bool { _, ok := v.(string); return ok }},
		{"integer", &base.Schema{Type: []string{"integer"}}, func(v any) bool { _, ok := v.(int); return ok }},
		{"number", &base.Schema{Type: []string{"number"}}, func(v any) bool { _, ok := v.(float64); return ok }},
		{"boolean", &base.Schema{Type: []string{"boolean"}}, func(v any) bool { _, ok := v.(bool); return ok }},
		{"object", &base.Schema{Type: []string{"object"}}, func(v any) bool { _, ok := v.(map[string]any); return ok }},
		{"untyped array", &base.Schema{Type: []string{"array"}}, func(v any) bool {
			arr, ok := v.([]any)
			return ok && len(arr) > 0 && arr[0] == "item"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := g.GenerateValue(tt.schema)
			if err != nil {
				t.Fatalf("Failed to generate value: %v", err)
			}
			if !tt.check(val) {
				t.Errorf("unexpected value %#v", val)
			}
		})
	}

	if _, err := g.GenerateValue(nil); err == nil {
		t.Error("Expected error for nil schema")
	}
}

func TestGenerateArrayItems(t *testing.T) {
	g := NewGeneratorWithSeed(1)
	maxItems := int64(2)
	schema := &base.Schema{
		Type:     []string{"array"},
		MaxItems: &maxItems,
		Items: &base.DynamicValue[*base.SchemaProxy, bool]{
			A: base.CreateSchemaProxy(&base.Schema{Type: []string{"integer"}}),
		},
	}

	val, err := g.GenerateValue(schema)
	if err != nil {
		t.Fatalf("Failed to generate value: %v", err)
	}
	arr := val.([]any)
	if len(arr) == 0 || len(arr) > 2 {
		t.Fatalf("Expected 1 to 2 items, got %d", len(arr))
	}
	for _, item := range arr {
		if _, ok := item.(int); !ok {
			t.Errorf("Expected integer items, got %T", item)
		}
	}
}

func TestGenerateNumberBounds(t *testing.T) {
	g := NewGeneratorWithSeed(1)
	lo, hi := 10.0, 12.0
	schema := &base.Schema{Type: []string{"integer"}, Minimum: &lo, Maximum: &hi}

	for range 20 {
		v, _ := g.GenerateValue(schema)
		if n := v.(int); n < 10 || n > 12 {
			t.Fatalf("Expected value within bounds, got %d", n)
		}
	}
}

func TestGenerateFromFormat(t *testing.T) {
	g := NewGenerator()

	tests := []struct {
		format string
		check  func(any) bool
	}{
		{"email", func(v any) bool { return v == "test@example.com" }},
		{"uuid", func(v any) bool {
			s, ok := v.(string)
			return ok && uuid.Validate(s) == nil
		}},
		{"date", func(v any) bool {
			s, ok := v.(string)
			return ok && len(s) == len("2006-01-02")
		}},
		{"int64", func(v any) bool { _, ok := v.(int64); return ok }},
	}

	for _, tt := range tests {
		result := g.generateFromFormat(tt.format)
		if !tt.check(result) {
			t.Errorf("Format %s did not generate valid value: %v", tt.format, result)
		}
	}
}

func TestSampleArgs(t *testing.T) {
	g := NewGeneratorWithSeed(1)
	op := &models.Operation{
		Name: "ListPets",
		Parameters: []models.Parameter{
			{Name: "limit", Type: models.TypeInfo{Name: "int", Kind: models.KindScalar}},
			{Name: "id", Type: models.TypeInfo{Name: "string", Kind: models.KindScalar}},
			{Name: "tags", Type: models.TypeInfo{Name: "[]string", Kind: models.KindCollection}},
			{Name: "trace", Type: models.TypeInfo{Name: "string", Kind: models.KindScalar}},
			{Name: "ctx", Type: models.TypeInfo{Kind: models.KindContext}},
		},
	}
	examples := map[string]any{"limit": 20}
	schemas := map[string]*base.Schema{"id": {Type: []string{"string"}, Format: "uuid"}}

	args := g.SampleArgs(op, examples, schemas)

	if args["limit"] != 20 {
		t.Errorf("Expected example value, got %v", args["limit"])
	}
	if id, ok := args["id"].(string); !ok || uuid.Validate(id) != nil {
		t.Errorf("Expected uuid from schema, got %v", args["id"])
	}
	if tags, ok := args["tags"].([]any); !ok || len(tags) != 1 {
		t.Errorf("Expected placeholder collection, got %v", args["tags"])
	}
	if args["trace"] != "test" {
		t.Errorf("Expected placeholder string, got %v", args["trace"])
	}
	if _, ok := args["ctx"]; ok {
		t.Error("Expected cancellation parameter to be skipped")
	}
}
