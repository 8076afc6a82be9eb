// Package generator produces sample argument values for contract operations,
// from OpenAPI schemas where available and from declared types otherwise.
package generator

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pb33f/libopenapi/datamodel/high/base"

	"github.com/moamenhredeen/restbind/internal/models"
)

// Generator generates test data from OpenAPI schemas
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a new generator instance
func NewGenerator() *Generator {
	return NewGeneratorWithSeed(time.Now().UnixNano())
}

// NewGeneratorWithSeed creates a generator with reproducible output
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// SampleArgs returns one value per parameter of op, keyed by parameter name.
// Examples win over schemas, schemas over the declared type. Cancellation
// parameters are left to the caller.
func (g *Generator) SampleArgs(op *models.Operation, examples map[string]any, schemas map[string]*base.Schema) map[string]any {
	args := make(map[string]any, len(op.Parameters))
	for i := range op.Parameters {
		p := &op.Parameters[i]
		if p.IsCancellation() {
			continue
		}
		if v, ok := examples[p.Name]; ok {
			args[p.Name] = v
			continue
		}
		if schema := schemas[p.Name]; schema != nil {
			if v, err := g.GenerateValue(schema); err == nil {
				args[p.Name] = v
				continue
			}
		}
		args[p.Name] = g.FromType(p.Type)
	}
	return args
}

// FromType generates a placeholder value for a declared type
func (g *Generator) FromType(t models.TypeInfo) any {
	switch t.Kind {
	case models.KindCollection:
		return []any{"item"}
	case models.KindMap, models.KindObject:
		return map[string]any{}
	case models.KindContext, models.KindRequester:
		return nil
	}
	switch strings.TrimPrefix(t.Name, "*") {
	case "int", "int32", "int64", "uint", "uint32", "uint64":
		return 1 + g.rng.Intn(100)
	case "float32", "float64":
		return g.rng.Float64() * 100
	case "bool":
		return true
	case "uuid", "uuid.UUID":
		return uuid.NewString()
	case "time.Time":
		return time.Now().UTC().Format(time.RFC3339)
	default:
		return "test"
	}
}

// GenerateValue generates a test value based on a schema
func (g *Generator) GenerateValue(schema *base.Schema) (any, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is nil")
	}

	// example, then default
	if schema.Example != nil {
		var v any
		if err := schema.Example.Decode(&v); err == nil {
			return v, nil
		}
	}
	if schema.Default != nil {
		var v any
		if err := schema.Default.Decode(&v); err == nil {
			return v, nil
		}
	}

	if len(schema.Type) > 0 {
		switch schema.Type[0] {
		case "string":
			return g.generateString(schema), nil
		case "integer", "number":
			return g.generateNumber(schema), nil
		case "boolean":
			return true, nil
		case "array":
			return g.generateArray(schema), nil
		case "object":
			return g.generateObject(schema), nil
		}
	}

	if schema.Format != "" {
		return g.generateFromFormat(schema.Format), nil
	}

	return "", nil
}

func (g *Generator) generateString(schema *base.Schema) string {
	if schema.Format != "" {
		if str, ok := g.generateFromFormat(schema.Format).(string); ok {
			return str
		}
	}

	if len(schema.Enum) > 0 && schema.Enum[0] != nil {
		return schema.Enum[0].Value
	}

	// patterns are not generated from
	if schema.Pattern != "" {
		return "test-string"
	}

	minLength := 0
	maxLength := 10
	if schema.MinLength != nil {
		minLength = int(*schema.MinLength)
	}
	if schema.MaxLength != nil {
		maxLength = int(*schema.MaxLength)
	}

	length := minLength
	if maxLength > minLength {
		length = minLength + g.rng.Intn(maxLength-minLength+1)
	}
	if length == 0 {
		length = 5
	}
	return strings.Repeat("a", length)
}

func (g *Generator) generateNumber(schema *base.Schema) any {
	isInt := len(schema.Type) > 0 && schema.Type[0] == "integer"
	lo, hi := 0.0, 100.0
	if schema.Minimum != nil {
		lo = *schema.Minimum
	}
	if schema.Maximum != nil {
		hi = *schema.Maximum
	}
	if hi < lo {
		hi = lo
	}

	value := lo + g.rng.Float64()*(hi-lo)
	if isInt {
		return int(value)
	}
	return value
}

func (g *Generator) generateArray(schema *base.Schema) []any {
	minItems := 0
	maxItems := 3
	if schema.MinItems != nil {
		minItems = int(*schema.MinItems)
	}
	if schema.MaxItems != nil {
		maxItems = int(*schema.MaxItems)
	}

	count := minItems
	if maxItems > minItems {
		count = minItems + g.rng.Intn(maxItems-minItems+1)
	}
	if count == 0 {
		count = 1
	}

	var items *base.Schema
	if schema.Items != nil && schema.Items.IsA() && schema.Items.A != nil {
		items = schema.Items.A.Schema()
	}

	result := make([]any, count)
	for i := range result {
		if items == nil {
			result[i] = "item"
			continue
		}
		result[i], _ = g.GenerateValue(items)
	}
	return result
}

// generateObject always fills required properties and fills optional ones at random
func (g *Generator) generateObject(schema *base.Schema) map[string]any {
	result := make(map[string]any)
	if schema.Properties == nil {
		return result
	}

	for pair := schema.Properties.First(); pair != nil; pair = pair.Next() {
		name := pair.Key()
		if !slices.Contains(schema.Required, name) && g.rng.Float64() <= 0.5 {
			continue
		}
		if propSchema := pair.Value().Schema(); propSchema != nil {
			result[name], _ = g.GenerateValue(propSchema)
		}
	}
	return result
}

func (g *Generator) generateFromFormat(format string) any {
	switch format {
	case "date":
		return time.Now().Format("2006-01-02")
	case "date-time":
		return time.Now().Format(time.RFC3339)
	case "email":
		return "test@example.com"
	case "uri":
		return "https://example.com"
	case "uuid":
		return uuid.NewString()
	case "binary", "byte":
		return "dGVzdA=="
	case "int32":
		return g.rng.Int31()
	case "int64":
		return g.rng.Int63()
	case "float":
		return g.rng.Float32()
	case "double":
		return g.rng.Float64()
	default:
		return "test-value"
	}
}
