// Package parser reads contract surfaces from contract documents and from
// OpenAPI 3 specifications.
package parser

import (
	"fmt"
	"os"

	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"gopkg.in/yaml.v3"

	"github.com/moamenhredeen/restbind/internal/models"
)

// Contract is a loaded surface together with the data the CLI needs to
// exercise it.
type Contract struct {
	Surface *models.Surface
	Servers []string

	// Examples holds example argument values per operation and parameter.
	Examples map[string]map[string]any
	// Schemas holds OpenAPI schemas per operation and parameter, used to
	// generate arguments that have no example.
	Schemas map[string]map[string]*base.Schema
	// Responses holds the declared OpenAPI responses per operation.
	Responses map[string]*v3.Responses
	// Properties holds initial property values.
	Properties map[string]any
}

// Load reads a contract from a file
func Load(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse detects the document kind and converts it. Documents with a top-level
// openapi key are OpenAPI specifications.
func Parse(data []byte) (*Contract, error) {
	var probe struct {
		OpenAPI string `yaml:"openapi"`
		Swagger string `yaml:"swagger"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	switch {
	case probe.Swagger != "":
		return nil, fmt.Errorf("swagger %s documents are not supported, convert to OpenAPI 3", probe.Swagger)
	case probe.OpenAPI != "":
		p, err := NewOpenAPI(data)
		if err != nil {
			return nil, err
		}
		return p.Contract()
	default:
		return ParseContract(data)
	}
}

// SetServer replaces the surface base address
func (c *Contract) SetServer(serverURL string) {
	if serverURL != "" {
		c.Surface.BaseAddress = serverURL
	}
}
