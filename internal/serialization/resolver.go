// Package serialization resolves the serialization method used for a value
// from the overrides declared at each level of a contract.
package serialization

import "github.com/moamenhredeen/restbind/internal/models"

// Domain is one of the independent serialization chains.
type Domain int

const (
	Body Domain = iota
	Query
	Path
)

func (d Domain) String() string {
	switch d {
	case Body:
		return "body"
	case Query:
		return "query"
	case Path:
		return "path"
	default:
		return "unknown"
	}
}

// Default returns the global default method of the domain.
func (d Domain) Default() models.SerializationMethod {
	if d == Body {
		return models.Serialized
	}
	return models.ToString
}

// Allows reports whether m is meaningful in the domain.
func (d Domain) Allows(m models.SerializationMethod) bool {
	switch m {
	case models.ToString:
		return d == Query || d == Path
	case models.Serialized:
		return true
	case models.URLEncoded:
		return d == Body
	default:
		return false
	}
}

// Resolve returns the first set override among value, operation and surface,
// falling back to the domain default.
func Resolve(d Domain, value, operation, surface models.SerializationOverride) models.SerializationMethod {
	for _, o := range []models.SerializationOverride{value, operation, surface} {
		if m, ok := o.Get(); ok {
			return m
		}
	}
	return d.Default()
}

// Level picks the override of the domain from a defaults group.
func (d Domain) Level(defaults models.SerializationDefaults) models.SerializationOverride {
	switch d {
	case Body:
		return defaults.Body
	case Query:
		return defaults.Query
	default:
		return defaults.Path
	}
}

// ForOperation resolves a value-level override against an operation and its surface.
func ForOperation(d Domain, value models.SerializationOverride, op *models.Operation, s *models.Surface) models.SerializationMethod {
	var opLevel, surfaceLevel models.SerializationOverride
	if op != nil {
		opLevel = d.Level(op.Serialization)
	}
	if s != nil {
		surfaceLevel = d.Level(s.Serialization)
	}
	return Resolve(d, value, opLevel, surfaceLevel)
}
