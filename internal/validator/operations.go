package validator

import (
	"github.com/moamenhredeen/restbind/internal/diagnostics"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/serialization"
)

func (r *run) operations() {
	names := make(map[string]diagnostics.Location)
	var dispose *diagnostics.Location

	r.root.Walk(func(owner *models.Surface) {
		for i := range owner.Operations {
			op := &owner.Operations[i]
			loc := diagnostics.Location{Surface: owner.Name, Member: op.Name}

			if first, dup := names[op.Name]; dup {
				r.reportRelated(diagnostics.DuplicateOperationName, loc, first, "operation name %q is declared more than once", op.Name)
			} else {
				names[op.Name] = loc
			}

			if op.Dispose {
				if dispose != nil {
					r.reportRelated(diagnostics.MultipleDisposeOperations, loc, *dispose, "only one dispose operation is allowed")
				} else {
					first := loc
					dispose = &first
				}
				if len(op.Requests) > 0 || len(op.Parameters) > 0 {
					r.report(diagnostics.InvalidDisposeOperation, loc, "dispose operation %q must have no request binding and no parameters", op.Name)
				}
				continue
			}

			r.operation(op, loc)
		}
	})
}

func (r *run) operation(op *models.Operation, loc diagnostics.Location) {
	switch len(op.Requests) {
	case 0:
		r.report(diagnostics.OperationMustHaveRequestBinding, loc, "operation %q has no request binding", op.Name)
	case 1:
	default:
		r.report(diagnostics.OperationMustHaveOneRequestBinding, loc, "operation %q has %d request bindings, expected one", op.Name, len(op.Requests))
	}

	var placeholders []string
	templateOK := len(op.Requests) == 1
	for _, req := range op.Requests {
		if !validMethod(req.Method) {
			r.report(diagnostics.InvalidHTTPMethod, loc, "%q is not a valid HTTP method", req.Method)
		}
		keys, err := models.Placeholders(req.Path)
		if err != nil {
			r.report(diagnostics.MalformedPathTemplate, loc, "path %q: %v", req.Path, err)
			templateOK = false
			continue
		}
		placeholders = keys
	}

	for _, h := range op.Headers {
		r.declaredHeader(h, loc)
	}
	r.serializationDefaults(op.Serialization, loc)

	pathParams := make(map[string]diagnostics.Location)
	var pathOrder []string
	metadata := make(map[string]diagnostics.Location)
	var cancellation, body *diagnostics.Location

	for i := range op.Parameters {
		p := &op.Parameters[i]
		ploc := loc
		ploc.Parameter = p.Name

		if p.Type.ByReference {
			r.report(diagnostics.ParameterMustNotBeByReference, ploc, "parameter %q must not be passed by reference", p.Name)
		}

		if p.IsCancellation() {
			if cancellation != nil {
				r.reportRelated(diagnostics.MultipleCancellationParameters, ploc, *cancellation, "operation %q declares more than one cancellation parameter", op.Name)
			} else {
				first := ploc
				cancellation = &first
			}
			if len(p.Bindings) > 0 {
				r.report(diagnostics.CancellationParameterMustHaveNoBinding, ploc, "cancellation parameter %q must not carry bindings", p.Name)
			}
			continue
		}

		if len(p.Bindings) > 1 {
			if isQueryRawConflict(p.Bindings) {
				r.report(diagnostics.QueryConflictsWithRawQuery, ploc, "parameter %q cannot be both a query parameter and a raw query fragment", p.Name)
			} else {
				r.report(diagnostics.ParameterMustHaveAtMostOneBinding, ploc, "parameter %q has %d bindings, expected at most one", p.Name, len(p.Bindings))
			}
		}

		for _, b := range p.Bindings {
			name := models.EffectiveName(b, p.Name)
			switch v := b.(type) {
			case models.HeaderBinding:
				if r.headerName(name, ploc) && v.Value != nil {
					r.report(diagnostics.HeaderParameterMustNotHaveValue, ploc, "header parameter %q must not declare a fixed value", p.Name)
				}
			case models.PathBinding:
				if name == "" {
					r.report(diagnostics.BindingNameEmpty, ploc, "path binding name must not be empty")
					continue
				}
				r.serializationOverride(serialization.Path, v.Serialization, ploc)
				if first, dup := pathParams[name]; dup {
					r.reportRelated(diagnostics.DuplicatePathParameterKey, ploc, first, "path key %q is bound by more than one parameter", name)
					continue
				}
				pathParams[name] = ploc
				pathOrder = append(pathOrder, name)
			case models.QueryBinding:
				if name == "" {
					r.report(diagnostics.BindingNameEmpty, ploc, "query binding name must not be empty")
					continue
				}
				r.serializationOverride(serialization.Query, v.Serialization, ploc)
			case models.QueryMapBinding:
				if p.Type.Kind != models.KindMap {
					r.report(diagnostics.QueryMapParameterNotMapShaped, ploc, "query map parameter %q has type %s, which is not map-shaped", p.Name, p.Type.Name)
				}
				r.serializationOverride(serialization.Query, v.Serialization, ploc)
			case models.BodyBinding:
				if body != nil {
					r.reportRelated(diagnostics.MultipleBodyParameters, ploc, *body, "operation %q declares more than one body parameter", op.Name)
				} else {
					first := ploc
					body = &first
				}
				r.serializationOverride(serialization.Body, v.Serialization, ploc)
			case models.RequestMetadataBinding:
				if name == "" {
					r.report(diagnostics.BindingNameEmpty, ploc, "request metadata key must not be empty")
					continue
				}
				if first, dup := metadata[name]; dup {
					r.reportRelated(diagnostics.DuplicateRequestMetadataParameterKey, ploc, first, "request metadata key %q is bound by more than one parameter", name)
					continue
				}
				metadata[name] = ploc
				if prop, dup := r.metadataProps[name]; dup {
					r.reportRelated(diagnostics.RequestMetadataParameterDuplicatesPropertyKey, ploc, prop, "request metadata key %q is already bound by a property", name)
				}
			}
		}
	}

	if !templateOK {
		return
	}

	// path parameters may also fill base-path placeholders; path properties
	// may share a key with a parameter, in which case the parameter wins
	declared := make(map[string]bool, len(placeholders)+len(r.basePathKeys))
	for _, key := range r.basePathKeys {
		declared[key] = true
	}
	for _, key := range placeholders {
		declared[key] = true
		_, byParam := pathParams[key]
		_, byProp := r.pathProps[key]
		if !byParam && !byProp {
			r.report(diagnostics.MissingPathBindingForPlaceholder, loc, "placeholder {%s} has no matching path parameter or property", key)
		}
	}
	for _, key := range pathOrder {
		if !declared[key] {
			r.report(diagnostics.MissingPlaceholderForPathParameter, pathParams[key], "path parameter key %q has no matching placeholder", key)
		}
	}
}

func isQueryRawConflict(bindings []models.Binding) bool {
	if len(bindings) != 2 {
		return false
	}
	a, b := bindings[0].Role(), bindings[1].Role()
	return (a == models.RoleQuery && b == models.RoleRawQuery) || (a == models.RoleRawQuery && b == models.RoleQuery)
}

// validMethod reports whether m is an RFC 9110 token.
func validMethod(m string) bool {
	if m == "" {
		return false
	}
	for i := 0; i < len(m); i++ {
		c := m[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c < 0x80 && isTokenPunct(c):
		default:
			return false
		}
	}
	return true
}

func isTokenPunct(c byte) bool {
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
