package validator

import (
	"slices"

	"github.com/moamenhredeen/restbind/internal/diagnostics"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/serialization"
)

func (r *run) properties() {
	r.pathProps = make(map[string]diagnostics.Location)
	r.metadataProps = make(map[string]diagnostics.Location)
	var requester *diagnostics.Location

	r.root.Walk(func(owner *models.Surface) {
		for i := range owner.Properties {
			p := &owner.Properties[i]
			loc := diagnostics.Location{Surface: owner.Name, Member: p.Name}

			if p.IsRequester() {
				if len(p.Bindings) > 0 {
					r.report(diagnostics.RequesterPropertyMustHaveNoBindings, loc, "requester property %q must not carry bindings", p.Name)
				}
				if !p.Readable || p.Writable {
					r.report(diagnostics.RequesterPropertyMustBeReadOnly, loc, "requester property %q must be read-only", p.Name)
				}
				if requester != nil {
					r.reportRelated(diagnostics.MultipleRequesterProperties, loc, *requester, "only one requester property is allowed")
				} else {
					first := loc
					requester = &first
				}
				continue
			}

			if len(p.Bindings) != 1 {
				r.report(diagnostics.PropertyMustHaveOneBinding, loc, "property %q must have exactly one binding, has %d", p.Name, len(p.Bindings))
			}
			if !p.Readable || !p.Writable {
				r.report(diagnostics.PropertyMustBeReadWrite, loc, "property %q must be readable and writable", p.Name)
			}
			for _, b := range p.Bindings {
				r.propertyBinding(p, b, loc)
			}
		}
	})

	for _, key := range r.basePathKeys {
		if _, ok := r.pathProps[key]; !ok {
			r.report(diagnostics.MissingPathPropertyForBasePath, diagnostics.Location{Surface: r.root.Name},
				"base path placeholder {%s} has no matching path property", key)
		}
	}

	used := make(map[string]bool)
	for _, key := range r.basePathKeys {
		used[key] = true
	}
	for _, op := range r.root.AllOperations() {
		for _, req := range op.Requests {
			keys, _ := models.Placeholders(req.Path)
			for _, key := range keys {
				used[key] = true
			}
		}
	}
	keys := make([]string, 0, len(r.pathProps))
	for key := range r.pathProps {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if !used[key] {
			r.report(diagnostics.PathPropertyUnused, r.pathProps[key], "path property key %q is not used by any path template", key)
		}
	}
}

func (r *run) propertyBinding(p *models.Property, b models.Binding, loc diagnostics.Location) {
	name := models.EffectiveName(b, p.Name)
	switch v := b.(type) {
	case models.HeaderBinding:
		if r.headerName(name, loc) && v.Value != nil && !p.Type.Nullable {
			r.report(diagnostics.HeaderPropertyWithValueMustBeNullable, loc,
				"header property %q declares a default value and must be nullable", p.Name)
		}
	case models.PathBinding:
		if name == "" {
			r.report(diagnostics.BindingNameEmpty, loc, "path binding name must not be empty")
			return
		}
		r.serializationOverride(serialization.Path, v.Serialization, loc)
		if first, dup := r.pathProps[name]; dup {
			r.reportRelated(diagnostics.DuplicatePathPropertyKey, loc, first, "path key %q is bound by more than one property", name)
			return
		}
		r.pathProps[name] = loc
	case models.QueryBinding:
		if name == "" {
			r.report(diagnostics.BindingNameEmpty, loc, "query binding name must not be empty")
			return
		}
		r.serializationOverride(serialization.Query, v.Serialization, loc)
	case models.RequestMetadataBinding:
		if name == "" {
			r.report(diagnostics.BindingNameEmpty, loc, "request metadata key must not be empty")
			return
		}
		if first, dup := r.metadataProps[name]; dup {
			r.reportRelated(diagnostics.DuplicateRequestMetadataPropertyKey, loc, first, "request metadata key %q is bound by more than one property", name)
			return
		}
		r.metadataProps[name] = loc
	default:
		r.report(diagnostics.BindingNotAllowedOnProperty, loc, "%s binding is not allowed on property %q", b.Role(), p.Name)
	}
}
