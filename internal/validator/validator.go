// Package validator checks a contract surface for internal consistency before
// any call is made. It reports every violation it finds rather than stopping at
// the first one.
package validator

import (
	"net/url"
	"strings"

	"github.com/moamenhredeen/restbind/internal/diagnostics"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/serialization"
)

// Result is the outcome of validating one surface
type Result struct {
	Surface     *models.Surface
	Diagnostics diagnostics.Diagnostics
}

// Usable reports whether the surface has no error-severity diagnostics
func (r Result) Usable() bool {
	return !r.Diagnostics.HasErrors()
}

// Err returns the diagnostics as an error when the surface is not usable
func (r Result) Err() error {
	if r.Usable() {
		return nil
	}
	return r.Diagnostics
}

// Validator validates contract surfaces
type Validator struct {
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every check against s and collects the diagnostics
func (v *Validator) Validate(s *models.Surface) Result {
	r := &run{root: s}
	r.surface()
	r.properties()
	r.operations()
	return Result{Surface: s, Diagnostics: r.diags}
}

// Validate is a shorthand for NewValidator().Validate(s)
func Validate(s *models.Surface) Result {
	return NewValidator().Validate(s)
}

type run struct {
	root  *models.Surface
	diags diagnostics.Diagnostics

	// collected while checking properties, consulted by operations
	pathProps     map[string]diagnostics.Location
	metadataProps map[string]diagnostics.Location
	basePathKeys  []string
}

func (r *run) report(code diagnostics.Code, loc diagnostics.Location, format string, args ...any) {
	r.diags = append(r.diags, diagnostics.New(code, loc, format, args...))
}

func (r *run) reportRelated(code diagnostics.Code, loc, related diagnostics.Location, format string, args ...any) {
	r.diags = append(r.diags, diagnostics.New(code, loc, format, args...).WithRelated(related))
}

func (r *run) surface() {
	s := r.root
	s.Walk(func(cur *models.Surface) {
		loc := diagnostics.Location{Surface: cur.Name}
		if cur.Visibility == models.VisibilityPrivate {
			r.report(diagnostics.SurfaceNotAccessible, loc, "surface %q must be accessible to the implementation", cur.Name)
		}
		for _, h := range cur.Headers {
			r.declaredHeader(h, loc)
		}
		if cur == s {
			return
		}
		if cur.StatusPolicy != nil {
			r.report(diagnostics.StatusPolicyOnEmbeddedSurface, loc, "status-code policy is only allowed on the declaring surface %q", s.Name)
		}
		if cur.BasePath != "" {
			r.report(diagnostics.BasePathOnEmbeddedSurface, loc, "base path is only allowed on the declaring surface %q", s.Name)
		}
	})

	loc := diagnostics.Location{Surface: s.Name}
	if s.BaseAddress != "" {
		u, err := url.Parse(s.BaseAddress)
		if err != nil || !u.IsAbs() || u.Host == "" {
			r.report(diagnostics.BaseAddressNotAbsolute, loc, "base address %q is not an absolute URI", s.BaseAddress)
		}
	}
	if s.BasePath != "" {
		keys, err := models.Placeholders(s.BasePath)
		if err != nil {
			r.report(diagnostics.MalformedPathTemplate, loc, "base path %q: %v", s.BasePath, err)
		}
		r.basePathKeys = keys
	}
	r.serializationDefaults(s.Serialization, loc)
}

// declaredHeader checks a header fixed on a surface or operation.
func (r *run) declaredHeader(h models.HeaderBinding, loc diagnostics.Location) {
	if !r.headerName(h.Name, loc) {
		return
	}
	if h.Value == nil {
		r.report(diagnostics.DeclaredHeaderMustHaveValue, loc, "header %q must declare a value", h.Name)
	}
}

// headerName reports malformed header names and returns whether the name is usable.
func (r *run) headerName(name string, loc diagnostics.Location) bool {
	if name == "" {
		r.report(diagnostics.BindingNameEmpty, loc, "header name must not be empty")
		return false
	}
	if strings.Contains(name, ":") {
		r.report(diagnostics.HeaderNameContainsColon, loc, "header name %q must not contain ':'", name)
		return false
	}
	return true
}

func (r *run) serializationDefaults(d models.SerializationDefaults, loc diagnostics.Location) {
	r.serializationOverride(serialization.Body, d.Body, loc)
	r.serializationOverride(serialization.Query, d.Query, loc)
	r.serializationOverride(serialization.Path, d.Path, loc)
}

func (r *run) serializationOverride(domain serialization.Domain, o models.SerializationOverride, loc diagnostics.Location) {
	m, ok := o.Get()
	if !ok || domain.Allows(m) {
		return
	}
	r.report(diagnostics.InvalidSerializationMethod, loc, "serialization method %s is not valid for %s values", m, domain)
}
