// Package descriptor captures the arguments of one call on a validated
// contract surface into a request descriptor for the engine.
package descriptor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/serialization"
	"github.com/moamenhredeen/restbind/internal/validator"
)

var (
	// ErrUnknownOperation is returned for operation names the surface does not declare.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrDisposeOperation is returned when building a request for the dispose operation.
	ErrDisposeOperation = errors.New("dispose operation sends no request")
	// ErrUnknownArgument is returned for named arguments matching no parameter.
	ErrUnknownArgument = errors.New("unknown argument")
)

// Builder builds request descriptors for one usable surface.
type Builder struct {
	surface *models.Surface
}

// New validates s and returns a builder for it. An unusable surface is
// rejected with its diagnostics as the error.
func New(s *models.Surface) (*Builder, error) {
	if res := validator.Validate(s); !res.Usable() {
		return nil, res.Err()
	}
	return &Builder{surface: s}, nil
}

// NewCached is New with the validation result memoized in cache.
func NewCached(cache *validator.Cache, s *models.Surface) (*Builder, error) {
	if res := cache.Validate(s); !res.Usable() {
		return nil, res.Err()
	}
	return &Builder{surface: s}, nil
}

// Surface returns the surface the builder serves.
func (b *Builder) Surface() *models.Surface {
	return b.surface
}

// Build captures args, one per declared parameter in order, and the current
// property values into a descriptor.
func (b *Builder) Build(operation string, args []any, props map[string]any) (*models.RequestDescriptor, error) {
	op, err := b.operation(operation)
	if err != nil {
		return nil, err
	}
	if len(args) != len(op.Parameters) {
		return nil, fmt.Errorf("operation %s takes %d arguments, got %d", op.Name, len(op.Parameters), len(args))
	}

	req, _ := op.Request()
	d := &models.RequestDescriptor{
		Method:         req.Method,
		Path:           req.Path,
		BaseAddress:    b.surface.BaseAddress,
		BasePath:       b.surface.BasePath,
		AllowAnyStatus: allowAnyStatus(op, b.surface),
		Operation:      op,
	}
	for _, h := range b.surface.AllHeaders() {
		d.SurfaceHeaders = append(d.SurfaceHeaders, fixedHeader(h))
	}
	for _, h := range op.Headers {
		d.OperationHeaders = append(d.OperationHeaders, fixedHeader(h))
	}

	b.captureProperties(d, op, props)
	if err := b.captureParameters(d, op, args); err != nil {
		return nil, err
	}
	return d, nil
}

// BuildNamed is Build with arguments given by parameter name. Missing
// arguments are null; cancellation parameters receive ctx.
func (b *Builder) BuildNamed(ctx context.Context, operation string, args map[string]any, props map[string]any) (*models.RequestDescriptor, error) {
	op, err := b.operation(operation)
	if err != nil {
		return nil, err
	}

	positional := make([]any, len(op.Parameters))
	index := make(map[string]int, len(op.Parameters))
	for i := range op.Parameters {
		p := &op.Parameters[i]
		index[p.Name] = i
		if p.IsCancellation() {
			positional[i] = ctx
		}
	}
	for name, v := range args {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w %q for operation %s", ErrUnknownArgument, name, op.Name)
		}
		positional[i] = v
	}
	return b.Build(operation, positional, props)
}

func (b *Builder) operation(name string) (*models.Operation, error) {
	op, ok := b.surface.Operation(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	if op.Dispose {
		return nil, fmt.Errorf("%w: %s", ErrDisposeOperation, name)
	}
	return op, nil
}

func (b *Builder) captureProperties(d *models.RequestDescriptor, op *models.Operation, props map[string]any) {
	for _, p := range b.surface.AllProperties() {
		if p.IsRequester() {
			continue
		}
		value := capture(props[p.Name])
		name := models.EffectiveName(p.Binding(), p.Name)

		switch v := p.Binding().(type) {
		case models.HeaderBinding:
			if text, ok := serialization.FormatValue(value, v.Format); ok {
				d.PropertyHeaders = append(d.PropertyHeaders, models.HeaderEntry{Name: name, Value: &text})
			} else if v.Value != nil {
				d.PropertyHeaders = append(d.PropertyHeaders, fixedHeader(models.HeaderBinding{Name: name, Value: v.Value}))
			}
		case models.PathBinding:
			d.PathProperties = append(d.PathProperties, models.PathEntry{
				Name:          name,
				Value:         value,
				Method:        serialization.ForOperation(serialization.Path, v.Serialization, op, b.surface),
				Format:        v.Format,
				AllowReserved: v.AllowReserved,
			})
		case models.QueryBinding:
			d.QueryProperties = append(d.QueryProperties, models.QueryEntry{
				Name:   name,
				Value:  value,
				Method: serialization.ForOperation(serialization.Query, v.Serialization, op, b.surface),
				Format: v.Format,
			})
		case models.RequestMetadataBinding:
			d.Metadata = append(d.Metadata, models.MetadataEntry{Key: name, Value: value})
		}
	}
}

func (b *Builder) captureParameters(d *models.RequestDescriptor, op *models.Operation, args []any) error {
	for i := range op.Parameters {
		p := &op.Parameters[i]
		arg := args[i]

		if p.IsCancellation() {
			if arg == nil {
				continue
			}
			ctx, ok := arg.(context.Context)
			if !ok {
				return fmt.Errorf("parameter %s of %s expects a context.Context, got %T", p.Name, op.Name, arg)
			}
			d.Context = ctx
			continue
		}

		value := capture(arg)
		binding := p.Binding()
		name := models.EffectiveName(binding, p.Name)

		switch v := binding.(type) {
		case nil:
			d.QueryParameters = append(d.QueryParameters, models.QueryEntry{
				Name:   p.Name,
				Value:  value,
				Method: serialization.ForOperation(serialization.Query, models.Unset, op, b.surface),
			})
		case models.HeaderBinding:
			entry := models.HeaderEntry{Name: name}
			if text, ok := serialization.FormatValue(value, v.Format); ok {
				entry.Value = &text
			}
			d.ParameterHeaders = append(d.ParameterHeaders, entry)
		case models.PathBinding:
			d.PathParameters = append(d.PathParameters, models.PathEntry{
				Name:          name,
				Value:         value,
				Method:        serialization.ForOperation(serialization.Path, v.Serialization, op, b.surface),
				Format:        v.Format,
				AllowReserved: v.AllowReserved,
			})
		case models.QueryBinding:
			d.QueryParameters = append(d.QueryParameters, models.QueryEntry{
				Name:   name,
				Value:  value,
				Method: serialization.ForOperation(serialization.Query, v.Serialization, op, b.surface),
				Format: v.Format,
			})
		case models.RawQueryBinding:
			if text, ok := serialization.FormatValue(value, ""); ok {
				d.RawQueries = append(d.RawQueries, text)
			}
		case models.QueryMapBinding:
			d.QueryMaps = append(d.QueryMaps, models.QueryMapEntry{
				Name:   p.Name,
				Value:  value,
				Method: serialization.ForOperation(serialization.Query, v.Serialization, op, b.surface),
			})
		case models.BodyBinding:
			d.Body = &models.BodyEntry{
				Name:   p.Name,
				Value:  value,
				Method: serialization.ForOperation(serialization.Body, v.Serialization, op, b.surface),
			}
		case models.RequestMetadataBinding:
			d.Metadata = append(d.Metadata, models.MetadataEntry{Key: name, Value: value})
		}
	}
	return nil
}

func allowAnyStatus(op *models.Operation, s *models.Surface) bool {
	if op.StatusPolicy != nil {
		return op.StatusPolicy.AllowAny
	}
	if s.StatusPolicy != nil {
		return s.StatusPolicy.AllowAny
	}
	return false
}

func fixedHeader(h models.HeaderBinding) models.HeaderEntry {
	entry := models.HeaderEntry{Name: h.Name}
	if h.Value != nil {
		v := *h.Value
		entry.Value = &v
	}
	return entry
}

// capture copies slices and maps so later changes by the caller do not leak
// into a descriptor already handed to the engine.
func capture(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		c := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(c, rv)
		return c.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		c := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			c.SetMapIndex(iter.Key(), iter.Value())
		}
		return c.Interface()
	}
	return v
}
