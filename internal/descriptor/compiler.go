package descriptor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"

	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/models"
)

var (
	// ErrUnknownProperty is returned for property names the surface does not declare.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrReadOnlyProperty is returned when setting the requester property.
	ErrReadOnlyProperty = errors.New("property is read-only")
)

// Callable is a usable implementation of a contract surface.
type Callable interface {
	// Call invokes an operation with arguments given by parameter name.
	Call(ctx context.Context, operation string, args map[string]any) (*http.Response, error)
	SetProperty(name string, value any) error
	Property(name string) (any, error)
	// Close runs the surface's dispose operation.
	Close() error
}

// Compiler turns a contract surface into a Callable.
type Compiler interface {
	Compile(s *models.Surface) (Callable, error)
}

// Dynamic compiles surfaces into clients that build a descriptor per call
// and send it through Engine.
type Dynamic struct {
	Engine *engine.Engine
}

// Compile validates s and returns a client for it.
func (c Dynamic) Compile(s *models.Surface) (Callable, error) {
	b, err := New(s)
	if err != nil {
		return nil, err
	}
	return NewClient(b, c.Engine), nil
}

// Client invokes a surface's operations by name. Property values are kept on
// the client and captured into every descriptor.
type Client struct {
	builder *Builder
	engine  *engine.Engine

	mu    sync.RWMutex
	props map[string]any
}

// NewClient creates a client sending descriptors from b through e.
func NewClient(b *Builder, e *engine.Engine) *Client {
	return &Client{builder: b, engine: e, props: make(map[string]any)}
}

// SetProperty sets a bound property's value.
func (c *Client) SetProperty(name string, value any) error {
	p, err := c.property(name)
	if err != nil {
		return err
	}
	if p.IsRequester() {
		return fmt.Errorf("%w: %s", ErrReadOnlyProperty, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.props[name] = value
	return nil
}

// Property returns a property's value; the requester property returns the engine.
func (c *Client) Property(name string) (any, error) {
	p, err := c.property(name)
	if err != nil {
		return nil, err
	}
	if p.IsRequester() {
		return c.engine, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.props[name], nil
}

func (c *Client) property(name string) (*models.Property, error) {
	for _, p := range c.builder.Surface().AllProperties() {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
}

// Describe builds the descriptor Call would send.
func (c *Client) Describe(ctx context.Context, operation string, args map[string]any) (*models.RequestDescriptor, error) {
	c.mu.RLock()
	props := maps.Clone(c.props)
	c.mu.RUnlock()
	return c.builder.BuildNamed(ctx, operation, args, props)
}

// Call sends the operation through the engine. Calling the dispose operation
// closes the client and returns a nil response.
func (c *Client) Call(ctx context.Context, operation string, args map[string]any) (*http.Response, error) {
	if op, ok := c.builder.Surface().Operation(operation); ok && op.Dispose {
		return nil, c.Close()
	}
	d, err := c.Describe(ctx, operation, args)
	if err != nil {
		return nil, err
	}
	return c.engine.Send(d)
}

// Close releases the engine's transport.
func (c *Client) Close() error {
	return c.engine.Close()
}
