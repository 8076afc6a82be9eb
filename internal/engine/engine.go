// Package engine composes HTTP requests from request descriptors, sends them
// through a transport and maps the responses to results or errors.
package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/moamenhredeen/restbind/internal/models"
)

// Transport sends composed requests. Timeouts, retries, pooling and
// authentication are its business.
type Transport interface {
	Send(ctx context.Context, req *http.Request) (*http.Response, error)
	// BaseURL is the transport's configured base address, or nil.
	BaseURL() *url.URL
}

// Observation describes one finished call.
type Observation struct {
	Operation  string
	Method     string
	URL        *url.URL
	StatusCode int
	Err        error
	Duration   time.Duration
}

// Observer is notified after every dispatched request.
type Observer interface {
	Observe(o Observation)
}

// Engine is safe for concurrent use. Its serializers and observers are
// configuration and must not change once calls start.
type Engine struct {
	transport Transport
	log       zerolog.Logger

	body     BodySerializer
	query    QuerySerializer
	path     PathSerializer
	response ResponseDeserializer

	observers []Observer
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithBodySerializer replaces the structured body serializer
func WithBodySerializer(s BodySerializer) Option {
	return func(e *Engine) { e.body = s }
}

// WithQuerySerializer replaces the structured query serializer
func WithQuerySerializer(s QuerySerializer) Option {
	return func(e *Engine) { e.query = s }
}

// WithPathSerializer replaces the structured path serializer
func WithPathSerializer(s PathSerializer) Option {
	return func(e *Engine) { e.path = s }
}

// WithResponseDeserializer replaces the response deserializer
func WithResponseDeserializer(d ResponseDeserializer) Option {
	return func(e *Engine) { e.response = d }
}

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// New creates an engine sending through t
func New(t Transport, opts ...Option) *Engine {
	e := &Engine{
		transport: t,
		log:       zerolog.Nop(),
		body:      JSONSerializer{},
		query:     JSONSerializer{},
		path:      JSONSerializer{},
		response:  JSONSerializer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transport returns the underlying transport.
func (e *Engine) Transport() Transport {
	return e.transport
}

// Close releases the transport when it holds resources.
func (e *Engine) Close() error {
	if c, ok := e.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Compose builds the request for d without sending it.
func (e *Engine) Compose(d *models.RequestDescriptor) (*http.Request, error) {
	uri, err := e.composeURI(d)
	if err != nil {
		return nil, err
	}

	content, err := e.composeBody(d)
	if err != nil {
		return nil, err
	}

	headers := layerHeaders(d.SurfaceHeaders, d.PropertyHeaders, d.OperationHeaders, d.ParameterHeaders)
	envelope, content := headers.split(content)

	var body io.Reader
	if content != nil {
		body = content.Body
	}
	ctx := withMetadata(d.Ctx(), d.Metadata)
	req, err := http.NewRequestWithContext(ctx, d.Method, uri.String(), body)
	if err != nil {
		return nil, &URIError{URI: uri.String(), Err: err}
	}
	req.Header = envelope
	if content != nil {
		for name, values := range content.Header {
			req.Header[name] = values
		}
		if content.Length > 0 {
			req.ContentLength = content.Length
		}
	}
	return req, nil
}

// Send composes and sends d. Under the strict status policy a response that
// does not indicate success is returned as an *APIError; otherwise the caller
// owns the response body.
func (e *Engine) Send(d *models.RequestDescriptor) (*http.Response, error) {
	req, err := e.Compose(d)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("operation", operationName(d)).
		Str("method", req.Method).
		Str("uri", req.URL.String()).
		Msg("sending request")

	start := time.Now()
	resp, err := e.roundTrip(req)
	e.observe(d, req, resp, err, time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			e.log.Warn().Str("operation", operationName(d)).Err(err).Msg("request cancelled")
		}
		return nil, err
	}
	if resp.Request == nil {
		resp.Request = req
	}

	if d.AllowAnyStatus || isSuccess(resp.StatusCode) {
		return resp, nil
	}
	return nil, e.apiError(req, resp)
}

// roundTrip sends req and stops waiting once its context is done. A response
// arriving after cancellation is drained in the background.
func (e *Engine) roundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if ctx.Done() == nil {
		return e.transport.Send(ctx, req)
	}

	type result struct {
		resp *http.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := e.transport.Send(ctx, req)
		ch <- result{resp, err}
	}()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.resp != nil {
				r.resp.Body.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (e *Engine) apiError(req *http.Request, resp *http.Response) *APIError {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.log.Debug().Err(err).Msg("reading error response body")
	}
	return e.newAPIError(req, resp, data)
}

func (e *Engine) newAPIError(req *http.Request, resp *http.Response, data []byte) *APIError {
	return &APIError{
		Method:       req.Method,
		URI:          req.URL,
		StatusCode:   resp.StatusCode,
		Status:       resp.Status,
		Header:       resp.Header,
		RawBody:      string(data),
		response:     resp,
		deserializer: e.response,
	}
}

func (e *Engine) observe(d *models.RequestDescriptor, req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	if len(e.observers) == 0 {
		return
	}
	o := Observation{
		Operation: operationName(d),
		Method:    req.Method,
		URL:       req.URL,
		Err:       err,
		Duration:  elapsed,
	}
	if resp != nil {
		o.StatusCode = resp.StatusCode
	}
	for _, obs := range e.observers {
		obs.Observe(o)
	}
}

func operationName(d *models.RequestDescriptor) string {
	if d.Operation == nil {
		return ""
	}
	return d.Operation.Name
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
