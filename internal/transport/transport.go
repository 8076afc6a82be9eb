// Package transport sends composed requests over net/http.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/rs/zerolog"

	"github.com/moamenhredeen/restbind/internal/engine"
)

// Config holds transport configuration
type Config struct {
	BaseURL             string        `env:"RESTBIND_BASE_URL"`
	Timeout             time.Duration `env:"RESTBIND_TIMEOUT,default=30s"`
	MaxIdleConns        int           `env:"RESTBIND_MAX_IDLE_CONNS,default=100"`
	MaxIdleConnsPerHost int           `env:"RESTBIND_MAX_IDLE_CONNS_PER_HOST,default=10"`
	IdleConnTimeout     time.Duration `env:"RESTBIND_IDLE_CONN_TIMEOUT,default=90s"`
	DisableKeepAlive    bool          `env:"RESTBIND_DISABLE_KEEPALIVE"`
}

// DefaultConfig returns default transport configuration
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ConfigFromEnv loads the configuration from RESTBIND_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("decode transport config: %w", err)
	}
	return cfg, nil
}

// HTTPTransport implements engine.Transport with an http.Client
type HTTPTransport struct {
	client    *http.Client
	transport *http.Transport
	baseURL   *url.URL
	log       zerolog.Logger
}

var _ engine.Transport = (*HTTPTransport)(nil)

// Option configures an HTTPTransport
type Option func(*HTTPTransport)

// WithLogger logs every request with its request metadata at debug level
func WithLogger(l zerolog.Logger) Option {
	return func(t *HTTPTransport) { t.log = l }
}

// New creates a transport from cfg
func New(cfg Config, opts ...Option) (*HTTPTransport, error) {
	var baseURL *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("base URL %q is not absolute", cfg.BaseURL)
		}
		baseURL = u
	}

	defaults := DefaultConfig()
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaults.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = defaults.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = defaults.IdleConnTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DisableKeepAlives:   cfg.DisableKeepAlive,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	t := &HTTPTransport{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		transport: transport,
		baseURL:   baseURL,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Send executes req. Errors from the client are returned as they are.
func (t *HTTPTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Context() != ctx {
		req = req.WithContext(ctx)
	}
	if t.log.GetLevel() <= zerolog.DebugLevel {
		ev := t.log.Debug().Str("method", req.Method).Str("url", req.URL.String())
		for k, v := range engine.MetadataFromContext(ctx) {
			ev = ev.Interface("meta."+k, v)
		}
		ev.Msg("http request")
	}
	return t.client.Do(req)
}

// BaseURL returns the configured base URL, or nil
func (t *HTTPTransport) BaseURL() *url.URL {
	return t.baseURL
}

// Close drops idle connections
func (t *HTTPTransport) Close() error {
	t.transport.CloseIdleConnections()
	return nil
}
