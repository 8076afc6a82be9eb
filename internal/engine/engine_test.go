package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moamenhredeen/restbind/internal/models"
)

// funcTransport adapts a function to Transport without a base address.
type funcTransport func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f funcTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

func (f funcTransport) BaseURL() *url.URL { return nil }

type baseTransport struct {
	base *url.URL
}

func (t baseTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return nil, errors.New("not implemented")
}

func (t baseTransport) BaseURL() *url.URL { return t.base }

// clientTransport sends through an http.Client, like the real transport.
type clientTransport struct {
	client *http.Client
}

func (t clientTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}

func (t clientTransport) BaseURL() *url.URL { return nil }

func createMockServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/pets/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"name":"Fluffy"}`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("err"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"title":"boom","status":500}`))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Content-Type", r.Header.Get("Content-Type"))
		w.Write(body)
	})
	return httptest.NewServer(mux)
}

type pet struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
}

func TestSendStatusPolicy(t *testing.T) {
	server := createMockServer()
	defer server.Close()
	e := New(clientTransport{client: server.Client()})

	t.Run("strict policy raises API error", func(t *testing.T) {
		_, err := e.Send(&models.RequestDescriptor{Method: "GET", BaseAddress: server.URL, Path: "missing"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", apiErr.StatusCode)
		}
		if apiErr.RawBody != "err" {
			t.Errorf("expected raw body %q, got %q", "err", apiErr.RawBody)
		}
		if apiErr.Method != "GET" || apiErr.URI.Path != "/missing" {
			t.Errorf("unexpected request info %s %s", apiErr.Method, apiErr.URI)
		}
	})

	t.Run("allow-any policy returns the response", func(t *testing.T) {
		resp, err := e.Send(&models.RequestDescriptor{Method: "GET", BaseAddress: server.URL, Path: "missing", AllowAnyStatus: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", resp.StatusCode)
		}
	})
}

func TestAPIErrorContent(t *testing.T) {
	server := createMockServer()
	defer server.Close()
	e := New(clientTransport{client: server.Client()})

	err := e.Exec(&models.RequestDescriptor{Method: "POST", BaseAddress: server.URL, Path: "broken"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.HasContent() {
		t.Fatal("expected error content")
	}
	p, err := ContentAs[problem](apiErr)
	if err != nil {
		t.Fatalf("ContentAs failed: %v", err)
	}
	if p.Title != "boom" || p.Status != 500 {
		t.Errorf("unexpected problem %+v", p)
	}
}

func TestDecode(t *testing.T) {
	server := createMockServer()
	defer server.Close()
	e := New(clientTransport{client: server.Client()})
	d := &models.RequestDescriptor{Method: "GET", BaseAddress: server.URL, Path: "pets/1"}

	p, err := Decode[pet](e, d)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.ID != 1 || p.Name != "Fluffy" {
		t.Errorf("unexpected pet %+v", p)
	}

	raw, err := Decode[string](e, d)
	if err != nil {
		t.Fatalf("Decode string failed: %v", err)
	}
	if raw != `{"id":1,"name":"Fluffy"}` {
		t.Errorf("expected raw body, got %q", raw)
	}

	text, err := e.SendString(d)
	if err != nil || text != raw {
		t.Errorf("SendString = %q, %v", text, err)
	}
}

func TestDecodeRejectsNonJSON(t *testing.T) {
	server := createMockServer()
	defer server.Close()
	e := New(clientTransport{client: server.Client()})

	_, err := Decode[pet](e, &models.RequestDescriptor{
		Method:      "POST",
		BaseAddress: server.URL,
		Path:        "echo",
		Body:        &models.BodyEntry{Value: `{"id":1}`, Method: models.Serialized},
	})
	var ctErr *ContentTypeError
	if !errors.As(err, &ctErr) {
		t.Fatalf("expected ContentTypeError, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	server := createMockServer()
	defer server.Close()
	e := New(clientTransport{client: server.Client()})

	resp, err := Fetch[pet](e, &models.RequestDescriptor{Method: "GET", BaseAddress: server.URL, Path: "broken"})
	if err != nil {
		t.Fatalf("expected no error from Fetch, got %v", err)
	}
	if resp.IsSuccess() {
		t.Error("expected failing status")
	}
	if resp.Error == nil || resp.Error.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected API error on the response, got %v", resp.Error)
	}

	resp, err = Fetch[pet](e, &models.RequestDescriptor{Method: "GET", BaseAddress: server.URL, Path: "pets/1"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if resp.Error != nil {
		t.Errorf("expected no API error, got %v", resp.Error)
	}
	p, err := resp.Content()
	if err != nil || p.Name != "Fluffy" {
		t.Errorf("Content = %+v, %v", p, err)
	}
}

func TestSendFormBody(t *testing.T) {
	server := createMockServer()
	defer server.Close()
	e := New(clientTransport{client: server.Client()})

	resp, err := e.Send(&models.RequestDescriptor{
		Method:      "POST",
		BaseAddress: server.URL,
		Path:        "echo",
		Body: &models.BodyEntry{
			Name:   "form",
			Value:  map[string]any{"a": "1 2", "b": []string{"x", "y"}},
			Method: models.URLEncoded,
		},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "a=1+2&b=x&b=y" {
		t.Errorf("expected form body %q, got %q", "a=1+2&b=x&b=y", body)
	}
	if ct := resp.Header.Get("X-Content-Type"); ct != "application/x-www-form-urlencoded" {
		t.Errorf("expected form content type, got %q", ct)
	}
}

func TestSendNilBody(t *testing.T) {
	server := createMockServer()
	defer server.Close()
	e := New(clientTransport{client: server.Client()})

	for _, method := range []models.SerializationMethod{models.Serialized, models.URLEncoded} {
		t.Run(method.String(), func(t *testing.T) {
			var missing *pet
			resp, err := e.Send(&models.RequestDescriptor{
				Method:      "POST",
				BaseAddress: server.URL,
				Path:        "echo",
				Body:        &models.BodyEntry{Name: "pet", Value: missing, Method: method},
			})
			if err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if len(body) != 0 {
				t.Errorf("expected empty body, got %q", body)
			}
			if ct := resp.Header.Get("X-Content-Type"); ct != "" {
				t.Errorf("expected no content type, got %q", ct)
			}
		})
	}
}

func TestCancellationReleasesCaller(t *testing.T) {
	release := make(chan struct{})
	var closed sync.WaitGroup
	closed.Add(1)
	tr := funcTransport(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		<-release
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       closeNotifier{Reader: strings.NewReader("late"), done: closed.Done},
		}, nil
	})
	e := New(tr)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := e.Send(&models.RequestDescriptor{Method: "GET", BaseAddress: "http://h", Context: ctx})
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("caller was not released after cancellation")
	}

	close(release)
	done := make(chan struct{})
	go func() {
		closed.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("late response body was not closed")
	}
}

type closeNotifier struct {
	io.Reader
	done func()
}

func (c closeNotifier) Close() error {
	c.done()
	return nil
}

func TestTransportErrorIsUnchanged(t *testing.T) {
	errNetwork := errors.New("connection refused")
	e := New(funcTransport(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return nil, errNetwork
	}))

	_, err := e.Send(&models.RequestDescriptor{Method: "GET", BaseAddress: "http://h"})
	if err != errNetwork {
		t.Errorf("expected transport error unchanged, got %v", err)
	}
}

func TestUnknownSerializationMethod(t *testing.T) {
	e := New(funcTransport(nil))
	_, err := e.Compose(&models.RequestDescriptor{
		Method:      "POST",
		BaseAddress: "http://h",
		Body:        &models.BodyEntry{Name: "body", Value: map[string]int{"a": 1}, Method: models.ToString},
	})
	if !errors.Is(err, ErrUnknownSerializationMethod) {
		t.Errorf("expected ErrUnknownSerializationMethod, got %v", err)
	}
}

func TestFormBodyRejectsNonMap(t *testing.T) {
	e := New(funcTransport(nil))
	_, err := e.Compose(&models.RequestDescriptor{
		Method:      "POST",
		BaseAddress: "http://h",
		Body:        &models.BodyEntry{Name: "count", Value: 3, Method: models.URLEncoded},
	})
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
	if argErr.Argument != "count" {
		t.Errorf("expected argument count, got %q", argErr.Argument)
	}
}

func TestRequestMetadata(t *testing.T) {
	var got Metadata
	e := New(funcTransport(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		got = MetadataFromContext(req.Context())
		return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody}, nil
	}))

	err := e.Exec(&models.RequestDescriptor{
		Method:      "GET",
		BaseAddress: "http://h",
		Metadata:    []models.MetadataEntry{{Key: "trace", Value: "abc"}, {Key: "attempt", Value: 1}},
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if got["trace"] != "abc" || got["attempt"] != 1 {
		t.Errorf("unexpected metadata %v", got)
	}
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []Observation
}

func (r *recordingObserver) Observe(o Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, o)
}

func TestObserver(t *testing.T) {
	rec := &recordingObserver{}
	e := New(funcTransport(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusAccepted, Body: http.NoBody}, nil
	}), WithObserver(rec))

	op := &models.Operation{Name: "CreatePet"}
	if err := e.Exec(&models.RequestDescriptor{Method: "POST", BaseAddress: "http://h", Path: "pets", Operation: op}); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if len(rec.obs) != 1 {
		t.Fatalf("expected one observation, got %d", len(rec.obs))
	}
	o := rec.obs[0]
	if o.Operation != "CreatePet" || o.StatusCode != http.StatusAccepted || o.Method != "POST" {
		t.Errorf("unexpected observation %+v", o)
	}
}

func TestCloseDisposesTransport(t *testing.T) {
	tr := &closingTransport{}
	if err := New(tr).Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !tr.closed {
		t.Error("expected transport to be closed")
	}
}

type closingTransport struct {
	baseTransport
	closed bool
}

func (c *closingTransport) Close() error {
	c.closed = true
	return nil
}
