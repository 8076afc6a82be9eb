package engine

import (
	"io"
	"net/http"
	"slices"
	"testing"

	"github.com/moamenhredeen/restbind/internal/models"
)

func h(name string, value ...string) models.HeaderEntry {
	if len(value) == 0 {
		return models.HeaderEntry{Name: name}
	}
	return models.HeaderEntry{Name: name, Value: &value[0]}
}

func TestLayerHeaders(t *testing.T) {
	tests := []struct {
		name                     string
		surface, prop, op, param []models.HeaderEntry
		header                   string
		want                     []string
	}{
		{
			name:    "null parameter removes surface header",
			surface: []models.HeaderEntry{h("K", "A")},
			param:   []models.HeaderEntry{h("K")},
			header:  "K",
			want:    []string{},
		},
		{
			name:    "operation replaces surface",
			surface: []models.HeaderEntry{h("K", "A"), h("K", "B")},
			op:      []models.HeaderEntry{h("K", "C")},
			header:  "K",
			want:    []string{"C"},
		},
		{
			name:    "property replaces surface, operation absent",
			surface: []models.HeaderEntry{h("Authorization", "anon")},
			prop:    []models.HeaderEntry{h("authorization", "Bearer t")},
			header:  "Authorization",
			want:    []string{"Bearer t"},
		},
		{
			name:   "repeated names within a layer accumulate in order",
			param:  []models.HeaderEntry{h("Accept", "a"), h("Accept", "b")},
			header: "Accept",
			want:   []string{"a", "b"},
		},
		{
			name:    "lower layer untouched by unrelated names",
			surface: []models.HeaderEntry{h("User-Agent", "restbind")},
			param:   []models.HeaderEntry{h("X-Other", "1")},
			header:  "User-Agent",
			want:    []string{"restbind"},
		},
		{
			name:    "highest layer wins even when null comes after a value",
			surface: []models.HeaderEntry{h("K", "A")},
			op:      []models.HeaderEntry{h("K", "B")},
			param:   []models.HeaderEntry{h("K")},
			header:  "K",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := layerHeaders(tt.surface, tt.prop, tt.op, tt.param).get(tt.header)
			if got == nil {
				got = []string{}
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestComposeHeadersRoundTrip(t *testing.T) {
	d := &models.RequestDescriptor{
		Method:           "GET",
		BaseAddress:      "http://h",
		SurfaceHeaders:   []models.HeaderEntry{h("User-Agent", "restbind"), h("K", "A")},
		OperationHeaders: []models.HeaderEntry{h("Accept", "application/json"), h("Accept", "text/plain")},
		ParameterHeaders: []models.HeaderEntry{h("K")},
	}
	req, err := New(funcTransport(nil)).Compose(d)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if _, ok := req.Header["K"]; ok {
		t.Error("expected K to be removed")
	}
	if got := req.Header.Values("Accept"); !slices.Equal(got, []string{"application/json", "text/plain"}) {
		t.Errorf("unexpected Accept values %q", got)
	}
	if req.Header.Get("User-Agent") != "restbind" {
		t.Errorf("unexpected User-Agent %q", req.Header.Get("User-Agent"))
	}
}

func TestContentHeaders(t *testing.T) {
	e := New(funcTransport(nil))

	t.Run("content header synthesizes an empty body", func(t *testing.T) {
		req, err := e.Compose(&models.RequestDescriptor{
			Method:           "DELETE",
			BaseAddress:      "http://h",
			OperationHeaders: []models.HeaderEntry{h("Content-Type", "application/json")},
		})
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}
		if req.Body != http.NoBody {
			t.Errorf("expected empty body, got %v", req.Body)
		}
		if req.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected content type on request, got %q", req.Header.Get("Content-Type"))
		}
	})

	t.Run("no body without content headers", func(t *testing.T) {
		req, err := e.Compose(&models.RequestDescriptor{
			Method:           "GET",
			BaseAddress:      "http://h",
			OperationHeaders: []models.HeaderEntry{h("Accept", "application/json")},
		})
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}
		if req.Body != nil && req.Body != http.NoBody {
			t.Errorf("expected no body, got %v", req.Body)
		}
	})

	t.Run("declared content type overrides serializer", func(t *testing.T) {
		req, err := e.Compose(&models.RequestDescriptor{
			Method:           "POST",
			BaseAddress:      "http://h",
			Body:             &models.BodyEntry{Value: map[string]int{"a": 1}, Method: models.Serialized},
			ParameterHeaders: []models.HeaderEntry{h("Content-Type", "application/vnd.pets+json")},
		})
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}
		if ct := req.Header.Get("Content-Type"); ct != "application/vnd.pets+json" {
			t.Errorf("expected declared content type, got %q", ct)
		}
		body, _ := io.ReadAll(req.Body)
		if string(body) != `{"a":1}` {
			t.Errorf("unexpected body %q", body)
		}
	})

	t.Run("null content header removes serializer header", func(t *testing.T) {
		req, err := e.Compose(&models.RequestDescriptor{
			Method:           "POST",
			BaseAddress:      "http://h",
			Body:             &models.BodyEntry{Value: []int{1}, Method: models.Serialized},
			OperationHeaders: []models.HeaderEntry{h("Content-Type")},
		})
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}
		if _, ok := req.Header["Content-Type"]; ok {
			t.Errorf("expected Content-Type removed, got %q", req.Header.Get("Content-Type"))
		}
	})
}

func TestFormPairs(t *testing.T) {
	type signup struct {
		Email string   `json:"email"`
		Tags  []string `json:"tags"`
	}
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"map with collection", map[string]any{"a": "1 2", "b": []string{"x", "y"}}, "a=1+2&b=x&b=y"},
		{"null value is an empty field", map[string]any{"a": nil}, "a="},
		{"null elements are skipped", map[string][]any{"b": {"x", nil}}, "b=x"},
		{"ordered pairs", Pairs{{Name: "z", Value: "1"}, {Name: "a", Value: "2"}}, "z=1&a=2"},
		{"struct", &signup{Email: "a@b.c", Tags: []string{"x", "y"}}, "email=a%40b.c&tags=x&tags=y"},
		{"null form", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := formPairs("body", tt.value)
			if err != nil {
				t.Fatalf("formPairs failed: %v", err)
			}
			if got := encodePairs(pairs); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBodyPassThrough(t *testing.T) {
	e := New(funcTransport(nil))
	tests := []struct {
		name  string
		value any
		ct    string
	}{
		{"text", "hello", "text/plain; charset=utf-8"},
		{"bytes", []byte("hello"), "application/octet-stream"},
		{"content", StringContent("hello", "text/csv"), "text/csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := e.composeBody(&models.RequestDescriptor{Body: &models.BodyEntry{Value: tt.value, Method: models.Serialized}})
			if err != nil {
				t.Fatalf("composeBody failed: %v", err)
			}
			data, _ := io.ReadAll(c.Body)
			if string(data) != "hello" {
				t.Errorf("expected body passed through, got %q", data)
			}
			if c.Header.Get("Content-Type") != tt.ct {
				t.Errorf("expected content type %q, got %q", tt.ct, c.Header.Get("Content-Type"))
			}
		})
	}
}
