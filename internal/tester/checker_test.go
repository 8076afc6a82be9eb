package tester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/parser"
)

const checkedAPI = `
openapi: 3.0.3
info:
  title: Checked
  version: 1.0.0
paths:
  /pet:
    get:
      operationId: getPet
      responses:
        "200":
          description: ok
          headers:
            X-Rate-Limit:
              required: true
              schema:
                type: integer
          content:
            application/json:
              schema:
                type: object
                required: [id, name]
        4XX:
          description: client error
        default:
          description: anything else
`

type clientTransport struct {
	client *http.Client
}

func (t clientTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}

func (t clientTransport) BaseURL() *url.URL { return nil }

func fetch(t *testing.T, contentType, body string, status int, header map[string]string) *engine.Response[any] {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		for k, v := range header {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	e := engine.New(clientTransport{client: server.Client()})
	resp, err := engine.Fetch[any](e, &models.RequestDescriptor{Method: "GET", BaseAddress: server.URL, Path: "pet"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	return resp
}

func TestCheck(t *testing.T) {
	c, err := parser.Parse([]byte(checkedAPI))
	if err != nil {
		t.Fatalf("Failed to parse contract: %v", err)
	}
	declared := c.Responses["getPet"]

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		header      map[string]string
		want        []string
	}{
		{
			name:        "matching response",
			contentType: "application/json",
			body:        `{"id": 1, "name": "Rex"}`,
			status:      200,
			header:      map[string]string{"X-Rate-Limit": "10"},
		},
		{
			name:        "missing required header and field",
			contentType: "application/json; charset=utf-8",
			body:        `{"id": 1}`,
			status:      200,
			want:        []string{"header.X-Rate-Limit", "body.name"},
		},
		{
			name:        "wrong JSON type",
			contentType: "application/json",
			body:        `[1, 2]`,
			status:      200,
			header:      map[string]string{"X-Rate-Limit": "10"},
			want:        []string{"body"},
		},
		{
			name:        "unexpected content type",
			contentType: "text/html",
			body:        `<p>hi</p>`,
			status:      200,
			header:      map[string]string{"X-Rate-Limit": "10"},
			want:        []string{"content_type"},
		},
		{
			name:        "malformed JSON",
			contentType: "application/problem+json",
			body:        `{"title":`,
			status:      404,
			want:        []string{"body"},
		},
		{
			name:   "status range",
			status: 409,
		},
		{
			name:   "default response",
			status: 503,
		},
	}

	checker := NewChecker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := fetch(t, tt.contentType, tt.body, tt.status, tt.header)
			problems := checker.Check(resp, declared)

			var fields []string
			for _, p := range problems {
				fields = append(fields, p.Field)
			}
			if len(fields) != len(tt.want) {
				t.Fatalf("Expected problems %v, got %v", tt.want, problems)
			}
			for i := range fields {
				if fields[i] != tt.want[i] {
					t.Errorf("Expected problem %s, got %s", tt.want[i], fields[i])
				}
			}
		})
	}
}

func TestCheckWithoutDeclarations(t *testing.T) {
	checker := NewChecker()

	if problems := checker.Check(fetch(t, "application/json", `{"ok": true}`, 200, nil), nil); len(problems) != 0 {
		t.Errorf("Expected no problems, got %v", problems)
	}
	if problems := checker.Check(fetch(t, "application/json", `{`, 200, nil), nil); len(problems) != 1 {
		t.Errorf("Expected malformed JSON problem, got %v", problems)
	}
	if problems := checker.Check(nil, nil); len(problems) != 1 || problems[0].Field != "response" {
		t.Errorf("Expected nil response problem, got %v", problems)
	}
}
