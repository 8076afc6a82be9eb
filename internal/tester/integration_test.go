package tester

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/parser"
	"github.com/moamenhredeen/restbind/internal/transport"
)

// createMockServer creates a mock HTTP server that implements the pet-store API under /v1
func createMockServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v1")

		switch {
		case r.Method == "GET" && path == "/pets":
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("x-next", "/pets?limit=10")
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 1, "name": "Fluffy"},
				{"id": 2, "name": "Spot"},
			})
		case r.Method == "POST" && path == "/pets":
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			w.WriteHeader(http.StatusCreated)
		case r.Method == "GET" && strings.HasPrefix(path, "/pets/"):
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "Fluffy", "tag": "cat"})
		case r.Method == "POST" && path == "/login":
			if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case r.Method == "PUT" && strings.HasSuffix(path, "/photo"):
			if r.Header.Get("Content-Type") != "image/png" {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		}
	}))
}

func newTester(t *testing.T, contractPath, serverURL string, opts ...Option) *Tester {
	t.Helper()
	c, err := parser.Load(contractPath)
	if err != nil {
		t.Fatalf("Failed to load contract: %v", err)
	}
	c.SetServer(serverURL)

	tr, err := transport.New(transport.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create transport: %v", err)
	}
	e := engine.New(tr)
	t.Cleanup(func() { e.Close() })

	testRunner, err := NewTester(e, c, opts...)
	if err != nil {
		t.Fatalf("Failed to create tester: %v", err)
	}
	return testRunner
}

func TestIntegrationFullFlow(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	var inFlight, peak int32
	testRunner := newTester(t, "../parser/testdata/pet-store.yaml", server.URL+"/v1", WithTracker(func() func() {
		if n := atomic.AddInt32(&inFlight, 1); n > atomic.LoadInt32(&peak) {
			atomic.StoreInt32(&peak, n)
		}
		return func() { atomic.AddInt32(&inFlight, -1) }
	}))

	var events []EventType
	ops := testRunner.Operations()
	summary := testRunner.TestOperations(context.Background(), ops, func(e TestEvent) {
		events = append(events, e.Type)
	})

	if summary.TotalTests != 5 {
		t.Fatalf("Expected 5 tests, got %d", summary.TotalTests)
	}
	if summary.Contract != "SwaggerPetstore" {
		t.Errorf("Expected contract name, got %q", summary.Contract)
	}
	for _, result := range summary.Results {
		if !result.Passed {
			t.Errorf("%s %s failed: %s (status %d)", result.Method, result.Operation, result.Error, result.StatusCode)
		}
	}
	if len(events) != 10 || events[0] != EventStarting || events[1] != EventCompleted {
		t.Errorf("Expected paired start/complete events, got %v", events)
	}
	if peak != 1 || inFlight != 0 {
		t.Errorf("Expected sequential tracked requests, got peak %d, in flight %d", peak, inFlight)
	}
}

func TestIntegrationSingleOperation(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	testRunner := newTester(t, "../parser/testdata/pet-store.yaml", server.URL+"/v1")
	op, ok := testRunner.contract.Surface.Operation("listPets")
	if !ok {
		t.Fatal("listPets not found")
	}

	result := testRunner.TestOperation(context.Background(), op)
	if result.Method != "GET" {
		t.Errorf("Expected method GET, got %s", result.Method)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", result.StatusCode)
	}
	if !strings.Contains(result.URI, "/v1/pets?limit=20") {
		t.Errorf("Expected example limit in URI, got %s", result.URI)
	}
	if result.ResponseTime <= 0 {
		t.Error("Expected response time to be recorded")
	}
}

func TestIntegrationUndeclaredStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal error"}`))
	}))
	defer server.Close()

	testRunner := newTester(t, "../parser/testdata/pet-store.yaml", server.URL)
	op, _ := testRunner.contract.Surface.Operation("listPets")

	result := testRunner.TestOperation(context.Background(), op)
	if result.Passed {
		t.Error("Expected test to fail due to server error")
	}
	if !strings.Contains(result.Error, "500") {
		t.Errorf("Expected API error in result, got %q", result.Error)
	}
	if len(result.Problems) == 0 || result.Problems[0].Field != "status_code" {
		t.Errorf("Expected undeclared status problem, got %v", result.Problems)
	}
}

func TestIntegrationContractDocument(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/acme/pets/7" {
			gotPath = r.URL.Path
			gotKey = r.Header.Get("X-API-Key")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 7}`))
	}))
	defer server.Close()

	testRunner := newTester(t, "../parser/testdata/pets.yaml", server.URL)
	op, _ := testRunner.contract.Surface.Operation("GetPet")

	result := testRunner.TestOperation(context.Background(), op)
	if !result.Passed {
		t.Fatalf("Expected GetPet to pass: %s", result.Error)
	}
	if gotPath != "/v1/acme/pets/7" {
		t.Errorf("Expected initial tenant and example id in path, got %q", gotPath)
	}
	if gotKey != "anonymous" {
		t.Errorf("Expected default API key header, got %q", gotKey)
	}

	for _, op := range testRunner.Operations() {
		if op.Dispose {
			t.Error("Expected dispose operation to be excluded")
		}
	}
}

func TestIntegrationBuildFailure(t *testing.T) {
	testRunner := newTester(t, "../parser/testdata/pets.yaml", "")
	testRunner.contract.Surface.BaseAddress = ""

	op, _ := testRunner.contract.Surface.Operation("ListPets")
	result := testRunner.TestOperation(context.Background(), op)
	if result.Passed || !strings.Contains(result.Error, "request failed") {
		t.Errorf("Expected missing base address to fail the call, got %+v", result)
	}
}
