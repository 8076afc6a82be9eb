package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/models"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RESTBIND_BASE_URL", "https://pets.example.com/api")
	t.Setenv("RESTBIND_TIMEOUT", "5s")
	t.Setenv("RESTBIND_MAX_IDLE_CONNS", "7")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.BaseURL != "https://pets.example.com/api" {
		t.Errorf("unexpected base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Timeout)
	}
	if cfg.MaxIdleConns != 7 {
		t.Errorf("expected 7 idle conns, got %d", cfg.MaxIdleConns)
	}
	if cfg.IdleConnTimeout != 90*time.Second {
		t.Errorf("expected default idle timeout, got %v", cfg.IdleConnTimeout)
	}
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "pets/api"}); err == nil {
		t.Error("expected error for relative base URL")
	}
}

func TestTransportThroughEngine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pets" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tr, err := New(Config{BaseURL: server.URL + "/api/", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tr.BaseURL().String() != server.URL+"/api/" {
		t.Errorf("unexpected base URL %v", tr.BaseURL())
	}

	e := engine.New(tr)
	defer e.Close()

	body, err := e.SendString(&models.RequestDescriptor{
		Method:  "GET",
		Path:    "pets",
		Context: context.Background(),
	})
	if err != nil {
		t.Fatalf("SendString failed: %v", err)
	}
	if body != "ok" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestSendUsesGivenContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "late")
	}))
	defer server.Close()

	tr, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Send(ctx, req); err == nil {
		t.Error("expected canceled context to fail the request")
	}
}
