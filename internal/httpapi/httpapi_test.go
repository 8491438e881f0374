package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"analogfinder/internal/config"
)

type fakeStore struct{ err error }

func (f fakeStore) Ping(context.Context) error { return f.err }

type fakeBroker struct{ connected bool }

func (f fakeBroker) IsConnected() bool { return f.connected }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	return got
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		store      Pinger
		broker     ConnectionStatus
		wantStatus int
		wantMQTT   string
	}{
		{name: "ok without broker", store: fakeStore{}, wantStatus: http.StatusOK, wantMQTT: "disabled"},
		{name: "ok with connected broker", store: fakeStore{}, broker: fakeBroker{connected: true}, wantStatus: http.StatusOK, wantMQTT: "connected"},
		{name: "broker down is not fatal", store: fakeStore{}, broker: fakeBroker{}, wantStatus: http.StatusOK, wantMQTT: "disconnected"},
		{name: "store down", store: fakeStore{err: errors.New("closed")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := NewMux(tt.store, t.TempDir(), tt.broker)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			got := decodeBody(t, rec)
			if tt.wantStatus != http.StatusOK {
				if got["message"] != "failed to check database connectivity" {
					t.Errorf("message = %q", got["message"])
				}
				return
			}
			if got["status"] != "ok" || got["mqtt"] != tt.wantMQTT {
				t.Errorf("body = %v; want status ok, mqtt %s", got, tt.wantMQTT)
			}
		})
	}
}

func TestHealthz_methodNotAllowed(t *testing.T) {
	mux := NewMux(fakeStore{}, t.TempDir(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := NewMux(fakeStore{}, t.TempDir(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics output missing go runtime collectors")
	}
}

func TestStaticFiles(t *testing.T) {
	t.Run("serves files from dir", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o644); err != nil {
			t.Fatal(err)
		}
		mux := NewMux(fakeStore{}, dir, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if rec.Body.String() != "body{}" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("missing dir disables route", func(t *testing.T) {
		mux := NewMux(fakeStore{}, filepath.Join(t.TempDir(), "nope"), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dataset", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusTeapot)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "http request" || entry["path"] != "/api/v1/dataset" || entry["method"] != "GET" {
		t.Errorf("log entry = %v", entry)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v; want %d", entry["status"], http.StatusTeapot)
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v; want INFO", entry["level"])
	}
	if entry["bytes"] != float64(len("short and stout")) {
		t.Errorf("bytes = %v; want %d", entry["bytes"], len("short and stout"))
	}
}

func TestRequestLogger_routePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/indices", func(w http.ResponseWriter, r *http.Request) {})

	requestLogger(logger, mux).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/indices?from_year=2000", nil))

	if !strings.Contains(buf.String(), `"route":"GET /api/v1/indices"`) {
		t.Errorf("log = %q; want matched route", buf.String())
	}
}

func TestRequestLogger_probesLogAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if buf.Len() != 0 {
		t.Errorf("log = %q; want nothing at the default info level", buf.String())
	}
}

func TestRequestLogger_serverErrorsLogAtError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("log = %q; want ERROR level", buf.String())
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(config.Config{HTTPAddr: "127.0.0.1:0"}, http.NewServeMux(), nil)

	if srv.Addr != "127.0.0.1:0" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 || srv.WriteTimeout == 0 {
		t.Errorf("timeouts not set: %+v", srv)
	}
	if srv.Handler == nil {
		t.Error("Handler = nil")
	}
}
