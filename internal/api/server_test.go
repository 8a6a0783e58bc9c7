package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openhamclock/rigd/internal/adapter"
	"github.com/openhamclock/rigd/internal/command"
	"github.com/openhamclock/rigd/internal/state"
)

// fakeController records write calls and returns a scripted error.
type fakeController struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeController) SetFrequency(ctx context.Context, hz int64, tune bool) error {
	f.record("setFrequency")
	return f.err
}

func (f *fakeController) SetMode(ctx context.Context, mode string, passbandHz int) error {
	f.record("setMode")
	return f.err
}

func (f *fakeController) SetPTT(ctx context.Context, on bool) error {
	f.record("setPTT")
	return f.err
}

func (f *fakeController) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeController) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeStream struct{}

func (fakeStream) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	_, err := w.Write([]byte("event: init\ndata: {\"type\":\"init\"}\n\n"))
	return err
}

func (fakeStream) SubscriberCount() int { return 2 }

type fakeStatus struct{ snap state.Snapshot }

func (f fakeStatus) Snapshot() state.Snapshot { return f.snap }

func testServer(controller *fakeController, authSecret string) *Server {
	snap := state.Snapshot{
		Connected:    true,
		FrequencyHz:  14074000,
		Mode:         "USB",
		PassbandHz:   2700,
		LastUpdateAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	return NewServer("127.0.0.1:0", controller, fakeStream{}, fakeStatus{snap}, authSecret)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestStatusEndpoint(t *testing.T) {
	server := testServer(&fakeController{}, "")

	w := doJSON(t, server.Handler(), http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["connected"] != true {
		t.Errorf("connected = %v", body["connected"])
	}
	if body["freq"] != float64(14074000) {
		t.Errorf("freq = %v", body["freq"])
	}
	if body["mode"] != "USB" {
		t.Errorf("mode = %v", body["mode"])
	}
	if body["width"] != float64(2700) {
		t.Errorf("width = %v", body["width"])
	}
	if body["ptt"] != false {
		t.Errorf("ptt = %v", body["ptt"])
	}
	if body["timestamp"] != "2026-08-01T12:00:00Z" {
		t.Errorf("timestamp = %v", body["timestamp"])
	}
}

func TestStatusEmptyTimestampBeforeFirstPoll(t *testing.T) {
	server := NewServer("127.0.0.1:0", &fakeController{}, fakeStream{}, fakeStatus{}, "")

	w := doJSON(t, server.Handler(), http.MethodGet, "/status", "")
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["timestamp"] != "" {
		t.Errorf("timestamp = %v, want empty before first update", body["timestamp"])
	}
}

func TestFreqEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		err        error
		wantStatus int
		wantCalls  int
	}{
		{"valid", http.MethodPost, `{"freq": 7074000}`, nil, http.StatusOK, 1},
		{"valid with tune", http.MethodPost, `{"freq": 7074000, "tune": true}`, nil, http.StatusOK, 1},
		{"missing freq", http.MethodPost, `{"tune": true}`, nil, http.StatusBadRequest, 0},
		{"non-positive freq", http.MethodPost, `{"freq": 0}`, nil, http.StatusBadRequest, 0},
		{"invalid json", http.MethodPost, `{`, nil, http.StatusBadRequest, 0},
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed, 0},
		{"backend failure", http.MethodPost, `{"freq": 7074000}`, adapter.ErrBackend, http.StatusInternalServerError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := &fakeController{err: tt.err}
			server := testServer(controller, "")

			w := doJSON(t, server.Handler(), tt.method, "/freq", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := len(controller.recorded()); got != tt.wantCalls {
				t.Errorf("controller calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.wantStatus == http.StatusOK && !strings.Contains(w.Body.String(), `"success":true`) {
				t.Errorf("success body missing: %s", w.Body.String())
			}
		})
	}
}

func TestModeEndpoint(t *testing.T) {
	server := testServer(&fakeController{}, "")

	w := doJSON(t, server.Handler(), http.MethodPost, "/mode", `{"mode": "CW", "passband": 500}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, server.Handler(), http.MethodPost, "/mode", `{"passband": 500}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing mode: status = %d, want 400", w.Code)
	}

	w = doJSON(t, server.Handler(), http.MethodPost, "/mode", `{"mode": "CW", "passband": -1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative passband: status = %d, want 400", w.Code)
	}
}

func TestPTTEndpoint(t *testing.T) {
	server := testServer(&fakeController{}, "")

	w := doJSON(t, server.Handler(), http.MethodPost, "/ptt", `{"ptt": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	// ptt false is a valid request, not a missing field.
	w = doJSON(t, server.Handler(), http.MethodPost, "/ptt", `{"ptt": false}`)
	if w.Code != http.StatusOK {
		t.Errorf("ptt false: status = %d, want 200", w.Code)
	}

	w = doJSON(t, server.Handler(), http.MethodPost, "/ptt", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing ptt: status = %d, want 400", w.Code)
	}
}

func TestPTTDisabledMapsTo403(t *testing.T) {
	server := testServer(&fakeController{err: command.ErrPTTDisabled}, "")

	w := doJSON(t, server.Handler(), http.MethodPost, "/ptt", `{"ptt": true}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "PTT disabled in configuration" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestStreamEndpoint(t *testing.T) {
	server := testServer(&fakeController{}, "")

	w := doJSON(t, server.Handler(), http.MethodGet, "/stream", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "event: init") {
		t.Errorf("stream body = %q, want init frame", w.Body.String())
	}

	w = doJSON(t, server.Handler(), http.MethodPost, "/stream", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /stream status = %d, want 405", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := testServer(&fakeController{}, "")

	w := doJSON(t, server.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["version"] != Version {
		t.Errorf("version = %v, want %s", body["version"], Version)
	}
	if _, ok := body["uptimeSec"]; !ok {
		t.Error("uptimeSec missing")
	}
	if body["subscribers"] != float64(2) {
		t.Errorf("subscribers = %v, want 2", body["subscribers"])
	}
}

func TestAuthProtectsWritesOnly(t *testing.T) {
	const secret = "api-test-secret"
	controller := &fakeController{}
	server := testServer(controller, secret)

	// Reads stay open.
	if w := doJSON(t, server.Handler(), http.MethodGet, "/status", ""); w.Code != http.StatusOK {
		t.Errorf("GET /status with auth enabled: status = %d, want 200", w.Code)
	}

	// Writes need a token.
	if w := doJSON(t, server.Handler(), http.MethodPost, "/freq", `{"freq": 7074000}`); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST /freq: status = %d, want 401", w.Code)
	}
	if got := len(controller.recorded()); got != 0 {
		t.Fatalf("controller called %d times without auth", got)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "test",
		"scope": "control",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/freq", strings.NewReader(`{"freq": 7074000}`))
	r.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated POST /freq: status = %d (body %s)", w.Code, w.Body.String())
	}
}
