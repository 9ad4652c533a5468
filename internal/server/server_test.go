package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/pupiltrack/internal/store"
)

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name            string
		config          Config
		wantSubscribers bool
	}{
		{name: "without hub", config: Config{}, wantSubscribers: false},
		{name: "with hub", config: Config{Hub: NewResultHub()}, wantSubscribers: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.config)

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response["status"] != "ok" {
				t.Errorf("status = %v, want ok", response["status"])
			}
			if _, ok := response["uptime"]; !ok {
				t.Error("expected 'uptime' field in response")
			}

			subs, ok := response["subscribers"]
			if ok != tt.wantSubscribers {
				t.Errorf("subscribers present = %v, want %v", ok, tt.wantSubscribers)
			}
			if ok && subs != float64(0) {
				t.Errorf("subscribers = %v, want 0", subs)
			}
		})
	}
}

func TestServer_HealthRejectsWrites(t *testing.T) {
	s := New(Config{})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/health", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want %d", method, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestServer_Routes(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	paths := []string{"/api/sessions", "/api/results", "/api/sessions/unknown"}

	t.Run("store routes are absent without a store", func(t *testing.T) {
		s := New(Config{})
		for _, p := range paths {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s: status = %d, want %d", p, rec.Code, http.StatusNotFound)
			}
		}
	})

	t.Run("store routes are mounted with a store", func(t *testing.T) {
		s := New(Config{Store: st})
		want := map[string]int{
			"/api/sessions":         http.StatusOK,
			"/api/results":          http.StatusOK,
			"/api/sessions/unknown": http.StatusNotFound,
		}
		for _, p := range paths {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
			if rec.Code != want[p] {
				t.Errorf("GET %s: status = %d, want %d", p, rec.Code, want[p])
			}
		}
	})

	t.Run("pupil stream is absent without a hub", func(t *testing.T) {
		s := New(Config{Store: st})
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pupil", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>pupil viewer</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatalf("failed to write index.html: %v", err)
	}

	s := New(Config{StaticDir: dir})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{path: "/", wantCode: http.StatusOK, wantBody: index},
		{path: "/missing.js", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	t.Run("root is not served without a static dir", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New(Config{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
