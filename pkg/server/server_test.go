package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/logging"
)

func TestServer_HandlerAppliesMiddleware(t *testing.T) {
	cfg := &config.Config{Port: 0, APIPassword: "secret"}
	srv := New(cfg, logging.New("debug", false, io.Discard))

	srv.Router().HandleFunc("GET /api/trending", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	})
	srv.Router().HandleFunc("GET /api/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	handler := srv.Handler()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unauthorized", "/api/trending", http.StatusUnauthorized},
		{"authorized", "/api/trending?api_password=secret", http.StatusOK},
		{"panic recovered", "/api/panic?api_password=secret", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
			if w.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("missing CORS header")
			}
		})
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := New(&config.Config{}, logging.Discard())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}
