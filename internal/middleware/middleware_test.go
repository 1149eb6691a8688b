package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAPIKeyMiddleware(t *testing.T) {
	r := newEngine(APIKeyMiddleware([]string{"k1", "k2"}))

	tests := []struct {
		name   string
		header map[string]string
		query  string
		want   int
	}{
		{"missing", nil, "", http.StatusUnauthorized},
		{"wrong", map[string]string{"X-API-Key": "nope"}, "", http.StatusUnauthorized},
		{"bearer", map[string]string{"Authorization": "Bearer k1"}, "", http.StatusOK},
		{"header", map[string]string{"X-API-Key": "k2"}, "", http.StatusOK},
		{"query", nil, "?token=k1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok"+tt.query, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAPIKeyMiddleware_NoKeysConfigured(t *testing.T) {
	r := newEngine(APIKeyMiddleware(nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRecoveryAndLogger(t *testing.T) {
	r := newEngine(Recovery(), RequestLogger())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status = %d body %q", w.Code, w.Body.String())
	}
}
