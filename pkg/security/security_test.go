package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz_master_backend/internal/util"

	"github.com/gin-gonic/gin"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/api/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/static/a.png", func(c *gin.Context) { c.String(http.StatusOK, "png") })
	return r
}

func get(r http.Handler, path, remote string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	r.ServeHTTP(w, req)
	return w
}

func TestSecureHeaders(t *testing.T) {
	r := newRouter(Secure())

	w := get(r, "/api/ping", "10.1.1.1:5000")
	if w.Header().Get("X-Content-Type-Options") != "nosniff" || w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing security headers: %v", w.Header())
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Errorf("HSTS must only be sent over TLS")
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("api responses must not be cached")
	}

	if w := get(r, "/static/a.png", "10.1.1.1:5000"); w.Header().Get("Cache-Control") != "" {
		t.Errorf("static files should keep default caching, got %q", w.Header().Get("Cache-Control"))
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(2, time.Hour, nil)
	t.Cleanup(l.Stop)
	r := newRouter(l.Middleware())

	for i := 0; i < 2; i++ {
		if w := get(r, "/api/ping", "10.1.1.1:5000"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	if w := get(r, "/api/ping", "10.1.1.1:5000"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
	if w := get(r, "/api/ping", "10.2.2.2:5000"); w.Code != http.StatusOK {
		t.Fatalf("other clients have their own bucket, got %d", w.Code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0, time.Minute, nil)
	if l != nil {
		t.Fatal("expected nil limiter when disabled")
	}
	l.Stop()
	r := newRouter(l.Middleware())

	for i := 0; i < 10; i++ {
		if w := get(r, "/api/ping", "10.1.1.1:5000"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with limiter disabled, got %d", i, w.Code)
		}
	}
}

func TestUserKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.3.3.3:1234"

	if got := UserKey(c); got != "10.3.3.3" {
		t.Errorf("anonymous key: got %q", got)
	}
	c.Set(util.ContextUserKey, &util.Claims{UserID: 42})
	if got := UserKey(c); got != "user:42" {
		t.Errorf("user key: got %q", got)
	}
}
