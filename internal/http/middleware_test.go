package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/room-booking/internal/application"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireBearer(t *testing.T) {
	t.Parallel()

	verifier, _ := NewTokenVerifier([]byte("secret"))
	newEngine := func() *gin.Engine {
		engine := gin.New()
		engine.Use(RequestLogger(nil), RequireBearer(verifier, nil))
		engine.GET("/protected", func(c *gin.Context) {
			principal, ok := PrincipalFromContext(c.Request.Context())
			if !ok {
				c.Status(http.StatusTeapot)
				return
			}
			c.String(http.StatusOK, principal.UserID)
		})
		return engine
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing credentials", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "malformed bearer", header: "Bearer malformed", status: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			recorder := httptest.NewRecorder()
			newEngine().ServeHTTP(recorder, req)
			if recorder.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, recorder.Code)
			}
		})
	}

	t.Run("attaches principal to request context", func(t *testing.T) {
		t.Parallel()

		token, _ := verifier.Issue(application.Principal{UserID: "teacher-1"}, time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		newEngine().ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if body := recorder.Body.String(); body != "teacher-1" {
			t.Fatalf("expected principal teacher-1, got %q", body)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(10)
	engine := gin.New()
	engine.Use(limiter.Middleware(nil))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// perMinute 10 gives a burst of one.
	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}
	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(Recovery(nil))
	engine.GET("/", func(c *gin.Context) { panic("boom") })

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	if got := extractBearer("bearer abc"); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := extractBearer("Bearer"); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}
