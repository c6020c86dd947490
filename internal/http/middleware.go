package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/example/room-booking/internal/application"
)

const principalKey = "principal"

// RequestLogger attaches a request scoped logger carrying request_id, method
// and path to the request context.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(c *gin.Context) {
		id := counter.Add(1)
		logger := base.With(
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		ctx := ContextWithLogger(c.Request.Context(), logger)
		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		logger.InfoContext(ctx, "request started")
		c.Next()
		logger.InfoContext(ctx, "request completed", "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

// Recovery turns panics into 500 responses and logs them.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		responder.loggerFor(c).ErrorContext(c.Request.Context(), "panic recovered", "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	})
}

// RequireBearer authenticates the Authorization header and stores the
// principal in both the gin and request contexts.
func RequireBearer(verifier *TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)

	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			responder.writeError(c, http.StatusUnauthorized, errMissingToken)
			return
		}
		principal, err := verifier.Verify(token)
		if err != nil {
			responder.loggerFor(c).WarnContext(c.Request.Context(), "token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: errInvalidToken.Error()})
			return
		}

		ctx := ContextWithPrincipal(c.Request.Context(), principal)
		if logger := LoggerFromContext(ctx); logger != nil {
			ctx = ContextWithLogger(ctx, logger.With("principal_id", principal.UserID))
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(principalKey, principal)
		c.Next()
	}
}

func extractBearer(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func principalFrom(c *gin.Context) application.Principal {
	if value, ok := c.Get(principalKey); ok {
		if principal, ok := value.(application.Principal); ok {
			return principal
		}
	}
	principal, _ := PrincipalFromContext(c.Request.Context())
	return principal
}

// RateLimiter limits requests per principal, or per client IP before
// authentication.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute requests per key with a burst of a tenth
// of that, at least one.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 120
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware(logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if principal := principalFrom(c); principal.UserID != "" {
			key = "user:" + principal.UserID
		}
		if !l.limiter(key).Allow() {
			responder.loggerFor(c).WarnContext(c.Request.Context(), "rate limit exceeded", "key", key)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Message: errRateLimited.Error()})
			return
		}
		c.Next()
	}
}
