package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterConfig collects the handlers and middleware dependencies of the API.
type RouterConfig struct {
	Requests   *RequestHandler
	Reviews    *ReviewHandler
	Schedule   *ScheduleHandler
	Meta       *MetaHandler
	Verifier   *TokenVerifier
	Limiter    *RateLimiter
	Logger     *slog.Logger
	Middleware []gin.HandlerFunc
}

// NewRouter builds the gin engine. Routes whose handler is nil are not
// registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := defaultLogger(cfg.Logger)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(RequestLogger(logger), Recovery(logger))
	router.Use(cfg.Middleware...)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Message: localizedStatusMessage(http.StatusMethodNotAllowed)})
	})

	api := router.Group("/")
	if cfg.Verifier != nil {
		api.Use(RequireBearer(cfg.Verifier, logger))
	}
	if cfg.Limiter != nil {
		api.Use(cfg.Limiter.Middleware(logger))
	}

	if cfg.Schedule != nil {
		api.GET("/schedule/:date", cfg.Schedule.Day)
		api.PUT("/schedule/:date/:room/:slot", cfg.Schedule.SetEntry)
		api.DELETE("/schedule/:date/:room/:slot", cfg.Schedule.ClearEntry)
	}

	if cfg.Requests != nil {
		api.GET("/requests", cfg.Requests.List)
		api.POST("/requests", cfg.Requests.Submit)
		api.GET("/requests/:id", cfg.Requests.Get)
	}

	if cfg.Reviews != nil {
		api.POST("/requests/:id/approve", cfg.Reviews.Approve)
		api.POST("/requests/:id/reject", cfg.Reviews.Reject)
		api.POST("/requests/:id/revert/prepare", cfg.Reviews.PrepareRevert)
		api.POST("/requests/:id/revert", cfg.Reviews.Revert)
	}

	if cfg.Meta != nil {
		api.GET("/slots/:category", cfg.Meta.Slots)
		api.GET("/freshness", cfg.Meta.Freshness)
	}

	return router
}
