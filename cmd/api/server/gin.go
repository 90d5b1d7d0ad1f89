package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"consultant-dashboard/cmd/api/di"
	ginrouter "consultant-dashboard/internal/adapter/gin/router"
)

// SetupGinServer creates the HTTP server for the dashboard and the JSON API.
// WriteTimeout stays above the CEP lookup timeout so SSE lookups can finish.
func SetupGinServer(c *di.Container, addr string, l *zap.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := ginrouter.SetupRouter(ginrouter.Handlers{
		Users:     c.Users,
		Dashboard: c.Dashboard,
		Health:    c.Health,
	}, c.RateLimiter, l)

	l.Info("Gin server configured", zap.String("address", addr))

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
