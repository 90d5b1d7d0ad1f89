package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	redisclient "consultant-dashboard/pkg/redis"
)

// HealthHandler reports the state of the database and Redis.
type HealthHandler struct {
	db      *gorm.DB
	redis   *redisclient.Client
	service string
}

// NewHealthHandler creates a HealthHandler. redis may be nil when caching is off.
func NewHealthHandler(db *gorm.DB, redis *redisclient.Client, service string) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, service: service}
}

// Health handles GET /health. It answers 503 when the database is unreachable;
// Redis being down only degrades the report.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "up"
	if err := h.pingDB(ctx); err != nil {
		database = "down"
	}

	status, code := "healthy", http.StatusOK
	if database == "down" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  h.service,
		"database": database,
		"redis":    h.redis.Status(ctx),
	})
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
