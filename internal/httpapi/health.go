package httpapi

import (
	"database/sql"
	"net/http"
	"time"

	"call-assistant/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const healthTimeout = 2 * time.Second

// Health reports database and Redis reachability. Redis is optional; a nil
// client is reported as disabled and does not fail the check.
type Health struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (h Health) Handle(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	checks := gin.H{}

	if err := utils.HealthCheck(ctx, h.DB, healthTimeout); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = "unhealthy"
	} else {
		checks["database"] = "ok"
	}

	switch {
	case h.Redis == nil:
		checks["redis"] = "disabled"
	case utils.RedisHealth(ctx, h.Redis, healthTimeout) != nil:
		status = http.StatusServiceUnavailable
		checks["redis"] = "unhealthy"
	default:
		checks["redis"] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks, "timestamp": time.Now().UTC()})
}

