package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	version string
}

// NewHealthHandler creates the handler.
func NewHealthHandler(pool *pgxpool.Pool, redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{pool: pool, redis: redisClient, version: version}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports dependency readiness.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx := c.UserContext()

	checks := fiber.Map{}
	healthy := true

	if err := h.pool.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"status": checks,
	})
}
