package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/plantops/finding-service/internal/persistence"
)

// HealthHandler reports service liveness and dependency status.
type HealthHandler struct {
	version  string
	postgres *persistence.Postgres
	redis    *persistence.Redis
}

// NewHealthHandler builds the handler.
func NewHealthHandler(version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{version: version, postgres: postgres, redis: redis}
}

// Live serves GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": h.version})
}

// Ready serves GET /health/ready, probing dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	status := http.StatusOK
	deps := fiber.Map{}

	if err := h.postgres.Ping(c.UserContext()); err != nil {
		deps["postgres"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		deps["postgres"] = "up"
	}

	if err := h.redis.Ping(c.UserContext()); err != nil {
		deps["redis"] = "down"
	} else {
		deps["redis"] = "up"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":       http.StatusText(status),
		"version":      h.version,
		"dependencies": deps,
	})
}
