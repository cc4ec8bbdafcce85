package handlers

import (
	"loanbook/internal/config"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cfg *config.Config
	db  *gorm.DB
}

// NewHealthHandler creates a new health handler. db is nil for services
// without a record store.
func NewHealthHandler(cfg *config.Config, db *gorm.DB) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns service status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"service": h.cfg.Service,
		"mode":    h.cfg.AppMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check service and database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	checks := fiber.Map{"api": "healthy"}
	status := "ok"
	code := fiber.StatusOK

	if h.db != nil {
		if err := config.HealthCheck(h.db); err != nil {
			checks["database"] = "unhealthy"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		} else {
			checks["database"] = "healthy"
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"service": h.cfg.Service,
		"checks":  checks,
	})
}
