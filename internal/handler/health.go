package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/queue"
)

// HealthHandler health endpoints
type HealthHandler struct {
	db       *gorm.DB
	presence *presence.Manager
	queue    *queue.MutationQueue
	// housekeeper is unhealthy when no cycle completed within this window
	housekeeperWindow time.Duration
}

// NewHealthHandler HealthHandler constructor
func NewHealthHandler(db *gorm.DB, pres *presence.Manager, q *queue.MutationQueue, housekeeperWindow time.Duration) *HealthHandler {
	return &HealthHandler{db: db, presence: pres, queue: q, housekeeperWindow: housekeeperWindow}
}

// ComponentCheck per-component status
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse full health report
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check full status: database, presence store, mutation queue depth
// and preview housekeeper heartbeat.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	dbStart := time.Now()
	sqlDB, err := h.db.DB()
	if err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "failed to get database connection",
		}
	} else if err := sqlDB.Ping(); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "database ping failed",
		}
	} else {
		response.Checks["database"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	last, err := h.presence.LastHousekeeperCycle()
	switch {
	case err != nil:
		response.Checks["housekeeper"] = ComponentCheck{
			Status: "degraded",
			Error:  "presence store unreachable",
		}
	case last.IsZero():
		response.Checks["housekeeper"] = ComponentCheck{
			Status: "starting",
		}
	case time.Since(last) > h.housekeeperWindow:
		response.Checks["housekeeper"] = ComponentCheck{
			Status: "degraded",
			Detail: "last cycle " + last.Format(time.RFC3339),
		}
	default:
		response.Checks["housekeeper"] = ComponentCheck{
			Status: "healthy",
			Detail: "last cycle " + last.Format(time.RFC3339),
		}
	}

	response.Checks["mutation_queue"] = ComponentCheck{
		Status: "healthy",
		Detail: "depth " + strconv.Itoa(h.queue.Len()),
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(response)
}

// Liveness K8s liveness probe
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness K8s readiness probe
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	if err := sqlDB.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}
