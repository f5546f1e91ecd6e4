package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-desk/internal/analytics"
	"github.com/spec-kit/grievance-desk/internal/api/dto"
	"github.com/spec-kit/grievance-desk/internal/observability"
	"github.com/spec-kit/grievance-desk/internal/query"
	"github.com/spec-kit/grievance-desk/internal/service"
)

const recentTicketLimit = 10

// StatsHandler serves the admin dashboard.
type StatsHandler struct {
	store   *service.TicketStore
	metrics *observability.Metrics
}

// NewStatsHandler constructs handler.
func NewStatsHandler(store *service.TicketStore, metrics *observability.Metrics) *StatsHandler {
	return &StatsHandler{store: store, metrics: metrics}
}

// Stats GET /admin/stats.
func (h *StatsHandler) Stats(c *fiber.Ctx) error {
	tickets := h.store.List()
	summary := analytics.Summarize(tickets)
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Total:                 summary.Total,
		Resolved:              summary.Resolved,
		HighPriorityOpen:      summary.HighPriorityOpen,
		AverageResolutionTime: summary.AverageResolutionTime,
		ByStatus:              summary.ByStatus,
		ByCategory:            summary.ByCategory,
		Recent:                dto.NewTicketResponses(query.Recent(tickets, recentTicketLimit)),
	}})
}

// Metrics GET /admin/metrics.
func (h *StatsHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
