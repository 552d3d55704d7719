package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the dashboard listing. Routes are mounted behind the
// JWT and admin middleware.
type AdminHandler struct {
	query *services.QueryService
	store *services.ReportStore
}

func NewAdminHandler(query *services.QueryService, store *services.ReportStore) *AdminHandler {
	return &AdminHandler{query: query, store: store}
}

func (h *AdminHandler) ListReports(c *fiber.Ctx) error {
	filter, err := services.ParseFilter(c.Query("filter"), c.Query("solved"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	reports, err := h.query.List(c.UserContext(), services.ListQuery{
		Filter: filter,
		Search: c.Query("search"),
		Scope:  services.ScopeAdmin,
	})
	if err != nil {
		slog.Error("admin report listing failed", "request_id", requestID(c), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}

	resp := dto.AdminReportListResponse{
		Reports: make([]dto.ReportResponse, len(reports)),
		Stats:   services.Stats(reports),
	}
	for i := range reports {
		resp.Reports[i] = dto.NewReportResponse(&reports[i], h.store.ResolveImageURL(reports[i].ImagePath))
	}
	return c.JSON(resp)
}
