package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
	store             *services.ReportStore
}

func NewModerationHandler(moderationService *services.ModerationService, store *services.ReportStore) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService, store: store}
}

// SetSolved handles PATCH /api/reports/:id/solve. The bearer token is
// checked by the service so a bad token never reaches the store.
func (h *ModerationHandler) SetSolved(c *fiber.Ctx) error {
	reportID := c.Params("id")
	report, err := h.moderationService.SetSolved(c.UserContext(), bearerToken(c), reportID, c.Body())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		case errors.Is(err, services.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid solved status",
			})
		case errors.Is(err, services.ErrReportNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Report not found",
			})
		}

		slog.Error("report status update failed",
			"action", "report_solve",
			"request_id", requestID(c),
			"report_id", reportID,
			"error", err,
		)
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to update report status",
		})
	}

	slog.Info("report status updated",
		"action", "report_solve",
		"report_id", report.ID.String(),
		"solved", report.Solved,
	)
	return c.JSON(dto.ReportEnvelope{
		Report: dto.NewReportResponse(report, h.store.ResolveImageURL(report.ImagePath)),
	})
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
