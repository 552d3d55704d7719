package handlers

import (
	"errors"
	"io"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/validation"
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// ReportHandler serves the public report endpoints.
type ReportHandler struct {
	validator *validation.Validator
	store     *services.ReportStore
	query     *services.QueryService
}

func NewReportHandler(validator *validation.Validator, store *services.ReportStore, query *services.QueryService) *ReportHandler {
	return &ReportHandler{validator: validator, store: store, query: query}
}

func (h *ReportHandler) CreateReport(c *fiber.Ctx) error {
	image, err := readImage(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid multipart form",
		})
	}

	sub, err := h.validator.Validate(validation.Submission{
		Image:                image,
		Description:          c.FormValue("description"),
		Location:             c.FormValue("location"),
		AnonymousDisplayName: c.FormValue("anonymous_display_name"),
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: validationMessage(err),
		})
	}

	report, err := h.store.CreateReport(c.UserContext(), sub)
	if err != nil {
		slog.Error("report creation failed",
			"action", "report_create",
			"request_id", requestID(c),
			"error", err,
		)
		sentry.CaptureException(err)

		message := "Failed to save report"
		if errors.Is(err, services.ErrUploadFailed) {
			message = "Failed to upload image"
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: message,
		})
	}

	slog.Info("report created", "report_id", report.ID.String(), "image_path", report.ImagePath)
	return c.Status(fiber.StatusCreated).JSON(dto.ReportEnvelope{Report: h.toResponse(report)})
}

func (h *ReportHandler) ListReports(c *fiber.Ctx) error {
	filter, err := services.ParseFilter(c.Query("filter"), c.Query("solved"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	reports, err := h.query.List(c.UserContext(), services.ListQuery{
		Filter: filter,
		Search: c.Query("search"),
		Scope:  services.ScopePublic,
	})
	if err != nil {
		slog.Error("report listing failed", "request_id", requestID(c), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}

	return c.JSON(dto.ReportListResponse{Reports: h.toResponses(reports)})
}

func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.store.GetReport(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Report not found",
			})
		}
		slog.Error("report lookup failed", "request_id", requestID(c), "report_id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch report",
		})
	}

	return c.JSON(dto.ReportEnvelope{Report: h.toResponse(report)})
}

func (h *ReportHandler) toResponse(r *models.Report) dto.ReportResponse {
	return dto.NewReportResponse(r, h.store.ResolveImageURL(r.ImagePath))
}

func (h *ReportHandler) toResponses(reports []models.Report) []dto.ReportResponse {
	out := make([]dto.ReportResponse, len(reports))
	for i := range reports {
		out[i] = h.toResponse(&reports[i])
	}
	return out
}

// readImage returns nil when no image part was sent. Reading stops one byte
// past the size limit so oversized uploads are still recognised as such.
func readImage(c *fiber.Ctx) (*validation.Image, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	if fh == nil {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, validation.MaxImageSize+1))
	if err != nil {
		return nil, err
	}

	return &validation.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, validation.ErrMissingField):
		return "Image and description are required"
	case errors.Is(err, validation.ErrDescriptionTooLong):
		return "Description must be at most 1000 characters"
	case errors.Is(err, validation.ErrUnsupportedImageType):
		return "Invalid file type. Please upload JPEG, PNG, or WebP"
	case errors.Is(err, validation.ErrImageTooLarge):
		return "Image must be less than 5MB"
	default:
		return "Invalid request"
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
