package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/models"
	"github.com/google/uuid"
)

type ReportResponse struct {
	ID                   uuid.UUID  `json:"id"`
	Description          string     `json:"description"`
	ImagePath            string     `json:"image_path"`
	ImageURL             string     `json:"image_url"`
	Location             *string    `json:"location"`
	AnonymousDisplayName *string    `json:"anonymous_display_name"`
	CreatedAt            time.Time  `json:"created_at"`
	Solved               bool       `json:"solved"`
	SolvedAt             *time.Time `json:"solved_at"`
	SolvedBy             *string    `json:"solved_by"`
}

func NewReportResponse(r *models.Report, imageURL string) ReportResponse {
	return ReportResponse{
		ID:                   r.ID,
		Description:          r.Description,
		ImagePath:            r.ImagePath,
		ImageURL:             imageURL,
		Location:             r.Location,
		AnonymousDisplayName: r.AnonymousDisplayName,
		CreatedAt:            r.CreatedAt,
		Solved:               r.Solved,
		SolvedAt:             r.SolvedAt,
		SolvedBy:             r.SolvedBy,
	}
}

type ReportEnvelope struct {
	Report ReportResponse `json:"report"`
}

type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
}

type ReportStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Solved  int `json:"solved"`
}

type AdminReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Stats   ReportStats      `json:"stats"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
