package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListOptions narrows a report listing. Limit 0 means unbounded.
type ListOptions struct {
	Filter Filter
	Limit  int
}

// SolvedChange is the full set of columns a moderation transition writes.
type SolvedChange struct {
	Solved   bool
	SolvedAt *time.Time
	SolvedBy *string
}

// ReportRepository is the metadata store for reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	List(ctx context.Context, opts ListOptions) ([]models.Report, error)
	UpdateSolved(ctx context.Context, id uuid.UUID, change SolvedChange) (*models.Report, error)
}

type GormReportRepository struct {
	db *gorm.DB
}

func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

func (r *GormReportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *GormReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return &report, nil
}

func (r *GormReportRepository) List(ctx context.Context, opts ListOptions) ([]models.Report, error) {
	query := r.db.WithContext(ctx).Model(&models.Report{})
	if solved, ok := opts.Filter.Solved(); ok {
		query = query.Where("solved = ?", solved)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	reports := make([]models.Report, 0)
	if err := query.Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// UpdateSolved writes the solved columns in a single UPDATE ... RETURNING so
// the caller sees the row exactly as stored.
func (r *GormReportRepository) UpdateSolved(ctx context.Context, id uuid.UUID, change SolvedChange) (*models.Report, error) {
	var report models.Report
	result := r.db.WithContext(ctx).
		Model(&report).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"solved":    change.Solved,
			"solved_at": change.SolvedAt,
			"solved_by": change.SolvedBy,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("update report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrReportNotFound
	}
	return &report, nil
}
