package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/storage"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/validation"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrUploadFailed   = errors.New("image upload failed")
	ErrInsertFailed   = errors.New("report insert failed")
)

// ReportStore is the single gateway to report metadata and image objects.
type ReportStore struct {
	repo      ReportRepository
	objects   storage.ObjectStore
	urls      *storage.URLResolver
	publisher realtime.Publisher
	now       func() time.Time
}

func NewReportStore(repo ReportRepository, objects storage.ObjectStore, urls *storage.URLResolver, publisher realtime.Publisher) *ReportStore {
	return &ReportStore{
		repo:      repo,
		objects:   objects,
		urls:      urls,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateReport uploads the image and then inserts the row that references
// it. A failed insert removes the uploaded object again, so no object is
// left without a row.
func (s *ReportStore) CreateReport(ctx context.Context, sub validation.ValidatedSubmission) (*models.Report, error) {
	now := s.now().UTC()
	key := storage.NewObjectKey(now, sub.Image.Filename, sub.Image.ContentType)

	if err := s.objects.Put(ctx, key, sub.Image.Data, sub.Image.ContentType); err != nil {
		metrics.ReportCreateFailures.WithLabelValues("upload").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	report := &models.Report{
		ID:                   uuid.New(),
		Description:          sub.Description,
		ImagePath:            key,
		Location:             sub.Location,
		AnonymousDisplayName: sub.AnonymousDisplayName,
		CreatedAt:            now,
	}

	if err := s.repo.Create(ctx, report); err != nil {
		metrics.ReportCreateFailures.WithLabelValues("insert").Inc()
		s.discardObject(ctx, key)
		return nil, fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}

	metrics.ReportsCreated.Inc()
	s.publish(ctx, realtime.Event{Op: realtime.OpInsert, ReportID: report.ID.String(), At: now})
	return report, nil
}

func (s *ReportStore) discardObject(ctx context.Context, key string) {
	// The request may already be cancelled; the cleanup must still run.
	if err := s.objects.Delete(context.WithoutCancel(ctx), key); err != nil {
		metrics.ReportCreateFailures.WithLabelValues("cleanup").Inc()
		slog.Error("failed to remove image after insert failure",
			"action", "report_create_cleanup",
			"image_path", key,
			"error", err,
		)
		sentry.CaptureException(fmt.Errorf("orphaned image %s: %w", key, err))
	}
}

// GetReport returns ErrReportNotFound for unknown and malformed ids alike.
func (s *ReportStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	reportID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrReportNotFound
	}
	return s.repo.FindByID(ctx, reportID)
}

func (s *ReportStore) ListReports(ctx context.Context, opts ListOptions) ([]models.Report, error) {
	return s.repo.List(ctx, opts)
}

// UpdateSolved applies a moderation transition and announces it.
func (s *ReportStore) UpdateSolved(ctx context.Context, id string, change SolvedChange) (*models.Report, error) {
	reportID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrReportNotFound
	}

	report, err := s.repo.UpdateSolved(ctx, reportID, change)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.Event{Op: realtime.OpUpdate, ReportID: report.ID.String(), At: s.now().UTC()})
	return report, nil
}

// ResolveImageURL maps a stored image path to its public URL.
func (s *ReportStore) ResolveImageURL(imagePath string) string {
	return s.urls.Resolve(imagePath)
}

func (s *ReportStore) publish(ctx context.Context, e realtime.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.Warn("failed to publish report change", "op", e.Op, "report_id", e.ReportID, "error", err)
	}
}
