package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services/servicestest"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/storage"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/storage/storagetest"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/validation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := make([]string, len(p.events))
	for i, e := range p.events {
		ops[i] = e.Op
	}
	return ops
}

type fixture struct {
	repo      *servicestest.MemoryReportRepository
	objects   *storagetest.Memory
	publisher *recordingPublisher
	store     *services.ReportStore
	auth      *services.AuthService
	query     *services.QueryService
	mod       *services.ModerationService
	cfg       *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		JWTAccessExpiry: time.Hour,
		PublicBaseURL:   "https://reports.example.org",
		StorageBucket:   "report-images",
	}

	f := &fixture{
		repo:      servicestest.NewMemoryReportRepository(),
		objects:   storagetest.NewMemory(),
		publisher: &recordingPublisher{},
		cfg:       cfg,
	}
	f.store = services.NewReportStore(f.repo, f.objects, storage.NewURLResolver(cfg.PublicBaseURL, cfg.StorageBucket), f.publisher)
	f.auth = services.NewAuthService(cfg)
	f.query = services.NewQueryService(f.store)
	f.mod = services.NewModerationService(f.store, f.auth)
	return f
}

func (f *fixture) token(t *testing.T, subject string) string {
	t.Helper()
	token, _, err := f.auth.IssueToken(subject, subject+"@example.org")
	require.NoError(t, err)
	return token
}

// seed inserts a report directly, bypassing the gateway.
func (f *fixture) seed(t *testing.T, description string, createdAt time.Time, solved bool) models.Report {
	t.Helper()
	r := models.Report{
		ID:          uuid.New(),
		Description: description,
		ImagePath:   uuid.NewString() + ".jpg",
		CreatedAt:   createdAt,
	}
	if solved {
		at := createdAt.Add(time.Minute)
		by := "admin"
		r.Solved = true
		r.SolvedAt = &at
		r.SolvedBy = &by
	}
	require.NoError(t, f.repo.Create(context.Background(), &r))
	return r
}

func validSubmission(t *testing.T, description string) validation.ValidatedSubmission {
	t.Helper()
	sub, err := validation.New(false).Validate(validation.Submission{
		Image: &validation.Image{
			Filename:    "leak.jpg",
			ContentType: "image/jpeg",
			Data:        make([]byte, 1024),
		},
		Description: description,
		Location:    "Main St & 3rd",
	})
	require.NoError(t, err)
	return sub
}
