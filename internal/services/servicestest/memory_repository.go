// Package servicestest provides an in-process ReportRepository for tests.
package servicestest

import (
	"context"
	"sort"
	"sync"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/google/uuid"
)

var _ services.ReportRepository = (*MemoryReportRepository)(nil)

// MemoryReportRepository keeps reports in a map. CreateErr and ListErr
// inject failures.
type MemoryReportRepository struct {
	mu        sync.Mutex
	reports   map[uuid.UUID]models.Report
	updates   int
	lastLimit int

	CreateErr error
	ListErr   error
}

func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{reports: make(map[uuid.UUID]models.Report)}
}

func (m *MemoryReportRepository) Create(_ context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.reports[report.ID] = *report
	return nil
}

func (m *MemoryReportRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, services.ErrReportNotFound
	}
	return &r, nil
}

func (m *MemoryReportRepository) List(_ context.Context, opts services.ListOptions) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = opts.Limit
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	out := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		if solved, ok := opts.Filter.Solved(); ok && r.Solved != solved {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryReportRepository) UpdateSolved(_ context.Context, id uuid.UUID, change services.SolvedChange) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, services.ErrReportNotFound
	}
	m.updates++
	r.Solved = change.Solved
	r.SolvedAt = change.SolvedAt
	r.SolvedBy = change.SolvedBy
	m.reports[id] = r
	return &r, nil
}

// Len returns the number of stored reports.
func (m *MemoryReportRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// Updates returns how many solved transitions were applied.
func (m *MemoryReportRepository) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

// LastLimit returns the limit of the most recent List call.
func (m *MemoryReportRepository) LastLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLimit
}
