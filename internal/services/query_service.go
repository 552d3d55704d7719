package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/models"
	"golang.org/x/text/cases"
)

// PublicListLimit caps the public listing.
const PublicListLimit = 50

var ErrInvalidFilter = errors.New("filter must be one of all, pending, solved")

// Filter selects reports by moderation state.
type Filter int

const (
	FilterAll Filter = iota
	FilterPending
	FilterSolved
)

func (f Filter) String() string {
	switch f {
	case FilterPending:
		return "pending"
	case FilterSolved:
		return "solved"
	default:
		return "all"
	}
}

// Solved returns the column value to match, or false when the filter does
// not constrain the query.
func (f Filter) Solved() (bool, bool) {
	switch f {
	case FilterPending:
		return false, true
	case FilterSolved:
		return true, true
	default:
		return false, false
	}
}

// ParseFilter reads the filter query parameter. The older solved=true|false
// form is honoured when filter is absent; any other solved value lists all.
func ParseFilter(filter, solved string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "all":
		return FilterAll, nil
	case "pending":
		return FilterPending, nil
	case "solved":
		return FilterSolved, nil
	case "":
	default:
		return FilterAll, ErrInvalidFilter
	}

	switch solved {
	case "true":
		return FilterSolved, nil
	case "false":
		return FilterPending, nil
	default:
		return FilterAll, nil
	}
}

// Scope decides the result bound.
type Scope int

const (
	ScopePublic Scope = iota
	ScopeAdmin
)

func (s Scope) limit() int {
	if s == ScopeAdmin {
		return 0
	}
	return PublicListLimit
}

type ListQuery struct {
	Filter Filter
	Search string
	Scope  Scope
}

type QueryService struct {
	store *ReportStore
}

func NewQueryService(store *ReportStore) *QueryService {
	return &QueryService{store: store}
}

// List pushes the filter down to the store and applies the search term to
// the returned rows, keeping newest-first order. An empty result is a
// non-nil empty slice.
func (q *QueryService) List(ctx context.Context, query ListQuery) ([]models.Report, error) {
	reports, err := q.store.ListReports(ctx, ListOptions{Filter: query.Filter, Limit: query.Scope.limit()})
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return SearchDescriptions(reports, query.Search), nil
}

// SearchDescriptions keeps reports whose description contains term under
// Unicode case folding. A blank term keeps everything.
func SearchDescriptions(reports []models.Report, term string) []models.Report {
	term = strings.TrimSpace(term)
	if term == "" {
		return reports
	}

	fold := cases.Fold()
	needle := fold.String(term)

	matched := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if strings.Contains(fold.String(r.Description), needle) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Stats counts the reports by state for the admin dashboard.
func Stats(reports []models.Report) dto.ReportStats {
	stats := dto.ReportStats{Total: len(reports)}
	for i := range reports {
		if reports[i].Pending() {
			stats.Pending++
		} else {
			stats.Solved++
		}
	}
	return stats
}
