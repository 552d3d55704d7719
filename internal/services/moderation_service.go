package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/models"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid solved status")
)

// ModerationService applies solved/pending transitions on behalf of an
// authenticated administrator.
type ModerationService struct {
	store    *ReportStore
	verifier TokenVerifier
	now      func() time.Time
}

func NewModerationService(store *ReportStore, verifier TokenVerifier) *ModerationService {
	return &ModerationService{store: store, verifier: verifier, now: time.Now}
}

// SetSolved authorizes the caller, decodes the body and writes the new
// state. Nothing is written unless both checks pass. Concurrent toggles are
// last-write-wins.
func (s *ModerationService) SetSolved(ctx context.Context, token, reportID string, body []byte) (*models.Report, error) {
	principal, err := s.verifier.VerifyToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	update, err := dto.ParseModerationUpdate(body)
	if err != nil {
		return nil, ErrInvalidInput
	}

	change := SolvedChange{Solved: update.Solved}
	if update.Solved {
		at := s.now().UTC()
		by := principal.ID
		change.SolvedAt = &at
		change.SolvedBy = &by
	}

	report, err := s.store.UpdateSolved(ctx, reportID, change)
	if err != nil {
		return nil, err
	}

	state := "pending"
	if report.Solved {
		state = "solved"
	}
	metrics.ModerationTransitions.WithLabelValues(state).Inc()
	return report, nil
}
