package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSolved_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.seed(t, "Open hydrant", time.Now().Add(-time.Hour), false)
	token := f.token(t, "admin-1")

	solved, err := f.mod.SetSolved(ctx, token, report.ID.String(), []byte(`{"solved": true}`))
	require.NoError(t, err)
	assert.True(t, solved.Solved)
	require.NotNil(t, solved.SolvedAt)
	require.NotNil(t, solved.SolvedBy)
	assert.Equal(t, "admin-1", *solved.SolvedBy)
	assert.WithinDuration(t, time.Now(), *solved.SolvedAt, 5*time.Second)

	pending, err := f.mod.SetSolved(ctx, token, report.ID.String(), []byte(`{"solved": false}`))
	require.NoError(t, err)
	assert.False(t, pending.Solved)
	assert.Nil(t, pending.SolvedAt)
	assert.Nil(t, pending.SolvedBy)

	stored, err := f.store.GetReport(ctx, report.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.Solved)
	assert.Nil(t, stored.SolvedAt)
	assert.Nil(t, stored.SolvedBy)

	assert.Equal(t, []string{realtime.OpUpdate, realtime.OpUpdate}, f.publisher.ops())
}

func TestSetSolved_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.seed(t, "Leak", time.Now(), false)
	token := f.token(t, "admin-1")

	for i := 0; i < 2; i++ {
		r, err := f.mod.SetSolved(ctx, token, report.ID.String(), []byte(`{"solved":true}`))
		require.NoError(t, err)
		assert.True(t, r.Solved)
	}
}

func TestSetSolved_UnauthorizedDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.seed(t, "Leak", time.Now(), false)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"garbage token", "not-a-jwt"},
		{"foreign signature", foreignToken(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mod.SetSolved(ctx, tt.token, report.ID.String(), []byte(`{"solved":true}`))
			assert.ErrorIs(t, err, services.ErrUnauthorized)
		})
	}

	assert.Equal(t, 0, f.repo.Updates())
	stored, err := f.store.GetReport(ctx, report.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.Solved)
	assert.Empty(t, f.publisher.ops())
}

func TestSetSolved_NotAllowlisted(t *testing.T) {
	f := newFixture(t)
	f.cfg.AdminUserIDs = "admin-1"
	f.auth = services.NewAuthService(f.cfg)
	f.mod = services.NewModerationService(f.store, f.auth)
	report := f.seed(t, "Leak", time.Now(), false)

	_, err := f.mod.SetSolved(context.Background(), f.token(t, "someone-else"), report.ID.String(), []byte(`{"solved":true}`))
	assert.ErrorIs(t, err, services.ErrUnauthorized)
	assert.Equal(t, 0, f.repo.Updates())

	_, err = f.mod.SetSolved(context.Background(), f.token(t, "admin-1"), report.ID.String(), []byte(`{"solved":true}`))
	assert.NoError(t, err)
}

func TestSetSolved_InvalidBody(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, "Leak", time.Now(), false)
	token := f.token(t, "admin-1")

	bodies := []string{
		``,
		`{}`,
		`{"solved":"yes"}`,
		`{"solved":1}`,
		`{"solved":null}`,
		`{"solved":true,"solved_by":"me"}`,
		`{"solved":true}{"solved":false}`,
		`[true]`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			_, err := f.mod.SetSolved(context.Background(), token, report.ID.String(), []byte(body))
			require.ErrorIs(t, err, services.ErrInvalidInput)
			assert.Contains(t, err.Error(), "invalid")
		})
	}
	assert.Equal(t, 0, f.repo.Updates())
}

func TestSetSolved_UnknownReport(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "admin-1")

	_, err := f.mod.SetSolved(context.Background(), token, "6f1c1f7e-5d1e-4f0e-9a59-8d2f4a0c9b11", []byte(`{"solved":true}`))
	assert.ErrorIs(t, err, services.ErrReportNotFound)

	_, err = f.mod.SetSolved(context.Background(), token, "abc", []byte(`{"solved":true}`))
	assert.ErrorIs(t, err, services.ErrReportNotFound)
}

func foreignToken(t *testing.T) string {
	t.Helper()
	other := newFixture(t)
	other.cfg.JWTSecret = "another-secret"
	token, _, err := services.NewAuthService(other.cfg).IssueToken("admin-1", "admin@example.org")
	require.NoError(t, err)
	return token
}
