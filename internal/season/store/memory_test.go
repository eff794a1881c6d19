package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"namemint/internal/season/models"
	"namemint/internal/season/store"
	"namemint/pkg/platform/sentinel"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSeason(t *testing.T, name string) *models.Season {
	t.Helper()
	season, err := models.NewSeason(name, now, now.Add(time.Hour), 10, 3, 10, 100, now)
	require.NoError(t, err)
	return season
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	first := newSeason(t, "one")
	second := newSeason(t, "two")
	require.NoError(t, s.Create(ctx, first))
	require.NoError(t, s.Create(ctx, second))
	require.Less(t, first.ID, second.ID)

	seasons, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, seasons, 2)
	require.Equal(t, "one", seasons[0].Name)
}

func TestActivateExclusive(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	first := newSeason(t, "one")
	second := newSeason(t, "two")
	require.NoError(t, s.Create(ctx, first))
	require.NoError(t, s.Create(ctx, second))

	_, err := s.ActivateExclusive(ctx, 99, now)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	activated, err := s.ActivateExclusive(ctx, first.ID, now)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, activated.Status)

	// A second activation hits the single-active exclusion.
	_, err = s.ActivateExclusive(ctx, second.ID, now)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	// Re-activating the active season fails the draft guard, not the
	// exclusion.
	_, err = s.ActivateExclusive(ctx, first.ID, now)
	require.ErrorIs(t, err, sentinel.ErrInvalidState)

	active, err := s.FindActive(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, active.ID)
}

func TestExecuteLeavesStateOnValidationFailure(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	season := newSeason(t, "one")
	require.NoError(t, s.Create(ctx, season))

	_, err := s.Execute(ctx, season.ID,
		func(se *models.Season) error { return se.CanEnd() },
		func(se *models.Season) { se.ApplyEnd(now) },
	)
	require.Error(t, err, "draft cannot end")

	got, err := s.FindByID(ctx, season.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, got.Status)
}

func TestExportReplaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	season := newSeason(t, "one")
	require.NoError(t, s.Create(ctx, season))
	_, err := s.ActivateExclusive(ctx, season.ID, now)
	require.NoError(t, err)

	snapshot, err := s.Export(ctx)
	require.NoError(t, err)

	fresh := store.NewInMemory()
	require.NoError(t, fresh.Replace(ctx, snapshot))

	active, err := fresh.FindActive(ctx)
	require.NoError(t, err)
	require.Equal(t, season.ID, active.ID)

	// Replace recomputes the ID sequence past the imported records.
	next := newSeason(t, "two")
	require.NoError(t, fresh.Create(ctx, next))
	require.Greater(t, next.ID, season.ID)
}
