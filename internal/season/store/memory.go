package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"namemint/internal/season/models"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded season store. Cross-aggregate exclusion for
// the single-active-season invariant lives here: ActivateExclusive checks and
// flips status under one lock.
type InMemory struct {
	mu      sync.RWMutex
	seasons map[domain.SeasonID]*models.Season
	nextID  domain.SeasonID
}

func NewInMemory() *InMemory {
	return &InMemory{seasons: make(map[domain.SeasonID]*models.Season), nextID: 1}
}

// Create assigns the next monotonic ID and persists the season.
func (s *InMemory) Create(_ context.Context, season *models.Season) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	season.ID = s.nextID
	s.nextID++
	s.seasons[season.ID] = season.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.SeasonID) (*models.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	season, ok := s.seasons[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return season.Clone(), nil
}

// List returns all seasons ordered by ID.
func (s *InMemory) List(_ context.Context) ([]*models.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Season, 0, len(s.seasons))
	for _, season := range s.seasons {
		out = append(out, season.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindActive returns the single active season, or ErrNotFound.
func (s *InMemory) FindActive(_ context.Context) (*models.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, season := range s.seasons {
		if season.Status == models.StatusActive {
			return season.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ActivateExclusive transitions a draft season to active while holding the
// store lock, so the draft check and the no-other-active check cannot race.
// Returns ErrInvalidState when the target is not draft and ErrConflict when
// another season is already active. On failure nothing changes.
func (s *InMemory) ActivateExclusive(_ context.Context, id domain.SeasonID, now time.Time) (*models.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.seasons[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := target.CanActivate(); err != nil {
		return nil, sentinel.ErrInvalidState
	}
	for _, other := range s.seasons {
		if other.ID != id && other.Status == models.StatusActive {
			return nil, sentinel.ErrConflict
		}
	}

	target.ApplyActivation(now)
	return target.Clone(), nil
}

// Execute runs a validate-then-mutate callback pair while holding the lock,
// so the guard and the write are atomic. On validation failure the season is
// untouched.
func (s *InMemory) Execute(_ context.Context, id domain.SeasonID, validate func(*models.Season) error, apply func(*models.Season)) (*models.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	season, ok := s.seasons[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(season); err != nil {
		return nil, err
	}
	apply(season)
	return season.Clone(), nil
}

// Export snapshots all seasons for migration.
func (s *InMemory) Export(ctx context.Context) ([]*models.Season, error) {
	return s.List(ctx)
}

// Replace swaps in a migrated snapshot. Migration-manager use only.
func (s *InMemory) Replace(_ context.Context, seasons []*models.Season) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons = make(map[domain.SeasonID]*models.Season, len(seasons))
	s.nextID = 1
	for _, season := range seasons {
		s.seasons[season.ID] = season.Clone()
		if season.ID >= s.nextID {
			s.nextID = season.ID + 1
		}
	}
	return nil
}
