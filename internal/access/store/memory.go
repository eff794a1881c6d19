package store

import (
	"context"
	"sync"

	"namemint/internal/access/models"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded map implementation of the role store. It is
// the unit-test and dev backend; production uses Postgres.
type InMemory struct {
	mu            sync.RWMutex
	roles         map[domain.Principal]models.Role
	adminAssigned bool
}

func NewInMemory() *InMemory {
	return &InMemory{roles: make(map[domain.Principal]models.Role)}
}

// Get returns the persisted role for a principal.
func (s *InMemory) Get(_ context.Context, p domain.Principal) (models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[p]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return role, nil
}

// RegisterIfAbsent records a principal on first contact. The first principal
// ever registered becomes admin; everyone after that becomes a user. The
// bootstrap decision and the write happen under one lock so two first
// contacts can never both claim admin. Returns the (existing or new) role and
// whether a record was created.
func (s *InMemory) RegisterIfAbsent(_ context.Context, p domain.Principal) (models.Role, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if role, ok := s.roles[p]; ok {
		return role, false, nil
	}

	role := models.RoleUser
	if !s.adminAssigned {
		role = models.RoleAdmin
		s.adminAssigned = true
	}
	s.roles[p] = role
	return role, true, nil
}

// Assign unconditionally sets a principal's role, creating the record when
// the principal was never seen.
func (s *InMemory) Assign(_ context.Context, p domain.Principal, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[p] = role
	return nil
}

// Export snapshots the ledger for migration.
func (s *InMemory) Export(_ context.Context) (models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.State{AdminAssigned: s.adminAssigned, Roles: s.roles}.Clone(), nil
}

// Replace swaps in a migrated snapshot. Only the migration manager calls
// this, and only at an upgrade boundary.
func (s *InMemory) Replace(_ context.Context, st models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st = st.Clone()
	s.adminAssigned = st.AdminAssigned
	s.roles = st.Roles
	if s.roles == nil {
		s.roles = make(map[domain.Principal]models.Role)
	}
	return nil
}
