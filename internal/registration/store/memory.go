package store

import (
	"context"
	"sort"
	"sync"

	"namemint/internal/registration/models"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded registry store. The single lock is what
// makes CommitRegistration's recheck-then-write atomic.
type InMemory struct {
	mu       sync.RWMutex
	names    map[string]*models.NameRecord
	byOwner  map[domain.Principal]string
	payments map[domain.BlockIndex]*models.VerifiedPayment
}

func NewInMemory() *InMemory {
	return &InMemory{
		names:    make(map[string]*models.NameRecord),
		byOwner:  make(map[domain.Principal]string),
		payments: make(map[domain.BlockIndex]*models.VerifiedPayment),
	}
}

func (s *InMemory) FindName(_ context.Context, name string) (*models.NameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.names[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemory) FindByOwner(_ context.Context, owner domain.Principal) (*models.NameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.byOwner[owner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.names[name].Clone(), nil
}

func (s *InMemory) PaymentByBlockIndex(_ context.Context, blockIndex domain.BlockIndex) (*models.VerifiedPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payment, ok := s.payments[blockIndex]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return payment.Clone(), nil
}

func (s *InMemory) CountBySeason(_ context.Context, id domain.SeasonID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, record := range s.names {
		if record.SeasonID == id {
			count++
		}
	}
	return count, nil
}

// ListBySeason returns the season's records ordered by creation time.
func (s *InMemory) ListBySeason(_ context.Context, id domain.SeasonID) ([]*models.NameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.NameRecord
	for _, record := range s.names {
		if record.SeasonID == id {
			out = append(out, record.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListPayments returns all verified payments ordered by block index.
func (s *InMemory) ListPayments(_ context.Context) ([]*models.VerifiedPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.VerifiedPayment, 0, len(s.payments))
	for _, payment := range s.payments {
		out = append(out, payment.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockIndex < out[j].BlockIndex })
	return out, nil
}

// CommitRegistration persists the payment and the record together, or
// neither. Every invariant the service checked before its oracle round trip
// is re-validated here, under the lock, immediately before the write: name
// uniqueness, one-name-per-owner, block-index uniqueness, and season
// capacity. maxNames is the capacity of the record's season.
func (s *InMemory) CommitRegistration(_ context.Context, payment *models.VerifiedPayment, record *models.NameRecord, maxNames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names[record.Name]; ok {
		return ErrNameTaken
	}
	if _, ok := s.byOwner[record.Owner]; ok {
		return ErrOwnerHasName
	}
	if _, ok := s.payments[payment.BlockIndex]; ok {
		return ErrPaymentConsumed
	}
	used := 0
	for _, existing := range s.names {
		if existing.SeasonID == record.SeasonID {
			used++
		}
	}
	if used >= maxNames {
		return ErrSeasonFull
	}

	s.names[record.Name] = record.Clone()
	s.byOwner[record.Owner] = record.Name
	s.payments[payment.BlockIndex] = payment.Clone()
	return nil
}

// Export snapshots the registry for migration.
func (s *InMemory) Export(ctx context.Context) (models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := models.State{}
	for _, record := range s.names {
		st.Names = append(st.Names, record)
	}
	for _, payment := range s.payments {
		st.Payments = append(st.Payments, payment)
	}
	sort.Slice(st.Names, func(i, j int) bool { return st.Names[i].Name < st.Names[j].Name })
	sort.Slice(st.Payments, func(i, j int) bool { return st.Payments[i].BlockIndex < st.Payments[j].BlockIndex })
	return st.Clone(), nil
}

// Replace swaps in a migrated snapshot. Migration-manager use only.
func (s *InMemory) Replace(_ context.Context, st models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st = st.Clone()
	s.names = make(map[string]*models.NameRecord, len(st.Names))
	s.byOwner = make(map[domain.Principal]string, len(st.Names))
	s.payments = make(map[domain.BlockIndex]*models.VerifiedPayment, len(st.Payments))
	for _, record := range st.Names {
		s.names[record.Name] = record
		s.byOwner[record.Owner] = record.Name
	}
	for _, payment := range st.Payments {
		s.payments[payment.BlockIndex] = payment
	}
	return nil
}
