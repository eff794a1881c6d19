// Package store holds the content stores.
package store

import (
	"context"
	"sync"
	"time"

	"namemint/internal/content/models"
	"namemint/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded content store.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]*models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]*models.Entry)}
}

func (s *InMemory) Get(_ context.Context, name string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return entry.Clone(), nil
}

// PutMetadata replaces the metadata map for a name.
func (s *InMemory) PutMetadata(_ context.Context, name string, metadata map[string]string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entry(name)
	entry.Metadata = metadata
	entry.UpdatedAt = now
	return nil
}

// PutMarkdown replaces the markdown document for a name.
func (s *InMemory) PutMarkdown(_ context.Context, name, markdown string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entry(name)
	entry.Markdown = markdown
	entry.UpdatedAt = now
	return nil
}

// PutFile records one filename -> hash binding for a name.
func (s *InMemory) PutFile(_ context.Context, name, filename, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entry(name)
	if entry.Files == nil {
		entry.Files = make(map[string]string)
	}
	entry.Files[filename] = hash
	entry.UpdatedAt = now
	return nil
}

// entry returns the live entry for a name, creating it if absent. Caller
// holds the write lock.
func (s *InMemory) entry(name string) *models.Entry {
	entry, ok := s.entries[name]
	if !ok {
		entry = &models.Entry{Name: name}
		s.entries[name] = entry
	}
	return entry
}
