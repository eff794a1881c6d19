// Package models holds the migration manager's domain types: schema
// versions, the aggregate snapshot migrations operate on, migration steps and
// the append-only history record.
package models

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	accessmodels "namemint/internal/access/models"
	regmodels "namemint/internal/registration/models"
	seasonmodels "namemint/internal/season/models"
)

// Snapshot is the full aggregate state at an upgrade boundary: access
// control, seasons and the registry, migrated together or not at all.
type Snapshot struct {
	Access   accessmodels.State     `json:"access"`
	Seasons  []*seasonmodels.Season `json:"seasons"`
	Registry regmodels.State        `json:"registry"`
}

// Clone returns a deep copy so transformers never alias live state.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Access:   s.Access.Clone(),
		Seasons:  make([]*seasonmodels.Season, 0, len(s.Seasons)),
		Registry: s.Registry.Clone(),
	}
	for _, season := range s.Seasons {
		out.Seasons = append(out.Seasons, season.Clone())
	}
	return out
}

// Checksum is an FNV-1a hash over the snapshot's canonical JSON
// serialization (struct fields in declaration order, map keys sorted). It
// detects unintended drift between expected and actual post-migration shape;
// it is not a security measure.
func Checksum(s Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("serialize snapshot: %w", err)
	}
	h := fnv.New64a()
	_, _ = h.Write(raw)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Step is a schema transformer. Transform must be pure over its input; the
// manager hands it a deep copy and discards the result unless Validate
// accepts it. Inverse, when present, undoes Transform and powers rollback.
type Step struct {
	Name      string
	Transform func(Snapshot) (Snapshot, error)
	Validate  func(Snapshot) error
	Inverse   func(Snapshot) (Snapshot, error)
}

// MigrationInfo is one immutable history record. Every attempt appends one,
// success or failure; records are never mutated or pruned.
type MigrationInfo struct {
	FromVersion Version   `json:"from_version"`
	ToVersion   Version   `json:"to_version"`
	Timestamp   time.Time `json:"timestamp"`
	Success     bool      `json:"success"`
	Rollback    bool      `json:"rollback"`
	Log         []string  `json:"log"`
	Checksum    string    `json:"checksum,omitempty"`
}

// Clone returns a copy with its own log slice.
func (m MigrationInfo) Clone() MigrationInfo {
	out := m
	out.Log = append([]string(nil), m.Log...)
	return out
}
