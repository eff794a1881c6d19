package models

import (
	"regexp"
	"strings"
	"time"

	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
)

// AddressType says what a registered name points at.
type AddressType string

const (
	AddressTypeCanister AddressType = "canister"
	AddressTypeIdentity AddressType = "identity"
)

// ParseAddressType constructs an AddressType from external input.
func ParseAddressType(s string) (AddressType, error) {
	switch AddressType(s) {
	case AddressTypeCanister, AddressTypeIdentity:
		return AddressType(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown address type")
	}
}

// namePattern is the allowed-character policy: lowercase alphanumerics and
// inner hyphens. Names are case-insensitive; we normalize to lowercase at
// the boundary and store only the lowercase form.
var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// NormalizeName lowercases a requested name and validates the character
// policy. Length bounds are per-season and checked by the service.
func NormalizeName(s string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return "", dErrors.New(dErrors.CodeValidation, "name may contain only lowercase letters, digits and inner hyphens")
	}
	return name, nil
}

// NameRecord is a permanently owned name-to-address binding. Records are
// created exactly once by registration and never deleted; only
// owner-initiated content association touches UpdatedAt afterwards.
//
// Invariants:
//   - Name is globally unique across all seasons (lowercase form)
//   - Owner holds at most one name globally
//   - SeasonID is the season that was active at registration time
type NameRecord struct {
	Name       string           `json:"name"`
	Target     string           `json:"target"`
	TargetType AddressType      `json:"target_type"`
	Owner      domain.Principal `json:"owner"`
	SeasonID   domain.SeasonID  `json:"season_id"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Clone returns a copy so store internals never leak mutable records.
func (r *NameRecord) Clone() *NameRecord {
	out := *r
	return &out
}

// VerifiedPayment is the audit record proving a specific external transfer
// paid for a specific registration. BlockIndex is the idempotency anchor: at
// most one VerifiedPayment ever exists per block index.
type VerifiedPayment struct {
	ID               domain.PaymentID  `json:"id"`
	Payer            domain.Principal  `json:"payer"`
	Amount           uint64            `json:"amount"`
	BlockIndex       domain.BlockIndex `json:"block_index"`
	TxHash           string            `json:"tx_hash,omitempty"`
	VerifiedAt       time.Time         `json:"verified_at"`
	RegistrationName string            `json:"registration_name,omitempty"`
}

// Clone returns a copy so store internals never leak mutable records.
func (p *VerifiedPayment) Clone() *VerifiedPayment {
	out := *p
	return &out
}

// State is a point-in-time snapshot of the registry, used by the migration
// manager at upgrade boundaries.
type State struct {
	Names    []*NameRecord      `json:"names"`
	Payments []*VerifiedPayment `json:"payments"`
}

// Clone returns a deep copy so migration transformers never alias live state.
func (s State) Clone() State {
	out := State{
		Names:    make([]*NameRecord, 0, len(s.Names)),
		Payments: make([]*VerifiedPayment, 0, len(s.Payments)),
	}
	for _, r := range s.Names {
		out.Names = append(out.Names, r.Clone())
	}
	for _, p := range s.Payments {
		out.Payments = append(out.Payments, p.Clone())
	}
	return out
}
