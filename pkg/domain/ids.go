package domain

import "github.com/google/uuid"

// SeasonID identifies a registration season. IDs are assigned monotonically
// by the season store, starting at 1.
type SeasonID uint64

// IsNil returns true when the season ID has not been assigned.
func (id SeasonID) IsNil() bool { return id == 0 }

// PaymentID identifies a verified payment record.
type PaymentID uuid.UUID

// NewPaymentID returns a fresh payment ID.
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }

// IsNil returns true when the payment ID is the zero UUID.
func (id PaymentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// String returns the canonical UUID form.
func (id PaymentID) String() string { return uuid.UUID(id).String() }

// MarshalText renders the canonical UUID form so JSON responses and
// migration snapshots carry a string, not a byte array.
func (id PaymentID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText parses the canonical UUID form.
func (id *PaymentID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// BlockIndex is the external ledger's reference to a confirmed transfer. It
// is the idempotency key for registration: at most one verified payment may
// ever exist per block index.
type BlockIndex uint64
