// Package store holds the registry stores. Names and payments live in one
// store because registration must commit a NameRecord and its
// VerifiedPayment together or not at all.
package store

import (
	"fmt"

	"namemint/pkg/platform/sentinel"
)

// Commit rejection reasons. CommitRegistration re-validates every uniqueness
// and capacity invariant at write time (the oracle round trip sits between
// the service's precondition checks and the commit) and reports exactly
// which one failed so the service can surface a precise business error.
// Each wraps the matching infra sentinel.
var (
	ErrNameTaken       = fmt.Errorf("name already registered: %w", sentinel.ErrConflict)
	ErrOwnerHasName    = fmt.Errorf("owner already holds a name: %w", sentinel.ErrConflict)
	ErrPaymentConsumed = fmt.Errorf("block index already consumed: %w", sentinel.ErrAlreadyUsed)
	ErrSeasonFull      = fmt.Errorf("season capacity reached: %w", sentinel.ErrCapacityReached)
)
