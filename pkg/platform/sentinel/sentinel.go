package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrAlreadyUsed: resource (name, block index) already consumed
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrCapacityReached: season has no remaining name slots
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyUsed     = errors.New("already used")
	ErrInvalidState    = errors.New("invalid state")
	ErrCapacityReached = errors.New("capacity reached")
	ErrUnavailable     = errors.New("unavailable")
)
