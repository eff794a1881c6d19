package models

import (
	"time"

	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
)

// Season is a time-boxed, capacity-limited, priced registration window.
//
// Invariants:
//   - EndTime > StartTime
//   - MinNameLength <= MaxNameLength, both positive
//   - MaxNames > 0
//   - at most one season has Status = active at any instant (enforced by the
//     store, which owns cross-aggregate exclusion)
//   - status transitions are monotonic; see Status
type Season struct {
	ID            domain.SeasonID `json:"id"`
	Name          string          `json:"name"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	MaxNames      int             `json:"max_names"`
	MinNameLength int             `json:"min_name_length"`
	MaxNameLength int             `json:"max_name_length"`
	Price         uint64          `json:"price"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewSeason validates invariants and returns a draft season. The store
// assigns the ID on creation.
func NewSeason(name string, start, end time.Time, maxNames, minLen, maxLen int, price uint64, now time.Time) (*Season, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "season name cannot be empty")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "season end time must be after start time")
	}
	if maxNames <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "season capacity must be positive")
	}
	if minLen <= 0 || maxLen < minLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid name length bounds")
	}
	return &Season{
		Name:          name,
		StartTime:     start,
		EndTime:       end,
		MaxNames:      maxNames,
		MinNameLength: minLen,
		MaxNameLength: maxLen,
		Price:         price,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsOpenAt reports whether the season accepts registrations at the given
// instant: active status and t within [StartTime, EndTime].
func (s *Season) IsOpenAt(t time.Time) bool {
	return s.Status == StatusActive && !t.Before(s.StartTime) && !t.After(s.EndTime)
}

// CanActivate checks the draft->active transition guard. The single-active
// invariant is checked by the store, not here.
func (s *Season) CanActivate() error {
	if !s.Status.CanTransitionTo(StatusActive) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot activate a %s season", s.Status)
	}
	return nil
}

// ApplyActivation transitions the season to active. Call CanActivate first.
func (s *Season) ApplyActivation(now time.Time) {
	s.Status = StatusActive
	s.UpdatedAt = now
}

// CanEnd checks the active->ended transition guard.
func (s *Season) CanEnd() error {
	if !s.Status.CanTransitionTo(StatusEnded) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot end a %s season", s.Status)
	}
	return nil
}

// ApplyEnd transitions the season to ended. Call CanEnd first.
func (s *Season) ApplyEnd(now time.Time) {
	s.Status = StatusEnded
	s.UpdatedAt = now
}

// CanCancel checks the draft/active->cancelled transition guard.
func (s *Season) CanCancel() error {
	if !s.Status.CanTransitionTo(StatusCancelled) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot cancel a %s season", s.Status)
	}
	return nil
}

// ApplyCancel transitions the season to cancelled. Call CanCancel first.
func (s *Season) ApplyCancel(now time.Time) {
	s.Status = StatusCancelled
	s.UpdatedAt = now
}

// Clone returns a copy so store internals never leak mutable aggregates.
func (s *Season) Clone() *Season {
	out := *s
	return &out
}

// ActiveSeasonInfo is the read model served on the registration hot path.
type ActiveSeasonInfo struct {
	Season            *Season `json:"season"`
	RemainingCapacity int     `json:"remaining_capacity"`
	Price             uint64  `json:"price"`
}
