package audit

import (
	"time"

	"namemint/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with financial significance: verified
	// payments, registrations, withdrawals. These require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: role assignments, admin bootstrap, rejected replays.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: season lifecycle, migrations.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Principal domain.Principal
	Action    string
	// Subject identifies what was acted on: a name, a season id, a target
	// principal, a version pair.
	Subject   string
	Decision  string
	Reason    string
	RequestID string
}

// Action is the enumerated set of audited actions.
type Action string

const (
	// Access control events
	EventAdminBootstrapped Action = "admin_bootstrapped"
	EventCallerRegistered  Action = "caller_registered"
	EventRoleAssigned      Action = "role_assigned"

	// Season events
	EventSeasonCreated   Action = "season_created"
	EventSeasonActivated Action = "season_activated"
	EventSeasonEnded     Action = "season_ended"
	EventSeasonCancelled Action = "season_cancelled"

	// Registration events
	EventNameRegistered        Action = "name_registered"
	EventPaymentReplayRejected Action = "payment_replay_rejected"

	// Treasury events
	EventWithdrawalExecuted Action = "withdrawal_executed"

	// Migration events
	EventMigrationApplied  Action = "migration_applied"
	EventMigrationRejected Action = "migration_rejected"
	EventRollbackExecuted  Action = "rollback_executed"

	// Content events
	EventContentUpdated Action = "content_updated"
)

// eventCategories is the source of truth for routing events to categories.
var eventCategories = map[Action]EventCategory{
	EventAdminBootstrapped:     CategorySecurity,
	EventCallerRegistered:      CategorySecurity,
	EventRoleAssigned:          CategorySecurity,
	EventSeasonCreated:         CategoryOperations,
	EventSeasonActivated:       CategoryOperations,
	EventSeasonEnded:           CategoryOperations,
	EventSeasonCancelled:       CategoryOperations,
	EventNameRegistered:        CategoryCompliance,
	EventPaymentReplayRejected: CategorySecurity,
	EventWithdrawalExecuted:    CategoryCompliance,
	EventMigrationApplied:      CategoryOperations,
	EventMigrationRejected:     CategoryOperations,
	EventRollbackExecuted:      CategoryOperations,
	EventContentUpdated:        CategoryOperations,
}

// Category returns the category an action routes to. Unknown actions route to
// operations.
func (a Action) Category() EventCategory {
	if c, ok := eventCategories[a]; ok {
		return c
	}
	return CategoryOperations
}
