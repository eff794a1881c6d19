package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"namemint/pkg/domain"
	audit "namemint/pkg/platform/audit"
	txcontext "namemint/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL.
//
// Schema:
//
//	CREATE TABLE audit_events (
//	    id         UUID PRIMARY KEY,
//	    category   TEXT NOT NULL,
//	    ts         TIMESTAMPTZ NOT NULL,
//	    principal  TEXT NOT NULL,
//	    action     TEXT NOT NULL,
//	    subject    TEXT NOT NULL DEFAULT '',
//	    decision   TEXT NOT NULL DEFAULT '',
//	    reason     TEXT NOT NULL DEFAULT '',
//	    request_id TEXT NOT NULL DEFAULT ''
//	);
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one audit event. When a SQL transaction is present in the
// context the event commits or rolls back with the business write.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.Action(event.Action).Category()
	}
	_, err := txcontext.ExecutorOr(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_events (id, category, ts, principal, action, subject, decision, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), string(category), event.Timestamp, event.Principal.String(),
		event.Action, event.Subject, event.Decision, event.Reason, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the most recent N events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, ts, principal, action, subject, decision, reason, request_id
		FROM audit_events ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e         audit.Event
			category  string
			ts        time.Time
			principal string
		)
		if err := rows.Scan(&category, &ts, &principal, &e.Action, &e.Subject, &e.Decision, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Timestamp = ts
		e.Principal = domain.Principal(principal)
		events = append(events, e)
	}
	return events, rows.Err()
}
