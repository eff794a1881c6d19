package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"namemint/internal/access/models"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
)

// Postgres is the production role store.
//
// Schema:
//
//	CREATE TABLE access_roles (
//	    principal  TEXT PRIMARY KEY,
//	    role       TEXT NOT NULL
//	);
//	CREATE TABLE access_meta (
//	    id             BOOLEAN PRIMARY KEY DEFAULT TRUE,
//	    admin_assigned BOOLEAN NOT NULL DEFAULT FALSE
//	);
//	INSERT INTO access_meta DEFAULT VALUES;
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Get(ctx context.Context, p domain.Principal) (models.Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM access_roles WHERE principal = $1`, p.String()).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return models.Role(role), nil
}

// RegisterIfAbsent records a principal on first contact. The admin_assigned
// row is locked FOR UPDATE so concurrent first contacts serialize on the
// bootstrap decision.
func (s *Postgres) RegisterIfAbsent(ctx context.Context, p domain.Principal) (models.Role, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT role FROM access_roles WHERE principal = $1`, p.String()).Scan(&existing)
	if err == nil {
		return models.Role(existing), false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("lookup role: %w", err)
	}

	var adminAssigned bool
	if err := tx.QueryRowContext(ctx,
		`SELECT admin_assigned FROM access_meta FOR UPDATE`).Scan(&adminAssigned); err != nil {
		return "", false, fmt.Errorf("lock access meta: %w", err)
	}

	role := models.RoleUser
	if !adminAssigned {
		role = models.RoleAdmin
		if _, err := tx.ExecContext(ctx,
			`UPDATE access_meta SET admin_assigned = TRUE`); err != nil {
			return "", false, fmt.Errorf("mark admin assigned: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO access_roles (principal, role) VALUES ($1, $2)`,
		p.String(), role.String()); err != nil {
		return "", false, fmt.Errorf("insert role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("commit: %w", err)
	}
	return role, true, nil
}

func (s *Postgres) Assign(ctx context.Context, p domain.Principal, role models.Role) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_roles (principal, role) VALUES ($1, $2)
		ON CONFLICT (principal) DO UPDATE SET role = EXCLUDED.role`,
		p.String(), role.String())
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (s *Postgres) Export(ctx context.Context) (models.State, error) {
	st := models.State{Roles: make(map[domain.Principal]models.Role)}
	if err := s.db.QueryRowContext(ctx,
		`SELECT admin_assigned FROM access_meta`).Scan(&st.AdminAssigned); err != nil {
		return models.State{}, fmt.Errorf("read access meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT principal, role FROM access_roles`)
	if err != nil {
		return models.State{}, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var principal, role string
		if err := rows.Scan(&principal, &role); err != nil {
			return models.State{}, fmt.Errorf("scan role: %w", err)
		}
		st.Roles[domain.Principal(principal)] = models.Role(role)
	}
	return st, rows.Err()
}

func (s *Postgres) Replace(ctx context.Context, st models.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM access_roles`); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE access_meta SET admin_assigned = $1`, st.AdminAssigned); err != nil {
		return fmt.Errorf("write access meta: %w", err)
	}
	for principal, role := range st.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO access_roles (principal, role) VALUES ($1, $2)`,
			principal.String(), role.String()); err != nil {
			return fmt.Errorf("insert role: %w", err)
		}
	}
	return tx.Commit()
}
