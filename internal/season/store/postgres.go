package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"namemint/internal/season/models"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
)

// Postgres is the production season store.
//
// Schema:
//
//	CREATE TABLE seasons (
//	    id              BIGSERIAL PRIMARY KEY,
//	    name            TEXT NOT NULL,
//	    start_time      TIMESTAMPTZ NOT NULL,
//	    end_time        TIMESTAMPTZ NOT NULL,
//	    max_names       INT NOT NULL,
//	    min_name_length INT NOT NULL,
//	    max_name_length INT NOT NULL,
//	    price           BIGINT NOT NULL,
//	    status          TEXT NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    updated_at      TIMESTAMPTZ NOT NULL
//	);
//	-- the database-level backstop for the single-active invariant
//	CREATE UNIQUE INDEX seasons_one_active ON seasons ((TRUE)) WHERE status = 'active';
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const seasonColumns = `id, name, start_time, end_time, max_names, min_name_length, max_name_length, price, status, created_at, updated_at`

func scanSeason(row interface{ Scan(...any) error }) (*models.Season, error) {
	var (
		season models.Season
		id     int64
		price  int64
		status string
	)
	err := row.Scan(&id, &season.Name, &season.StartTime, &season.EndTime,
		&season.MaxNames, &season.MinNameLength, &season.MaxNameLength,
		&price, &status, &season.CreatedAt, &season.UpdatedAt)
	if err != nil {
		return nil, err
	}
	season.ID = domain.SeasonID(id)
	season.Price = uint64(price)
	season.Status = models.Status(status)
	return &season, nil
}

func (s *Postgres) Create(ctx context.Context, season *models.Season) error {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO seasons (name, start_time, end_time, max_names, min_name_length, max_name_length, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		season.Name, season.StartTime, season.EndTime, season.MaxNames,
		season.MinNameLength, season.MaxNameLength, int64(season.Price),
		season.Status.String(), season.CreatedAt, season.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert season: %w", err)
	}
	season.ID = domain.SeasonID(id)
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.SeasonID) (*models.Season, error) {
	season, err := scanSeason(s.db.QueryRowContext(ctx,
		`SELECT `+seasonColumns+` FROM seasons WHERE id = $1`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get season: %w", err)
	}
	return season, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Season, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+seasonColumns+` FROM seasons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	var out []*models.Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		out = append(out, season)
	}
	return out, rows.Err()
}

func (s *Postgres) FindActive(ctx context.Context) (*models.Season, error) {
	season, err := scanSeason(s.db.QueryRowContext(ctx,
		`SELECT `+seasonColumns+` FROM seasons WHERE status = 'active'`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active season: %w", err)
	}
	return season, nil
}

// ActivateExclusive flips a draft season to active inside one transaction.
// The partial unique index on status='active' is the backstop: a concurrent
// activation loses with a unique violation, reported as ErrConflict.
func (s *Postgres) ActivateExclusive(ctx context.Context, id domain.SeasonID, now time.Time) (*models.Season, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM seasons WHERE id = $1 FOR UPDATE`, int64(id)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock season: %w", err)
	}
	if models.Status(status) != models.StatusDraft {
		return nil, sentinel.ErrInvalidState
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE seasons SET status = 'active', updated_at = $2 WHERE id = $1`, int64(id), now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("activate season: %w", err)
	}

	if err := tx.Commit(); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Execute runs a validate-then-mutate callback pair with the row locked
// FOR UPDATE, mirroring the memory store's atomic guard-and-write.
func (s *Postgres) Execute(ctx context.Context, id domain.SeasonID, validate func(*models.Season) error, apply func(*models.Season)) (*models.Season, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	season, err := scanSeason(tx.QueryRowContext(ctx,
		`SELECT `+seasonColumns+` FROM seasons WHERE id = $1 FOR UPDATE`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock season: %w", err)
	}

	if err := validate(season); err != nil {
		return nil, err
	}
	apply(season)

	_, err = tx.ExecContext(ctx,
		`UPDATE seasons SET status = $2, updated_at = $3 WHERE id = $1`,
		int64(id), season.Status.String(), season.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update season: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return season, nil
}

// Export snapshots all seasons for migration.
func (s *Postgres) Export(ctx context.Context) ([]*models.Season, error) {
	return s.List(ctx)
}

// Replace swaps in a migrated snapshot. Migration-manager use only.
func (s *Postgres) Replace(ctx context.Context, seasons []*models.Season) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM seasons`); err != nil {
		return fmt.Errorf("clear seasons: %w", err)
	}
	for _, season := range seasons {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO seasons (`+seasonColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			int64(season.ID), season.Name, season.StartTime, season.EndTime,
			season.MaxNames, season.MinNameLength, season.MaxNameLength,
			int64(season.Price), season.Status.String(), season.CreatedAt, season.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert season: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`SELECT setval(pg_get_serial_sequence('seasons', 'id'), COALESCE((SELECT MAX(id) FROM seasons), 0) + 1, false)`); err != nil {
		return fmt.Errorf("reset season sequence: %w", err)
	}
	return tx.Commit()
}
