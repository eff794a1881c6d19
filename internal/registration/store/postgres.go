package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"namemint/internal/registration/models"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
)

// Postgres is the production registry store.
//
// Schema:
//
//	CREATE TABLE name_records (
//	    name        TEXT PRIMARY KEY,
//	    target      TEXT NOT NULL,
//	    target_type TEXT NOT NULL,
//	    owner       TEXT NOT NULL,
//	    season_id   BIGINT NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX name_records_owner ON name_records (owner);
//	CREATE TABLE verified_payments (
//	    id                UUID PRIMARY KEY,
//	    payer             TEXT NOT NULL,
//	    amount            BIGINT NOT NULL,
//	    block_index       BIGINT NOT NULL,
//	    tx_hash           TEXT NOT NULL DEFAULT '',
//	    verified_at       TIMESTAMPTZ NOT NULL,
//	    registration_name TEXT NOT NULL DEFAULT ''
//	);
//	CREATE UNIQUE INDEX verified_payments_block ON verified_payments (block_index);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const nameColumns = `name, target, target_type, owner, season_id, created_at, updated_at`
const paymentColumns = `id, payer, amount, block_index, tx_hash, verified_at, registration_name`

func scanName(row interface{ Scan(...any) error }) (*models.NameRecord, error) {
	var (
		record     models.NameRecord
		targetType string
		owner      string
		seasonID   int64
	)
	err := row.Scan(&record.Name, &record.Target, &targetType, &owner, &seasonID,
		&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	record.TargetType = models.AddressType(targetType)
	record.Owner = domain.Principal(owner)
	record.SeasonID = domain.SeasonID(seasonID)
	return &record, nil
}

func scanPayment(row interface{ Scan(...any) error }) (*models.VerifiedPayment, error) {
	var (
		payment    models.VerifiedPayment
		id         uuid.UUID
		payer      string
		amount     int64
		blockIndex int64
	)
	err := row.Scan(&id, &payer, &amount, &blockIndex, &payment.TxHash,
		&payment.VerifiedAt, &payment.RegistrationName)
	if err != nil {
		return nil, err
	}
	payment.ID = domain.PaymentID(id)
	payment.Payer = domain.Principal(payer)
	payment.Amount = uint64(amount)
	payment.BlockIndex = domain.BlockIndex(blockIndex)
	return &payment, nil
}

func (s *Postgres) FindName(ctx context.Context, name string) (*models.NameRecord, error) {
	record, err := scanName(s.db.QueryRowContext(ctx,
		`SELECT `+nameColumns+` FROM name_records WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get name record: %w", err)
	}
	return record, nil
}

func (s *Postgres) FindByOwner(ctx context.Context, owner domain.Principal) (*models.NameRecord, error) {
	record, err := scanName(s.db.QueryRowContext(ctx,
		`SELECT `+nameColumns+` FROM name_records WHERE owner = $1`, owner.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get name record by owner: %w", err)
	}
	return record, nil
}

func (s *Postgres) PaymentByBlockIndex(ctx context.Context, blockIndex domain.BlockIndex) (*models.VerifiedPayment, error) {
	payment, err := scanPayment(s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM verified_payments WHERE block_index = $1`, int64(blockIndex)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

func (s *Postgres) CountBySeason(ctx context.Context, id domain.SeasonID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM name_records WHERE season_id = $1`, int64(id)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count names: %w", err)
	}
	return count, nil
}

func (s *Postgres) ListBySeason(ctx context.Context, id domain.SeasonID) ([]*models.NameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nameColumns+` FROM name_records WHERE season_id = $1 ORDER BY created_at`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()

	var out []*models.NameRecord
	for rows.Next() {
		record, err := scanName(rows)
		if err != nil {
			return nil, fmt.Errorf("scan name record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *Postgres) ListPayments(ctx context.Context) ([]*models.VerifiedPayment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM verified_payments ORDER BY block_index`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*models.VerifiedPayment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, payment)
	}
	return out, rows.Err()
}

// CommitRegistration persists the payment and the record in one transaction.
// The season row is locked FOR UPDATE to serialize the capacity count;
// unique indexes on name, owner and block_index are the recheck for the
// remaining invariants, with violations mapped back to precise reasons.
func (s *Postgres) CommitRegistration(ctx context.Context, payment *models.VerifiedPayment, record *models.NameRecord, maxNames int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`SELECT id FROM seasons WHERE id = $1 FOR UPDATE`, int64(record.SeasonID)); err != nil {
		return fmt.Errorf("lock season: %w", err)
	}

	var used int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM name_records WHERE season_id = $1`, int64(record.SeasonID)).Scan(&used); err != nil {
		return fmt.Errorf("count names: %w", err)
	}
	if used >= maxNames {
		return ErrSeasonFull
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO name_records (`+nameColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.Name, record.Target, string(record.TargetType), record.Owner.String(),
		int64(record.SeasonID), record.CreatedAt, record.UpdatedAt,
	); err != nil {
		return mapUniqueViolation(err, "insert name record")
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO verified_payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(payment.ID), payment.Payer.String(), int64(payment.Amount),
		int64(payment.BlockIndex), payment.TxHash, payment.VerifiedAt, payment.RegistrationName,
	); err != nil {
		return mapUniqueViolation(err, "insert payment")
	}

	if err := tx.Commit(); err != nil {
		return mapUniqueViolation(err, "commit registration")
	}
	return nil
}

func mapUniqueViolation(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "owner"):
			return ErrOwnerHasName
		case strings.Contains(pqErr.Constraint, "block"):
			return ErrPaymentConsumed
		default:
			return ErrNameTaken
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Export snapshots the registry for migration.
func (s *Postgres) Export(ctx context.Context) (models.State, error) {
	names, err := s.db.QueryContext(ctx, `SELECT `+nameColumns+` FROM name_records ORDER BY name`)
	if err != nil {
		return models.State{}, fmt.Errorf("list names: %w", err)
	}
	defer names.Close()

	var st models.State
	for names.Next() {
		record, err := scanName(names)
		if err != nil {
			return models.State{}, fmt.Errorf("scan name record: %w", err)
		}
		st.Names = append(st.Names, record)
	}
	if err := names.Err(); err != nil {
		return models.State{}, err
	}

	payments, err := s.ListPayments(ctx)
	if err != nil {
		return models.State{}, err
	}
	st.Payments = payments
	return st, nil
}

// Replace swaps in a migrated snapshot. Migration-manager use only.
func (s *Postgres) Replace(ctx context.Context, st models.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM name_records`); err != nil {
		return fmt.Errorf("clear names: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM verified_payments`); err != nil {
		return fmt.Errorf("clear payments: %w", err)
	}
	for _, record := range st.Names {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO name_records (`+nameColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			record.Name, record.Target, string(record.TargetType), record.Owner.String(),
			int64(record.SeasonID), record.CreatedAt, record.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert name record: %w", err)
		}
	}
	for _, payment := range st.Payments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO verified_payments (`+paymentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.UUID(payment.ID), payment.Payer.String(), int64(payment.Amount),
			int64(payment.BlockIndex), payment.TxHash, payment.VerifiedAt, payment.RegistrationName,
		); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}
	return tx.Commit()
}
