//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"namemint/internal/registration/store"
	seasonmodels "namemint/internal/season/models"
	seasonstore "namemint/internal/season/store"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
	"namemint/pkg/testutil/containers"
)

const registrySchema = `
CREATE TABLE seasons (
    id              BIGSERIAL PRIMARY KEY,
    name            TEXT NOT NULL,
    start_time      TIMESTAMPTZ NOT NULL,
    end_time        TIMESTAMPTZ NOT NULL,
    max_names       INT NOT NULL,
    min_name_length INT NOT NULL,
    max_name_length INT NOT NULL,
    price           BIGINT NOT NULL,
    status          TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX seasons_one_active ON seasons ((TRUE)) WHERE status = 'active';
CREATE TABLE name_records (
    name        TEXT PRIMARY KEY,
    target      TEXT NOT NULL,
    target_type TEXT NOT NULL,
    owner       TEXT NOT NULL,
    season_id   BIGINT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX name_records_owner ON name_records (owner);
CREATE TABLE verified_payments (
    id                UUID PRIMARY KEY,
    payer             TEXT NOT NULL,
    amount            BIGINT NOT NULL,
    block_index       BIGINT NOT NULL,
    tx_hash           TEXT NOT NULL DEFAULT '',
    verified_at       TIMESTAMPTZ NOT NULL,
    registration_name TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX verified_payments_block ON verified_payments (block_index);
`

func TestPostgresCommitRegistration(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	t.Cleanup(func() {
		_ = pg.DB.Close()
		_ = pg.Container.Terminate(ctx)
	})
	pg.Exec(t, registrySchema)

	now := time.Now().UTC().Truncate(time.Microsecond)

	seasons := seasonstore.NewPostgres(pg.DB)
	season, err := seasonmodels.NewSeason("launch",
		now.Add(-time.Hour), now.Add(time.Hour), 2, 3, 10, 100, now)
	require.NoError(t, err)
	require.NoError(t, seasons.Create(ctx, season))

	s := store.NewPostgres(pg.DB)
	payment, record := fixture("abc", "alice", 5)
	payment.VerifiedAt = now
	record.SeasonID = season.ID
	record.CreatedAt = now
	record.UpdatedAt = now

	require.NoError(t, s.CommitRegistration(ctx, payment, record, season.MaxNames))

	got, err := s.FindName(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, domain.Principal("alice"), got.Owner)
	require.Equal(t, season.ID, got.SeasonID)

	gotPayment, err := s.PaymentByBlockIndex(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(100), gotPayment.Amount)

	t.Run("unique violations map to precise reasons", func(t *testing.T) {
		p, r := fixture("abc", "bob", 6)
		r.SeasonID = season.ID
		require.ErrorIs(t, s.CommitRegistration(ctx, p, r, season.MaxNames), store.ErrNameTaken)

		p, r = fixture("def", "alice", 6)
		r.SeasonID = season.ID
		require.ErrorIs(t, s.CommitRegistration(ctx, p, r, season.MaxNames), store.ErrOwnerHasName)

		p, r = fixture("def", "bob", 5)
		r.SeasonID = season.ID
		require.ErrorIs(t, s.CommitRegistration(ctx, p, r, season.MaxNames), store.ErrPaymentConsumed)
	})

	t.Run("capacity enforced under season lock", func(t *testing.T) {
		p, r := fixture("def", "bob", 6)
		r.SeasonID = season.ID
		require.NoError(t, s.CommitRegistration(ctx, p, r, season.MaxNames))

		p, r = fixture("ghi", "carol", 7)
		r.SeasonID = season.ID
		require.ErrorIs(t, s.CommitRegistration(ctx, p, r, season.MaxNames), store.ErrSeasonFull)

		// The rejected attempt consumed nothing.
		_, err := s.PaymentByBlockIndex(ctx, 7)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("export and replace round-trip", func(t *testing.T) {
		snapshot, err := s.Export(ctx)
		require.NoError(t, err)
		require.Len(t, snapshot.Names, 2)
		require.Len(t, snapshot.Payments, 2)

		require.NoError(t, s.Replace(ctx, snapshot))
		count, err := s.CountBySeason(ctx, season.ID)
		require.NoError(t, err)
		require.Equal(t, 2, count)
	})
}
