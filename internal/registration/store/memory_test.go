package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"namemint/internal/registration/models"
	"namemint/internal/registration/store"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
)

func fixture(name string, owner domain.Principal, blockIndex domain.BlockIndex) (*models.VerifiedPayment, *models.NameRecord) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payment := &models.VerifiedPayment{
		ID:               domain.NewPaymentID(),
		Payer:            owner,
		Amount:           100,
		BlockIndex:       blockIndex,
		VerifiedAt:       now,
		RegistrationName: name,
	}
	record := &models.NameRecord{
		Name:       name,
		Target:     "target",
		TargetType: models.AddressTypeCanister,
		Owner:      owner,
		SeasonID:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return payment, record
}

func TestCommitRegistration(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	payment, record := fixture("abc", "alice", 5)
	require.NoError(t, s.CommitRegistration(ctx, payment, record, 10))

	got, err := s.FindName(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, domain.Principal("alice"), got.Owner)

	byOwner, err := s.FindByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "abc", byOwner.Name)

	gotPayment, err := s.PaymentByBlockIndex(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "abc", gotPayment.RegistrationName)

	count, err := s.CountBySeason(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCommitRegistrationRejections(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *store.InMemory {
		t.Helper()
		s := store.NewInMemory()
		payment, record := fixture("abc", "alice", 5)
		require.NoError(t, s.CommitRegistration(ctx, payment, record, 10))
		return s
	}

	t.Run("name taken", func(t *testing.T) {
		s := seed(t)
		payment, record := fixture("abc", "bob", 6)
		require.ErrorIs(t, s.CommitRegistration(ctx, payment, record, 10), store.ErrNameTaken)
	})

	t.Run("owner has name", func(t *testing.T) {
		s := seed(t)
		payment, record := fixture("def", "alice", 6)
		require.ErrorIs(t, s.CommitRegistration(ctx, payment, record, 10), store.ErrOwnerHasName)
	})

	t.Run("payment consumed", func(t *testing.T) {
		s := seed(t)
		payment, record := fixture("def", "bob", 5)
		require.ErrorIs(t, s.CommitRegistration(ctx, payment, record, 10), store.ErrPaymentConsumed)
	})

	t.Run("season full", func(t *testing.T) {
		s := seed(t)
		payment, record := fixture("def", "bob", 6)
		require.ErrorIs(t, s.CommitRegistration(ctx, payment, record, 1), store.ErrSeasonFull)
	})

	t.Run("rejection writes nothing", func(t *testing.T) {
		s := seed(t)
		payment, record := fixture("def", "bob", 5)
		require.Error(t, s.CommitRegistration(ctx, payment, record, 10))

		_, err := s.FindName(ctx, "def")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = s.FindByOwner(ctx, "bob")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestExportReplace(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	p1, r1 := fixture("abc", "alice", 5)
	p2, r2 := fixture("def", "bob", 6)
	require.NoError(t, s.CommitRegistration(ctx, p1, r1, 10))
	require.NoError(t, s.CommitRegistration(ctx, p2, r2, 10))

	snapshot, err := s.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Names, 2)
	require.Len(t, snapshot.Payments, 2)
	require.Equal(t, "abc", snapshot.Names[0].Name)

	fresh := store.NewInMemory()
	require.NoError(t, fresh.Replace(ctx, snapshot))

	got, err := fresh.FindName(ctx, "def")
	require.NoError(t, err)
	require.Equal(t, domain.Principal("bob"), got.Owner)
	_, err = fresh.PaymentByBlockIndex(ctx, 5)
	require.NoError(t, err)
}
