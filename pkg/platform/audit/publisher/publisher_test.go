package publisher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	audit "namemint/pkg/platform/audit"
	"namemint/pkg/platform/audit/publisher"
	"namemint/pkg/platform/audit/store/memory"
)

func event(action audit.Action) audit.Event {
	return audit.Event{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Principal: "alice",
		Action:    string(action),
		Subject:   "name:abc",
	}
}

func TestEmitSynchronous(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	p := publisher.NewPublisher(store)

	require.NoError(t, p.Emit(ctx, event(audit.EventNameRegistered)))

	events, err := p.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, string(audit.EventNameRegistered), events[0].Action)
}

func TestEmitFillsCategoryFromAction(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	p := publisher.NewPublisher(store)

	require.NoError(t, p.Emit(ctx, event(audit.EventNameRegistered)))
	require.NoError(t, p.Emit(ctx, event(audit.EventRoleAssigned)))
	require.NoError(t, p.Emit(ctx, event(audit.EventSeasonEnded)))

	events, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, audit.CategoryCompliance, events[0].Category)
	require.Equal(t, audit.CategorySecurity, events[1].Category)
	require.Equal(t, audit.CategoryOperations, events[2].Category)
}

func TestEmitKeepsExplicitCategory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	p := publisher.NewPublisher(store)

	e := event(audit.EventSeasonEnded)
	e.Category = audit.CategorySecurity
	require.NoError(t, p.Emit(ctx, e))

	events, err := store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, audit.CategorySecurity, events[0].Category)
}

func TestAsyncBufferDrainsOnClose(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	p := publisher.NewPublisher(store, publisher.WithAsyncBuffer(16))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Emit(ctx, event(audit.EventNameRegistered)))
	}
	p.Close()

	events, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 5)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := publisher.NewPublisher(memory.NewInMemoryStore(), publisher.WithAsyncBuffer(1))
	p.Close()
	p.Close()
}
