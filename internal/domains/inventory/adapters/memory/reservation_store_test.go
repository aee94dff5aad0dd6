package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

func TestReservationStore_EvictsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewReservationStore()
	store.WithClock(func() time.Time { return now })

	for _, token := range []string{"a", "b"} {
		_, err := store.Save(ctx, ports.Reservation{
			Token:       token,
			RequestHash: "h",
			Result:      domain.Availability{Available: true},
			ExpiresAt:   now.Add(time.Minute),
		})
		require.NoError(t, err)
	}
	require.Equal(t, 2, store.size())

	now = now.Add(2 * time.Minute)
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = store.Save(ctx, ports.Reservation{Token: "c", RequestHash: "h", ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	require.Equal(t, 1, store.size())

	now = now.Add(2 * time.Minute)
	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
	require.Zero(t, store.size())
}

func TestReservationStore_ExpiredTokenCanBeReused(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewReservationStore()
	store.WithClock(func() time.Time { return now })

	_, err := store.Save(ctx, ports.Reservation{Token: "k1", RequestHash: "first", ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)

	_, err = store.Save(ctx, ports.Reservation{Token: "k1", RequestHash: "second", ExpiresAt: now.Add(time.Minute)})
	require.ErrorIs(t, err, ports.ErrReservationConflict)

	now = now.Add(time.Minute)
	saved, err := store.Save(ctx, ports.Reservation{Token: "k1", RequestHash: "second", ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	require.Equal(t, "second", saved.RequestHash)
	require.Equal(t, now, saved.CreatedAt)
}
