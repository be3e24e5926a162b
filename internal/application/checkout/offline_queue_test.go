package checkout

import (
	"context"
	"testing"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOfflineQueue_AppendListRemove(t *testing.T) {
	ctx := context.Background()
	q := NewOfflineQueue(storage.NewMemoryStore(), nil)
	a, b := offlineOrder(t, "Tomates", "1"), offlineOrder(t, "Oignons", "2.5")

	require.NoError(t, q.Append(ctx, "s1", a))
	require.NoError(t, q.Append(ctx, "s1", b))
	require.NoError(t, q.Append(ctx, "s1", a), "re-appending replaces the entry")

	entries, err := q.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].ID)
	assert.Equal(t, a.ID, entries[1].ID)

	restored := entries[1].ToOrder()
	assert.True(t, restored.Offline)
	assert.True(t, restored.Total.Equal(a.Total))
	assert.NoError(t, restored.CheckTotal())
	assert.True(t, restored.CreatedAt.Equal(a.CreatedAt))

	require.NoError(t, q.Remove(ctx, "s1", a.ID, b.ID))
	entries, err = q.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	sessions, err := q.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions, "an empty queue is not stored")
}

func TestOfflineQueue_SessionsAndPending(t *testing.T) {
	ctx := context.Background()
	q := NewOfflineQueue(storage.NewMemoryStore(), nil)
	require.NoError(t, q.Append(ctx, "s2", offlineOrder(t, "Mangues", "1")))
	require.NoError(t, q.Append(ctx, "s1", offlineOrder(t, "Bananes", "1")))
	require.NoError(t, q.Append(ctx, "s1", offlineOrder(t, "Salade", "1")))

	sessions, err := q.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, sessions)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
	for _, o := range pending {
		assert.True(t, o.Offline)
	}
}

func TestOfflineQueue_DiscardsCorruptData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "[oops"},
		{"missing lines", `[{"id":"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a01","channel":"storefront","total":"0","lines":[]}]`},
		{"total mismatch", `[{"id":"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a01","channel":"storefront","total":"999",
			"lines":[{"product_id":"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a02","quantity":"1","unit_price":"100","line_total":"100"}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := storage.NewMemoryStore()
			require.NoError(t, kv.Put(ctx, PendingKey("s1"), []byte(tt.data)))
			core, logs := observer.New(zap.WarnLevel)
			q := NewOfflineQueue(kv, zap.New(core))

			entries, err := q.List(ctx, "s1")
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Equal(t, 1, logs.Len())
			_, err = kv.Get(ctx, PendingKey("s1"))
			assert.ErrorIs(t, err, shared.ErrNotFound)
		})
	}
}

func TestOfflineQueue_Reject(t *testing.T) {
	ctx := context.Background()
	q := NewOfflineQueue(storage.NewMemoryStore(), nil)
	a, b := offlineOrder(t, "Tomates", "1"), offlineOrder(t, "Oignons", "1")
	require.NoError(t, q.Append(ctx, "s1", a))
	require.NoError(t, q.Append(ctx, "s1", b))

	require.NoError(t, q.Reject(ctx, "s1", a.ID, "stock gone"))

	pending, err := q.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	rejected, err := q.Rejected(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, a.ID, rejected[0].ID)
	assert.Equal(t, "stock gone", rejected[0].Reason)
}
