package history_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loyscan/internal/history"
	"loyscan/pkg/domain"
)

func newStore(t *testing.T) history.Store {
	t.Helper()

	store, err := history.NewBolt(history.NewOptions(filepath.Join(t.TempDir(), "history.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func record(i int) history.Record {
	return history.Record{
		ID:            fmt.Sprintf("rec-%d", i),
		SessionID:     "session-1",
		At:            time.Date(2026, 8, 1, 12, 0, i, 0, time.UTC),
		Format:        domain.FormatNumericID,
		Symbology:     domain.SymbologyQR,
		CustomerToken: fmt.Sprintf("%d", 1000+i),
	}
}

func TestBoltAppendAndRecent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, store.Append(ctx, record(i)))
	}

	got, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// newest first
	require.Equal(t, "rec-4", got[0].ID)
	require.Equal(t, "rec-3", got[1].ID)
	require.Equal(t, "rec-2", got[2].ID)
	require.Equal(t, record(4).At, got[0].At)
}

func TestBoltRecentLimitExceedsSize(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, record(0)))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "rec-0", got[0].ID)
}

func TestBoltRecentEmpty(t *testing.T) {
	store := newStore(t)

	got, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBoltRecentNonPositiveLimit(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, record(0)))

	got, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBoltSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := history.NewBolt(history.NewOptions(path))
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, record(1)))
	require.NoError(t, store.Close())

	store, err = history.NewBolt(history.NewOptions(path))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
	}()

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "rec-1", got[0].ID)
}
