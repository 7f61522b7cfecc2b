package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/storage"
)

func testSnapshot(mint string, seq int, startTs, computedAt int64) *domain.CycleSnapshot {
	return &domain.CycleSnapshot{
		Wallet:            "TestWallet1",
		TokenMint:         mint,
		TokenSymbol:       "TST",
		SequenceNumber:    seq,
		LegCount:          3,
		TotalBuyAmount:    1000,
		TotalBuyValueUsd:  100,
		TotalSellAmount:   1000,
		TotalSellValueUsd: 150,
		RealizedPnl:       50,
		Complete:          true,
		StartTimestamp:    startTs,
		EndTimestamp:      ptr(startTs + 600),
		DurationSeconds:   ptr(int64(600)),
		ComputedAt:        computedAt,
	}
}

func TestCycleSnapshotStore_InsertBulkAndGetByWallet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCycleSnapshotStore(conn)

	snap := testSnapshot("MintA", 1, 1700000000, 100)
	require.NoError(t, store.InsertBulk(ctx, []*domain.CycleSnapshot{snap}))

	got, err := store.GetByWallet(ctx, "TestWallet1")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, snap.Wallet, got[0].Wallet)
	assert.Equal(t, snap.TokenMint, got[0].TokenMint)
	assert.Equal(t, snap.TokenSymbol, got[0].TokenSymbol)
	assert.Equal(t, snap.SequenceNumber, got[0].SequenceNumber)
	assert.Equal(t, snap.LegCount, got[0].LegCount)
	assert.InDelta(t, snap.TotalBuyAmount, got[0].TotalBuyAmount, 0.0001)
	assert.InDelta(t, snap.RealizedPnl, got[0].RealizedPnl, 0.0001)
	assert.True(t, got[0].Complete)
	require.NotNil(t, got[0].EndTimestamp)
	assert.Equal(t, *snap.EndTimestamp, *got[0].EndTimestamp)
	require.NotNil(t, got[0].DurationSeconds)
	assert.Equal(t, int64(600), *got[0].DurationSeconds)
	assert.Equal(t, snap.ComputedAt, got[0].ComputedAt)
}

func TestCycleSnapshotStore_OpenCycleHasNilEndFields(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCycleSnapshotStore(conn)

	snap := testSnapshot("MintA", 1, 1700000000, 100)
	snap.Complete = false
	snap.EndTimestamp = nil
	snap.DurationSeconds = nil

	require.NoError(t, store.InsertBulk(ctx, []*domain.CycleSnapshot{snap}))

	got, err := store.GetByWallet(ctx, "TestWallet1")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.False(t, got[0].Complete)
	assert.Nil(t, got[0].EndTimestamp)
	assert.Nil(t, got[0].DurationSeconds)
}

func TestCycleSnapshotStore_DuplicateRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCycleSnapshotStore(conn)

	snap := testSnapshot("MintA", 1, 1700000000, 100)
	require.NoError(t, store.InsertBulk(ctx, []*domain.CycleSnapshot{snap}))

	// Same run again.
	err := store.InsertBulk(ctx, []*domain.CycleSnapshot{snap})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate.
	err = store.InsertBulk(ctx, []*domain.CycleSnapshot{
		testSnapshot("MintB", 1, 1700000000, 200),
		testSnapshot("MintB", 1, 1700000000, 200),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same cycle at a later recompute time is a new row.
	require.NoError(t, store.InsertBulk(ctx, []*domain.CycleSnapshot{
		testSnapshot("MintA", 1, 1700000000, 200),
	}))
}

func TestCycleSnapshotStore_GetByWalletReturnsLatestRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCycleSnapshotStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.CycleSnapshot{
		testSnapshot("MintA", 1, 1700000000, 100),
	}))
	require.NoError(t, store.InsertBulk(ctx, []*domain.CycleSnapshot{
		testSnapshot("MintA", 1, 1700000000, 200),
		testSnapshot("MintA", 2, 1700002000, 200),
		testSnapshot("MintB", 1, 1700001000, 200),
	}))

	got, err := store.GetByWallet(ctx, "TestWallet1")
	require.NoError(t, err)

	require.Len(t, got, 3)
	for _, snap := range got {
		assert.Equal(t, int64(200), snap.ComputedAt)
	}
	// Ordered by start timestamp descending.
	assert.Equal(t, int64(1700002000), got[0].StartTimestamp)
	assert.Equal(t, int64(1700001000), got[1].StartTimestamp)
	assert.Equal(t, int64(1700000000), got[2].StartTimestamp)
}

func TestCycleSnapshotStore_EmptyWallet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := NewCycleSnapshotStore(conn).GetByWallet(context.Background(), "UnknownWallet")
	require.NoError(t, err)
	assert.Empty(t, got)
}
