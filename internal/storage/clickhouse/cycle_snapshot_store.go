package clickhouse

import (
	"context"
	"fmt"

	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/storage"
)

// CycleSnapshotStore implements storage.CycleSnapshotStore using ClickHouse.
type CycleSnapshotStore struct {
	conn *Conn
}

// NewCycleSnapshotStore creates a new CycleSnapshotStore.
func NewCycleSnapshotStore(conn *Conn) *CycleSnapshotStore {
	return &CycleSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CycleSnapshotStore = (*CycleSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate
// (wallet, token_mint, sequence_number, computed_at), including intra-batch.
func (s *CycleSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.CycleSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	type key struct {
		wallet     string
		mint       string
		seq        int
		computedAt int64
	}
	seen := make(map[key]struct{}, len(snapshots))
	for _, snap := range snapshots {
		k := key{snap.Wallet, snap.TokenMint, snap.SequenceNumber, snap.ComputedAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO cycle_snapshots (
			wallet, token_mint, token_symbol, sequence_number, leg_count,
			total_buy_amount, total_buy_value_usd, total_sell_amount, total_sell_value_usd,
			start_balance, end_balance, realized_pnl, complete,
			start_timestamp, end_timestamp, duration_seconds, computed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		var endTS, duration int64
		if snap.EndTimestamp != nil {
			endTS = *snap.EndTimestamp
		}
		if snap.DurationSeconds != nil {
			duration = *snap.DurationSeconds
		}
		complete := uint8(0)
		if snap.Complete {
			complete = 1
		}
		err = batch.Append(
			snap.Wallet, snap.TokenMint, snap.TokenSymbol,
			uint32(snap.SequenceNumber), uint32(snap.LegCount),
			snap.TotalBuyAmount, snap.TotalBuyValueUsd,
			snap.TotalSellAmount, snap.TotalSellValueUsd,
			snap.StartBalance, snap.EndBalance, snap.RealizedPnl, complete,
			snap.StartTimestamp, endTS, duration, snap.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByWallet retrieves the snapshots of the latest recompute run for a
// wallet, ordered by start timestamp DESC.
func (s *CycleSnapshotStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.CycleSnapshot, error) {
	query := `
		SELECT wallet, token_mint, token_symbol, sequence_number, leg_count,
		       total_buy_amount, total_buy_value_usd, total_sell_amount, total_sell_value_usd,
		       start_balance, end_balance, realized_pnl, complete,
		       start_timestamp, end_timestamp, duration_seconds, computed_at
		FROM cycle_snapshots
		WHERE wallet = ?
		  AND computed_at = (SELECT max(computed_at) FROM cycle_snapshots WHERE wallet = ?)
		ORDER BY start_timestamp DESC, token_mint ASC, sequence_number DESC
	`

	rows, err := s.conn.Query(ctx, query, wallet, wallet)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by wallet: %w", err)
	}
	defer rows.Close()

	var result []*domain.CycleSnapshot
	for rows.Next() {
		var (
			snap     domain.CycleSnapshot
			seq      uint32
			legCount uint32
			complete uint8
			endTS    int64
			duration int64
		)
		err := rows.Scan(
			&snap.Wallet, &snap.TokenMint, &snap.TokenSymbol, &seq, &legCount,
			&snap.TotalBuyAmount, &snap.TotalBuyValueUsd,
			&snap.TotalSellAmount, &snap.TotalSellValueUsd,
			&snap.StartBalance, &snap.EndBalance, &snap.RealizedPnl, &complete,
			&snap.StartTimestamp, &endTS, &duration, &snap.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.SequenceNumber = int(seq)
		snap.LegCount = int(legCount)
		snap.Complete = complete == 1
		if snap.Complete {
			ts, dur := endTS, duration
			snap.EndTimestamp = &ts
			snap.DurationSeconds = &dur
		}
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return result, nil
}

func (s *CycleSnapshotStore) exists(ctx context.Context, snap *domain.CycleSnapshot) (bool, error) {
	query := `
		SELECT count() FROM cycle_snapshots
		WHERE wallet = ? AND token_mint = ? AND sequence_number = ? AND computed_at = ?
	`
	var count uint64
	err := s.conn.QueryRow(ctx, query, snap.Wallet, snap.TokenMint, uint32(snap.SequenceNumber), snap.ComputedAt).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
