package storage

import (
	"context"

	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// LegStore provides access to classified trade legs. Legs are append-only;
// one (wallet, signature, mint, direction) tuple is stored at most once.
type LegStore interface {
	// Insert adds a new leg. Returns ErrDuplicateKey if it already exists.
	Insert(ctx context.Context, leg *domain.Leg) error

	// InsertBulk adds multiple legs atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, legs []*domain.Leg) error

	// GetByWalletMint retrieves all legs for one (wallet, mint) pair,
	// ordered by timestamp ASC, slot ASC.
	GetByWalletMint(ctx context.Context, wallet, mint string) ([]*domain.Leg, error)

	// GetByWallet retrieves all legs for a wallet, ordered by timestamp ASC, slot ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.Leg, error)

	// ListMints returns the distinct mints a wallet has legs for, sorted ASC.
	ListMints(ctx context.Context, wallet string) ([]string, error)
}

// CycleSnapshotStore provides access to derived cycle analytics rows.
// Snapshots are write-once per recompute run.
type CycleSnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate
	// (wallet, token_mint, sequence_number, computed_at).
	InsertBulk(ctx context.Context, snapshots []*domain.CycleSnapshot) error

	// GetByWallet retrieves the snapshots of the latest recompute run for a
	// wallet, ordered by start timestamp DESC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.CycleSnapshot, error)
}
