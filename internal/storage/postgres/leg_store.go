package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/storage"
)

// LegStore implements storage.LegStore using PostgreSQL.
type LegStore struct {
	pool *Pool
}

// NewLegStore creates a new LegStore.
func NewLegStore(pool *Pool) *LegStore {
	return &LegStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LegStore = (*LegStore)(nil)

const insertLegQuery = `
	INSERT INTO legs (
		wallet, signature, timestamp, slot, direction, token_mint, token_symbol,
		counter_mint, amount, usd_value, usd_unknown, venue, fee_lamports, transaction_type
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

const selectLegColumns = `
	wallet, signature, timestamp, slot, direction, token_mint, token_symbol,
	counter_mint, amount, usd_value, usd_unknown, venue, fee_lamports, transaction_type
`

// Insert adds a new leg. Returns ErrDuplicateKey if (wallet, signature,
// token_mint, direction) already exists.
func (s *LegStore) Insert(ctx context.Context, leg *domain.Leg) error {
	_, err := s.pool.Exec(ctx, insertLegQuery, legArgs(leg)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert leg: %w", err)
	}
	return nil
}

// InsertBulk adds multiple legs atomically. Fails entire batch on any duplicate.
func (s *LegStore) InsertBulk(ctx context.Context, legs []*domain.Leg) error {
	if len(legs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, leg := range legs {
		if _, err := tx.Exec(ctx, insertLegQuery, legArgs(leg)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert leg in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByWalletMint retrieves all legs for one (wallet, mint), ordered by
// timestamp ASC, slot ASC.
func (s *LegStore) GetByWalletMint(ctx context.Context, wallet, mint string) ([]*domain.Leg, error) {
	query := `
		SELECT ` + selectLegColumns + `
		FROM legs
		WHERE wallet = $1 AND token_mint = $2
		ORDER BY timestamp ASC, slot ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet, mint)
	if err != nil {
		return nil, fmt.Errorf("get legs by wallet and mint: %w", err)
	}
	defer rows.Close()

	return scanLegs(rows)
}

// GetByWallet retrieves all legs for a wallet, ordered by timestamp ASC, slot ASC.
func (s *LegStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.Leg, error) {
	query := `
		SELECT ` + selectLegColumns + `
		FROM legs
		WHERE wallet = $1
		ORDER BY timestamp ASC, slot ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get legs by wallet: %w", err)
	}
	defer rows.Close()

	return scanLegs(rows)
}

// ListMints returns the distinct mints a wallet has legs for, sorted ASC.
func (s *LegStore) ListMints(ctx context.Context, wallet string) ([]string, error) {
	query := `
		SELECT DISTINCT token_mint
		FROM legs
		WHERE wallet = $1
		ORDER BY token_mint ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}
	defer rows.Close()

	var mints []string
	for rows.Next() {
		var mint string
		if err := rows.Scan(&mint); err != nil {
			return nil, fmt.Errorf("scan mint row: %w", err)
		}
		mints = append(mints, mint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint rows: %w", err)
	}
	return mints, nil
}

func legArgs(leg *domain.Leg) []any {
	return []any{
		leg.Wallet,
		leg.Signature,
		leg.Timestamp,
		leg.Slot,
		string(leg.Direction),
		leg.TokenMint,
		leg.TokenSymbol,
		leg.CounterMint,
		leg.Amount,
		leg.UsdValue,
		leg.UsdUnknown,
		leg.Venue,
		leg.FeeLamports,
		leg.TransactionType,
	}
}

// scanLegs scans multiple rows into a slice of Leg.
func scanLegs(rows pgx.Rows) ([]*domain.Leg, error) {
	var legs []*domain.Leg

	for rows.Next() {
		var leg domain.Leg
		var direction string

		err := rows.Scan(
			&leg.Wallet,
			&leg.Signature,
			&leg.Timestamp,
			&leg.Slot,
			&direction,
			&leg.TokenMint,
			&leg.TokenSymbol,
			&leg.CounterMint,
			&leg.Amount,
			&leg.UsdValue,
			&leg.UsdUnknown,
			&leg.Venue,
			&leg.FeeLamports,
			&leg.TransactionType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan leg row: %w", err)
		}
		leg.Direction = domain.Direction(direction)

		legs = append(legs, &leg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leg rows: %w", err)
	}

	return legs, nil
}
