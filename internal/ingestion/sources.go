// Package ingestion moves wallet transactions from a chain-data source
// through the classification engine.
package ingestion

import (
	"context"

	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// TransactionSource delivers wallet-attributed swap transactions. The
// collaborator behind the source has already decided which transactions and
// deltas belong to the tracked wallet; this package does not re-attribute.
type TransactionSource interface {
	// Transactions returns a channel of incoming transactions. The channel
	// is closed when the source is exhausted or ctx is cancelled.
	Transactions(ctx context.Context) (<-chan *domain.SwapTransaction, error)

	// Close releases the source's resources.
	Close() error
}
