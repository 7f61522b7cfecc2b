// Package stub provides a fixture-backed transaction source for tests and
// offline runs.
package stub

import (
	"context"

	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// Source replays a fixed transaction list and then closes its channel.
type Source struct {
	txs []*domain.SwapTransaction
}

// NewSource creates a stub source over the given transactions.
func NewSource(txs []*domain.SwapTransaction) *Source {
	return &Source{txs: txs}
}

// Transactions streams the fixture list.
func (s *Source) Transactions(ctx context.Context) (<-chan *domain.SwapTransaction, error) {
	out := make(chan *domain.SwapTransaction)
	go func() {
		defer close(out)
		for _, tx := range s.txs {
			select {
			case out <- tx:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close is a no-op.
func (s *Source) Close() error {
	return nil
}
