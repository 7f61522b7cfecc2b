// Package pricing provides the USD price oracle contract used by the swap
// classifier, a TTL cache wrapper, and an HTTP implementation.
package pricing

import (
	"context"
	"sync"
)

// Source resolves current USD spot prices for a set of mints in one call.
// A missing entry in the returned map means the price is unknown, never zero.
// Implementations own their retry policy; a terminal failure should surface
// as an error that callers treat as "all unknown".
type Source interface {
	Prices(ctx context.Context, mints []string) (map[string]float64, error)
}

// Static is a fixed-price Source for tests and offline runs.
type Static struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStatic creates a Static source with the given prices. The map is copied.
func NewStatic(prices map[string]float64) *Static {
	m := make(map[string]float64, len(prices))
	for k, v := range prices {
		m[k] = v
	}
	return &Static{prices: m}
}

// Prices returns prices for the requested mints; unknown mints are omitted.
func (s *Static) Prices(_ context.Context, mints []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64)
	for _, mint := range mints {
		if p, ok := s.prices[mint]; ok {
			out[mint] = p
		}
	}
	return out, nil
}

// Set updates the price for a mint.
func (s *Static) Set(mint string, price float64) {
	s.mu.Lock()
	s.prices[mint] = price
	s.mu.Unlock()
}

var _ Source = (*Static)(nil)
