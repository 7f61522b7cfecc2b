// Package classify turns one transaction's normalized balance deltas into
// zero, one, or two directional trade legs.
package classify

import "github.com/themeshri/onchain-journal-app/internal/domain"

// BaseCurrencies is the injected base-currency set: the designated settlement
// asset(s) plus the stablecoin set. Nothing in this package hard-codes mints
// or symbols; venue operators evolve these lists through configuration.
type BaseCurrencies struct {
	settlementMints map[string]struct{}
	stableMints     map[string]struct{}
	stableSymbols   map[string]struct{}
}

// NewBaseCurrencies builds the set from explicit lists. Stablecoins are
// matched by mint when known and by symbol as a fallback for tokens whose
// mint the configuration does not enumerate.
func NewBaseCurrencies(settlementMints, stableMints, stableSymbols []string) BaseCurrencies {
	b := BaseCurrencies{
		settlementMints: make(map[string]struct{}, len(settlementMints)),
		stableMints:     make(map[string]struct{}, len(stableMints)),
		stableSymbols:   make(map[string]struct{}, len(stableSymbols)),
	}
	for _, m := range settlementMints {
		b.settlementMints[m] = struct{}{}
	}
	for _, m := range stableMints {
		b.stableMints[m] = struct{}{}
	}
	for _, s := range stableSymbols {
		b.stableSymbols[s] = struct{}{}
	}
	return b
}

// IsStable reports whether the delta's token is in the stablecoin set.
func (b BaseCurrencies) IsStable(d domain.TokenDelta) bool {
	if _, ok := b.stableMints[d.Mint]; ok {
		return true
	}
	_, ok := b.stableSymbols[d.Symbol]
	return ok
}

// IsBase reports whether the delta's token is treated as funding/settlement
// capital rather than a speculative position.
func (b BaseCurrencies) IsBase(d domain.TokenDelta) bool {
	if _, ok := b.settlementMints[d.Mint]; ok {
		return true
	}
	return b.IsStable(d)
}
