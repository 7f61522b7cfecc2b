// Package label attaches first-buy/repeat-buy labels to trade legs.
package label

import (
	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// Apply sets TransactionType on every leg in place and returns the slice.
//
// Precondition: legs must be ordered most-recent-first. A buy leg is labeled
// "first buy" when no older buy leg for the same mint exists later in the
// slice, otherwise "buy more". Sell legs are always labeled "sell". Any
// other ordering yields incorrect labels with no detection; callers own the
// ordering. "sell all" is never produced here.
func Apply(legs []*domain.Leg) []*domain.Leg {
	for i, leg := range legs {
		if leg.Direction != domain.DirectionBuy {
			leg.TransactionType = domain.TxTypeSell
			continue
		}
		if hasOlderBuy(legs, i) {
			leg.TransactionType = domain.TxTypeBuyMore
		} else {
			leg.TransactionType = domain.TxTypeFirstBuy
		}
	}
	return legs
}

// hasOlderBuy reports whether another buy leg for the same mint appears
// after index i, i.e. earlier in time under the most-recent-first ordering.
func hasOlderBuy(legs []*domain.Leg, i int) bool {
	for j := i + 1; j < len(legs); j++ {
		if legs[j].Direction == domain.DirectionBuy && legs[j].TokenMint == legs[i].TokenMint {
			return true
		}
	}
	return false
}
