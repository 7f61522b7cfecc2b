// Package normalize filters and validates raw per-transaction balance
// deltas before they reach the classifier.
package normalize

import (
	"math"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// Normalizer cleans a transaction's wallet token deltas: dust is discarded
// and deltas with malformed mint addresses are dropped.
type Normalizer struct {
	epsilon float64
}

// New creates a Normalizer with the given dust epsilon. Non-positive values
// fall back to domain.DustEpsilon.
func New(epsilon float64) *Normalizer {
	if epsilon <= 0 {
		epsilon = domain.DustEpsilon
	}
	return &Normalizer{epsilon: epsilon}
}

// Clean returns the deltas that survive dust filtering and mint validation.
// The input slice is not modified. Order is preserved.
func (n *Normalizer) Clean(deltas []domain.TokenDelta) []domain.TokenDelta {
	var out []domain.TokenDelta
	for _, d := range deltas {
		if math.Abs(d.Change) <= n.epsilon {
			continue
		}
		if !ValidMint(d.Mint) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ValidMint reports whether s decodes as base58 to exactly 32 bytes.
func ValidMint(s string) bool {
	if s == "" {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// IsOnCurve reports whether the address is a valid ed25519 curve point.
// Wallet addresses are keypair-backed and must be on-curve; PDAs are not.
func IsOnCurve(address string) bool {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
