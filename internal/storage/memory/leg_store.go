// Package memory provides in-memory store implementations for tests and
// offline runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/storage"
)

// LegStore is an in-memory implementation of storage.LegStore.
type LegStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Leg // keyed by composite key
}

// NewLegStore creates a new in-memory leg store.
func NewLegStore() *LegStore {
	return &LegStore{
		data: make(map[string]*domain.Leg),
	}
}

// legKey generates a unique key for a leg. One signature may legitimately
// produce two legs, so mint and direction are part of the key.
func legKey(wallet, signature, mint string, direction domain.Direction) string {
	return fmt.Sprintf("%s|%s|%s|%s", wallet, signature, mint, direction)
}

// Insert adds a new leg. Returns ErrDuplicateKey if it already exists.
func (s *LegStore) Insert(_ context.Context, leg *domain.Leg) error {
	if leg == nil || leg.Wallet == "" || leg.Signature == "" {
		return storage.ErrInvalidInput
	}

	key := legKey(leg.Wallet, leg.Signature, leg.TokenMint, leg.Direction)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *leg
	s.data[key] = &cp
	return nil
}

// InsertBulk adds multiple legs atomically. Fails entire batch on any duplicate.
func (s *LegStore) InsertBulk(_ context.Context, legs []*domain.Leg) error {
	if len(legs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(legs))
	for _, leg := range legs {
		if leg == nil || leg.Wallet == "" || leg.Signature == "" {
			return storage.ErrInvalidInput
		}
		key := legKey(leg.Wallet, leg.Signature, leg.TokenMint, leg.Direction)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, leg := range legs {
		key := legKey(leg.Wallet, leg.Signature, leg.TokenMint, leg.Direction)
		cp := *leg
		s.data[key] = &cp
	}
	return nil
}

// GetByWalletMint retrieves all legs for one (wallet, mint), ordered by
// timestamp ASC, slot ASC.
func (s *LegStore) GetByWalletMint(_ context.Context, wallet, mint string) ([]*domain.Leg, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Leg
	for _, leg := range s.data {
		if leg.Wallet == wallet && leg.TokenMint == mint {
			cp := *leg
			result = append(result, &cp)
		}
	}
	sortLegs(result)
	return result, nil
}

// GetByWallet retrieves all legs for a wallet, ordered by timestamp ASC, slot ASC.
func (s *LegStore) GetByWallet(_ context.Context, wallet string) ([]*domain.Leg, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Leg
	for _, leg := range s.data {
		if leg.Wallet == wallet {
			cp := *leg
			result = append(result, &cp)
		}
	}
	sortLegs(result)
	return result, nil
}

// ListMints returns the distinct mints a wallet has legs for, sorted ASC.
func (s *LegStore) ListMints(_ context.Context, wallet string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, leg := range s.data {
		if leg.Wallet == wallet {
			seen[leg.TokenMint] = struct{}{}
		}
	}

	mints := make([]string, 0, len(seen))
	for m := range seen {
		mints = append(mints, m)
	}
	sort.Strings(mints)
	return mints, nil
}

func sortLegs(legs []*domain.Leg) {
	sort.Slice(legs, func(i, j int) bool {
		if legs[i].Timestamp != legs[j].Timestamp {
			return legs[i].Timestamp < legs[j].Timestamp
		}
		if legs[i].Slot != legs[j].Slot {
			return legs[i].Slot < legs[j].Slot
		}
		return legs[i].Signature < legs[j].Signature
	})
}

var _ storage.LegStore = (*LegStore)(nil)
