package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/storage"
)

// CycleSnapshotStore is an in-memory implementation of storage.CycleSnapshotStore.
type CycleSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CycleSnapshot
}

// NewCycleSnapshotStore creates a new in-memory cycle snapshot store.
func NewCycleSnapshotStore() *CycleSnapshotStore {
	return &CycleSnapshotStore{
		data: make(map[string]*domain.CycleSnapshot),
	}
}

func snapshotKey(s *domain.CycleSnapshot) string {
	return fmt.Sprintf("%s|%s|%d|%d", s.Wallet, s.TokenMint, s.SequenceNumber, s.ComputedAt)
}

// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate.
func (s *CycleSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.CycleSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.Wallet == "" || snap.TokenMint == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey(snap)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, snap := range snapshots {
		cp := *snap
		s.data[snapshotKey(snap)] = &cp
	}
	return nil
}

// GetByWallet retrieves the snapshots of the latest recompute run for a
// wallet, ordered by start timestamp DESC.
func (s *CycleSnapshotStore) GetByWallet(_ context.Context, wallet string) ([]*domain.CycleSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest int64
	for _, snap := range s.data {
		if snap.Wallet == wallet && snap.ComputedAt > latest {
			latest = snap.ComputedAt
		}
	}

	var result []*domain.CycleSnapshot
	for _, snap := range s.data {
		if snap.Wallet == wallet && snap.ComputedAt == latest {
			cp := *snap
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTimestamp != result[j].StartTimestamp {
			return result[i].StartTimestamp > result[j].StartTimestamp
		}
		if result[i].TokenMint != result[j].TokenMint {
			return result[i].TokenMint < result[j].TokenMint
		}
		return result[i].SequenceNumber > result[j].SequenceNumber
	})

	return result, nil
}

var _ storage.CycleSnapshotStore = (*CycleSnapshotStore)(nil)
