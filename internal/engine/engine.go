// Package engine wires the trade pipeline together: normalized deltas are
// classified into legs, labeled against the wallet's full history, persisted,
// and folded into per-token cycle series on demand.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/themeshri/onchain-journal-app/internal/classify"
	"github.com/themeshri/onchain-journal-app/internal/cycles"
	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/label"
	"github.com/themeshri/onchain-journal-app/internal/normalize"
	"github.com/themeshri/onchain-journal-app/internal/observability"
	"github.com/themeshri/onchain-journal-app/internal/storage"
)

// Engine is the orchestration facade over the classification and
// aggregation pipeline. Cycle series are always recomputed from the full
// ordered leg history, never incrementally updated.
type Engine struct {
	normalizer    *normalize.Normalizer
	classifier    *classify.Classifier
	aggregator    *cycles.Aggregator
	legStore      storage.LegStore
	snapshotStore storage.CycleSnapshotStore
	metrics       *observability.Metrics
	logger        *log.Logger
	now           func() time.Time
}

// Options contains the collaborators for creating an Engine.
// SnapshotStore and Metrics are optional.
type Options struct {
	Normalizer    *normalize.Normalizer
	Classifier    *classify.Classifier
	Aggregator    *cycles.Aggregator
	LegStore      storage.LegStore
	SnapshotStore storage.CycleSnapshotStore
	Metrics       *observability.Metrics
	Logger        *log.Logger
	Now           func() time.Time
}

// New creates an Engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		normalizer:    opts.Normalizer,
		classifier:    opts.Classifier,
		aggregator:    opts.Aggregator,
		legStore:      opts.LegStore,
		snapshotStore: opts.SnapshotStore,
		metrics:       opts.Metrics,
		logger:        logger,
		now:           now,
	}
}

// ProcessTransactions classifies a batch of wallet transactions and persists
// the resulting legs, labeled against each token's full stored history.
// Returns the number of legs stored. Duplicate transactions (already-stored
// legs) are skipped, not failed.
func (e *Engine) ProcessTransactions(ctx context.Context, txs []*domain.SwapTransaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	cleaned := make([]*domain.SwapTransaction, 0, len(txs))
	for _, tx := range txs {
		cp := *tx
		before := len(cp.WalletTokenDeltas)
		cp.WalletTokenDeltas = e.normalizer.Clean(cp.WalletTokenDeltas)
		if e.metrics != nil {
			e.metrics.DustDeltasDiscarded.Add(float64(before - len(cp.WalletTokenDeltas)))
		}
		cleaned = append(cleaned, &cp)
	}

	legs := e.classifier.ClassifyBatch(ctx, cleaned)
	if e.metrics != nil {
		classified := make(map[string]struct{}, len(legs))
		for _, leg := range legs {
			e.metrics.LegsClassified.WithLabelValues(leg.Direction.String()).Inc()
			if leg.UsdUnknown {
				e.metrics.UnknownValueLegs.Inc()
			}
			classified[leg.Signature] = struct{}{}
		}
		for _, tx := range cleaned {
			if _, ok := classified[tx.Signature]; !ok {
				e.metrics.NonSwapSkipped.Inc()
			} else if len(tx.WalletTokenDeltas) > 2 {
				// A swap with more than two surviving deltas was collapsed
				// to its first increase and first decrease. One-sided
				// multi-delta transactions are non-swaps, not collapses.
				e.metrics.MultiLegCollapsed.Inc()
			}
		}
	}
	if len(legs) == 0 {
		return 0, nil
	}

	labeled, err := e.labelAgainstHistory(ctx, legs)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, leg := range labeled {
		if err := e.legStore.Insert(ctx, leg); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return stored, fmt.Errorf("store leg %s/%s: %w", leg.Signature, leg.TokenMint, err)
		}
		stored++
	}
	return stored, nil
}

// labelAgainstHistory merges each token's new legs with its stored history,
// applies labels over the combined most-recent-first ordering, and returns
// the new legs with labels attached.
func (e *Engine) labelAgainstHistory(ctx context.Context, newLegs []*domain.Leg) ([]*domain.Leg, error) {
	type group struct {
		wallet string
		mint   string
	}
	byToken := make(map[group][]*domain.Leg)
	for _, leg := range newLegs {
		k := group{leg.Wallet, leg.TokenMint}
		byToken[k] = append(byToken[k], leg)
	}

	for k, fresh := range byToken {
		history, err := e.legStore.GetByWalletMint(ctx, k.wallet, k.mint)
		if err != nil {
			return nil, fmt.Errorf("load history for %s/%s: %w", k.wallet, k.mint, err)
		}

		merged := make([]*domain.Leg, 0, len(history)+len(fresh))
		merged = append(merged, history...)
		merged = append(merged, fresh...)
		sort.Slice(merged, func(i, j int) bool {
			if merged[i].Timestamp != merged[j].Timestamp {
				return merged[i].Timestamp > merged[j].Timestamp
			}
			if merged[i].Slot != merged[j].Slot {
				return merged[i].Slot > merged[j].Slot
			}
			// Signature keeps the order total so labels do not depend on
			// arrival order when timestamp and slot tie.
			return merged[i].Signature > merged[j].Signature
		})
		// Stored legs are immutable; labeling the merged view only takes
		// effect on the fresh legs, which share pointers with newLegs.
		label.Apply(merged)
	}
	return newLegs, nil
}

// SeriesFor recomputes the cycle series for one (wallet, mint) from its full
// stored leg history.
func (e *Engine) SeriesFor(ctx context.Context, wallet, mint string) (*domain.TokenCycleSeries, error) {
	legs, err := e.legStore.GetByWalletMint(ctx, wallet, mint)
	if err != nil {
		return nil, fmt.Errorf("load legs for %s/%s: %w", wallet, mint, err)
	}
	series := e.aggregator.BuildSeries(legs)
	if e.metrics != nil {
		e.metrics.SeriesRecomputed.Inc()
	}
	return series, nil
}

// RebuildWallet recomputes every token's cycle series for a wallet, persists
// a snapshot of each cycle when a snapshot store is configured, and returns
// the cross-token presentation list (all cycles, newest first).
func (e *Engine) RebuildWallet(ctx context.Context, wallet string) ([]*domain.CycleView, error) {
	mints, err := e.legStore.ListMints(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("list mints for %s: %w", wallet, err)
	}

	negBefore := total(e.aggregator.NegativeBalances)
	oooBefore := total(e.aggregator.OutOfOrderLegs)

	var allSeries []*domain.TokenCycleSeries
	for _, mint := range mints {
		series, err := e.SeriesFor(ctx, wallet, mint)
		if err != nil {
			return nil, err
		}
		allSeries = append(allSeries, series)
	}

	if e.metrics != nil {
		e.metrics.NegativeBalanceAnomalies.Add(float64(total(e.aggregator.NegativeBalances) - negBefore))
		e.metrics.OutOfOrderAnomalies.Add(float64(total(e.aggregator.OutOfOrderLegs) - oooBefore))
	}

	views := cycles.Flatten(allSeries)

	if e.snapshotStore != nil && len(views) > 0 {
		computedAt := e.now().Unix()
		snapshots := make([]*domain.CycleSnapshot, 0, len(views))
		for _, v := range views {
			snapshots = append(snapshots, v.Snapshot(computedAt))
		}
		if err := e.snapshotStore.InsertBulk(ctx, snapshots); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("store cycle snapshots: %w", err)
		}
	}

	if e.metrics != nil {
		e.metrics.CyclesComputed.Add(float64(len(views)))
		e.metrics.LastSuccessfulRecompute.SetToCurrentTime()
	}

	for _, finding := range e.aggregator.AnomalyReport() {
		e.logger.Printf("[engine] anomaly: %s", finding)
	}

	return views, nil
}

// Legs returns a wallet's full labeled leg history, newest first, the
// ordering the journal UI consumes.
func (e *Engine) Legs(ctx context.Context, wallet string) ([]*domain.Leg, error) {
	legs, err := e.legStore.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("load legs for %s: %w", wallet, err)
	}
	sort.Slice(legs, func(i, j int) bool {
		if legs[i].Timestamp != legs[j].Timestamp {
			return legs[i].Timestamp > legs[j].Timestamp
		}
		return legs[i].Slot > legs[j].Slot
	})
	return legs, nil
}

func total(m map[string]int) int {
	sum := 0
	for _, v := range m {
		sum += v
	}
	return sum
}
