package classify

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/pricing"
)

// Classifier decides whether a transaction is a swap, picks the traded pair,
// resolves a USD value, and emits directional legs. No input is fatal: a
// non-swap produces zero legs and an unresolved price degrades to an unknown
// value, never an error.
type Classifier struct {
	bases  BaseCurrencies
	prices pricing.Source
	logger *log.Logger
}

// New creates a Classifier. prices may be nil, in which case token-to-token
// swaps always carry an unknown value.
func New(bases BaseCurrencies, prices pricing.Source, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Classifier{bases: bases, prices: prices, logger: logger}
}

// Classify emits the legs of a single transaction, querying the price source
// for any mints that need a live spot price. Deltas must already be
// normalized (dust-filtered); the classifier does not re-filter.
func (c *Classifier) Classify(ctx context.Context, tx *domain.SwapTransaction) []*domain.Leg {
	pair, ok := c.pickPair(tx)
	if !ok {
		return nil
	}

	spot := map[string]float64{}
	if mints := c.mintsNeedingPrice(pair); len(mints) > 0 {
		spot = c.lookupPrices(ctx, mints)
	}
	return c.emit(tx, pair, spot)
}

// ClassifyBatch classifies many transactions against one oracle round trip:
// all mints needing a live price across the batch go into a single Prices
// call. Returns legs in input transaction order.
func (c *Classifier) ClassifyBatch(ctx context.Context, txs []*domain.SwapTransaction) []*domain.Leg {
	type pending struct {
		tx   *domain.SwapTransaction
		pair tradedPair
	}

	var work []pending
	need := make(map[string]struct{})
	for _, tx := range txs {
		pair, ok := c.pickPair(tx)
		if !ok {
			continue
		}
		for _, m := range c.mintsNeedingPrice(pair) {
			need[m] = struct{}{}
		}
		work = append(work, pending{tx: tx, pair: pair})
	}

	spot := map[string]float64{}
	if len(need) > 0 {
		mints := make([]string, 0, len(need))
		for m := range need {
			mints = append(mints, m)
		}
		sort.Strings(mints)
		spot = c.lookupPrices(ctx, mints)
	}

	var legs []*domain.Leg
	for _, w := range work {
		legs = append(legs, c.emit(w.tx, w.pair, spot)...)
	}
	return legs
}

// tradedPair is the sold/bought selection for one transaction.
type tradedPair struct {
	sold   domain.TokenDelta
	bought domain.TokenDelta
}

// pickPair partitions deltas into increases and decreases and selects the
// traded pair. Deltas are ordered by mint first so the first-of-each
// tie-break is deterministic regardless of upstream delta order.
func (c *Classifier) pickPair(tx *domain.SwapTransaction) (tradedPair, bool) {
	deltas := make([]domain.TokenDelta, len(tx.WalletTokenDeltas))
	copy(deltas, tx.WalletTokenDeltas)
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Mint < deltas[j].Mint })

	var increases, decreases []domain.TokenDelta
	for _, d := range deltas {
		if d.Change > 0 {
			increases = append(increases, d)
		} else if d.Change < 0 {
			decreases = append(decreases, d)
		}
	}

	// One-sided or empty delta sets are transfers, mints, burns - not swaps.
	if len(increases) == 0 || len(decreases) == 0 {
		return tradedPair{}, false
	}

	return tradedPair{
		sold:   decreases[0],
		bought: increases[0],
	}, true
}

// mintsNeedingPrice returns the mints to ask the oracle about, which is only
// the token-to-token case: if either side is a stablecoin the peg values the
// swap directly.
func (c *Classifier) mintsNeedingPrice(pair tradedPair) []string {
	if c.bases.IsStable(pair.sold) || c.bases.IsStable(pair.bought) {
		return nil
	}
	return []string{pair.sold.Mint, pair.bought.Mint}
}

// lookupPrices queries the price source, degrading any failure to "no
// prices" rather than propagating an error.
func (c *Classifier) lookupPrices(ctx context.Context, mints []string) map[string]float64 {
	if c.prices == nil {
		return map[string]float64{}
	}
	prices, err := c.prices.Prices(ctx, mints)
	if err != nil {
		c.logger.Printf("[classify] price lookup failed for %d mint(s), legs degrade to unknown value: %v", len(mints), err)
		if prices == nil {
			prices = map[string]float64{}
		}
	}
	return prices
}

// emit resolves the USD value and produces the directional legs.
//
// Valuation priority: sold-side stablecoin peg, bought-side stablecoin peg,
// sold-side spot price, bought-side spot price, unknown.
func (c *Classifier) emit(tx *domain.SwapTransaction, pair tradedPair, spot map[string]float64) []*domain.Leg {
	soldAmount := math.Abs(pair.sold.Change)
	boughtAmount := pair.bought.Change

	var usdValue float64
	usdUnknown := false
	switch {
	case c.bases.IsStable(pair.sold):
		usdValue = soldAmount
	case c.bases.IsStable(pair.bought):
		usdValue = boughtAmount
	default:
		if p, ok := spot[pair.sold.Mint]; ok {
			usdValue = p * soldAmount
		} else if p, ok := spot[pair.bought.Mint]; ok {
			usdValue = p * boughtAmount
		} else {
			usdUnknown = true
		}
	}

	soldBase := c.bases.IsBase(pair.sold)
	boughtBase := c.bases.IsBase(pair.bought)

	buy := func(fee int64) *domain.Leg {
		return &domain.Leg{
			Signature:   tx.Signature,
			Wallet:      tx.Wallet,
			Timestamp:   tx.Timestamp,
			Slot:        tx.Slot,
			Direction:   domain.DirectionBuy,
			TokenMint:   pair.bought.Mint,
			TokenSymbol: pair.bought.Symbol,
			CounterMint: pair.sold.Mint,
			Amount:      boughtAmount,
			UsdValue:    usdValue,
			UsdUnknown:  usdUnknown,
			Venue:       tx.Venue,
			FeeLamports: fee,
		}
	}
	sell := func(fee int64) *domain.Leg {
		return &domain.Leg{
			Signature:       tx.Signature,
			Wallet:          tx.Wallet,
			Timestamp:       tx.Timestamp,
			Slot:            tx.Slot,
			Direction:       domain.DirectionSell,
			TokenMint:       pair.sold.Mint,
			TokenSymbol:     pair.sold.Symbol,
			CounterMint:     pair.bought.Mint,
			Amount:          soldAmount,
			UsdValue:        usdValue,
			UsdUnknown:      usdUnknown,
			Venue:           tx.Venue,
			FeeLamports:     fee,
			TransactionType: domain.TxTypeSell,
		}
	}

	switch {
	case soldBase && !boughtBase:
		// Funding a position: one buy leg for the non-base token.
		return []*domain.Leg{buy(tx.FeeLamports)}
	case !soldBase && boughtBase:
		// Liquidating a position: one sell leg for the non-base token.
		return []*domain.Leg{sell(tx.FeeLamports)}
	default:
		// Token-to-token, including the degenerate base-to-base rotation.
		// The full fee rides on the sell leg so one transaction's fee is
		// never charged twice.
		return []*domain.Leg{sell(tx.FeeLamports), buy(0)}
	}
}
