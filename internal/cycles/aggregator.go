// Package cycles folds a token's chronologically ordered legs into bounded
// ownership cycles with running balance and cost-basis P&L.
package cycles

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// Aggregator rebuilds TokenCycleSeries from full ordered leg histories.
// It is stateless across invocations: every series is recomputed from
// scratch, never incrementally checkpointed. Data-quality anomalies
// (negative balances, out-of-order delivery) are tracked for reporting
// instead of being rejected.
type Aggregator struct {
	epsilon float64
	logger  *log.Logger

	// NegativeBalances counts sell legs that drove a token's running balance
	// below zero, keyed by wallet|mint. A non-zero count signals missing
	// upstream legs, not a defect in the fold.
	NegativeBalances map[string]int

	// OutOfOrderLegs counts timestamp regressions seen in supposedly
	// ascending leg histories, keyed by wallet|mint.
	OutOfOrderLegs map[string]int
}

// NewAggregator creates an Aggregator. Non-positive epsilon falls back to
// domain.DustEpsilon.
func NewAggregator(epsilon float64, logger *log.Logger) *Aggregator {
	if epsilon <= 0 {
		epsilon = domain.DustEpsilon
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		epsilon:          epsilon,
		logger:           logger,
		NegativeBalances: make(map[string]int),
		OutOfOrderLegs:   make(map[string]int),
	}
}

// BuildSeries folds one token's legs, in ascending timestamp order, into a
// cycle series. All legs must share the same wallet and mint. An empty
// history yields an empty series.
func (a *Aggregator) BuildSeries(legs []*domain.Leg) *domain.TokenCycleSeries {
	series := &domain.TokenCycleSeries{}
	if len(legs) == 0 {
		return series
	}

	series.Wallet = legs[0].Wallet
	series.TokenMint = legs[0].TokenMint
	series.TokenSymbol = legs[0].TokenSymbol
	key := series.Wallet + "|" + series.TokenMint

	var open *domain.TradeCycle
	prevTimestamp := int64(math.MinInt64)

	for _, leg := range legs {
		if leg.Timestamp < prevTimestamp {
			// Violated precondition: correctness is undefined from here on,
			// so complain loudly rather than silently produce wrong numbers.
			a.OutOfOrderLegs[key]++
			a.logger.Printf("[cycles] out-of-order leg for %s: sig=%s ts=%d after ts=%d",
				key, leg.Signature, leg.Timestamp, prevTimestamp)
		}
		prevTimestamp = leg.Timestamp

		if leg.TokenSymbol != "" {
			series.TokenSymbol = leg.TokenSymbol
		}

		// A buy at zero balance opens a fresh cycle, as does any leg that
		// arrives when no open cycle exists (including a sell with no prior
		// buys, which is tolerated as upstream data loss).
		if open == nil || open.Complete || (series.RunningBalance == 0 && leg.Direction == domain.DirectionBuy) {
			open = &domain.TradeCycle{
				SequenceNumber: len(series.Cycles) + 1,
				Wallet:         series.Wallet,
				TokenMint:      series.TokenMint,
				TokenSymbol:    series.TokenSymbol,
				StartBalance:   series.RunningBalance,
				StartTimestamp: leg.Timestamp,
			}
			series.Cycles = append(series.Cycles, open)
		}

		open.Legs = append(open.Legs, leg)
		if leg.UsdUnknown {
			open.UnknownValueLegs++
		}

		switch leg.Direction {
		case domain.DirectionBuy:
			open.TotalBuyAmount += leg.Amount
			open.TotalBuyValueUsd += leg.UsdValue
			series.RunningBalance += leg.Amount
		case domain.DirectionSell:
			open.TotalSellAmount += leg.Amount
			open.TotalSellValueUsd += leg.UsdValue
			series.RunningBalance -= leg.Amount
		}

		if series.RunningBalance < -a.epsilon {
			a.NegativeBalances[key]++
		}

		open.EndBalance = series.RunningBalance

		// Completion: the position returned to (or crossed) zero. Force the
		// balance to exactly 0 so float drift cannot leak into later cycles.
		if series.RunningBalance <= a.epsilon {
			series.RunningBalance = 0
			open.EndBalance = 0
			open.Complete = true
			end := leg.Timestamp
			duration := end - open.StartTimestamp
			open.EndTimestamp = &end
			open.DurationSeconds = &duration
		}

		// Live cost-basis P&L, recomputed after every leg so partially
		// closed cycles expose it too.
		open.RealizedPnl = open.TotalSellValueUsd - open.TotalSellAmount*open.AvgBuyPrice()
	}

	series.TotalTrades = len(series.Cycles)
	return series
}

// AnomalyReport returns human-readable data-quality findings collected
// across BuildSeries calls, sorted for deterministic output.
func (a *Aggregator) AnomalyReport() []string {
	var report []string
	for _, key := range sortedKeys(a.NegativeBalances) {
		report = append(report, fmt.Sprintf("negative running balance for %s on %d sell leg(s): likely missing upstream data", key, a.NegativeBalances[key]))
	}
	for _, key := range sortedKeys(a.OutOfOrderLegs) {
		report = append(report, fmt.Sprintf("out-of-order delivery for %s on %d leg(s): cycle numbers are unreliable", key, a.OutOfOrderLegs[key]))
	}
	return report
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
