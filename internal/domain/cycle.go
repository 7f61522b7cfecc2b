package domain

// TradeCycle is the lifespan of a position in one token: from first
// acquisition (balance 0 -> positive) to full liquidation (balance back to 0).
// Mutated incrementally by the aggregator, in timestamp order. Once Complete
// becomes true the cycle is never reopened; a later buy starts a new cycle.
type TradeCycle struct {
	SequenceNumber int    // 1-based, per (wallet, mint)
	Wallet         string // tracked wallet address
	TokenMint      string // token mint address
	TokenSymbol    string // token symbol

	Legs []*Leg // legs applied to this cycle, in timestamp order

	TotalBuyAmount    float64
	TotalBuyValueUsd  float64
	TotalSellAmount   float64
	TotalSellValueUsd float64

	StartBalance float64 // running balance when the cycle opened
	EndBalance   float64 // running balance after the last applied leg
	RealizedPnl  float64 // totalSellValueUsd - totalSellAmount * avgBuyPrice

	Complete bool // monotonic: false -> true, never back

	StartTimestamp  int64  // timestamp of the leg that opened the cycle
	EndTimestamp    *int64 // timestamp of the leg that closed the cycle (nil while open)
	DurationSeconds *int64 // EndTimestamp - StartTimestamp (nil while open)

	// UnknownValueLegs counts legs whose USD value could not be resolved.
	// P&L figures for a cycle with UnknownValueLegs > 0 understate value flow.
	UnknownValueLegs int
}

// AvgBuyPrice returns the average USD price paid per unit across all buy
// legs accumulated so far. Defined as 0 when no buys have been applied.
func (c *TradeCycle) AvgBuyPrice() float64 {
	if c.TotalBuyAmount == 0 {
		return 0
	}
	return c.TotalBuyValueUsd / c.TotalBuyAmount
}

// TokenCycleSeries is the full cycle history for one (wallet, mint) pair.
// Recomputed from the complete ordered leg history on every request, never
// incrementally checkpointed.
type TokenCycleSeries struct {
	Wallet      string
	TokenMint   string
	TokenSymbol string

	RunningBalance float64       // forced to exactly 0 whenever a cycle completes
	Cycles         []*TradeCycle // ordered by sequence number
	TotalTrades    int           // cycle count, including a still-open cycle
}

// OpenCycle returns the currently open cycle, or nil if the latest cycle is
// complete or no cycles exist.
func (s *TokenCycleSeries) OpenCycle() *TradeCycle {
	if len(s.Cycles) == 0 {
		return nil
	}
	last := s.Cycles[len(s.Cycles)-1]
	if last.Complete {
		return nil
	}
	return last
}

// CycleView is a cycle annotated with its position in the cross-token
// presentation ordering (all tokens flattened, newest first).
type CycleView struct {
	GlobalSequence int // 1-based position after sorting by StartTimestamp descending
	*TradeCycle
}

// CycleSnapshot is a flattened, persistence-friendly projection of a
// TradeCycle taken at a known recompute time.
// Corresponds to the cycle_snapshots table in ClickHouse.
type CycleSnapshot struct {
	Wallet            string
	TokenMint         string
	TokenSymbol       string
	SequenceNumber    int
	LegCount          int
	TotalBuyAmount    float64
	TotalBuyValueUsd  float64
	TotalSellAmount   float64
	TotalSellValueUsd float64
	StartBalance      float64
	EndBalance        float64
	RealizedPnl       float64
	Complete          bool
	StartTimestamp    int64
	EndTimestamp      *int64
	DurationSeconds   *int64
	ComputedAt        int64 // Unix timestamp in seconds of the recompute run
}

// Snapshot flattens the cycle into a CycleSnapshot taken at computedAt.
func (c *TradeCycle) Snapshot(computedAt int64) *CycleSnapshot {
	return &CycleSnapshot{
		Wallet:            c.Wallet,
		TokenMint:         c.TokenMint,
		TokenSymbol:       c.TokenSymbol,
		SequenceNumber:    c.SequenceNumber,
		LegCount:          len(c.Legs),
		TotalBuyAmount:    c.TotalBuyAmount,
		TotalBuyValueUsd:  c.TotalBuyValueUsd,
		TotalSellAmount:   c.TotalSellAmount,
		TotalSellValueUsd: c.TotalSellValueUsd,
		StartBalance:      c.StartBalance,
		EndBalance:        c.EndBalance,
		RealizedPnl:       c.RealizedPnl,
		Complete:          c.Complete,
		StartTimestamp:    c.StartTimestamp,
		EndTimestamp:      c.EndTimestamp,
		DurationSeconds:   c.DurationSeconds,
		ComputedAt:        computedAt,
	}
}
