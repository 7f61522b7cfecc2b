package classify

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"

	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/pricing"
)

const (
	solMint  = "mint-SOL"
	usdcMint = "mint-USDC"
	bonkMint = "mint-BONK"
	jupMint  = "mint-JUP"
)

func testBases() BaseCurrencies {
	return NewBaseCurrencies(
		[]string{solMint},
		[]string{usdcMint},
		[]string{"USDC", "USDT"},
	)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func swapTx(sig string, fee int64, deltas ...domain.TokenDelta) *domain.SwapTransaction {
	return &domain.SwapTransaction{
		Signature:         sig,
		Wallet:            "wallet-1",
		Timestamp:         1700000000,
		Slot:              250000000,
		FeeLamports:       fee,
		Venue:             "raydium",
		WalletTokenDeltas: deltas,
	}
}

func TestClassify_StableToToken(t *testing.T) {
	// Spend 100 USDC for 1000 BONK: one buy leg valued at the stable amount.
	c := New(testBases(), nil, quietLogger())

	legs := c.Classify(context.Background(), swapTx("sig-1", 5000,
		domain.TokenDelta{Mint: usdcMint, Change: -100, Symbol: "USDC"},
		domain.TokenDelta{Mint: bonkMint, Change: 1000, Symbol: "BONK"},
	))

	if len(legs) != 1 {
		t.Fatalf("expected 1 leg, got %d", len(legs))
	}
	leg := legs[0]
	if leg.Direction != domain.DirectionBuy {
		t.Errorf("expected buy, got %s", leg.Direction)
	}
	if leg.TokenMint != bonkMint || leg.CounterMint != usdcMint {
		t.Errorf("expected token %s counter %s, got %s/%s", bonkMint, usdcMint, leg.TokenMint, leg.CounterMint)
	}
	if leg.Amount != 1000 {
		t.Errorf("expected amount 1000, got %f", leg.Amount)
	}
	if leg.UsdValue != 100 || leg.UsdUnknown {
		t.Errorf("expected usd 100 known, got %f unknown=%v", leg.UsdValue, leg.UsdUnknown)
	}
	if leg.FeeLamports != 5000 {
		t.Errorf("expected full fee 5000 on single leg, got %d", leg.FeeLamports)
	}
}

func TestClassify_TokenToStable(t *testing.T) {
	// Sell 1000 BONK for 120 USDC: one sell leg, labeled sell at emission.
	c := New(testBases(), nil, quietLogger())

	legs := c.Classify(context.Background(), swapTx("sig-1", 5000,
		domain.TokenDelta{Mint: bonkMint, Change: -1000, Symbol: "BONK"},
		domain.TokenDelta{Mint: usdcMint, Change: 120, Symbol: "USDC"},
	))

	if len(legs) != 1 {
		t.Fatalf("expected 1 leg, got %d", len(legs))
	}
	leg := legs[0]
	if leg.Direction != domain.DirectionSell {
		t.Errorf("expected sell, got %s", leg.Direction)
	}
	if leg.Amount != 1000 {
		t.Errorf("expected amount 1000, got %f", leg.Amount)
	}
	if leg.UsdValue != 120 {
		t.Errorf("expected usd 120 from bought stable, got %f", leg.UsdValue)
	}
	if leg.TransactionType != domain.TxTypeSell {
		t.Errorf("expected transaction type %q, got %q", domain.TxTypeSell, leg.TransactionType)
	}
}

func TestClassify_TokenToToken_SoldSidePrice(t *testing.T) {
	// BONK -> JUP with a spot price for the sold side: two legs sharing the
	// sold-side valuation, full fee on the sell leg only.
	prices := pricing.NewStatic(map[string]float64{bonkMint: 0.02, jupMint: 0.5})
	c := New(testBases(), prices, quietLogger())

	legs := c.Classify(context.Background(), swapTx("sig-1", 5000,
		domain.TokenDelta{Mint: bonkMint, Change: -1000, Symbol: "BONK"},
		domain.TokenDelta{Mint: jupMint, Change: 40, Symbol: "JUP"},
	))

	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	sell, buy := legs[0], legs[1]
	if sell.Direction != domain.DirectionSell || buy.Direction != domain.DirectionBuy {
		t.Fatalf("expected sell then buy, got %s then %s", sell.Direction, buy.Direction)
	}
	// Sold-side price wins: 1000 * 0.02 = 20 on both legs.
	if sell.UsdValue != 20 || buy.UsdValue != 20 {
		t.Errorf("expected usd 20 on both legs, got sell=%f buy=%f", sell.UsdValue, buy.UsdValue)
	}
	if sell.FeeLamports != 5000 || buy.FeeLamports != 0 {
		t.Errorf("expected fee 5000/0, got %d/%d", sell.FeeLamports, buy.FeeLamports)
	}
	if sell.CounterMint != jupMint || buy.CounterMint != bonkMint {
		t.Errorf("expected counter mints %s/%s, got %s/%s", jupMint, bonkMint, sell.CounterMint, buy.CounterMint)
	}
}

func TestClassify_TokenToToken_BoughtSideFallback(t *testing.T) {
	// No price for the sold token: the bought side values the swap.
	prices := pricing.NewStatic(map[string]float64{jupMint: 0.5})
	c := New(testBases(), prices, quietLogger())

	legs := c.Classify(context.Background(), swapTx("sig-1", 0,
		domain.TokenDelta{Mint: bonkMint, Change: -1000, Symbol: "BONK"},
		domain.TokenDelta{Mint: jupMint, Change: 40, Symbol: "JUP"},
	))

	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	// 40 * 0.5 = 20.
	if legs[0].UsdValue != 20 || legs[0].UsdUnknown {
		t.Errorf("expected usd 20 known, got %f unknown=%v", legs[0].UsdValue, legs[0].UsdUnknown)
	}
}

func TestClassify_TokenToToken_NoPriceDegradesToUnknown(t *testing.T) {
	c := New(testBases(), pricing.NewStatic(nil), quietLogger())

	legs := c.Classify(context.Background(), swapTx("sig-1", 0,
		domain.TokenDelta{Mint: bonkMint, Change: -1000, Symbol: "BONK"},
		domain.TokenDelta{Mint: jupMint, Change: 40, Symbol: "JUP"},
	))

	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	for _, leg := range legs {
		if !leg.UsdUnknown || leg.UsdValue != 0 {
			t.Errorf("expected unknown value with 0 usd, got %f unknown=%v", leg.UsdValue, leg.UsdUnknown)
		}
	}
}

func TestClassify_PriceSourceErrorIsNotFatal(t *testing.T) {
	c := New(testBases(), failingSource{}, quietLogger())

	legs := c.Classify(context.Background(), swapTx("sig-1", 0,
		domain.TokenDelta{Mint: bonkMint, Change: -1000, Symbol: "BONK"},
		domain.TokenDelta{Mint: jupMint, Change: 40, Symbol: "JUP"},
	))

	if len(legs) != 2 {
		t.Fatalf("expected 2 legs despite oracle failure, got %d", len(legs))
	}
	if !legs[0].UsdUnknown {
		t.Error("expected unknown value after oracle failure")
	}
}

func TestClassify_NonSwapProducesNoLegs(t *testing.T) {
	c := New(testBases(), nil, quietLogger())

	// Airdrop: only increases.
	if legs := c.Classify(context.Background(), swapTx("sig-1", 0,
		domain.TokenDelta{Mint: bonkMint, Change: 1000},
	)); legs != nil {
		t.Errorf("expected no legs for one-sided increase, got %d", len(legs))
	}

	// Burn: only decreases.
	if legs := c.Classify(context.Background(), swapTx("sig-2", 0,
		domain.TokenDelta{Mint: bonkMint, Change: -1000},
	)); legs != nil {
		t.Errorf("expected no legs for one-sided decrease, got %d", len(legs))
	}

	// Empty delta set.
	if legs := c.Classify(context.Background(), swapTx("sig-3", 0)); legs != nil {
		t.Errorf("expected no legs for empty deltas, got %d", len(legs))
	}
}

func TestClassify_MultiDeltaCollapsesDeterministically(t *testing.T) {
	// Two increases and one decrease: the pair is the first of each after
	// ordering by mint, regardless of input order.
	c := New(testBases(), nil, quietLogger())

	forward := c.Classify(context.Background(), swapTx("sig-1", 0,
		domain.TokenDelta{Mint: usdcMint, Change: -100, Symbol: "USDC"},
		domain.TokenDelta{Mint: jupMint, Change: 40, Symbol: "JUP"},
		domain.TokenDelta{Mint: bonkMint, Change: 1000, Symbol: "BONK"},
	))
	reversed := c.Classify(context.Background(), swapTx("sig-1", 0,
		domain.TokenDelta{Mint: bonkMint, Change: 1000, Symbol: "BONK"},
		domain.TokenDelta{Mint: jupMint, Change: 40, Symbol: "JUP"},
		domain.TokenDelta{Mint: usdcMint, Change: -100, Symbol: "USDC"},
	))

	if len(forward) != 1 || len(reversed) != 1 {
		t.Fatalf("expected 1 leg from each ordering, got %d and %d", len(forward), len(reversed))
	}
	if forward[0].TokenMint != reversed[0].TokenMint {
		t.Errorf("pair selection depends on input order: %s vs %s", forward[0].TokenMint, reversed[0].TokenMint)
	}
}

func TestClassify_BaseToBaseEmitsBothLegs(t *testing.T) {
	// SOL -> USDC is a rotation between base currencies: both legs emitted,
	// valued off the stable side.
	c := New(testBases(), nil, quietLogger())

	legs := c.Classify(context.Background(), swapTx("sig-1", 5000,
		domain.TokenDelta{Mint: solMint, Change: -2, Symbol: "SOL"},
		domain.TokenDelta{Mint: usdcMint, Change: 300, Symbol: "USDC"},
	))

	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	if legs[0].Direction != domain.DirectionSell || legs[1].Direction != domain.DirectionBuy {
		t.Fatalf("expected sell then buy, got %s then %s", legs[0].Direction, legs[1].Direction)
	}
	if legs[0].UsdValue != 300 {
		t.Errorf("expected usd 300 from the stable side, got %f", legs[0].UsdValue)
	}
	if legs[0].FeeLamports != 5000 || legs[1].FeeLamports != 0 {
		t.Errorf("expected fee on sell leg only, got %d/%d", legs[0].FeeLamports, legs[1].FeeLamports)
	}
}

func TestClassify_SellAmountIsAbsolute(t *testing.T) {
	c := New(testBases(), nil, quietLogger())

	legs := c.Classify(context.Background(), swapTx("sig-1", 0,
		domain.TokenDelta{Mint: bonkMint, Change: -123.45, Symbol: "BONK"},
		domain.TokenDelta{Mint: usdcMint, Change: 10, Symbol: "USDC"},
	))

	if len(legs) != 1 {
		t.Fatalf("expected 1 leg, got %d", len(legs))
	}
	if math.Signbit(legs[0].Amount) || legs[0].Amount != 123.45 {
		t.Errorf("expected positive amount 123.45, got %f", legs[0].Amount)
	}
}

func TestClassifyBatch_SingleOracleRoundTrip(t *testing.T) {
	// Two token-to-token swaps in one batch must produce exactly one Prices
	// call covering the deduplicated mint set.
	src := &countingSource{prices: map[string]float64{bonkMint: 0.02, jupMint: 0.5}}
	c := New(testBases(), src, quietLogger())

	legs := c.ClassifyBatch(context.Background(), []*domain.SwapTransaction{
		swapTx("sig-1", 0,
			domain.TokenDelta{Mint: bonkMint, Change: -1000, Symbol: "BONK"},
			domain.TokenDelta{Mint: jupMint, Change: 40, Symbol: "JUP"},
		),
		swapTx("sig-2", 0,
			domain.TokenDelta{Mint: jupMint, Change: -40, Symbol: "JUP"},
			domain.TokenDelta{Mint: bonkMint, Change: 900, Symbol: "BONK"},
		),
		// Stable-legged swap needs no oracle.
		swapTx("sig-3", 0,
			domain.TokenDelta{Mint: usdcMint, Change: -50, Symbol: "USDC"},
			domain.TokenDelta{Mint: bonkMint, Change: 400, Symbol: "BONK"},
		),
	})

	if src.calls != 1 {
		t.Errorf("expected 1 oracle call, got %d", src.calls)
	}
	if len(src.lastMints) != 2 {
		t.Errorf("expected 2 deduplicated mints, got %v", src.lastMints)
	}
	if len(legs) != 5 {
		t.Errorf("expected 5 legs (2+2+1), got %d", len(legs))
	}
}

func TestClassifyBatch_PreservesTransactionOrder(t *testing.T) {
	c := New(testBases(), nil, quietLogger())

	legs := c.ClassifyBatch(context.Background(), []*domain.SwapTransaction{
		swapTx("sig-1", 0,
			domain.TokenDelta{Mint: usdcMint, Change: -10, Symbol: "USDC"},
			domain.TokenDelta{Mint: bonkMint, Change: 100, Symbol: "BONK"},
		),
		swapTx("sig-2", 0,
			domain.TokenDelta{Mint: usdcMint, Change: -20, Symbol: "USDC"},
			domain.TokenDelta{Mint: jupMint, Change: 40, Symbol: "JUP"},
		),
	})

	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	if legs[0].Signature != "sig-1" || legs[1].Signature != "sig-2" {
		t.Errorf("expected input order preserved, got %s then %s", legs[0].Signature, legs[1].Signature)
	}
}

type failingSource struct{}

func (failingSource) Prices(context.Context, []string) (map[string]float64, error) {
	return nil, errors.New("oracle unavailable")
}

type countingSource struct {
	prices    map[string]float64
	calls     int
	lastMints []string
}

func (s *countingSource) Prices(_ context.Context, mints []string) (map[string]float64, error) {
	s.calls++
	s.lastMints = mints
	return s.prices, nil
}
