// Package main provides the offline journal pipeline:
// fixtures → classification → labeling → cycle aggregation → CSV export.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/themeshri/onchain-journal-app/internal/classify"
	"github.com/themeshri/onchain-journal-app/internal/config"
	"github.com/themeshri/onchain-journal-app/internal/cycles"
	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/engine"
	"github.com/themeshri/onchain-journal-app/internal/ingestion"
	"github.com/themeshri/onchain-journal-app/internal/ingestion/stub"
	"github.com/themeshri/onchain-journal-app/internal/normalize"
	"github.com/themeshri/onchain-journal-app/internal/pricing"
	"github.com/themeshri/onchain-journal-app/internal/reporting"
	"github.com/themeshri/onchain-journal-app/internal/storage/memory"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	fixturesPath := flag.String("fixtures", "", "Path to JSON transaction fixtures (required)")
	outputDir := flag.String("output-dir", "out", "Output directory for CSV exports")
	flag.Parse()

	if *fixturesPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -fixtures is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling...\n", sig)
		cancel()
	}()

	txs, err := loadFixtures(*fixturesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d fixture transaction(s)\n", len(txs))

	// Offline runs value swaps through the stable peg only; token-to-token
	// swaps without a configured endpoint degrade to unknown value.
	var priceSource pricing.Source
	if cfg.Price.Endpoint != "" {
		priceSource = pricing.NewCachedSource(
			pricing.NewHTTPSource(cfg.Price.Endpoint, pricing.WithTimeout(cfg.PriceTimeout())),
			cfg.PriceTTL(),
		)
	}

	bases := classify.NewBaseCurrencies(
		cfg.BaseCurrencies.SettlementMints,
		cfg.BaseCurrencies.StableMints,
		cfg.BaseCurrencies.StableSymbols,
	)

	legStore := memory.NewLegStore()
	eng := engine.New(engine.Options{
		Normalizer:    normalize.New(cfg.Engine.DustEpsilon),
		Classifier:    classify.New(bases, priceSource, nil),
		Aggregator:    cycles.NewAggregator(cfg.Engine.DustEpsilon, nil),
		LegStore:      legStore,
		SnapshotStore: memory.NewCycleSnapshotStore(),
	})

	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		Source:        stub.NewSource(txs),
		Engine:        eng,
		BatchSize:     cfg.Ingest.BatchSize,
		FlushInterval: cfg.FlushInterval(),
	})
	if err := mgr.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Ingestion error: %v\n", err)
		os.Exit(1)
	}

	views, err := eng.RebuildWallet(ctx, cfg.Wallet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recompute error: %v\n", err)
		os.Exit(1)
	}
	legs, err := eng.Legs(ctx, cfg.Wallet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load legs error: %v\n", err)
		os.Exit(1)
	}

	completed := 0
	totalPnl := 0.0
	for _, v := range views {
		if v.Complete {
			completed++
		}
		totalPnl += v.RealizedPnl
	}
	fmt.Printf("Wallet %s: %d leg(s), %d cycle(s) (%d complete), realized P&L %.2f USD\n",
		cfg.Wallet, len(legs), len(views), completed, totalPnl)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	cyclesPath := filepath.Join(*outputDir, "cycles.csv")
	legsPath := filepath.Join(*outputDir, "legs.csv")
	if err := os.WriteFile(cyclesPath, []byte(reporting.RenderCyclesCSV(views)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", cyclesPath, err)
		os.Exit(1)
	}
	if err := os.WriteFile(legsPath, []byte(reporting.RenderLegsCSV(legs)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", legsPath, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s and %s\n", cyclesPath, legsPath)
}

// fixtureTransaction mirrors the WS feed's wire shape.
type fixtureTransaction struct {
	Signature   string `json:"signature"`
	Wallet      string `json:"wallet"`
	Timestamp   int64  `json:"timestamp"`
	Slot        int64  `json:"slot"`
	FeeLamports int64  `json:"feeLamports"`
	Venue       string `json:"venue"`
	Deltas      []struct {
		Mint     string  `json:"mint"`
		Change   float64 `json:"change"`
		Symbol   string  `json:"symbol"`
		Decimals int     `json:"decimals"`
	} `json:"walletTokenDeltas"`
}

func loadFixtures(path string) ([]*domain.SwapTransaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var wire []fixtureTransaction
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	txs := make([]*domain.SwapTransaction, 0, len(wire))
	for _, w := range wire {
		tx := &domain.SwapTransaction{
			Signature:   w.Signature,
			Wallet:      w.Wallet,
			Timestamp:   w.Timestamp,
			Slot:        w.Slot,
			FeeLamports: w.FeeLamports,
			Venue:       w.Venue,
		}
		for _, d := range w.Deltas {
			tx.WalletTokenDeltas = append(tx.WalletTokenDeltas, domain.TokenDelta{
				Mint:     d.Mint,
				Change:   d.Change,
				Symbol:   d.Symbol,
				Decimals: d.Decimals,
			})
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
