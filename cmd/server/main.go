// Package main runs the journal server: live websocket ingestion,
// periodic cycle recomputation, and an HTTP API over the results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/themeshri/onchain-journal-app/internal/classify"
	"github.com/themeshri/onchain-journal-app/internal/config"
	"github.com/themeshri/onchain-journal-app/internal/cycles"
	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/engine"
	"github.com/themeshri/onchain-journal-app/internal/ingestion"
	"github.com/themeshri/onchain-journal-app/internal/normalize"
	"github.com/themeshri/onchain-journal-app/internal/observability"
	"github.com/themeshri/onchain-journal-app/internal/pricing"
	"github.com/themeshri/onchain-journal-app/internal/reporting"
	"github.com/themeshri/onchain-journal-app/internal/storage"
	"github.com/themeshri/onchain-journal-app/internal/storage/clickhouse"
	"github.com/themeshri/onchain-journal-app/internal/storage/memory"
	"github.com/themeshri/onchain-journal-app/internal/storage/migrations"
	"github.com/themeshri/onchain-journal-app/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	legStore, snapshotStore, closeStores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer closeStores()

	metrics := observability.NewMetrics("onchain_journal")

	var priceSource pricing.Source
	if cfg.Price.Endpoint != "" {
		priceSource = pricing.NewCachedSource(
			pricing.NewHTTPSource(cfg.Price.Endpoint,
				pricing.WithTimeout(cfg.PriceTimeout()),
				pricing.WithOracleMetrics(metrics.OracleLookups, metrics.OracleFailures),
			),
			cfg.PriceTTL(),
		).WithMetrics(metrics.PriceCacheHits, metrics.PriceCacheMisses)
	}

	bases := classify.NewBaseCurrencies(
		cfg.BaseCurrencies.SettlementMints,
		cfg.BaseCurrencies.StableMints,
		cfg.BaseCurrencies.StableSymbols,
	)

	eng := engine.New(engine.Options{
		Normalizer:    normalize.New(cfg.Engine.DustEpsilon),
		Classifier:    classify.New(bases, priceSource, log.New(os.Stdout, "[classify] ", log.LstdFlags)),
		Aggregator:    cycles.NewAggregator(cfg.Engine.DustEpsilon, log.New(os.Stdout, "[cycles] ", log.LstdFlags)),
		LegStore:      legStore,
		SnapshotStore: snapshotStore,
		Metrics:       metrics,
		Logger:        log.New(os.Stdout, "[engine] ", log.LstdFlags),
	})

	source := ingestion.NewWSSource(cfg.Ingest.WSEndpoint, cfg.Wallet, nil,
		log.New(os.Stdout, "[ws] ", log.LstdFlags))
	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		Source:        source,
		Engine:        eng,
		BatchSize:     cfg.Ingest.BatchSize,
		FlushInterval: cfg.FlushInterval(),
		Metrics:       metrics,
		Logger:        log.New(os.Stdout, "[ingest] ", log.LstdFlags),
	})

	go func() {
		if err := mgr.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("ingestion stopped: %v", err)
			cancel()
		}
	}()

	go recomputeLoop(ctx, eng, cfg.Wallet, cfg.RecomputeInterval(), logger)

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: newRouter(eng, snapshotStore, cfg.Wallet),
	}
	go func() {
		logger.Printf("listening on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("http server: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	if err := source.Close(); err != nil {
		logger.Printf("source close: %v", err)
	}
	logger.Println("shutdown complete")
}

// buildStores wires leg and snapshot storage from config. Memory mode takes
// precedence; otherwise the Postgres DSN is required and migrations run at
// startup. An empty ClickHouse DSN disables snapshots: the snapshot store
// comes back nil and cycles are served by live recompute only.
func buildStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.LegStore, storage.CycleSnapshotStore, func(), error) {
	if cfg.Storage.Memory {
		logger.Println("using in-memory storage")
		return memory.NewLegStore(), memory.NewCycleSnapshotStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	if cfg.Storage.ClickhouseDSN == "" {
		logger.Println("no clickhouse dsn, cycle snapshots disabled")
		return postgres.NewLegStore(pool), nil, pool.Close, nil
	}

	conn, err := clickhouse.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		pool.Close()
		conn.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	closeFn := func() {
		pool.Close()
		if err := conn.Close(); err != nil {
			logger.Printf("clickhouse close: %v", err)
		}
	}
	return postgres.NewLegStore(pool), clickhouse.NewCycleSnapshotStore(conn), closeFn, nil
}

func recomputeLoop(ctx context.Context, eng *engine.Engine, wallet string, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := eng.RebuildWallet(ctx, wallet); err != nil {
				logger.Printf("recompute failed: %v", err)
			}
		}
	}
}

func newRouter(eng *engine.Engine, snapshots storage.CycleSnapshotStore, wallet string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("/api/legs", func(w http.ResponseWriter, r *http.Request) {
		legs, err := eng.Legs(r.Context(), wallet)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			fmt.Fprint(w, reporting.RenderLegsCSV(legs))
			return
		}
		writeJSON(w, legs)
	})

	mux.HandleFunc("/api/cycles", func(w http.ResponseWriter, r *http.Request) {
		// With snapshots disabled every read is a live recompute.
		if r.URL.Query().Get("recompute") == "true" || snapshots == nil {
			views, err := eng.RebuildWallet(r.Context(), wallet)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			respondCycles(w, r, views)
			return
		}
		snaps, err := snapshots.GetByWallet(r.Context(), wallet)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, snaps)
	})

	mux.Handle("/metrics", observability.Handler())
	return mux
}

func respondCycles(w http.ResponseWriter, r *http.Request, views []*domain.CycleView) {
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, reporting.RenderCyclesCSV(views))
		return
	}
	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
