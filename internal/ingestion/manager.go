package ingestion

import (
	"context"
	"log"
	"time"

	"github.com/themeshri/onchain-journal-app/internal/domain"
	"github.com/themeshri/onchain-journal-app/internal/engine"
	"github.com/themeshri/onchain-journal-app/internal/observability"
)

// Default batching parameters.
const (
	DefaultBatchSize     = 50
	DefaultFlushInterval = 2 * time.Second
)

// Manager drains a transaction source through the engine in batches, so one
// processing run issues at most one oracle round trip per batch.
type Manager struct {
	source  TransactionSource
	engine  *engine.Engine
	metrics *observability.Metrics
	logger  *log.Logger

	batchSize     int
	flushInterval time.Duration
}

// ManagerOptions contains configuration for creating a Manager.
// Metrics is optional.
type ManagerOptions struct {
	Source  TransactionSource
	Engine  *engine.Engine
	Metrics *observability.Metrics
	Logger  *log.Logger

	BatchSize     int
	FlushInterval time.Duration
}

// NewManager creates an ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Manager{
		source:        opts.Source,
		engine:        opts.Engine,
		metrics:       opts.Metrics,
		logger:        logger,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Run consumes the source until it closes or ctx is cancelled. Transactions
// are flushed to the engine when the batch fills or the flush interval
// elapses. A failed flush is logged and counted, not fatal: the stream keeps
// going so one bad batch cannot stall ingestion.
func (m *Manager) Run(ctx context.Context) error {
	txCh, err := m.source.Transactions(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	var batch []*domain.SwapTransaction
	flush := func() {
		if len(batch) == 0 {
			return
		}
		stored, err := m.engine.ProcessTransactions(ctx, batch)
		if err != nil {
			m.logger.Printf("[ingest] flush of %d transaction(s) failed: %v", len(batch), err)
			if m.metrics != nil {
				m.metrics.IngestionErrors.WithLabelValues("flush").Inc()
			}
		} else {
			m.logger.Printf("[ingest] stored %d leg(s) from %d transaction(s)", stored, len(batch))
			if m.metrics != nil {
				m.metrics.LastSuccessfulIngestion.SetToCurrentTime()
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()
		case <-ticker.C:
			flush()
		case tx, ok := <-txCh:
			if !ok {
				flush()
				return nil
			}
			if m.metrics != nil {
				m.metrics.TransactionsIngested.Inc()
			}
			batch = append(batch, tx)
			if len(batch) >= m.batchSize {
				flush()
			}
		}
	}
}
