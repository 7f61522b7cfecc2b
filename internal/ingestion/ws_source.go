package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// WSConfig configures WebSocket source behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// wsTransaction is the wire shape of one transaction on the feed.
type wsTransaction struct {
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

// WSSource streams wallet transactions from the chain-data collaborator over
// a WebSocket feed, resubscribing after reconnects.
type WSSource struct {
	endpoint string
	wallet   string
	config   WSConfig
	logger   *log.Logger

	out  chan *domain.SwapTransaction
	done chan struct{}
}

// NewWSSource creates a WebSocket transaction source for one wallet.
func NewWSSource(endpoint, wallet string, config *WSConfig, logger *log.Logger) *WSSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WSSource{
		endpoint: endpoint,
		wallet:   wallet,
		config:   cfg,
		logger:   logger,
		out:      make(chan *domain.SwapTransaction, 256),
		done:     make(chan struct{}),
	}
}

// Transactions connects and starts the read loop. The returned channel is
// closed when ctx is cancelled or Close is called.
func (s *WSSource) Transactions(ctx context.Context) (<-chan *domain.SwapTransaction, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	go s.readLoop(ctx, conn)
	return s.out, nil
}

// Close stops the source.
func (s *WSSource) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

func (s *WSSource) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.config.WriteTimeout}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.endpoint, err)
	}

	sub := map[string]string{"action": "subscribe", "wallet": s.wallet}
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe wallet %s: %w", s.wallet, err)
	}

	s.logger.Printf("[ws] subscribed to wallet %s", s.wallet)
	return conn, nil
}

// readLoop reads transactions until shutdown, reconnecting with exponential
// backoff on connection loss.
func (s *WSSource) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(s.out)
	defer conn.Close()

	pingTicker := time.NewTicker(s.config.PingInterval)
	defer pingTicker.Stop()

	delay := s.config.ReconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Printf("[ws] ping failed: %v", err)
			}
			continue
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			s.logger.Printf("[ws] connection lost, reconnecting in %v: %v", delay, err)

			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}

			next, err := s.connect(ctx)
			if err != nil {
				s.logger.Printf("[ws] reconnect failed: %v", err)
				continue
			}
			conn = next
			delay = s.config.ReconnectDelay
			continue
		}

		tx, err := decodeTransaction(data)
		if err != nil {
			s.logger.Printf("[ws] SKIP undecodable message: %v", err)
			continue
		}

		select {
		case s.out <- tx:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func decodeTransaction(data []byte) (*domain.SwapTransaction, error) {
	var wire wsTransaction
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if wire.Signature == "" {
		return nil, fmt.Errorf("transaction missing signature")
	}

	tx := &domain.SwapTransaction{
		Signature:   wire.Signature,
		Wallet:      wire.Wallet,
		Timestamp:   wire.Timestamp,
		Slot:        wire.Slot,
		FeeLamports: wire.FeeLamports,
		Venue:       wire.Venue,
	}
	for _, d := range wire.Deltas {
		tx.WalletTokenDeltas = append(tx.WalletTokenDeltas, domain.TokenDelta{
			Mint:     d.Mint,
			Change:   d.Change,
			Symbol:   d.Symbol,
			Decimals: d.Decimals,
		})
	}
	return tx, nil
}

var _ TransactionSource = (*WSSource)(nil)
