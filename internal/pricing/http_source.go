package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPSource implements Source against a JSON price API.
// The endpoint is expected to answer GET <endpoint>?ids=<mint>,<mint> with
// {"data": {"<mint>": {"price": <usd>}, ...}}; absent mints stay unknown.
type HTTPSource struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	lookups     prometheus.Counter
	failures    prometheus.Counter
}

// Option configures HTTPSource.
type Option func(*HTTPSource)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPSource) {
		s.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(s *HTTPSource) {
		s.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(s *HTTPSource) {
		s.retryDelay = d
	}
}

// WithOracleMetrics attaches counters for issued queries and terminal
// failures. Nil counters are ignored.
func WithOracleMetrics(lookups, failures prometheus.Counter) Option {
	return func(s *HTTPSource) {
		s.lookups = lookups
		s.failures = failures
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// NewHTTPSource creates a price source talking to the given endpoint.
func NewHTTPSource(endpoint string, opts ...Option) *HTTPSource {
	s := &HTTPSource{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type priceResponse struct {
	Data map[string]struct {
		Price float64 `json:"price"`
	} `json:"data"`
}

// Prices fetches USD prices for all mints in a single request, retrying with
// exponential backoff on transport errors and 5xx responses.
func (s *HTTPSource) Prices(ctx context.Context, mints []string) (map[string]float64, error) {
	if len(mints) == 0 {
		return map[string]float64{}, nil
	}

	if s.lookups != nil {
		s.lookups.Inc()
	}
	reqURL := fmt.Sprintf("%s?ids=%s", s.endpoint, url.QueryEscape(strings.Join(mints, ",")))

	var lastErr error
	delay := s.retryDelay
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * s.backoffMult)
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}

		prices, retryable, err := s.fetch(ctx, reqURL)
		if err == nil {
			return prices, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	if s.failures != nil {
		s.failures.Inc()
	}
	return nil, fmt.Errorf("fetch prices after %d attempts: %w", s.maxRetries+1, lastErr)
}

func (s *HTTPSource) fetch(ctx context.Context, reqURL string) (map[string]float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("price api status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("price api status %d", resp.StatusCode)
	}

	var parsed priceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode price response: %w", err)
	}

	out := make(map[string]float64, len(parsed.Data))
	for mint, entry := range parsed.Data {
		out[mint] = entry.Price
	}
	return out, false, nil
}

var _ Source = (*HTTPSource)(nil)
