// Package notification delivers pending stage notifications to webhook
// endpoints.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/legisflow/legisflow/domain/notification"
)

// SenderConfig configures the HTTP sender.
type SenderConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
	// MaxRetries is the maximum number of attempts per delivery.
	MaxRetries int
	// RetryDelay is the initial delay between retries.
	RetryDelay time.Duration
	// CircuitBreakerThreshold is consecutive failures before an endpoint's
	// circuit opens.
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout is how long an open circuit stays open.
	CircuitBreakerTimeout time.Duration
	// UserAgent is the User-Agent header value.
	UserAgent string
	// Client overrides the HTTP client.
	Client *http.Client
}

// DefaultSenderConfig returns the default sender configuration.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Timeout:                 30 * time.Second,
		MaxRetries:              3,
		RetryDelay:              time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		UserAgent:               "legisflow-webhook/1.0",
	}
}

// Sender posts notifications to webhook endpoints with retry and a circuit
// breaker per endpoint URL.
type Sender struct {
	config   SenderConfig
	client   *http.Client
	signer   *Signer
	now      func() time.Time
	breakers map[string]circuitbreaker.CircuitBreaker[struct{}]
	retrier  retry.Retry[struct{}]
	mu       sync.RWMutex
}

// NewSender creates a new HTTP sender.
func NewSender(config SenderConfig) *Sender {
	defaults := DefaultSenderConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = defaults.CircuitBreakerThreshold
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = defaults.CircuitBreakerTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &Sender{
		config:   config,
		client:   client,
		signer:   NewSigner(),
		now:      time.Now,
		breakers: make(map[string]circuitbreaker.CircuitBreaker[struct{}]),
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:   config.MaxRetries,
			InitialDelay:  config.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			// 4xx responses are final.
			NonRetryableErrors: []error{notification.ErrEndpointRejected},
		}),
	}
}

// Deliver posts a single notification. It implements notification.Notifier.
func (s *Sender) Deliver(ctx context.Context, endpoint *notification.Endpoint, n *notification.Notification) error {
	return s.DeliverBatch(ctx, endpoint, []*notification.Notification{n})
}

// DeliverBatch posts notifications as one JSON array.
func (s *Sender) DeliverBatch(ctx context.Context, endpoint *notification.Endpoint, ns []*notification.Notification) error {
	if err := endpoint.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(ns)
	if err != nil {
		return fmt.Errorf("failed to serialize notifications: %w", err)
	}

	breaker := s.breaker(endpoint.URL)
	_, err = breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return s.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.post(ctx, endpoint, body)
		})
	})
	return err
}

// post performs one attempt. The request is rebuilt on every attempt so the
// body reader and signature timestamp are fresh.
func (s *Sender) post(ctx context.Context, endpoint *notification.Endpoint, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.config.UserAgent)
	for key, value := range endpoint.Headers {
		req.Header.Set(key, value)
	}
	if endpoint.Secret != "" {
		for key, value := range s.signer.Headers(body, endpoint.Secret, s.now()) {
			req.Header.Set(key, value)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", notification.ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", notification.ErrEndpointUnavailable, resp.StatusCode, snippet)
	default:
		return fmt.Errorf("%w: status %d: %s", notification.ErrEndpointRejected, resp.StatusCode, snippet)
	}
}

func (s *Sender) breaker(url string) circuitbreaker.CircuitBreaker[struct{}] {
	s.mu.RLock()
	cb, ok := s.breakers[url]
	s.mu.RUnlock()
	if ok {
		return cb
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok = s.breakers[url]; ok {
		return cb
	}

	threshold := uint32(s.config.CircuitBreakerThreshold) // #nosec G115 -- validated positive in NewSender
	cb = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    s.config.CircuitBreakerTimeout,
		Timeout:     s.config.CircuitBreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	s.breakers[url] = cb
	return cb
}

// BreakerState returns the circuit state for an endpoint URL, or "unknown"
// when nothing was sent to it yet.
func (s *Sender) BreakerState(url string) string {
	s.mu.RLock()
	cb, ok := s.breakers[url]
	s.mu.RUnlock()
	if !ok {
		return "unknown"
	}
	return cb.State().String()
}

var _ notification.Notifier = (*Sender)(nil)
