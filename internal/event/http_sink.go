package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"claims-service/internal/config"

	"github.com/sony/gobreaker"
)

const (
	defaultSinkTimeout = 15 * time.Second
	maxErrorBody       = 512
)

// HTTPSink POSTs envelopes as a JSON array to an event ingestion endpoint,
// authenticated with a shared-secret header.
type HTTPSink struct {
	url       string
	key       string
	keyHeader string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
}

func NewHTTPSink(cfg config.EventSinkConfig) *HTTPSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	keyHeader := cfg.KeyHeader
	if keyHeader == "" {
		keyHeader = "aeg-sas-key"
	}

	settings := gobreaker.Settings{
		Name:        "event-sink",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &HTTPSink{
		url:       cfg.URL,
		key:       cfg.Key,
		keyHeader: keyHeader,
		client:    &http.Client{Timeout: timeout},
		breaker:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (s *HTTPSink) Name() string {
	return "http"
}

// Send delivers one envelope. While the breaker is open it fails fast with
// gobreaker.ErrOpenState.
func (s *HTTPSink) Send(ctx context.Context, envelope *Envelope) error {
	body, err := json.Marshal([]*Envelope{envelope})
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	_, err = s.breaker.Execute(func() (any, error) {
		return nil, s.post(ctx, body)
	})
	return err
}

func (s *HTTPSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.key != "" {
		req.Header.Set(s.keyHeader, s.key)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("event sink unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("event sink returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
