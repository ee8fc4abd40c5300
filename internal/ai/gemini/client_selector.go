package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultClientCooldown = 30 * time.Second

// textClient is the part of GeminiClient the selector drives.
type textClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	Close() error
}

// GeminiClientSelector spreads requests round-robin over one client per API
// key. A client that fails is benched for a cooldown and skipped while
// healthier clients remain.
type GeminiClientSelector struct {
	clients      []textClient
	benchedUntil []time.Time
	next         int
	cooldown     time.Duration
	now          func() time.Time
	mutex        sync.Mutex
}

func NewGeminiClientSelector(clients []GeminiClient) *GeminiClientSelector {
	wrapped := make([]textClient, len(clients))
	for i := range clients {
		wrapped[i] = &clients[i]
	}
	return newSelector(wrapped, defaultClientCooldown)
}

func newSelector(clients []textClient, cooldown time.Duration) *GeminiClientSelector {
	return &GeminiClientSelector{
		clients:      clients,
		benchedUntil: make([]time.Time, len(clients)),
		cooldown:     cooldown,
		now:          time.Now,
	}
}

// order returns client indexes starting at the round-robin cursor, benched
// clients last.
func (s *GeminiClientSelector) order() []int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	ready := make([]int, 0, len(s.clients))
	benched := make([]int, 0)
	for i := range s.clients {
		idx := (s.next + i) % len(s.clients)
		if now.Before(s.benchedUntil[idx]) {
			benched = append(benched, idx)
			continue
		}
		ready = append(ready, idx)
	}
	s.next = (s.next + 1) % len(s.clients)
	return append(ready, benched...)
}

func (s *GeminiClientSelector) report(idx int, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err == nil {
		s.benchedUntil[idx] = time.Time{}
		return
	}
	s.benchedUntil[idx] = s.now().Add(s.cooldown)
}

// Generate sends prompt through the first client that answers.
func (s *GeminiClientSelector) Generate(ctx context.Context, prompt string) (string, error) {
	if len(s.clients) == 0 {
		return "", errors.New("no Gemini clients available")
	}

	var lastErr error
	for attempt, idx := range s.order() {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("gemini request abandoned after %d attempt(s): %w", attempt, err)
		}

		reply, err := s.clients[idx].GenerateText(ctx, prompt)
		s.report(idx, err)
		if err == nil {
			slog.Debug("Gemini API request succeeded", "client_index", idx, "attempt", attempt+1)
			return reply, nil
		}

		lastErr = err
		slog.Warn("Gemini API request failed, trying next client",
			"client_index", idx,
			"attempt", attempt+1,
			"error", err)
	}

	slog.Error("All Gemini clients exhausted", "total_clients", len(s.clients), "error", lastErr)
	return "", fmt.Errorf("all %d Gemini clients failed, last error: %w", len(s.clients), lastErr)
}

func (s *GeminiClientSelector) Close() {
	for i, client := range s.clients {
		if err := client.Close(); err != nil {
			slog.Warn("Failed to close Gemini client", "client_index", i, "error", err)
		}
	}
}
