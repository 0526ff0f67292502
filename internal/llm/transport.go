package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// transport wraps outbound provider calls with a rate limiter and a circuit
// breaker. The pipeline never retries automatically; the breaker exists so a
// failing provider is reported fast instead of timing out on every question.
type transport struct {
	provider string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

func newTransport(provider string) *transport {
	settings := gobreaker.Settings{
		Name:    provider,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A client-side mistake (bad key, bad payload) is not a sign
			// the provider is down.
			if perr, ok := err.(*ProviderError); ok {
				return perr.StatusCode >= 400 && perr.StatusCode < 500
			}
			return false
		},
	}

	return &transport{
		provider: provider,
		client:   &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
		breaker:  gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// postJSON sends a JSON payload and returns the raw response body.
// Provider failures come back as *ProviderError.
func (t *transport) postJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	return t.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return nil, &ProviderError{Provider: t.provider, Message: err.Error()}
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &ProviderError{Provider: t.provider, Message: err.Error()}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &ProviderError{
				Provider:   t.provider,
				StatusCode: resp.StatusCode,
				Message:    string(raw),
			}
		}
		return raw, nil
	})
}
