package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 15 * time.Second
	maxRetryDelay         = 10 * time.Second
)

var _ Adapter = (*ChainAdapter)(nil)

// ChainAdapter walks an ordered list of strategies, stopping at the first
// one that yields at least one item. Every outbound attempt passes through
// the shared rate limiter and is bounded by an attempt timeout; transient
// failures are retried with exponential backoff.
type ChainAdapter struct {
	kind           string
	strategies     []Strategy
	limiter        *RateLimiter
	maxItems       int
	maxAttempts    int
	attemptTimeout time.Duration
}

func NewChainAdapter(kind string, strategies []Strategy, limiter *RateLimiter, maxItems int) *ChainAdapter {
	return &ChainAdapter{
		kind:           kind,
		strategies:     strategies,
		limiter:        limiter,
		maxItems:       maxItems,
		maxAttempts:    defaultMaxAttempts,
		attemptTimeout: defaultAttemptTimeout,
	}
}

func (a *ChainAdapter) Kind() string {
	return a.kind
}

func (a *ChainAdapter) Fetch(ctx context.Context, query Query) ([]RawItem, bool, error) {
	var collected []RawItem
	var failures []error

	for _, strategy := range a.strategies {
		if ctx.Err() != nil {
			// Budget exhausted mid-chain: hand back whatever we have.
			return a.finalize(query, collected), true, nil
		}

		items, err := a.tryStrategy(ctx, strategy, query)
		if err != nil {
			if errors.Is(err, ErrAcquireTimeout) {
				// Rate budget gone for this run; later strategies share it.
				failures = append(failures, err)
				break
			}
			slog.Debug("Source strategy failed",
				"source", a.kind, "strategy", strategy.Name(), "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}

		collected = append(collected, items...)
		if len(collected) > 0 {
			break
		}
	}

	result := a.finalize(query, collected)
	if len(result) == 0 && len(failures) > 0 {
		return nil, false, errors.Join(failures...)
	}

	return result, len(failures) > 0, nil
}

func (a *ChainAdapter) tryStrategy(ctx context.Context, strategy Strategy, query Query) ([]RawItem, error) {
	var lastErr error

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := a.limiter.Acquire(ctx, a.kind); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.attemptTimeout)
		items, err := strategy.Fetch(attemptCtx, query)
		cancel()
		a.limiter.Release(a.kind)

		if err == nil {
			return items, nil
		}

		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("exhausted %d attempts: %w", a.maxAttempts, lastErr)
}

// finalize tags items with the source kind, drops irrelevant ones, and
// applies the per-source cap.
func (a *ChainAdapter) finalize(query Query, items []RawItem) []RawItem {
	result := make([]RawItem, 0, len(items))
	for _, item := range items {
		item.Source = a.kind
		if !matchesTopic(item, query) {
			continue
		}
		result = append(result, item)
		if a.maxItems > 0 && len(result) >= a.maxItems {
			break
		}
	}
	return result
}

// matchesTopic keeps items mentioning the topic name or any keyword.
// Topics without keywords accept everything the query already scoped.
func matchesTopic(item RawItem, query Query) bool {
	if len(query.Keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(item.Title + " " + item.Body)
	if strings.Contains(haystack, strings.ToLower(query.TopicName)) {
		return true
	}
	for _, keyword := range query.Keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// isTransient reports whether an attempt failure is worth retrying:
// network timeouts, 429 and 5xx responses. Other HTTP errors, malformed
// payloads and context cancellation are not.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
