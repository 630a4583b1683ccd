package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrAcquireTimeout reports that a rate slot could not be obtained within
// the configured ceiling. Callers treat it as a soft per-source failure.
var ErrAcquireTimeout = errors.New("rate limit acquire timed out")

type sourceLimiter struct {
	limiter  *rate.Limiter
	inFlight chan struct{}
}

// RateLimiter gates outbound calls per source kind: a minimum inter-call
// interval plus a max concurrent in-flight count. Callers for different
// kinds proceed independently.
type RateLimiter struct {
	mu             sync.Mutex
	limiters       map[string]*sourceLimiter
	minInterval    time.Duration
	maxInFlight    int
	acquireTimeout time.Duration
}

func NewRateLimiter(minInterval time.Duration, maxInFlight int, acquireTimeout time.Duration) *RateLimiter {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &RateLimiter{
		limiters:       make(map[string]*sourceLimiter),
		minInterval:    minInterval,
		maxInFlight:    maxInFlight,
		acquireTimeout: acquireTimeout,
	}
}

func (r *RateLimiter) forKind(kind string) *sourceLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	sl, ok := r.limiters[kind]
	if !ok {
		sl = &sourceLimiter{
			limiter:  rate.NewLimiter(rate.Every(r.minInterval), 1),
			inFlight: make(chan struct{}, r.maxInFlight),
		}
		r.limiters[kind] = sl
	}
	return sl
}

// Acquire blocks until the kind's interval and in-flight budget permit a
// call, or fails with ErrAcquireTimeout after the configured ceiling.
// Every successful Acquire must be paired with a Release.
func (r *RateLimiter) Acquire(ctx context.Context, kind string) error {
	sl := r.forKind(kind)

	waitCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	select {
	case sl.inFlight <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: source %s", ErrAcquireTimeout, kind)
	}

	if err := sl.limiter.Wait(waitCtx); err != nil {
		<-sl.inFlight
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: source %s", ErrAcquireTimeout, kind)
	}

	return nil
}

func (r *RateLimiter) Release(kind string) {
	sl := r.forKind(kind)
	select {
	case <-sl.inFlight:
	default:
	}
}
