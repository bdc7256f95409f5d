package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// CircuitBreakerFetcher wraps a Fetcher with one circuit breaker per
// upstream host, so a package host that starts failing repeatedly stops
// taking further build-blocking download requests instead of being
// retried into the ground on every Tropohouse lookup.
type CircuitBreakerFetcher struct {
	fetcher  *Fetcher
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewCircuitBreakerFetcher wraps f with per-host circuit breakers.
func NewCircuitBreakerFetcher(f *Fetcher) *CircuitBreakerFetcher {
	return &CircuitBreakerFetcher{
		fetcher:  f,
		breakers: make(map[string]*circuit.Breaker),
	}
}

// breakerFor returns or creates the breaker tracking upstream.
func (cbf *CircuitBreakerFetcher) breakerFor(upstream string) *circuit.Breaker {
	cbf.mu.RLock()
	breaker, exists := cbf.breakers[upstream]
	cbf.mu.RUnlock()

	if exists {
		return breaker
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()

	if breaker, exists := cbf.breakers[upstream]; exists {
		return breaker
	}

	// Trips once 5 failures are counted in the breaker's window, backs off
	// exponentially before
	// probing the upstream again.
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	cbf.breakers[upstream] = breaker
	return breaker
}

// Fetch downloads fetchURL through the breaker for its host, failing fast
// without touching the network once that host's breaker has tripped.
func (cbf *CircuitBreakerFetcher) Fetch(ctx context.Context, fetchURL string) (*Artifact, error) {
	upstream := extractUpstream(fetchURL)
	breaker := cbf.breakerFor(upstream)

	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for upstream %s: %w", upstream, ErrUpstreamDown)
	}

	var artifact *Artifact
	err := breaker.Call(func() error {
		var fetchErr error
		artifact, fetchErr = cbf.fetcher.Fetch(ctx, fetchURL)
		return fetchErr
	}, 0)

	if err != nil {
		return nil, err
	}

	return artifact, nil
}

// Head probes headURL through the breaker for its host, same fast-fail
// behavior as Fetch.
func (cbf *CircuitBreakerFetcher) Head(ctx context.Context, headURL string) (size int64, contentType string, err error) {
	upstream := extractUpstream(headURL)
	breaker := cbf.breakerFor(upstream)

	if !breaker.Ready() {
		return 0, "", fmt.Errorf("circuit breaker open for upstream %s: %w", upstream, ErrUpstreamDown)
	}

	err = breaker.Call(func() error {
		var headErr error
		size, contentType, headErr = cbf.fetcher.Head(ctx, headURL)
		return headErr
	}, 0)

	return size, contentType, err
}

// extractUpstream reduces a download URL to the host circuit breakers are
// keyed by, so all artifacts served from the same package host share one
// breaker regardless of path.
func extractUpstream(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// BreakerState reports the open/closed state of every upstream host this
// fetcher has created a breaker for, for use in a Tropohouse health check.
func (cbf *CircuitBreakerFetcher) BreakerState() map[string]string {
	cbf.mu.RLock()
	defer cbf.mu.RUnlock()

	states := make(map[string]string)
	for upstream, breaker := range cbf.breakers {
		if breaker.Tripped() {
			states[upstream] = "open"
		} else {
			states[upstream] = "closed"
		}
	}
	return states
}
