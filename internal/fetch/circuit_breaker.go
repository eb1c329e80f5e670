package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// BreakerClient wraps a Fetcher with per-host circuit breakers so that one
// unreachable upstream does not keep burning retries. Local-file locators
// bypass the breakers entirely.
type BreakerClient struct {
	inner    Fetcher
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewBreakerClient wraps inner with circuit breaking.
func NewBreakerClient(inner Fetcher) *BreakerClient {
	return &BreakerClient{
		inner:    inner,
		breakers: make(map[string]*circuit.Breaker),
	}
}

func (b *BreakerClient) getBreaker(host string) *circuit.Breaker {
	b.mu.RLock()
	breaker, exists := b.breakers[host]
	b.mu.RUnlock()
	if exists {
		return breaker
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if breaker, exists := b.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, reopens on exponential backoff.
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	b.breakers[host] = breaker
	return breaker
}

// Fetch delegates to the wrapped fetcher through the breaker for the
// locator's host. Only upstream-class failures count against the breaker;
// a not-found is a definitive answer from a healthy host, not a fault.
func (b *BreakerClient) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if !IsURL(locator) {
		return b.inner.Fetch(ctx, locator)
	}

	host := extractHost(locator)
	breaker := b.getBreaker(host)

	if !breaker.Ready() {
		return nil, fmt.Errorf("%w: circuit open for host %s", ErrUpstream, host)
	}

	data, err := b.inner.Fetch(ctx, locator)
	if errors.Is(err, ErrUpstream) {
		breaker.Fail()
	} else {
		breaker.Success()
	}
	return data, err
}

// BreakerStates reports each host's breaker state, for health endpoints.
func (b *BreakerClient) BreakerStates() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	states := make(map[string]string, len(b.breakers))
	for host, breaker := range b.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
