package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/git-pkgs/hexpm/client"
)

// ErrUpstreamDown reports that the repository's circuit breaker is
// open and downloads are being shed.
var ErrUpstreamDown = errors.New("repository unavailable")

// CircuitBreakerSource wraps a Source with a circuit breaker so a
// failing repository stops receiving download traffic until it
// recovers.
type CircuitBreakerSource struct {
	source  Source
	breaker *circuit.Breaker
}

// NewCircuitBreakerSource creates a circuit breaker wrapper around a
// source. The breaker trips after 5 consecutive failures and retests
// with exponential backoff.
func NewCircuitBreakerSource(source Source) *CircuitBreakerSource {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	return &CircuitBreakerSource{
		source:  source,
		breaker: circuit.NewBreakerWithOptions(opts),
	}
}

// GetTarball forwards to the wrapped source while the circuit is
// closed.
func (s *CircuitBreakerSource) GetTarball(ctx context.Context, name, version string) ([]byte, error) {
	if !s.breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open: %w", ErrUpstreamDown)
	}

	var body []byte
	var callErr error
	err := s.breaker.Call(func() error {
		body, callErr = s.source.GetTarball(ctx, name, version)
		// Missing releases are not a repository health signal.
		if callErr != nil && errors.Is(callErr, client.ErrNotFound) {
			return nil
		}
		return callErr
	}, 0)
	if err != nil {
		return nil, err
	}
	if callErr != nil {
		return nil, callErr
	}
	return body, nil
}
