package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/frostline/roadwatch/internal/metrics"
	"github.com/frostline/roadwatch/internal/models"
	"github.com/frostline/roadwatch/internal/validate"
)

// Readings validating below this confidence are rejected and the chain moves on.
const minAcceptConfidence = 50

// Default per-provider attempt timeout.
const defaultAttemptTimeout = 15 * time.Second

// Resolver tries providers in declared priority order and accepts the first
// reading that clears the validation confidence floor. It never fabricates a
// reading: if every provider fails, the aggregated error lists each failure.
type Resolver struct {
	providers      []Provider
	clock          clockwork.Clock
	attemptTimeout time.Duration
}

// NewResolver builds a resolver over the given providers, tried in order.
func NewResolver(providers []Provider, clock clockwork.Clock) *Resolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Resolver{
		providers:      providers,
		clock:          clock,
		attemptTimeout: defaultAttemptTimeout,
	}
}

// FetchBest returns the highest-priority acceptable reading for the location.
// Each attempt is fetched, structurally validated, and accepted only at
// confidence >= 50. A timed-out provider is treated the same as a failed one.
func (r *Resolver) FetchBest(ctx context.Context, lat, lon float64) (models.WeatherReading, error) {
	if len(r.providers) == 0 {
		return models.WeatherReading{}, errors.New("no weather providers configured")
	}

	var failures []error
	for _, p := range r.providers {
		reading, err := r.attempt(ctx, p, lat, lon)
		if err != nil {
			metrics.WeatherFetches.WithLabelValues(p.Name(), "error").Inc()
			log.Printf("weather provider %s rejected: %v", p.Name(), err)
			failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		metrics.WeatherFetches.WithLabelValues(p.Name(), "ok").Inc()
		return reading, nil
	}

	all := append([]error{fmt.Errorf("all %d weather providers failed", len(r.providers))}, failures...)
	return models.WeatherReading{}, errors.Join(all...)
}

func (r *Resolver) attempt(ctx context.Context, p Provider, lat, lon float64) (models.WeatherReading, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	reading, err := p.Fetch(attemptCtx, lat, lon)
	if err != nil {
		return models.WeatherReading{}, err
	}

	check := validate.Reading(reading, r.clock.Now())
	if !check.OK || check.Confidence < minAcceptConfidence {
		return models.WeatherReading{}, fmt.Errorf("reading rejected at confidence %d: %v", check.Confidence, check.Problems)
	}

	reading.Provider = p.Name()
	return reading, nil
}
