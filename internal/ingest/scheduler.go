package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/frostline/roadwatch/internal/metrics"
	"github.com/frostline/roadwatch/internal/models"
	"github.com/frostline/roadwatch/internal/store"
	"github.com/frostline/roadwatch/internal/validate"
	"github.com/frostline/roadwatch/internal/weather"
)

// Scheduler polls the road condition sources and the weather resolver on
// fixed intervals and persists what survives validation.
type Scheduler struct {
	store    *store.Store
	sources  []Source
	resolver *weather.Resolver
	clock    clockwork.Clock
	lat      float64
	lon      float64

	obsInterval     time.Duration
	weatherInterval time.Duration
}

func NewScheduler(st *store.Store, sources []Source, resolver *weather.Resolver, lat, lon float64, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		store:           st,
		sources:         sources,
		resolver:        resolver,
		clock:           clock,
		lat:             lat,
		lon:             lon,
		obsInterval:     10 * time.Minute,
		weatherInterval: 30 * time.Minute,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.ingestObservations(ctx)
	s.ingestWeather(ctx)

	obsTicker := s.clock.NewTicker(s.obsInterval)
	weatherTicker := s.clock.NewTicker(s.weatherInterval)
	defer obsTicker.Stop()
	defer weatherTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-obsTicker.Chan():
			s.ingestObservations(ctx)
		case <-weatherTicker.Chan():
			s.ingestWeather(ctx)
		}
	}
}

// IngestOnce runs a single poll of every source plus the weather resolver.
func (s *Scheduler) IngestOnce(ctx context.Context) {
	s.ingestObservations(ctx)
	s.ingestWeather(ctx)
}

// ingestObservations fetches every source concurrently. One source failing
// leaves the others' batches intact.
func (s *Scheduler) ingestObservations(ctx context.Context) {
	log.Println("scheduler: ingesting observations")

	var mu sync.Mutex
	var collected []models.Observation
	var wg sync.WaitGroup

	for _, src := range s.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			started := time.Now()
			obs, err := src.Fetch(ctx)
			metrics.SourceFetchLatency.WithLabelValues(src.Name()).Observe(time.Since(started).Seconds())
			if err != nil {
				metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
				log.Printf("scheduler: fetch %s: %v", src.Name(), err)
				return
			}
			metrics.SourceFetches.WithLabelValues(src.Name(), "ok").Inc()
			mu.Lock()
			collected = append(collected, obs...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	if len(collected) == 0 {
		return
	}

	result := validate.Batch(collected, s.clock.Now())
	metrics.ObservationsValidated.WithLabelValues("kept").Add(float64(len(result.Kept)))
	metrics.ObservationsValidated.WithLabelValues("rejected").Add(float64(len(result.Rejected)))
	if len(result.Rejected) > 0 {
		log.Printf("scheduler: rejected %d of %d observations", len(result.Rejected), len(collected))
	}

	inserted := 0
	for _, obs := range result.Kept {
		if err := s.store.InsertObservation(obs); err != nil {
			log.Printf("scheduler: insert %s/%s: %v", obs.Source, obs.Route, err)
			continue
		}
		inserted++
	}
	log.Printf("scheduler: stored %d observations (%d warnings)", inserted, result.WarningCount)
}

func (s *Scheduler) ingestWeather(ctx context.Context) {
	if s.resolver == nil {
		return
	}

	reading, err := s.resolver.FetchBest(ctx, s.lat, s.lon)
	if err != nil {
		log.Printf("scheduler: fetch weather: %v", err)
		return
	}
	if err := s.store.InsertWeatherReading(reading); err != nil {
		log.Printf("scheduler: insert weather reading: %v", err)
		return
	}
	if reading.TempF.Valid {
		log.Printf("scheduler: %s: %.1f°F %s", reading.Provider, reading.TempF.Float64, reading.Conditions)
	}
}
