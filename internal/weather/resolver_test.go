package weather

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/frostline/roadwatch/internal/models"
)

var resolverNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	name    string
	reading models.WeatherReading
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Fetch(ctx context.Context, lat, lon float64) (models.WeatherReading, error) {
	f.calls++
	if f.err != nil {
		return models.WeatherReading{}, f.err
	}
	return f.reading, nil
}

func goodReading() models.WeatherReading {
	return models.WeatherReading{
		ObservedAt: resolverNow.Add(-15 * time.Minute),
		Latitude:   44.47,
		Longitude:  -73.15,
		TempF:      sql.NullFloat64{Float64: 22, Valid: true},
	}
}

func testClock(t *testing.T) clockwork.Clock {
	t.Helper()
	return clockwork.NewFakeClockAt(resolverNow)
}

func TestFetchBestFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "NWS", reading: goodReading()}
	second := &fakeProvider{name: "OpenWeatherMap", reading: goodReading()}
	r := NewResolver([]Provider{first, second}, testClock(t))

	reading, err := r.FetchBest(context.Background(), 44.47, -73.15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Provider != "NWS" {
		t.Errorf("provider = %s, want NWS", reading.Provider)
	}
	if second.calls != 0 {
		t.Errorf("second provider called %d times, want 0 (short-circuit)", second.calls)
	}
}

func TestFetchBestFallsThroughFailures(t *testing.T) {
	failing := &fakeProvider{name: "NWS", err: errors.New("connection refused")}
	stale := &fakeProvider{name: "OpenWeatherMap", reading: func() models.WeatherReading {
		r := goodReading()
		r.ObservedAt = resolverNow.Add(-10 * time.Hour)
		return r
	}()}
	good := &fakeProvider{name: "WeatherAPI", reading: goodReading()}
	r := NewResolver([]Provider{failing, stale, good}, testClock(t))

	reading, err := r.FetchBest(context.Background(), 44.47, -73.15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Provider != "WeatherAPI" {
		t.Errorf("provider = %s, want WeatherAPI", reading.Provider)
	}
}

func TestFetchBestAllFailAggregatesErrors(t *testing.T) {
	a := &fakeProvider{name: "NWS", err: errors.New("timeout")}
	b := &fakeProvider{name: "OpenWeatherMap", err: errors.New("401 unauthorized")}
	r := NewResolver([]Provider{a, b}, testClock(t))

	_, err := r.FetchBest(context.Background(), 44.47, -73.15)
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	msg := err.Error()
	for _, want := range []string{"NWS", "timeout", "OpenWeatherMap", "401 unauthorized"} {
		if !strings.Contains(msg, want) {
			t.Errorf("aggregated error missing %q: %s", want, msg)
		}
	}
}

func TestFetchBestRejectsLowConfidenceReading(t *testing.T) {
	bad := goodReading()
	bad.Latitude = 95 // structurally invalid
	only := &fakeProvider{name: "NWS", reading: bad}
	r := NewResolver([]Provider{only}, testClock(t))

	_, err := r.FetchBest(context.Background(), 44.47, -73.15)
	if err == nil {
		t.Fatal("expected rejection for invalid reading")
	}
}

func TestFetchBestNoProviders(t *testing.T) {
	r := NewResolver(nil, testClock(t))
	if _, err := r.FetchBest(context.Background(), 44.47, -73.15); err == nil {
		t.Fatal("expected error with no providers configured")
	}
}
