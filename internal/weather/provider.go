// Package weather fetches current conditions from external providers and
// resolves the single best reading through a priority-ordered fallback chain.
package weather

import (
	"context"

	"github.com/frostline/roadwatch/internal/models"
)

// Provider abstracts one external weather data source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) (models.WeatherReading, error)
}
