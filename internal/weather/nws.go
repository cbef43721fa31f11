package weather

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/frostline/roadwatch/internal/httputil"
	"github.com/frostline/roadwatch/internal/models"
)

// NWS fetches the latest observation from a National Weather Service station.
// The station is fixed at construction; NWS has no direct lat/lon lookup for
// current observations without a second gridpoint round-trip.
type NWS struct {
	stationID string
	client    *http.Client
}

func NewNWS(stationID string) *NWS {
	return &NWS{
		stationID: stationID,
		client:    httputil.NewClient(),
	}
}

func (n *NWS) Name() string { return "NWS" }

type nwsResponse struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
	Properties struct {
		Timestamp       string          `json:"timestamp"`
		TextDescription string          `json:"textDescription"`
		Temperature     nwsMeasurement  `json:"temperature"`
		RelativeHumidity nwsMeasurement `json:"relativeHumidity"`
		WindSpeed       nwsMeasurement  `json:"windSpeed"`
		WindGust        nwsMeasurement  `json:"windGust"`
	} `json:"properties"`
}

type nwsMeasurement struct {
	Value *float64 `json:"value"`
}

func (n *NWS) Fetch(ctx context.Context, lat, lon float64) (models.WeatherReading, error) {
	url := fmt.Sprintf("https://api.weather.gov/stations/%s/observations/latest", n.stationID)
	body, err := getWithRetry(ctx, n.client, url)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("nws latest observation: %w", err)
	}

	var data nwsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.WeatherReading{}, fmt.Errorf("unmarshal: %w", err)
	}

	observedAt, err := time.Parse(time.RFC3339, data.Properties.Timestamp)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("parse timestamp %q: %w", data.Properties.Timestamp, err)
	}

	reading := models.WeatherReading{
		ObservedAt: observedAt,
		Latitude:   lat,
		Longitude:  lon,
		Conditions: data.Properties.TextDescription,
	}
	if len(data.Geometry.Coordinates) == 2 {
		reading.Longitude = data.Geometry.Coordinates[0]
		reading.Latitude = data.Geometry.Coordinates[1]
	}

	// NWS reports metric: temperature in °C, wind in km/h.
	if v := data.Properties.Temperature.Value; v != nil {
		reading.TempF = sql.NullFloat64{Float64: *v*9/5 + 32, Valid: true}
	}
	if v := data.Properties.RelativeHumidity.Value; v != nil {
		reading.HumidityPct = sql.NullInt64{Int64: int64(*v + 0.5), Valid: true}
	}
	if v := data.Properties.WindSpeed.Value; v != nil {
		reading.WindSpeedMPH = sql.NullFloat64{Float64: *v * 0.621371, Valid: true}
	}
	if v := data.Properties.WindGust.Value; v != nil {
		reading.WindGustMPH = sql.NullFloat64{Float64: *v * 0.621371, Valid: true}
	}
	return reading, nil
}
