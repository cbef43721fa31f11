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

// OpenWeatherMap fetches current conditions by coordinate.
type OpenWeatherMap struct {
	apiKey string
	client *http.Client
}

func NewOpenWeatherMap(apiKey string) *OpenWeatherMap {
	return &OpenWeatherMap{
		apiKey: apiKey,
		client: httputil.NewClient(),
	}
}

func (o *OpenWeatherMap) Name() string { return "OpenWeatherMap" }

type owmResponse struct {
	Dt    int64 `json:"dt"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *int64   `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

func (o *OpenWeatherMap) Fetch(ctx context.Context, lat, lon float64) (models.WeatherReading, error) {
	url := fmt.Sprintf("https://api.openweathermap.org/data/2.5/weather?lat=%.4f&lon=%.4f&units=imperial&appid=%s", lat, lon, o.apiKey)
	body, err := getWithRetry(ctx, o.client, url)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("openweathermap current: %w", err)
	}

	var data owmResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.WeatherReading{}, fmt.Errorf("unmarshal: %w", err)
	}

	reading := models.WeatherReading{
		ObservedAt: time.Unix(data.Dt, 0).UTC(),
		Latitude:   data.Coord.Lat,
		Longitude:  data.Coord.Lon,
	}
	if len(data.Weather) > 0 {
		reading.Conditions = data.Weather[0].Description
	}
	if data.Main.Temp != nil {
		reading.TempF = sql.NullFloat64{Float64: *data.Main.Temp, Valid: true}
	}
	if data.Main.Humidity != nil {
		reading.HumidityPct = sql.NullInt64{Int64: *data.Main.Humidity, Valid: true}
	}
	if data.Wind.Speed != nil {
		reading.WindSpeedMPH = sql.NullFloat64{Float64: *data.Wind.Speed, Valid: true}
	}
	if data.Wind.Gust != nil {
		reading.WindGustMPH = sql.NullFloat64{Float64: *data.Wind.Gust, Valid: true}
	}
	return reading, nil
}
