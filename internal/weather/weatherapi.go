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

// WeatherAPI fetches current conditions from weatherapi.com.
type WeatherAPI struct {
	apiKey string
	client *http.Client
}

func NewWeatherAPI(apiKey string) *WeatherAPI {
	return &WeatherAPI{
		apiKey: apiKey,
		client: httputil.NewClient(),
	}
}

func (w *WeatherAPI) Name() string { return "WeatherAPI" }

type weatherAPIResponse struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64    `json:"last_updated_epoch"`
		TempF            *float64 `json:"temp_f"`
		Humidity         *int64   `json:"humidity"`
		WindMPH          *float64 `json:"wind_mph"`
		GustMPH          *float64 `json:"gust_mph"`
		Condition        struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

func (w *WeatherAPI) Fetch(ctx context.Context, lat, lon float64) (models.WeatherReading, error) {
	url := fmt.Sprintf("https://api.weatherapi.com/v1/current.json?key=%s&q=%.4f,%.4f", w.apiKey, lat, lon)
	body, err := getWithRetry(ctx, w.client, url)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("weatherapi current: %w", err)
	}

	var data weatherAPIResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.WeatherReading{}, fmt.Errorf("unmarshal: %w", err)
	}

	reading := models.WeatherReading{
		ObservedAt: time.Unix(data.Current.LastUpdatedEpoch, 0).UTC(),
		Latitude:   data.Location.Lat,
		Longitude:  data.Location.Lon,
		Conditions: data.Current.Condition.Text,
	}
	if data.Current.TempF != nil {
		reading.TempF = sql.NullFloat64{Float64: *data.Current.TempF, Valid: true}
	}
	if data.Current.Humidity != nil {
		reading.HumidityPct = sql.NullInt64{Int64: *data.Current.Humidity, Valid: true}
	}
	if data.Current.WindMPH != nil {
		reading.WindSpeedMPH = sql.NullFloat64{Float64: *data.Current.WindMPH, Valid: true}
	}
	if data.Current.GustMPH != nil {
		reading.WindGustMPH = sql.NullFloat64{Float64: *data.Current.GustMPH, Valid: true}
	}
	return reading, nil
}
