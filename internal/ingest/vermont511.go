package ingest

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

const vermont511BaseURL = "https://511vt.com/api/v2"

// Vermont511 fetches winter driving events from the state 511 feed.
type Vermont511 struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewVermont511(apiKey string) *Vermont511 {
	return &Vermont511{
		apiKey:  apiKey,
		baseURL: vermont511BaseURL,
		client:  httputil.NewClient(),
	}
}

func (v *Vermont511) Name() string { return "Vermont 511" }

type vermont511Event struct {
	ID           string   `json:"id"`
	EventType    string   `json:"event_type"`
	RoadwayName  string   `json:"roadwayName"`
	Description  string   `json:"description"`
	Severity     string   `json:"severity"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	DelaySeconds *int64   `json:"delaySeconds"`
	LastUpdated  int64    `json:"lastUpdated"` // unix seconds
}

func (v *Vermont511) Fetch(ctx context.Context) ([]models.Observation, error) {
	url := fmt.Sprintf("%s/get/winterroadconditions?format=json&key=%s", v.baseURL, v.apiKey)
	body, err := getWithRetry(ctx, v.client, url)
	if err != nil {
		return nil, fmt.Errorf("vermont 511: %w", err)
	}

	var events []vermont511Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("vermont 511: unmarshal: %w", err)
	}

	observations := make([]models.Observation, 0, len(events))
	for _, ev := range events {
		obs := models.Observation{
			Route:      ev.RoadwayName,
			Condition:  conditionFromText(ev.Description),
			Warning:    ev.Description,
			Source:     v.Name(),
			ObservedAt: time.Unix(ev.LastUpdated, 0).UTC(),
			Severity:   severityFromText(ev.Severity),
		}
		if ev.Latitude != nil {
			obs.Latitude = sql.NullFloat64{Float64: *ev.Latitude, Valid: true}
		}
		if ev.Longitude != nil {
			obs.Longitude = sql.NullFloat64{Float64: *ev.Longitude, Valid: true}
		}
		if ev.DelaySeconds != nil {
			obs.DelaySeconds = sql.NullInt64{Int64: *ev.DelaySeconds, Valid: true}
		}
		observations = append(observations, obs)
	}
	return observations, nil
}
