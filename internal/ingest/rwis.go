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

const rwisBaseURL = "https://rwis.vtrans.vermont.gov/api"

// RWIS fetches surface sensor readings from the VTrans road weather
// information system stations.
type RWIS struct {
	baseURL string
	client  *http.Client
}

func NewRWIS() *RWIS {
	return &RWIS{
		baseURL: rwisBaseURL,
		client:  httputil.NewClient(),
	}
}

func (r *RWIS) Name() string { return "VTrans RWIS" }

type rwisResponse struct {
	Stations []rwisStation `json:"stations"`
}

type rwisStation struct {
	StationID        string   `json:"stationId"`
	RouteName        string   `json:"routeName"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	SurfaceCondition string   `json:"surfaceCondition"`
	SurfaceTempF     *float64 `json:"surfaceTempF"`
	ObservedAt       string   `json:"observedAt"` // RFC 3339
}

func (r *RWIS) Fetch(ctx context.Context) ([]models.Observation, error) {
	url := fmt.Sprintf("%s/stations/latest", r.baseURL)
	body, err := getWithRetry(ctx, r.client, url)
	if err != nil {
		return nil, fmt.Errorf("rwis: %w", err)
	}

	var data rwisResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("rwis: unmarshal: %w", err)
	}

	observations := make([]models.Observation, 0, len(data.Stations))
	for _, st := range data.Stations {
		observedAt, err := time.Parse(time.RFC3339, st.ObservedAt)
		if err != nil {
			// A station with a garbled clock should not sink the batch.
			continue
		}
		obs := models.Observation{
			Route:      st.RouteName,
			Condition:  conditionFromText(st.SurfaceCondition),
			Source:     r.Name(),
			ObservedAt: observedAt.UTC(),
			Latitude:   sql.NullFloat64{Float64: st.Latitude, Valid: true},
			Longitude:  sql.NullFloat64{Float64: st.Longitude, Valid: true},
		}
		if st.SurfaceTempF != nil {
			obs.Temperature = sql.NullFloat64{Float64: *st.SurfaceTempF, Valid: true}
		}
		observations = append(observations, obs)
	}
	return observations, nil
}
