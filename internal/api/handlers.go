package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/frostline/roadwatch/internal/closure"
	"github.com/frostline/roadwatch/internal/metrics"
	"github.com/frostline/roadwatch/internal/models"
	"github.com/frostline/roadwatch/internal/pipeline"
)

// conditionLookback bounds how far back observations feed the conditions view.
const conditionLookback = 24 * time.Hour

const maxForecastDays = 10

type coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type conditionItem struct {
	Route       string             `json:"route"`
	Condition   models.Condition   `json:"condition"`
	Severity    models.Severity    `json:"severity,omitempty"`
	SafetyLevel models.SafetyLevel `json:"safety_level"`
	SafetyScore int                `json:"safety_score"`
	Description string             `json:"description"`
	Confidence  int                `json:"confidence"`
	Source      string             `json:"source"`
	ObservedAt  time.Time          `json:"observed_at"`
	Warning     string             `json:"warning,omitempty"`
	Coordinates *coordinates       `json:"coordinates,omitempty"`
}

type conditionsResponse struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Conditions  []conditionItem      `json:"conditions"`
	Consensus   []pipeline.Consensus `json:"consensus"`
}

func (s *Server) handleConditions(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	observations, err := s.store.GetObservationsSince(now.Add(-conditionLookback))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Cross-reference the full set so repeated reports still count as
	// agreement; deduplicate only the display list.
	consensus, conflicts := pipeline.CrossReference(observations)
	deduped := pipeline.Deduplicate(observations)
	metrics.ConflictsDetected.Add(float64(len(conflicts)))

	weatherCtx := models.WeatherContext{}
	if reading, err := s.store.GetLatestWeatherReading(); err == nil && reading != nil {
		weatherCtx = reading.Context()
	}

	items := make([]conditionItem, 0, len(deduped))
	for _, obs := range deduped {
		assessment := s.scorer.Score(obs, weatherCtx, now)
		metrics.AssessmentsScored.WithLabelValues(string(assessment.Level)).Inc()

		item := conditionItem{
			Route:       obs.Route,
			Condition:   obs.Condition,
			Severity:    obs.Severity,
			SafetyLevel: assessment.Level,
			SafetyScore: assessment.Score,
			Description: assessment.Explanation,
			Confidence:  assessment.Confidence,
			Source:      obs.Source,
			ObservedAt:  obs.ObservedAt,
			Warning:     obs.Warning,
		}
		if obs.HasCoordinates() {
			item.Coordinates = &coordinates{
				Latitude:  obs.Latitude.Float64,
				Longitude: obs.Longitude.Float64,
			}
		}
		items = append(items, item)
	}

	writeJSON(w, conditionsResponse{
		GeneratedAt: now,
		Conditions:  items,
		Consensus:   consensus,
	})
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	observations, err := s.store.GetObservationsSince(now.Add(-conditionLookback))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	_, conflicts := pipeline.CrossReference(observations)
	if conflicts == nil {
		conflicts = []pipeline.ConflictReport{}
	}
	writeJSON(w, conflicts)
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	districts, err := s.store.GetDistricts()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for i := range districts {
		districts[i] = closure.ApplyDefaults(districts[i])
	}
	writeJSON(w, districts)
}

func (s *Server) handleClosures(w http.ResponseWriter, r *http.Request) {
	if s.predictor == nil {
		http.Error(w, "closure prediction not configured", http.StatusServiceUnavailable)
		return
	}

	days := 1
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxForecastDays {
			http.Error(w, "days must be between 1 and 10", http.StatusBadRequest)
			return
		}
		days = n
	}

	var districts []models.District
	if id := r.URL.Query().Get("district"); id != "" {
		d, err := s.store.GetDistrict(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if d == nil {
			http.Error(w, "unknown district", http.StatusNotFound)
			return
		}
		districts = []models.District{*d}
	} else {
		all, err := s.store.GetDistricts()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		districts = all
	}

	start := time.Now().In(s.loc)
	predictions := make([]models.ClosurePrediction, 0, len(districts)*days)
	for _, d := range districts {
		preds, err := s.predictor.PredictRange(r.Context(), closure.ApplyDefaults(d), start, days)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		predictions = append(predictions, preds...)
	}
	writeJSON(w, predictions)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
