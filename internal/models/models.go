package models

import (
	"database/sql"
	"time"
)

// Condition is the normalized road surface state reported by a provider.
type Condition string

const (
	ConditionClear       Condition = "clear"
	ConditionWet         Condition = "wet"
	ConditionSnowCovered Condition = "snow-covered"
	ConditionIce         Condition = "ice"
	ConditionClosed      Condition = "closed"
	ConditionUnknown     Condition = "unknown"
)

// KnownConditions lists every valid condition value.
var KnownConditions = []Condition{
	ConditionClear,
	ConditionWet,
	ConditionSnowCovered,
	ConditionIce,
	ConditionClosed,
	ConditionUnknown,
}

// ValidCondition reports whether c is one of the known condition values.
func ValidCondition(c Condition) bool {
	for _, k := range KnownConditions {
		if c == k {
			return true
		}
	}
	return false
}

// Severity is the provider-reported incident severity. Empty means unreported.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
)

// ValidSeverity reports whether s is a known severity. Empty is valid (unreported).
func ValidSeverity(s Severity) bool {
	switch s {
	case "", SeverityMinor, SeverityModerate, SeverityMajor:
		return true
	}
	return false
}

// Observation is one provider's report about one road segment at a point in time.
// Observations are created by source adapters and never mutated; the pipeline
// produces derived records instead.
type Observation struct {
	ID           int64
	Route        string
	Condition    Condition
	Temperature  sql.NullFloat64 // °F
	Warning      string
	Source       string
	ObservedAt   time.Time
	Latitude     sql.NullFloat64
	Longitude    sql.NullFloat64
	Severity     Severity
	DelaySeconds sql.NullInt64
	CreatedAt    time.Time
}

// HasCoordinates reports whether both latitude and longitude are present.
func (o Observation) HasCoordinates() bool {
	return o.Latitude.Valid && o.Longitude.Valid
}

// WeatherContext carries ambient weather used by the risk scorer. It is passed
// in rather than fetched so scoring stays pure and testable.
type WeatherContext struct {
	TempF        sql.NullFloat64
	HumidityPct  sql.NullInt64
	WindSpeedMPH sql.NullFloat64
}

// WeatherReading is a single validated current-conditions reading from one
// weather provider, tagged with the provider that produced it.
type WeatherReading struct {
	Provider     string
	ObservedAt   time.Time
	Latitude     float64
	Longitude    float64
	TempF        sql.NullFloat64
	HumidityPct  sql.NullInt64
	WindSpeedMPH sql.NullFloat64
	WindGustMPH  sql.NullFloat64
	Conditions   string
}

// Context converts a reading into the scorer's weather context.
func (r WeatherReading) Context() WeatherContext {
	return WeatherContext{
		TempF:        r.TempF,
		HumidityPct:  r.HumidityPct,
		WindSpeedMPH: r.WindSpeedMPH,
	}
}

// DailyForecast is one day's forecast for one district, fetched independently
// per target date.
type DailyForecast struct {
	Date            time.Time
	SnowfallIn      sql.NullFloat64
	IceAccretionIn  sql.NullFloat64
	TempLowF        sql.NullFloat64
	WindChillF      sql.NullFloat64
	WindSpeedMPH    sql.NullFloat64
	WindGustMPH     sql.NullFloat64
	PrecipChancePct sql.NullInt64
	PrecipStartHour sql.NullInt64 // local hour precipitation is expected to begin
	PrecipEndHour   sql.NullInt64
	Narrative       string
}

// SafetyLevel is the five-tier classification derived from a risk score.
type SafetyLevel string

const (
	LevelExcellent SafetyLevel = "excellent"
	LevelGood      SafetyLevel = "good"
	LevelCaution   SafetyLevel = "caution"
	LevelPoor      SafetyLevel = "poor"
	LevelHazardous SafetyLevel = "hazardous"
)

// RiskSeverity mirrors the safety tier as a coarse severity label.
type RiskSeverity string

const (
	RiskLow      RiskSeverity = "low"
	RiskModerate RiskSeverity = "moderate"
	RiskHigh     RiskSeverity = "high"
	RiskExtreme  RiskSeverity = "extreme"
)

// RiskFactor is one named contribution to a risk assessment.
type RiskFactor struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// RiskAssessment is the scored result for a single observation. Higher scores
// are safer. Assessments are created fresh per scoring call and never persisted;
// callers own archival.
type RiskAssessment struct {
	Score       int          `json:"score"`
	Level       SafetyLevel  `json:"level"`
	Severity    RiskSeverity `json:"severity"`
	Factors     []RiskFactor `json:"factors"`
	Explanation string       `json:"explanation"`
	Confidence  int          `json:"confidence"`
}

// District is a school district with its closure decision thresholds.
type District struct {
	ID               string
	Name             string
	Region           string
	Latitude         float64
	Longitude        float64
	SnowThresholdIn  float64
	DelayThresholdIn float64
	ColdThresholdF   float64
	WindThresholdMPH float64
	IceThresholdIn   float64
}

// ClosureRecord is one actual closure decision, kept as history for the
// predictor's recency bonus.
type ClosureRecord struct {
	DistrictID string
	Date       time.Time
	Decision   string // "closed", "delayed", "early_dismissal"
}

// ClosurePrediction is the predicted closure likelihood for one district on one
// target date. A multi-day request yields one prediction per day, each computed
// against that day's own forecast.
type ClosurePrediction struct {
	DistrictID                string        `json:"district_id"`
	DistrictName              string        `json:"district_name"`
	PredictedForDate          string        `json:"predicted_for_date"`
	FullClosingProbability    int           `json:"full_closing_probability"`
	DelayProbability          int           `json:"delay_probability"`
	EarlyDismissalProbability int           `json:"early_dismissal_probability"`
	Confidence                int           `json:"confidence"`
	Forecast                  ForecastInput `json:"forecast"`
	Factors                   []string      `json:"factors"`
	PrimaryReason             string        `json:"primary_reason"`
}

// ForecastInput echoes the forecast values a prediction was computed from.
type ForecastInput struct {
	SnowfallIn     float64 `json:"snowfall_in"`
	IceAccretionIn float64 `json:"ice_accretion_in"`
	TempLowF       float64 `json:"temp_low_f"`
	WindChillF     float64 `json:"wind_chill_f"`
	WindSpeedMPH   float64 `json:"wind_speed_mph"`
	Narrative      string  `json:"narrative"`
}
