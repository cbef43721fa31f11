// Package scoring turns a single road observation plus ambient weather context
// into a 0-100 risk assessment. Scoring is deterministic and pure: the weather
// context and reference time are passed in, never fetched.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/frostline/roadwatch/internal/models"
	"github.com/frostline/roadwatch/internal/sources"
)

// Factor weights, applied as a sequential blend in this exact order. The
// running total starts at 100 and each factor pulls it toward its own score:
// running = running*(1-w) + score*w. Order matters: later factors act on the
// partially-updated total, so a severe early factor (closed road) cannot be
// offset by a favorable late one (daytime).
const (
	weightCondition   = 0.40
	weightTemperature = 0.20
	weightFreshness   = 0.10
	weightSeverity    = 0.15
	weightSource      = 0.05
	weightRoadClass   = 0.05
	weightTimeOfDay   = 0.03
	weightCombination = 0.02
)

// Temperature thresholds (°F) for the tiered sub-score and combination rules.
const (
	extremeColdF  = 10.0
	hardFreezeF   = 20.0
	refreezeF     = 28.0
	freezingF     = 32.0
	marginalF     = 35.0
	coolF         = 40.0
	strongWindMPH = 25.0
	highHumidity  = 80
)

// Sub-score when no temperature is available from the observation or context.
const missingTempScore = 70

// Scorer computes risk assessments. The location fixes the timezone used for
// the time-of-day factor.
type Scorer struct {
	loc *time.Location
}

// New returns a Scorer evaluating time-of-day in the given timezone.
func New(loc *time.Location) *Scorer {
	if loc == nil {
		loc = time.UTC
	}
	return &Scorer{loc: loc}
}

// Score assesses one observation against the ambient weather context, using
// now as the reference instant for staleness and time-of-day.
func (s *Scorer) Score(obs models.Observation, ctx models.WeatherContext, now time.Time) models.RiskAssessment {
	temp, hasTemp := effectiveTemp(obs, ctx)
	age := now.Sub(obs.ObservedAt)
	hour := now.In(s.loc).Hour()
	dangerous := obs.Condition == models.ConditionIce || obs.Condition == models.ConditionClosed

	factors := []models.RiskFactor{
		conditionFactor(obs.Condition),
		temperatureFactor(obs.Condition, temp, hasTemp, ctx),
		freshnessFactor(obs.Condition, dangerous, age),
		severityFactor(obs.Severity, dangerous),
		sourceFactor(obs.Source),
		roadClassFactor(obs.Route),
		timeOfDayFactor(obs.Condition, temp, hasTemp, hour),
		combinationFactor(obs, ctx, temp, hasTemp, hour),
	}

	running := 100.0
	for _, f := range factors {
		running = running*(1-f.Weight) + f.Score*f.Weight
	}

	// Stale dangerous data gets a second, flat penalty on top of the reduced
	// freshness sub-score. Both layers are intentional.
	if dangerous && age > 2*time.Hour {
		running -= math.Min(20, age.Hours()*5)
	}

	// Ice at or below a hard freeze is treated as an absolute hazard: the
	// blended total is capped, not just the temperature sub-score.
	if obs.Condition == models.ConditionIce && hasTemp && temp <= hardFreezeF {
		running = math.Min(running, 5)
	}

	score := int(math.Round(math.Max(0, math.Min(100, running))))
	level, riskSev := classify(score)

	return models.RiskAssessment{
		Score:       score,
		Level:       level,
		Severity:    riskSev,
		Factors:     factors,
		Explanation: explain(obs, score, level, age),
		Confidence:  confidence(obs, hasTemp, age),
	}
}

// effectiveTemp prefers the observation's own reading over the ambient context.
func effectiveTemp(obs models.Observation, ctx models.WeatherContext) (float64, bool) {
	if obs.Temperature.Valid {
		return obs.Temperature.Float64, true
	}
	if ctx.TempF.Valid {
		return ctx.TempF.Float64, true
	}
	return 0, false
}

func conditionFactor(c models.Condition) models.RiskFactor {
	var score float64
	switch c {
	case models.ConditionClosed:
		score = 5
	case models.ConditionIce:
		score = 20
	case models.ConditionSnowCovered:
		score = 35
	case models.ConditionWet:
		score = 60
	case models.ConditionClear:
		score = 95
	default:
		score = 50
	}
	return models.RiskFactor{
		Name:        "condition",
		Score:       score,
		Weight:      weightCondition,
		Description: fmt.Sprintf("reported surface: %s", c),
	}
}

func temperatureFactor(c models.Condition, temp float64, hasTemp bool, ctx models.WeatherContext) models.RiskFactor {
	f := models.RiskFactor{Name: "temperature", Weight: weightTemperature}
	if !hasTemp {
		f.Score = missingTempScore
		f.Description = "no temperature data"
		return f
	}

	var score float64
	switch {
	case temp <= hardFreezeF:
		score = 10
	case temp <= refreezeF:
		score = 25
	case temp <= freezingF:
		score = 40
	case temp <= marginalF:
		score = 55
	case temp <= coolF:
		score = 70
	default:
		score = 90
	}

	desc := fmt.Sprintf("%.0f°F", temp)
	switch {
	case c == models.ConditionIce && temp <= hardFreezeF:
		score = 5
		desc += ", ice at hard freeze"
	case c == models.ConditionWet && temp <= refreezeF:
		score = 25
		desc += ", wet surface near refreeze"
	}

	if ctx.HumidityPct.Valid && ctx.HumidityPct.Int64 > highHumidity && temp <= marginalF {
		score = math.Max(0, score-15)
		desc += ", high humidity near freezing"
	}

	f.Score = score
	f.Description = desc
	return f
}

func freshnessFactor(c models.Condition, dangerous bool, age time.Duration) models.RiskFactor {
	var score float64
	switch {
	case age <= 30*time.Minute:
		score = 100
	case age <= time.Hour:
		score = 90
	case age <= 2*time.Hour:
		score = 75
	case age <= 6*time.Hour:
		score = 50
	default:
		score = 20
	}
	desc := fmt.Sprintf("observed %s ago", age.Truncate(time.Minute))
	if dangerous && age > 2*time.Hour {
		score /= 2
		desc += fmt.Sprintf(", stale %s report", c)
	}
	return models.RiskFactor{Name: "freshness", Score: score, Weight: weightFreshness, Description: desc}
}

func severityFactor(sev models.Severity, dangerous bool) models.RiskFactor {
	var score float64
	var desc string
	switch sev {
	case models.SeverityMajor:
		score, desc = 20, "major severity reported"
	case models.SeverityModerate:
		score, desc = 50, "moderate severity reported"
	case models.SeverityMinor:
		score, desc = 80, "minor severity reported"
	default:
		if dangerous {
			score, desc = 40, "severity unreported for dangerous condition"
		} else {
			score, desc = 85, "severity unreported"
		}
	}
	return models.RiskFactor{Name: "severity", Score: score, Weight: weightSeverity, Description: desc}
}

func sourceFactor(source string) models.RiskFactor {
	rel := sources.Reliability(source)
	return models.RiskFactor{
		Name:        "source",
		Score:       float64(rel),
		Weight:      weightSource,
		Description: fmt.Sprintf("%s reliability %d", source, rel),
	}
}

// roadClassFactor scores by road classification inferred from the route label.
// Higher-traffic roads score lower: incidents there have a larger impact.
func roadClassFactor(route string) models.RiskFactor {
	score := 95.0
	class := "local road"
	switch {
	case strings.HasPrefix(route, "I-"):
		score, class = 85, "interstate"
	case strings.HasPrefix(route, "US-"):
		score, class = 87, "US highway"
	case strings.HasPrefix(route, "VT-"), strings.HasPrefix(route, "Route "):
		score, class = 90, "state route"
	}
	return models.RiskFactor{Name: "road_class", Score: score, Weight: weightRoadClass, Description: class}
}

func isNight(hour int) bool {
	return hour >= 22 || hour < 7
}

func timeOfDayFactor(c models.Condition, temp float64, hasTemp bool, hour int) models.RiskFactor {
	score := 100.0
	desc := "daytime"
	if isNight(hour) && hasTemp && temp <= marginalF {
		score = 80
		desc = "night with near-freezing temperature"
		if c == models.ConditionWet {
			score = 60
			desc = "wet surface overnight, refreeze risk"
		}
	}
	return models.RiskFactor{Name: "time_of_day", Score: score, Weight: weightTimeOfDay, Description: desc}
}

// combinationFactor catches specific dangerous pairings that the independent
// factors understate. Default is 100 (no effect).
func combinationFactor(obs models.Observation, ctx models.WeatherContext, temp float64, hasTemp bool, hour int) models.RiskFactor {
	wind := 0.0
	if ctx.WindSpeedMPH.Valid {
		wind = ctx.WindSpeedMPH.Float64
	}

	score := 100.0
	desc := "no compounding effects"
	switch {
	case obs.Condition == models.ConditionIce && hasTemp && temp <= extremeColdF:
		score, desc = 0, "ice with extreme cold"
	case obs.Condition == models.ConditionClosed && strings.Contains(strings.ToLower(obs.Warning), "ice"):
		score, desc = 5, "closure attributed to ice"
	case obs.Condition == models.ConditionIce && wind > strongWindMPH:
		score, desc = 30, "ice with strong wind"
	case obs.Condition == models.ConditionSnowCovered && wind > strongWindMPH:
		score, desc = 40, "snow with strong wind, blowing snow likely"
	case obs.Condition == models.ConditionWet && hasTemp && temp <= freezingF && isNight(hour):
		score, desc = 50, "wet, cold and dark"
	}
	return models.RiskFactor{Name: "combination", Score: score, Weight: weightCombination, Description: desc}
}

func classify(score int) (models.SafetyLevel, models.RiskSeverity) {
	switch {
	case score >= 80:
		return models.LevelExcellent, models.RiskLow
	case score >= 60:
		return models.LevelGood, models.RiskLow
	case score >= 40:
		return models.LevelCaution, models.RiskModerate
	case score >= 20:
		return models.LevelPoor, models.RiskHigh
	default:
		return models.LevelHazardous, models.RiskExtreme
	}
}

func confidence(obs models.Observation, hasTemp bool, age time.Duration) int {
	conf := 85
	if hasTemp {
		conf += 5
	}
	switch {
	case age > 6*time.Hour:
		conf -= 15
	case age > 2*time.Hour:
		conf -= 10
	}
	if obs.Condition == models.ConditionUnknown {
		conf -= 10
	}
	if sources.IsOfficial(obs.Source) {
		conf += 5
	}
	if conf > 100 {
		conf = 100
	}
	if conf < 50 {
		conf = 50
	}
	return conf
}

func explain(obs models.Observation, score int, level models.SafetyLevel, age time.Duration) string {
	where := obs.Route
	if where == "" {
		where = "unnamed segment"
	}
	return fmt.Sprintf("%s reported %s on %s %s ago; safety %s (%d/100)",
		obs.Source, obs.Condition, where, age.Truncate(time.Minute), level, score)
}
