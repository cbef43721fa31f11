package scoring

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/frostline/roadwatch/internal/models"
)

var scoreNow = time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC) // midday in Vermont

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return New(loc)
}

func TestScoreHazardousIceScenario(t *testing.T) {
	s := newTestScorer(t)
	obs := models.Observation{
		Route:       "I-89",
		Condition:   models.ConditionIce,
		Temperature: nf(15),
		Source:      "VTrans RWIS",
		Severity:    models.SeverityMajor,
		ObservedAt:  scoreNow.Add(-10 * time.Minute),
	}

	a := s.Score(obs, models.WeatherContext{}, scoreNow)

	if a.Score > 10 {
		t.Errorf("score = %d, want <= 10", a.Score)
	}
	if a.Level != models.LevelHazardous {
		t.Errorf("level = %s, want hazardous", a.Level)
	}
	if a.Severity != models.RiskExtreme {
		t.Errorf("severity = %s, want extreme", a.Severity)
	}
}

func TestScoreExcellentClearScenario(t *testing.T) {
	s := newTestScorer(t)
	obs := models.Observation{
		Route:       "VT-100",
		Condition:   models.ConditionClear,
		Temperature: nf(55),
		Source:      "OpenWeatherMap",
		ObservedAt:  scoreNow.Add(-5 * time.Minute),
	}

	a := s.Score(obs, models.WeatherContext{}, scoreNow)

	if a.Score < 90 {
		t.Errorf("score = %d, want >= 90", a.Score)
	}
	if a.Level != models.LevelExcellent {
		t.Errorf("level = %s, want excellent", a.Level)
	}
}

func TestScoreBounds(t *testing.T) {
	s := newTestScorer(t)
	conditions := models.KnownConditions
	temps := []sql.NullFloat64{{}, nf(-20), nf(5), nf(25), nf(33), nf(45), nf(70)}
	ages := []time.Duration{time.Minute, 90 * time.Minute, 5 * time.Hour, 30 * time.Hour}

	for _, c := range conditions {
		for _, temp := range temps {
			for _, age := range ages {
				obs := models.Observation{
					Route:       "US-2",
					Condition:   c,
					Temperature: temp,
					Source:      "Waze",
					ObservedAt:  scoreNow.Add(-age),
				}
				a := s.Score(obs, models.WeatherContext{}, scoreNow)
				if a.Score < 0 || a.Score > 100 {
					t.Errorf("score %d out of [0,100] for condition=%s temp=%v age=%s", a.Score, c, temp, age)
				}
				if a.Confidence < 50 || a.Confidence > 100 {
					t.Errorf("confidence %d out of [50,100]", a.Confidence)
				}
			}
		}
	}
}

func TestScoreIdempotent(t *testing.T) {
	s := newTestScorer(t)
	obs := models.Observation{
		Route:       "VT-15",
		Condition:   models.ConditionSnowCovered,
		Temperature: nf(28),
		Source:      "Vermont 511",
		ObservedAt:  scoreNow.Add(-45 * time.Minute),
	}
	ctx := models.WeatherContext{
		HumidityPct:  sql.NullInt64{Int64: 85, Valid: true},
		WindSpeedMPH: nf(12),
	}

	first := s.Score(obs, ctx, scoreNow)
	second := s.Score(obs, ctx, scoreNow)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("scoring is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestClassifyTierBoundaries(t *testing.T) {
	tests := []struct {
		score int
		level models.SafetyLevel
	}{
		{100, models.LevelExcellent},
		{80, models.LevelExcellent},
		{79, models.LevelGood},
		{60, models.LevelGood},
		{59, models.LevelCaution},
		{40, models.LevelCaution},
		{39, models.LevelPoor},
		{20, models.LevelPoor},
		{19, models.LevelHazardous},
		{0, models.LevelHazardous},
	}
	for _, tt := range tests {
		level, _ := classify(tt.score)
		if level != tt.level {
			t.Errorf("classify(%d) = %s, want %s", tt.score, level, tt.level)
		}
	}
}

func TestTemperatureSubScoreMonotonic(t *testing.T) {
	// Decreasing temperature from 40°F to 15°F must never raise the sub-score.
	prev := 101.0
	for temp := 40.0; temp >= 15; temp-- {
		f := temperatureFactor(models.ConditionClear, temp, true, models.WeatherContext{})
		if f.Score > prev {
			t.Fatalf("temperature sub-score rose from %.0f to %.0f at %.0f°F", prev, f.Score, temp)
		}
		prev = f.Score
	}
}

func TestTemperatureMissingDefaultsModerate(t *testing.T) {
	f := temperatureFactor(models.ConditionSnowCovered, 0, false, models.WeatherContext{})
	if f.Score != missingTempScore {
		t.Errorf("sub-score = %.0f, want %d when temperature unknown", f.Score, missingTempScore)
	}
}

func TestTemperatureHumidityPenalty(t *testing.T) {
	ctx := models.WeatherContext{HumidityPct: sql.NullInt64{Int64: 90, Valid: true}}
	withHumidity := temperatureFactor(models.ConditionClear, 34, true, ctx)
	without := temperatureFactor(models.ConditionClear, 34, true, models.WeatherContext{})
	if withHumidity.Score != without.Score-15 {
		t.Errorf("humidity penalty: got %.0f, want %.0f", withHumidity.Score, without.Score-15)
	}
}

func TestFreshnessStaleDangerousHalved(t *testing.T) {
	benign := freshnessFactor(models.ConditionWet, false, 4*time.Hour)
	dangerous := freshnessFactor(models.ConditionIce, true, 4*time.Hour)
	if benign.Score != 50 {
		t.Errorf("benign 4h freshness = %.0f, want 50", benign.Score)
	}
	if dangerous.Score != 25 {
		t.Errorf("dangerous 4h freshness = %.0f, want 25", dangerous.Score)
	}
}

func TestScoreStaleDangerousFlatPenalty(t *testing.T) {
	s := newTestScorer(t)
	obs := models.Observation{
		Route:      "I-91",
		Condition:  models.ConditionIce,
		Source:     "Vermont 511",
		ObservedAt: scoreNow.Add(-10 * time.Minute),
	}
	fresh := s.Score(obs, models.WeatherContext{}, scoreNow)

	obs.ObservedAt = scoreNow.Add(-4 * time.Hour)
	stale := s.Score(obs, models.WeatherContext{}, scoreNow)

	// Stale dangerous data loses both the freshness sub-score and the flat
	// penalty; the gap must exceed what the freshness weight alone explains.
	if stale.Score >= fresh.Score-20 {
		t.Errorf("stale ice score %d vs fresh %d: flat penalty not applied", stale.Score, fresh.Score)
	}
}

func TestCombinationRules(t *testing.T) {
	tests := []struct {
		name string
		obs  models.Observation
		ctx  models.WeatherContext
		hour int
		want float64
	}{
		{
			name: "ice with extreme cold",
			obs:  models.Observation{Condition: models.ConditionIce, Temperature: nf(5)},
			want: 0,
		},
		{
			name: "ice with strong wind",
			obs:  models.Observation{Condition: models.ConditionIce, Temperature: nf(25)},
			ctx:  models.WeatherContext{WindSpeedMPH: nf(30)},
			want: 30,
		},
		{
			name: "snow with strong wind",
			obs:  models.Observation{Condition: models.ConditionSnowCovered},
			ctx:  models.WeatherContext{WindSpeedMPH: nf(30)},
			want: 40,
		},
		{
			name: "wet cold night",
			obs:  models.Observation{Condition: models.ConditionWet, Temperature: nf(30)},
			hour: 23,
			want: 50,
		},
		{
			name: "closed with ice warning",
			obs:  models.Observation{Condition: models.ConditionClosed, Warning: "Road closed due to ice accumulation"},
			want: 5,
		},
		{
			name: "no rule matches",
			obs:  models.Observation{Condition: models.ConditionClear, Temperature: nf(50)},
			hour: 12,
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, hasTemp := effectiveTemp(tt.obs, tt.ctx)
			hour := tt.hour
			if hour == 0 {
				hour = 12
			}
			f := combinationFactor(tt.obs, tt.ctx, temp, hasTemp, hour)
			if f.Score != tt.want {
				t.Errorf("combination score = %.0f, want %.0f", f.Score, tt.want)
			}
		})
	}
}

func TestConfidenceAdjustments(t *testing.T) {
	s := newTestScorer(t)
	base := models.Observation{
		Route:      "VT-100",
		Condition:  models.ConditionClear,
		Source:     "Waze",
		ObservedAt: scoreNow.Add(-10 * time.Minute),
	}

	t.Run("baseline without temperature", func(t *testing.T) {
		a := s.Score(base, models.WeatherContext{}, scoreNow)
		if a.Confidence != 85 {
			t.Errorf("confidence = %d, want 85", a.Confidence)
		}
	})

	t.Run("temperature present adds 5", func(t *testing.T) {
		obs := base
		obs.Temperature = nf(40)
		a := s.Score(obs, models.WeatherContext{}, scoreNow)
		if a.Confidence != 90 {
			t.Errorf("confidence = %d, want 90", a.Confidence)
		}
	})

	t.Run("official source adds 5", func(t *testing.T) {
		obs := base
		obs.Source = "VTrans RWIS"
		a := s.Score(obs, models.WeatherContext{}, scoreNow)
		if a.Confidence != 90 {
			t.Errorf("confidence = %d, want 90", a.Confidence)
		}
	})

	t.Run("unknown condition subtracts 10", func(t *testing.T) {
		obs := base
		obs.Condition = models.ConditionUnknown
		a := s.Score(obs, models.WeatherContext{}, scoreNow)
		if a.Confidence != 75 {
			t.Errorf("confidence = %d, want 75", a.Confidence)
		}
	})

	t.Run("very stale subtracts 15", func(t *testing.T) {
		obs := base
		obs.ObservedAt = scoreNow.Add(-7 * time.Hour)
		a := s.Score(obs, models.WeatherContext{}, scoreNow)
		if a.Confidence != 70 {
			t.Errorf("confidence = %d, want 70", a.Confidence)
		}
	})
}

func TestRoadClassFromRouteLabel(t *testing.T) {
	tests := []struct {
		route string
		want  float64
	}{
		{"I-89", 85},
		{"US-7", 87},
		{"VT-100", 90},
		{"Route 15", 90},
		{"Maple Street", 95},
		{"", 95},
	}
	for _, tt := range tests {
		if f := roadClassFactor(tt.route); f.Score != tt.want {
			t.Errorf("roadClassFactor(%q) = %.0f, want %.0f", tt.route, f.Score, tt.want)
		}
	}
}

func TestFactorBreakdownComplete(t *testing.T) {
	s := newTestScorer(t)
	obs := models.Observation{
		Route:       "I-89",
		Condition:   models.ConditionWet,
		Temperature: nf(38),
		Source:      "NWS",
		ObservedAt:  scoreNow.Add(-20 * time.Minute),
	}
	a := s.Score(obs, models.WeatherContext{}, scoreNow)

	wantOrder := []string{"condition", "temperature", "freshness", "severity", "source", "road_class", "time_of_day", "combination"}
	if len(a.Factors) != len(wantOrder) {
		t.Fatalf("got %d factors, want %d", len(a.Factors), len(wantOrder))
	}
	for i, name := range wantOrder {
		f := a.Factors[i]
		if f.Name != name {
			t.Errorf("factor[%d] = %s, want %s", i, f.Name, name)
		}
		if f.Weight <= 0 || f.Description == "" {
			t.Errorf("factor %s missing weight or description: %+v", name, f)
		}
	}
}
