package closure

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/frostline/roadwatch/internal/metrics"
	"github.com/frostline/roadwatch/internal/models"
)

// Morning decision/commute window: precipitation landing here forces the call
// before buses roll.
const (
	commuteWindowStart = 4
	commuteWindowEnd   = 7
)

// Lookback for the recent-closure bonus.
const historyLookback = 7 * 24 * time.Hour

// ForecastProvider fetches one district's forecast for one target date. Each
// date in a multi-day request gets its own fetch; forecasts are never shared
// across days.
type ForecastProvider interface {
	FetchDaily(ctx context.Context, district models.District, date time.Time) (models.DailyForecast, error)
}

// HistoryStore supplies actual closure decisions for the recency bonus.
type HistoryStore interface {
	RecentClosures(districtID string, since time.Time) ([]models.ClosureRecord, error)
}

// Predictor computes closure likelihood predictions.
type Predictor struct {
	forecasts ForecastProvider
	history   HistoryStore
	clock     clockwork.Clock
}

// New builds a predictor. history may be nil, disabling the recency bonus.
func New(forecasts ForecastProvider, history HistoryStore, clock clockwork.Clock) *Predictor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Predictor{forecasts: forecasts, history: history, clock: clock}
}

// contribution tracks one driver's point delta for the primary-reason pick.
type contribution struct {
	label   string
	closing int
	delay   int
}

// Predict scores one district for one target date against the supplied
// forecast. Pure given its inputs apart from the history lookup.
func (p *Predictor) Predict(district models.District, date time.Time, fc models.DailyForecast) models.ClosurePrediction {
	district = ApplyDefaults(district)

	var contribs []contribution

	snow := 0.0
	if fc.SnowfallIn.Valid {
		snow = fc.SnowfallIn.Float64
	}
	contribs = append(contribs, snowContribution(snow, district))

	ice := 0.0
	if fc.IceAccretionIn.Valid {
		ice = fc.IceAccretionIn.Float64
	}
	contribs = append(contribs, iceContribution(ice, district))

	contribs = append(contribs, coldContribution(fc, district))
	contribs = append(contribs, windContribution(fc, district))
	contribs = append(contribs, narrativeContributions(fc.Narrative)...)
	contribs = append(contribs, timingContribution(fc))
	contribs = append(contribs, regionContribution(district))
	contribs = append(contribs, p.historyContribution(district))

	closing, delay := 0, 0
	var factors []string
	primary := contribution{label: "no significant winter weather forecast"}
	for _, c := range contribs {
		closing += c.closing
		delay += c.delay
		if c.closing != 0 || c.delay != 0 {
			factors = append(factors, c.label)
		}
		if c.closing > primary.closing {
			primary = c
		}
	}

	pred := models.ClosurePrediction{
		DistrictID:                district.ID,
		DistrictName:              district.Name,
		PredictedForDate:          date.Format("2006-01-02"),
		FullClosingProbability:    clampPct(closing),
		DelayProbability:          clampPct(delay),
		EarlyDismissalProbability: clampPct(earlyDismissal(fc, snow, ice)),
		Confidence:                forecastConfidence(fc),
		Forecast:                  forecastInput(fc),
		Factors:                   factors,
		PrimaryReason:             primary.label,
	}
	metrics.PredictionsComputed.WithLabelValues(district.ID).Inc()
	return pred
}

// PredictRange produces one prediction per day starting at start, fetching each
// day's forecast independently.
func (p *Predictor) PredictRange(ctx context.Context, district models.District, start time.Time, days int) ([]models.ClosurePrediction, error) {
	var out []models.ClosurePrediction
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		fc, err := p.forecasts.FetchDaily(ctx, district, date)
		if err != nil {
			return nil, fmt.Errorf("forecast for %s day %s: %w", district.ID, date.Format("2006-01-02"), err)
		}
		out = append(out, p.Predict(district, date, fc))
	}
	return out, nil
}

// snowContribution scores forecast snowfall. Even fractional amounts below the
// closing threshold contribute proportionally; "just under threshold" is never
// zero risk.
func snowContribution(snow float64, d models.District) contribution {
	c := contribution{label: fmt.Sprintf("forecast snowfall %.1f in", snow)}
	if snow <= 0 {
		return contribution{}
	}
	switch {
	case snow >= d.SnowThresholdIn:
		c.label = fmt.Sprintf("forecast snowfall %.1f in at or above closing threshold %.1f in", snow, d.SnowThresholdIn)
		c.closing = 40 + int(math.Min((snow-d.SnowThresholdIn)*5, 20))
		c.delay = 30
	case snow >= d.DelayThresholdIn:
		c.label = fmt.Sprintf("forecast snowfall %.1f in above delay threshold %.1f in", snow, d.DelayThresholdIn)
		c.closing = int(math.Min(snow*5, 20))
		c.delay = 25 + int(math.Min((snow-d.DelayThresholdIn)*5, 15))
	default:
		c.closing = int(math.Min(snow*5, 20))
		c.delay = int(math.Min(snow*4, 15))
	}
	if c.closing == 0 {
		// Trace snow still carries nonzero risk.
		c.closing = 1
	}
	return c
}

// iceContribution scores forecast ice accretion. Trace ice is weighted far more
// heavily than equivalent snow depth.
func iceContribution(ice float64, d models.District) contribution {
	if ice <= 0 {
		return contribution{}
	}
	c := contribution{
		label:   fmt.Sprintf("forecast ice accretion %.2f in", ice),
		closing: 25,
		delay:   20,
	}
	if ice >= d.IceThresholdIn {
		c.label = fmt.Sprintf("forecast ice accretion %.2f in at or above threshold %.2f in", ice, d.IceThresholdIn)
		c.closing += 20
		c.delay += 15
	}
	return c
}

func coldContribution(fc models.DailyForecast, d models.District) contribution {
	chill, ok := 0.0, false
	if fc.WindChillF.Valid {
		chill, ok = fc.WindChillF.Float64, true
	} else if fc.TempLowF.Valid {
		chill, ok = fc.TempLowF.Float64, true
	}
	if !ok || chill > d.ColdThresholdF {
		return contribution{}
	}
	return contribution{
		label:   fmt.Sprintf("wind chill %.0f°F at or below threshold %.0f°F", chill, d.ColdThresholdF),
		closing: 20,
		delay:   15,
	}
}

func windContribution(fc models.DailyForecast, d models.District) contribution {
	wind := 0.0
	if fc.WindGustMPH.Valid {
		wind = fc.WindGustMPH.Float64
	} else if fc.WindSpeedMPH.Valid {
		wind = fc.WindSpeedMPH.Float64
	}
	if wind < d.WindThresholdMPH {
		return contribution{}
	}
	return contribution{
		label:   fmt.Sprintf("wind %.0f mph at or above threshold %.0f mph", wind, d.WindThresholdMPH),
		closing: 10,
		delay:   5,
	}
}

// narrativeRules map precipitation-type keywords to point deltas. Evaluated
// against the lowercased forecast narrative; each rule fires at most once.
var narrativeRules = []struct {
	keyword string
	closing int
	delay   int
}{
	{"ice storm", 35, 20},
	{"freezing rain", 30, 20},
	{"blizzard", 35, 20},
	{"heavy snow", 20, 15},
	{"sleet", 15, 10},
	{"wintry mix", 15, 10},
}

func narrativeContributions(narrative string) []contribution {
	lower := strings.ToLower(narrative)
	var out []contribution
	for _, r := range narrativeRules {
		if strings.Contains(lower, r.keyword) {
			out = append(out, contribution{
				label:   fmt.Sprintf("forecast mentions %s", r.keyword),
				closing: r.closing,
				delay:   r.delay,
			})
		}
	}
	return out
}

// timingContribution rewards precipitation landing in the 04:00-07:00 decision
// window, when superintendents must call before buses roll on untreated roads.
func timingContribution(fc models.DailyForecast) contribution {
	if !fc.PrecipStartHour.Valid {
		return contribution{}
	}
	start := fc.PrecipStartHour.Int64
	if start < commuteWindowStart || start > commuteWindowEnd {
		return contribution{}
	}
	return contribution{
		label:   fmt.Sprintf("precipitation starting %02d:00, inside the morning decision window", start),
		closing: 10,
		delay:   20,
	}
}

func regionContribution(d models.District) contribution {
	adj := RegionAdjustment(d.Region)
	if adj == 0 {
		return contribution{}
	}
	return contribution{
		label:   fmt.Sprintf("regional adjustment for %s", d.Region),
		closing: adj,
		delay:   adj / 2,
	}
}

// historyContribution adds a small bonus when the district has recently closed:
// administrators who just closed are likelier to close again under marginal
// conditions.
func (p *Predictor) historyContribution(d models.District) contribution {
	if p.history == nil {
		return contribution{}
	}
	records, err := p.history.RecentClosures(d.ID, p.clock.Now().Add(-historyLookback))
	if err != nil || len(records) == 0 {
		return contribution{}
	}
	bonus := len(records) * 5
	if bonus > 15 {
		bonus = 15
	}
	return contribution{
		label:   fmt.Sprintf("%d closure decisions in the last 7 days", len(records)),
		closing: bonus,
		delay:   bonus / 2,
	}
}

// earlyDismissal scores afternoon-onset precipitation arriving during the
// school day.
func earlyDismissal(fc models.DailyForecast, snow, ice float64) int {
	if !fc.PrecipStartHour.Valid {
		return 0
	}
	start := fc.PrecipStartHour.Int64
	if start < 10 || start > 15 || (snow <= 0 && ice <= 0) {
		return 0
	}
	score := 25 + int(math.Min(snow*5, 20))
	if ice > 0 {
		score += 15
	}
	return score
}

func forecastConfidence(fc models.DailyForecast) int {
	conf := 70
	if fc.SnowfallIn.Valid {
		conf += 10
	}
	if fc.IceAccretionIn.Valid {
		conf += 5
	}
	if fc.WindChillF.Valid || fc.TempLowF.Valid {
		conf += 5
	}
	if fc.WindSpeedMPH.Valid || fc.WindGustMPH.Valid {
		conf += 5
	}
	if fc.Narrative == "" {
		conf -= 10
	}
	if conf > 95 {
		conf = 95
	}
	if conf < 40 {
		conf = 40
	}
	return conf
}

func forecastInput(fc models.DailyForecast) models.ForecastInput {
	in := models.ForecastInput{Narrative: fc.Narrative}
	if fc.SnowfallIn.Valid {
		in.SnowfallIn = fc.SnowfallIn.Float64
	}
	if fc.IceAccretionIn.Valid {
		in.IceAccretionIn = fc.IceAccretionIn.Float64
	}
	if fc.TempLowF.Valid {
		in.TempLowF = fc.TempLowF.Float64
	}
	if fc.WindChillF.Valid {
		in.WindChillF = fc.WindChillF.Float64
	}
	if fc.WindSpeedMPH.Valid {
		in.WindSpeedMPH = fc.WindSpeedMPH.Float64
	}
	return in
}

func clampPct(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
