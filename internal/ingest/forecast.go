package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/frostline/roadwatch/internal/httputil"
	"github.com/frostline/roadwatch/internal/models"
)

const nwsForecastBaseURL = "https://api.weather.gov"

// NWSForecast builds per-day forecasts for a district from the NWS gridpoint
// quantitative layers. Each call aggregates the layer values that overlap the
// requested local calendar day.
type NWSForecast struct {
	baseURL string
	client  *http.Client
	loc     *time.Location

	mu       sync.Mutex
	gridURLs map[string]string // district ID to grid data URL
}

func NewNWSForecast(loc *time.Location) *NWSForecast {
	return &NWSForecast{
		baseURL:  nwsForecastBaseURL,
		client:   httputil.NewClient(),
		loc:      loc,
		gridURLs: make(map[string]string),
	}
}

type nwsPointsResponse struct {
	Properties struct {
		ForecastGridData string `json:"forecastGridData"`
	} `json:"properties"`
}

type nwsGridLayer struct {
	UOM    string `json:"uom"`
	Values []struct {
		ValidTime string   `json:"validTime"`
		Value     *float64 `json:"value"`
	} `json:"values"`
}

type nwsWeatherLayer struct {
	Values []struct {
		ValidTime string `json:"validTime"`
		Value     []struct {
			Coverage  *string `json:"coverage"`
			Weather   *string `json:"weather"`
			Intensity *string `json:"intensity"`
		} `json:"value"`
	} `json:"values"`
}

type nwsGridResponse struct {
	Properties struct {
		SnowfallAmount             nwsGridLayer    `json:"snowfallAmount"`
		IceAccumulation            nwsGridLayer    `json:"iceAccumulation"`
		MinTemperature             nwsGridLayer    `json:"minTemperature"`
		WindChill                  nwsGridLayer    `json:"windChill"`
		WindSpeed                  nwsGridLayer    `json:"windSpeed"`
		WindGust                   nwsGridLayer    `json:"windGust"`
		ProbabilityOfPrecipitation nwsGridLayer    `json:"probabilityOfPrecipitation"`
		Weather                    nwsWeatherLayer `json:"weather"`
	} `json:"properties"`
}

// gridURL resolves and caches the gridpoint data URL for a district.
func (f *NWSForecast) gridURL(ctx context.Context, district models.District) (string, error) {
	f.mu.Lock()
	cached, ok := f.gridURLs[district.ID]
	f.mu.Unlock()
	if ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/points/%.4f,%.4f", f.baseURL, district.Latitude, district.Longitude)
	body, err := getWithRetry(ctx, f.client, url)
	if err != nil {
		return "", fmt.Errorf("nws points: %w", err)
	}

	var points nwsPointsResponse
	if err := json.Unmarshal(body, &points); err != nil {
		return "", fmt.Errorf("nws points: unmarshal: %w", err)
	}
	if points.Properties.ForecastGridData == "" {
		return "", fmt.Errorf("nws points: no grid data URL for %s", district.ID)
	}

	f.mu.Lock()
	f.gridURLs[district.ID] = points.Properties.ForecastGridData
	f.mu.Unlock()
	return points.Properties.ForecastGridData, nil
}

func (f *NWSForecast) FetchDaily(ctx context.Context, district models.District, date time.Time) (models.DailyForecast, error) {
	gridURL, err := f.gridURL(ctx, district)
	if err != nil {
		return models.DailyForecast{}, err
	}

	body, err := getWithRetry(ctx, f.client, gridURL)
	if err != nil {
		return models.DailyForecast{}, fmt.Errorf("nws grid: %w", err)
	}

	var grid nwsGridResponse
	if err := json.Unmarshal(body, &grid); err != nil {
		return models.DailyForecast{}, fmt.Errorf("nws grid: unmarshal: %w", err)
	}

	local := date.In(f.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, f.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	p := grid.Properties
	fc := models.DailyForecast{Date: dayStart}
	fc.SnowfallIn = sumOverDay(p.SnowfallAmount, dayStart, dayEnd)
	fc.IceAccretionIn = sumOverDay(p.IceAccumulation, dayStart, dayEnd)
	fc.TempLowF = minOverDay(p.MinTemperature, dayStart, dayEnd)
	fc.WindChillF = minOverDay(p.WindChill, dayStart, dayEnd)
	fc.WindSpeedMPH = maxOverDay(p.WindSpeed, dayStart, dayEnd)
	fc.WindGustMPH = maxOverDay(p.WindGust, dayStart, dayEnd)

	if pct := maxOverDay(p.ProbabilityOfPrecipitation, dayStart, dayEnd); pct.Valid {
		fc.PrecipChancePct = nullInt(int64(pct.Float64))
	}
	fc.PrecipStartHour, fc.PrecipEndHour = precipWindow(p.SnowfallAmount, p.IceAccumulation, dayStart, dayEnd, f.loc)
	fc.Narrative = weatherNarrative(p.Weather, dayStart, dayEnd)

	return fc, nil
}

// parseISOInterval splits an NWS validTime like
// "2025-01-15T06:00:00+00:00/PT6H" into its start and duration. Durations use
// the P#DT#H#M subset the grid feed emits.
func parseISOInterval(s string) (time.Time, time.Duration, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("interval %q: missing duration", s)
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("interval %q: %w", s, err)
	}
	d, err := parseISODuration(parts[1])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("interval %q: %w", s, err)
	}
	return start, d, nil
}

func parseISODuration(s string) (time.Duration, error) {
	rest, ok := strings.CutPrefix(s, "P")
	if !ok {
		return 0, fmt.Errorf("duration %q: missing P", s)
	}
	var total time.Duration
	if i := strings.Index(rest, "D"); i >= 0 {
		days, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, fmt.Errorf("duration %q: %w", s, err)
		}
		total += time.Duration(days) * 24 * time.Hour
		rest = rest[i+1:]
	}
	if rest == "" {
		return total, nil
	}
	rest, ok = strings.CutPrefix(rest, "T")
	if !ok {
		return 0, fmt.Errorf("duration %q: missing T", s)
	}
	if i := strings.Index(rest, "H"); i >= 0 {
		hours, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, fmt.Errorf("duration %q: %w", s, err)
		}
		total += time.Duration(hours) * time.Hour
		rest = rest[i+1:]
	}
	if i := strings.Index(rest, "M"); i >= 0 {
		mins, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, fmt.Errorf("duration %q: %w", s, err)
		}
		total += time.Duration(mins) * time.Minute
	}
	return total, nil
}

// overlap returns the portion of [start, start+d) inside [dayStart, dayEnd),
// zero when the period misses the day entirely.
func overlap(start time.Time, d time.Duration, dayStart, dayEnd time.Time) time.Duration {
	end := start.Add(d)
	if !start.Before(dayEnd) || !end.After(dayStart) {
		return 0
	}
	if start.Before(dayStart) {
		start = dayStart
	}
	if end.After(dayEnd) {
		end = dayEnd
	}
	return end.Sub(start)
}

func convertUOM(uom string, v float64) float64 {
	switch uom {
	case "wmoUnit:mm":
		return v / 25.4
	case "wmoUnit:degC":
		return v*9/5 + 32
	case "wmoUnit:km_h-1":
		return v * 0.621371
	}
	return v
}

// sumOverDay totals a quantity layer across the day, prorating periods that
// straddle the day boundary.
func sumOverDay(layer nwsGridLayer, dayStart, dayEnd time.Time) sql.NullFloat64 {
	var total float64
	found := false
	for _, v := range layer.Values {
		if v.Value == nil {
			continue
		}
		start, d, err := parseISOInterval(v.ValidTime)
		if err != nil || d <= 0 {
			continue
		}
		o := overlap(start, d, dayStart, dayEnd)
		if o <= 0 {
			continue
		}
		found = true
		total += convertUOM(layer.UOM, *v.Value) * o.Seconds() / d.Seconds()
	}
	if !found {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: total, Valid: true}
}

func minOverDay(layer nwsGridLayer, dayStart, dayEnd time.Time) sql.NullFloat64 {
	return extremeOverDay(layer, dayStart, dayEnd, func(a, b float64) bool { return a < b })
}

func maxOverDay(layer nwsGridLayer, dayStart, dayEnd time.Time) sql.NullFloat64 {
	return extremeOverDay(layer, dayStart, dayEnd, func(a, b float64) bool { return a > b })
}

func extremeOverDay(layer nwsGridLayer, dayStart, dayEnd time.Time, better func(a, b float64) bool) sql.NullFloat64 {
	var result sql.NullFloat64
	for _, v := range layer.Values {
		if v.Value == nil {
			continue
		}
		start, d, err := parseISOInterval(v.ValidTime)
		if err != nil || overlap(start, d, dayStart, dayEnd) <= 0 {
			continue
		}
		converted := convertUOM(layer.UOM, *v.Value)
		if !result.Valid || better(converted, result.Float64) {
			result = sql.NullFloat64{Float64: converted, Valid: true}
		}
	}
	return result
}

// precipWindow finds the first and last local hours with expected frozen
// precipitation during the day.
func precipWindow(snow, ice nwsGridLayer, dayStart, dayEnd time.Time, loc *time.Location) (sql.NullInt64, sql.NullInt64) {
	var first, last time.Time
	for _, layer := range []nwsGridLayer{snow, ice} {
		for _, v := range layer.Values {
			if v.Value == nil || *v.Value <= 0 {
				continue
			}
			start, d, err := parseISOInterval(v.ValidTime)
			if err != nil || overlap(start, d, dayStart, dayEnd) <= 0 {
				continue
			}
			periodStart := start
			if periodStart.Before(dayStart) {
				periodStart = dayStart
			}
			periodEnd := start.Add(d)
			if periodEnd.After(dayEnd) {
				periodEnd = dayEnd
			}
			if first.IsZero() || periodStart.Before(first) {
				first = periodStart
			}
			if periodEnd.After(last) {
				last = periodEnd
			}
		}
	}
	if first.IsZero() {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return nullInt(int64(first.In(loc).Hour())), nullInt(int64(last.In(loc).Hour()))
}

// weatherNarrative flattens the categorical weather layer into a short
// description like "heavy snow, freezing rain".
func weatherNarrative(layer nwsWeatherLayer, dayStart, dayEnd time.Time) string {
	seen := make(map[string]bool)
	var parts []string
	for _, v := range layer.Values {
		start, d, err := parseISOInterval(v.ValidTime)
		if err != nil || overlap(start, d, dayStart, dayEnd) <= 0 {
			continue
		}
		for _, w := range v.Value {
			if w.Weather == nil {
				continue
			}
			desc := strings.ReplaceAll(*w.Weather, "_", " ")
			if w.Intensity != nil && *w.Intensity != "" {
				desc = strings.ReplaceAll(*w.Intensity, "_", " ") + " " + desc
			}
			if !seen[desc] {
				seen[desc] = true
				parts = append(parts, desc)
			}
		}
	}
	return strings.Join(parts, ", ")
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
