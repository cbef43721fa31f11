// Package closure predicts school closure likelihood per district and target
// date from winter weather forecasts, district thresholds, and recent closure
// history. Scoring is strictly additive and clamped, unlike the road risk
// scorer's weighted blend.
package closure

import "github.com/frostline/roadwatch/internal/models"

// Default decision thresholds applied when a district has no specific
// configuration.
const (
	DefaultSnowThresholdIn  = 6.0
	DefaultDelayThresholdIn = 3.0
	DefaultColdThresholdF   = -10.0 // wind chill
	DefaultWindThresholdMPH = 35.0
	DefaultIceThresholdIn   = 0.25
)

// ApplyDefaults fills any unset threshold on the district.
func ApplyDefaults(d models.District) models.District {
	if d.SnowThresholdIn == 0 {
		d.SnowThresholdIn = DefaultSnowThresholdIn
	}
	if d.DelayThresholdIn == 0 {
		d.DelayThresholdIn = DefaultDelayThresholdIn
	}
	if d.ColdThresholdF == 0 {
		d.ColdThresholdF = DefaultColdThresholdF
	}
	if d.WindThresholdMPH == 0 {
		d.WindThresholdMPH = DefaultWindThresholdMPH
	}
	if d.IceThresholdIn == 0 {
		d.IceThresholdIn = DefaultIceThresholdIn
	}
	return d
}

// regionAdjust shifts closing likelihood by sub-region: rural hill districts
// close earlier than the urbanized Champlain Valley.
var regionAdjust = map[string]int{
	"northeast-kingdom": 10,
	"mountain":          8,
	"central":           5,
	"southern":          0,
	"champlain-valley":  -5,
}

// RegionAdjustment returns the closing-probability delta for a sub-region.
// Unknown regions adjust by 0.
func RegionAdjustment(region string) int {
	return regionAdjust[region]
}

// DefaultDistricts seeds the district table on first run.
var DefaultDistricts = []models.District{
	{ID: "burlington", Name: "Burlington School District", Region: "champlain-valley", Latitude: 44.476, Longitude: -73.212},
	{ID: "montpelier-roxbury", Name: "Montpelier Roxbury Public Schools", Region: "central", Latitude: 44.260, Longitude: -72.576},
	{ID: "harwood", Name: "Harwood Unified Union School District", Region: "mountain", Latitude: 44.193, Longitude: -72.824},
	{ID: "north-country", Name: "North Country Supervisory Union", Region: "northeast-kingdom", Latitude: 44.936, Longitude: -72.206},
	{ID: "kingdom-east", Name: "Kingdom East School District", Region: "northeast-kingdom", Latitude: 44.543, Longitude: -71.984},
	{ID: "rutland-city", Name: "Rutland City Public Schools", Region: "southern", Latitude: 43.610, Longitude: -72.973},
	{ID: "brattleboro", Name: "Windham Southeast Supervisory Union", Region: "southern", Latitude: 42.851, Longitude: -72.558},
}
