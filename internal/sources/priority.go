// Package sources holds the static reliability ranking of named data providers.
// Both validation confidence and risk scoring consult these tables, so they live
// in one place as immutable configuration rather than literals scattered through
// the scorers.
package sources

// DefaultReliability is the fallback score for sources not in the table.
const DefaultReliability = 50

// reliability maps a source name to its trust score (0-100). Official state
// sensor networks rank highest, commercial APIs mid-range, community and
// aggregator feeds lowest.
var reliability = map[string]int{
	"VTrans RWIS":    98,
	"Vermont 511":    95,
	"NWS":            95,
	"New England 511": 88,
	"OpenWeatherMap": 75,
	"WeatherAPI":     70,
	"Tomorrow.io":    68,
	"Waze":           60,
	"Community":      55,
}

// official sources get a confidence bonus during scoring.
var official = map[string]bool{
	"VTrans RWIS":     true,
	"Vermont 511":     true,
	"NWS":             true,
	"New England 511": true,
}

// Reliability returns the trust score for a named source, or DefaultReliability
// when the source is unknown.
func Reliability(source string) int {
	if r, ok := reliability[source]; ok {
		return r
	}
	return DefaultReliability
}

// IsOfficial reports whether the source is a government-operated feed.
func IsOfficial(source string) bool {
	return official[source]
}

// Known reports whether the source appears in the reliability table.
func Known(source string) bool {
	_, ok := reliability[source]
	return ok
}

// ProviderPriority is the fixed order the weather fallback resolver tries
// providers in. Earlier entries are more trusted.
var ProviderPriority = []string{
	"NWS",
	"OpenWeatherMap",
	"WeatherAPI",
}
