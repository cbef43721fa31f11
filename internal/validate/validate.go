// Package validate checks incoming observations for structural and physical
// plausibility. Structural problems reject a single record; bounds problems
// only flag it, degrading downstream confidence.
package validate

import (
	"fmt"
	"time"

	"github.com/frostline/roadwatch/internal/models"
)

// Warning flags attached to records that are kept but suspect.
const (
	FlagCoordsOutOfBounds = "coords_out_of_bounds"
	FlagOffRegion         = "coords_off_region"
	FlagFutureTimestamp   = "future_timestamp"
	FlagStale             = "stale_observation"
	FlagTempOutOfRange    = "temp_out_of_range"
	FlagDelayNegative     = "delay_negative"
)

// Service region bounding box (Vermont, with margin for border roads).
const (
	RegionLatMin = 42.5
	RegionLatMax = 45.3
	RegionLonMin = -73.8
	RegionLonMax = -71.2
)

const (
	// Clock skew tolerance before a future timestamp is flagged.
	maxFutureSkew = 60 * time.Second
	// Observations older than this are flagged stale.
	staleAfter = 24 * time.Hour
	// Sane Fahrenheit range for New England road weather.
	tempMinF = -50.0
	tempMaxF = 120.0
)

// Result is the outcome of validating one observation. Errors reject the
// record; warnings only penalize confidence.
type Result struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// BatchResult partitions a batch into kept and rejected records.
type BatchResult struct {
	Kept         []models.Observation
	Rejected     []models.Observation
	WarningCount int
}

// CoordsInBounds reports whether the pair is a physically valid WGS84 coordinate.
func CoordsInBounds(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// InServiceRegion reports whether the coordinate falls inside the Vermont
// service bounding box.
func InServiceRegion(lat, lon float64) bool {
	return lat >= RegionLatMin && lat <= RegionLatMax &&
		lon >= RegionLonMin && lon <= RegionLonMax
}

// Observation validates a single record against the given reference time.
// Pure function: no clock, no I/O.
func Observation(obs models.Observation, now time.Time) Result {
	var res Result

	if obs.Condition == "" {
		res.Errors = append(res.Errors, "missing condition")
	} else if !models.ValidCondition(obs.Condition) {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown condition %q", obs.Condition))
	}

	if obs.Source == "" {
		res.Errors = append(res.Errors, "missing source")
	}

	if obs.ObservedAt.IsZero() {
		res.Errors = append(res.Errors, "missing or malformed timestamp")
	} else {
		if age := obs.ObservedAt.Sub(now); age > maxFutureSkew {
			res.Warnings = append(res.Warnings, FlagFutureTimestamp)
		}
		if now.Sub(obs.ObservedAt) > staleAfter {
			res.Warnings = append(res.Warnings, FlagStale)
		}
	}

	if !models.ValidSeverity(obs.Severity) {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown severity %q", obs.Severity))
	}

	// Identity rule: a record must be mappable by route label or by a valid
	// coordinate pair. Bad coordinates alongside a label degrade to a warning
	// because the record is still usable for name-based mapping.
	coordsOK := false
	if obs.HasCoordinates() {
		lat, lon := obs.Latitude.Float64, obs.Longitude.Float64
		if CoordsInBounds(lat, lon) {
			coordsOK = true
			if !InServiceRegion(lat, lon) {
				res.Warnings = append(res.Warnings, FlagOffRegion)
			}
		} else if obs.Route != "" {
			res.Warnings = append(res.Warnings, FlagCoordsOutOfBounds)
		}
	}
	if obs.Route == "" && !coordsOK {
		res.Errors = append(res.Errors, "no usable identity: missing route label and valid coordinates")
	}

	if obs.Temperature.Valid {
		if t := obs.Temperature.Float64; t < tempMinF || t > tempMaxF {
			res.Warnings = append(res.Warnings, FlagTempOutOfRange)
		}
	}

	if obs.DelaySeconds.Valid && obs.DelaySeconds.Int64 < 0 {
		res.Warnings = append(res.Warnings, FlagDelayNegative)
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// Batch validates each observation, partitioning input into kept and rejected
// while preserving the original order within each partition.
func Batch(obs []models.Observation, now time.Time) BatchResult {
	var out BatchResult
	for _, o := range obs {
		res := Observation(o, now)
		if res.IsValid {
			out.Kept = append(out.Kept, o)
			out.WarningCount += len(res.Warnings)
		} else {
			out.Rejected = append(out.Rejected, o)
		}
	}
	return out
}
