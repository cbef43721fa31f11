package validate

import (
	"time"

	"github.com/frostline/roadwatch/internal/models"
)

// ReadingResult is the lightweight structural check applied to a weather
// reading before the fallback resolver accepts it. Confidence starts at 100
// and each problem subtracts; readings below the resolver's floor are skipped.
type ReadingResult struct {
	OK         bool
	Confidence int
	Problems   []string
}

// Reading applies bounds and freshness checks to a provider weather reading.
// The rules mirror observation validation: invalid structure fails outright,
// implausible values only reduce confidence.
func Reading(r models.WeatherReading, now time.Time) ReadingResult {
	res := ReadingResult{Confidence: 100}

	if r.ObservedAt.IsZero() {
		res.Problems = append(res.Problems, "missing observation time")
		res.Confidence = 0
		return res
	}
	if !CoordsInBounds(r.Latitude, r.Longitude) {
		res.Problems = append(res.Problems, "coordinates out of bounds")
		res.Confidence = 0
		return res
	}

	if r.ObservedAt.Sub(now) > maxFutureSkew {
		res.Problems = append(res.Problems, FlagFutureTimestamp)
		res.Confidence -= 25
	}
	switch age := now.Sub(r.ObservedAt); {
	case age > 6*time.Hour:
		res.Problems = append(res.Problems, FlagStale)
		res.Confidence -= 60
	case age > 2*time.Hour:
		res.Problems = append(res.Problems, FlagStale)
		res.Confidence -= 30
	}

	if r.TempF.Valid {
		if t := r.TempF.Float64; t < tempMinF || t > tempMaxF {
			res.Problems = append(res.Problems, FlagTempOutOfRange)
			res.Confidence -= 25
		}
	} else {
		res.Problems = append(res.Problems, "missing temperature")
		res.Confidence -= 15
	}

	if !InServiceRegion(r.Latitude, r.Longitude) {
		res.Problems = append(res.Problems, FlagOffRegion)
		res.Confidence -= 15
	}

	if res.Confidence < 0 {
		res.Confidence = 0
	}
	res.OK = res.Confidence > 0
	return res
}
