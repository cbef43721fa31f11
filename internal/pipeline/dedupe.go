package pipeline

import (
	"math"

	"github.com/frostline/roadwatch/internal/models"
)

// Coordinates closer than this (in degrees, per axis) describe the same spot
// for display purposes.
const dedupeProximityDeg = 0.01

// Deduplicate removes exact duplicate (route, condition) records whose
// coordinates fall within the proximity threshold, keeping the first
// occurrence. This is a coarse display-level pass, separate from the
// consensus/conflict computation: it reduces repeated map entries, while
// cross-referencing measures source disagreement.
func Deduplicate(obs []models.Observation) []models.Observation {
	var out []models.Observation
	for _, o := range obs {
		if !containsDuplicate(out, o) {
			out = append(out, o)
		}
	}
	return out
}

func containsDuplicate(kept []models.Observation, o models.Observation) bool {
	for _, k := range kept {
		if k.Route != o.Route || k.Condition != o.Condition {
			continue
		}
		if k.HasCoordinates() && o.HasCoordinates() {
			if math.Abs(k.Latitude.Float64-o.Latitude.Float64) <= dedupeProximityDeg &&
				math.Abs(k.Longitude.Float64-o.Longitude.Float64) <= dedupeProximityDeg {
				return true
			}
			continue
		}
		// Without coordinates on both sides, route plus condition is the
		// closest identity we have.
		return true
	}
	return false
}
