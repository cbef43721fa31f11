package ingest

import (
	"context"
	"strings"

	"github.com/frostline/roadwatch/internal/models"
)

// Source is one upstream feed of road condition observations.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Observation, error)
}

// conditionFromText maps a provider's free-text surface description onto the
// normalized condition scale. Iciness outranks snow, snow outranks wet.
func conditionFromText(text string) models.Condition {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "closed") || strings.Contains(t, "impassable"):
		return models.ConditionClosed
	case strings.Contains(t, "ice") || strings.Contains(t, "icy") || strings.Contains(t, "black ice") || strings.Contains(t, "freezing rain"):
		return models.ConditionIce
	case strings.Contains(t, "snow") || strings.Contains(t, "slush") || strings.Contains(t, "plow"):
		return models.ConditionSnowCovered
	case strings.Contains(t, "wet") || strings.Contains(t, "rain") || strings.Contains(t, "standing water"):
		return models.ConditionWet
	case strings.Contains(t, "clear") || strings.Contains(t, "dry") || strings.Contains(t, "bare"):
		return models.ConditionClear
	default:
		return models.ConditionUnknown
	}
}

// severityFromText maps provider severity labels onto the three-step scale.
// Unrecognized labels come back empty, meaning unreported.
func severityFromText(text string) models.Severity {
	switch strings.ToLower(text) {
	case "minor", "low":
		return models.SeverityMinor
	case "moderate", "medium":
		return models.SeverityModerate
	case "major", "high", "severe", "critical":
		return models.SeverityMajor
	}
	return ""
}
