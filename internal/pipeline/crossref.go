// Package pipeline reconciles validated observations from independent sources:
// grouping by spatial/route identity, computing a consensus condition per group,
// and surfacing disagreements as conflicts.
package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/frostline/roadwatch/internal/models"
)

// Confidence assigned to an identity only one source reported on.
const singleSourceConfidence = 60

// Consensus is the majority condition for one identity key, with an
// agreement-based confidence.
type Consensus struct {
	Key        string           `json:"key"`
	Route      string           `json:"route"`
	Condition  models.Condition `json:"condition"`
	Confidence int              `json:"confidence"`
	Sources    []string         `json:"sources"`
	AgreeCount int              `json:"agree_count"`
	TotalCount int              `json:"total_count"`
}

// ConflictReport is a group of observations for one identity that failed to
// reach majority agreement. Every contributing report is listed so downstream
// consumers can distinguish "no data" from "disputed data".
type ConflictReport struct {
	Key     string         `json:"key"`
	Route   string         `json:"route"`
	Reports []SourceReport `json:"reports"`
}

// SourceReport is one (source, condition, timestamp) triple inside a conflict.
type SourceReport struct {
	Source     string           `json:"source"`
	Condition  models.Condition `json:"condition"`
	ObservedAt time.Time        `json:"observed_at"`
}

// identityKey groups observations that describe the same place. Route label
// plus coarse-rounded coordinates when both are present; label alone otherwise;
// rounded coordinates alone when the record has no label.
func identityKey(o models.Observation) string {
	if o.Route != "" && o.HasCoordinates() {
		return fmt.Sprintf("%s|%.2f,%.2f", o.Route, o.Latitude.Float64, o.Longitude.Float64)
	}
	if o.Route != "" {
		return o.Route
	}
	return fmt.Sprintf("%.2f,%.2f", o.Latitude.Float64, o.Longitude.Float64)
}

// CrossReference groups validated observations by identity and computes a
// consensus entry per agreeing group or a conflict per disputed one. Group and
// output ordering follow first appearance in the input.
func CrossReference(obs []models.Observation) ([]Consensus, []ConflictReport) {
	groups := make(map[string][]models.Observation)
	var order []string
	for _, o := range obs {
		k := identityKey(o)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}

	var consensus []Consensus
	var conflicts []ConflictReport
	for _, k := range order {
		group := groups[k]

		if len(group) == 1 {
			o := group[0]
			consensus = append(consensus, Consensus{
				Key:        k,
				Route:      o.Route,
				Condition:  o.Condition,
				Confidence: singleSourceConfidence,
				Sources:    []string{o.Source},
				AgreeCount: 1,
				TotalCount: 1,
			})
			continue
		}

		majority, count := majorityCondition(group)
		ratio := float64(count) / float64(len(group))
		if ratio >= 0.5 {
			c := Consensus{
				Key:        k,
				Route:      group[0].Route,
				Condition:  majority,
				Confidence: int(math.Round(ratio * 100)),
				AgreeCount: count,
				TotalCount: len(group),
			}
			for _, o := range group {
				if o.Condition == majority {
					c.Sources = append(c.Sources, o.Source)
				}
			}
			consensus = append(consensus, c)
			continue
		}

		conflict := ConflictReport{Key: k, Route: group[0].Route}
		for _, o := range group {
			conflict.Reports = append(conflict.Reports, SourceReport{
				Source:     o.Source,
				Condition:  o.Condition,
				ObservedAt: o.ObservedAt,
			})
		}
		conflicts = append(conflicts, conflict)
	}
	return consensus, conflicts
}

// majorityCondition tallies distinct conditions across the group and returns
// the most frequent one. Ties break toward the condition seen first.
func majorityCondition(group []models.Observation) (models.Condition, int) {
	counts := make(map[models.Condition]int)
	var order []models.Condition
	for _, o := range group {
		if counts[o.Condition] == 0 {
			order = append(order, o.Condition)
		}
		counts[o.Condition]++
	}

	best := order[0]
	for _, c := range order {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best, counts[best]
}
