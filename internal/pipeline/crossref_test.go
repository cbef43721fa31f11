package pipeline

import (
	"database/sql"
	"testing"
	"time"

	"github.com/frostline/roadwatch/internal/models"
)

var obsTime = time.Date(2025, 1, 15, 11, 50, 0, 0, time.UTC)

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func obs(route, source string, cond models.Condition) models.Observation {
	return models.Observation{
		Route:      route,
		Source:     source,
		Condition:  cond,
		ObservedAt: obsTime,
	}
}

func TestCrossReferenceSingleSource(t *testing.T) {
	consensus, conflicts := CrossReference([]models.Observation{
		obs("VT-100", "VTrans RWIS", models.ConditionIce),
	})

	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	if len(consensus) != 1 {
		t.Fatalf("got %d consensus entries, want 1", len(consensus))
	}
	c := consensus[0]
	if c.Confidence != 60 {
		t.Errorf("single-source confidence = %d, want 60", c.Confidence)
	}
	if c.Condition != models.ConditionIce {
		t.Errorf("condition = %s, want ice", c.Condition)
	}
}

func TestCrossReferenceTwoOfThreeMajority(t *testing.T) {
	consensus, conflicts := CrossReference([]models.Observation{
		obs("I-89", "VTrans RWIS", models.ConditionIce),
		obs("I-89", "Vermont 511", models.ConditionIce),
		obs("I-89", "Waze", models.ConditionClear),
	})

	if len(conflicts) != 0 {
		t.Fatalf("2/3 agreement should not conflict: %v", conflicts)
	}
	if len(consensus) != 1 {
		t.Fatalf("got %d consensus entries, want 1", len(consensus))
	}
	c := consensus[0]
	if c.Condition != models.ConditionIce {
		t.Errorf("condition = %s, want ice", c.Condition)
	}
	if c.Confidence != 67 {
		t.Errorf("confidence = %d, want 67", c.Confidence)
	}
	if len(c.Sources) != 2 {
		t.Errorf("sources = %v, want 2 agreeing sources", c.Sources)
	}
	if c.AgreeCount != 2 || c.TotalCount != 3 {
		t.Errorf("counts = %d/%d, want 2/3", c.AgreeCount, c.TotalCount)
	}
}

func TestCrossReferenceConflict(t *testing.T) {
	consensus, conflicts := CrossReference([]models.Observation{
		obs("US-2", "VTrans RWIS", models.ConditionIce),
		obs("US-2", "Waze", models.ConditionClear),
		obs("US-2", "Community", models.ConditionWet),
	})

	if len(consensus) != 0 {
		t.Fatalf("1/3 agreement should not produce consensus: %v", consensus)
	}
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	if len(conflicts[0].Reports) != 3 {
		t.Errorf("conflict lists %d reports, want all 3", len(conflicts[0].Reports))
	}
	for _, r := range conflicts[0].Reports {
		if r.Source == "" || r.Condition == "" || r.ObservedAt.IsZero() {
			t.Errorf("incomplete conflict report: %+v", r)
		}
	}
}

func TestCrossReferenceEvenSplitIsConsensus(t *testing.T) {
	// Exactly 50% agreement meets the threshold; the first-seen condition wins
	// the tie.
	consensus, conflicts := CrossReference([]models.Observation{
		obs("VT-15", "VTrans RWIS", models.ConditionSnowCovered),
		obs("VT-15", "Waze", models.ConditionClear),
	})

	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	if len(consensus) != 1 {
		t.Fatalf("got %d consensus entries, want 1", len(consensus))
	}
	if consensus[0].Condition != models.ConditionSnowCovered {
		t.Errorf("tie-break condition = %s, want snow-covered", consensus[0].Condition)
	}
	if consensus[0].Confidence != 50 {
		t.Errorf("confidence = %d, want 50", consensus[0].Confidence)
	}
}

func TestCrossReferenceCoordinateGrouping(t *testing.T) {
	// Same route label but coordinates rounding to different cells are
	// distinct identities.
	a := obs("VT-100", "VTrans RWIS", models.ConditionIce)
	a.Latitude, a.Longitude = nf(44.261), nf(-72.581)
	b := obs("VT-100", "Vermont 511", models.ConditionClear)
	b.Latitude, b.Longitude = nf(44.421), nf(-72.581)

	consensus, conflicts := CrossReference([]models.Observation{a, b})
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	if len(consensus) != 2 {
		t.Fatalf("got %d consensus entries, want 2 separate identities", len(consensus))
	}
}

func TestCrossReferenceNoLabelUsesRoundedCoords(t *testing.T) {
	// Label-less records falling in the same rounded cell share an identity.
	a := obs("", "VTrans RWIS", models.ConditionWet)
	a.Latitude, a.Longitude = nf(44.2612), nf(-72.5799)
	b := obs("", "NWS", models.ConditionWet)
	b.Latitude, b.Longitude = nf(44.2589), nf(-72.5802)

	consensus, conflicts := CrossReference([]models.Observation{a, b})
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	if len(consensus) != 1 {
		t.Fatalf("got %d consensus entries, want 1 shared identity", len(consensus))
	}
	if consensus[0].TotalCount != 2 {
		t.Errorf("group size = %d, want 2", consensus[0].TotalCount)
	}
}

func TestDeduplicate(t *testing.T) {
	a := obs("I-91", "VTrans RWIS", models.ConditionSnowCovered)
	a.Latitude, a.Longitude = nf(44.100), nf(-72.300)
	dup := obs("I-91", "Vermont 511", models.ConditionSnowCovered)
	dup.Latitude, dup.Longitude = nf(44.105), nf(-72.305)
	far := obs("I-91", "NWS", models.ConditionSnowCovered)
	far.Latitude, far.Longitude = nf(44.500), nf(-72.300)
	other := obs("I-91", "Waze", models.ConditionClear)
	other.Latitude, other.Longitude = nf(44.100), nf(-72.300)

	out := Deduplicate([]models.Observation{a, dup, far, other})

	if len(out) != 3 {
		t.Fatalf("got %d records, want 3", len(out))
	}
	// First occurrence wins.
	if out[0].Source != "VTrans RWIS" {
		t.Errorf("first record source = %s, want VTrans RWIS", out[0].Source)
	}
}

func TestDeduplicateNoCoordinates(t *testing.T) {
	out := Deduplicate([]models.Observation{
		obs("VT-9", "VTrans RWIS", models.ConditionWet),
		obs("VT-9", "Waze", models.ConditionWet),
	})
	if len(out) != 1 {
		t.Errorf("got %d records, want 1", len(out))
	}
}
