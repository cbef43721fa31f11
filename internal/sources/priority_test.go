package sources

import "testing"

func TestReliability(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"official state network", "VTrans RWIS", 98},
		{"state 511 feed", "Vermont 511", 95},
		{"commercial api", "OpenWeatherMap", 75},
		{"community feed", "Waze", 60},
		{"unknown source", "SomeRandomFeed", DefaultReliability},
		{"empty source", "", DefaultReliability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reliability(tt.source); got != tt.want {
				t.Errorf("Reliability(%q) = %d, want %d", tt.source, got, tt.want)
			}
		})
	}
}

func TestIsOfficial(t *testing.T) {
	if !IsOfficial("VTrans RWIS") {
		t.Error("VTrans RWIS should be official")
	}
	if IsOfficial("OpenWeatherMap") {
		t.Error("OpenWeatherMap should not be official")
	}
	if IsOfficial("nope") {
		t.Error("unknown source should not be official")
	}
}

func TestProviderPriorityOrder(t *testing.T) {
	if len(ProviderPriority) == 0 {
		t.Fatal("provider priority list is empty")
	}
	if ProviderPriority[0] != "NWS" {
		t.Errorf("highest priority provider = %q, want NWS", ProviderPriority[0])
	}
	// Every provider in the chain must have a reliability entry so validation
	// confidence is meaningful.
	for _, p := range ProviderPriority {
		if !Known(p) {
			t.Errorf("provider %q missing from reliability table", p)
		}
	}
}
