package codetables

import (
	"testing"
)

func TestGaugesOrderedByArea(t *testing.T) {
	for _, m := range []Material{Copper, Aluminum} {
		gs := Gauges(m)
		if len(gs) == 0 {
			t.Fatalf("%s: empty table", m)
		}
		for i := 1; i < len(gs); i++ {
			if gs[i].AreaMM2 <= gs[i-1].AreaMM2 {
				t.Errorf("%s: %s not larger than %s", m, gs[i].Label, gs[i-1].Label)
			}
			if gs[i].Ampacity(m, Rating75C) < gs[i-1].Ampacity(m, Rating75C) {
				t.Errorf("%s: ampacity decreases at %s", m, gs[i].Label)
			}
			if gs[i].OhmPerKm(m) >= gs[i-1].OhmPerKm(m) {
				t.Errorf("%s: resistance does not decrease at %s", m, gs[i].Label)
			}
		}
	}
}

func TestAluminumSkipsUnlistedGauge(t *testing.T) {
	for _, g := range Gauges(Aluminum) {
		if g.Label == "14 AWG" {
			t.Fatalf("14 AWG is not listed for aluminum")
		}
	}
}

func TestGaugesReturnsCopy(t *testing.T) {
	gs := Gauges(Copper)
	gs[0].Cu75 = 999
	if Gauges(Copper)[0].Cu75 == 999 {
		t.Fatal("Gauges leaked the package table")
	}
}

func TestTemperatureFactor(t *testing.T) {
	tests := []struct {
		ambient float64
		want    float64
	}{
		{-5, 1.00},
		{30, 1.00},
		{30.5, 0.91},
		{40, 0.91},
		{45, 0.82},
		{50, 0.82},
		{51, 0.71},
	}
	for _, tt := range tests {
		if got := TemperatureFactor(tt.ambient); got != tt.want {
			t.Errorf("TemperatureFactor(%v) = %v, want %v", tt.ambient, got, tt.want)
		}
	}
}

func TestGroupingFactor(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{1, 1.00},
		{3, 1.00},
		{4, 0.80},
		{6, 0.80},
		{7, 0.70},
		{9, 0.70},
		{10, 0.50},
		{40, 0.50},
	}
	for _, tt := range tests {
		if got := GroupingFactor(tt.count); got != tt.want {
			t.Errorf("GroupingFactor(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestNextBreaker(t *testing.T) {
	tests := []struct {
		current float64
		want    float64
		wantOK  bool
	}{
		{0.1, 15, true},
		{15, 15, true},
		{15.01, 20, true},
		{52.3, 60, true},
		{125, 125, true},
		{199.9, 200, true},
		{240, 200, false},
	}
	for _, tt := range tests {
		got, ok := NextBreaker(tt.current)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NextBreaker(%v) = %v,%v want %v,%v", tt.current, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNextBreakerIsSmallestSeriesMember(t *testing.T) {
	series := BreakerSizes()
	for current := 0.5; current <= 200; current += 0.5 {
		got, ok := NextBreaker(current)
		if !ok {
			t.Fatalf("NextBreaker(%v) out of range", current)
		}
		found := false
		for i, s := range series {
			if s == got {
				found = true
				if i > 0 && series[i-1] >= current {
					t.Errorf("NextBreaker(%v) = %v, smaller %v also fits", current, got, series[i-1])
				}
			}
		}
		if !found {
			t.Errorf("NextBreaker(%v) = %v not in series", current, got)
		}
		if got < current {
			t.Errorf("NextBreaker(%v) = %v below current", current, got)
		}
	}
}
