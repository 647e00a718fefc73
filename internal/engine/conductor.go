package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/awaistahir/pvsizer/internal/codetables"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownMaterial  = errors.New("unknown conductor material")
)

// ConductorInput describes one circuit segment to size
type ConductorInput struct {
	Segment         Segment             `json:"segment"`
	DesignCurrentA  float64             `json:"design_current_a"`
	ReferenceV      float64             `json:"reference_v"`
	LengthM         float64             `json:"length_m"` // one way
	TargetDropPct   float64             `json:"target_vd_pct"`
	Material        codetables.Material `json:"material"`
	Rating          codetables.Rating   `json:"rating"`
	CurrentCarrying int                 `json:"current_carrying"` // conductors sharing the raceway
	AmbientC        float64             `json:"ambient_c"`
	Derate          bool                `json:"derate"`
	Phases          int                 `json:"phases"` // 3 for three-phase AC, otherwise two-wire
}

// ReasonCode identifies why a conductor could not be sized, independent of the
// wording of Reason.
type ReasonCode string

const (
	ReasonInsufficientData ReasonCode = "insufficient_data"
	ReasonUnknownMaterial  ReasonCode = "unknown_material"
)

// ConductorResult is a selection, or a reason when the input cannot be sized
type ConductorResult struct {
	OK        bool               `json:"ok"`
	Code      ReasonCode         `json:"code,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Err       error              `json:"-"`
	Selection ConductorSelection `json:"selection"`
}

// VoltageDropPct is the round-trip resistive drop as a percentage of refV.
// Two-wire circuits count both conductors; three-phase circuits use √3.
func VoltageDropPct(currentA, ohmPerKm, lengthM, refV float64, phases int) float64 {
	if refV <= 0 {
		return 0
	}
	k := 2.0
	if phases == 3 {
		k = math.Sqrt(3)
	}
	return 100 * currentA * (ohmPerKm * lengthM / 1000 * k) / refV
}

// SizeConductor selects the smallest gauge meeting derated ampacity, then walks up the
// table until the voltage drop target is met. Out-of-range results, a target of
// zero included, are reported as non-compliant, never as failures.
func SizeConductor(in ConductorInput) ConductorResult {
	if in.DesignCurrentA <= 0 || in.LengthM <= 0 || in.ReferenceV <= 0 {
		err := fmt.Errorf("%w: current=%gA length=%gm voltage=%gV",
			ErrInsufficientData, in.DesignCurrentA, in.LengthM, in.ReferenceV)
		return ConductorResult{Code: ReasonInsufficientData, Reason: err.Error(), Err: err,
			Selection: ConductorSelection{Segment: in.Segment}}
	}

	if in.Material == "" {
		in.Material = codetables.Copper
	}
	if in.Rating == 0 {
		in.Rating = codetables.Rating75C
	}
	if !codetables.ValidMaterial(in.Material) {
		err := fmt.Errorf("%w: %q", ErrUnknownMaterial, in.Material)
		return ConductorResult{Code: ReasonUnknownMaterial, Reason: err.Error(), Err: err,
			Selection: ConductorSelection{Segment: in.Segment}}
	}

	tempF, groupF := 1.0, 1.0
	if in.Derate {
		tempF = codetables.TemperatureFactor(in.AmbientC)
		groupF = codetables.GroupingFactor(in.CurrentCarrying)
	}

	table := codetables.Gauges(in.Material)
	derated := func(g codetables.Gauge) float64 {
		return g.Ampacity(in.Material, in.Rating) * tempF * groupF
	}
	drop := func(g codetables.Gauge) float64 {
		return VoltageDropPct(in.DesignCurrentA, g.OhmPerKm(in.Material), in.LengthM, in.ReferenceV, in.Phases)
	}

	// Pass 1: ampacity.
	start := -1
	for i, g := range table {
		if derated(g) >= in.DesignCurrentA {
			start = i
			break
		}
	}
	var notes []string
	if start < 0 {
		start = len(table) - 1
		notes = append(notes, fmt.Sprintf("no gauge carries %.2f A after derating; largest gauge returned", in.DesignCurrentA))
	}

	// Pass 2: voltage drop, upward only.
	pick := -1
	for i := start; i < len(table); i++ {
		if drop(table[i]) <= in.TargetDropPct {
			pick = i
			break
		}
	}
	if pick < 0 {
		pick = len(table) - 1
		notes = append(notes, fmt.Sprintf("no gauge meets the %.2f%% voltage drop target; largest gauge returned", in.TargetDropPct))
	}

	g := table[pick]
	sel := ConductorSelection{
		Segment:          in.Segment,
		Gauge:            g.Label,
		AreaMM2:          g.AreaMM2,
		Material:         in.Material,
		Rating:           in.Rating,
		BaseAmpacityA:    g.Ampacity(in.Material, in.Rating),
		DeratedAmpacityA: round(derated(g), 3),
		TempFactor:       tempF,
		GroupFactor:      groupF,
		OhmPerKm:         g.OhmPerKm(in.Material),
		LengthM:          in.LengthM,
		DesignCurrentA:   in.DesignCurrentA,
		ReferenceV:       in.ReferenceV,
		VoltageDropPct:   drop(g),
		TargetDropPct:    in.TargetDropPct,
	}
	sel.AmpacityOK = derated(g) >= in.DesignCurrentA
	sel.DropOK = sel.VoltageDropPct <= in.TargetDropPct
	sel.Compliant = sel.AmpacityOK && sel.DropOK
	if len(notes) > 0 {
		sel.Note = notes[0]
		for _, n := range notes[1:] {
			sel.Note += "; " + n
		}
	}

	return ConductorResult{OK: true, Selection: sel}
}

// conductorWarnings lists the failed checks of a selection
func conductorWarnings(sel ConductorSelection) []Warning {
	var warns []Warning
	if !sel.AmpacityOK {
		warns = append(warns, Warning{Code: WarnAmpacity,
			Message: fmt.Sprintf("%s: %s derated ampacity %.1f A below design current %.2f A",
				sel.Segment, sel.Gauge, sel.DeratedAmpacityA, sel.DesignCurrentA)})
	}
	if !sel.DropOK {
		warns = append(warns, Warning{Code: WarnVoltageDrop,
			Message: fmt.Sprintf("%s: %s voltage drop %.2f%% above target %.2f%%",
				sel.Segment, sel.Gauge, sel.VoltageDropPct, sel.TargetDropPct)})
	}
	return warns
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
