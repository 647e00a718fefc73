package engine

import (
	"fmt"

	"github.com/awaistahir/pvsizer/internal/codetables"
)

// Run describes the physical run of one circuit segment
type Run struct {
	LengthM         float64             `json:"length_m"`
	TargetDropPct   float64             `json:"target_vd_pct"`
	Material        codetables.Material `json:"material,omitempty"`
	Rating          codetables.Rating   `json:"rating,omitempty"`
	CurrentCarrying int                 `json:"current_carrying,omitempty"` // 0 = project default
}

// DesignInput is the full set of project parameters for one sizing run
type DesignInput struct {
	Panel    PanelSpec    `json:"panel"`
	Inverter InverterSpec `json:"inverter"`

	TMinC          float64 `json:"t_min_c"`
	AmbientC       float64 `json:"ambient_c"`
	TargetDCPowerW float64 `json:"target_dc_power_w,omitempty"`
	DCACRatio      float64 `json:"dc_ac_ratio,omitempty"`
	SplitRoof      bool    `json:"split_roof"`

	SafetyFactor    float64 `json:"safety_factor"`
	Derate          bool    `json:"derate"`
	CurrentCarrying int     `json:"current_carrying"`

	DCString Run `json:"dc_string"`
	DCTrunk  Run `json:"dc_trunk"` // zero length: strings land directly on the inverter
	AC       Run `json:"ac_output"`
}

// Checks are the cross-stage compliance flags
type Checks struct {
	VoltageWindowOK bool `json:"voltage_window_ok"`
	MPPTCurrentOK   bool `json:"mppt_current_ok"`
	CurrentOK       bool `json:"current_ok"`
	StringsOK       bool `json:"strings_ok"`
}

// Package is the assembled result of a sizing run
type Package struct {
	OK       bool   `json:"ok"`
	AllGreen bool   `json:"all_green"`
	Checks   Checks `json:"checks"`

	Bounds       StringBounds          `json:"bounds"`
	Strings      *StringRecommendation `json:"strings,omitempty"`
	Currents     *DesignCurrents       `json:"currents,omitempty"`
	Conductors   []ConductorSelection  `json:"conductors,omitempty"`
	DCProtection *ProtectionSelection  `json:"dc_protection,omitempty"`
	ACProtection *ProtectionSelection  `json:"ac_protection,omitempty"`

	Warnings []Warning `json:"warnings"`
	Errors   []string  `json:"errors"`
}

// Conductor returns the selection for a segment, if it was sized
func (p Package) Conductor(s Segment) (ConductorSelection, bool) {
	for _, c := range p.Conductors {
		if c.Segment == s {
			return c, true
		}
	}
	return ConductorSelection{}, false
}

// Design runs strings → currents → conductors → protection → cross-checks and
// assembles one package. An infeasible string topology stops the chain.
func Design(in DesignInput) Package {
	pkg := Package{Warnings: []Warning{}, Errors: []string{}}

	sr := ResolveStrings(StringInput{
		Panel:          in.Panel,
		Inverter:       in.Inverter,
		TMinC:          in.TMinC,
		TargetDCPowerW: in.TargetDCPowerW,
		DCACRatio:      in.DCACRatio,
		SplitRoof:      in.SplitRoof,
	})
	pkg.Bounds = sr.Bounds
	pkg.Strings = sr.Recommendation
	pkg.Warnings = appendWarnings(pkg.Warnings, sr.Warnings...)
	pkg.Errors = append(pkg.Errors, sr.Errors...)
	pkg.Checks = Checks{
		VoltageWindowOK: sr.VoltageOK,
		MPPTCurrentOK:   sr.MPPTCurrentOK,
		StringsOK:       sr.OK,
	}
	if !sr.OK {
		return pkg
	}
	rec := *sr.Recommendation

	cur := DeriveCurrents(rec, in.Panel, in.Inverter, in.SafetyFactor)
	pkg.Currents = &cur

	segments := []ConductorInput{
		in.conductorInput(SegmentDCString, in.DCString, cur.StringA, rec.StringVmpV, 0),
	}
	if in.DCTrunk.LengthM != 0 {
		segments = append(segments, in.conductorInput(SegmentDCTrunk, in.DCTrunk, cur.TrunkA, rec.StringVmpV, 0))
	}
	segments = append(segments, in.conductorInput(SegmentAC, in.AC, cur.ACA, in.Inverter.NominalACVoltageV, in.Inverter.Phases))

	currentOK := true
	sized := make(map[Segment]ConductorSelection, len(segments))
	for _, ci := range segments {
		cr := SizeConductor(ci)
		if !cr.OK {
			pkg.Errors = append(pkg.Errors, fmt.Sprintf("%s: %s", ci.Segment, cr.Reason))
			continue
		}
		pkg.Conductors = append(pkg.Conductors, cr.Selection)
		sized[ci.Segment] = cr.Selection
		pkg.Warnings = appendWarnings(pkg.Warnings, conductorWarnings(cr.Selection)...)
		if !cr.Selection.Compliant {
			currentOK = false
		}
	}
	if len(pkg.Errors) > 0 {
		pkg.Checks.CurrentOK = false
		return pkg
	}

	dcp := SizeStringProtection(cur.StringA, rec.StringsPerMPPT)
	acp := SizeBreaker(cur.ACA, SegmentAC)
	pkg.DCProtection = &dcp
	pkg.ACProtection = &acp
	pkg.Warnings = appendWarnings(pkg.Warnings, protectionWarnings(dcp)...)
	pkg.Warnings = appendWarnings(pkg.Warnings, protectionWarnings(acp)...)
	if !dcp.Adequate || !acp.Adequate {
		currentOK = false
	}

	if ac := sized[SegmentAC]; ac.DeratedAmpacityA < acp.RatingA {
		currentOK = false
		pkg.Warnings = appendWarnings(pkg.Warnings, Warning{Code: WarnConductorVsOCPD,
			Message: fmt.Sprintf("%s: %s derated ampacity %.1f A below breaker rating %.0f A", SegmentAC, ac.Gauge, ac.DeratedAmpacityA, acp.RatingA)})
	}
	if dc := sized[SegmentDCString]; dcp.FuseRequired && dc.DeratedAmpacityA < dcp.RatingA {
		currentOK = false
		pkg.Warnings = appendWarnings(pkg.Warnings, Warning{Code: WarnConductorVsOCPD,
			Message: fmt.Sprintf("%s: %s derated ampacity %.1f A below string fuse rating %.0f A", SegmentDCString, dc.Gauge, dc.DeratedAmpacityA, dcp.RatingA)})
	}

	pkg.Checks.CurrentOK = currentOK
	pkg.OK = true
	pkg.AllGreen = pkg.Checks.VoltageWindowOK && pkg.Checks.MPPTCurrentOK && pkg.Checks.CurrentOK && pkg.Checks.StringsOK
	return pkg
}

func (in DesignInput) conductorInput(seg Segment, run Run, current, refV float64, phases int) ConductorInput {
	ci := ConductorInput{
		Segment:         seg,
		DesignCurrentA:  current,
		ReferenceV:      refV,
		LengthM:         run.LengthM,
		TargetDropPct:   run.TargetDropPct,
		Material:        run.Material,
		Rating:          run.Rating,
		CurrentCarrying: run.CurrentCarrying,
		AmbientC:        in.AmbientC,
		Derate:          in.Derate,
		Phases:          phases,
	}
	if ci.CurrentCarrying == 0 {
		ci.CurrentCarrying = in.CurrentCarrying
	}
	// PV wire on the DC side unless told otherwise.
	if seg != SegmentAC && ci.Rating == 0 {
		ci.Rating = codetables.Rating90C
	}
	return ci
}

// appendWarnings concatenates warnings, dropping exact duplicates.
func appendWarnings(dst []Warning, ws ...Warning) []Warning {
	for _, w := range ws {
		dup := false
		for _, have := range dst {
			if have == w {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, w)
		}
	}
	return dst
}
