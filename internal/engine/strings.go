package engine

import (
	"fmt"
	"math"
)

// stcTempC is the cell temperature at standard test conditions.
const stcTempC = 25.0

// eps absorbs float noise in floor/ceil of exact ratios such as 500/50.
const eps = 1e-9

// MaxStringCount caps the strings one inverter can be asked to take. Larger
// targets are rejected rather than converted.
const MaxStringCount = 10000

// MaxMPPTInputs caps the tracker count accepted from a datasheet.
const MaxMPPTInputs = 64

// StringInput holds everything the resolver needs for one panel/inverter pair
type StringInput struct {
	Panel    PanelSpec
	Inverter InverterSpec
	TMinC    float64 // minimum site design temperature

	// Target DC power in watts. When zero, DCACRatio × inverter AC power is used.
	TargetDCPowerW float64
	DCACRatio      float64

	SplitRoof bool // array split over two roof faces
}

// StringResult is either a feasible recommendation (OK) or a list of reasons
type StringResult struct {
	OK             bool                  `json:"ok"`
	Bounds         StringBounds          `json:"bounds"`
	Recommendation *StringRecommendation `json:"recommendation,omitempty"`
	VoltageOK      bool                  `json:"voltage_ok"`
	MPPTCurrentOK  bool                  `json:"mppt_current_ok"`
	Warnings       []Warning             `json:"warnings"`
	Errors         []string              `json:"errors"`
}

// VocCold returns the module open-circuit voltage at the given cell temperature
func VocCold(p PanelSpec, tMinC float64) float64 {
	return p.VocV * (1 + p.CoefVocPctC/100*(tMinC-stcTempC))
}

// ComputeBounds derives the modules-in-series window. It does not validate the specs.
func ComputeBounds(p PanelSpec, inv InverterSpec, tMinC float64) StringBounds {
	vocCold := VocCold(p, tMinC)

	b := StringBounds{VocColdV: vocCold}
	if vocCold > 0 {
		b.NMaxVdc = int(math.Floor(inv.VdcMaxV/vocCold + eps))
	}
	if p.VmpV > 0 {
		b.NMinMPPT = int(math.Ceil(inv.MPPTMinV/p.VmpV - eps))
		b.NMaxMPPT = int(math.Floor(inv.MPPTMaxV/p.VmpV + eps))
	}

	b.NMax, b.NMaxBy = b.NMaxVdc, ConstraintVdcMax
	if b.NMaxMPPT < b.NMaxVdc {
		b.NMax, b.NMaxBy = b.NMaxMPPT, ConstraintMPPTMax
	}
	if b.NMax < 0 {
		b.NMax = 0
	}

	b.NMin, b.NMinBy = b.NMinMPPT, ConstraintMPPTMin
	if b.NMin < 1 {
		b.NMin, b.NMinBy = 1, ConstraintFloor
	}
	return b
}

// SelectSeriesCount picks the n in [nMin, nMax] whose string Vmp is closest to the
// MPPT window midpoint. Ties go to the smaller n.
func SelectSeriesCount(b StringBounds, p PanelSpec, inv InverterSpec) int {
	mid := (inv.MPPTMinV + inv.MPPTMaxV) / 2
	best := b.NMin
	bestDist := math.Abs(float64(best)*p.VmpV - mid)
	for n := b.NMin + 1; n <= b.NMax; n++ {
		d := math.Abs(float64(n)*p.VmpV - mid)
		if d < bestDist-eps {
			best, bestDist = n, d
		}
	}
	return best
}

// Distribute spreads strings over MPPT inputs with ceil(total/inputs) per input,
// earlier inputs first. The last inputs may carry fewer strings.
func Distribute(total, inputs int) []int {
	if inputs < 1 || inputs > MaxMPPTInputs || total < 0 {
		return nil
	}
	per := int(math.Ceil(float64(total) / float64(inputs)))
	out := make([]int, inputs)
	left := total
	for i := range out {
		n := per
		if n > left {
			n = left
		}
		out[i] = n
		left -= n
	}
	return out
}

// ResolveStrings computes the series window, picks the series count and derives the
// string count and its distribution over the inverter MPPT inputs.
func ResolveStrings(in StringInput) StringResult {
	res := StringResult{Warnings: []Warning{}, Errors: []string{}}
	p, inv := in.Panel, in.Inverter

	res.Errors = append(res.Errors, p.Validate()...)
	invErrs, invWarns := inv.Validate()
	res.Errors = append(res.Errors, invErrs...)
	res.Warnings = append(res.Warnings, invWarns...)

	target := in.TargetDCPowerW
	if target <= 0 {
		target = in.DCACRatio * inv.ACPowerKW * 1000
	}
	if target <= 0 {
		res.Errors = append(res.Errors, "target dc power or dc/ac ratio with inverter ac power must be > 0")
	}
	if len(res.Errors) > 0 {
		return res
	}

	b := ComputeBounds(p, inv, in.TMinC)
	res.Bounds = b
	if b.NMax < b.NMin {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"no feasible series count: n_min=%d (%s) exceeds n_max=%d (%s); n_max_vdc=%d, n_min_mppt=%d, n_max_mppt=%d, voc_cold=%.2f V",
			b.NMin, b.NMinBy, b.NMax, b.NMaxBy, b.NMaxVdc, b.NMinMPPT, b.NMaxMPPT, b.VocColdV))
		return res
	}

	n := SelectSeriesCount(b, p, inv)
	stringPower := float64(n) * p.PowerW

	need := target / stringPower
	if math.IsNaN(need) || need > MaxStringCount {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"target dc power %g W needs more than %d strings of %.0f W", target, MaxStringCount, stringPower))
		return res
	}
	count := int(math.Ceil(need - eps))
	if count < 1 {
		count = 1
	}
	if in.SplitRoof {
		if count%2 != 0 {
			count++
		}
		if inv.MPPTCount < 2 {
			res.Warnings = append(res.Warnings, Warning{Code: WarnSplitRoof,
				Message: fmt.Sprintf("split roof on inverter %q with %d MPPT input: two orientations share one tracker", inv.Model, inv.MPPTCount)})
		}
	}

	dist := Distribute(count, inv.MPPTCount)
	perMPPT := dist[0]

	rec := &StringRecommendation{
		ModulesPerString: n,
		StringCount:      count,
		StringsPerMPPT:   perMPPT,
		Distribution:     dist,
		StringVmpV:       float64(n) * p.VmpV,
		StringVocColdV:   float64(n) * b.VocColdV,
		StringImpA:       p.ImpA,
		MPPTCurrentA:     p.ImpA * float64(perMPPT),
		StringPowerW:     stringPower,
		DCPowerW:         stringPower * float64(count),
	}
	if inv.ACPowerKW > 0 {
		rec.DCACRatio = rec.DCPowerW / (inv.ACPowerKW * 1000)
	}
	res.Recommendation = rec

	res.VoltageOK = true
	if rec.StringVocColdV > inv.VdcMaxV+eps {
		res.VoltageOK = false
		res.Errors = append(res.Errors, fmt.Sprintf("cold string voc %.1f V exceeds inverter max dc voltage %.1f V", rec.StringVocColdV, inv.VdcMaxV))
		return res
	}
	if rec.StringVmpV < inv.MPPTMinV-eps || rec.StringVmpV > inv.MPPTMaxV+eps {
		res.VoltageOK = false
		res.Warnings = append(res.Warnings, Warning{Code: WarnOutsideMPPT,
			Message: fmt.Sprintf("string vmp %.1f V outside mppt window [%.0f, %.0f] V", rec.StringVmpV, inv.MPPTMinV, inv.MPPTMaxV)})
	}

	res.MPPTCurrentOK = true
	if rec.MPPTCurrentA > inv.IMPPTMaxA+eps {
		res.MPPTCurrentOK = false
		res.Warnings = append(res.Warnings, Warning{Code: WarnMPPTCurrent,
			Message: fmt.Sprintf("mppt current %.2f A (%d strings x %.2f A) exceeds inverter limit %.2f A; reduce strings per mppt",
				rec.MPPTCurrentA, perMPPT, p.ImpA, inv.IMPPTMaxA)})
	}

	res.OK = true
	return res
}
