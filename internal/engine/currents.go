package engine

import "math"

// DefaultSafetyFactor is the continuous-duty multiplier applied to design currents.
const DefaultSafetyFactor = 1.25

// ACCurrentSource records where the AC current came from
type ACCurrentSource string

const (
	ACFromDatasheet  ACCurrentSource = "datasheet"
	ACFromPowerRated ACCurrentSource = "estimated"
)

// DesignCurrents are the continuous-duty currents used to size conductors and devices
type DesignCurrents struct {
	SafetyFactor float64         `json:"safety_factor"`
	StringA      float64         `json:"string_a"` // one string, Isc based
	TrunkA       float64         `json:"trunk_a"`  // strings combined on one MPPT input
	ACA          float64         `json:"ac_a"`
	ACSource     ACCurrentSource `json:"ac_source"`
}

// DeriveCurrents turns the string topology and inverter nameplate into design currents.
// Isc is used on the DC side as the worst sustained condition. Missing inputs yield zero.
func DeriveCurrents(rec StringRecommendation, p PanelSpec, inv InverterSpec, safetyFactor float64) DesignCurrents {
	if safetyFactor <= 0 {
		safetyFactor = DefaultSafetyFactor
	}

	dc := DesignCurrents{
		SafetyFactor: safetyFactor,
		StringA:      p.IscA * safetyFactor,
		TrunkA:       p.IscA * float64(rec.StringsPerMPPT) * safetyFactor,
	}

	if inv.MaxACCurrentA > 0 {
		dc.ACA = inv.MaxACCurrentA * safetyFactor
		dc.ACSource = ACFromDatasheet
		return dc
	}

	dc.ACSource = ACFromPowerRated
	if inv.NominalACVoltageV <= 0 {
		return dc
	}
	watts := inv.ACPowerKW * 1000
	if inv.Phases == 3 {
		dc.ACA = watts / (math.Sqrt(3) * inv.NominalACVoltageV) * safetyFactor
	} else {
		dc.ACA = watts / inv.NominalACVoltageV * safetyFactor
	}
	return dc
}
