package engine

import "fmt"

// Validate returns the hard datasheet errors of a panel. Any error makes the panel unusable.
func (p PanelSpec) Validate() []string {
	var errs []string
	check := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Sprintf("panel %q: %s must be > 0 (got %g)", p.Model, name, v))
		}
	}
	check("power_w", p.PowerW)
	check("vmp_v", p.VmpV)
	check("voc_v", p.VocV)
	check("imp_a", p.ImpA)
	check("isc_a", p.IscA)
	if p.VocV > 0 && p.VmpV > p.VocV {
		errs = append(errs, fmt.Sprintf("panel %q: vmp_v %g exceeds voc_v %g", p.Model, p.VmpV, p.VocV))
	}
	return errs
}

// Validate returns the hard datasheet errors of an inverter and the soft
// inconsistencies that only warrant a warning.
func (inv InverterSpec) Validate() ([]string, []Warning) {
	var errs []string
	var warns []Warning

	if inv.VdcMaxV <= 0 {
		errs = append(errs, fmt.Sprintf("inverter %q: vdc_max_v must be > 0 (got %g)", inv.Model, inv.VdcMaxV))
	}
	if inv.MPPTMinV <= 0 || inv.MPPTMaxV <= 0 {
		errs = append(errs, fmt.Sprintf("inverter %q: mppt window [%g, %g] must be positive", inv.Model, inv.MPPTMinV, inv.MPPTMaxV))
	}
	if inv.MPPTCount < 1 || inv.MPPTCount > MaxMPPTInputs {
		errs = append(errs, fmt.Sprintf("inverter %q: mppt_count must be in [1, %d] (got %d)", inv.Model, MaxMPPTInputs, inv.MPPTCount))
	}
	if inv.IMPPTMaxA <= 0 {
		errs = append(errs, fmt.Sprintf("inverter %q: imppt_max_a must come from the datasheet and be > 0 (got %g)", inv.Model, inv.IMPPTMaxA))
	}
	if inv.Phases != 0 && inv.Phases != 1 && inv.Phases != 3 {
		errs = append(errs, fmt.Sprintf("inverter %q: phases must be 1 or 3 (got %d)", inv.Model, inv.Phases))
	}

	// Datasheets are sometimes imprecise about the window edges.
	if inv.MPPTMinV > 0 && inv.MPPTMaxV > 0 && inv.MPPTMinV >= inv.MPPTMaxV {
		warns = append(warns, Warning{Code: WarnInverterWindow,
			Message: fmt.Sprintf("inverter %q: mppt_min_v %g is not below mppt_max_v %g", inv.Model, inv.MPPTMinV, inv.MPPTMaxV)})
	}
	if inv.MPPTMaxV > 0 && inv.VdcMaxV > 0 && inv.MPPTMaxV > inv.VdcMaxV {
		warns = append(warns, Warning{Code: WarnInverterWindow,
			Message: fmt.Sprintf("inverter %q: mppt_max_v %g exceeds vdc_max_v %g", inv.Model, inv.MPPTMaxV, inv.VdcMaxV)})
	}

	return errs, warns
}
