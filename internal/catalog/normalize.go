package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/awaistahir/pvsizer/internal/engine"
)

// NormalizePanel converts a catalog record into the canonical panel spec. Every
// electrical value needed for string sizing must be present in the record.
func NormalizePanel(r PanelRecord) (engine.PanelSpec, error) {
	var missing []string
	need := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)
			return 0
		}
		return *v
	}

	power := r.PowerW
	if power == nil {
		power = r.Pmax
	}

	spec := engine.PanelSpec{
		Model:       displayName(r.Manufacturer, r.Model, r.ID),
		PowerW:      need("power_w", power),
		VmpV:        need("vmp_v", r.VmpV),
		VocV:        need("voc_v", r.VocV),
		ImpA:        need("imp_a", r.ImpA),
		IscA:        need("isc_a", r.IscA),
		CoefVocPctC: need("coef_voc_pct_c", r.CoefVocPctC),
	}
	if r.CoefPmaxPctC != nil {
		spec.CoefPmaxPctC = *r.CoefPmaxPctC
	}

	if len(missing) > 0 {
		return engine.PanelSpec{}, fmt.Errorf("panel %q: %w: %s", r.ID, ErrMissingField, strings.Join(missing, ", "))
	}
	if errs := spec.Validate(); len(errs) > 0 {
		return engine.PanelSpec{}, fmt.Errorf("panel %q: %w", r.ID, errors.New(strings.Join(errs, "; ")))
	}
	return spec, nil
}

// NormalizeInverter converts a catalog record into the canonical inverter spec.
// The per-MPPT current limit is required; it is never defaulted.
func NormalizeInverter(r InverterRecord) (engine.InverterSpec, error) {
	var missing []string
	need := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)
			return 0
		}
		return *v
	}
	needInt := func(name string, v *int) int {
		if v == nil {
			missing = append(missing, name)
			return 0
		}
		return *v
	}

	var acKW float64
	switch {
	case r.ACPowerKW != nil:
		acKW = *r.ACPowerKW
	case r.ACPowerW != nil:
		acKW = *r.ACPowerW / 1000
	default:
		missing = append(missing, "ac_power_kw")
	}

	spec := engine.InverterSpec{
		Model:             displayName(r.Manufacturer, r.Model, r.ID),
		ACPowerKW:         acKW,
		VdcMaxV:           need("vdc_max_v", r.VdcMaxV),
		MPPTMinV:          need("mppt_min_v", r.MPPTMinV),
		MPPTMaxV:          need("mppt_max_v", r.MPPTMaxV),
		MPPTCount:         needInt("mppt_count", r.MPPTCount),
		IMPPTMaxA:         need("imppt_max_a", r.IMPPTMaxA),
		NominalACVoltageV: need("nominal_ac_voltage_v", r.NominalACVoltageV),
		Phases:            needInt("phases", r.Phases),
	}
	if r.MaxACCurrentA != nil {
		spec.MaxACCurrentA = *r.MaxACCurrentA
	}

	if len(missing) > 0 {
		return engine.InverterSpec{}, fmt.Errorf("inverter %q: %w: %s", r.ID, ErrMissingField, strings.Join(missing, ", "))
	}
	// Window inconsistencies are soft and surface later as resolver warnings.
	if errs, _ := spec.Validate(); len(errs) > 0 {
		return engine.InverterSpec{}, fmt.Errorf("inverter %q: %w", r.ID, errors.New(strings.Join(errs, "; ")))
	}
	return spec, nil
}

func displayName(manufacturer, model, id string) string {
	switch {
	case manufacturer != "" && model != "":
		return manufacturer + " " + model
	case model != "":
		return model
	default:
		return id
	}
}
