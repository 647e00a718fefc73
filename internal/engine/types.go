package engine

import "github.com/awaistahir/pvsizer/internal/codetables"

// PanelSpec is the datasheet of one PV module at standard test conditions
type PanelSpec struct {
	Model        string  `json:"model"`
	PowerW       float64 `json:"power_w"`
	VmpV         float64 `json:"vmp_v"`
	VocV         float64 `json:"voc_v"`
	ImpA         float64 `json:"imp_a"`
	IscA         float64 `json:"isc_a"`
	CoefVocPctC  float64 `json:"coef_voc_pct_c"`  // normally negative
	CoefPmaxPctC float64 `json:"coef_pmax_pct_c"` // normally negative
}

// InverterSpec is the datasheet of one grid-tied inverter
type InverterSpec struct {
	Model             string  `json:"model"`
	ACPowerKW         float64 `json:"ac_power_kw"`
	VdcMaxV           float64 `json:"vdc_max_v"`
	MPPTMinV          float64 `json:"mppt_min_v"`
	MPPTMaxV          float64 `json:"mppt_max_v"`
	MPPTCount         int     `json:"mppt_count"`
	IMPPTMaxA         float64 `json:"imppt_max_a"`
	MaxACCurrentA     float64 `json:"max_ac_current_a,omitempty"` // 0 when the datasheet omits it
	NominalACVoltageV float64 `json:"nominal_ac_voltage_v"`
	Phases            int     `json:"phases"` // 1 or 3
}

// Constraint names which limit produced a series-count bound
type Constraint string

const (
	ConstraintVdcMax  Constraint = "vdc_max"
	ConstraintMPPTMin Constraint = "mppt_min"
	ConstraintMPPTMax Constraint = "mppt_max"
	ConstraintFloor   Constraint = "floor" // n_min clamped to one module
)

// StringBounds is the feasible modules-in-series window for a panel/inverter pair
type StringBounds struct {
	NMin     int        `json:"n_min"`
	NMax     int        `json:"n_max"`
	NMinBy   Constraint `json:"n_min_by"`
	NMaxBy   Constraint `json:"n_max_by"`
	NMaxVdc  int        `json:"n_max_vdc"`
	NMinMPPT int        `json:"n_min_mppt"`
	NMaxMPPT int        `json:"n_max_mppt"`
	VocColdV float64    `json:"voc_cold_v"` // per module
}

// StringRecommendation is the chosen string topology
type StringRecommendation struct {
	ModulesPerString int     `json:"modules_per_string"`
	StringCount      int     `json:"string_count"`
	StringsPerMPPT   int     `json:"strings_per_mppt"`
	Distribution     []int   `json:"distribution"` // strings on each MPPT input, earlier inputs first
	StringVmpV       float64 `json:"string_vmp_v"`
	StringVocColdV   float64 `json:"string_voc_cold_v"`
	StringImpA       float64 `json:"string_imp_a"`
	MPPTCurrentA     float64 `json:"mppt_current_a"`
	StringPowerW     float64 `json:"string_power_w"`
	DCPowerW         float64 `json:"dc_power_w"`
	DCACRatio        float64 `json:"dc_ac_ratio"`
}

// Segment identifies a circuit run in the installation
type Segment string

const (
	SegmentDCString Segment = "dc_string"
	SegmentDCTrunk  Segment = "dc_trunk"
	SegmentAC       Segment = "ac_output"
)

// ConductorSelection is the sizing result for one circuit segment
type ConductorSelection struct {
	Segment          Segment             `json:"segment"`
	Gauge            string              `json:"gauge"`
	AreaMM2          float64             `json:"area_mm2"`
	Material         codetables.Material `json:"material"`
	Rating           codetables.Rating   `json:"rating"`
	BaseAmpacityA    float64             `json:"base_ampacity_a"`
	DeratedAmpacityA float64             `json:"derated_ampacity_a"`
	TempFactor       float64             `json:"temp_factor"`
	GroupFactor      float64             `json:"group_factor"`
	OhmPerKm         float64             `json:"ohm_per_km"`
	LengthM          float64             `json:"length_m"`
	DesignCurrentA   float64             `json:"design_current_a"`
	ReferenceV       float64             `json:"reference_v"`
	VoltageDropPct   float64             `json:"vd_pct"`
	TargetDropPct    float64             `json:"target_vd_pct"`
	AmpacityOK       bool                `json:"ampacity_ok"`
	DropOK           bool                `json:"vd_ok"`
	Compliant        bool                `json:"compliant"`
	Note             string              `json:"note,omitempty"`
}

// ProtectionSelection is the overcurrent device chosen for a circuit
type ProtectionSelection struct {
	Circuit         Segment `json:"circuit"`
	RatingA         float64 `json:"rating_a"`
	DesignCurrentA  float64 `json:"design_current_a"`
	ParallelStrings int     `json:"parallel_strings,omitempty"`
	FuseRequired    bool    `json:"fuse_required"`
	Adequate        bool    `json:"adequate"`
	Note            string  `json:"note,omitempty"`
}

// WarningCode categorizes warnings by stage.
// W1xx = strings, W2xx = conductors, W3xx = protection.
type WarningCode string

const (
	WarnInverterWindow   WarningCode = "W101" // MPPT window inconsistent with vdc_max
	WarnMPPTCurrent      WarningCode = "W102"
	WarnOutsideMPPT      WarningCode = "W103"
	WarnSplitRoof        WarningCode = "W104"
	WarnAmpacity         WarningCode = "W201"
	WarnVoltageDrop      WarningCode = "W202"
	WarnBreakerRange     WarningCode = "W301"
	WarnConductorVsOCPD  WarningCode = "W302"
	WarnStringFuseNeeded WarningCode = "W303"
)

// Warning is a non-fatal finding that the caller may surface or block on
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}
