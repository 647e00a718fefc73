// Package catalog loads equipment datasheets from YAML and normalizes them into the
// canonical engine specs. Records may use alternate field names; required
// datasheet values are never synthesized.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/awaistahir/pvsizer/internal/engine"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound     = errors.New("equipment not found")
	ErrMissingField = errors.New("missing datasheet field")
	ErrDuplicateID  = errors.New("duplicate equipment id")
)

//go:embed defaults.yaml
var defaultCatalog []byte

// PanelRecord is a panel as written in a catalog file
type PanelRecord struct {
	ID           string   `yaml:"id" json:"id"`
	Manufacturer string   `yaml:"manufacturer" json:"manufacturer"`
	Model        string   `yaml:"model" json:"model"`
	PowerW       *float64 `yaml:"power_w" json:"power_w,omitempty"`
	Pmax         *float64 `yaml:"pmax" json:"pmax,omitempty"` // alias of power_w
	VmpV         *float64 `yaml:"vmp_v" json:"vmp_v,omitempty"`
	VocV         *float64 `yaml:"voc_v" json:"voc_v,omitempty"`
	ImpA         *float64 `yaml:"imp_a" json:"imp_a,omitempty"`
	IscA         *float64 `yaml:"isc_a" json:"isc_a,omitempty"`
	CoefVocPctC  *float64 `yaml:"coef_voc_pct_c" json:"coef_voc_pct_c,omitempty"`
	CoefPmaxPctC *float64 `yaml:"coef_pmax_pct_c" json:"coef_pmax_pct_c,omitempty"`
}

// InverterRecord is an inverter as written in a catalog file
type InverterRecord struct {
	ID                string   `yaml:"id" json:"id"`
	Manufacturer      string   `yaml:"manufacturer" json:"manufacturer"`
	Model             string   `yaml:"model" json:"model"`
	ACPowerKW         *float64 `yaml:"ac_power_kw" json:"ac_power_kw,omitempty"`
	ACPowerW          *float64 `yaml:"ac_power_w" json:"ac_power_w,omitempty"` // alias, converted to kW
	VdcMaxV           *float64 `yaml:"vdc_max_v" json:"vdc_max_v,omitempty"`
	MPPTMinV          *float64 `yaml:"mppt_min_v" json:"mppt_min_v,omitempty"`
	MPPTMaxV          *float64 `yaml:"mppt_max_v" json:"mppt_max_v,omitempty"`
	MPPTCount         *int     `yaml:"mppt_count" json:"mppt_count,omitempty"`
	IMPPTMaxA         *float64 `yaml:"imppt_max_a" json:"imppt_max_a,omitempty"`
	MaxACCurrentA     *float64 `yaml:"max_ac_current_a" json:"max_ac_current_a,omitempty"`
	NominalACVoltageV *float64 `yaml:"nominal_ac_voltage_v" json:"nominal_ac_voltage_v,omitempty"`
	Phases            *int     `yaml:"phases" json:"phases,omitempty"`
}

type file struct {
	Panels    []PanelRecord    `yaml:"panels"`
	Inverters []InverterRecord `yaml:"inverters"`
}

// Catalog is a validated set of panels and inverters keyed by id
type Catalog struct {
	panels    map[string]engine.PanelSpec
	inverters map[string]engine.InverterSpec
}

// New returns an empty catalog
func New() *Catalog {
	return &Catalog{
		panels:    make(map[string]engine.PanelSpec),
		inverters: make(map[string]engine.InverterSpec),
	}
}

// Default returns the catalog embedded in the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog file from disk
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and normalizes a YAML catalog. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	c := New()
	for _, r := range f.Panels {
		spec, err := NormalizePanel(r)
		if err != nil {
			return nil, err
		}
		if err := c.AddPanel(r.ID, spec); err != nil {
			return nil, err
		}
	}
	for _, r := range f.Inverters {
		spec, err := NormalizeInverter(r)
		if err != nil {
			return nil, err
		}
		if err := c.AddInverter(r.ID, spec); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddPanel registers a panel under id
func (c *Catalog) AddPanel(id string, spec engine.PanelSpec) error {
	if id == "" {
		return fmt.Errorf("panel %q: %w: id", spec.Model, ErrMissingField)
	}
	if _, ok := c.panels[id]; ok {
		return fmt.Errorf("panel %q: %w", id, ErrDuplicateID)
	}
	c.panels[id] = spec
	return nil
}

// AddInverter registers an inverter under id
func (c *Catalog) AddInverter(id string, spec engine.InverterSpec) error {
	if id == "" {
		return fmt.Errorf("inverter %q: %w: id", spec.Model, ErrMissingField)
	}
	if _, ok := c.inverters[id]; ok {
		return fmt.Errorf("inverter %q: %w", id, ErrDuplicateID)
	}
	c.inverters[id] = spec
	return nil
}

// Panel looks up a panel by id
func (c *Catalog) Panel(id string) (engine.PanelSpec, error) {
	p, ok := c.panels[id]
	if !ok {
		return engine.PanelSpec{}, fmt.Errorf("panel %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// Inverter looks up an inverter by id
func (c *Catalog) Inverter(id string) (engine.InverterSpec, error) {
	inv, ok := c.inverters[id]
	if !ok {
		return engine.InverterSpec{}, fmt.Errorf("inverter %q: %w", id, ErrNotFound)
	}
	return inv, nil
}

// PanelIDs returns the panel ids in sorted order
func (c *Catalog) PanelIDs() []string {
	return sortedKeys(c.panels)
}

// InverterIDs returns the inverter ids in sorted order
func (c *Catalog) InverterIDs() []string {
	return sortedKeys(c.inverters)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
