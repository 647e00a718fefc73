// Package config loads pvsizer settings from a YAML file, PVSIZER_* environment
// variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/awaistahir/pvsizer/internal/codetables"
	"github.com/awaistahir/pvsizer/internal/engine"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DBPath      string        `mapstructure:"db_path"`
	CatalogPath string        `mapstructure:"catalog_path"` // empty = embedded catalog
	Server      ServerConfig  `mapstructure:"server"`
	Design      DesignConfig  `mapstructure:"design"`
	Climate     ClimateConfig `mapstructure:"climate"`
}

// ServerConfig configures the HTTP daemon
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	ScenarioWorkers int `mapstructure:"scenario_workers"`
}

// DesignConfig holds the project parameter defaults applied when a request omits them
type DesignConfig struct {
	SafetyFactor    float64 `mapstructure:"safety_factor"`
	TMinC           float64 `mapstructure:"t_min_c"`
	AmbientC        float64 `mapstructure:"ambient_c"`
	Derate          bool    `mapstructure:"derate"`
	CurrentCarrying int     `mapstructure:"current_carrying"`
	DCStringDropPct float64 `mapstructure:"dc_string_vd_pct"`
	DCTrunkDropPct  float64 `mapstructure:"dc_trunk_vd_pct"`
	ACDropPct       float64 `mapstructure:"ac_vd_pct"`
	DCMaterial      string  `mapstructure:"dc_material"`
	ACMaterial      string  `mapstructure:"ac_material"`
}

// ClimateConfig configures the site temperature lookup
type ClimateConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Years          int    `mapstructure:"years"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DefaultDir is where the config file and database live unless overridden
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pvsizer"
	}
	return filepath.Join(home, ".pvsizer")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", filepath.Join(DefaultDir(), "pvsizer.db"))
	v.SetDefault("catalog_path", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.scenario_workers", 4)

	v.SetDefault("design.safety_factor", engine.DefaultSafetyFactor)
	v.SetDefault("design.t_min_c", -10.0)
	v.SetDefault("design.ambient_c", 30.0)
	v.SetDefault("design.derate", true)
	v.SetDefault("design.current_carrying", 3)
	v.SetDefault("design.dc_string_vd_pct", 1.5)
	v.SetDefault("design.dc_trunk_vd_pct", 1.5)
	v.SetDefault("design.ac_vd_pct", 2.0)
	v.SetDefault("design.dc_material", string(codetables.Copper))
	v.SetDefault("design.ac_material", string(codetables.Copper))

	v.SetDefault("climate.base_url", "https://archive-api.open-meteo.com/v1/archive")
	v.SetDefault("climate.years", 10)
	v.SetDefault("climate.timeout_seconds", 30)
}

// Load reads the config file (or $HOME/.pvsizer/config.yaml when path is empty),
// applies environment overrides and validates the result. A missing default
// config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PVSIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	d := c.Design
	if d.SafetyFactor < 1 {
		return fmt.Errorf("design.safety_factor must be >= 1 (got %g)", d.SafetyFactor)
	}
	if d.DCStringDropPct <= 0 || d.DCTrunkDropPct <= 0 || d.ACDropPct <= 0 {
		return fmt.Errorf("voltage drop targets must be positive")
	}
	if d.CurrentCarrying < 1 {
		return fmt.Errorf("design.current_carrying must be >= 1")
	}
	for _, m := range []string{d.DCMaterial, d.ACMaterial} {
		if !codetables.ValidMaterial(codetables.Material(m)) {
			return fmt.Errorf("unknown conductor material %q (use cu or al)", m)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.ScenarioWorkers < 1 {
		return fmt.Errorf("server.scenario_workers must be positive")
	}
	if c.Climate.Years < 1 {
		return fmt.Errorf("climate.years must be positive")
	}
	return nil
}

// Apply fills the zero-valued project parameters of in from the defaults.
// Derating is on when either the input or the configuration asks for it; callers
// that accept an explicit opt-out override Derate after Apply.
func (d DesignConfig) Apply(in engine.DesignInput) engine.DesignInput {
	if in.SafetyFactor == 0 {
		in.SafetyFactor = d.SafetyFactor
	}
	if in.CurrentCarrying == 0 {
		in.CurrentCarrying = d.CurrentCarrying
	}
	if in.AmbientC == 0 {
		in.AmbientC = d.AmbientC
	}
	in.Derate = in.Derate || d.Derate
	fillRun(&in.DCString, d.DCStringDropPct, d.DCMaterial)
	fillRun(&in.DCTrunk, d.DCTrunkDropPct, d.DCMaterial)
	fillRun(&in.AC, d.ACDropPct, d.ACMaterial)
	return in
}

func fillRun(r *engine.Run, dropPct float64, material string) {
	if r.TargetDropPct == 0 {
		r.TargetDropPct = dropPct
	}
	if r.Material == "" {
		r.Material = codetables.Material(material)
	}
}
