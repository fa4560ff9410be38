/*
Package factory provides JSON/YAML to Go waterfall configuration conversion.

PURPOSE:
  Converts a fund's waterfall terms, written as percentages in a config file,
  into a validated fund.WaterfallConfig. Fund terms change per vehicle, so
  they live in files and environment variables instead of code.

FILE SCHEMA (JSON shown, YAML uses the same keys):
  {
    "preferred_return_pct": 8,
    "catch_up_pct": 100,
    "carried_interest_pct": 20,
    "currency_symbol": "$"
  }

ENVIRONMENT OVERRIDES (applied after the file):
  WATERFALL_PREFERRED_RETURN_PCT
  WATERFALL_CATCH_UP_PCT
  WATERFALL_CARRIED_INTEREST_PCT
  WATERFALL_CURRENCY_SYMBOL

USAGE:
  f := factory.NewConfigFactory()
  cj, err := f.LoadFile("fund.yaml")      // or DefaultConfigJSON()
  err = factory.ApplyEnv(&cj, os.LookupEnv)
  settings, err := f.FromJSON(cj)
  engine, err := fund.NewEngine(settings.Waterfall)

SEE ALSO:
  - fund/config.go: WaterfallConfig validation rules
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/i5m/waterfall/fund"
)

// =============================================================================
// FILE SCHEMA TYPES
// =============================================================================

// ConfigJSON is the file representation of the waterfall terms.
// Rates are percentages: 8 means 8%.
type ConfigJSON struct {
	PreferredReturnPct *float64 `json:"preferred_return_pct,omitempty" yaml:"preferred_return_pct,omitempty"`
	CatchUpPct         *float64 `json:"catch_up_pct,omitempty" yaml:"catch_up_pct,omitempty"`
	CarriedInterestPct *float64 `json:"carried_interest_pct,omitempty" yaml:"carried_interest_pct,omitempty"`
	CurrencySymbol     string   `json:"currency_symbol,omitempty" yaml:"currency_symbol,omitempty"`
}

// Settings is what the commands need to run a waterfall.
type Settings struct {
	Waterfall      fund.WaterfallConfig
	CurrencySymbol string
}

// Environment variable names read by ApplyEnv.
const (
	EnvPreferredReturnPct = "WATERFALL_PREFERRED_RETURN_PCT"
	EnvCatchUpPct         = "WATERFALL_CATCH_UP_PCT"
	EnvCarriedInterestPct = "WATERFALL_CARRIED_INTEREST_PCT"
	EnvCurrencySymbol     = "WATERFALL_CURRENCY_SYMBOL"
)

const (
	defaultPreferredReturnPct = 8.0
	defaultCatchUpPct         = 100.0
	defaultCarriedInterestPct = 20.0
	DefaultCurrencySymbol     = "$"
)

// DefaultConfigJSON returns 8% / 100% / 20% in dollars.
func DefaultConfigJSON() ConfigJSON {
	return ConfigJSON{
		PreferredReturnPct: floatPtr(defaultPreferredReturnPct),
		CatchUpPct:         floatPtr(defaultCatchUpPct),
		CarriedInterestPct: floatPtr(defaultCarriedInterestPct),
		CurrencySymbol:     DefaultCurrencySymbol,
	}
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts file configs to fund.WaterfallConfig.
type ConfigFactory struct{}

// NewConfigFactory creates a new config factory.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// Format selects the decoder for ParseConfig.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks a Format from a file extension; anything that is not
// .yaml or .yml is read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseConfig decodes data and fills unset fields from the defaults.
func (f *ConfigFactory) ParseConfig(data []byte, format Format) (ConfigJSON, error) {
	var cj ConfigJSON
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cj); err != nil {
			return ConfigJSON{}, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cj); err != nil {
			return ConfigJSON{}, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return withDefaults(cj), nil
}

// LoadFile reads and parses a config file. An empty path yields the defaults.
func (f *ConfigFactory) LoadFile(path string) (ConfigJSON, error) {
	if path == "" {
		return DefaultConfigJSON(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigJSON{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return f.ParseConfig(data, FormatFor(path))
}

// FromJSON converts percentages to fractions and validates them.
func (f *ConfigFactory) FromJSON(cj ConfigJSON) (Settings, error) {
	cj = withDefaults(cj)
	cfg, err := fund.NewWaterfallConfig(
		percentToRate(*cj.PreferredReturnPct),
		percentToRate(*cj.CatchUpPct),
		percentToRate(*cj.CarriedInterestPct),
	)
	if err != nil {
		return Settings{}, err
	}
	return Settings{Waterfall: cfg, CurrencySymbol: cj.CurrencySymbol}, nil
}

// ToJSON converts settings back to their file representation.
func (f *ConfigFactory) ToJSON(s Settings) ConfigJSON {
	return ConfigJSON{
		PreferredReturnPct: floatPtr(rateToPercent(s.Waterfall.PreferredReturnRate())),
		CatchUpPct:         floatPtr(rateToPercent(s.Waterfall.CatchUpRate())),
		CarriedInterestPct: floatPtr(rateToPercent(s.Waterfall.CarriedInterestRate())),
		CurrencySymbol:     s.CurrencySymbol,
	}
}

// Load is LoadFile, ApplyEnv with os.LookupEnv, then FromJSON.
func Load(path string) (Settings, error) {
	f := NewConfigFactory()
	cj, err := f.LoadFile(path)
	if err != nil {
		return Settings{}, err
	}
	if err := ApplyEnv(&cj, os.LookupEnv); err != nil {
		return Settings{}, err
	}
	return f.FromJSON(cj)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// ApplyEnv overrides cj from the WATERFALL_* variables found by lookup.
func ApplyEnv(cj *ConfigJSON, lookup func(string) (string, bool)) error {
	pcts := []struct {
		key    string
		target **float64
	}{
		{EnvPreferredReturnPct, &cj.PreferredReturnPct},
		{EnvCatchUpPct, &cj.CatchUpPct},
		{EnvCarriedInterestPct, &cj.CarriedInterestPct},
	}
	for _, p := range pcts {
		raw, ok := lookup(p.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return &fund.ValidationError{Field: p.key, Value: raw, Reason: "must be a number"}
		}
		*p.target = floatPtr(v)
	}
	if sym, ok := lookup(EnvCurrencySymbol); ok && sym != "" {
		cj.CurrencySymbol = sym
	}
	return nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

var hundred = decimal.NewFromInt(100)

func percentToRate(pct float64) decimal.Decimal {
	return decimal.NewFromFloat(pct).Div(hundred)
}

func rateToPercent(rate decimal.Decimal) float64 {
	return rate.Mul(hundred).InexactFloat64()
}

func withDefaults(cj ConfigJSON) ConfigJSON {
	def := DefaultConfigJSON()
	if cj.PreferredReturnPct == nil {
		cj.PreferredReturnPct = def.PreferredReturnPct
	}
	if cj.CatchUpPct == nil {
		cj.CatchUpPct = def.CatchUpPct
	}
	if cj.CarriedInterestPct == nil {
		cj.CarriedInterestPct = def.CarriedInterestPct
	}
	if cj.CurrencySymbol == "" {
		cj.CurrencySymbol = def.CurrencySymbol
	}
	return cj
}

func floatPtr(v float64) *float64 { return &v }
