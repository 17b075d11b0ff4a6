package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleSet agrupa los umbrales de riesgo y tiers vigentes para un año fiscal.
type RuleSet struct {
	HighIncomeThreshold  float64  `yaml:"high_income_threshold"`
	PremiumRiskThreshold int      `yaml:"premium_risk_threshold"`
	PremiumCategories    []string `yaml:"premium_categories"`
}

// BuiltinRuleSet replica los defaults del entorno para reglas no configuradas.
func BuiltinRuleSet() RuleSet {
	return RuleSet{
		HighIncomeThreshold:  200000,
		PremiumRiskThreshold: 20,
		PremiumCategories:    []string{"entity_change", "multi_step", "timing"},
	}
}

// Rules resuelve el RuleSet por año fiscal con fallback al default del entorno.
type Rules struct {
	Default RuleSet
	ByYear  map[int]RuleSet
}

type rulesFile struct {
	TaxYears map[int]RuleSet `yaml:"tax_years"`
}

// NewRules construye reglas sin overrides por año.
func NewRules(def RuleSet) *Rules {
	return &Rules{Default: def, ByYear: map[int]RuleSet{}}
}

// LoadRules lee un archivo YAML de reglas por año. Los campos ausentes heredan del default.
func LoadRules(path string, def RuleSet) (*Rules, error) {
	rules := NewRules(def)
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw, def)
}

// ParseRules interpreta el contenido YAML de un archivo de reglas.
func ParseRules(raw []byte, def RuleSet) (*Rules, error) {
	var rf rulesFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	rules := NewRules(def)
	for year, rs := range rf.TaxYears {
		if year <= 0 {
			return nil, fmt.Errorf("parse rules file: invalid tax year %d", year)
		}
		if rs.HighIncomeThreshold <= 0 {
			rs.HighIncomeThreshold = def.HighIncomeThreshold
		}
		if rs.PremiumRiskThreshold <= 0 {
			rs.PremiumRiskThreshold = def.PremiumRiskThreshold
		}
		if len(rs.PremiumCategories) == 0 {
			rs.PremiumCategories = def.PremiumCategories
		} else {
			rs.PremiumCategories = cleanList(rs.PremiumCategories)
		}
		rules.ByYear[year] = rs
	}
	return rules, nil
}

// For devuelve el RuleSet del año indicado o el default.
func (r *Rules) For(taxYear int) RuleSet {
	if r == nil {
		return BuiltinRuleSet()
	}
	if rs, ok := r.ByYear[taxYear]; ok {
		return rs
	}
	return r.Default
}
