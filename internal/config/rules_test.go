package config

import "testing"

func TestParseRules_InheritsDefaults(t *testing.T) {
	def := RuleSet{HighIncomeThreshold: 200000, PremiumRiskThreshold: 20, PremiumCategories: []string{"timing"}}
	raw := []byte(`
tax_years:
  2024:
    high_income_threshold: 250000
  2025:
    premium_risk_threshold: 30
    premium_categories: [" Entity_Change ", "multi_step", "multi_step"]
`)
	rules, err := ParseRules(raw, def)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rs2024 := rules.For(2024)
	if rs2024.HighIncomeThreshold != 250000 {
		t.Fatalf("expected 2024 threshold override, got %v", rs2024.HighIncomeThreshold)
	}
	if rs2024.PremiumRiskThreshold != 20 || len(rs2024.PremiumCategories) != 1 {
		t.Fatalf("expected 2024 to inherit defaults, got %+v", rs2024)
	}

	rs2025 := rules.For(2025)
	if rs2025.HighIncomeThreshold != 200000 || rs2025.PremiumRiskThreshold != 30 {
		t.Fatalf("unexpected 2025 rules: %+v", rs2025)
	}
	if len(rs2025.PremiumCategories) != 2 || rs2025.PremiumCategories[0] != "entity_change" {
		t.Fatalf("expected normalized categories, got %+v", rs2025.PremiumCategories)
	}

	if got := rules.For(1999); got.HighIncomeThreshold != def.HighIncomeThreshold {
		t.Fatalf("expected default for unknown year, got %+v", got)
	}
}

func TestParseRules_RejectsInvalid(t *testing.T) {
	if _, err := ParseRules([]byte("tax_years: [1, 2"), RuleSet{}); err == nil {
		t.Fatalf("expected yaml error")
	}
	if _, err := ParseRules([]byte("tax_years:\n  0:\n    high_income_threshold: 1\n"), RuleSet{}); err == nil {
		t.Fatalf("expected invalid year error")
	}
}

func TestLoadRules_EmptyPath(t *testing.T) {
	def := RuleSet{HighIncomeThreshold: 123}
	rules, err := LoadRules("  ", def)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rules.For(2024).HighIncomeThreshold != 123 {
		t.Fatalf("expected default rules")
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{
		RolloutPercentage: 150,
		PremiumCategories: []string{" Timing", "", "timing"},
		ProviderOrder:     []string{"openai", " OpenAI ", "anthropic"},
	}
	cfg.normalize()
	if cfg.RolloutPercentage != 100 {
		t.Fatalf("expected rollout clamped to 100, got %d", cfg.RolloutPercentage)
	}
	if len(cfg.PremiumCategories) != 1 || cfg.PremiumCategories[0] != "timing" {
		t.Fatalf("unexpected categories %+v", cfg.PremiumCategories)
	}
	if len(cfg.ProviderOrder) != 2 {
		t.Fatalf("expected deduped provider order, got %+v", cfg.ProviderOrder)
	}
	if cfg.ProviderTimeout() <= 0 || cfg.RouterCeiling() <= 0 || cfg.SessionTTL() <= 0 {
		t.Fatalf("expected positive durations")
	}
}

func TestRules_NilFallsBackToBuiltinDefaults(t *testing.T) {
	var rules *Rules
	rs := rules.For(2024)
	if rs.HighIncomeThreshold != 200000 || rs.PremiumRiskThreshold != 20 {
		t.Fatalf("unexpected thresholds %+v", rs)
	}
	want := []string{"entity_change", "multi_step", "timing"}
	if len(rs.PremiumCategories) != len(want) {
		t.Fatalf("expected premium categories %v, got %v", want, rs.PremiumCategories)
	}
	for i, c := range want {
		if rs.PremiumCategories[i] != c {
			t.Fatalf("expected premium categories %v, got %v", want, rs.PremiumCategories)
		}
	}
}
