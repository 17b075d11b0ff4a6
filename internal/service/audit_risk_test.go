package service

import (
	"testing"

	"tax-advisor/internal/config"
	"tax-advisor/internal/domain"
)

func testRules() *config.Rules {
	return config.NewRules(config.RuleSet{
		HighIncomeThreshold:  200000,
		PremiumRiskThreshold: 20,
		PremiumCategories:    []string{"entity_change", "multi_step", "timing"},
	})
}

func mustProfile(t *testing.T, fields map[string]any) domain.Profile {
	t.Helper()
	p, err := domain.ParseProfileFields(fields)
	if err != nil {
		t.Fatalf("parse profile: %v", err)
	}
	return p
}

func TestAuditRiskClassifier_HighIncome(t *testing.T) {
	c := NewAuditRiskClassifier(testRules())
	got := c.Assess(mustProfile(t, map[string]any{"wages": 250000}))
	if !got.RequiresReview || !got.Has(domain.TriggerHighIncome) {
		t.Fatalf("expected high income trigger, got %+v", got)
	}
	if len(got.Triggers) != 1 {
		t.Fatalf("expected only high income trigger, got %+v", got.Triggers)
	}

	atThreshold := c.Assess(mustProfile(t, map[string]any{"wages": 150000, "rental_income": 50000}))
	if atThreshold.RequiresReview {
		t.Fatalf("income equal to the threshold does not exceed it")
	}
}

func TestAuditRiskClassifier_ReportsAllTriggers(t *testing.T) {
	c := NewAuditRiskClassifier(testRules())
	got := c.Assess(mustProfile(t, map[string]any{
		"wages":                250000,
		"jurisdictions":        []any{"CA", "NY"},
		"has_digital_assets":   true,
		"foreign_income":       -10,
		"passive_loss_balance": -5000,
	}))
	want := []domain.TriggerKind{
		domain.TriggerHighIncome,
		domain.TriggerMultiJurisdiction,
		domain.TriggerDigitalAssets,
		domain.TriggerForeignIncome,
		domain.TriggerPassiveLoss,
	}
	if len(got.Triggers) != len(want) {
		t.Fatalf("expected %d triggers, got %+v", len(want), got.Triggers)
	}
	for i, w := range want {
		if got.Triggers[i] != w {
			t.Fatalf("trigger %d: expected %s, got %s", i, w, got.Triggers[i])
		}
	}
}

func TestAuditRiskClassifier_TotalOnEmptyAndNil(t *testing.T) {
	c := NewAuditRiskClassifier(testRules())
	got := c.Assess(domain.Profile{})
	if got.RequiresReview || len(got.Triggers) != 0 || got.Triggers == nil {
		t.Fatalf("expected empty non-nil triggers for empty profile, got %+v", got)
	}

	var nilClassifier *AuditRiskClassifier
	res := nilClassifier.Assess(mustProfile(t, map[string]any{"wages": 300000}))
	if !res.RequiresReview {
		t.Fatalf("nil classifier should fall back to default threshold")
	}
}

func TestAuditRiskClassifier_TriggersIffReview(t *testing.T) {
	c := NewAuditRiskClassifier(testRules())
	profiles := []map[string]any{
		{},
		{"wages": 10},
		{"wages": 10, "jurisdictions": "CA"},
		{"jurisdictions": "CA,NY"},
		{"has_digital_assets": false},
		{"foreign_income": 0},
		{"passive_loss_balance": 100},
		{"passive_loss_balance": -1},
	}
	for i, fields := range profiles {
		got := c.Assess(mustProfile(t, fields))
		if got.RequiresReview != (len(got.Triggers) > 0) {
			t.Fatalf("case %d: requires_review=%v with triggers %+v", i, got.RequiresReview, got.Triggers)
		}
	}
}

func TestAuditRiskClassifier_PerTaxYearThreshold(t *testing.T) {
	rules := testRules()
	rules.ByYear[2025] = config.RuleSet{HighIncomeThreshold: 300000, PremiumRiskThreshold: 20}
	c := NewAuditRiskClassifier(rules)

	if !c.Assess(mustProfile(t, map[string]any{"wages": 250000, "tax_year": 2024})).RequiresReview {
		t.Fatalf("expected default threshold for 2024")
	}
	if c.Assess(mustProfile(t, map[string]any{"wages": 250000, "tax_year": 2025})).RequiresReview {
		t.Fatalf("expected 2025 threshold to apply")
	}
}
