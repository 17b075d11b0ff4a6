package service

import (
	"strings"
	"testing"

	"tax-advisor/internal/domain"
)

func TestBuildAdvisoryPrompt_OmitsLockedDetail(t *testing.T) {
	profile := mustProfile(t, map[string]any{"wages": 250000, "tax_year": 2024, "jurisdictions": "CA,NY"})
	risk := NewAuditRiskClassifier(testRules()).Assess(profile)
	reason := ReasonComplexScenario
	strategies := []domain.StrategyView{
		{Title: "Open strategy", Tier: domain.TierFree, EstimatedSavings: 100, Detail: "visible steps"},
		{Title: "Gated strategy", Tier: domain.TierPremium, EstimatedSavings: 900, Locked: true},
	}

	prompt := DefaultAdvisoryPromptBuilder.BuildAdvisoryPrompt(
		profile,
		domain.ConfidenceResult{Level: domain.ConfidenceMedium, Reason: &reason},
		risk,
		strategies,
		"  what now?  ",
	)

	for _, want := range []string{
		"Tax year: 2024",
		"Jurisdictions: CA, NY",
		"medium (complex scenario)",
		"PROFESSIONAL REVIEW REQUIRED",
		"high_income",
		"visible steps",
		"Gated strategy [premium], estimated savings 900",
		"Implementation detail is locked",
		`"what now?"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q\n%s", want, prompt)
		}
	}
}

func TestBuildAdvisoryPrompt_NoStrategies(t *testing.T) {
	prompt := DefaultAdvisoryPromptBuilder.BuildAdvisoryPrompt(
		domain.Profile{},
		DefaultConfidenceScorer.Score(0, false),
		domain.RiskAssessment{},
		nil,
		"hi",
	)
	if !strings.Contains(prompt, "None yet") {
		t.Fatalf("expected missing-data hint, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "PROFESSIONAL REVIEW") {
		t.Fatalf("review section must be absent without triggers")
	}
}
