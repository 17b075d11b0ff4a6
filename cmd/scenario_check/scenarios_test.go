package main

import (
	"context"
	"testing"

	"tax-advisor/internal/config"
	"tax-advisor/internal/domain"
)

func TestScenariosPass(t *testing.T) {
	rules := config.NewRules(config.RuleSet{
		HighIncomeThreshold:  200000,
		PremiumRiskThreshold: 20,
		PremiumCategories:    []string{"entity_change", "multi_step", "timing"},
	})
	for _, sc := range scenarios() {
		t.Run(sc.Name, func(t *testing.T) {
			results, err := sc.Run(context.Background(), rules)
			if err != nil {
				t.Fatalf("scenario error: %v", err)
			}
			if len(results) == 0 {
				t.Fatalf("scenario produced no checks")
			}
			for _, r := range results {
				if !r.OK {
					t.Fatalf("check %q failed: %s", r.Check, r.Detail)
				}
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	views := []domain.StrategyView{{Locked: true}, {Detail: "x"}}
	if countLocked(views) != 1 {
		t.Fatalf("expected one locked view")
	}
	if allHaveDetail(views) || allHaveDetail(nil) {
		t.Fatalf("allHaveDetail must require detail on every view")
	}
	if !hasStatus([]string{"a", "b"}, "b") || hasStatus(nil, "a") {
		t.Fatalf("unexpected hasStatus result")
	}
}
