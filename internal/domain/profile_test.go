package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseProfileFields_CoercesKnownFields(t *testing.T) {
	patch, err := ParseProfileFields(map[string]any{
		"Wages":              "250,000",
		"tax_year":           float64(2024),
		"dependents":         json.Number("2"),
		"jurisdictions":      []any{"ca", " NY ", "ca"},
		"has_digital_assets": "true",
		"filing_status":      " Single ",
		"favorite_color":     "blue",
		"ignored":            nil,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if Num(patch.Wages) != 250000 {
		t.Fatalf("expected wages 250000, got %v", Num(patch.Wages))
	}
	if patch.Year() != 2024 || patch.Dependents == nil || *patch.Dependents != 2 {
		t.Fatalf("unexpected year/dependents: %+v", patch)
	}
	if len(patch.Jurisdictions) != 2 || patch.Jurisdictions[0] != "CA" || patch.Jurisdictions[1] != "NY" {
		t.Fatalf("expected normalized jurisdictions, got %+v", patch.Jurisdictions)
	}
	if !patch.DigitalAssets() {
		t.Fatalf("expected digital assets flag")
	}
	if patch.FilingStatus == nil || *patch.FilingStatus != "single" {
		t.Fatalf("expected normalized filing status")
	}
	if patch.Extensions["favorite_color"] != "blue" {
		t.Fatalf("expected unknown key in extensions, got %+v", patch.Extensions)
	}
	if _, ok := patch.Extensions["ignored"]; ok {
		t.Fatalf("nil values must be skipped")
	}
}

func TestParseProfileFields_RejectsBadTypes(t *testing.T) {
	cases := []map[string]any{
		{"wages": "lots"},
		{"wages": []any{1}},
		{"tax_year": 2024.5},
		{"tax_year": 1e20},
		{"tax_year": 1850},
		{"tax_year": 10000},
		{"dependents": 1e12},
		{"dependents": -1},
		{"has_digital_assets": 3},
		{"jurisdictions": []any{1, 2}},
		{"filing_status": 12},
	}
	for i, c := range cases {
		if _, err := ParseProfileFields(c); !errors.Is(err, ErrInvalidProfileField) {
			t.Fatalf("case %d expected ErrInvalidProfileField, got %v", i, err)
		}
	}
}

func TestProfileMerge_NeverShrinks(t *testing.T) {
	base, err := ParseProfileFields(map[string]any{
		"wages":         100000,
		"jurisdictions": "CA",
		"note":          "a",
	})
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	patch, err := ParseProfileFields(map[string]any{
		"rental_income": 12000,
		"jurisdictions": "NY",
		"other":         "b",
	})
	if err != nil {
		t.Fatalf("parse patch: %v", err)
	}

	merged := base.Merge(patch)
	if Num(merged.Wages) != 100000 || Num(merged.RentalIncome) != 12000 {
		t.Fatalf("expected both income fields, got %+v", merged)
	}
	if len(merged.Jurisdictions) != 2 {
		t.Fatalf("expected jurisdiction union, got %+v", merged.Jurisdictions)
	}
	if merged.Extensions["note"] != "a" || merged.Extensions["other"] != "b" {
		t.Fatalf("expected merged extensions, got %+v", merged.Extensions)
	}

	merged = merged.Merge(Profile{})
	if merged.Wages == nil || len(merged.Jurisdictions) != 2 {
		t.Fatalf("empty patch must not remove fields")
	}

	// el original no se modifica
	if base.RentalIncome != nil || len(base.Jurisdictions) != 1 {
		t.Fatalf("merge must not mutate the receiver")
	}
}

func TestProfileCompletenessAndComplexity(t *testing.T) {
	var empty Profile
	if empty.Completeness() != 0 {
		t.Fatalf("expected zero completeness for empty profile")
	}
	if empty.HasComplexScenario() {
		t.Fatalf("empty profile is not complex")
	}

	full, err := ParseProfileFields(map[string]any{
		"tax_year":               2024,
		"filing_status":          "single",
		"wages":                  80000,
		"self_employment_income": 0,
		"investment_income":      0,
		"rental_income":          0,
		"foreign_income":         0,
		"dependents":             0,
		"jurisdictions":          "CA",
		"has_digital_assets":     false,
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if full.Completeness() != 1 {
		t.Fatalf("expected full completeness, got %v", full.Completeness())
	}
	if full.HasComplexScenario() {
		t.Fatalf("plain wage earner should not be complex")
	}

	multi := full.Merge(Profile{Jurisdictions: []string{"NY"}})
	if !multi.HasComplexScenario() {
		t.Fatalf("two jurisdictions should be complex")
	}
}

func TestProfileAggregateIncome(t *testing.T) {
	p, _ := ParseProfileFields(map[string]any{
		"wages":                  100,
		"self_employment_income": 200,
		"investment_income":      300,
		"rental_income":          400,
		"foreign_income":         1000,
	})
	if got := p.AggregateIncome(); got != 1000 {
		t.Fatalf("expected 1000 (foreign excluded), got %v", got)
	}
}
