package service

import (
	"fmt"
	"testing"

	"tax-advisor/internal/domain"
)

func TestBucketAssigner_Monotonic(t *testing.T) {
	a := NewBucketAssigner()
	for i := 0; i < 300; i++ {
		id := fmt.Sprintf("user-%d", i)
		inTreatment := false
		for p := 0; p <= 100; p += 5 {
			got := a.Assign(id, p).Variant
			if inTreatment && got != domain.VariantTreatment {
				t.Fatalf("id %s moved back to control at %d%%", id, p)
			}
			if got == domain.VariantTreatment {
				inTreatment = true
			}
		}
		if !inTreatment {
			t.Fatalf("id %s must be in treatment at 100%%", id)
		}
	}
}

func TestBucketAssigner_Deterministic(t *testing.T) {
	a := NewBucketAssigner()
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("sticky-%d", i)
		first := a.Assign(id, 37)
		for j := 0; j < 3; j++ {
			if again := a.Assign(id, 37); again.Variant != first.Variant {
				t.Fatalf("non-deterministic assignment for %s", id)
			}
		}
		v := BucketValue(id)
		if v < 0 || v >= 100 {
			t.Fatalf("bucket value out of range: %d", v)
		}
	}
}

func TestBucketAssigner_ZeroRolloutIsControl(t *testing.T) {
	a := NewBucketAssigner()
	for i := 0; i < 500; i++ {
		d := a.Assign(fmt.Sprintf("s-%d", i), 0)
		if d.Variant != domain.VariantControl {
			t.Fatalf("expected control at 0%% rollout")
		}
		if d.HashVersion != BucketHashVersion {
			t.Fatalf("expected hash version recorded, got %q", d.HashVersion)
		}
	}
}

func TestBucketAssigner_ForcedAndMissingID(t *testing.T) {
	a := NewBucketAssigner()

	forced := a.Resolve("anyone", 0, domain.VariantTreatment)
	if forced.Variant != domain.VariantTreatment || !forced.Forced {
		t.Fatalf("expected forced treatment, got %+v", forced)
	}
	if forced.HashVersion != "" {
		t.Fatalf("forced decisions bypass hashing")
	}

	missing := a.Resolve("   ", 100, "")
	if missing.Variant != domain.VariantControl || missing.Forced {
		t.Fatalf("expected control without sticky id, got %+v", missing)
	}

	clamped := a.Assign("x", 250)
	if clamped.RolloutPercentage != 100 || clamped.Variant != domain.VariantTreatment {
		t.Fatalf("expected rollout clamped to 100, got %+v", clamped)
	}
}

func TestBucketAssigner_RoughlyUniform(t *testing.T) {
	a := NewBucketAssigner()
	treatment := 0
	for i := 0; i < 2000; i++ {
		if a.Assign(fmt.Sprintf("session-%d", i), 50).Variant == domain.VariantTreatment {
			treatment++
		}
	}
	if treatment < 800 || treatment > 1200 {
		t.Fatalf("expected roughly half in treatment, got %d/2000", treatment)
	}
}
