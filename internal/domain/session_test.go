package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSessionApply_RejectsIllegalTransitions(t *testing.T) {
	s := NewSession("s1", time.Now().UTC())
	s.Unlocked = true
	s.Acknowledged = true
	s.Bucket = &BucketDecision{Variant: VariantControl}

	no := false
	if err := s.Apply(SessionPatch{Unlocked: &no}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for un-unlock, got %v", err)
	}
	if err := s.Apply(SessionPatch{Acknowledged: &no}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for un-acknowledge, got %v", err)
	}
	if err := s.Apply(SessionPatch{Bucket: &BucketDecision{Variant: VariantTreatment}}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for bucket change, got %v", err)
	}
	if !IsInvariantViolation(ErrIllegalTransition) {
		t.Fatalf("expected illegal transition to be an invariant violation")
	}
}

func TestSessionApply_IsAtomic(t *testing.T) {
	s := NewSession("s1", time.Now().UTC())
	s.Unlocked = true

	wages := 50000.0
	no := false
	err := s.Apply(SessionPatch{
		Profile:  &Profile{Wages: &wages},
		Unlocked: &no,
	})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if s.Profile.Wages != nil {
		t.Fatalf("profile must not change when the patch is rejected")
	}
}

func TestSessionApply_SameBucketIsNoop(t *testing.T) {
	s := NewSession("s1", time.Now().UTC())
	first := BucketDecision{Variant: VariantTreatment, RolloutPercentage: 10}
	if err := s.Apply(SessionPatch{Bucket: &first}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	again := BucketDecision{Variant: VariantTreatment, RolloutPercentage: 50}
	if err := s.Apply(SessionPatch{Bucket: &again}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.Bucket.RolloutPercentage != 10 {
		t.Fatalf("bucket must keep its first assignment, got %+v", s.Bucket)
	}
}

func TestSessionUnlockIdempotent(t *testing.T) {
	s := NewSession("s1", time.Now().UTC())
	if !s.Unlock() {
		t.Fatalf("expected first unlock to change state")
	}
	if s.Unlock() {
		t.Fatalf("expected second unlock to be a no-op")
	}
	if !s.Unlocked {
		t.Fatalf("expected unlocked")
	}
}

func TestSessionAcknowledge(t *testing.T) {
	s := NewSession("s1", time.Now().UTC())
	required := []string{"not_legal_advice", "estimates_only"}

	err := s.Acknowledge([]string{"NOT_LEGAL_ADVICE"}, required)
	if !errors.Is(err, ErrMissingDisclosures) {
		t.Fatalf("expected ErrMissingDisclosures, got %v", err)
	}
	if s.Acknowledged || len(s.AcceptedDisclosures) != 0 {
		t.Fatalf("partial acknowledgment must not mutate the session")
	}

	if err := s.Acknowledge([]string{"not_legal_advice", "estimates_only", "extra"}, required); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !s.Acknowledged || len(s.AcceptedDisclosures) != 3 {
		t.Fatalf("unexpected session after acknowledge: %+v", s)
	}
	if err := s.Acknowledge(nil, required); err != nil {
		t.Fatalf("repeated acknowledge must be idempotent, got %v", err)
	}
}

func TestSessionClone_IsIndependent(t *testing.T) {
	s := NewSession("s1", time.Now().UTC())
	s.Bucket = &BucketDecision{Variant: VariantControl}
	s.Profile.Jurisdictions = []string{"CA"}

	c := s.Clone()
	c.Bucket.Variant = VariantTreatment
	c.Profile.Jurisdictions[0] = "NY"
	if s.Bucket.Variant != VariantControl || s.Profile.Jurisdictions[0] != "CA" {
		t.Fatalf("clone shares memory with original")
	}
}
