package service

import (
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"tax-advisor/internal/domain"
)

// BucketHashVersion identifica la función de hash. Cambiarla reasigna usuarios; hay que versionarla.
const BucketHashVersion = "xxh64-v1"

// BucketAssigner asigna variantes de experimento de forma determinística y monótona.
type BucketAssigner struct {
	now func() time.Time
}

func NewBucketAssigner() *BucketAssigner {
	return &BucketAssigner{now: func() time.Time { return time.Now().UTC() }}
}

// BucketValue mapea el sticky id a un entero uniforme en [0,100).
func BucketValue(stickyID string) int {
	return int(xxhash.Sum64String(BucketHashVersion+":"+stickyID) % 100)
}

// Assign devuelve treatment si el hash del sticky id cae bajo el porcentaje de rollout.
// Sin sticky id degrada a control.
func (a *BucketAssigner) Assign(stickyID string, rolloutPercentage int) domain.BucketDecision {
	rollout := clampPercentage(rolloutPercentage)
	decision := domain.BucketDecision{
		Variant:           domain.VariantControl,
		HashVersion:       BucketHashVersion,
		RolloutPercentage: rollout,
		AssignedAt:        a.clock(),
	}
	stickyID = strings.TrimSpace(stickyID)
	if stickyID == "" {
		decision.HashVersion = ""
		return decision
	}
	if BucketValue(stickyID) < rollout {
		decision.Variant = domain.VariantTreatment
	}
	return decision
}

// Resolve aplica el override forzado si existe; si no, delega en Assign.
func (a *BucketAssigner) Resolve(stickyID string, rolloutPercentage int, forced domain.Variant) domain.BucketDecision {
	if forced == "" {
		return a.Assign(stickyID, rolloutPercentage)
	}
	return domain.BucketDecision{
		Variant:           forced,
		Forced:            true,
		RolloutPercentage: clampPercentage(rolloutPercentage),
		AssignedAt:        a.clock(),
	}
}

func (a *BucketAssigner) clock() time.Time {
	if a == nil || a.now == nil {
		return time.Now().UTC()
	}
	return a.now()
}

func clampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
