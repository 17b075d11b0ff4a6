package domain

import (
	"fmt"
	"strings"
	"time"
)

type Variant string

const (
	VariantControl   Variant = "control"
	VariantTreatment Variant = "treatment"
)

// ParseVariant interpreta un variant forzado; vacío devuelve "" sin error.
func ParseVariant(raw string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case string(VariantControl):
		return VariantControl, nil
	case string(VariantTreatment):
		return VariantTreatment, nil
	default:
		return "", fmt.Errorf("%w: unknown variant %q", ErrInvalidInput, raw)
	}
}

// BucketDecision registra la asignación de experimento de una sesión.
type BucketDecision struct {
	Variant           Variant   `json:"variant"`
	Forced            bool      `json:"forced"`
	HashVersion       string    `json:"hash_version,omitempty"`
	RolloutPercentage int       `json:"rollout_percentage"`
	AssignedAt        time.Time `json:"assigned_at"`
}

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ConfidenceResult: Reason es nil si y solo si Level es high.
type ConfidenceResult struct {
	Level  ConfidenceLevel `json:"level"`
	Reason *string         `json:"reason"`
}

type TriggerKind string

const (
	TriggerHighIncome        TriggerKind = "high_income"
	TriggerMultiJurisdiction TriggerKind = "multi_jurisdiction"
	TriggerDigitalAssets     TriggerKind = "digital_assets"
	TriggerForeignIncome     TriggerKind = "foreign_income"
	TriggerPassiveLoss       TriggerKind = "passive_loss"
)

// RiskAssessment: Triggers no vacío si y solo si RequiresReview.
type RiskAssessment struct {
	RequiresReview bool          `json:"requires_review"`
	Triggers       []TriggerKind `json:"triggers"`
}

// Has indica si el trigger está presente.
func (r RiskAssessment) Has(kind TriggerKind) bool {
	for _, t := range r.Triggers {
		if t == kind {
			return true
		}
	}
	return false
}

// Flags de degradación reportados en la respuesta del turno.
const (
	StatusGenerationUnavailable     = "generation_unavailable"
	StatusClassificationUnavailable = "classification_unavailable"
	StatusAcknowledgmentRequired    = "acknowledgment_required"
)

// TurnRequest es el payload de entrada de un turno de chat.
type TurnRequest struct {
	SessionID     string         `json:"session_id"`
	StickyID      string         `json:"sticky_id,omitempty"`
	Message       string         `json:"message"`
	ProfileFields map[string]any `json:"profile_fields,omitempty"`
	ForcedVariant string         `json:"forced_variant,omitempty"`
}

// StrategyView es la proyección pública de una estrategia, ya filtrada por el gate de unlock.
type StrategyView struct {
	ID               string  `json:"id"`
	Category         string  `json:"category"`
	Title            string  `json:"title"`
	EstimatedSavings float64 `json:"estimated_savings"`
	Tier             Tier    `json:"tier"`
	RequiresReview   bool    `json:"requires_review"`
	Locked           bool    `json:"locked"`
	Detail           string  `json:"detail,omitempty"`
}

// TurnResponse es la respuesta ensamblada de un turno.
type TurnResponse struct {
	SessionID    string           `json:"session_id"`
	Bucket       Variant          `json:"bucket"`
	Confidence   ConfidenceResult `json:"confidence"`
	Risk         RiskAssessment   `json:"risk"`
	Strategies   []StrategyView   `json:"strategies"`
	GatingShown  bool             `json:"gating_shown"`
	Unlocked     bool             `json:"unlocked"`
	Acknowledged bool             `json:"acknowledged"`
	Narrative    *string          `json:"narrative,omitempty"`
	ProviderUsed *string          `json:"provider_used,omitempty"`
	Status       []string         `json:"status,omitempty"`
}
