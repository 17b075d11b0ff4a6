package service

import (
	"fmt"
	"strings"

	"tax-advisor/internal/domain"
)

// AdvisoryPromptBuilder arma el prompt de narrativa del turno. El detalle de las
// estrategias bloqueadas nunca entra al prompt para que el modelo no lo filtre.
type AdvisoryPromptBuilder struct{}

// DefaultAdvisoryPromptBuilder permite uso directo sin instanciar.
var DefaultAdvisoryPromptBuilder = AdvisoryPromptBuilder{}

// BuildAdvisoryPrompt arma el prompt completo que se envía al router de proveedores.
func (AdvisoryPromptBuilder) BuildAdvisoryPrompt(
	profile domain.Profile,
	confidence domain.ConfidenceResult,
	risk domain.RiskAssessment,
	strategies []domain.StrategyView,
	userMessage string,
) string {
	var sb strings.Builder

	sb.WriteString("=== TAXPAYER PROFILE ===\n")
	if year := profile.Year(); year > 0 {
		sb.WriteString(fmt.Sprintf("Tax year: %d\n", year))
	}
	if profile.FilingStatus != nil {
		sb.WriteString(fmt.Sprintf("Filing status: %s\n", *profile.FilingStatus))
	}
	sb.WriteString(fmt.Sprintf("Aggregate income: %.0f\n", profile.AggregateIncome()))
	if len(profile.Jurisdictions) > 0 {
		sb.WriteString(fmt.Sprintf("Jurisdictions: %s\n", strings.Join(profile.Jurisdictions, ", ")))
	}

	sb.WriteString("\n=== CONFIDENCE ===\n")
	sb.WriteString(string(confidence.Level))
	if confidence.Reason != nil {
		sb.WriteString(" (" + *confidence.Reason + ")")
	}
	sb.WriteString("\n")

	if risk.RequiresReview {
		triggers := make([]string, 0, len(risk.Triggers))
		for _, t := range risk.Triggers {
			triggers = append(triggers, string(t))
		}
		sb.WriteString("\n=== PROFESSIONAL REVIEW REQUIRED ===\n")
		sb.WriteString("Triggers: " + strings.Join(triggers, ", ") + "\n")
		sb.WriteString("Recommend that the user reviews these strategies with a CPA.\n")
	}

	sb.WriteString("\n=== CANDIDATE STRATEGIES ===\n")
	if len(strategies) == 0 {
		sb.WriteString("- None yet. Ask for the missing profile details.\n")
	}
	for _, s := range strategies {
		sb.WriteString(fmt.Sprintf("- %s [%s], estimated savings %.0f\n", s.Title, s.Tier, s.EstimatedSavings))
		if s.Locked {
			sb.WriteString("  Implementation detail is locked. Do not describe how to implement it.\n")
			continue
		}
		if s.Detail != "" {
			sb.WriteString("  " + s.Detail + "\n")
		}
	}

	sb.WriteString("\n=== USER MESSAGE ===\n")
	sb.WriteString(fmt.Sprintf("%q\n\n", strings.TrimSpace(userMessage)))
	sb.WriteString("Answer the user in plain language, grounded only on the strategies above.")
	return sb.String()
}
