package service

import (
	"context"

	"tax-advisor/internal/config"
	"tax-advisor/internal/domain"
)

// RiskSource abstrae el subsistema de riesgo para que el orquestador pueda degradar si falla.
type RiskSource interface {
	AssessRisk(ctx context.Context, profile domain.Profile) (domain.RiskAssessment, error)
}

// AuditRiskClassifier marca perfiles que requieren revisión profesional.
type AuditRiskClassifier struct {
	rules *config.Rules
}

func NewAuditRiskClassifier(rules *config.Rules) *AuditRiskClassifier {
	return &AuditRiskClassifier{rules: rules}
}

// Assess es total y sin efectos: los campos ausentes cuentan como cero.
// Reporta todos los triggers que matchean, en orden fijo.
func (c *AuditRiskClassifier) Assess(profile domain.Profile) domain.RiskAssessment {
	var rs config.RuleSet
	if c != nil {
		rs = c.rules.For(profile.Year())
	} else {
		rs = (*config.Rules)(nil).For(profile.Year())
	}

	triggers := make([]domain.TriggerKind, 0, 5)
	if profile.AggregateIncome() > rs.HighIncomeThreshold {
		triggers = append(triggers, domain.TriggerHighIncome)
	}
	if len(profile.Jurisdictions) > 1 {
		triggers = append(triggers, domain.TriggerMultiJurisdiction)
	}
	if profile.DigitalAssets() {
		triggers = append(triggers, domain.TriggerDigitalAssets)
	}
	if domain.Num(profile.ForeignIncome) != 0 {
		triggers = append(triggers, domain.TriggerForeignIncome)
	}
	if domain.Num(profile.PassiveLossBalance) < 0 {
		triggers = append(triggers, domain.TriggerPassiveLoss)
	}
	return domain.RiskAssessment{
		RequiresReview: len(triggers) > 0,
		Triggers:       triggers,
	}
}

// AssessRisk adapta Assess a RiskSource; nunca devuelve error.
func (c *AuditRiskClassifier) AssessRisk(_ context.Context, profile domain.Profile) (domain.RiskAssessment, error) {
	return c.Assess(profile), nil
}
