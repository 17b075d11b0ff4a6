package service

import (
	"strings"

	"tax-advisor/internal/config"
	"tax-advisor/internal/domain"
)

// TierClassifier etiqueta cada estrategia como Free o Premium.
type TierClassifier struct {
	rules *config.Rules
}

func NewTierClassifier(rules *config.Rules) *TierClassifier {
	return &TierClassifier{rules: rules}
}

// Classify: Premium si el perfil requiere revisión, si el riesgo propio supera el umbral
// o si la categoría está en la lista cerrada de categorías premium.
func (c *TierClassifier) Classify(strategy domain.Strategy, risk domain.RiskAssessment, taxYear int) domain.Tier {
	rs := c.ruleSet(taxYear)
	if risk.RequiresReview {
		return domain.TierPremium
	}
	if strategy.RiskContribution >= rs.PremiumRiskThreshold {
		return domain.TierPremium
	}
	if isPremiumCategory(strategy.Category, rs.PremiumCategories) {
		return domain.TierPremium
	}
	return domain.TierFree
}

// ClassifyAll clasifica la lista completa de candidatas de un turno.
func (c *TierClassifier) ClassifyAll(strategies []domain.Strategy, risk domain.RiskAssessment, taxYear int) []domain.ClassifiedStrategy {
	rs := c.ruleSet(taxYear)
	out := make([]domain.ClassifiedStrategy, 0, len(strategies))
	for _, s := range strategies {
		out = append(out, domain.ClassifiedStrategy{
			Strategy:       s,
			Tier:           c.Classify(s, risk, taxYear),
			RequiresReview: risk.RequiresReview || s.RiskContribution >= rs.PremiumRiskThreshold,
		})
	}
	return out
}

// AllFree es la degradación cuando el subsistema de riesgo no está disponible:
// fail-open sobre la clasificación, nunca fail-closed sobre el acceso.
func AllFree(strategies []domain.Strategy) []domain.ClassifiedStrategy {
	out := make([]domain.ClassifiedStrategy, 0, len(strategies))
	for _, s := range strategies {
		out = append(out, domain.ClassifiedStrategy{Strategy: s, Tier: domain.TierFree})
	}
	return out
}

func (c *TierClassifier) ruleSet(taxYear int) config.RuleSet {
	if c == nil {
		return (*config.Rules)(nil).For(taxYear)
	}
	return c.rules.For(taxYear)
}

func isPremiumCategory(category string, premium []string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, p := range premium {
		if p == category {
			return true
		}
	}
	return false
}
