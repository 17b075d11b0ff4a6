package domain

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Strategy es una estrategia fiscal candidata. Se recalcula en cada turno y no persiste.
type Strategy struct {
	ID               string  `json:"id"`
	Category         string  `json:"category"`
	Title            string  `json:"title"`
	EstimatedSavings float64 `json:"estimated_savings"`
	RiskContribution int     `json:"risk_contribution"` // 0-100
	Narrative        string  `json:"narrative"`
}

// ClassifiedStrategy agrega los campos derivados por el clasificador de tiers.
type ClassifiedStrategy struct {
	Strategy
	Tier           Tier `json:"tier"`
	RequiresReview bool `json:"requires_review"`
}
