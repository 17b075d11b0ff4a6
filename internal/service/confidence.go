package service

import (
	"math"

	"tax-advisor/internal/domain"
)

const (
	ReasonComplexScenario   = "complex scenario"
	ReasonIncompleteProfile = "incomplete profile"
	ReasonInsufficientData  = "insufficient data"
)

// ConfidenceScorer es una función pura de (completitud, complejidad).
type ConfidenceScorer struct{}

// DefaultConfidenceScorer permite uso directo sin instanciar.
var DefaultConfidenceScorer = ConfidenceScorer{}

// Score aplica la política en orden; gana la primera regla que matchea.
// Precondición: completeness ya viene acotada a [0,1] (ver ClampCompleteness).
func (ConfidenceScorer) Score(completeness float64, complex bool) domain.ConfidenceResult {
	switch {
	case completeness >= 0.70 && !complex:
		return domain.ConfidenceResult{Level: domain.ConfidenceHigh}
	case completeness >= 0.40:
		reason := ReasonIncompleteProfile
		if complex {
			reason = ReasonComplexScenario
		}
		return domain.ConfidenceResult{Level: domain.ConfidenceMedium, Reason: &reason}
	default:
		reason := ReasonInsufficientData
		return domain.ConfidenceResult{Level: domain.ConfidenceLow, Reason: &reason}
	}
}

// ClampCompleteness sanea la entrada del scorer.
func ClampCompleteness(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
