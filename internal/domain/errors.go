package domain

import "errors"

// Errores de entrada: se devuelven al caller y nunca son fatales.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidProfileField = errors.New("invalid profile field")
	ErrMissingDisclosures  = errors.New("missing required disclosures")
)

// Violaciones de invariantes: errores de integración, se reportan sin detalle al usuario.
var (
	ErrIllegalTransition = errors.New("illegal session state transition")
	ErrConcurrentUpdate  = errors.New("concurrent session update")
)

var ErrSessionNotFound = errors.New("session not found")

// IsInvariantViolation indica si el error corresponde a un bug de integración y no a un input del usuario.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrIllegalTransition) || errors.Is(err, ErrConcurrentUpdate)
}

// IsInputError indica si el error es atribuible al request del caller.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidProfileField) ||
		errors.Is(err, ErrMissingDisclosures)
}
