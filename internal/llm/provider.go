package llm

import (
	"context"
	"errors"
	"strings"
)

// Provider es cualquier backend capaz de generar texto a partir de un prompt.
// El timeout por intento llega vía ctx.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

var (
	ErrProviderNotConfigured = errors.New("llm provider not configured")
	ErrEmptyResponse         = errors.New("llm empty response")
)

// ProviderFactory construye un proveedor por nombre; devuelve nil si falta configuración.
type ProviderFactory func(name string) Provider

// BuildChain resuelve una lista ordenada de nombres a proveedores, salteando los no configurados
// y los duplicados.
func BuildChain(names []string, factory ProviderFactory) []Provider {
	out := make([]Provider, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		if p := factory(n); p != nil {
			out = append(out, p)
		}
	}
	return out
}
