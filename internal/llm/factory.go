package llm

import (
	"strings"

	"go.uber.org/zap"
)

// Nombres de backend aceptados en PROVIDER_ORDER.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderCompatible = "compatible"
)

// ProviderSettings agrupa credenciales y modelos de todos los backends.
type ProviderSettings struct {
	OpenAIAPIKey     string
	OpenAIModel      string
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
	CompatibleURL    string
	CompatibleAPIKey string
	CompatibleModel  string
}

// NewProviderFactory construye cada backend una sola vez. Los que no tienen
// credenciales quedan fuera de la cadena con un warning.
func NewProviderFactory(s ProviderSettings, logger *zap.Logger) ProviderFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := make(map[string]Provider)
	return func(name string) Provider {
		name = strings.ToLower(strings.TrimSpace(name))
		if p, ok := cache[name]; ok {
			return p
		}
		var (
			p   Provider
			err error
		)
		switch name {
		case ProviderOpenAI:
			var op *OpenAIProvider
			if op, err = NewOpenAIProvider(s.OpenAIAPIKey, s.OpenAIModel); err == nil {
				p = op
			}
		case ProviderAnthropic:
			var ap *AnthropicProvider
			if ap, err = NewAnthropicProvider(s.AnthropicBaseURL, s.AnthropicAPIKey, s.AnthropicModel); err == nil {
				p = ap
			}
		case ProviderCompatible:
			if strings.TrimSpace(s.CompatibleURL) == "" {
				err = ErrProviderNotConfigured
			} else {
				p = NewHTTPClient(ProviderCompatible, s.CompatibleURL, s.CompatibleAPIKey, s.CompatibleModel, logger)
			}
		default:
			logger.Warn("unknown llm provider in chain", zap.String("provider", name))
			return nil
		}
		if err != nil {
			logger.Warn("llm provider skipped", zap.String("provider", name), zap.Error(err))
			return nil
		}
		cache[name] = p
		return p
	}
}
