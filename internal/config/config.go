package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionTTLHours int `env:"SESSION_TTL_HOURS" envDefault:"72"`

	// TurnRatePerMinute en 0 deshabilita la limitación de turnos por sesión.
	TurnRatePerMinute int `env:"TURN_RATE_PER_MINUTE" envDefault:"30"`
	TurnBurst         int `env:"TURN_BURST" envDefault:"10"`

	// RolloutPercentage se lee una sola vez y se pasa explícitamente al asignador de buckets.
	RolloutPercentage    int      `env:"ROLLOUT_PERCENTAGE" envDefault:"0"`
	HighIncomeThreshold  float64  `env:"HIGH_INCOME_THRESHOLD" envDefault:"200000"`
	PremiumRiskThreshold int      `env:"PREMIUM_RISK_THRESHOLD" envDefault:"20"`
	PremiumCategories    []string `env:"PREMIUM_CATEGORIES" envSeparator:"," envDefault:"entity_change,multi_step,timing"`
	RequiredDisclosures  []string `env:"REQUIRED_DISCLOSURES" envSeparator:"," envDefault:"not_legal_advice,cpa_review_recommended,estimates_only"`
	RulesFile            string   `env:"RULES_FILE"`

	ProviderOrder          []string `env:"PROVIDER_ORDER" envSeparator:"," envDefault:"openai,anthropic,compatible"`
	TreatmentProviderOrder []string `env:"TREATMENT_PROVIDER_ORDER" envSeparator:","`
	ProviderTimeoutMS      int      `env:"PROVIDER_TIMEOUT_MS" envDefault:"8000"`
	RouterCeilingMS        int      `env:"ROUTER_CEILING_MS" envDefault:"20000"`

	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-haiku-latest"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`
	LLMBaseURL       string `env:"LLM_BASE_URL"`
	LLMAPIKey        string `env:"LLM_API_KEY"`
	LLMModel         string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.RolloutPercentage < 0 {
		c.RolloutPercentage = 0
	}
	if c.RolloutPercentage > 100 {
		c.RolloutPercentage = 100
	}
	c.PremiumCategories = cleanList(c.PremiumCategories)
	c.RequiredDisclosures = cleanList(c.RequiredDisclosures)
	c.ProviderOrder = cleanList(c.ProviderOrder)
	c.TreatmentProviderOrder = cleanList(c.TreatmentProviderOrder)
}

// ProviderTimeout devuelve el timeout por intento de proveedor.
func (c *Config) ProviderTimeout() time.Duration {
	if c.ProviderTimeoutMS <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// RouterCeiling devuelve el presupuesto total del router para una llamada.
func (c *Config) RouterCeiling() time.Duration {
	if c.RouterCeilingMS <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.RouterCeilingMS) * time.Millisecond
}

// SessionTTL devuelve el TTL aplicado por los stores que lo soportan.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// DefaultRuleSet arma el conjunto de reglas por defecto a partir del entorno.
func (c *Config) DefaultRuleSet() RuleSet {
	return RuleSet{
		HighIncomeThreshold:  c.HighIncomeThreshold,
		PremiumRiskThreshold: c.PremiumRiskThreshold,
		PremiumCategories:    append([]string(nil), c.PremiumCategories...),
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
