package main

import (
	"context"
	"errors"
	"fmt"

	"tax-advisor/internal/config"
	"tax-advisor/internal/domain"
	"tax-advisor/internal/llm"
	"tax-advisor/internal/repository"
	"tax-advisor/internal/service"
)

// checkResult es una afirmación evaluada dentro de un escenario.
type checkResult struct {
	Check  string
	OK     bool
	Detail string
}

// Scenario agrupa una corrida del pipeline y sus afirmaciones.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, rules *config.Rules) ([]checkResult, error)
}

func check(name string, ok bool, format string, args ...any) checkResult {
	return checkResult{Check: name, OK: ok, Detail: fmt.Sprintf(format, args...)}
}

func scenarios() []Scenario {
	return []Scenario{
		{Name: "Bucket monótono y estable", Run: runBucketScenario},
		{Name: "Unlock todo o nada", Run: runUnlockScenario},
		{Name: "Fallback de proveedores", Run: runFallbackScenario},
		{Name: "Degradación de clasificación", Run: runClassificationScenario},
		{Name: "Disclosures requeridas", Run: runAcknowledgmentScenario},
	}
}

func runBucketScenario(ctx context.Context, rules *config.Rules) ([]checkResult, error) {
	assigner := service.NewBucketAssigner()
	regressions := 0
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("sticky-%d", i)
		prev := domain.VariantControl
		for pct := 0; pct <= 100; pct += 10 {
			v := assigner.Assign(id, pct).Variant
			if prev == domain.VariantTreatment && v != domain.VariantTreatment {
				regressions++
			}
			prev = v
		}
	}

	repo := repository.NewMemorySessionRepository()
	low := newPipeline(repo, rules)
	first, err := low.build().ProcessTurn(ctx, domain.TurnRequest{SessionID: "rollout-change"})
	if err != nil {
		return nil, err
	}
	high := newPipeline(repo, rules)
	high.rollout = 100
	second, err := high.build().ProcessTurn(ctx, domain.TurnRequest{SessionID: "rollout-change"})
	if err != nil {
		return nil, err
	}

	return []checkResult{
		check("monotonía al subir el rollout", regressions == 0, "%d regresiones", regressions),
		check("bucket persistido no cambia con el rollout", first.Bucket == second.Bucket,
			"%s -> %s", first.Bucket, second.Bucket),
	}, nil
}

func runUnlockScenario(ctx context.Context, rules *config.Rules) ([]checkResult, error) {
	svc := newPipeline(repository.NewMemorySessionRepository(), rules).build()
	const id = "unlock-flow"

	before, err := svc.ProcessTurn(ctx, domain.TurnRequest{
		SessionID:     id,
		ProfileFields: map[string]any{"wages": 260000, "rental_income": 40000},
	})
	if err != nil {
		return nil, err
	}
	lockedBefore := countLocked(before.Strategies)

	if _, err := svc.Unlock(ctx, id); err != nil {
		return nil, err
	}
	if _, err := svc.Unlock(ctx, id); err != nil {
		return nil, err
	}

	after, err := svc.ProcessTurn(ctx, domain.TurnRequest{SessionID: id, ProfileFields: map[string]any{"has_digital_assets": true}})
	if err != nil {
		return nil, err
	}

	return []checkResult{
		check("premium bloqueado antes del unlock", lockedBefore == len(before.Strategies) && before.GatingShown,
			"%d/%d bloqueadas", lockedBefore, len(before.Strategies)),
		check("nada bloqueado después del unlock", countLocked(after.Strategies) == 0 && !after.GatingShown,
			"%d bloqueadas", countLocked(after.Strategies)),
		check("detalle visible después del unlock", allHaveDetail(after.Strategies), "%d estrategias", len(after.Strategies)),
	}, nil
}

func runFallbackScenario(ctx context.Context, rules *config.Rules) ([]checkResult, error) {
	p := newPipeline(repository.NewMemorySessionRepository(), rules)
	backup := &llm.MockClient{ProviderName: "tertiary", Response: "served by the third provider"}
	p.chain = []llm.Provider{slowProvider("primary"), slowProvider("secondary"), backup}
	svc := p.build()
	if _, err := svc.Acknowledge(ctx, "fallback", p.required); err != nil {
		return nil, err
	}
	served, err := svc.ProcessTurn(ctx, domain.TurnRequest{SessionID: "fallback", Message: "help"})
	if err != nil {
		return nil, err
	}

	p.chain = []llm.Provider{&llm.MockClient{ProviderName: "down", Err: errors.New("503")}, slowProvider("slow")}
	svc = p.build()
	if _, err := svc.Acknowledge(ctx, "exhausted", p.required); err != nil {
		return nil, err
	}
	exhausted, err := svc.ProcessTurn(ctx, domain.TurnRequest{SessionID: "exhausted", Message: "help"})
	if err != nil {
		return nil, err
	}

	used := ""
	if served.ProviderUsed != nil {
		used = *served.ProviderUsed
	}
	return []checkResult{
		check("tercer proveedor atiende tras dos timeouts", used == "tertiary", "provider_used=%q", used),
		check("cadena agotada no falla el turno", hasStatus(exhausted.Status, domain.StatusGenerationUnavailable) &&
			exhausted.Narrative != nil && *exhausted.Narrative == service.GenerationUnavailableNarrative,
			"status=%v", exhausted.Status),
	}, nil
}

func runClassificationScenario(ctx context.Context, rules *config.Rules) ([]checkResult, error) {
	p := newPipeline(repository.NewMemorySessionRepository(), rules)
	p.risk = brokenRiskSource{}
	resp, err := p.build().ProcessTurn(ctx, domain.TurnRequest{
		SessionID:     "no-risk",
		ProfileFields: map[string]any{"wages": 300000, "self_employment_income": 80000},
	})
	if err != nil {
		return nil, err
	}
	premium := 0
	for _, s := range resp.Strategies {
		if s.Tier == domain.TierPremium {
			premium++
		}
	}
	return []checkResult{
		check("estrategias degradan a free", premium == 0 && !resp.GatingShown, "%d premium", premium),
		check("flag classification_unavailable", hasStatus(resp.Status, domain.StatusClassificationUnavailable),
			"status=%v", resp.Status),
	}, nil
}

func runAcknowledgmentScenario(ctx context.Context, rules *config.Rules) ([]checkResult, error) {
	p := newPipeline(repository.NewMemorySessionRepository(), rules)
	provider := &llm.MockClient{ProviderName: "primary", Response: "ok"}
	p.chain = []llm.Provider{provider}
	svc := p.build()

	blocked, err := svc.ProcessTurn(ctx, domain.TurnRequest{SessionID: "ack", Message: "hello"})
	if err != nil {
		return nil, err
	}
	_, partialErr := svc.Acknowledge(ctx, "ack", nil)
	if _, err := svc.Acknowledge(ctx, "ack", p.required); err != nil {
		return nil, err
	}
	allowed, err := svc.ProcessTurn(ctx, domain.TurnRequest{SessionID: "ack", Message: "hello"})
	if err != nil {
		return nil, err
	}

	return []checkResult{
		check("sin aceptación no hay narrativa", blocked.Narrative == nil &&
			hasStatus(blocked.Status, domain.StatusAcknowledgmentRequired), "status=%v", blocked.Status),
		check("aceptación parcial rechazada", errors.Is(partialErr, domain.ErrMissingDisclosures), "err=%v", partialErr),
		check("con aceptación se genera narrativa", allowed.Narrative != nil && provider.Calls() == 1,
			"llamadas=%d", provider.Calls()),
	}, nil
}

func countLocked(views []domain.StrategyView) int {
	n := 0
	for _, v := range views {
		if v.Locked {
			n++
		}
	}
	return n
}

func allHaveDetail(views []domain.StrategyView) bool {
	for _, v := range views {
		if v.Detail == "" {
			return false
		}
	}
	return len(views) > 0
}

func hasStatus(statuses []string, want string) bool {
	for _, s := range statuses {
		if s == want {
			return true
		}
	}
	return false
}
