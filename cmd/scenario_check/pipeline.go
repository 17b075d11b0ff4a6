package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tax-advisor/internal/config"
	"tax-advisor/internal/domain"
	"tax-advisor/internal/llm"
	"tax-advisor/internal/repository"
	"tax-advisor/internal/service"
)

// pipeline arma un orquestador completo sobre un store compartido.
type pipeline struct {
	repo     repository.SessionRepository
	rules    *config.Rules
	rollout  int
	chain    []llm.Provider
	risk     service.RiskSource
	attempt  time.Duration
	ceiling  time.Duration
	required []string
}

func newPipeline(repo repository.SessionRepository, rules *config.Rules) pipeline {
	return pipeline{
		repo:     repo,
		rules:    rules,
		attempt:  50 * time.Millisecond,
		ceiling:  400 * time.Millisecond,
		required: []string{"not_legal_advice"},
		chain:    []llm.Provider{&llm.MockClient{ProviderName: "primary", Response: "Here is what I would look at first."}},
	}
}

func (p pipeline) build() *service.AdvisoryService {
	risk := p.risk
	if risk == nil {
		risk = service.NewAuditRiskClassifier(p.rules)
	}
	return service.NewAdvisoryService(
		service.NewSessionService(p.repo, zap.NewNop()),
		service.NewBucketAssigner(),
		risk,
		service.NewTierClassifier(p.rules),
		service.DefaultStrategyCatalog,
		service.NewProviderRouter(p.attempt, p.ceiling, zap.NewNop()),
		service.ProviderChains{domain.VariantControl: p.chain},
		p.rollout,
		p.required,
		zap.NewNop(),
	)
}

// brokenRiskSource simula una caída del subsistema de riesgo.
type brokenRiskSource struct{}

func (brokenRiskSource) AssessRisk(context.Context, domain.Profile) (domain.RiskAssessment, error) {
	return domain.RiskAssessment{}, errors.New("risk rules unavailable")
}

func slowProvider(name string) *llm.MockClient {
	return &llm.MockClient{ProviderName: name, Response: "too late", Delay: 5 * time.Second}
}
