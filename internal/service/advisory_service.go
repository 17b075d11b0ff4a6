package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tax-advisor/internal/domain"
	"tax-advisor/internal/llm"
)

// GenerationUnavailableNarrative reemplaza la narrativa cuando ningún proveedor respondió.
const GenerationUnavailableNarrative = "A personalized explanation is temporarily unavailable. " +
	"The strategies and savings estimates above are still current."

var (
	ErrAdvisoryNotConfigured  = errors.New("advisory service not configured")
	errClassificationPanicked = errors.New("risk classification panicked")
)

// ProviderChains asigna una cadena ordenada de proveedores a cada variante.
// Si una variante no tiene cadena propia se usa la de control.
type ProviderChains map[domain.Variant][]llm.Provider

func (c ProviderChains) For(v domain.Variant) []llm.Provider {
	if chain, ok := c[v]; ok && len(chain) > 0 {
		return chain
	}
	return c[domain.VariantControl]
}

// AdvisoryService orquesta el pipeline completo de un turno.
type AdvisoryService struct {
	sessions            *SessionService
	buckets             *BucketAssigner
	scorer              ConfidenceScorer
	risk                RiskSource
	tiers               *TierClassifier
	catalog             StrategyCatalog
	router              *ProviderRouter
	chains              ProviderChains
	promptBuilder       AdvisoryPromptBuilder
	rolloutPercentage   int
	requiredDisclosures []string
	logger              *zap.Logger
}

func NewAdvisoryService(
	sessions *SessionService,
	buckets *BucketAssigner,
	risk RiskSource,
	tiers *TierClassifier,
	catalog StrategyCatalog,
	router *ProviderRouter,
	chains ProviderChains,
	rolloutPercentage int,
	requiredDisclosures []string,
	logger *zap.Logger,
) *AdvisoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = DefaultStrategyCatalog
	}
	if buckets == nil {
		buckets = NewBucketAssigner()
	}
	return &AdvisoryService{
		sessions:            sessions,
		buckets:             buckets,
		scorer:              DefaultConfidenceScorer,
		risk:                risk,
		tiers:               tiers,
		catalog:             catalog,
		router:              router,
		chains:              chains,
		promptBuilder:       DefaultAdvisoryPromptBuilder,
		rolloutPercentage:   clampPercentage(rolloutPercentage),
		requiredDisclosures: append([]string(nil), requiredDisclosures...),
		logger:              logger,
	}
}

// ProcessTurn ejecuta bucket -> sesión -> perfil -> confianza/riesgo -> tiers -> generación -> gate.
// La sesión se persiste una sola vez, al final, y solo si el turno completo terminó.
func (s *AdvisoryService) ProcessTurn(ctx context.Context, req domain.TurnRequest) (domain.TurnResponse, error) {
	if s == nil || s.sessions == nil {
		return domain.TurnResponse{}, ErrAdvisoryNotConfigured
	}
	sessionID, err := NormalizeSessionID(req.SessionID)
	if err != nil {
		return domain.TurnResponse{}, err
	}
	forced, err := domain.ParseVariant(req.ForcedVariant)
	if err != nil {
		return domain.TurnResponse{}, err
	}
	profilePatch, err := domain.ParseProfileFields(req.ProfileFields)
	if err != nil {
		return domain.TurnResponse{}, err
	}
	stickyID := strings.TrimSpace(req.StickyID)
	if stickyID == "" {
		stickyID = sessionID
	}

	var resp domain.TurnResponse
	_, err = s.sessions.WithSession(ctx, sessionID, func(sess *domain.Session) error {
		patch := domain.SessionPatch{Profile: &profilePatch}
		if sess.Bucket == nil {
			decision := s.buckets.Resolve(stickyID, s.rolloutPercentage, forced)
			patch.Bucket = &decision
		}
		if err := sess.Apply(patch); err != nil {
			return err
		}

		built, err := s.buildResponse(ctx, sess, req.Message)
		if err != nil {
			return err
		}
		resp = built
		return nil
	})
	if err != nil {
		if domain.IsInvariantViolation(err) {
			s.logger.Error("turn invariant violation", zap.String("session_id", sessionID), zap.Error(err))
		}
		return domain.TurnResponse{}, err
	}

	RecordTurn(string(resp.Bucket), resp.Status)
	s.logger.Info("turn processed",
		zap.String("session_id", sessionID),
		zap.String("bucket", string(resp.Bucket)),
		zap.String("confidence", string(resp.Confidence.Level)),
		zap.Bool("requires_review", resp.Risk.RequiresReview),
		zap.Int("strategies", len(resp.Strategies)),
		zap.Strings("status", resp.Status),
	)
	return resp, nil
}

func (s *AdvisoryService) buildResponse(ctx context.Context, sess *domain.Session, message string) (domain.TurnResponse, error) {
	profile := sess.Profile
	resp := domain.TurnResponse{
		SessionID:    sess.ID,
		Bucket:       sess.Bucket.Variant,
		Unlocked:     sess.Unlocked,
		Acknowledged: sess.Acknowledged,
	}

	resp.Confidence = s.scorer.Score(ClampCompleteness(profile.Completeness()), profile.HasComplexScenario())

	candidates := s.catalog.Candidates(profile)
	risk, riskErr := s.assessRisk(ctx, profile)
	var classified []domain.ClassifiedStrategy
	if riskErr != nil {
		if ctx.Err() != nil {
			return domain.TurnResponse{}, ctx.Err()
		}
		s.logger.Warn("risk classification unavailable, degrading to free tier",
			zap.String("session_id", sess.ID), zap.Error(riskErr))
		resp.Risk = domain.RiskAssessment{Triggers: []domain.TriggerKind{}}
		resp.Status = append(resp.Status, domain.StatusClassificationUnavailable)
		classified = AllFree(candidates)
	} else {
		resp.Risk = risk
		classified = s.tiers.ClassifyAll(candidates, risk, profile.Year())
	}

	resp.Strategies, resp.GatingShown = applyUnlockGate(classified, sess.Unlocked)

	if strings.TrimSpace(message) == "" {
		return resp, nil
	}
	if !sess.Acknowledged {
		resp.Status = append(resp.Status, domain.StatusAcknowledgmentRequired)
		return resp, nil
	}

	prompt := s.promptBuilder.BuildAdvisoryPrompt(profile, resp.Confidence, resp.Risk, resp.Strategies, message)
	result, genErr := s.generate(ctx, prompt, resp.Bucket)
	if genErr != nil {
		if ctx.Err() != nil {
			return domain.TurnResponse{}, ctx.Err()
		}
		placeholder := GenerationUnavailableNarrative
		resp.Narrative = &placeholder
		resp.Status = append(resp.Status, domain.StatusGenerationUnavailable)
		return resp, nil
	}
	narrative := cleanNarrative(result.Content)
	resp.Narrative = &narrative
	resp.ProviderUsed = &result.ProviderUsed
	return resp, nil
}

func (s *AdvisoryService) generate(ctx context.Context, prompt string, variant domain.Variant) (GenerationResult, error) {
	if s.router == nil {
		return GenerationResult{}, &GenerationError{}
	}
	return s.router.Generate(ctx, prompt, s.chains.For(variant))
}

// assessRisk aísla al orquestador de fallas del subsistema de riesgo, incluido un panic.
func (s *AdvisoryService) assessRisk(ctx context.Context, profile domain.Profile) (risk domain.RiskAssessment, err error) {
	if s.risk == nil {
		return domain.RiskAssessment{}, fmt.Errorf("risk source not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errClassificationPanicked, r)
		}
	}()
	return s.risk.AssessRisk(ctx, profile)
}

// applyUnlockGate proyecta las estrategias: el ahorro estimado siempre es visible,
// el detalle de implementación Premium solo si la sesión está desbloqueada.
func applyUnlockGate(classified []domain.ClassifiedStrategy, unlocked bool) ([]domain.StrategyView, bool) {
	views := make([]domain.StrategyView, 0, len(classified))
	gating := false
	for _, c := range classified {
		locked := c.Tier == domain.TierPremium && !unlocked
		if locked {
			gating = true
		}
		v := domain.StrategyView{
			ID:               c.ID,
			Category:         c.Category,
			Title:            c.Title,
			EstimatedSavings: c.EstimatedSavings,
			Tier:             c.Tier,
			RequiresReview:   c.RequiresReview,
			Locked:           locked,
		}
		if !locked {
			v.Detail = c.Narrative
		}
		views = append(views, v)
	}
	return views, gating
}

// Unlock desbloquea todo el contenido Premium de la sesión. Idempotente y seguro ante replays.
func (s *AdvisoryService) Unlock(ctx context.Context, sessionID string) (domain.Session, error) {
	if s == nil || s.sessions == nil {
		return domain.Session{}, ErrAdvisoryNotConfigured
	}
	return s.sessions.Unlock(ctx, sessionID)
}

// Acknowledge registra la aceptación de disclosures; habilita la generación de narrativa.
func (s *AdvisoryService) Acknowledge(ctx context.Context, sessionID string, accepted []string) (domain.Session, error) {
	if s == nil || s.sessions == nil {
		return domain.Session{}, ErrAdvisoryNotConfigured
	}
	return s.sessions.Acknowledge(ctx, sessionID, accepted, s.requiredDisclosures)
}

// GetSession devuelve el estado actual sin mutarlo.
func (s *AdvisoryService) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if s == nil || s.sessions == nil {
		return domain.Session{}, ErrAdvisoryNotConfigured
	}
	return s.sessions.Load(ctx, sessionID)
}

// RequiredDisclosures devuelve la lista configurada de disclosures obligatorias.
func (s *AdvisoryService) RequiredDisclosures() []string {
	return append([]string(nil), s.requiredDisclosures...)
}
