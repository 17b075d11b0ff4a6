package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tax-advisor/internal/llm"
)

var (
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrRouterCeilingExceeded = errors.New("router ceiling exceeded")
)

// AttemptOutcome describe un intento contra un proveedor.
type AttemptOutcome struct {
	Provider string
	Duration time.Duration
	TimedOut bool
	Err      error
}

// GenerationResult es el resultado exitoso del router.
type GenerationResult struct {
	Content      string
	ProviderUsed string
	Attempts     []AttemptOutcome
}

// GenerationError es el fallo terminal del router; siempre matchea ErrGenerationUnavailable.
type GenerationError struct {
	Attempts        []AttemptOutcome
	CeilingExceeded bool
	// Cause es el error del ctx del caller si el turno fue cancelado.
	Cause error
}

func (e *GenerationError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrGenerationUnavailable.Error())
	if e.CeilingExceeded {
		sb.WriteString(": ")
		sb.WriteString(ErrRouterCeilingExceeded.Error())
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, "; %s: %v", a.Provider, a.Err)
	}
	return sb.String()
}

func (e *GenerationError) Unwrap() []error {
	errs := []error{ErrGenerationUnavailable}
	if e.CeilingExceeded {
		errs = append(errs, ErrRouterCeilingExceeded)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// ProviderRouter recorre una lista ordenada de proveedores con timeout por intento
// y un techo total por llamada. Cada proveedor se intenta como máximo una vez.
type ProviderRouter struct {
	perAttempt time.Duration
	ceiling    time.Duration
	logger     *zap.Logger
}

func NewProviderRouter(perAttempt, ceiling time.Duration, logger *zap.Logger) *ProviderRouter {
	if perAttempt <= 0 {
		perAttempt = 8 * time.Second
	}
	if ceiling <= 0 {
		ceiling = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderRouter{perAttempt: perAttempt, ceiling: ceiling, logger: logger}
}

// Generate devuelve el contenido del primer proveedor que responde. Timeouts y errores
// avanzan al siguiente proveedor; al agotarse la lista devuelve *GenerationError.
func (r *ProviderRouter) Generate(ctx context.Context, prompt string, providers []llm.Provider) (GenerationResult, error) {
	budgetCtx, cancel := context.WithTimeout(ctx, r.ceiling)
	defer cancel()

	var attempts []AttemptOutcome
	tried := make(map[string]struct{}, len(providers))

	for _, p := range providers {
		if p == nil {
			continue
		}
		name := p.Name()
		if _, ok := tried[name]; ok {
			continue
		}
		if budgetCtx.Err() != nil {
			break
		}
		tried[name] = struct{}{}

		outcome, content := r.attempt(budgetCtx, p, prompt)
		attempts = append(attempts, outcome)

		if outcome.Err == nil {
			RecordProviderAttempt(name, "success", outcome.Duration.Seconds())
			r.logger.Debug("provider served request",
				zap.String("provider", name),
				zap.Int("attempt", len(attempts)),
				zap.Duration("latency", outcome.Duration),
			)
			return GenerationResult{Content: content, ProviderUsed: name, Attempts: attempts}, nil
		}

		result := "error"
		if outcome.TimedOut {
			result = "timeout"
		}
		RecordProviderAttempt(name, result, outcome.Duration.Seconds())
		r.logger.Debug("provider attempt failed",
			zap.String("provider", name),
			zap.String("outcome", result),
			zap.Error(outcome.Err),
		)

		if ctx.Err() != nil {
			return GenerationResult{}, &GenerationError{Attempts: attempts, Cause: ctx.Err()}
		}
	}

	if ctx.Err() != nil {
		return GenerationResult{}, &GenerationError{Attempts: attempts, Cause: ctx.Err()}
	}

	genErr := &GenerationError{Attempts: attempts}
	reason := "providers"
	switch {
	case len(attempts) == 0 && budgetCtx.Err() == nil:
		reason = "empty"
	case errors.Is(budgetCtx.Err(), context.DeadlineExceeded):
		genErr.CeilingExceeded = true
		reason = "ceiling"
	}
	RecordRouterExhausted(reason)
	if reason != "empty" {
		r.logger.Warn("all providers failed",
			zap.Int("attempts", len(attempts)),
			zap.Bool("ceiling_exceeded", genErr.CeilingExceeded),
		)
	}
	return GenerationResult{}, genErr
}

type providerReply struct {
	content string
	err     error
}

// attempt ejecuta un intento acotado. Si el proveedor ignora el ctx, el router no lo espera.
func (r *ProviderRouter) attempt(parent context.Context, p llm.Provider, prompt string) (AttemptOutcome, string) {
	attemptCtx, cancel := context.WithTimeout(parent, r.perAttempt)
	defer cancel()

	start := time.Now()
	done := make(chan providerReply, 1)
	go func() {
		// Un panic del backend cuenta como intento fallido; done tiene buffer 1.
		defer func() {
			if rec := recover(); rec != nil {
				done <- providerReply{err: fmt.Errorf("provider %s panicked: %v", p.Name(), rec)}
			}
		}()
		content, err := p.Generate(attemptCtx, prompt)
		done <- providerReply{content: content, err: err}
	}()

	outcome := AttemptOutcome{Provider: p.Name()}
	var reply providerReply
	select {
	case reply = <-done:
	case <-attemptCtx.Done():
		reply = providerReply{err: attemptCtx.Err()}
	}
	outcome.Duration = time.Since(start)

	if reply.err == nil && strings.TrimSpace(reply.content) == "" {
		reply.err = llm.ErrEmptyResponse
	}
	if reply.err != nil {
		outcome.Err = reply.err
		outcome.TimedOut = errors.Is(reply.err, context.DeadlineExceeded) ||
			errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		return outcome, ""
	}
	return outcome, reply.content
}
