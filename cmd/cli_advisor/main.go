package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tax-advisor/internal/config"
	"tax-advisor/internal/domain"
	"tax-advisor/internal/llm"
	"tax-advisor/internal/repository"
	"tax-advisor/internal/service"
)

const helpText = `Comandos:
  /set campo=valor [campo=valor ...]   agrega datos al perfil (ej: /set wages=120000 jurisdictions=CA,NY)
  /ack                                  acepta las disclosures requeridas
  /unlock                               desbloquea el contenido premium
  /show                                 muestra el estado de la sesión
  /new                                  empieza una sesión nueva
  /salir                                termina
Cualquier otro texto se envía como mensaje del turno.`

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	rules, err := config.LoadRules(cfg.RulesFile, cfg.DefaultRuleSet())
	if err != nil {
		log.Fatal(err)
	}

	factory := llm.NewProviderFactory(llm.ProviderSettings{
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIModel:      cfg.OpenAIModel,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
		AnthropicModel:   cfg.AnthropicModel,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		CompatibleURL:    cfg.LLMBaseURL,
		CompatibleAPIKey: cfg.LLMAPIKey,
		CompatibleModel:  cfg.LLMModel,
	}, logger)
	chain := llm.BuildChain(cfg.ProviderOrder, factory)
	if len(chain) == 0 {
		fmt.Println("Sin proveedores configurados: se usa un mock local.")
		chain = []llm.Provider{&llm.MockClient{
			ProviderName: "mock",
			Response:     "(mock) Based on your profile, start with the free strategies listed above.",
		}}
	}

	advisory := service.NewAdvisoryService(
		service.NewSessionService(repository.NewMemorySessionRepository(), logger),
		service.NewBucketAssigner(),
		service.NewAuditRiskClassifier(rules),
		service.NewTierClassifier(rules),
		service.DefaultStrategyCatalog,
		service.NewProviderRouter(cfg.ProviderTimeout(), cfg.RouterCeiling(), logger),
		service.ProviderChains{domain.VariantControl: chain},
		cfg.RolloutPercentage,
		cfg.RequiredDisclosures,
		logger,
	)

	sessionID := uuid.NewString()
	fmt.Println("===== Tax Advisor =====")
	fmt.Printf("Sesión: %s\n%s\n", sessionID, helpText)

	for {
		fmt.Print("\nTu > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "/salir" || line == "/exit":
			return
		case line == "/help":
			fmt.Println(helpText)
		case line == "/new":
			sessionID = uuid.NewString()
			fmt.Printf("Sesión nueva: %s\n", sessionID)
		case line == "/ack":
			if _, err := advisory.Acknowledge(ctx, sessionID, advisory.RequiredDisclosures()); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println("Disclosures aceptadas.")
		case line == "/unlock":
			if _, err := advisory.Unlock(ctx, sessionID); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println("Contenido premium desbloqueado.")
		case line == "/show":
			sess, err := advisory.GetSession(ctx, sessionID)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			renderSession(os.Stdout, sess)
		case strings.HasPrefix(line, "/set"):
			fields := parseAssignments(strings.TrimPrefix(line, "/set"))
			if len(fields) == 0 {
				fmt.Println("uso: /set campo=valor")
				continue
			}
			runTurn(ctx, advisory, domain.TurnRequest{SessionID: sessionID, ProfileFields: fields})
		case strings.HasPrefix(line, "/"):
			fmt.Println("Comando desconocido. /help para ver opciones.")
		default:
			runTurn(ctx, advisory, domain.TurnRequest{SessionID: sessionID, Message: line})
		}
	}
}

func runTurn(ctx context.Context, advisory *service.AdvisoryService, req domain.TurnRequest) {
	resp, err := advisory.ProcessTurn(ctx, req)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	renderTurn(os.Stdout, resp)
}

// parseAssignments interpreta "a=1 b=x,y" como campos de perfil crudos.
func parseAssignments(raw string) map[string]any {
	out := make(map[string]any)
	for _, token := range strings.Fields(raw) {
		key, value, ok := strings.Cut(token, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func renderTurn(w io.Writer, resp domain.TurnResponse) {
	fmt.Fprintf(w, "[bucket=%s confianza=%s", resp.Bucket, resp.Confidence.Level)
	if resp.Confidence.Reason != nil {
		fmt.Fprintf(w, " (%s)", *resp.Confidence.Reason)
	}
	fmt.Fprintln(w, "]")
	if resp.Risk.RequiresReview {
		triggers := make([]string, 0, len(resp.Risk.Triggers))
		for _, t := range resp.Risk.Triggers {
			triggers = append(triggers, string(t))
		}
		fmt.Fprintf(w, "Revisión profesional recomendada: %s\n", strings.Join(triggers, ", "))
	}
	for _, s := range resp.Strategies {
		lock := ""
		if s.Locked {
			lock = " [bloqueada]"
		}
		fmt.Fprintf(w, "- %s (%s) ahorro estimado %.0f%s\n", s.Title, s.Tier, s.EstimatedSavings, lock)
		if s.Detail != "" {
			fmt.Fprintf(w, "    %s\n", s.Detail)
		}
	}
	if resp.GatingShown {
		fmt.Fprintln(w, "Usa /unlock para ver el detalle de las estrategias premium.")
	}
	if resp.Narrative != nil {
		provider := "-"
		if resp.ProviderUsed != nil {
			provider = *resp.ProviderUsed
		}
		fmt.Fprintf(w, "Asesor (%s) > %s\n", provider, *resp.Narrative)
	}
	if len(resp.Status) > 0 {
		fmt.Fprintf(w, "status: %s\n", strings.Join(resp.Status, ", "))
	}
}

func renderSession(w io.Writer, sess domain.Session) {
	bucket := "sin asignar"
	if sess.Bucket != nil {
		bucket = string(sess.Bucket.Variant)
	}
	fmt.Fprintf(w, "id=%s bucket=%s unlocked=%t acknowledged=%t version=%d\n",
		sess.ID, bucket, sess.Unlocked, sess.Acknowledged, sess.Version)
	fmt.Fprintf(w, "completitud=%.0f%% ingreso agregado=%.0f jurisdicciones=%s\n",
		sess.Profile.Completeness()*100, sess.Profile.AggregateIncome(), strings.Join(sess.Profile.Jurisdictions, ","))
}
