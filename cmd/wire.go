package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	orchestration "github.com/koscakluka/huddle-core/core"
	agentllm "github.com/koscakluka/huddle-core/core/agents/llm"
	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/core/llms"
	"github.com/koscakluka/huddle-core/core/llms/gemini"
	"github.com/koscakluka/huddle-core/core/llms/groq"
	"github.com/koscakluka/huddle-core/core/llms/openai"
	"github.com/koscakluka/huddle-core/core/ratelimit"
	"github.com/koscakluka/huddle-core/core/sources"
	"github.com/koscakluka/huddle-core/internal/config"
)

type app struct {
	cfg *config.Config
}

func wireApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &app{cfg: cfg}, nil
}

// installLogger makes slog write text lines at the configured level.
func (a *app) installLogger(w io.Writer) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(strings.TrimSpace(a.cfg.Log.Level))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func (a *app) llm() (llms.LLMWithGeneralPrompt, error) {
	settings := a.cfg.LLM
	if err := settings.Ready(); err != nil {
		return nil, err
	}

	switch settings.Provider {
	case config.ProviderGroq:
		return groq.NewClient(settings.APIKey, groq.WithModel(settings.Model), groq.WithBaseURL(settings.BaseURL)), nil
	case config.ProviderOpenAI:
		return openai.NewClient(settings.APIKey, openai.WithModel(settings.Model), openai.WithBaseURL(settings.BaseURL)), nil
	case config.ProviderGemini:
		return gemini.NewClient(settings.APIKey, gemini.WithModel(settings.Model), gemini.WithBaseURL(settings.BaseURL)), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, settings.Provider)
	}
}

// classifier builds the configured emergency classifier. model may be nil,
// in which case a chain degrades to the pattern table alone.
func (a *app) classifier(model llms.LLMWithGeneralPrompt) (emergency.Classifier, error) {
	patterns := emergency.NewPatternClassifier()

	switch a.cfg.Emergency.Classifier {
	case config.ClassifierPattern:
		return patterns, nil
	case config.ClassifierLLM:
		if model == nil {
			return nil, fmt.Errorf("llm emergency classifier: %w", config.ErrMissingAPIKey)
		}
		return emergency.NewLLMClassifier(model), nil
	case config.ClassifierChain:
		if model == nil {
			slog.Warn("no model configured, emergency checks use the pattern table only")
			return patterns, nil
		}
		return emergency.Chain{patterns, emergency.NewLLMClassifier(model)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownClassifier, a.cfg.Emergency.Classifier)
	}
}

// emergencyGate builds a gate that works without a model when the
// configured classifier allows it.
func (a *app) emergencyGate(limiter emergency.Limiter) (*emergency.Gate, error) {
	model, err := a.llm()
	if err != nil && !errors.Is(err, config.ErrMissingAPIKey) {
		return nil, err
	}

	classifier, err := a.classifier(model)
	if err != nil {
		return nil, err
	}
	return emergency.NewGate(classifier, emergency.WithLimiter(limiter)), nil
}

func (a *app) orchestrator() (*orchestration.Orchestrator, error) {
	model, err := a.llm()
	if err != nil {
		return nil, err
	}

	rateGate := ratelimit.NewGate(ratelimit.WithMinInterval(a.cfg.Timing.RateInterval))

	classifier, err := a.classifier(model)
	if err != nil {
		return nil, err
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithGenerator(agentllm.NewGenerator(model, agentllm.WithTemperature(a.cfg.LLM.Temperature))),
		orchestration.WithRateGate(rateGate),
		orchestration.WithEmergencyChecker(emergency.NewGate(classifier, emergency.WithLimiter(rateGate))),
		orchestration.WithTiming(orchestration.Timing{
			ReadingPause:      a.cfg.Timing.ReadingPause,
			PreSynthesisPause: a.cfg.Timing.PreSynthesisPause,
			QuestionTimeout:   a.cfg.Timing.QuestionTimeout,
		}),
	}

	if a.cfg.SourcesFile != "" {
		table, err := sources.LoadFile(a.cfg.SourcesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestration.WithSourceLookup(table))
	}

	return orchestration.NewOrchestrator(opts...), nil
}
