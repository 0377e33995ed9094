// Package llm produces specialist statements, follow-up questions and the
// final synthesis with a language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

// noQuestion is how a model declines to ask a follow-up question in free
// text mode.
const noQuestion = "NONE"

type followUp struct {
	ShouldAsk bool   `json:"shouldAsk" jsonschema:"title=Should ask,description=True when a follow-up question would change the assessment"`
	Question  string `json:"question" jsonschema:"title=Question,description=One short question for the patient or empty"`
}

type Generator struct {
	llm         llms.LLMWithGeneralPrompt
	temperature *float64
}

type GeneratorOption func(*Generator)

func WithTemperature(temperature float64) GeneratorOption {
	return func(g *Generator) {
		g.temperature = &temperature
	}
}

func NewGenerator(llm llms.LLMWithGeneralPrompt, opts ...GeneratorOption) *Generator {
	g := &Generator{llm: llm}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) GenerateRoleUtterance(ctx context.Context, role conversations.Role, turn conversations.TurnContext) (string, error) {
	ctx, span := tracer.Start(ctx, "generate role utterance", trace.WithAttributes(attribute.String("role", string(role.ID))))
	defer span.End()

	systemPrompt, err := systemPromptFor(role)
	if err != nil {
		return "", recordError(span, err)
	}
	prompt, err := casePrompt(turn, roleInstruction)
	if err != nil {
		return "", recordError(span, err)
	}

	text, err := g.prompt(ctx, prompt, systemPrompt)
	if err != nil {
		return "", recordError(span, fmt.Errorf("failed to generate %s statement: %w", role.ID, err))
	}
	return text, nil
}

func (g *Generator) GenerateSynthesis(ctx context.Context, turn conversations.TurnContext) (string, error) {
	ctx, span := tracer.Start(ctx, "generate synthesis")
	defer span.End()

	systemPrompt, err := render("consensus.tmpl", nil)
	if err != nil {
		return "", recordError(span, err)
	}
	prompt, err := casePrompt(turn, synthesisInstruction)
	if err != nil {
		return "", recordError(span, err)
	}

	text, err := g.prompt(ctx, prompt, systemPrompt)
	if err != nil {
		return "", recordError(span, fmt.Errorf("failed to generate synthesis: %w", err))
	}
	return text, nil
}

// GenerateFollowUpQuestion returns the question the role wants to ask the
// participant, or "" when it has none.
func (g *Generator) GenerateFollowUpQuestion(ctx context.Context, role conversations.Role, turn conversations.TurnContext) (string, error) {
	ctx, span := tracer.Start(ctx, "generate follow-up question", trace.WithAttributes(attribute.String("role", string(role.ID))))
	defer span.End()

	if g.llm == nil {
		return "", recordError(span, errors.New("no language model configured"))
	}
	prompt, err := casePrompt(turn, followUpInstruction)
	if err != nil {
		return "", recordError(span, err)
	}

	switch llm := g.llm.(type) {
	case llms.LLMWithStructuredPrompt:
		systemPrompt, err := render("followupInstr.tmpl", role)
		if err != nil {
			return "", recordError(span, err)
		}

		resp := followUp{}
		opts := []llms.StructuredPromptOption{
			llms.WithSystemPrompt(systemPrompt),
			llms.WithSchemaName("follow_up_question"),
		}
		if g.temperature != nil {
			opts = append(opts, llms.WithTemperature(*g.temperature))
		}
		if err := llm.PromptWithStructure(ctx, prompt, &resp, opts...); err != nil {
			return "", recordError(span, fmt.Errorf("failed to generate follow-up question: %w", err))
		}
		if !resp.ShouldAsk {
			logger.DebugContext(ctx, "role has no follow-up question", "role", role.ID)
			return "", nil
		}
		return strings.TrimSpace(resp.Question), nil

	default:
		systemPrompt, err := render("followupGeneralInstr.tmpl", role)
		if err != nil {
			return "", recordError(span, err)
		}

		response, err := g.llm.Prompt(ctx, prompt, g.generalOptions(systemPrompt)...)
		if err != nil {
			return "", recordError(span, fmt.Errorf("failed to generate follow-up question: %w", err))
		}
		return parseQuestion(response.Content), nil
	}
}

func (g *Generator) prompt(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if g.llm == nil {
		return "", errors.New("no language model configured")
	}

	response, err := g.llm.Prompt(ctx, prompt, g.generalOptions(systemPrompt)...)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *Generator) generalOptions(systemPrompt string) []llms.GeneralPromptOption {
	opts := []llms.GeneralPromptOption{llms.WithSystemPrompt(systemPrompt)}
	if g.temperature != nil {
		opts = append(opts, llms.WithTemperature(*g.temperature))
	}
	return opts
}

// parseQuestion takes the first non-empty line of a free text answer.
func parseQuestion(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if strings.TrimRight(upper, ".!") == noQuestion || strings.HasPrefix(upper, noQuestion+" ") {
			return ""
		}
		return line
	}
	return ""
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
