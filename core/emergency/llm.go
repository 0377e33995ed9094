package emergency

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/koscakluka/huddle-core/core/llms"
	"github.com/koscakluka/huddle-core/internal/utils"
)

//go:embed redFlagsInstr.tmpl
var redFlagsStructuredSystemPrompt string

//go:embed redFlagsGeneralInstr.tmpl
var redFlagsGeneralSystemPrompt string

type assessment struct {
	IsEmergency bool   `json:"isEmergency" jsonschema:"title=Is emergency,description=True only when the symptoms need immediate emergency care"`
	Condition   string `json:"condition" jsonschema:"title=Condition,description=Brief description of the suspected emergency or empty"`
	Reasoning   string `json:"reasoning" jsonschema:"title=Reasoning,description=Why this is or is not an emergency"`
}

// LLMClassifier asks a model whether the case text describes an emergency.
// Structured output is used when the model supports it.
type LLMClassifier struct {
	llm llms.LLMWithGeneralPrompt
}

func NewLLMClassifier(llm llms.LLMWithGeneralPrompt) *LLMClassifier {
	return &LLMClassifier{llm: llm}
}

func (c *LLMClassifier) Classify(ctx context.Context, caseText string) (Result, error) {
	prompt := fmt.Sprintf("Analyze these symptoms for emergency red flags:\n\n%q", caseText)

	switch llm := c.llm.(type) {
	case llms.LLMWithStructuredPrompt:
		resp := assessment{}
		if err := llm.PromptWithStructure(ctx, prompt, &resp,
			llms.WithSystemPrompt(redFlagsStructuredSystemPrompt),
			llms.WithSchemaName("emergency_assessment"),
		); err != nil {
			return Result{}, fmt.Errorf("failed to prompt emergency classifier: %w", err)
		}
		return Result(resp), nil

	case llms.LLMWithGeneralPrompt:
		response, err := llm.Prompt(ctx, prompt, llms.WithSystemPrompt(redFlagsGeneralSystemPrompt))
		if err != nil {
			return Result{}, fmt.Errorf("failed to prompt emergency classifier: %w", err)
		}

		block := utils.FirstJSONObject(response.Content)
		if block == "" {
			return Result{}, nil
		}
		resp := assessment{}
		if err := json.Unmarshal([]byte(block), &resp); err != nil {
			return Result{}, fmt.Errorf("failed to unmarshal emergency assessment: %w", err)
		}
		return Result(resp), nil
	}

	return Result{}, fmt.Errorf("unknown llm type")
}
