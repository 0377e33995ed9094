// Package llms defines the prompt contract shared by the LLM clients.
package llms

import "context"

// LLMWithGeneralPrompt answers a prompt with free text.
type LLMWithGeneralPrompt interface {
	Prompt(ctx context.Context, prompt string, opts ...GeneralPromptOption) (*Response, error)
}

// LLMWithStructuredPrompt answers a prompt by filling outputSchema, which
// must be a pointer to a JSON-decodable struct.
type LLMWithStructuredPrompt interface {
	PromptWithStructure(ctx context.Context, prompt string, outputSchema any, opts ...StructuredPromptOption) error
}
