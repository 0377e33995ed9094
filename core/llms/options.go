package llms

import "github.com/koscakluka/huddle-core/internal/utils"

type BaseOptions struct {
	Instructions string
	Messages     []Message
	Temperature  *float64
	MaxTokens    *int
}

type GeneralPromptOptions struct {
	BaseOptions
}

type StructuredPromptOptions struct {
	BaseOptions
	// SchemaName overrides the name the output schema is registered under.
	// Defaults to the Go type name of the output.
	SchemaName string
}

type GeneralPromptOption interface {
	ApplyToGeneral(*GeneralPromptOptions)
}

type StructuredPromptOption interface {
	ApplyToStructured(*StructuredPromptOptions)
}

// PromptOption modifies options shared by every prompt kind.
type PromptOption func(*BaseOptions)

func (f PromptOption) ApplyToGeneral(o *GeneralPromptOptions) {
	f(&o.BaseOptions)
}

func (f PromptOption) ApplyToStructured(o *StructuredPromptOptions) {
	f(&o.BaseOptions)
}

// StructuredOnlyOption modifies options that only make sense for
// structured prompts.
type StructuredOnlyOption func(*StructuredPromptOptions)

func (f StructuredOnlyOption) ApplyToStructured(o *StructuredPromptOptions) {
	f(o)
}

// WithSystemPrompt sets the system prompt for the prompt.
// Repeating this option will overwrite the previous system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *BaseOptions) {
		opts.Instructions = prompt
	}
}

// WithMessages adds passed messages to the prompt, ahead of the prompt
// itself. Repeating this option will sequentially add more messages.
func WithMessages(messages ...Message) PromptOption {
	return func(opts *BaseOptions) {
		opts.Messages = append(opts.Messages, messages...)
	}
}

func WithTemperature(temperature float64) PromptOption {
	return func(opts *BaseOptions) {
		opts.Temperature = utils.Ptr(temperature)
	}
}

func WithMaxTokens(maxTokens int) PromptOption {
	return func(opts *BaseOptions) {
		opts.MaxTokens = utils.Ptr(maxTokens)
	}
}

func WithSchemaName(name string) StructuredOnlyOption {
	return func(opts *StructuredPromptOptions) {
		opts.SchemaName = name
	}
}

func NewGeneralPromptOptions(opts ...GeneralPromptOption) GeneralPromptOptions {
	options := GeneralPromptOptions{}
	for _, opt := range opts {
		opt.ApplyToGeneral(&options)
	}
	return options
}

func NewStructuredPromptOptions(opts ...StructuredPromptOption) StructuredPromptOptions {
	options := StructuredPromptOptions{}
	for _, opt := range opts {
		opt.ApplyToStructured(&options)
	}
	return options
}
