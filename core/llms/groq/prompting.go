package groq

import (
	"context"

	"github.com/koscakluka/huddle-core/core/llms"
)

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_completion_tokens,omitempty"`
}

func (c *Client) Prompt(ctx context.Context, prompt string, opts ...llms.GeneralPromptOption) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	options := llms.NewGeneralPromptOptions(opts...)
	reqBody := requestBody{
		Model:       c.model,
		Messages:    toMessages(options.BaseOptions, prompt),
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	}

	content, err := c.complete(ctx, span, reqBody)
	if err != nil {
		return nil, err
	}
	return &llms.Response{Content: content}, nil
}
