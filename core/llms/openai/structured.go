package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/huddle-core/core/llms"
)

func (c *Client) PromptWithStructure(ctx context.Context, prompt string, outputSchema any, opts ...llms.StructuredPromptOption) error {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()

	outputType := reflect.TypeOf(outputSchema)
	if outputType == nil || outputType.Kind() != reflect.Ptr {
		return recordError(span, fmt.Errorf("output schema must be a pointer, got %T", outputSchema))
	}

	options := llms.NewStructuredPromptOptions(opts...)
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.ReflectFromType(outputType.Elem())
	name := options.SchemaName
	if name == "" {
		name = outputType.Elem().Name()
	}
	if name == "" {
		name = "output"
	}

	reqBody := requestBody{
		Model:           c.model,
		Input:           toOpenAIMessages(options.BaseOptions, prompt),
		Temperature:     options.Temperature,
		MaxOutputTokens: options.MaxTokens,
		Text: &requestText{Format: requestTextFormat{
			Type:   "json_schema",
			Name:   name,
			Schema: schema,
			Strict: true,
		}},
	}

	text, err := c.respond(ctx, span, reqBody)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), outputSchema); err != nil {
		return recordError(span, fmt.Errorf("error unmarshalling response: %w", err))
	}
	return nil
}
