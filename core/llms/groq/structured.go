package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/huddle-core/core/llms"
	"go.opentelemetry.io/otel/attribute"
)

func (c *Client) PromptWithStructure(ctx context.Context, prompt string, outputSchema any, opts ...llms.StructuredPromptOption) error {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()

	outputType := reflect.TypeOf(outputSchema)
	if outputType == nil || outputType.Kind() != reflect.Ptr {
		return recordError(span, fmt.Errorf("output schema must be a pointer, got %T", outputSchema))
	}

	options := llms.NewStructuredPromptOptions(opts...)

	// TODO: Implement a custom reflector that only satisfies the subset of
	// jsonschema used by groq
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.ReflectFromType(outputType.Elem())
	name := options.SchemaName
	if name == "" {
		name = outputType.Elem().Name()
	}
	if name == "" {
		name = "output"
	}

	reqBody := schemaRequestBody{
		requestBody: requestBody{
			Model:       c.model,
			Messages:    toMessages(options.BaseOptions, prompt),
			Temperature: options.Temperature,
			MaxTokens:   options.MaxTokens,
		},
		ResponseFormat: &ChatResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   name,
				Schema: *schema,
				Strict: true,
			},
		},
	}
	if schemaString, err := schema.MarshalJSON(); err == nil {
		span.SetAttributes(attribute.String("request.schema", string(schemaString)))
	}

	content, err := c.complete(ctx, span, reqBody)
	if err != nil {
		return err
	}

	split := strings.Split(content, "```")
	if len(split) > 1 {
		content = strings.TrimPrefix(strings.TrimSpace(split[1]), "json")
	}
	if err := json.Unmarshal([]byte(content), outputSchema); err != nil {
		return recordError(span, fmt.Errorf("error unmarshalling response: %w", err))
	}
	return nil
}

type schemaRequestBody struct {
	requestBody
	ResponseFormat *ChatResponseFormat `json:"response_format,omitempty"`
}

type ChatResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	// Name identifies the schema in the response.
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Schema      jsonschema.Schema `json:"schema"`
	// Strict determines whether to enforce the schema upon the generated
	// content.
	Strict bool `json:"strict"`
}
