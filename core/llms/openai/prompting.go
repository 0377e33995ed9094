package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/koscakluka/huddle-core/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (c *Client) Prompt(ctx context.Context, prompt string, opts ...llms.GeneralPromptOption) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	options := llms.NewGeneralPromptOptions(opts...)
	reqBody := requestBody{
		Model:           c.model,
		Input:           toOpenAIMessages(options.BaseOptions, prompt),
		Temperature:     options.Temperature,
		MaxOutputTokens: options.MaxTokens,
	}

	text, err := c.respond(ctx, span, reqBody)
	if err != nil {
		return nil, err
	}
	return &llms.Response{Content: text}, nil
}

// StatusError is returned when the API answers with a non-OK status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-OK HTTP status: %s", e.Status)
}

func (c *Client) respond(ctx context.Context, span trace.Span, body requestBody) (string, error) {
	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+responsesPath, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	// TODO: Add org and project headers

	span.SetAttributes(attribute.String("request.model", c.model))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error reading response body: %w", err))
	}
	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		return "", recordError(span, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bodyBytes)})
	}

	var responseBody generalResponseBody
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return "", recordError(span, fmt.Errorf("error unmarshalling response body: %w", err))
	}

	var text string
	for _, output := range responseBody.Output {
		var outputType generalResponseBodyOutputType
		if err := json.Unmarshal(output, &outputType); err != nil {
			return "", recordError(span, fmt.Errorf("error unmarshalling output type: %w", err))
		}

		switch outputType.Type {
		case generalResponseBodyOutputTypeMessage:
			var outputMessage generalResponseBodyOutputMessage
			if err := json.Unmarshal(output, &outputMessage); err != nil {
				return "", recordError(span, fmt.Errorf("error unmarshalling output message: %w", err))
			}
			for _, content := range outputMessage.Content {
				switch content.Type {
				case "output_text":
					text += content.Text
				case "refusal":
					logger.Warn("model refused to answer", "refusal", content.Refusal)
					text += content.Refusal
				}
			}

		case generalResponseBodyOutputTypeReasoning:
			// TODO: Handle reasoning
		}
	}
	return text, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

type requestBody struct {
	Model           string          `json:"model"`
	Input           []openAIMessage `json:"input"`
	Stream          bool            `json:"stream"`
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	Text            *requestText    `json:"text,omitempty"`
}

type requestText struct {
	Format requestTextFormat `json:"format"`
}

type requestTextFormat struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Schema any    `json:"schema,omitempty"`
	Strict bool   `json:"strict,omitempty"`
}

type generalResponseBody struct {
	Output []json.RawMessage `json:"output"`
}

type generalResponseBodyOutputType struct {
	Type generalResponseBodyOutputTypeType `json:"type"`
}

type generalResponseBodyOutputMessage struct {
	ID      string `json:"id"`
	Content []struct {
		// Type is 'output_text' or 'refusal'.
		Type    string `json:"type"`
		Text    string `json:"text,omitempty"`
		Refusal string `json:"refusal,omitempty"`
	} `json:"content,omitempty"`
}

type generalResponseBodyOutputTypeType string

const (
	generalResponseBodyOutputTypeMessage   generalResponseBodyOutputTypeType = "message"
	generalResponseBodyOutputTypeReasoning generalResponseBodyOutputTypeType = "reasoning"
)
