package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StatusError is returned when the endpoint answers with a non-OK status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-OK HTTP status: %s", e.Status)
}

type completionResponseBody struct {
	Choices []struct {
		Message struct {
			Role         string  `json:"role,omitempty"`
			Content      string  `json:"content,omitempty"`
			Reasoning    string  `json:"reasoning,omitempty"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) complete(ctx context.Context, span trace.Span, body any) (string, error) {
	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.String("request.url", req.URL.String()),
	)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			logger.Warn("failed to read error body", "error", readErr)
		}
		span.SetAttributes(attribute.String("response.error", string(errorBody)))
		return "", recordError(span, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(errorBody),
		})
	}

	var responseBody completionResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return "", recordError(span, fmt.Errorf("error decoding response body: %w", err))
	}
	if len(responseBody.Choices) == 0 {
		return "", recordError(span, fmt.Errorf("no choices in response"))
	}
	if usage := responseBody.Usage; usage != nil {
		span.SetAttributes(
			attribute.Int("response.prompt_tokens", usage.PromptTokens),
			attribute.Int("response.completion_tokens", usage.CompletionTokens),
		)
	}

	return responseBody.Choices[0].Message.Content, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
