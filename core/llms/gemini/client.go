// Package gemini is a client for the Google Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/huddle-core/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"

	apiKeyHeader = "x-goog-api-key"
)

var (
	_ llms.LLMWithGeneralPrompt    = (*Client)(nil)
	_ llms.LLMWithStructuredPrompt = (*Client)(nil)
)

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      DefaultModel,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string { return c.model }

func (c *Client) Prompt(ctx context.Context, prompt string, opts ...llms.GeneralPromptOption) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	options := llms.NewGeneralPromptOptions(opts...)
	text, err := c.generate(ctx, span, newRequestBody(options.BaseOptions, prompt))
	if err != nil {
		return nil, err
	}
	return &llms.Response{Content: text}, nil
}

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

	body := newRequestBody(options.BaseOptions, prompt)
	body.GenerationConfig.ResponseMimeType = "application/json"
	body.GenerationConfig.ResponseJSONSchema = schema

	text, err := c.generate(ctx, span, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), outputSchema); err != nil {
		return recordError(span, fmt.Errorf("error unmarshalling response: %w", err))
	}
	return nil
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

func (c *Client) generate(ctx context.Context, span trace.Span, body requestBody) (string, error) {
	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

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

	var responseBody responseBody
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return "", recordError(span, fmt.Errorf("error unmarshalling response body: %w", err))
	}
	if len(responseBody.Candidates) == 0 {
		if feedback := responseBody.PromptFeedback; feedback != nil && feedback.BlockReason != "" {
			logger.Warn("prompt was blocked", "reason", feedback.BlockReason)
			return "", recordError(span, fmt.Errorf("prompt blocked: %s", feedback.BlockReason))
		}
		return "", recordError(span, fmt.Errorf("no candidates in response"))
	}

	var text strings.Builder
	for _, part := range responseBody.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature        *float64           `json:"temperature,omitempty"`
	MaxOutputTokens    *int               `json:"maxOutputTokens,omitempty"`
	ResponseMimeType   string             `json:"responseMimeType,omitempty"`
	ResponseJSONSchema *jsonschema.Schema `json:"responseJsonSchema,omitempty"`
}

type requestBody struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

func newRequestBody(options llms.BaseOptions, prompt string) requestBody {
	body := requestBody{
		GenerationConfig: generationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}
	if options.Instructions != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: options.Instructions}}}
	}
	for _, msg := range options.Messages {
		if msg.Content == "" {
			continue
		}
		role := "user"
		if msg.Role == llms.MessageRoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}
	body.Contents = append(body.Contents, content{Role: "user", Parts: []part{{Text: prompt}}})
	return body
}

type responseBody struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}
