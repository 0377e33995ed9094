package groq

import (
	"net/http"

	"github.com/koscakluka/huddle-core/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	chatCompletionsPath = "/chat/completions"
)

var (
	_ llms.LLMWithGeneralPrompt    = (*Client)(nil)
	_ llms.LLMWithStructuredPrompt = (*Client)(nil)
)

// Client talks to an OpenAI compatible chat completions endpoint. Groq is
// the default, any other compatible provider works by changing the base URL.
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
			c.baseURL = baseURL
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

func (c *Client) url() string {
	return c.baseURL + chatCompletionsPath
}
