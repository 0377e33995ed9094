package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/huddle-core/core/llms"
)

func TestToOpenAIMessagesOrdersInstructionsHistoryAndPrompt(t *testing.T) {
	messages := toOpenAIMessages(llms.BaseOptions{
		Instructions: "be brief",
		Messages: []llms.Message{
			{Role: llms.MessageRoleUser, Content: "first"},
			{Role: llms.MessageRoleAssistant, Content: ""},
			{Role: llms.MessageRoleAssistant, Content: "second"},
		},
	}, "third")

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != messageRoleDeveloper || messages[0].Content != "be brief" {
		t.Fatalf("unexpected instructions message: %+v", messages[0])
	}
	if messages[2].Role != messageRoleAssistant || messages[2].Content != "second" {
		t.Fatalf("unexpected history message: %+v", messages[2])
	}
	if messages[3].Role != messageRoleUser || messages[3].Content != "third" {
		t.Fatalf("unexpected prompt message: %+v", messages[3])
	}
}

func TestPromptWithStructureUsesTextFormat(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"output":[
			{"type":"reasoning","id":"r1"},
			{"type":"message","id":"m1","content":[{"type":"output_text","text":"{\"question\":\"Any fever?\"}"}]}
		]}`))
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	var output struct {
		Question string `json:"question"`
	}
	if err := client.PromptWithStructure(context.Background(), "ask", &output); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Question != "Any fever?" {
		t.Fatalf("expected decoded question, got %q", output.Question)
	}

	text, _ := captured["text"].(map[string]any)
	format, _ := text["format"].(map[string]any)
	if format["type"] != "json_schema" || format["strict"] != true {
		t.Fatalf("unexpected text format: %v", format)
	}
	if format["name"] != "output" {
		t.Fatalf("expected fallback schema name for an anonymous type, got %v", format["name"])
	}
	schema, _ := format["schema"].(map[string]any)
	properties, _ := schema["properties"].(map[string]any)
	if _, ok := properties["question"]; !ok {
		t.Fatalf("expected inline question property, got %v", schema)
	}
}

type namedVerdict struct {
	Urgent bool `json:"urgent"`
}

func TestPromptWithStructureInlinesNamedTypes(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"output":[{"type":"message","id":"m1","content":[{"type":"output_text","text":"{\"urgent\":true}"}]}]}`))
	}))
	defer server.Close()

	var output namedVerdict
	if err := NewClient("key", WithBaseURL(server.URL)).PromptWithStructure(context.Background(), "judge", &output); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.Urgent {
		t.Fatalf("expected decoded verdict, got %+v", output)
	}

	text, _ := captured["text"].(map[string]any)
	format, _ := text["format"].(map[string]any)
	schema, _ := format["schema"].(map[string]any)
	if _, ok := schema["$ref"]; ok {
		t.Fatalf("expected an inline schema, got reference %v", schema)
	}
	properties, _ := schema["properties"].(map[string]any)
	if _, ok := properties["urgent"]; !ok {
		t.Fatalf("expected urgent property, got %v", schema)
	}
}

func TestPromptReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient("bad", WithBaseURL(server.URL)).Prompt(context.Background(), "hi")
	statusErr, ok := err.(*StatusError)
	if !ok || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
}
