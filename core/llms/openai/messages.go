package openai

import "github.com/koscakluka/huddle-core/core/llms"

type openAIMessage struct {
	Type    messageType `json:"type"`
	Role    messageRole `json:"role,omitempty"`
	Content string      `json:"content,omitempty"`
}

type messageRole string

const (
	messageRoleDeveloper messageRole = "developer"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

type messageType string

const messageTypeMessage messageType = "message"

func toOpenAIMessages(options llms.BaseOptions, prompt string) []openAIMessage {
	messages := []openAIMessage{}
	if options.Instructions != "" {
		messages = append(messages, openAIMessage{
			Type:    messageTypeMessage,
			Role:    messageRoleDeveloper,
			Content: options.Instructions,
		})
	}

	for _, msg := range options.Messages {
		if msg.Content == "" {
			continue
		}
		role := messageRoleUser
		switch msg.Role {
		case llms.MessageRoleSystem:
			role = messageRoleDeveloper
		case llms.MessageRoleAssistant:
			role = messageRoleAssistant
		}
		messages = append(messages, openAIMessage{Type: messageTypeMessage, Role: role, Content: msg.Content})
	}

	return append(messages, openAIMessage{
		Type:    messageTypeMessage,
		Role:    messageRoleUser,
		Content: prompt,
	})
}
